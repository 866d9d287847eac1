package redline

import (
	"strings"
	"testing"

	"github.com/beevik/etree"

	"github.com/vortex/docx-redline/internal/ooxml"
)

func mustParseTable(t *testing.T, xml string) *etree.Element {
	t.Helper()
	root, form, err := ooxml.Parse(xml)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if form != ooxml.FormTable {
		t.Fatalf("expected table form, got %v", form)
	}
	return root
}

func simpleRowXML(cells ...string) string {
	var sb strings.Builder
	sb.WriteString("<w:tr>")
	for _, c := range cells {
		sb.WriteString("<w:tc><w:p><w:r><w:t>")
		sb.WriteString(c)
		sb.WriteString("</w:t></w:r></w:p></w:tc>")
	}
	sb.WriteString("</w:tr>")
	return sb.String()
}

func TestParseMarkdownTableBasic(t *testing.T) {
	md := "| A | B |\n| --- | --- |\n| 1 | 2 |\n| 3 | 4 |\n"
	mt, ok := ParseMarkdownTable(md)
	if !ok {
		t.Fatalf("expected markdown table to parse")
	}
	if len(mt.Headers) != 2 || mt.Headers[0] != "A" || mt.Headers[1] != "B" {
		t.Fatalf("unexpected headers: %v", mt.Headers)
	}
	if len(mt.Rows) != 2 || mt.Rows[0][0] != "1" || mt.Rows[1][1] != "4" {
		t.Fatalf("unexpected rows: %v", mt.Rows)
	}
}

func TestParseMarkdownTableRejectsNonTable(t *testing.T) {
	if _, ok := ParseMarkdownTable("just a paragraph of text"); ok {
		t.Fatalf("expected non-table text to be rejected")
	}
}

func TestBuildVirtualGridFlat(t *testing.T) {
	xml := `<w:tbl ` + wNS + `>` +
		simpleRowXML("A", "B") +
		simpleRowXML("1", "2") +
		`</w:tbl>`
	tbl := mustParseTable(t, xml)
	grid := BuildVirtualGrid(tbl)

	if len(grid.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(grid.Rows))
	}
	if grid.ColCount != 2 {
		t.Fatalf("expected 2 columns, got %d", grid.ColCount)
	}
	if grid.Rows[1][0].Text != "1" || grid.Rows[1][1].Text != "2" {
		t.Fatalf("unexpected cell text: %+v", grid.Rows[1])
	}
}

func TestBuildVirtualGridExpandsGridSpan(t *testing.T) {
	xml := `<w:tbl ` + wNS + `>` +
		`<w:tr><w:tc><w:tcPr><w:gridSpan w:val="2"/></w:tcPr><w:p><w:r><w:t>Wide</w:t></w:r></w:p></w:tc></w:tr>` +
		simpleRowXML("1", "2") +
		`</w:tbl>`
	tbl := mustParseTable(t, xml)
	grid := BuildVirtualGrid(tbl)

	if len(grid.Rows[0]) != 2 {
		t.Fatalf("expected gridSpan to expand to 2 logical columns, got %d", len(grid.Rows[0]))
	}
	if grid.Rows[0][0].Role != MergeSpanOrigin {
		t.Fatalf("expected first cell to be span origin, got %v", grid.Rows[0][0].Role)
	}
	if grid.Rows[0][1].Role != MergeSpanContinue {
		t.Fatalf("expected second cell to be span continuation, got %v", grid.Rows[0][1].Role)
	}
}

func TestDiffTableRowsAlignedReplaceBecomesCellEdit(t *testing.T) {
	original := [][]string{{"1", "2"}, {"3", "4"}}
	modified := [][]string{{"1", "99"}, {"5", "6"}}
	ops := DiffTableRows(original, modified)

	var kinds []string
	for _, op := range ops {
		kinds = append(kinds, op.Kind)
	}
	if len(kinds) == 0 {
		t.Fatalf("expected at least one op")
	}
	foundEdit := false
	for _, k := range kinds {
		if k == "cell_edit" {
			foundEdit = true
		}
	}
	if !foundEdit {
		t.Fatalf("expected a cell_edit op among %v", kinds)
	}
}

func TestDiffTableRowsNoChange(t *testing.T) {
	rows := [][]string{{"1", "2"}, {"3", "4"}}
	ops := DiffTableRows(rows, rows)
	if tableOpsHaveChanges(ops) {
		t.Fatalf("expected no changes for identical rows")
	}
}

func TestReconcileTableAddsRow(t *testing.T) {
	xml := `<w:tbl ` + wNS + `>` +
		simpleRowXML("Name", "Age") +
		simpleRowXML("Alice", "30") +
		`</w:tbl>`
	tbl := mustParseTable(t, xml)
	rev := Revision{ID: 1000, Author: "tester", Date: "2026-01-01T00:00:00Z"}

	md := "| Name | Age |\n| --- | --- |\n| Alice | 30 |\n| Bob | 40 |\n"
	changed, ok := ReconcileTable(tbl, md, rev, true)
	if !ok {
		t.Fatalf("expected table reconciliation to apply")
	}
	if !changed {
		t.Fatalf("expected a change")
	}
	out, err := ooxml.Serialize(tbl)
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	if !strings.Contains(out, "Bob") || !strings.Contains(out, "w:ins") {
		t.Fatalf("expected inserted row tracked: %s", out)
	}
}

func TestReconcileTableHeaderMismatchFallsBack(t *testing.T) {
	xml := `<w:tbl ` + wNS + `>` + simpleRowXML("A", "B") + `</w:tbl>`
	tbl := mustParseTable(t, xml)
	rev := Revision{ID: 1000, Author: "tester", Date: "2026-01-01T00:00:00Z"}

	md := "| A | B | C |\n| --- | --- | --- |\n| 1 | 2 | 3 |\n"
	_, ok := ReconcileTable(tbl, md, rev, true)
	if ok {
		t.Fatalf("expected header column mismatch to report !ok")
	}
}

func TestGenerateTableFromText(t *testing.T) {
	p := mustParseParagraph(t, `<w:p `+wNS+`><w:r><w:t>Some old paragraph</w:t></w:r></w:p>`)
	rev := Revision{ID: 1000, Author: "tester", Date: "2026-01-01T00:00:00Z"}

	md := "| A | B |\n| --- | --- |\n| 1 | 2 |\n"
	tbl, ok := GenerateTableFromText([]*etree.Element{p}, nil, md, rev, true)
	if !ok {
		t.Fatalf("expected text-to-table conversion")
	}
	out, err := ooxml.Serialize(tbl)
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	if !strings.Contains(out, "w:tbl") {
		t.Fatalf("expected a w:tbl: %s", out)
	}
}
