package redline

import (
	"strconv"
	"strings"

	"github.com/beevik/etree"
	"github.com/pmezard/go-difflib/difflib"
	"github.com/yuin/goldmark"
	mdast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"

	"github.com/vortex/docx-redline/internal/ooxml"
)

// MarkdownTable is the {headers, rows} shape a markdown GFM table parses
// into (spec.md §4.11 step 2).
type MarkdownTable struct {
	Headers []string
	Rows    [][]string
}

var tableMarkdown = goldmark.New(goldmark.WithExtensions(extension.Table))

// ParseMarkdownTable reports whether raw contains exactly one top-level
// GFM table and, if so, returns its parsed shape.
func ParseMarkdownTable(raw string) (MarkdownTable, bool) {
	source := []byte(raw)
	root := tableMarkdown.Parser().Parse(text.NewReader(source))

	var found *extast.Table
	for n := root.FirstChild(); n != nil; n = n.NextSibling() {
		if t, ok := n.(*extast.Table); ok {
			if found != nil {
				return MarkdownTable{}, false // more than one table: not a single-table edit
			}
			found = t
		} else if n.Kind() != mdast.KindTextBlock && !isBlankNode(n, source) {
			return MarkdownTable{}, false // other content present alongside the table
		}
	}
	if found == nil {
		return MarkdownTable{}, false
	}
	return extractTable(found, source), true
}

func isBlankNode(n mdast.Node, source []byte) bool {
	return strings.TrimSpace(tableCellText(n, source)) == ""
}

func extractTable(t *extast.Table, source []byte) MarkdownTable {
	var mt MarkdownTable
	child := t.FirstChild()
	if header, ok := child.(*extast.TableHeader); ok {
		mt.Headers = tableRowCells(header, source)
		child = child.NextSibling()
	}
	for ; child != nil; child = child.NextSibling() {
		if row, ok := child.(*extast.TableRow); ok {
			mt.Rows = append(mt.Rows, tableRowCells(row, source))
		}
	}
	return mt
}

func tableRowCells(row mdast.Node, source []byte) []string {
	var cells []string
	for c := row.FirstChild(); c != nil; c = c.NextSibling() {
		if cell, ok := c.(*extast.TableCell); ok {
			cells = append(cells, strings.TrimSpace(tableCellText(cell, source)))
		}
	}
	return cells
}

// tableCellText flattens a cell's inline content to plain text, the way
// the teacher's markdown-to-Word converter's extractText walks inline nodes.
func tableCellText(n mdast.Node, source []byte) string {
	var sb strings.Builder
	mdast.Walk(n, func(node mdast.Node, entering bool) (mdast.WalkStatus, error) {
		if !entering {
			return mdast.WalkContinue, nil
		}
		switch t := node.(type) {
		case *mdast.Text:
			sb.Write(t.Segment.Value(source))
		case *mdast.String:
			sb.Write(t.Value)
		}
		return mdast.WalkContinue, nil
	})
	return sb.String()
}

// BuildVirtualGrid expands a w:tbl's gridSpan/vMerge so every logical cell
// occupies a dense row/col coordinate (spec.md §4.11 step 1), grounded on
// the teacher's CT_Tc.GridOffset/VMergeVal accumulation pattern.
func BuildVirtualGrid(tbl *etree.Element) VirtualGrid {
	rows := ooxml.Children(tbl, "w:tr")
	grid := VirtualGrid{RowElems: rows}

	colCount := 0
	for rowIdx, tr := range rows {
		var cells []VirtualCell
		col := 0
		for _, tc := range ooxml.Children(tr, "w:tc") {
			span := gridSpanOf(tc)
			vMerge := vMergeOf(tc)
			role := MergeNone
			if vMerge == "continue" {
				role = MergeVContinue
			} else if vMerge == "restart" {
				role = MergeVStart
			}
			if span > 1 {
				if role == MergeVContinue {
					role = MergeSpanContinue
				} else {
					role = MergeSpanOrigin
				}
			}
			cells = append(cells, VirtualCell{
				Elem:      tc,
				Text:      tcText(tc),
				Role:      role,
				RowSpan:   1,
				ColSpan:   span,
				OriginRow: -1,
			})
			for extra := 1; extra < span; extra++ {
				// A horizontal (gridSpan) continuation always originates in
				// this same row, at the span's first column.
				cells = append(cells, VirtualCell{Role: MergeSpanContinue, OriginRow: rowIdx, OriginCol: col})
			}
			col += span
		}
		if col > colCount {
			colCount = col
		}
		grid.Rows = append(grid.Rows, cells)
	}

	// Resolve vertical (vMerge) continuations to their origin row/col by
	// walking upward column-aligned, and bump the origin's logical row
	// span. Rows are assumed to cover the full grid width in column order,
	// matching every real-world table this engine is expected to see.
	for r := range grid.Rows {
		for c := range grid.Rows[r] {
			cell := &grid.Rows[r][c]
			if cell.Role != MergeVContinue && cell.Role != MergeSpanContinue || cell.Elem == nil {
				continue
			}
			if r == 0 || c >= len(grid.Rows[r-1]) {
				continue
			}
			above := &grid.Rows[r-1][c]
			origin := above
			if above.OriginRow >= 0 {
				origin = &grid.Rows[above.OriginRow][above.OriginCol]
			}
			cell.OriginRow, cell.OriginCol = indexOfCell(grid.Rows, origin)
			if cell.OriginRow >= 0 {
				grid.Rows[cell.OriginRow][cell.OriginCol].RowSpan++
			}
		}
	}
	grid.ColCount = colCount
	return grid
}

// indexOfCell returns the (row, col) position of target within rows by
// pointer identity, or (-1, -1) if not found.
func indexOfCell(rows [][]VirtualCell, target *VirtualCell) (int, int) {
	for r := range rows {
		for c := range rows[r] {
			if &rows[r][c] == target {
				return r, c
			}
		}
	}
	return -1, -1
}

func gridSpanOf(tc *etree.Element) int {
	tcPr := ooxml.FirstChild(tc, "w:tcPr")
	if tcPr == nil {
		return 1
	}
	gs := ooxml.FirstChild(tcPr, "w:gridSpan")
	if gs == nil {
		return 1
	}
	if v, ok := ooxml.Attr(gs, "w:val"); ok {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return 1
}

func vMergeOf(tc *etree.Element) string {
	tcPr := ooxml.FirstChild(tc, "w:tcPr")
	if tcPr == nil {
		return ""
	}
	vm := ooxml.FirstChild(tcPr, "w:vMerge")
	if vm == nil {
		return ""
	}
	if v, ok := ooxml.Attr(vm, "w:val"); ok && v != "" {
		return v
	}
	return "continue"
}

func tcText(tc *etree.Element) string {
	var paragraphs []*etree.Element
	for _, p := range ooxml.Children(tc, "w:p") {
		paragraphs = append(paragraphs, p)
	}
	_, text := IngestParagraphs(paragraphs)
	return text
}

// TableRowOp is one step of a grid-level diff (spec.md §4.11 step 3).
type TableRowOp struct {
	Kind  string // "row_insert", "row_delete", "cell_edit", "row_equal"
	Index int    // row index this op targets (original grid for delete/edit, new grid for insert)
	Cells []string
}

// DiffTableRows compares grid rows by normalized cell text, producing
// row_insert/row_delete/cell_edit ops with a tie-break favoring cell_edit
// for rows whose position aligns across both grids.
func DiffTableRows(original [][]string, modified [][]string) []TableRowOp {
	a := make([]string, len(original))
	for i, row := range original {
		a[i] = strings.Join(row, "\x1f")
	}
	b := make([]string, len(modified))
	for i, row := range modified {
		b[i] = strings.Join(row, "\x1f")
	}
	rowOps := diffRows(a, b)

	var out []TableRowOp
	origIdx, newIdx := 0, 0
	for _, op := range rowOps {
		switch op.Op {
		case 0:
			for i := 0; i < op.Count; i++ {
				out = append(out, TableRowOp{Kind: "row_equal", Index: origIdx, Cells: original[origIdx]})
				origIdx++
				newIdx++
			}
		case -1:
			for i := 0; i < op.Count; i++ {
				out = append(out, TableRowOp{Kind: "row_delete", Index: origIdx, Cells: original[origIdx]})
				origIdx++
			}
		case +1:
			for i := 0; i < op.Count; i++ {
				out = append(out, TableRowOp{Kind: "row_insert", Index: newIdx, Cells: modified[newIdx]})
				newIdx++
			}
		case 2: // replace: header-aligned count match -> prefer cell_edit
			for i := 0; i < op.Count; i++ {
				out = append(out, TableRowOp{Kind: "cell_edit", Index: origIdx, Cells: modified[newIdx]})
				origIdx++
				newIdx++
			}
		}
	}
	return out
}

// rowDiffOp mirrors DiffOp but additionally distinguishes an aligned
// replace run (kind 2) from independent delete+insert, so the caller can
// apply the "prefer cell_edit for header-aligned rows" tie-break.
type rowDiffOp struct {
	Op    int
	Count int
}

// diffRows runs go-difflib's opcode matcher over row text and converts
// balanced replace runs (equal row counts on both sides) to cell_edit,
// leaving unbalanced replace runs as delete-then-insert.
func diffRows(a, b []string) []rowDiffOp {
	matcher := difflib.NewMatcher(a, b)
	var out []rowDiffOp
	for _, oc := range matcher.GetOpCodes() {
		switch oc.Tag {
		case 'e':
			out = append(out, rowDiffOp{Op: 0, Count: oc.I2 - oc.I1})
		case 'd':
			out = append(out, rowDiffOp{Op: -1, Count: oc.I2 - oc.I1})
		case 'i':
			out = append(out, rowDiffOp{Op: +1, Count: oc.J2 - oc.J1})
		case 'r':
			aLen, bLen := oc.I2-oc.I1, oc.J2-oc.J1
			if aLen == bLen {
				out = append(out, rowDiffOp{Op: 2, Count: aLen})
			} else {
				out = append(out, rowDiffOp{Op: -1, Count: aLen})
				out = append(out, rowDiffOp{Op: +1, Count: bLen})
			}
		}
	}
	return out
}

// HeaderMatches reports whether two header rows have the same column
// count, the precondition spec.md §4.11 step 3 requires before diffing.
func HeaderMatches(original, modified []string) bool {
	return len(original) == len(modified)
}

// ReconcileTable implements C11 for a fragment that already contains a
// table (spec.md §4.11 steps 1-4). ok is false when modifiedText doesn't
// parse as a single markdown table or its header column count doesn't
// match the original's. routeTable then returns the table unchanged with a
// TableShapeMismatch warning; decideAndApply falls back to surgical mode
// (spec.md §4.11).
func ReconcileTable(tbl *etree.Element, modifiedText string, rev Revision, generateRedlines bool) (changed bool, ok bool) {
	mt, isTable := ParseMarkdownTable(modifiedText)
	if !isTable {
		return false, false
	}
	grid := BuildVirtualGrid(tbl)
	if len(grid.Rows) == 0 {
		return false, false
	}
	origHeader := logicalRowTexts(grid, 0)
	if !HeaderMatches(origHeader, mt.Headers) {
		return false, false
	}

	origBodyRows := make([][]string, 0, len(grid.Rows)-1)
	for r := 1; r < len(grid.Rows); r++ {
		origBodyRows = append(origBodyRows, logicalRowTexts(grid, r))
	}

	ops := DiffTableRows(origBodyRows, mt.Rows)
	if !tableOpsHaveChanges(ops) {
		return false, true
	}
	applyTableRowOps(grid, ops, rev, generateRedlines)
	return true, true
}

func tableOpsHaveChanges(ops []TableRowOp) bool {
	for _, op := range ops {
		if op.Kind != "row_equal" {
			return true
		}
	}
	return false
}

// logicalRowTexts returns one normalized text per logical (non-continue)
// column of grid row r.
func logicalRowTexts(grid VirtualGrid, r int) []string {
	if r >= len(grid.Rows) {
		return nil
	}
	var out []string
	for _, c := range grid.Rows[r] {
		if c.Role == MergeSpanContinue {
			continue
		}
		out = append(out, normalizeForCompare(c.Text))
	}
	return out
}

// logicalCells returns grid row cells in column order, skipping
// horizontal-merge continuation placeholders.
func logicalCells(cells []VirtualCell) []VirtualCell {
	var out []VirtualCell
	for _, c := range cells {
		if c.Role != MergeSpanContinue {
			out = append(out, c)
		}
	}
	return out
}

// applyTableRowOps mutates tbl's tree in place per ops (spec.md §4.11
// step 4). Row insertion/deletion is tracked via <w:trPr><w:ins/|w:del/>,
// the real ECMA-376 row-revision mechanism (17.4.70/17.4.66), with every
// run inside an inserted or deleted row additionally wrapped the normal
// run-level way; edited cells route their own paragraphs through
// surgical mode.
func applyTableRowOps(grid VirtualGrid, ops []TableRowOp, rev Revision, generateRedlines bool) {
	headerRow := grid.RowElems[0]
	templateRow := headerRow
	if len(grid.RowElems) > 1 {
		templateRow = grid.RowElems[1]
	}
	cursor := headerRow

	for _, op := range ops {
		switch op.Kind {
		case "row_equal":
			cursor = grid.RowElems[op.Index+1]
		case "cell_edit":
			row := grid.RowElems[op.Index+1]
			cursor = row
			editRowCells(grid.Rows[op.Index+1], op.Cells, rev, generateRedlines)
		case "row_delete":
			row := grid.RowElems[op.Index+1]
			cursor = row
			markRowDeleted(row, rev, generateRedlines)
		case "row_insert":
			newRow := buildInsertedRow(templateRow, op.Cells, rev, generateRedlines)
			if parent := cursor.Parent(); parent != nil {
				ooxml.InsertAfter(parent, cursor, newRow)
			}
			cursor = newRow
		}
	}
}

func editRowCells(cells []VirtualCell, newTexts []string, rev Revision, generateRedlines bool) {
	logical := logicalCells(cells)
	for i, cell := range logical {
		if i >= len(newTexts) || cell.Elem == nil {
			continue
		}
		clean, hints := PreprocessMarkdown(newTexts[i])
		if normalizeForCompare(clean) == normalizeForCompare(cell.Text) {
			continue
		}
		paragraphs := ooxml.Children(cell.Elem, "w:p")
		ApplySurgical(paragraphs, cell.Elem, clean, hints, rev, generateRedlines)
	}
}

func markRowDeleted(row *etree.Element, rev Revision, generateRedlines bool) {
	if !generateRedlines {
		if parent := row.Parent(); parent != nil {
			parent.RemoveChild(row)
		}
		return
	}
	trPr := ooxml.FirstChild(row, "w:trPr")
	if trPr == nil {
		trPr = ooxml.New("w:trPr")
		ooxml.InsertAt(row, trPr, 0)
	}
	trPr.AddChild(createTrackChange("del", nil, rev))

	for _, tc := range ooxml.Children(row, "w:tc") {
		for _, p := range ooxml.Children(tc, "w:p") {
			for _, r := range ooxml.Children(p, "w:r") {
				markRunDeleted(p, r, rev)
			}
		}
	}
}

func markRunDeleted(parent, run *etree.Element, rev Revision) {
	if t := ooxml.FirstChild(run, "w:t"); t != nil {
		t.Tag = "delText"
	}
	w := createTrackChange("del", nil, rev)
	ooxml.ReplaceChild(parent, run, w)
	w.AddChild(run)
}

func buildInsertedRow(template *etree.Element, texts []string, rev Revision, generateRedlines bool) *etree.Element {
	tr := ooxml.New("w:tr")
	trPr := ooxml.New("w:trPr")
	if generateRedlines {
		trPr.AddChild(createTrackChange("ins", nil, rev))
	}
	tr.AddChild(trPr)

	templateCells := ooxml.Children(template, "w:tc")
	for i, text := range texts {
		tc := ooxml.New("w:tc")
		if i < len(templateCells) {
			if tcPr := ooxml.FirstChild(templateCells[i], "w:tcPr"); tcPr != nil {
				tc.AddChild(tcPr.Copy())
			}
		}
		p := ooxml.New("w:p")
		clean, hints := PreprocessMarkdown(text)
		for _, r := range createFormattedRuns(clean, nil, hints, 0, rev, generateRedlines) {
			p.AddChild(r)
		}
		tc.AddChild(p)
		tr.AddChild(tc)
	}
	return tr
}

// GenerateTableFromText implements the text-to-table path (spec.md §4.11
// "Text-to-table"): when modifiedText parses as a markdown table but
// paragraphs contains no w:tbl, build a brand-new table, insert it before
// the first paragraph, and mark the existing paragraphs deleted.
func GenerateTableFromText(paragraphs []*etree.Element, container *etree.Element, modifiedText string, rev Revision, generateRedlines bool) (*etree.Element, bool) {
	mt, ok := ParseMarkdownTable(modifiedText)
	if !ok || len(mt.Headers) == 0 {
		return nil, false
	}

	tbl := ooxml.New("w:tbl")
	tblPr := ooxml.New("w:tblPr")
	tblPr.AddChild(ooxml.NewWithAttrs("w:tblStyle", map[string]string{"w:val": "TableGrid"}))
	tbl.AddChild(tblPr)

	tblGrid := ooxml.New("w:tblGrid")
	for i := 0; i < len(mt.Headers); i++ {
		tblGrid.AddChild(ooxml.New("w:gridCol"))
	}
	tbl.AddChild(tblGrid)

	tbl.AddChild(buildPlainRow(mt.Headers, rev, generateRedlines))
	for _, row := range mt.Rows {
		tbl.AddChild(buildPlainRow(row, rev, generateRedlines))
	}

	if len(paragraphs) > 0 {
		parent := paragraphs[0].Parent()
		if parent == nil {
			parent = container
		}
		if parent != nil {
			ooxml.InsertBefore(parent, paragraphs[0], tbl)
		}
		for _, p := range paragraphs {
			markParagraphDeleted(p, rev, generateRedlines)
		}
	} else if container != nil {
		container.AddChild(tbl)
	}

	return tbl, true
}

func buildPlainRow(cells []string, rev Revision, generateRedlines bool) *etree.Element {
	tr := ooxml.New("w:tr")
	if generateRedlines {
		trPr := ooxml.New("w:trPr")
		trPr.AddChild(createTrackChange("ins", nil, rev))
		tr.AddChild(trPr)
	}
	for _, text := range cells {
		tc := ooxml.New("w:tc")
		p := ooxml.New("w:p")
		clean, hints := PreprocessMarkdown(text)
		for _, r := range createFormattedRuns(clean, nil, hints, 0, rev, generateRedlines) {
			p.AddChild(r)
		}
		tc.AddChild(p)
		tr.AddChild(tc)
	}
	return tr
}

// markParagraphDeleted retags every run in p as delText and wraps it in
// w:del, or removes the runs outright when not tracking — the "delete the
// preceding paragraphs" half of the text-to-table conversion.
func markParagraphDeleted(p *etree.Element, rev Revision, generateRedlines bool) {
	for _, r := range ooxml.Children(p, "w:r") {
		if !generateRedlines {
			p.RemoveChild(r)
			continue
		}
		markRunDeleted(p, r, rev)
	}
}
