package redline

import (
	"strings"
	"testing"
)

func TestApplyRedlineNoOpWhenTextUnchanged(t *testing.T) {
	ResetRevisionCounter()
	xml := `<w:p ` + wNS + `><w:r><w:t>Hello World</w:t></w:r></w:p>`
	res := ApplyRedlineToOxml(xml, "Hello World", "Hello World", Options{Author: "tester", GenerateRedlines: true})
	if res.HasChanges {
		t.Fatalf("expected no changes, got warnings=%v oxml=%s", res.Warnings, res.OXML)
	}
}

func TestApplyRedlinePartialBold(t *testing.T) {
	ResetRevisionCounter()
	xml := `<w:p ` + wNS + `><w:r><w:t>Hello World</w:t></w:r></w:p>`
	res := ApplyRedlineToOxml(xml, "Hello World", "Hello **World**", Options{Author: "tester", GenerateRedlines: true})
	if !res.HasChanges {
		t.Fatalf("expected a change")
	}
	if !strings.Contains(res.OXML, `w:b`) {
		t.Fatalf("expected bold run property: %s", res.OXML)
	}
	if !strings.Contains(res.OXML, "Hello ") || !strings.Contains(res.OXML, "World") {
		t.Fatalf("expected both segments of text present: %s", res.OXML)
	}
}

func TestApplyRedlineOverrideOff(t *testing.T) {
	ResetRevisionCounter()
	xml := `<w:p ` + wNS + `><w:r><w:rPr><w:b w:val="0"/></w:rPr><w:t>Hello World</w:t></w:r></w:p>`
	res := ApplyRedlineToOxml(xml, "Hello World", "**Hello World**", Options{Author: "tester", GenerateRedlines: true})
	if !res.HasChanges {
		t.Fatalf("expected a change")
	}
	// The tracked rPrChange snapshot legitimately keeps the old w:b="0";
	// only the run's current properties must show bold switched on.
	effective := res.OXML
	if i := strings.Index(effective, "<w:rPrChange"); i >= 0 {
		if j := strings.Index(effective[i:], "</w:rPrChange>"); j >= 0 {
			effective = effective[:i] + effective[i+j+len("</w:rPrChange>"):]
		}
	}
	if strings.Contains(effective, `w:b w:val="0"`) || strings.Contains(effective, `w:b w:val="false"`) {
		t.Fatalf("expected bold override to flip on: %s", res.OXML)
	}
	if !strings.Contains(effective, `w:b`) {
		t.Fatalf("expected a w:b element present: %s", res.OXML)
	}
}

func TestApplyRedlineUnboldViaPlainText(t *testing.T) {
	ResetRevisionCounter()
	xml := `<w:p ` + wNS + `><w:r><w:rPr><w:b/></w:rPr><w:t>Bold Text</w:t></w:r></w:p>`
	res := ApplyRedlineToOxml(xml, "Bold Text", "Bold Text", Options{Author: "tester", GenerateRedlines: true})
	if !res.HasChanges {
		t.Fatalf("expected a change since existing formatting is being removed")
	}
	if !strings.Contains(res.OXML, `w:b w:val="0"`) {
		t.Fatalf("expected an explicit bold-off override: %s", res.OXML)
	}
	if !strings.Contains(res.OXML, "w:rPrChange") {
		t.Fatalf("expected an rPrChange snapshot when tracking: %s", res.OXML)
	}
}

func TestApplyRedlineListExpansion(t *testing.T) {
	ResetRevisionCounter()
	xml := `<w:p ` + wNS + `><w:r><w:t>Original</w:t></w:r></w:p>`
	res := ApplyRedlineToOxml(xml, "Original", "a. One\nb. Two\nc. Three", Options{Author: "tester", GenerateRedlines: true})
	if !res.HasChanges {
		t.Fatalf("expected a change")
	}
	if !strings.Contains(res.OXML, "w:numId") {
		t.Fatalf("expected numbering reference: %s", res.OXML)
	}
	if !strings.Contains(res.OXML, "Original") {
		t.Fatalf("expected the deleted original text to still be present (tracked): %s", res.OXML)
	}
	if res.NumberingFragment == "" || !strings.Contains(res.NumberingFragment, "w:abstractNum") {
		t.Fatalf("expected a numbering fragment: %q", res.NumberingFragment)
	}
}

func TestApplyRedlineTableRowAddition(t *testing.T) {
	ResetRevisionCounter()
	xml := `<w:tbl ` + wNS + `>` +
		simpleRowXML("Name", "Date") +
		simpleRowXML("Alice", "2026-01-01") +
		`</w:tbl>`
	md := "| Name | Date |\n| --- | --- |\n| Alice | 2026-01-01 |\n| Bob | 2026-02-02 |\n"
	res := ApplyRedlineToOxml(xml, "", md, Options{Author: "tester", GenerateRedlines: true})
	if !res.HasChanges {
		t.Fatalf("expected a change, warnings=%v", res.Warnings)
	}
	if !strings.Contains(res.OXML, "Bob") || !strings.Contains(res.OXML, "w:ins") {
		t.Fatalf("expected inserted row tracked: %s", res.OXML)
	}
}

func TestApplyRedlineTrackingOffProducesNoWrappers(t *testing.T) {
	ResetRevisionCounter()
	xml := `<w:p ` + wNS + `><w:r><w:t>Hello World</w:t></w:r></w:p>`
	res := ApplyRedlineToOxml(xml, "Hello World", "Hello there", Options{Author: "tester", GenerateRedlines: false})
	if !res.HasChanges {
		t.Fatalf("expected a change")
	}
	if strings.Contains(res.OXML, "w:ins") || strings.Contains(res.OXML, "w:del") {
		t.Fatalf("expected no tracked-change wrappers with tracking off: %s", res.OXML)
	}
}

func TestApplyRedlineToOxmlWithListFallbackForcesListWhenUnchanged(t *testing.T) {
	ResetRevisionCounter()
	text := "1. Item one\n2. Item two"
	xml := `<w:p ` + wNS + `><w:r><w:t>` + text + `</w:t></w:r></w:p>`
	res := ApplyRedlineToOxmlWithListFallback(xml, text, text, Options{Author: "tester", GenerateRedlines: true})
	if !res.HasChanges {
		t.Fatalf("expected the fallback to force a list conversion")
	}
	if !strings.Contains(res.OXML, "w:numId") {
		t.Fatalf("expected numbering reference: %s", res.OXML)
	}
}

func TestApplyRedlineSurgicalInTableCellViaTargetParagraphID(t *testing.T) {
	ResetRevisionCounter()
	xml := `<w:tbl ` + wNS + ` xmlns:w14="http://schemas.microsoft.com/office/word/2010/wordml">` +
		`<w:tr><w:tc><w:p w14:paraId="AAAAAAAA"><w:r><w:t>By: [Name]</w:t></w:r></w:p></w:tc>` +
		`<w:tc><w:p><w:r><w:t>By: [Name]</w:t></w:r></w:p></w:tc></w:tr>` +
		`<w:tr><w:tc><w:p w14:paraId="BBBBBBBB"><w:r><w:t>By: [Name]</w:t></w:r></w:p></w:tc>` +
		`<w:tc><w:p><w:r><w:t>By: [Name]</w:t></w:r></w:p></w:tc></w:tr>` +
		`</w:tbl>`
	res := ApplyRedlineToOxml(xml, "By: [Name]", "By: [Jane]", Options{
		Author: "tester", GenerateRedlines: true, TargetParagraphID: "BBBBBBBB",
	})
	if !res.HasChanges {
		t.Fatalf("expected a change, warnings=%v", res.Warnings)
	}
	if !strings.Contains(res.OXML, "Jane") {
		t.Fatalf("expected the targeted cell to be edited: %s", res.OXML)
	}
}
