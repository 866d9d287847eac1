package redline

import (
	"strings"
	"testing"

	"github.com/beevik/etree"

	"github.com/vortex/docx-redline/internal/ooxml"
)

func mustParseParagraph(t *testing.T, xml string) *etree.Element {
	t.Helper()
	root, form, err := ooxml.Parse(xml)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if form != ooxml.FormParagraph {
		t.Fatalf("expected paragraph form, got %v", form)
	}
	return root
}

func TestApplyFormatAdditionsSurgical(t *testing.T) {
	p := mustParseParagraph(t, `<w:p xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:r><w:t>Hello World</w:t></w:r></w:p>`)
	spans, text := CollectSpans([]*etree.Element{p}, nil)
	if text != "Hello World" {
		t.Fatalf("text = %q", text)
	}
	hints := []FormatHint{{Start: 6, End: 11, Format: Format{Bold: true}}}
	spans = splitSpansAtBoundaries(spans, []int{6, 11})

	rev := Revision{ID: 1000, Author: "tester", Date: "2026-01-01T00:00:00Z"}
	applyFormatAdditionsAsSurgicalReplacement(spans, hints, rev, true)

	out, err := ooxml.Serialize(p)
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	if !strings.Contains(out, `w:val="1"`) {
		t.Fatalf("expected a bold override in output: %s", out)
	}
	if !strings.Contains(out, "World") || !strings.Contains(out, "Hello") {
		t.Fatalf("expected text preserved: %s", out)
	}
}

func TestFindTargetParagraphInfoExactAndTrimmed(t *testing.T) {
	infos := []ParagraphInfo{
		{Text: "First paragraph", Normalized: "First paragraph"},
		{Text: "  Second paragraph  ", Normalized: "  Second paragraph  "},
	}
	if _, _, ok := findTargetParagraphInfo(infos, "First paragraph"); !ok {
		t.Fatalf("expected exact match")
	}
	if _, _, ok := findTargetParagraphInfo(infos, "Second paragraph"); !ok {
		t.Fatalf("expected trimmed match")
	}
	if _, _, ok := findTargetParagraphInfo(infos, "nonexistent"); ok {
		t.Fatalf("expected no match")
	}
}

func TestFindTargetParagraphInfoSubstringFallback(t *testing.T) {
	infos := []ParagraphInfo{
		{Text: "alpha", Normalized: "alpha"},
		{Text: "beta gamma delta", Normalized: "beta gamma delta"},
	}
	p, offset, ok := findTargetParagraphInfo(infos, "gamma")
	if !ok {
		t.Fatalf("expected substring match")
	}
	if p.Text != "beta gamma delta" {
		t.Fatalf("matched wrong paragraph: %+v", p)
	}
	if offset != 5 {
		t.Fatalf("offset = %d, want 5", offset)
	}
}
