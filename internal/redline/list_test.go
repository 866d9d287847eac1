package redline

import (
	"strings"
	"testing"
)

func TestIsListTargetRecognizesMarkers(t *testing.T) {
	cases := []struct {
		name string
		text string
		want bool
	}{
		{"decimal", "First line\n1. Item one\n2. Item two", true},
		{"bullet", "Heading\n- alpha\n- beta", true},
		{"letter", "Title\na. one\nb. two", true},
		{"no newline", "1. Item one", false},
		{"no marker", "First line\nSecond line\nThird line", false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := IsListTarget(c.text); got != c.want {
				t.Fatalf("IsListTarget(%q) = %v, want %v", c.text, got, c.want)
			}
		})
	}
}

func TestDetectListMarkerKinds(t *testing.T) {
	cases := []struct {
		line string
		kind listMarkerKind
		rest string
	}{
		{"1. First item", markerDecimal, "First item"},
		{"1.2.3. Nested item", markerDecimal, "Nested item"},
		{"- dash item", markerBullet, "dash item"},
		{"* star item", markerBullet, "star item"},
		{"(a) paren letter", markerParen, "paren letter"},
		{"(2) paren number", markerParen, "paren number"},
		{"a. letter item", markerLetter, "letter item"},
		{"iv. roman item", markerRoman, "roman item"},
	}
	for _, c := range cases {
		t.Run(c.line, func(t *testing.T) {
			ll, ok := detectListMarker(c.line)
			if !ok {
				t.Fatalf("detectListMarker(%q) failed to match", c.line)
			}
			if ll.kind != c.kind {
				t.Fatalf("kind = %v, want %v", ll.kind, c.kind)
			}
			if ll.rest != c.rest {
				t.Fatalf("rest = %q, want %q", ll.rest, c.rest)
			}
		})
	}
}

func TestDetectListMarkerRejectsPlainText(t *testing.T) {
	cases := []string{
		"Just a sentence.",
		"3.14 is not a list marker",
		"(unbalanced paren",
	}
	for _, line := range cases {
		if _, ok := detectListMarker(line); ok {
			t.Fatalf("detectListMarker(%q) unexpectedly matched", line)
		}
	}
}

func TestDetectIndentStepDefaultsAndDetects(t *testing.T) {
	flat := []listLine{{kind: markerDecimal, indentWidth: 0}, {kind: markerDecimal, indentWidth: 0}}
	if step := detectIndentStep(flat); step != 2 {
		t.Fatalf("flat step = %d, want default 2", step)
	}

	nested := []listLine{
		{kind: markerDecimal, indentWidth: 0},
		{kind: markerBullet, indentWidth: 4},
		{kind: markerBullet, indentWidth: 8},
	}
	if step := detectIndentStep(nested); step != 4 {
		t.Fatalf("nested step = %d, want 4", step)
	}
}

func TestNumberingServiceReusesAndAllocates(t *testing.T) {
	svc := NewNumberingService(100)
	a := svc.Resolve(markerDecimal)
	b := svc.Resolve(markerDecimal)
	if a != b {
		t.Fatalf("expected reuse for the same kind, got %d then %d", a, b)
	}
	c := svc.Resolve(markerBullet)
	if c == a {
		t.Fatalf("expected a distinct numId for a different kind")
	}
	frag := svc.Fragment()
	if !strings.Contains(frag, "w:abstractNum") || !strings.Contains(frag, "w:num") {
		t.Fatalf("expected numbering fragment to carry abstractNum/num: %s", frag)
	}
}

func TestGenerateListBasic(t *testing.T) {
	rev := Revision{ID: 1000, Author: "tester", Date: "2026-01-01T00:00:00Z"}
	svc := NewNumberingService(1)

	paras := GenerateList(nil, "1. First item\n2. Second item", rev, true, "", svc)
	if len(paras) != 3 {
		t.Fatalf("expected 3 paragraphs (2 items + trailing empty), got %d", len(paras))
	}
	for i, p := range paras[:2] {
		if p.FindElement("w:pPr/w:numPr/w:numId") == nil {
			t.Fatalf("paragraph %d missing w:numId", i)
		}
	}
	if paras[2].ChildElements() != nil && len(paras[2].ChildElements()) != 0 {
		t.Fatalf("expected trailing paragraph to be empty")
	}
}

func TestGenerateListNoMarkersReturnsNil(t *testing.T) {
	rev := Revision{ID: 1000, Author: "tester", Date: "2026-01-01T00:00:00Z"}
	svc := NewNumberingService(1)
	if out := GenerateList(nil, "", rev, true, "", svc); out != nil {
		t.Fatalf("expected nil for empty input, got %v", out)
	}
}
