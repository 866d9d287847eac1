package redline

import (
	"strings"
	"testing"

	"github.com/beevik/etree"

	"github.com/vortex/docx-redline/internal/ooxml"
)

const wNS = `xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"`

func TestApplySurgicalPartialBold(t *testing.T) {
	p := mustParseParagraph(t, `<w:p `+wNS+`><w:r><w:t>Hello World</w:t></w:r></w:p>`)
	clean, hints := PreprocessMarkdown("Hello **World**")
	rev := Revision{ID: 1000, Author: "tester", Date: "2026-01-01T00:00:00Z"}

	changed := ApplySurgical([]*etree.Element{p}, nil, clean, hints, rev, true)
	if !changed {
		t.Fatalf("expected a change")
	}

	out, err := ooxml.Serialize(p)
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	if !strings.Contains(out, "Hello") || !strings.Contains(out, "World") {
		t.Fatalf("text lost: %s", out)
	}
	if !strings.Contains(out, `w:val="1"`) {
		t.Fatalf("expected bold override: %s", out)
	}
}

func TestApplySurgicalDeleteWithTracking(t *testing.T) {
	p := mustParseParagraph(t, `<w:p `+wNS+`><w:r><w:t>Hello cruel World</w:t></w:r></w:p>`)
	rev := Revision{ID: 1000, Author: "tester", Date: "2026-01-01T00:00:00Z"}

	changed := ApplySurgical([]*etree.Element{p}, nil, "Hello World", nil, rev, true)
	if !changed {
		t.Fatalf("expected a change")
	}
	out, err := ooxml.Serialize(p)
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	if !strings.Contains(out, "w:del") {
		t.Fatalf("expected a w:del wrapper: %s", out)
	}
	if !strings.Contains(out, "delText") {
		t.Fatalf("expected delText: %s", out)
	}
}

func TestApplySurgicalDeleteWithoutTracking(t *testing.T) {
	p := mustParseParagraph(t, `<w:p `+wNS+`><w:r><w:t>Hello cruel World</w:t></w:r></w:p>`)
	rev := Revision{ID: 1000, Author: "tester", Date: "2026-01-01T00:00:00Z"}

	changed := ApplySurgical([]*etree.Element{p}, nil, "Hello World", nil, rev, false)
	if !changed {
		t.Fatalf("expected a change")
	}
	out, err := ooxml.Serialize(p)
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	if strings.Contains(out, "w:del") || strings.Contains(out, "w:ins") {
		t.Fatalf("tracking disabled must not emit wrappers: %s", out)
	}
	if strings.Contains(out, "cruel") {
		t.Fatalf("deleted text should be gone when not tracking: %s", out)
	}
}

func TestApplySurgicalInsert(t *testing.T) {
	p := mustParseParagraph(t, `<w:p `+wNS+`><w:r><w:t>Hello World</w:t></w:r></w:p>`)
	rev := Revision{ID: 1000, Author: "tester", Date: "2026-01-01T00:00:00Z"}

	changed := ApplySurgical([]*etree.Element{p}, nil, "Hello Big World", nil, rev, true)
	if !changed {
		t.Fatalf("expected a change")
	}
	out, err := ooxml.Serialize(p)
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	if !strings.Contains(out, "Big") {
		t.Fatalf("expected inserted text: %s", out)
	}
	if !strings.Contains(out, "w:ins") {
		t.Fatalf("expected w:ins wrapper: %s", out)
	}
}

func TestApplySurgicalNoChange(t *testing.T) {
	p := mustParseParagraph(t, `<w:p `+wNS+`><w:r><w:t>Hello World</w:t></w:r></w:p>`)
	rev := Revision{ID: 1000, Author: "tester", Date: "2026-01-01T00:00:00Z"}
	if ApplySurgical([]*etree.Element{p}, nil, "Hello World", nil, rev, true) {
		t.Fatalf("expected no change")
	}
}
