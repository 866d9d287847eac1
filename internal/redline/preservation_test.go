package redline

import (
	"strings"
	"testing"

	"github.com/vortex/docx-redline/internal/ooxml"
)

// These cover Testable Property #5 (spec.md §8): every drawing, footnote/
// endnote reference, and comment marker present in the input appears
// exactly once in the output of reconstruction mode.

func TestApplyReconstructionPreservesDrawing(t *testing.T) {
	body := mustParseBody(t, `<w:body `+wNS+`><w:p><w:r><w:t>Before</w:t></w:r>`+
		`<w:r><w:drawing><wp:inline xmlns:wp="x"><a:graphic xmlns:a="y"/></wp:inline></w:drawing></w:r>`+
		`<w:r><w:t>After</w:t></w:r></w:p></w:body>`)
	rev := Revision{ID: 1000, Author: "tester", Date: "2026-01-01T00:00:00Z"}
	parent := body[0].Parent()

	changed := ApplyReconstruction(body, parent, "Before￼After there", nil, rev, true)
	if !changed {
		t.Fatalf("expected a change")
	}
	out, err := ooxml.Serialize(parent)
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	if strings.Count(out, "<w:drawing") != 1 {
		t.Fatalf("expected exactly one surviving w:drawing: %s", out)
	}
}

func TestApplyReconstructionPreservesFootnoteReference(t *testing.T) {
	body := mustParseBody(t, `<w:body `+wNS+`><w:p><w:r><w:t>See</w:t></w:r>`+
		`<w:r><w:footnoteReference w:id="3"/></w:r></w:p></w:body>`)
	rev := Revision{ID: 1000, Author: "tester", Date: "2026-01-01T00:00:00Z"}
	parent := body[0].Parent()

	changed := ApplyReconstruction(body, parent, "See{{__FN_3__}} also", nil, rev, true)
	if !changed {
		t.Fatalf("expected a change")
	}
	out, err := ooxml.Serialize(parent)
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	if strings.Count(out, "<w:footnoteReference") != 1 {
		t.Fatalf("expected exactly one surviving w:footnoteReference: %s", out)
	}
	if !strings.Contains(out, `w:id="3"`) {
		t.Fatalf("expected original footnote id preserved: %s", out)
	}
}

func TestApplyReconstructionDropsOrphanReferenceToken(t *testing.T) {
	body := mustParseBody(t, `<w:body `+wNS+`><w:p><w:r><w:t>See</w:t></w:r>`+
		`<w:r><w:footnoteReference w:id="3"/></w:r></w:p></w:body>`)
	rev := Revision{ID: 1000, Author: "tester", Date: "2026-01-01T00:00:00Z"}
	parent := body[0].Parent()

	// {{__FN_9__}} has no matching footnoteReference in the original: it's
	// a SentinelOrphan (spec.md §7) and must be dropped, not surface as
	// literal token text, while the original reference (id 3), kept in the
	// modified text as {{__FN_3__}}, must still appear exactly once.
	changed := ApplyReconstruction(body, parent, "See{{__FN_3__}}{{__FN_9__}} also", nil, rev, true)
	if !changed {
		t.Fatalf("expected a change")
	}
	out, err := ooxml.Serialize(parent)
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	if strings.Contains(out, "__FN_9__") {
		t.Fatalf("orphan reference token should not survive literally: %s", out)
	}
	if strings.Count(out, "<w:footnoteReference") != 1 {
		t.Fatalf("expected exactly one surviving w:footnoteReference: %s", out)
	}
}

func TestApplyReconstructionPreservesCommentMarkers(t *testing.T) {
	body := mustParseBody(t, `<w:body `+wNS+`><w:p>`+
		`<w:commentRangeStart w:id="1"/>`+
		`<w:r><w:t>flagged text</w:t></w:r>`+
		`<w:commentRangeEnd w:id="1"/><w:r><w:commentReference w:id="1"/></w:r>`+
		`</w:p></w:body>`)
	rev := Revision{ID: 1000, Author: "tester", Date: "2026-01-01T00:00:00Z"}
	parent := body[0].Parent()

	changed := ApplyReconstruction(body, parent, "flagged text indeed", nil, rev, true)
	if !changed {
		t.Fatalf("expected a change")
	}
	out, err := ooxml.Serialize(parent)
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	for _, tag := range []string{"commentRangeStart", "commentRangeEnd", "commentReference"} {
		if strings.Count(out, "<w:"+tag) != 1 {
			t.Fatalf("expected exactly one surviving w:%s: %s", tag, out)
		}
	}
}
