package redline

import (
	"strings"

	"github.com/beevik/etree"

	"github.com/vortex/docx-redline/internal/ooxml"
)

// ApplySurgical implements the in-place reconciliation mode (C8): every
// edit is expressed as a minimal split/replace against the existing
// tree rather than rebuilding a paragraph from scratch. The router uses it
// when the scope contains a table, and table reconciliation uses it for
// edited cells (spec.md §4.8). When the text is unchanged, only the
// hints' formatting is applied.
//
// Returns whether any change was made.
func ApplySurgical(paragraphs []*etree.Element, container *etree.Element, modifiedText string, hints []FormatHint, rev Revision, generateRedlines bool) bool {
	spans, origText := CollectSpans(paragraphs, container)
	ops := DiffText(origText, modifiedText)
	if !HasChanges(ops) {
		if len(hints) == 0 {
			return false
		}
		split := splitSpansAtBoundaries(spans, boundarySet(0, len(origText), hints))
		applyFormatAdditionsAsSurgicalReplacement(split, hints, rev, generateRedlines)
		return true
	}

	spans = splitSpansAtBoundaries(spans, boundariesFromOps(ops))
	idx := newSpanIndex(spans)

	originalPos, newPos := 0, 0
	for _, op := range ops {
		switch op.Op {
		case 0:
			reconcileEqualFormatting(spans, originalPos, originalPos+len(op.Text), newPos-originalPos, hints, rev, generateRedlines)
			originalPos += len(op.Text)
			newPos += len(op.Text)
		case -1:
			applyDeleteRange(spans, originalPos, originalPos+len(op.Text), rev, generateRedlines)
			originalPos += len(op.Text)
		case +1:
			insertAtPosition(idx, spans, paragraphs, originalPos, op.Text, hints, newPos, rev, generateRedlines)
			newPos += len(op.Text)
		}
	}
	return true
}

// boundariesFromOps returns every original-text position at which an
// equal or delete op starts or ends, the full boundary set spans must
// be pre-split at before the walk begins.
func boundariesFromOps(ops []DiffOp) []int {
	var bounds []int
	pos := 0
	for _, op := range ops {
		switch op.Op {
		case 0, -1:
			bounds = append(bounds, pos, pos+len(op.Text))
			pos += len(op.Text)
		}
	}
	return bounds
}

// spansInRange returns every span fully contained in [start, end); the
// upfront boundary split guarantees no span partially overlaps a range
// derived from the same op list.
func spansInRange(spans []TextSpan, start, end int) []TextSpan {
	var out []TextSpan
	for _, s := range spans {
		if s.CharStart >= start && s.CharEnd <= end {
			out = append(out, s)
		}
	}
	return out
}

// reconcileEqualFormatting synchronizes each span's rPr to whatever the
// hints say about the corresponding window in modified-text coordinates
// (spec.md §4.8 "equal(len)").
func reconcileEqualFormatting(spans []TextSpan, start, end, delta int, hints []FormatHint, rev Revision, generateRedlines bool) {
	for _, s := range spansInRange(spans, start, end) {
		target := formatAt(s.CharStart+delta, s.CharEnd+delta, hints)
		current := extractFormatFromRPr(s.RPr)
		if target.Equal(current) {
			continue
		}
		syncSpanRPr(s, target, rev, generateRedlines)
	}
}

// applyDeleteRange converts the text content of every span contained in
// [start, end) to a deletion: retagged as w:delText and, when tracking,
// wrapped in a single w:del per originating run. With tracking off the
// run is removed outright (spec.md §4.8 "delete(text)").
func applyDeleteRange(spans []TextSpan, start, end int, rev Revision, generateRedlines bool) {
	wrapped := map[*etree.Element]*etree.Element{}
	removed := map[*etree.Element]bool{}

	for _, s := range spansInRange(spans, start, end) {
		if removed[s.Run] {
			continue
		}
		if !generateRedlines {
			if parent := s.Run.Parent(); parent != nil {
				parent.RemoveChild(s.Run)
			}
			removed[s.Run] = true
			continue
		}

		s.TextElem.Tag = "delText"
		if _, already := wrapped[s.Run]; !already {
			parent := s.Run.Parent()
			if parent == nil {
				continue
			}
			w := createTrackChange("del", nil, rev)
			ooxml.ReplaceChild(parent, s.Run, w)
			w.AddChild(s.Run)
			wrapped[s.Run] = w
		}
	}
}

// insertAtPosition emits text (embedded newlines flattened to spaces, as
// surgical mode never introduces paragraphs) as one or more hint-
// formatted runs anchored next to the span at pos, per the fallback
// chain in spec.md §4.8 "insert(text)".
func insertAtPosition(idx *spanIndex, spans []TextSpan, paragraphs []*etree.Element, pos int, text string, hints []FormatHint, newPos int, rev Revision, generateRedlines bool) {
	text = strings.ReplaceAll(text, "\n", " ")
	if text == "" {
		return
	}

	if len(spans) == 0 {
		if len(paragraphs) == 0 {
			return
		}
		target := paragraphs[len(paragraphs)-1]
		for _, r := range createFormattedRuns(text, nil, hints, newPos, rev, generateRedlines) {
			target.AddChild(r)
		}
		return
	}

	i := idx.At(pos)
	if i < 0 {
		i = idx.EndingAt(pos)
	}
	if i < 0 {
		i = idx.LastBefore(pos)
	}
	if i < 0 {
		i = len(spans) - 1
	}
	target := spans[i]
	parent := target.Run.Parent()
	if parent == nil {
		return
	}

	runs := createFormattedRuns(text, target.RPr, hints, newPos, rev, generateRedlines)
	before := pos == target.CharStart
	anchor := target.Run
	for _, r := range runs {
		if before {
			ooxml.InsertBefore(parent, anchor, r)
		} else {
			ooxml.InsertAfter(parent, anchor, r)
			anchor = r
		}
	}
}
