package redline

import (
	"github.com/beevik/etree"

	"github.com/vortex/docx-redline/internal/ooxml"
)

// textLikeTags are the run children that each produce exactly one TextSpan
// (spec.md §3 TextSpan invariant).
var textLikeTags = map[string]bool{
	"t": true, "br": true, "cr": true, "tab": true, "noBreakHyphen": true,
}

func textEquivalent(tag string, el *etree.Element) string {
	switch tag {
	case "t":
		return el.Text()
	case "tab":
		return "\t"
	case "br", "cr":
		return "\n"
	case "noBreakHyphen":
		return "\u2011"
	}
	return ""
}

// CollectSpans walks paragraphs (in document order, already filtered to
// the caller's scope) and returns the disjoint, charStart-sorted TextSpan
// list plus the concatenated text, honoring the paragraph boundary policy.
// container is the nearest structural ancestor shared by all paragraphs
// (a w:body or w:tc); it's recorded on every span (spec.md §3/§4.8).
func CollectSpans(paragraphs []*etree.Element, container *etree.Element) ([]TextSpan, string) {
	var spans []TextSpan
	pos := 0
	text := make([]byte, 0, 256)

	for i, p := range paragraphs {
		for _, run := range ooxml.Children(p, "w:r") {
			rPr := ooxml.FirstChild(run, "w:rPr")
			for _, child := range run.ChildElements() {
				if child.Space != "w" || !textLikeTags[child.Tag] {
					continue
				}
				t := textEquivalent(child.Tag, child)
				spans = append(spans, TextSpan{
					CharStart: pos, CharEnd: pos + len(t),
					TextElem: child, Run: run, Paragraph: p,
					Container: container, RPr: rPr,
				})
				text = append(text, t...)
				pos += len(t)
			}
		}
		for _, hyperlink := range ooxml.Children(p, "w:hyperlink") {
			for _, run := range ooxml.Children(hyperlink, "w:r") {
				rPr := ooxml.FirstChild(run, "w:rPr")
				for _, child := range run.ChildElements() {
					if child.Space != "w" || !textLikeTags[child.Tag] {
						continue
					}
					t := textEquivalent(child.Tag, child)
					spans = append(spans, TextSpan{
						CharStart: pos, CharEnd: pos + len(t),
						TextElem: child, Run: run, Paragraph: p,
						Container: container, RPr: rPr,
					})
					text = append(text, t...)
					pos += len(t)
				}
			}
		}
		if i != len(paragraphs)-1 {
			text = append(text, '\n')
			pos++
		}
	}
	return spans, string(text)
}

// spanIndex supports O(log n) lookup of the span(s) overlapping a
// character position, via binary search on precomputed sorted start/end
// arrays (spec.md §4.8).
type spanIndex struct {
	spans  []TextSpan
	starts []int
	ends   []int
}

func newSpanIndex(spans []TextSpan) *spanIndex {
	idx := &spanIndex{spans: spans, starts: make([]int, len(spans)), ends: make([]int, len(spans))}
	for i, s := range spans {
		idx.starts[i] = s.CharStart
		idx.ends[i] = s.CharEnd
	}
	return idx
}

// At returns the index of the span containing pos ([CharStart, CharEnd)),
// or -1 if none does.
func (idx *spanIndex) At(pos int) int {
	lo, hi := 0, len(idx.spans)
	for lo < hi {
		mid := (lo + hi) / 2
		if idx.starts[mid] <= pos {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	i := lo - 1
	if i >= 0 && idx.spans[i].CharStart <= pos && pos < idx.spans[i].CharEnd {
		return i
	}
	return -1
}

// EndingAt returns the index of a span whose CharEnd == pos, or -1.
func (idx *spanIndex) EndingAt(pos int) int {
	for i, e := range idx.ends {
		if e == pos {
			return i
		}
	}
	return -1
}

// LastBefore returns the index of the last span with CharStart < pos, or
// -1 if none.
func (idx *spanIndex) LastBefore(pos int) int {
	best := -1
	for i, s := range idx.starts {
		if s < pos {
			best = i
		} else {
			break
		}
	}
	return best
}

// splitSpansAtBoundaries iteratively splits any span straddling a boundary
// (strictly inside it, not on an edge) until none do, returning the new
// span slice in CharStart order (spec.md §4.7).
//
// Splitting a span clones its run into two new runs (same w:rPr), each
// holding one half in a new <w:t>, replacing the original run in the tree.
func splitSpansAtBoundaries(spans []TextSpan, boundaries []int) []TextSpan {
	bset := make(map[int]bool, len(boundaries))
	for _, b := range boundaries {
		bset[b] = true
	}

	out := make([]TextSpan, 0, len(spans))
	for _, s := range spans {
		cut := -1
		for b := range bset {
			if b > s.CharStart && b < s.CharEnd {
				cut = b
				break
			}
		}
		if cut < 0 || s.TextElem.Tag != "t" {
			// Only w:t spans are split. tab/br/cr are one byte long and
			// cannot straddle a boundary; a noBreakHyphen (three bytes) is
			// kept whole.
			out = append(out, s)
			continue
		}

		left, right := splitTextSpan(s, cut)
		// Recurse: either half might straddle another boundary.
		out = append(out, splitSpansAtBoundaries([]TextSpan{left}, boundaries)...)
		out = append(out, splitSpansAtBoundaries([]TextSpan{right}, boundaries)...)
	}
	return out
}

// splitTextSpan splits a single w:t-backed span at the absolute offset
// cut, producing two sibling <w:t> runs (same rPr) in place of the
// original, and returns the two new TextSpan values.
func splitTextSpan(s TextSpan, cut int) (TextSpan, TextSpan) {
	full := s.TextElem.Text()
	offset := cut - s.CharStart
	leftText, rightText := full[:offset], full[offset:]

	leftRun := s.Run.Copy()
	rightRun := s.Run.Copy()
	clearTextChildren(leftRun)
	clearTextChildren(rightRun)

	leftT := ooxml.New("w:t")
	ooxml.SetPreservedText(leftT, leftText)
	leftRun.AddChild(leftT)

	rightT := ooxml.New("w:t")
	ooxml.SetPreservedText(rightT, rightText)
	rightRun.AddChild(rightT)

	parent := s.Run.Parent()
	ooxml.InsertAfter(parent, s.Run, rightRun)
	ooxml.InsertAfter(parent, s.Run, leftRun)
	parent.RemoveChild(s.Run)

	leftRPr := ooxml.FirstChild(leftRun, "w:rPr")
	rightRPr := ooxml.FirstChild(rightRun, "w:rPr")

	left := TextSpan{
		CharStart: s.CharStart, CharEnd: cut,
		TextElem: leftT, Run: leftRun, Paragraph: s.Paragraph,
		Container: s.Container, RPr: leftRPr,
	}
	right := TextSpan{
		CharStart: cut, CharEnd: s.CharEnd,
		TextElem: rightT, Run: rightRun, Paragraph: s.Paragraph,
		Container: s.Container, RPr: rightRPr,
	}
	return left, right
}

// clearTextChildren removes every non-rPr child from a cloned run, so the
// clone can be reused as the shell for a single new <w:t>.
func clearTextChildren(run *etree.Element) {
	var toRemove []*etree.Element
	for _, c := range run.ChildElements() {
		if !(c.Space == "w" && c.Tag == "rPr") {
			toRemove = append(toRemove, c)
		}
	}
	for _, c := range toRemove {
		run.RemoveChild(c)
	}
}
