package redline

import (
	"sort"
	"strconv"

	"github.com/beevik/etree"

	"github.com/vortex/docx-redline/internal/ooxml"
)

// createTrackChange wraps run (a detached w:r) in a w:ins or w:del carrying
// full revision metadata (spec.md §4.6, §6 "wire invariants").
func createTrackChange(kind string, run *etree.Element, rev Revision) *etree.Element {
	wrapper := ooxml.New("w:" + kind)
	ooxml.SetAttr(wrapper, "w:id", strconv.Itoa(rev.ID))
	ooxml.SetAttr(wrapper, "w:author", rev.Author)
	ooxml.SetAttr(wrapper, "w:date", rev.Date)
	if run != nil {
		wrapper.AddChild(run)
	}
	return wrapper
}

// createTextRun builds a detached <w:r>[rPr-clone]<w:t|w:delText>text</>.
// rPr may be nil. isDelete selects w:delText over w:t (spec.md §4.6).
func createTextRun(text string, rPr *etree.Element, isDelete bool) *etree.Element {
	run := ooxml.New("w:r")
	if rPr != nil {
		run.AddChild(rPr.Copy())
	}
	tag := "w:t"
	if isDelete {
		tag = "w:delText"
	}
	t := ooxml.New(tag)
	ooxml.SetPreservedText(t, text)
	run.AddChild(t)
	return run
}

// boundarySet collects hint start/end offsets plus the segment's own
// [from, to) edges, sorted ascending and deduplicated, clamped to range.
func boundarySet(from, to int, hints []FormatHint) []int {
	set := map[int]struct{}{from: {}, to: {}}
	for _, h := range hints {
		if h.Start > from && h.Start < to {
			set[h.Start] = struct{}{}
		}
		if h.End > from && h.End < to {
			set[h.End] = struct{}{}
		}
	}
	out := make([]int, 0, len(set))
	for b := range set {
		out = append(out, b)
	}
	sort.Ints(out)
	return out
}

// formatAt merges every hint overlapping [start, end) — "later flags
// override earlier" per spec.md §4.6.
func formatAt(start, end int, hints []FormatHint) Format {
	var f Format
	for _, h := range hints {
		if h.Overlaps(start, end) {
			f = f.Merge(h.Format)
		}
	}
	return f
}

// createFormattedRuns splits text (whose first character sits at
// baseOffset in the hint coordinate space) at every hint boundary
// intersecting its range, and emits one run per segment with a rPr
// synchronized to that segment's merged format (spec.md §4.6).
//
// When generateRedlines and author are set, each run is wrapped in w:ins.
func createFormattedRuns(text string, baseRPr *etree.Element, hints []FormatHint, baseOffset int, rev Revision, generateRedlines bool) []*etree.Element {
	if text == "" {
		return nil
	}
	bounds := boundarySet(baseOffset, baseOffset+len(text), hints)

	var out []*etree.Element
	for i := 0; i+1 < len(bounds); i++ {
		segStart, segEnd := bounds[i], bounds[i+1]
		if segStart >= segEnd {
			continue
		}
		segText := text[segStart-baseOffset : segEnd-baseOffset]
		format := formatAt(segStart, segEnd, hints)

		rPr := injectFormattingToRPr(baseRPr, format, rev, false)
		run := createTextRun(segText, rPr, false)
		if generateRedlines && rev.Author != "" {
			run = createTrackChange("ins", run, rev)
		}
		out = append(out, run)
	}
	return out
}

// injectFormattingToRPr returns a *new* w:rPr with base's children copied
// except the four managed formatting children and any prior w:rPrChange,
// then (if tracking) an rPrChange snapshot of base, then the managed
// formatting children written with explicit on/off values (spec.md §4.6).
//
// The rPrChange snapshot is added only when trackOverride is true and
// rev.Author is non-empty. Every flag in format is written explicitly, on
// or off, so overrides are always unambiguous to downstream readers;
// applyFormatToRPr is the variant that writes only a chosen subset of flags.
func injectFormattingToRPr(baseRPr *etree.Element, format Format, rev Revision, trackOverride bool) *etree.Element {
	newRPr := ooxml.New("w:rPr")
	managed := map[string]bool{
		"b": true, "bCs": true, "i": true, "iCs": true,
		"u": true, "strike": true, "rPrChange": true,
	}
	if baseRPr != nil {
		for _, child := range baseRPr.ChildElements() {
			if child.Space == "w" && managed[child.Tag] {
				continue
			}
			newRPr.AddChild(child.Copy())
		}
	}

	if trackOverride && rev.Author != "" {
		snapshotAndAttachRPrChange(newRPr, baseRPr, rev)
	}

	// Every managed flag is written explicitly (on or off) so downstream
	// readers never have to infer intent from absence (spec.md §4.6 (iii)).
	writeAllFlagsExplicit(newRPr, format)

	return newRPr
}
