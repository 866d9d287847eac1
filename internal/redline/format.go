package redline

import "github.com/vortex/docx-redline/internal/ooxml"

// applyFormatAdditionsAsSurgicalReplacement applies hints onto spans
// in place, synchronizing each affected span's w:rPr only when its
// merged intrinsic formatting actually differs (spec.md §4.7).
//
// spans must already be split at every hint boundary (see
// splitSpansAtBoundaries); this function does not split further.
func applyFormatAdditionsAsSurgicalReplacement(spans []TextSpan, hints []FormatHint, rev Revision, generateRedlines bool) {
	if len(hints) == 0 {
		return
	}
	for _, s := range spans {
		applicable := formatAt(s.CharStart, s.CharEnd, hints)
		if !applicable.Any() {
			continue
		}
		current := extractFormatFromRPr(s.RPr)
		merged := current.Merge(applicable)
		if merged.Equal(current) {
			continue
		}
		syncSpanRPr(s, merged, rev, generateRedlines)
	}
}

// applyFormatRemovalAsSurgicalReplacement writes explicit "off" overrides
// for whatever formatting flags are currently set on each span's run,
// snapshotting the prior state when tracking (spec.md §4.7).
func applyFormatRemovalAsSurgicalReplacement(spans []TextSpan, rev Revision, generateRedlines bool) {
	for _, s := range spans {
		current := extractFormatFromRPr(s.RPr)
		if !current.Any() {
			continue
		}
		syncSpanRPr(s, Format{}, rev, generateRedlines)
	}
}

// syncSpanRPr replaces s.Run's w:rPr with a fresh one carrying target's
// flags explicitly, optionally snapshotting the old rPr into an
// rPrChange first.
func syncSpanRPr(s TextSpan, target Format, rev Revision, generateRedlines bool) {
	newRPr := injectFormattingToRPr(s.RPr, target, rev, generateRedlines)
	if s.RPr != nil {
		ooxml.ReplaceChild(s.Run, s.RPr, newRPr)
	} else if first := s.Run.ChildElements(); len(first) > 0 {
		ooxml.InsertAt(s.Run, newRPr, 0)
	} else {
		s.Run.AddChild(newRPr)
	}
}

// findTargetParagraphInfo selects the ParagraphInfo whose text matches
// originalText, trying exact, then trimmed, then substring equality in
// that order (spec.md §4.7). Returns ok=false if none matches.
func findTargetParagraphInfo(paragraphs []ParagraphInfo, originalText string) (ParagraphInfo, int, bool) {
	normTarget := normalizeForCompare(originalText)

	for _, p := range paragraphs {
		if p.Normalized == normTarget {
			return p, 0, true
		}
	}

	trimTarget := trimSpaceStr(normTarget)
	for _, p := range paragraphs {
		if trimSpaceStr(p.Normalized) == trimTarget {
			return p, 0, true
		}
	}

	joined := ""
	offsets := make([]int, len(paragraphs))
	for i, p := range paragraphs {
		offsets[i] = len(joined)
		joined += p.Normalized
		if i != len(paragraphs)-1 {
			joined += "\n"
		}
	}
	if idx := indexOf(joined, normTarget); idx >= 0 {
		for i := len(paragraphs) - 1; i >= 0; i-- {
			if offsets[i] <= idx {
				return paragraphs[i], idx - offsets[i], true
			}
		}
	}

	return ParagraphInfo{}, 0, false
}

// normalizeForCompare applies the comparison normalization spec.md §4.7
// implies alongside ParagraphInfo.Normalized: CR -> LF, NBSP -> space.
func normalizeForCompare(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		switch r {
		case '\r':
			out = append(out, '\n')
		case '\u00A0':
			out = append(out, ' ')
		default:
			out = append(out, r)
		}
	}
	return string(out)
}

func trimSpaceStr(s string) string {
	start, end := 0, len(s)
	for start < end && isSpaceByte(s[start]) {
		start++
	}
	for end > start && isSpaceByte(s[end-1]) {
		end--
	}
	return s[start:end]
}

func isSpaceByte(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

func indexOf(haystack, needle string) int {
	if needle == "" {
		return -1
	}
	n, m := len(haystack), len(needle)
	for i := 0; i+m <= n; i++ {
		if haystack[i:i+m] == needle {
			return i
		}
	}
	return -1
}
