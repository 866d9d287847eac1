package redline

import "strings"

// PreprocessMarkdown strips the recognized inline markers and HTML-style
// format tags from raw, returning the clean text plus a slice of
// FormatHint values with offsets into that clean text (spec.md §4.4).
//
// This is a hand-rolled deterministic scanner rather than a general
// markdown parser: the marker set is small and fixed, and a library
// parser (goldmark et al.) would have to be fought to avoid block-level
// reinterpretation (headings, lists, code fences) that has no meaning
// here — the input is a single reconciliation target string, not a
// document to render.
func PreprocessMarkdown(raw string) (string, []FormatHint) {
	clean, hints := scanMarkdown(raw)
	return clean, hints
}

// scanMarkdown performs one left-to-right pass over s, matching the
// longest/most-specific marker first at each position (spec.md §4.4).
// Matched marker content is recursively rescanned so an inner marker
// (e.g. plain italic nested inside a bold span) still produces its own
// hint, merged with the outer one.
func scanMarkdown(s string) (string, []FormatHint) {
	var clean strings.Builder
	var hints []FormatHint
	i := 0
	n := len(s)

	for i < n {
		if close := matchCombo(s, i, "***", "***"); close > 0 {
			i = emitSpan(s, i, 3, close, 3, Format{Bold: true, Italic: true}, &clean, &hints)
			continue
		}
		if close := matchCombo(s, i, "**++", "++**"); close > 0 {
			i = emitSpan(s, i, 4, close, 4, Format{Bold: true, Underline: true}, &clean, &hints)
			continue
		}
		if close := matchDelim(s, i, "**"); close > 0 {
			i = emitSpan(s, i, 2, close, 2, Format{Bold: true}, &clean, &hints)
			continue
		}
		if close := matchDelim(s, i, "__"); close > 0 {
			i = emitSpan(s, i, 2, close, 2, Format{Bold: true}, &clean, &hints)
			continue
		}
		if close := matchDelim(s, i, "++"); close > 0 {
			i = emitSpan(s, i, 2, close, 2, Format{Underline: true}, &clean, &hints)
			continue
		}
		if close := matchDelim(s, i, "~~"); close > 0 {
			i = emitSpan(s, i, 2, close, 2, Format{Strikethrough: true}, &clean, &hints)
			continue
		}
		if close := matchItalic(s, i, '*'); close > 0 {
			i = emitSpan(s, i, 1, close, 1, Format{Italic: true}, &clean, &hints)
			continue
		}
		if close := matchItalic(s, i, '_'); close > 0 {
			i = emitSpan(s, i, 1, close, 1, Format{Italic: true}, &clean, &hints)
			continue
		}
		if s[i] == '<' {
			if next, ok := matchHTMLTag(s, i, &clean, &hints); ok {
				i = next
				continue
			}
		}

		clean.WriteByte(s[i])
		i++
	}
	return clean.String(), hints
}

// lineEnd returns the index of the next '\n' at or after i, or len(s).
// Marker matching never crosses a paragraph boundary.
func lineEnd(s string, i int) int {
	if j := strings.IndexByte(s[i:], '\n'); j >= 0 {
		return i + j
	}
	return len(s)
}

// matchCombo looks for open immediately at s[i:] and, if found, the
// first occurrence of close before the line ends. Returns the absolute
// index of close, or -1.
func matchCombo(s string, i int, open, close string) int {
	if !strings.HasPrefix(s[i:], open) {
		return -1
	}
	limit := lineEnd(s, i)
	rest := s[i+len(open) : limit]
	j := strings.Index(rest, close)
	if j < 0 {
		return -1
	}
	return i + len(open) + j
}

// matchDelim is matchCombo specialized for a symmetric delimiter, with
// the extra rule that the inner content must be non-empty.
func matchDelim(s string, i int, delim string) int {
	close := matchCombo(s, i, delim, delim)
	if close <= i+len(delim) {
		return -1
	}
	return close
}

// matchItalic matches a single c..c span, refusing to treat a doubled
// delimiter ("**", "__") as the close (spec.md: "not adjacent to
// another */_"). An opener followed by a space or tab, or a closer
// preceded by one, is not a delimiter, so "a * b * c" stays literal.
func matchItalic(s string, i int, c byte) int {
	if s[i] != c {
		return -1
	}
	if i+1 < len(s) && (s[i+1] == ' ' || s[i+1] == '\t') {
		return -1
	}
	limit := lineEnd(s, i)
	for j := i + 1; j < limit; j++ {
		if s[j] != c {
			continue
		}
		if j+1 < limit && s[j+1] == c {
			// part of a doubled delimiter; not a valid italic close
			j++
			continue
		}
		if s[j-1] == ' ' || s[j-1] == '\t' {
			continue
		}
		if j == i+1 {
			return -1 // empty content
		}
		return j
	}
	return -1
}

// emitSpan writes s[i+openLen : closeIdx] (recursively rescanned) into
// clean, records a FormatHint covering the whole emitted span with f,
// and returns the index just past the closing delimiter.
func emitSpan(s string, i, openLen, closeIdx, closeLen int, f Format, clean *strings.Builder, hints *[]FormatHint) int {
	inner := s[i+openLen : closeIdx]
	innerClean, innerHints := scanMarkdown(inner)

	start := clean.Len()
	clean.WriteString(innerClean)
	end := clean.Len()

	*hints = append(*hints, FormatHint{Start: start, End: end, Format: f})
	for _, h := range innerHints {
		*hints = append(*hints, FormatHint{Start: start + h.Start, End: start + h.End, Format: h.Format})
	}
	return closeIdx + closeLen
}

// htmlTagFormat maps a lowercase HTML-style tag name to the flag it sets.
var htmlTagFormat = map[string]Format{
	"b": {Bold: true}, "strong": {Bold: true},
	"i": {Italic: true}, "em": {Italic: true},
	"u": {Underline: true},
	"s": {Strikethrough: true}, "strike": {Strikethrough: true}, "del": {Strikethrough: true},
}

// matchHTMLTag recognizes "<tag>content</tag>" (tag case-insensitive, no
// attributes) at s[i:], decodes entities in content, and appends the
// corresponding FormatHint. Returns (indexAfterClose, true) on match.
func matchHTMLTag(s string, i int, clean *strings.Builder, hints *[]FormatHint) (int, bool) {
	gt := strings.IndexByte(s[i:], '>')
	if gt < 0 {
		return 0, false
	}
	name := strings.ToLower(strings.TrimSpace(s[i+1 : i+gt]))
	format, known := htmlTagFormat[name]
	if !known {
		return 0, false
	}
	contentStart := i + gt + 1
	closeTag := "</" + name + ">"

	limit := lineEnd(s, i)
	idx := strings.Index(strings.ToLower(s[contentStart:limit]), closeTag)
	if idx < 0 {
		return 0, false
	}
	contentEnd := contentStart + idx

	inner := decodeEntities(s[contentStart:contentEnd])
	innerClean, innerHints := scanMarkdown(inner)

	start := clean.Len()
	clean.WriteString(innerClean)
	end := clean.Len()

	*hints = append(*hints, FormatHint{Start: start, End: end, Format: format})
	for _, h := range innerHints {
		*hints = append(*hints, FormatHint{Start: start + h.Start, End: start + h.End, Format: h.Format})
	}
	return contentEnd + len(closeTag), true
}

var htmlEntities = map[string]string{
	"&amp;": "&", "&lt;": "<", "&gt;": ">",
	"&quot;": `"`, "&apos;": "'", "&#39;": "'", "&nbsp;": " ",
}

// decodeEntities expands the small fixed set of HTML entities spec.md
// §4.4 calls out, left-to-right, non-recursively.
func decodeEntities(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); {
		matched := false
		for ent, lit := range htmlEntities {
			if strings.HasPrefix(s[i:], ent) {
				b.WriteString(lit)
				i += len(ent)
				matched = true
				break
			}
		}
		if !matched {
			b.WriteByte(s[i])
			i++
		}
	}
	return b.String()
}
