package redline

import (
	"sort"
	"strconv"
	"strings"

	"github.com/beevik/etree"

	"github.com/vortex/docx-redline/internal/ooxml"
)

// listMarkerKind discriminates the recognized list-marker families
// (spec.md §4.10).
type listMarkerKind int

const (
	markerNone listMarkerKind = iota
	markerDecimal
	markerParen
	markerLetter
	markerRoman
	markerBullet
)

// listLine is one non-empty line of the modified text, already split
// into its marker (if any) and the remainder to run through the
// markdown preprocessor.
type listLine struct {
	raw         string
	indentWidth int
	kind        listMarkerKind
	depth       int // outline depth from a dotted decimal marker ("1.2.3.")
	rest        string
}

// IsListTarget reports whether text contains newlines and at least one
// line begins, after optional leading whitespace, with a recognized
// list marker (spec.md §4.10).
func IsListTarget(text string) bool {
	if !strings.Contains(text, "\n") {
		return false
	}
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if _, ok := detectListMarker(line); ok {
			return true
		}
	}
	return false
}

func isLetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

var romanRunes = map[rune]bool{'i': true, 'v': true, 'x': true, 'l': true, 'c': true, 'd': true, 'm': true}

func isRoman(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range strings.ToLower(s) {
		if !romanRunes[r] {
			return false
		}
	}
	return true
}

func trimLeadingSpace(s string) string {
	for len(s) > 0 && (s[0] == ' ' || s[0] == '\t') {
		s = s[1:]
	}
	return s
}

// scanDottedDecimal matches a run of dot-separated digit groups
// ("1", "1.2", "1.2.3") followed by a trailing dot; returns the index
// just past that trailing dot and the group count (outline depth).
func scanDottedDecimal(s string) (end, depth int, ok bool) {
	i := 0
	for {
		start := i
		for i < len(s) && s[i] >= '0' && s[i] <= '9' {
			i++
		}
		if i == start {
			return 0, 0, false
		}
		depth++
		if i >= len(s) || s[i] != '.' {
			return 0, 0, false
		}
		i++
		if i < len(s) && s[i] >= '0' && s[i] <= '9' {
			continue
		}
		return i, depth, true
	}
}

func followedByMarkerBoundary(s string) bool {
	return s == "" || strings.HasPrefix(s, " ") || strings.HasPrefix(s, "\t")
}

// detectListMarker parses a single line's leading marker, if any,
// against the precedence spec.md §4.10 lists: bullet, parenthesized,
// decimal/outline, roman, then single-letter.
func detectListMarker(line string) (listLine, bool) {
	runes := []rune(line)
	i, indent := 0, 0
	for i < len(runes) && (runes[i] == ' ' || runes[i] == '\t') {
		if runes[i] == '\t' {
			indent += 4
		} else {
			indent++
		}
		i++
	}
	restRunes := runes[i:]
	rest := string(restRunes)
	if rest == "" {
		return listLine{}, false
	}

	if restRunes[0] == '-' || restRunes[0] == '*' || restRunes[0] == '•' {
		tail := string(restRunes[1:])
		if followedByMarkerBoundary(tail) {
			return listLine{raw: line, indentWidth: indent, kind: markerBullet, rest: trimLeadingSpace(tail)}, true
		}
	}

	if strings.HasPrefix(rest, "(") {
		if close := strings.IndexByte(rest, ')'); close > 1 {
			remainder := rest[close+1:]
			if followedByMarkerBoundary(remainder) {
				return listLine{raw: line, indentWidth: indent, kind: markerParen, rest: trimLeadingSpace(remainder)}, true
			}
		}
	}

	if end, depth, ok := scanDottedDecimal(rest); ok {
		remainder := rest[end:]
		if followedByMarkerBoundary(remainder) {
			return listLine{raw: line, indentWidth: indent, kind: markerDecimal, depth: depth, rest: trimLeadingSpace(remainder)}, true
		}
	}

	if dot := strings.IndexByte(rest, '.'); dot > 1 {
		token := rest[:dot]
		if isRoman(token) {
			remainder := rest[dot+1:]
			if followedByMarkerBoundary(remainder) {
				return listLine{raw: line, indentWidth: indent, kind: markerRoman, rest: trimLeadingSpace(remainder)}, true
			}
		}
	}

	if len(restRunes) >= 2 && isLetter(restRunes[0]) && restRunes[1] == '.' {
		remainder := string(restRunes[2:])
		if followedByMarkerBoundary(remainder) {
			return listLine{raw: line, indentWidth: indent, kind: markerLetter, rest: trimLeadingSpace(remainder)}, true
		}
	}

	return listLine{}, false
}

// detectIndentStep finds the smallest non-zero gap between distinct
// indent widths among the list's marker lines, defaulting to 2
// (spec.md §4.10 step 1).
func detectIndentStep(lines []listLine) int {
	widths := map[int]bool{}
	for _, l := range lines {
		if l.kind != markerNone {
			widths[l.indentWidth] = true
		}
	}
	sorted := make([]int, 0, len(widths))
	for w := range widths {
		sorted = append(sorted, w)
	}
	sort.Ints(sorted)
	step := 0
	for i := 1; i < len(sorted); i++ {
		if d := sorted[i] - sorted[i-1]; d > 0 && (step == 0 || d < step) {
			step = d
		}
	}
	if step == 0 {
		step = 2
	}
	return step
}

// numAllocation is one newly allocated numId/abstractNumId pair.
type numAllocation struct {
	numId, abstractNumId int
	kind                  listMarkerKind
}

// NumberingService resolves a numId for a list-marker kind, reusing an
// existing allocation whose format matches before allocating a new one
// (spec.md §4.10 step 3), mirroring the teacher's CT_Numbering.NextNumId
// gap-filling allocator.
type NumberingService struct {
	next      int
	byKind    map[listMarkerKind]int
	allocated []numAllocation
}

func NewNumberingService(startNumId int) *NumberingService {
	return &NumberingService{next: startNumId, byKind: map[listMarkerKind]int{}}
}

// Resolve returns the numId for kind, allocating a fresh numId/
// abstractNumId pair the first time a kind is seen.
func (s *NumberingService) Resolve(kind listMarkerKind) int {
	if id, ok := s.byKind[kind]; ok {
		return id
	}
	numId := s.next
	s.next++
	s.byKind[kind] = numId
	s.allocated = append(s.allocated, numAllocation{numId: numId, abstractNumId: numId, kind: kind})
	return numId
}

// Fragment serializes every newly allocated w:abstractNum/w:num pair as
// a companion numbering-part XML string, or "" if nothing was allocated
// (spec.md §4.10 step 7, §6 "companion outputs").
func (s *NumberingService) Fragment() string {
	if len(s.allocated) == 0 {
		return ""
	}
	root := ooxml.New("w:numbering")
	for _, a := range s.allocated {
		abstract := ooxml.NewWithAttrs("w:abstractNum", map[string]string{"w:abstractNumId": strconv.Itoa(a.abstractNumId)})
		lvl := ooxml.NewWithAttrs("w:lvl", map[string]string{"w:ilvl": "0"})
		lvl.AddChild(ooxml.NewWithAttrs("w:numFmt", map[string]string{"w:val": numFmtForKind(a.kind)}))
		lvl.AddChild(ooxml.NewWithAttrs("w:lvlText", map[string]string{"w:val": lvlTextForKind(a.kind)}))
		abstract.AddChild(lvl)
		root.AddChild(abstract)

		num := ooxml.NewWithAttrs("w:num", map[string]string{"w:numId": strconv.Itoa(a.numId)})
		num.AddChild(ooxml.NewWithAttrs("w:abstractNumId", map[string]string{"w:val": strconv.Itoa(a.abstractNumId)}))
		root.AddChild(num)
	}
	out, err := ooxml.Serialize(root)
	if err != nil {
		return ""
	}
	return out
}

func numFmtForKind(k listMarkerKind) string {
	switch k {
	case markerDecimal, markerParen:
		return "decimal"
	case markerLetter:
		return "lowerLetter"
	case markerRoman:
		return "lowerRoman"
	default:
		return "bullet"
	}
}

func lvlTextForKind(k listMarkerKind) string {
	switch k {
	case markerBullet:
		return "•"
	case markerParen:
		return "(%1)"
	default:
		return "%1."
	}
}

func baseRPrForFont(font string) *etree.Element {
	if font == "" {
		return nil
	}
	rPr := ooxml.New("w:rPr")
	insertInSchemaOrder(rPr, ooxml.NewWithAttrs("w:rFonts", map[string]string{"w:ascii": font, "w:hAnsi": font}))
	return rPr
}

// GenerateList converts original (the paragraph the caller targeted)
// and rawModifiedText (markdown list markup, not yet preprocessed) into
// N new paragraphs plus a trailing empty one (spec.md §4.10). original
// may be nil when there's no single source paragraph to attribute the
// leading deletion to.
func GenerateList(original *etree.Element, rawModifiedText string, rev Revision, generateRedlines bool, font string, numbering *NumberingService) []*etree.Element {
	var parsed []listLine
	for _, raw := range strings.Split(rawModifiedText, "\n") {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		if ll, ok := detectListMarker(raw); ok {
			parsed = append(parsed, ll)
		} else {
			parsed = append(parsed, listLine{raw: raw, kind: markerNone, rest: raw})
		}
	}
	if len(parsed) == 0 {
		return nil
	}

	indentStep := detectIndentStep(parsed)
	baseRPr := baseRPrForFont(font)

	var originalRPr *etree.Element
	var originalText string
	if original != nil {
		entries, text := IngestParagraphs([]*etree.Element{original})
		originalText = text
		for _, e := range entries {
			if e.Kind == KindText {
				originalRPr = ooxml.FirstChild(e.Run, "w:rPr")
				break
			}
		}
	}

	out := make([]*etree.Element, 0, len(parsed)+1)
	for i, l := range parsed {
		p := ooxml.New("w:p")

		if l.kind != markerNone {
			ilvl := l.indentWidth / indentStep
			if l.depth > 0 {
				ilvl = l.depth - 1
			}
			if ilvl < 0 {
				ilvl = 0
			}
			if ilvl > 8 {
				ilvl = 8
			}
			numId := numbering.Resolve(l.kind)

			pPr := ooxml.New("w:pPr")
			numPr := ooxml.New("w:numPr")
			numPr.AddChild(ooxml.NewWithAttrs("w:ilvl", map[string]string{"w:val": strconv.Itoa(ilvl)}))
			numPr.AddChild(ooxml.NewWithAttrs("w:numId", map[string]string{"w:val": strconv.Itoa(numId)}))
			pPr.AddChild(numPr)
			p.AddChild(pPr)
		}

		if i == 0 && generateRedlines && originalText != "" {
			delRun := createTextRun(originalText, originalRPr, true)
			p.AddChild(createTrackChange("del", delRun, rev))
		}

		lineClean, lineHints := PreprocessMarkdown(l.rest)
		for _, r := range createFormattedRuns(lineClean, baseRPr, lineHints, 0, rev, generateRedlines) {
			p.AddChild(r)
		}

		out = append(out, p)
	}

	// A trailing empty paragraph stops the host renderer from continuing
	// the list past its intended end (spec.md §4.10 step 6).
	out = append(out, ooxml.New("w:p"))
	return out
}
