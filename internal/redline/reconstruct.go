package redline

import (
	"regexp"
	"strings"

	"github.com/beevik/etree"

	"github.com/vortex/docx-redline/internal/ooxml"
)

// paragraphRange records an original paragraph's [start, end) extent in
// the accepted-text coordinate space, plus its w:pPr, so a rebuilt
// paragraph can inherit the right properties (spec.md §4.9 step 1).
type paragraphRange struct {
	start, end int
	pPr        *etree.Element
}

func buildParagraphRanges(paragraphs []*etree.Element) []paragraphRange {
	ranges := make([]paragraphRange, 0, len(paragraphs))
	pos := 0
	for i, p := range paragraphs {
		_, text := IngestParagraphs([]*etree.Element{p})
		start := pos
		pos += len(text)
		ranges = append(ranges, paragraphRange{start: start, end: pos, pPr: ooxml.FirstChild(p, "w:pPr")})
		if i != len(paragraphs)-1 {
			pos++ // the "\n" separator
		}
	}
	return ranges
}

// pPrAt returns the w:pPr of whichever paragraph range contains pos,
// clamping to the last range past the end of the document.
func pPrAt(ranges []paragraphRange, pos int) *etree.Element {
	for _, r := range ranges {
		if pos >= r.start && pos <= r.end {
			return r.pPr
		}
	}
	if len(ranges) > 0 {
		return ranges[len(ranges)-1].pPr
	}
	return nil
}

// entryAt returns the text/hyperlink entry covering pos, or nil.
func entryAt(entries []RunEntry, pos int) *RunEntry {
	for i := range entries {
		e := &entries[i]
		if (e.Kind == KindText || e.Kind == KindHyperlink) && e.StartOffset <= pos && pos < e.EndOffset {
			return e
		}
	}
	return nil
}

// sentinelEntryAt returns the one-character container_start entry
// anchored exactly at pos, if any (embedded objects, footnote/endnote
// references — anything that occupies exactly one accepted-text
// position).
func sentinelEntryAt(entries []RunEntry, pos int) *RunEntry {
	for i := range entries {
		e := &entries[i]
		if e.Kind == KindContainerStart && e.StartOffset == pos && e.EndOffset == pos+1 {
			return e
		}
	}
	return nil
}

// zeroWidthEntriesAt returns the container_start entries anchored at pos
// that contribute no accepted-text character at all (comment range
// markers, comment references — spec.md §4.2 "sentinel, no contribution
// to text"). These coexist with whatever real character also starts at
// pos, so they're looked up separately from sentinelEntryAt.
func zeroWidthEntriesAt(entries []RunEntry, pos int) []*RunEntry {
	var out []*RunEntry
	for i := range entries {
		e := &entries[i]
		if e.Kind == KindContainerStart && e.StartOffset == pos && e.EndOffset == pos {
			out = append(out, e)
		}
	}
	return out
}

// referenceTokenPattern matches the {{__FN_id__}}/{{__EN_id__}} tokens
// spec.md §4.9 step 1-2 expects the modified text to carry for
// footnote/endnote references.
var referenceTokenPattern = regexp.MustCompile(`\{\{__(FN|EN)_([^_]+)__\}\}`)

// referenceCharFor looks up the sentinel char IngestParagraphs assigned
// to the footnote/endnote identified by (refType, id).
func referenceCharFor(entries []RunEntry, refType, id string) (rune, bool) {
	for i := range entries {
		e := &entries[i]
		if e.RefType == refType && e.RefID == id && e.Text != "" {
			return []rune(e.Text)[0], true
		}
	}
	return 0, false
}

// translateReferenceTokens replaces every {{__FN_id__}}/{{__EN_id__}}
// token in text with the private-use char ingestion assigned to the
// matching reference, so the diff engine sees the same sentinel
// alphabet on both sides (spec.md §4.9 step 2). A token with no matching
// reference is a SentinelOrphan (spec.md §7) and is dropped silently.
func translateReferenceTokens(text string, entries []RunEntry) string {
	return referenceTokenPattern.ReplaceAllStringFunc(text, func(tok string) string {
		m := referenceTokenPattern.FindStringSubmatch(tok)
		refType := "footnote"
		if m[1] == "EN" {
			refType = "endnote"
		}
		if ch, ok := referenceCharFor(entries, refType, m[2]); ok {
			return string(ch)
		}
		return ""
	})
}

// rPrAtOrBefore inherits formatting from the nearest text/hyperlink
// entry at or before pos, for insert runs with no markdown hint
// coverage (spec.md §4.9: "insert: inherit rPr from the preceding
// original position").
func rPrAtOrBefore(entries []RunEntry, pos int) *etree.Element {
	var best *RunEntry
	for i := range entries {
		e := &entries[i]
		if e.Kind != KindText && e.Kind != KindHyperlink {
			continue
		}
		if e.StartOffset <= pos {
			best = e
		} else {
			break
		}
	}
	if best == nil {
		return nil
	}
	return ooxml.FirstChild(best.Run, "w:rPr")
}

// reconstructWriter accumulates detached <w:p> fragments, batching
// consecutive same-rPr/same-mode characters from the original text into
// single runs (spec.md §4.9).
type reconstructWriter struct {
	out   []*etree.Element
	cur   *etree.Element
	mode  rune // 'e' equal, 'd' delete; irrelevant once buf is empty
	rPr   *etree.Element
	buf   strings.Builder
	rev   Revision
	track bool
}

func (w *reconstructWriter) newParagraph(pPr *etree.Element) {
	w.flush()
	w.cur = ooxml.New("w:p")
	if pPr != nil {
		w.cur.AddChild(pPr.Copy())
	}
	w.out = append(w.out, w.cur)
}

func (w *reconstructWriter) flush() {
	if w.buf.Len() == 0 || w.cur == nil {
		w.buf.Reset()
		return
	}
	if w.mode == 'd' && !w.track {
		// Untracked deletions are simply left out of the rebuilt paragraph.
		w.buf.Reset()
		return
	}
	run := createTextRun(w.buf.String(), w.rPr, w.mode == 'd')
	if w.track && w.mode == 'd' {
		run = createTrackChange("del", run, w.rev)
	}
	w.cur.AddChild(run)
	w.buf.Reset()
}

func (w *reconstructWriter) appendChar(mode rune, rPr *etree.Element, ch rune) {
	if w.buf.Len() > 0 && (mode != w.mode || rPr != w.rPr) {
		w.flush()
	}
	w.mode, w.rPr = mode, rPr
	w.buf.WriteRune(ch)
}

func (w *reconstructWriter) appendSentinel(el *etree.Element) {
	w.flush()
	w.cur.AddChild(el.Copy())
}

func (w *reconstructWriter) appendRuns(runs []*etree.Element) {
	w.flush()
	for _, r := range runs {
		w.cur.AddChild(r)
	}
}

// ApplyReconstruction implements the paragraph-rebuild mode (C9): used
// when the edit scope has no tables and the change may add or remove
// paragraphs (spec.md §4.9).
//
// Equal/delete chunks reuse the originating run's w:rPr untouched — only
// inserted text is run through the markdown format hints, via
// createFormattedRuns (C6). Deleted sentinel containers are dropped
// rather than preserved-under-w:del: they have no run to wrap, and
// expressing "this embedded object was deleted" correctly would need a
// schema-specific wrapper per container kind, which is out of scope
// here. Deleted paragraph marks (two original paragraphs merging) are
// applied structurally — the two bodies simply join — rather than
// flagged with a delText run, matching how OOXML itself marks paragraph-
// mark deletion (via pPr/rPr, not delText) rather than forcing it
// through the run-deletion primitive.
func ApplyReconstruction(paragraphs []*etree.Element, container *etree.Element, modifiedText string, hints []FormatHint, rev Revision, generateRedlines bool) bool {
	entries, origText := IngestParagraphs(paragraphs)
	translatedModified := translateReferenceTokens(modifiedText, entries)
	ops := DiffText(origText, translatedModified)
	if !HasChanges(ops) {
		return false
	}
	ranges := buildParagraphRanges(paragraphs)

	w := &reconstructWriter{rev: rev, track: generateRedlines}
	w.newParagraph(pPrAt(ranges, 0))

	originalPos, newPos := 0, 0
	for _, op := range ops {
		switch op.Op {
		case 0, -1:
			mode := rune('e')
			if op.Op == -1 {
				mode = 'd'
			}
			for _, ch := range op.Text {
				if mode == 'e' {
					for _, zw := range zeroWidthEntriesAt(entries, originalPos) {
						w.appendSentinel(zw.Elem)
					}
				}
				se := sentinelEntryAt(entries, originalPos)
				switch {
				case se != nil:
					if mode == 'e' {
						w.appendSentinel(se.Elem)
					}
				case ch == '\n':
					if mode == 'e' {
						w.newParagraph(pPrAt(ranges, originalPos+1))
					}
					// a deleted paragraph mark merges the two paragraphs silently
				default:
					var rPr *etree.Element
					if e := entryAt(entries, originalPos); e != nil {
						rPr = ooxml.FirstChild(e.Run, "w:rPr")
					}
					w.appendChar(mode, rPr, ch)
				}
				originalPos++
			}
			if op.Op == 0 {
				newPos += len(op.Text)
			}
		case +1:
			lines := strings.Split(op.Text, "\n")
			for li, line := range lines {
				if line != "" {
					baseRPr := rPrAtOrBefore(entries, originalPos)
					runs := createFormattedRuns(line, baseRPr, hints, newPos, rev, generateRedlines)
					w.appendRuns(runs)
				}
				newPos += len(line)
				if li != len(lines)-1 {
					w.newParagraph(pPrAt(ranges, originalPos))
					newPos++
				}
			}
		}
	}
	for _, zw := range zeroWidthEntriesAt(entries, originalPos) {
		w.appendSentinel(zw.Elem)
	}
	w.flush()

	spliceParagraphs(paragraphs, w.out, container)
	return true
}

// spliceParagraphs replaces the original paragraph sequence in the tree
// with newParagraphs, inserted at the position of the first original
// paragraph (or appended to container if there was none).
func spliceParagraphs(original, newParagraphs []*etree.Element, container *etree.Element) {
	if len(original) == 0 {
		if container != nil {
			for _, p := range newParagraphs {
				container.AddChild(p)
			}
		}
		return
	}
	parent := original[0].Parent()
	if parent == nil {
		parent = container
	}
	if parent == nil {
		return
	}
	anchor := original[0]
	for _, p := range newParagraphs {
		ooxml.InsertBefore(parent, anchor, p)
	}
	for _, p := range original {
		if p.Parent() != nil {
			parent.RemoveChild(p)
		}
	}
}
