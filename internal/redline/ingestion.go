package redline

import (
	"strings"

	"github.com/beevik/etree"

	"github.com/vortex/docx-redline/internal/ooxml"
)

// referenceAllocator assigns a stable private-use code point (spec.md §3,
// base U+E000) to each distinct footnote/endnote id seen during a single
// IngestParagraphs call, so the same reference always maps to the same
// character within that call.
type referenceAllocator struct {
	next rune
	ids  map[string]rune
}

func newReferenceAllocator() *referenceAllocator {
	return &referenceAllocator{next: SentinelRefBase, ids: make(map[string]rune)}
}

func (a *referenceAllocator) assign(refType, id string) rune {
	key := refType + ":" + id
	if ch, ok := a.ids[key]; ok {
		return ch
	}
	ch := a.next
	a.ids[key] = ch
	a.next++
	return ch
}

// IngestParagraphs walks a sequence of <w:p> elements in document order,
// producing the linear RunEntry stream and the corresponding accepted
// text (spec.md §3). Paragraph transitions contribute exactly one "\n"
// (never after the last paragraph) per the centralized ParagraphBoundary
// policy (spec.md §3).
func IngestParagraphs(paragraphs []*etree.Element) ([]RunEntry, string) {
	var entries []RunEntry
	var sb strings.Builder
	pos := 0
	refs := newReferenceAllocator()

	for i, p := range paragraphs {
		ingestParagraphInto(p, refs, &entries, &sb, &pos)
		if i != len(paragraphs)-1 {
			entries = append(entries, RunEntry{
				Kind: KindParagraphStart, Text: "\n",
				StartOffset: pos, EndOffset: pos + 1,
			})
			sb.WriteByte('\n')
			pos++
		}
	}
	return entries, sb.String()
}

// ingestParagraphInto walks the direct children of a single <w:p>,
// appending RunEntry values and text into the shared accumulators.
func ingestParagraphInto(p *etree.Element, refs *referenceAllocator, entries *[]RunEntry, sb *strings.Builder, pos *int) {
	for _, child := range p.ChildElements() {
		if child.Space != "w" {
			continue
		}
		switch child.Tag {
		case "pPr", "proofErr":
			// skipped (spec.md §4.2)
		case "r":
			ingestRunInto(child, nil, "", "", refs, entries, sb, pos)
		case "ins":
			author, _ := ooxml.Attr(child, "w:author")
			for _, gc := range child.ChildElements() {
				if gc.Space == "w" && gc.Tag == "r" {
					ingestRunInto(gc, nil, "", "", refs, entries, sb, pos)
				} else if gc.Space == "w" && gc.Tag == "hyperlink" {
					ingestHyperlinkInto(gc, refs, entries, sb, pos)
				}
			}
			_ = author // insertion content is accepted as ordinary content
		case "del":
			ingestDeletionInto(child, entries, sb, pos)
		case "hyperlink":
			ingestHyperlinkInto(child, refs, entries, sb, pos)
		case "commentRangeStart", "commentRangeEnd", "commentReference":
			*entries = append(*entries, RunEntry{Kind: KindContainerStart, NodeXML: mustSerialize(child), Elem: child, StartOffset: *pos, EndOffset: *pos})
		case "bookmarkStart", "bookmarkEnd", "sdt", "oMath", "smartTag", "fldSimple":
			ingestSentinelInto(child, entries, sb, pos)
		default:
			// Unknown passthrough element: preserve as a one-width U+FFFC
			// sentinel container so it survives serialization at its position.
			ingestSentinelInto(child, entries, sb, pos)
		}
	}
}

func ingestSentinelInto(el *etree.Element, entries *[]RunEntry, sb *strings.Builder, pos *int) {
	*entries = append(*entries, RunEntry{
		Kind: KindContainerStart, Text: string(SentinelObject),
		StartOffset: *pos, EndOffset: *pos + 1,
		NodeXML: mustSerialize(el), Elem: el,
	})
	sb.WriteRune(SentinelObject)
	*pos++
}

func ingestHyperlinkInto(h *etree.Element, refs *referenceAllocator, entries *[]RunEntry, sb *strings.Builder, pos *int) {
	rid, _ := ooxml.Attr(h, "r:id")
	anchor, _ := ooxml.Attr(h, "w:anchor")
	for _, gc := range h.ChildElements() {
		if gc.Space == "w" && gc.Tag == "r" {
			ingestRunInto(gc, h, rid, anchor, refs, entries, sb, pos)
		}
	}
}

func ingestDeletionInto(del *etree.Element, entries *[]RunEntry, sb *strings.Builder, pos *int) {
	author, _ := ooxml.Attr(del, "w:author")
	for _, gc := range del.ChildElements() {
		if gc.Space != "w" || gc.Tag != "r" {
			continue
		}
		text := runDelText(gc)
		*entries = append(*entries, RunEntry{
			Kind: KindDeletion, Text: text,
			RunPropertiesXML: normalizedRPrXML(gc),
			StartOffset:      *pos, EndOffset: *pos, // deletions don't advance offsets
			Author: author, Run: gc, Elem: gc,
		})
	}
}

// runDelText concatenates a deletion run's w:delText content (and the
// text-equivalents of any fixed elements it still carries).
func runDelText(r *etree.Element) string {
	var sb strings.Builder
	for _, child := range r.ChildElements() {
		if child.Space != "w" {
			continue
		}
		switch child.Tag {
		case "delText":
			sb.WriteString(child.Text())
		case "tab":
			sb.WriteByte('\t')
		case "br", "cr":
			sb.WriteByte('\n')
		case "noBreakHyphen":
			sb.WriteRune('\u2011')
		}
	}
	return sb.String()
}

func ingestRunInto(r, hyperlink *etree.Element, relID, anchor string, refs *referenceAllocator, entries *[]RunEntry, sb *strings.Builder, pos *int) {
	rPrXML := normalizedRPrXML(r)
	for _, child := range r.ChildElements() {
		if child.Space != "w" {
			continue
		}
		var text string
		switch child.Tag {
		case "t":
			text = child.Text()
		case "tab":
			text = "\t"
		case "br", "cr":
			text = "\n"
		case "noBreakHyphen":
			text = "\u2011"
		case "rPr":
			continue
		case "commentReference":
			// Nested inside its w:r per the schema, unlike
			// commentRangeStart/End which are paragraph-level siblings.
			*entries = append(*entries, RunEntry{
				Kind: KindContainerStart, NodeXML: mustSerialize(child),
				Elem: child, Run: r, StartOffset: *pos, EndOffset: *pos,
			})
			continue
		case "drawing", "object", "pict":
			// Embedded objects contribute one U+FFFC sentinel to the text,
			// a stable position so diffing doesn't disturb them (spec.md §4.2).
			*entries = append(*entries, RunEntry{
				Kind: KindContainerStart, Text: string(SentinelObject),
				StartOffset: *pos, EndOffset: *pos + 1,
				NodeXML: mustSerialize(child), Elem: child, Run: r,
			})
			sb.WriteRune(SentinelObject)
			*pos++
			continue
		case "footnoteReference", "endnoteReference":
			refType := "footnote"
			if child.Tag == "endnoteReference" {
				refType = "endnote"
			}
			id, _ := ooxml.Attr(child, "w:id")
			ch := refs.assign(refType, id)
			*entries = append(*entries, RunEntry{
				Kind: KindContainerStart, Text: string(ch),
				StartOffset: *pos, EndOffset: *pos + 1,
				NodeXML: mustSerialize(child), Elem: child, Run: r,
				RefID: id, RefType: refType,
			})
			sb.WriteRune(ch)
			*pos++
			continue
		default:
			continue // fldChar, lastRenderedPageBreak, etc. contribute nothing
		}

		kind := KindText
		if hyperlink != nil {
			kind = KindHyperlink
		}
		*entries = append(*entries, RunEntry{
			Kind: kind, Text: text, RunPropertiesXML: rPrXML,
			StartOffset: *pos, EndOffset: *pos + len(text),
			RelationshipID: relID, Anchor: anchor,
			Run: r, Elem: child,
		})
		sb.WriteString(text)
		*pos += len(text)
	}
}

// normalizedRPrXML serializes run's w:rPr (if present) exactly as the tree
// holds it, or "" if the run carries no rPr (spec.md §3). No whitespace
// normalization is applied.
func normalizedRPrXML(run *etree.Element) string {
	rPr := ooxml.FirstChild(run, "w:rPr")
	if rPr == nil {
		return ""
	}
	s, err := ooxml.Serialize(rPr)
	if err != nil {
		return ""
	}
	return s
}

func mustSerialize(el *etree.Element) string {
	s, err := ooxml.Serialize(el)
	if err != nil {
		return ""
	}
	return s
}
