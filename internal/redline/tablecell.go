package redline

import (
	"github.com/beevik/etree"

	"github.com/vortex/docx-redline/internal/ooxml"
)

// FindTableCellParagraph implements C12's isolation-target search: when
// root contains one or more w:tbl, find the single paragraph the caller
// actually means to edit, checked in priority order (spec.md §4.12):
//  1. exact w14:paraId match against targetParaID, when given
//  2. exact text match of a cell paragraph against originalText
//  3. trimmed text match
//
// Returns the matched paragraph, its containing w:tc, and whether a match
// was found. Descends into nested tables (a table inside a cell).
func FindTableCellParagraph(root *etree.Element, originalText, targetParaID string) (*etree.Element, *etree.Element, bool) {
	var cellParagraphs []*etree.Element
	cellOf := map[*etree.Element]*etree.Element{}

	var walk func(el *etree.Element)
	walk = func(el *etree.Element) {
		tbls := ooxml.Children(el, "w:tbl")
		if ooxml.Is(el, "w:tbl") {
			tbls = []*etree.Element{el}
		}
		for _, tbl := range tbls {
			for _, tr := range ooxml.Children(tbl, "w:tr") {
				for _, tc := range ooxml.Children(tr, "w:tc") {
					for _, p := range ooxml.Children(tc, "w:p") {
						cellParagraphs = append(cellParagraphs, p)
						cellOf[p] = tc
					}
					walk(tc)
				}
			}
		}
	}
	walk(root)

	if targetParaID != "" {
		for _, p := range cellParagraphs {
			if v, ok := ooxml.Attr(p, "w14:paraId"); ok && v == targetParaID {
				return p, cellOf[p], true
			}
		}
	}

	for _, p := range cellParagraphs {
		_, text := IngestParagraphs([]*etree.Element{p})
		if text == originalText {
			return p, cellOf[p], true
		}
	}

	target := trimSpaceStr(originalText)
	for _, p := range cellParagraphs {
		_, text := IngestParagraphs([]*etree.Element{p})
		if trimSpaceStr(text) == target {
			return p, cellOf[p], true
		}
	}

	return nil, nil, false
}

// ReplaceParagraphInCell substitutes original, a paragraph inside tc, with
// replacements (one or more rebuilt paragraphs — list/reconstruction modes
// can split one paragraph into several), the "re-wrap the result" half of
// C12 (spec.md §4.12).
func ReplaceParagraphInCell(tc *etree.Element, original *etree.Element, replacements []*etree.Element) {
	if len(replacements) == 0 {
		return
	}
	anchor := original
	for _, p := range replacements {
		ooxml.InsertBefore(tc, anchor, p)
	}
	tc.RemoveChild(original)
}
