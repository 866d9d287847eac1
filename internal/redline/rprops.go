package redline

import (
	"strconv"
	"strings"

	"github.com/beevik/etree"

	"github.com/vortex/docx-redline/internal/ooxml"
)

// rPrOrder is the canonical child order inside a w:rPr, per the
// CT_RPr content model (spec.md §4.5). Every element this engine inserts
// goes through insertInSchemaOrder so emitted documents satisfy
// spec.md §8 property 6 ("schema order").
var rPrOrder = []string{
	"rStyle", "rFonts", "b", "bCs", "i", "iCs",
	"caps", "smallCaps", "strike", "dstrike", "outline", "shadow",
	"emboss", "imprint", "noProof", "snapToGrid", "vanish", "webHidden",
	"color", "spacing", "w", "kern", "position", "sz", "szCs",
	"highlight", "u", "effect", "bdr", "shd", "fitText", "vertAlign",
	"rtl", "cs", "em", "lang", "eastAsianLayout", "specVanish",
	"oMath", "rPrChange",
}

var rPrRank = func() map[string]int {
	m := make(map[string]int, len(rPrOrder))
	for i, name := range rPrOrder {
		m[name] = i
	}
	return m
}()

// insertInSchemaOrder inserts child (a "w:x" element) into rPr at the
// position dictated by rPrOrder, replacing any existing same-named child.
func insertInSchemaOrder(rPr, child *etree.Element) {
	rank, known := rPrRank[child.Tag]
	if !known {
		rank = len(rPrOrder)
	}

	// Replace an existing element of the same tag, if present.
	for _, existing := range rPr.ChildElements() {
		if existing.Space == "w" && existing.Tag == child.Tag {
			ooxml.ReplaceChild(rPr, existing, child)
			return
		}
	}

	for _, existing := range rPr.ChildElements() {
		existingRank, ok := rPrRank[existing.Tag]
		if !ok {
			existingRank = len(rPrOrder)
		}
		if existingRank > rank {
			ooxml.InsertBefore(rPr, existing, child)
			return
		}
	}
	rPr.AddChild(child)
}

// onOffElement builds a "w:tag" element carrying an explicit on/off
// w:val, per spec.md §4.5 ("add"/"remove" share one primitive).
//
// Underline uses w:val="single"/"none" instead of "1"/"0" (its value
// space is an enumeration, not xsd:boolean).
func onOffElement(tag string, on bool) *etree.Element {
	el := ooxml.New("w:" + tag)
	switch tag {
	case "u":
		if on {
			ooxml.SetAttr(el, "w:val", "single")
		} else {
			ooxml.SetAttr(el, "w:val", "none")
		}
	default:
		if on {
			ooxml.SetAttr(el, "w:val", "1")
		} else {
			ooxml.SetAttr(el, "w:val", "0")
		}
	}
	return el
}

// applyFormatToRPr mutates rPr in place, inserting explicit on/off
// overrides in schema order for exactly the flags set in touch.
func applyFormatToRPr(rPr *etree.Element, format, touch Format, on bool) {
	if touch.Bold {
		insertInSchemaOrder(rPr, onOffElement("b", on))
		insertInSchemaOrder(rPr, onOffElement("bCs", on))
	}
	if touch.Italic {
		insertInSchemaOrder(rPr, onOffElement("i", on))
		insertInSchemaOrder(rPr, onOffElement("iCs", on))
	}
	if touch.Underline {
		insertInSchemaOrder(rPr, onOffElement("u", on))
	}
	if touch.Strikethrough {
		insertInSchemaOrder(rPr, onOffElement("strike", on))
	}
}

// writeAllFlagsExplicit writes all four managed flags into rPr, each as an
// explicit on or off override depending on format, so a reader never has
// to infer an unset flag from absence (spec.md §4.6 (iii)).
func writeAllFlagsExplicit(rPr *etree.Element, format Format) {
	insertInSchemaOrder(rPr, onOffElement("b", format.Bold))
	insertInSchemaOrder(rPr, onOffElement("bCs", format.Bold))
	insertInSchemaOrder(rPr, onOffElement("i", format.Italic))
	insertInSchemaOrder(rPr, onOffElement("iCs", format.Italic))
	insertInSchemaOrder(rPr, onOffElement("u", format.Underline))
	insertInSchemaOrder(rPr, onOffElement("strike", format.Strikethrough))
}

// boolAttrIsOff reports whether a w:val attribute represents an explicit
// false, per spec.md §4.5 ("0", "false", "off").
func boolAttrIsOff(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	return v == "0" || v == "false" || v == "off"
}

// boolAttrIsOn reports whether a w:val attribute (or its absence) means
// true. An xsd:boolean element with no w:val defaults to true.
func boolAttrIsOn(el *etree.Element) bool {
	v, ok := ooxml.Attr(el, "w:val")
	if !ok {
		return true
	}
	return !boolAttrIsOff(v)
}

// extractFormatFromRPr parses w:b/w:i/w:u/w:strike from rPr, honoring
// explicit off values, and falls back to a heuristic rStyle-name scan
// (spec.md §4.5). rPr may be nil (no formatting at all).
func extractFormatFromRPr(rPr *etree.Element) Format {
	var f Format
	if rPr == nil {
		return f
	}
	if b := ooxml.FirstChild(rPr, "w:b"); b != nil {
		f.Bold = boolAttrIsOn(b)
	}
	if i := ooxml.FirstChild(rPr, "w:i"); i != nil {
		f.Italic = boolAttrIsOn(i)
	}
	if u := ooxml.FirstChild(rPr, "w:u"); u != nil {
		v, _ := ooxml.Attr(u, "w:val")
		lv := strings.ToLower(strings.TrimSpace(v))
		f.Underline = lv != "none" && lv != "0" && lv != "false" && lv != "off"
	}
	if s := ooxml.FirstChild(rPr, "w:strike"); s != nil {
		f.Strikethrough = boolAttrIsOn(s)
	}

	if style := ooxml.FirstChild(rPr, "w:rStyle"); style != nil {
		if v, ok := ooxml.Attr(style, "w:val"); ok {
			lv := strings.ToLower(v)
			if strings.Contains(lv, "bold") || strings.Contains(lv, "strong") {
				f.Bold = true
			}
			if strings.Contains(lv, "italic") || strings.Contains(lv, "emphasis") {
				f.Italic = true
			}
			if strings.Contains(lv, "underline") {
				f.Underline = true
			}
			if strings.Contains(lv, "strike") {
				f.Strikethrough = true
			}
		}
	}
	return f
}

// snapshotAndAttachRPrChange builds a w:rPrChange recording sourceRPr's
// prior state (or an empty w:rPr if sourceRPr is nil), strips any
// pre-existing w:rPrChange from sourceRPr's clone, and attaches it to
// destRPr (spec.md §4.5).
func snapshotAndAttachRPrChange(destRPr, sourceRPr *etree.Element, rev Revision) {
	change := ooxml.New("w:rPrChange")
	ooxml.SetAttr(change, "w:id", strconv.Itoa(rev.ID))
	ooxml.SetAttr(change, "w:author", rev.Author)
	ooxml.SetAttr(change, "w:date", rev.Date)

	var snapshot *etree.Element
	if sourceRPr != nil {
		snapshot = sourceRPr.Copy()
		if prior := ooxml.FirstChild(snapshot, "w:rPrChange"); prior != nil {
			snapshot.RemoveChild(prior)
		}
	} else {
		snapshot = ooxml.New("w:rPr")
	}
	snapshot.Space, snapshot.Tag = "w", "rPr"
	change.AddChild(snapshot)

	insertInSchemaOrder(destRPr, change)
}
