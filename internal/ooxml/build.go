package ooxml

import "github.com/beevik/etree"

// New creates a detached element for nstag (e.g. "w:r"), with the element's
// Space set to the literal prefix so it round-trips through Children/Is.
// Unlike the teacher's OxmlElement, this does not stamp a redundant
// xmlns:* declaration on every created element — callers build fragments
// that get spliced into an already-namespaced tree (the wrapping envelope
// declares "w" once), so per-element declarations would just be dead
// weight repeated on every run.
func New(nstag string) *etree.Element {
	prefix, local := SplitTag(nstag)
	el := etree.NewElement(local)
	el.Space = prefix
	return el
}

// NewWithAttrs creates a detached element and sets the given
// namespace-prefixed attributes on it.
func NewWithAttrs(nstag string, attrs map[string]string) *etree.Element {
	el := New(nstag)
	for k, v := range attrs {
		SetAttr(el, k, v)
	}
	return el
}

// Clone returns a deep copy of el, detached from any tree.
func Clone(el *etree.Element) *etree.Element {
	return el.Copy()
}

// AppendNewChild creates a new nstag element, appends it as the last child
// of parent, and returns it.
func AppendNewChild(parent *etree.Element, nstag string) *etree.Element {
	child := New(nstag)
	parent.AddChild(child)
	return child
}

// InsertAt inserts child into parent at position idx (element-only index,
// i.e. the idx-th position among parent.ChildElements(), not parent.Child).
func InsertAt(parent, child *etree.Element, idx int) {
	elems := parent.ChildElements()
	if idx >= len(elems) {
		parent.AddChild(child)
		return
	}
	anchor := elems[idx]
	rawIdx := IndexInParent(parent, anchor)
	parent.InsertChildAt(rawIdx, child)
}

// InsertBefore inserts newEl immediately before anchor within anchor's
// parent.
func InsertBefore(parent, anchor, newEl *etree.Element) {
	rawIdx := IndexInParent(parent, anchor)
	if rawIdx < 0 {
		parent.AddChild(newEl)
		return
	}
	parent.InsertChildAt(rawIdx, newEl)
}

// InsertAfter inserts newEl immediately after anchor within anchor's
// parent.
func InsertAfter(parent, anchor, newEl *etree.Element) {
	rawIdx := IndexInParent(parent, anchor)
	if rawIdx < 0 {
		parent.AddChild(newEl)
		return
	}
	parent.InsertChildAt(rawIdx+1, newEl)
}

// ReplaceChild swaps oldEl for newEl at the same position within parent.
func ReplaceChild(parent, oldEl, newEl *etree.Element) {
	rawIdx := IndexInParent(parent, oldEl)
	if rawIdx < 0 {
		parent.AddChild(newEl)
		return
	}
	parent.InsertChildAt(rawIdx, newEl)
	parent.RemoveChild(oldEl)
}

// SetPreservedText sets el's text content and adds xml:space="preserve"
// whenever the text has leading/trailing whitespace (or is empty), mirroring
// the teacher's ensurePreserveSpace / AddTWithText behavior.
func SetPreservedText(el *etree.Element, text string) {
	el.SetText(text)
	if text == "" || len(trimSpace(text)) != len(text) {
		el.CreateAttr("xml:space", "preserve")
	} else {
		el.RemoveAttr("xml:space")
	}
}

func trimSpace(s string) string {
	start, end := 0, len(s)
	for start < end && isSpace(s[start]) {
		start++
	}
	for end > start && isSpace(s[end-1]) {
		end--
	}
	return s[start:end]
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}
