package ooxml

import "github.com/beevik/etree"

// Children returns the direct child elements of el whose prefix:local tag
// matches nstag (e.g. "w:r"). etree does not resolve namespace URIs for
// element tags — Element.Space is the literal prefix string as written in
// the source document — so this is inherently a literal-prefix lookup,
// which is the fallback form spec.md asks for; callers that need to be
// defensive against documents using a different bound prefix for the "w"
// namespace should route through Local instead.
func Children(el *etree.Element, nstag string) []*etree.Element {
	prefix, local := SplitTag(nstag)
	var out []*etree.Element
	for _, c := range el.ChildElements() {
		if c.Space == prefix && c.Tag == local {
			out = append(out, c)
		}
	}
	return out
}

// FirstChild returns the first direct child matching nstag, or nil.
func FirstChild(el *etree.Element, nstag string) *etree.Element {
	prefix, local := SplitTag(nstag)
	for _, c := range el.ChildElements() {
		if c.Space == prefix && c.Tag == local {
			return c
		}
	}
	return nil
}

// Local returns direct children whose local name matches local, regardless
// of namespace prefix. Used where a document might bind an unexpected
// prefix to the WordprocessingML namespace.
func Local(el *etree.Element, local string) []*etree.Element {
	var out []*etree.Element
	for _, c := range el.ChildElements() {
		if c.Tag == local {
			out = append(out, c)
		}
	}
	return out
}

// Is reports whether el is a "prefix:local" element.
func Is(el *etree.Element, nstag string) bool {
	if el == nil {
		return false
	}
	prefix, local := SplitTag(nstag)
	return el.Space == prefix && el.Tag == local
}

// Attr returns the value of a namespace-prefixed attribute (e.g. "w:val"),
// or "", false if absent.
func Attr(el *etree.Element, nsattr string) (string, bool) {
	prefix, local := SplitTag(nsattr)
	for _, a := range el.Attr {
		if a.Space == prefix && a.Key == local {
			return a.Value, true
		}
	}
	return "", false
}

// SetAttr sets a namespace-prefixed attribute.
func SetAttr(el *etree.Element, nsattr, value string) {
	prefix, local := SplitTag(nsattr)
	if prefix == "" {
		el.CreateAttr(local, value)
		return
	}
	el.CreateAttr(prefix+":"+local, value)
}

// RemoveAttr removes a namespace-prefixed attribute if present.
func RemoveAttr(el *etree.Element, nsattr string) {
	prefix, local := SplitTag(nsattr)
	if prefix == "" {
		el.RemoveAttr(local)
		return
	}
	el.RemoveAttr(prefix + ":" + local)
}

// IndexInParent returns child's index among its parent's Child slice
// (tokens, not just elements), or -1 if not found.
func IndexInParent(parent, child *etree.Element) int {
	for i, c := range parent.Child {
		if e, ok := c.(*etree.Element); ok && e == child {
			return i
		}
	}
	return -1
}
