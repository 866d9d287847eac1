// Package ooxml provides the XML facade over WordprocessingML fragments:
// parsing, serialization, namespace-aware lookup, and element construction.
// It is the engine's only point of contact with github.com/beevik/etree.
package ooxml

import (
	"fmt"
	"strings"
)

// Nsmap maps the namespace prefixes this engine cares about to their URIs.
// Trimmed from the full OOXML namespace table to the ones the reconciliation
// engine actually emits or reads (WordprocessingML, relationships, and the
// w14 paragraph-id extension used for table-cell targeting).
var Nsmap = map[string]string{
	"w":   "http://schemas.openxmlformats.org/wordprocessingml/2006/main",
	"w14": "http://schemas.microsoft.com/office/word/2010/wordml",
	"r":   "http://schemas.openxmlformats.org/officeDocument/2006/relationships",
	"xml": "http://www.w3.org/XML/1998/namespace",
	"mc":  "http://schemas.openxmlformats.org/markup-compatibility/2006",
}

// Pfxmap is the reverse of Nsmap: URI -> prefix.
var Pfxmap map[string]string

func init() {
	Pfxmap = make(map[string]string, len(Nsmap))
	for pfx, uri := range Nsmap {
		Pfxmap[uri] = pfx
	}
}

// URIOf returns the namespace URI bound to prefix, or "" if unknown.
func URIOf(prefix string) string { return Nsmap[prefix] }

// Clark converts a namespace-prefixed tag like "w:p" into Clark notation
// ("{uri}p"). Tags without a prefix are returned unchanged.
func Clark(tag string) (string, error) {
	prefix, local, ok := strings.Cut(tag, ":")
	if !ok {
		return tag, nil
	}
	uri, known := Nsmap[prefix]
	if !known {
		return "", fmt.Errorf("ooxml: unknown namespace prefix %q in tag %q", prefix, tag)
	}
	return "{" + uri + "}" + local, nil
}

// MustClark panics on an unknown prefix; use only with tags known at
// compile time (every call site in this engine passes a literal).
func MustClark(tag string) string {
	s, err := Clark(tag)
	if err != nil {
		panic(err)
	}
	return s
}

// SplitTag splits "w:p" into ("w", "p"). A tag with no prefix returns
// ("", tag).
func SplitTag(tag string) (prefix, local string) {
	prefix, local, ok := strings.Cut(tag, ":")
	if !ok {
		return "", tag
	}
	return prefix, local
}
