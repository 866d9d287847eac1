package ooxml

import (
	"bytes"
	"fmt"

	"github.com/beevik/etree"
)

// RootForm classifies the shape of an input OOXML fragment, per spec.md §6
// ("the engine accepts (a) a whole package container, (b) a standalone
// w:document/w:body, (c) a bare w:p, (d) a bare w:tbl").
type RootForm int

const (
	// FormUnknown is returned when the root element doesn't match any
	// recognized shape; callers treat this as a parse error.
	FormUnknown RootForm = iota
	FormPackage
	FormDocumentBody
	FormParagraph
	FormTable
)

func (f RootForm) String() string {
	switch f {
	case FormPackage:
		return "package"
	case FormDocumentBody:
		return "document-body"
	case FormParagraph:
		return "paragraph"
	case FormTable:
		return "table"
	default:
		return "unknown"
	}
}

// Parse parses an OOXML fragment and classifies its root form. It never
// returns a "parsererror" pseudo-node the way a DOM-based HTML parser
// would — etree returns a Go error for malformed XML — so the facade's
// contract (spec.md §4.1: "Parse errors ... abort the call") is met by
// simply propagating that error to the router, which converts it to the
// public ParseError result.
func Parse(fragment string) (*etree.Element, RootForm, error) {
	doc := etree.NewDocument()
	doc.ReadSettings.Permissive = true
	if err := doc.ReadFromString(fragment); err != nil {
		return nil, FormUnknown, fmt.Errorf("ooxml: parse: %w", err)
	}
	root := doc.Root()
	if root == nil {
		return nil, FormUnknown, fmt.Errorf("ooxml: parse: empty document")
	}
	return root, classify(root), nil
}

func classify(root *etree.Element) RootForm {
	switch {
	case Is(root, "w:p"):
		return FormParagraph
	case Is(root, "w:tbl"):
		return FormTable
	case Is(root, "w:body"):
		return FormDocumentBody
	case Is(root, "w:document"):
		return FormDocumentBody
	case root.Tag == "package" || root.FindElement("//Relationships") != nil:
		return FormPackage
	default:
		return FormUnknown
	}
}

// Body returns the w:body element reachable from root, handling both a
// bare w:body root and a w:document wrapping one.
func Body(root *etree.Element) *etree.Element {
	if Is(root, "w:body") {
		return root
	}
	if Is(root, "w:document") {
		return FirstChild(root, "w:body")
	}
	return nil
}

// Serialize renders el (and its subtree) back to an XML string with the
// UTF-8 declaration and standalone="yes" OOXML parts conventionally carry.
// Output is compact — no inserted indentation whitespace, since whitespace
// inside w:t is significant and a pretty-printer would corrupt it.
func Serialize(el *etree.Element) (string, error) {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8" standalone="yes"`)
	doc.SetRoot(el.Copy())

	var buf bytes.Buffer
	if _, err := doc.WriteTo(&buf); err != nil {
		return "", fmt.Errorf("ooxml: serialize: %w", err)
	}
	return buf.String(), nil
}
