package redline

import (
	"github.com/beevik/etree"

	"github.com/vortex/docx-redline/internal/ooxml"
)

// wrapParagraphForProcessing attaches a bare paragraph root to a synthetic
// w:body container so the splice helpers used by list/reconstruction mode
// (which always insert siblings via Parent()) have somewhere to anchor new
// paragraphs, mirroring how a real document body anchors them (spec.md §6,
// input form (c) "a bare w:p"). The synthetic container never itself
// appears in the output unless processing leaves more than one top-level
// element in it.
func wrapParagraphForProcessing(p *etree.Element) *etree.Element {
	container := ooxml.New("w:body")
	container.AddChild(p)
	return container
}

// serializeParagraphEnvelope renders container after processing: the lone
// surviving paragraph when exactly one remains (preserving the caller's
// original bare-w:p envelope), or the synthetic body itself when processing
// left any other number of top-level elements — a list expansion, a
// reconstruction that split a paragraph in two, or a generated table beside
// the tracked deletion of the original paragraph, none of which has any
// other valid single-root XML rendering (spec.md §6 envelope builder,
// generalized to the bare-paragraph input case).
func serializeParagraphEnvelope(container *etree.Element) (string, error) {
	children := container.ChildElements()
	if len(children) == 1 {
		return ooxml.Serialize(children[0])
	}
	return ooxml.Serialize(container)
}

// serializeRoot renders a document-body/package/table root after in-place
// mutation. Those forms already own a valid single root, so this is a
// direct pass-through; it exists so every call site in router.go goes
// through the same envelope-builder surface (spec.md §6 "Envelope builder").
func serializeRoot(root *etree.Element) (string, error) {
	return ooxml.Serialize(root)
}
