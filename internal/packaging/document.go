// Package packaging provides a high-level typed view over a .docx OPC
// package. It reads the ZIP container and relationship graph directly via
// archive/zip and encoding/xml, classifies parts by relationship type, and
// can re-serialize the package with every part's content unchanged for
// round-trip validation.
package packaging

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
)

// Well-known OPC/WordprocessingML relationship type URIs (ECMA-376 Part 2
// Annex F / Part 1 §11.3). Only the suffix after the final "/" is compared,
// since some producers emit the transitional vs. strict namespace variants.
const (
	relOfficeDocument     = "officeDocument"
	relCoreProperties     = "core-properties"
	relExtendedProperties = "extended-properties"
	relStyles             = "styles"
	relSettings           = "settings"
	relNumbering          = "numbering"
	relComments           = "comments"
	relFootnotes          = "footnotes"
	relEndnotes           = "endnotes"
	relFontTable          = "fontTable"
	relTheme              = "theme"
	relWebSettings        = "webSettings"
	relHeader             = "header"
	relFooter             = "footer"
	relImage              = "image"
)

// relSuffix returns the last path segment of a relationship Type URI, which
// is what distinguishes one relationship kind from another.
func relSuffix(relType string) string {
	if i := strings.LastIndexByte(relType, '/'); i >= 0 {
		return relType[i+1:]
	}
	return relType
}

// --------------------------------------------------------------------------
// Document — high-level typed view over an OPC package
// --------------------------------------------------------------------------

// Document represents an opened .docx with parts classified by type.
type Document struct {
	// rawFiles holds every ZIP entry's bytes keyed by its archive name, so
	// SaveWriter can re-emit each part's content unchanged.
	rawFiles map[string][]byte
	// names lists the entry names in the order they were read; SaveWriter
	// writes them sorted by name for deterministic output.
	names []string

	// Core metadata (Dublin Core).
	CoreProps *CoreProperties

	// Extended / application properties.
	AppProps *AppProperties

	// Named XML parts stored as raw blobs (nil when absent).
	Styles    []byte
	Settings  []byte
	Numbering []byte
	Comments  []byte
	Footnotes []byte
	Endnotes  []byte
	Fonts     []byte

	// Single-instance blob parts (empty when absent).
	Theme       []byte
	WebSettings []byte

	// Multi-instance parts.
	Headers [][]byte
	Footers [][]byte

	// Media files keyed by part name (e.g. "/word/media/image1.png").
	Media map[string][]byte

	// Parts that don't match any known relationship type.
	UnknownParts []UnknownPart
}

// CoreProperties holds Dublin Core metadata from core.xml.
type CoreProperties struct {
	Title       string
	Creator     string
	Description string
}

// AppProperties holds extended-property metadata from app.xml.
type AppProperties struct {
	Application string
}

// UnknownPart is a package part with no recognised relationship type.
type UnknownPart struct {
	PartName    string
	ContentType string
	Blob        []byte
}

// --------------------------------------------------------------------------
// relationship XML shapes
// --------------------------------------------------------------------------

type xmlRelationships struct {
	XMLName       xml.Name      `xml:"Relationships"`
	Relationships []xmlRelation `xml:"Relationship"`
}

type xmlRelation struct {
	ID     string `xml:"Id,attr"`
	Type   string `xml:"Type,attr"`
	Target string `xml:"Target,attr"`
	Mode   string `xml:"TargetMode,attr"`
}

func parseRelationships(blob []byte) ([]xmlRelation, error) {
	if len(blob) == 0 {
		return nil, nil
	}
	var rels xmlRelationships
	if err := xml.Unmarshal(blob, &rels); err != nil {
		return nil, fmt.Errorf("packaging: parsing relationships: %w", err)
	}
	return rels.Relationships, nil
}

// resolveTarget resolves a relationship Target against the directory
// containing its source part (e.g. "word" + "styles.xml" => "word/styles.xml").
func resolveTarget(baseDir, target string) string {
	if strings.HasPrefix(target, "/") {
		return strings.TrimPrefix(target, "/")
	}
	return path.Clean(path.Join(baseDir, target))
}

// relsPathFor returns the companion .rels path for a given part path
// (e.g. "word/document.xml" => "word/_rels/document.xml.rels", "" (package
// root) => "_rels/.rels").
func relsPathFor(partPath string) string {
	dir := path.Dir(partPath)
	base := path.Base(partPath)
	if partPath == "" {
		dir = "."
		base = ""
	}
	if dir == "." {
		return path.Join("_rels", base+".rels")
	}
	return path.Join(dir, "_rels", base+".rels")
}

// --------------------------------------------------------------------------
// Open helpers
// --------------------------------------------------------------------------

// OpenReader opens a .docx from an io.ReaderAt.
func OpenReader(r io.ReaderAt, size int64) (*Document, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("packaging: open: %w", err)
	}
	return openZip(zr)
}

// OpenBytes opens a .docx from in-memory bytes.
func OpenBytes(data []byte) (*Document, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("packaging: open bytes: %w", err)
	}
	return openZip(zr)
}

func openZip(zr *zip.Reader) (*Document, error) {
	doc := &Document{
		rawFiles: make(map[string][]byte, len(zr.File)),
		Media:    make(map[string][]byte),
	}

	for _, f := range zr.File {
		name := strings.TrimPrefix(f.Name, "/")
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("packaging: reading %q: %w", name, err)
		}
		blob, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("packaging: reading %q: %w", name, err)
		}
		doc.rawFiles[name] = blob
		doc.names = append(doc.names, name)
	}

	if err := doc.classify(); err != nil {
		return nil, err
	}
	return doc, nil
}

// --------------------------------------------------------------------------
// Save helpers
// --------------------------------------------------------------------------

// SaveWriter writes the document back as a .docx ZIP archive. Part contents
// are re-emitted exactly as read — this package never mutates them — but
// entries are written in name order and recompressed, so the archive bytes
// can differ from the original's.
func (d *Document) SaveWriter(w io.Writer) error {
	names := make([]string, len(d.names))
	copy(names, d.names)
	sort.Strings(names)

	zw := zip.NewWriter(w)
	for _, name := range names {
		fw, err := zw.Create(name)
		if err != nil {
			return fmt.Errorf("packaging: creating entry %q: %w", name, err)
		}
		if _, err := fw.Write(d.rawFiles[name]); err != nil {
			return fmt.Errorf("packaging: writing entry %q: %w", name, err)
		}
	}
	return zw.Close()
}

// SaveBytes returns the document as a byte slice.
func (d *Document) SaveBytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := d.SaveWriter(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// --------------------------------------------------------------------------
// classify — walk the package/document relationships and fill Document fields
// --------------------------------------------------------------------------

func (d *Document) classify() error {
	pkgRels, err := parseRelationships(d.rawFiles[relsPathFor("")])
	if err != nil {
		return err
	}

	classified := map[string]bool{relsPathFor(""): true, "[Content_Types].xml": true}

	var docPartPath string
	for _, rel := range pkgRels {
		if rel.Mode == "External" {
			continue
		}
		switch relSuffix(rel.Type) {
		case relOfficeDocument:
			docPartPath = resolveTarget("", rel.Target)
			classified[docPartPath] = true
		case relCoreProperties:
			partPath := resolveTarget("", rel.Target)
			if blob, ok := d.rawFiles[partPath]; ok {
				d.CoreProps = parseCoreProps(blob)
				classified[partPath] = true
			}
		case relExtendedProperties:
			partPath := resolveTarget("", rel.Target)
			if blob, ok := d.rawFiles[partPath]; ok {
				d.AppProps = parseAppProps(blob)
				classified[partPath] = true
			}
		}
	}

	if docPartPath == "" {
		return fmt.Errorf("packaging: no main document part found")
	}

	docRels, err := parseRelationships(d.rawFiles[relsPathFor(docPartPath)])
	if err != nil {
		return err
	}
	classified[relsPathFor(docPartPath)] = true

	baseDir := path.Dir(docPartPath)
	for _, rel := range docRels {
		if rel.Mode == "External" {
			continue
		}
		partPath := resolveTarget(baseDir, rel.Target)
		blob, ok := d.rawFiles[partPath]
		if !ok {
			continue
		}
		classified[partPath] = true

		switch relSuffix(rel.Type) {
		case relStyles:
			d.Styles = blob
		case relSettings:
			d.Settings = blob
		case relNumbering:
			d.Numbering = blob
		case relComments:
			d.Comments = blob
		case relFootnotes:
			d.Footnotes = blob
		case relEndnotes:
			d.Endnotes = blob
		case relFontTable:
			d.Fonts = blob
		case relTheme:
			d.Theme = blob
		case relWebSettings:
			d.WebSettings = blob
		case relHeader:
			d.Headers = append(d.Headers, blob)
		case relFooter:
			d.Footers = append(d.Footers, blob)
		case relImage:
			d.Media["/"+partPath] = blob
		default:
			if isMediaPath(partPath) {
				d.Media["/"+partPath] = blob
			}
		}
	}

	// Remaining entries → UnknownParts, skipping ZIP bookkeeping files.
	names := make([]string, len(d.names))
	copy(names, d.names)
	sort.Strings(names)
	for _, name := range names {
		if classified[name] || strings.HasSuffix(name, ".rels") {
			continue
		}
		d.UnknownParts = append(d.UnknownParts, UnknownPart{
			PartName: "/" + name,
			Blob:     d.rawFiles[name],
		})
	}

	return nil
}

func isMediaPath(p string) bool {
	return strings.Contains(p, "/media/")
}

// --------------------------------------------------------------------------
// Minimal XML parsing for core / app properties
// --------------------------------------------------------------------------

type xmlCoreProperties struct {
	XMLName     xml.Name `xml:"coreProperties"`
	Title       string   `xml:"title"`
	Creator     string   `xml:"creator"`
	Description string   `xml:"description"`
}

func parseCoreProps(blob []byte) *CoreProperties {
	if len(blob) == 0 {
		return nil
	}
	var props xmlCoreProperties
	if err := xml.Unmarshal(blob, &props); err != nil {
		return &CoreProperties{}
	}
	return &CoreProperties{
		Title:       props.Title,
		Creator:     props.Creator,
		Description: props.Description,
	}
}

type xmlAppProperties struct {
	XMLName     xml.Name `xml:"Properties"`
	Application string   `xml:"Application"`
}

func parseAppProps(blob []byte) *AppProperties {
	if len(blob) == 0 {
		return nil
	}
	var props xmlAppProperties
	if err := xml.Unmarshal(blob, &props); err != nil {
		return &AppProperties{}
	}
	return &AppProperties{
		Application: props.Application,
	}
}
