// Package redline implements the OOXML reconciliation engine: given an
// existing WordprocessingML fragment and a desired plain-text-plus-markup
// representation, it emits a modified fragment in which every semantic
// difference is expressed directly or as a tracked revision.
package redline

import "github.com/beevik/etree"

// RunKind discriminates the element a RunEntry was recovered from.
type RunKind int

const (
	KindText RunKind = iota
	KindDeletion
	KindInsertion
	KindHyperlink
	KindBookmark
	KindField
	KindContainerStart
	KindContainerEnd
	KindParagraphStart
)

// RunEntry is one element of the linear run model produced by ingestion
// (C2). See spec.md §3.
type RunEntry struct {
	Kind RunKind
	Text string

	// RunPropertiesXML is the serialized w:rPr for this entry, as written
	// (no whitespace normalization), or "" if the entry carries no
	// formatting (e.g. a sentinel).
	RunPropertiesXML string

	StartOffset int
	EndOffset   int

	Author         string // tracked-change author, if Kind == KindDeletion/KindInsertion
	NodeXML        string // pass-through serialization for sentinel kinds
	RelationshipID string // w:hyperlink r:id
	Anchor         string // w:hyperlink w:anchor

	// RefID/RefType identify a footnote/endnote reference entry (its
	// w:id and "footnote"/"endnote"), so reconstruction can translate
	// {{__FN_id__}}/{{__EN_id__}} tokens back to this entry's sentinel
	// char. Empty for every other RunEntry kind.
	RefID   string
	RefType string

	// Elem is the originating element, retained so later stages can locate
	// it in the live tree without re-walking.
	Elem *etree.Element
	// Run is the nearest ancestor <w:r>, when applicable.
	Run *etree.Element
}

// Len returns the accepted-text length this entry contributes.
func (r RunEntry) Len() int { return r.EndOffset - r.StartOffset }

// TextSpan is a span discovered during in-place (surgical) processing.
// See spec.md §3.
type TextSpan struct {
	CharStart, CharEnd int
	TextElem           *etree.Element // w:t / w:br / w:cr / w:tab / w:noBreakHyphen
	Run                *etree.Element // parent w:r
	Paragraph          *etree.Element // ancestor w:p
	Container          *etree.Element // w:body / w:tc / w:hdr / ...
	RPr                *etree.Element // run's w:rPr, nil if absent
}

// Len returns the span's character length.
func (s TextSpan) Len() int { return s.CharEnd - s.CharStart }

// Format is the set of boolean formatting flags FormatHint and run
// properties deal in. Extendable (spec.md §3 says "extendable").
type Format struct {
	Bold          bool
	Italic        bool
	Underline     bool
	Strikethrough bool
}

// Merge overlays other on top of f; true flags in other win (used when
// hints overlap — "later flags override earlier", spec.md §4.6).
func (f Format) Merge(other Format) Format {
	out := f
	if other.Bold {
		out.Bold = true
	}
	if other.Italic {
		out.Italic = true
	}
	if other.Underline {
		out.Underline = true
	}
	if other.Strikethrough {
		out.Strikethrough = true
	}
	return out
}

// Equal reports whether f and other have identical flags.
func (f Format) Equal(other Format) bool {
	return f == other
}

// Any reports whether any flag is set.
func (f Format) Any() bool {
	return f.Bold || f.Italic || f.Underline || f.Strikethrough
}

// FormatHint is a positional format record recovered from markdown, or
// synthesized when scanning existing rPr formatting. Offsets index the
// *clean* text they were extracted from. See spec.md §3/§4.4.
type FormatHint struct {
	Start, End int
	Format     Format
}

// Overlaps reports whether the hint's range intersects [start, end).
func (h FormatHint) Overlaps(start, end int) bool {
	return h.Start < end && h.End > start
}

// ParagraphInfo aggregates a single body paragraph for surgical/format
// targeting (spec.md §3).
type ParagraphInfo struct {
	Elem         *etree.Element
	Spans        []TextSpan
	Text         string // reconstructed text of just this paragraph
	Normalized   string // CR->LF, NBSP->space, for comparison
	StartOffset  int    // cumulative start offset in the whole document
}

// MergeRole is a VirtualCell's part in a gridSpan/vMerge merge.
type MergeRole int

const (
	MergeNone MergeRole = iota
	MergeVStart
	MergeVContinue
	MergeSpanOrigin
	MergeSpanContinue
)

// VirtualCell is one logical cell of a table's virtual grid (spec.md §3).
type VirtualCell struct {
	Elem       *etree.Element // original w:tc, nil for a continuation placeholder
	Text       string
	Role       MergeRole
	RowSpan    int
	ColSpan    int
	OriginRow  int // for continuations: the row of the origin cell
	OriginCol  int // for continuations: the col of the origin cell
}

// VirtualGrid is the dense row/col representation of a w:tbl after
// expanding gridSpan/vMerge (spec.md §3, §4.11).
type VirtualGrid struct {
	Rows     [][]VirtualCell
	RowElems []*etree.Element // original w:tr per row
	ColCount int
}

// Sentinel code points (spec.md §3).
const (
	SentinelObject  rune = '\uFFFC' // most embedded objects / containers
	SentinelRefBase rune = '\uE000' // private-use base for footnote/endnote refs
)

// Revision is the {id, author, date} tuple attached to every tracked
// change (spec.md §3).
type Revision struct {
	ID     int
	Author string
	Date   string // ISO-8601 UTC
}

// Options controls a single reconciliation call (spec.md §6).
type Options struct {
	Author              string
	GenerateRedlines    bool
	TargetParagraphID   string
	IsolatedTableCell   bool
	Font                string
}

// Result is the uniform return shape for every public entry point
// (spec.md §7).
type Result struct {
	OXML              string
	HasChanges        bool
	Warnings          []string
	UseNativeAPI      bool
	NumberingFragment string // companion output from list generation, if any
}
