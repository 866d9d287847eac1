package redline

import (
	"strings"

	"github.com/beevik/etree"

	"github.com/vortex/docx-redline/internal/ooxml"
)

// aiAssistantPrefixes are common lead-ins an LLM-authored modified-text
// string arrives with; sanitizeModifiedText strips the first one it finds
// at the very start of the string (spec.md §4.13 step 3).
var aiAssistantPrefixes = []string{
	"Here is the revised text:",
	"Here's the revised text:",
	"Here is the updated text:",
	"Here's the updated text:",
	"Here is the updated paragraph:",
	"Sure, here is the updated text:",
	"Sure, here's the updated version:",
	"Revised text:",
	"Updated text:",
}

// sanitizeModifiedText strips a leading assistant preamble, unwraps a
// whole-string LaTeX `$\text{...}$` wrapper, and un-escapes literal `\n`
// sequences into real newlines (spec.md §4.13 step 3).
func sanitizeModifiedText(s string) string {
	s = stripAssistantPrefix(s)
	s = stripLatexTextWrapper(s)
	s = strings.ReplaceAll(s, `\n`, "\n")
	return s
}

func stripAssistantPrefix(s string) string {
	trimmed := strings.TrimLeft(s, " \t\r\n")
	for _, p := range aiAssistantPrefixes {
		if strings.HasPrefix(trimmed, p) {
			return strings.TrimLeft(strings.TrimPrefix(trimmed, p), " \t\r\n")
		}
	}
	return s
}

func stripLatexTextWrapper(s string) string {
	t := strings.TrimSpace(s)
	const open, close = `$\text{`, `}$`
	if strings.HasPrefix(t, open) && strings.HasSuffix(t, close) && len(t) > len(open)+len(close) {
		return t[len(open) : len(t)-len(close)]
	}
	return s
}

// branchResult is decideAndApply's internal return shape before it gets
// folded into a public Result by whichever root-form router called it.
type branchResult struct {
	changed           bool
	useNativeAPI      bool
	warnings          []string
	numberingFragment string
}

// applyRedline parses inputOXML and routes it to the applicable
// reconciliation mode (C13, spec.md §4.13).
func applyRedline(inputOXML, originalText, modifiedText string, opts Options) Result {
	root, form, err := ooxml.Parse(inputOXML)
	if err != nil {
		return Result{OXML: inputOXML, HasChanges: false, Warnings: []string{newParseError(err, "redline: parse input").Error()}}
	}
	return routeParsed(root, form, originalText, modifiedText, opts)
}

func routeParsed(root *etree.Element, form ooxml.RootForm, originalText, modifiedText string, opts Options) Result {
	author := opts.Author
	if author == "" {
		author = "docx-redline"
	}

	// C12: the caller handed us a whole table but means one paragraph
	// inside a cell. Isolate it and recurse with isolatedTableCell set,
	// then splice the (possibly changed) paragraph back in.
	if form == ooxml.FormTable && !opts.IsolatedTableCell {
		if p, tc, ok := FindTableCellParagraph(root, originalText, opts.TargetParagraphID); ok {
			return routeIsolatedTableCell(root, p, tc, originalText, modifiedText, opts)
		}
	}

	modifiedText = sanitizeModifiedText(modifiedText)
	cleanText, hints := PreprocessMarkdown(modifiedText)
	rev := newRevision(globalRevisionCounter, author)

	switch form {
	case ooxml.FormParagraph:
		return routeSingleParagraph(root, cleanText, hints, opts, rev)
	case ooxml.FormTable:
		return routeTable(root, cleanText, opts, rev)
	case ooxml.FormDocumentBody, ooxml.FormPackage:
		return routeBody(root, form, originalText, cleanText, hints, opts, rev)
	default:
		out, _ := ooxml.Serialize(root)
		return Result{OXML: out, HasChanges: false, Warnings: []string{"redline: unrecognized root form"}}
	}
}

// routeIsolatedTableCell implements the isolate/recurse/splice-back half
// of C12 and the envelope-unwrap half of C13 step 6.
func routeIsolatedTableCell(root, p, tc *etree.Element, originalText, modifiedText string, opts Options) Result {
	pXML, err := ooxml.Serialize(p)
	if err != nil {
		out, _ := ooxml.Serialize(root)
		return Result{OXML: out, HasChanges: false, Warnings: []string{err.Error()}}
	}

	subOpts := opts
	subOpts.IsolatedTableCell = true
	sub := applyRedline(pXML, originalText, modifiedText, subOpts)

	if sub.HasChanges {
		if newRoot, newForm, perr := ooxml.Parse(sub.OXML); perr == nil {
			var replacement []*etree.Element
			switch newForm {
			case ooxml.FormParagraph:
				replacement = []*etree.Element{newRoot}
			case ooxml.FormDocumentBody:
				if body := ooxml.Body(newRoot); body != nil {
					replacement = ooxml.Children(body, "w:p")
				}
			}
			if len(replacement) > 0 {
				ReplaceParagraphInCell(tc, p, replacement)
			}
		}
	}

	out, err := ooxml.Serialize(root)
	if err != nil {
		return Result{OXML: pXML, HasChanges: sub.HasChanges, Warnings: append(sub.Warnings, err.Error())}
	}
	return Result{OXML: out, HasChanges: sub.HasChanges, Warnings: sub.Warnings, NumberingFragment: sub.NumberingFragment}
}

// routeSingleParagraph handles a bare <w:p> root (input form (c)).
func routeSingleParagraph(p *etree.Element, cleanText string, hints []FormatHint, opts Options, rev Revision) Result {
	container := wrapParagraphForProcessing(p)
	res := decideAndApply([]*etree.Element{p}, container, cleanText, hints, opts, rev, false)

	out, err := serializeParagraphEnvelope(container)
	if err != nil {
		return Result{HasChanges: false, Warnings: append(res.warnings, err.Error())}
	}
	return Result{
		OXML: out, HasChanges: res.changed, Warnings: res.warnings,
		UseNativeAPI: res.useNativeAPI, NumberingFragment: res.numberingFragment,
	}
}

// routeTable handles a bare <w:tbl> root (input form (d)): only table-to-
// table reconciliation applies at this scope — paragraph-level edits
// inside a cell are routed through C12 isolation before reaching here.
func routeTable(tbl *etree.Element, cleanText string, opts Options, rev Revision) Result {
	if _, ok := ParseMarkdownTable(cleanText); ok {
		changed, ok2 := ReconcileTable(tbl, cleanText, rev, opts.GenerateRedlines)
		if ok2 {
			out, err := serializeRoot(tbl)
			if err != nil {
				return Result{HasChanges: false, Warnings: []string{err.Error()}}
			}
			return Result{OXML: out, HasChanges: changed}
		}
	}

	out, err := serializeRoot(tbl)
	if err != nil {
		return Result{HasChanges: false, Warnings: []string{err.Error()}}
	}
	return Result{
		OXML: out, HasChanges: false,
		Warnings: []string{newTableShapeMismatchError("redline: modified text is not a compatible table").Error()},
	}
}

// routeBody handles a standalone w:document/w:body root or a whole
// package container (input forms (a)/(b)).
func routeBody(root *etree.Element, form ooxml.RootForm, originalText, cleanText string, hints []FormatHint, opts Options, rev Revision) Result {
	body := locateBody(root, form)
	if body == nil {
		out, _ := ooxml.Serialize(root)
		return Result{OXML: out, HasChanges: false, Warnings: []string{"redline: could not locate document body"}}
	}

	paragraphs, _ := topLevelContent(body)

	// Common case: originalText describes the whole editable region.
	_, wholeText := IngestParagraphs(paragraphs)
	if originalText == "" || normalizeForCompare(trimSpaceStr(wholeText)) == normalizeForCompare(trimSpaceStr(originalText)) {
		res := decideAndApply(paragraphs, body, cleanText, hints, opts, rev, false)
		return finalizeBodyResult(root, res)
	}

	// Otherwise scope to whichever single paragraph matches originalText.
	infos := collectParagraphInfos(paragraphs, body)
	info, _, found := findTargetParagraphInfo(infos, originalText)
	if !found {
		res := decideAndApply(paragraphs, body, cleanText, hints, opts, rev, true)
		res.warnings = append(res.warnings, newNoTargetFoundError("redline: no paragraph matches original text").Error())
		return finalizeBodyResult(root, res)
	}

	res := decideAndApply([]*etree.Element{info.Elem}, body, cleanText, hints, opts, rev, false)
	return finalizeBodyResult(root, res)
}

func finalizeBodyResult(root *etree.Element, res branchResult) Result {
	out, err := serializeRoot(root)
	if err != nil {
		return Result{HasChanges: false, Warnings: append(res.warnings, err.Error())}
	}
	return Result{
		OXML: out, HasChanges: res.changed, Warnings: res.warnings,
		UseNativeAPI: res.useNativeAPI, NumberingFragment: res.numberingFragment,
	}
}

// decideAndApply implements C13 step 5's branch selection over a scoped
// paragraph set. container is the nearest structural ancestor (a
// synthetic w:body for a bare-paragraph input, or the real body) that new
// sibling paragraphs/tables get inserted into.
func decideAndApply(paragraphs []*etree.Element, container *etree.Element, cleanText string, hints []FormatHint, opts Options, rev Revision, noTargetFound bool) branchResult {
	_, origText := IngestParagraphs(paragraphs)
	ops := DiffText(origText, cleanText)
	textChanged := HasChanges(ops)

	spans, _ := CollectSpans(paragraphs, container)
	existingFormatting := anySpanFormatted(spans)

	if !textChanged && len(hints) == 0 {
		if !existingFormatting {
			return branchResult{changed: false, useNativeAPI: noTargetFound}
		}
		applyFormatRemovalAsSurgicalReplacement(spans, rev, opts.GenerateRedlines)
		return branchResult{changed: true}
	}

	if !textChanged && len(hints) > 0 {
		split := splitSpansAtBoundaries(spans, boundarySet(0, len(origText), hints))
		applyFormatAdditionsAsSurgicalReplacement(split, hints, rev, opts.GenerateRedlines)
		return branchResult{changed: true}
	}

	hasTable := containsTable(container)

	if !hasTable {
		if _, ok := ParseMarkdownTable(cleanText); ok {
			_, built := GenerateTableFromText(paragraphs, container, cleanText, rev, opts.GenerateRedlines)
			if built {
				return branchResult{changed: true}
			}
		}
	} else {
		if _, ok := ParseMarkdownTable(cleanText); ok {
			if tbl := firstTable(container); tbl != nil {
				if changed, ok2 := ReconcileTable(tbl, cleanText, rev, opts.GenerateRedlines); ok2 {
					return branchResult{changed: changed}
				}
			}
		}
		changed := ApplySurgical(paragraphs, container, cleanText, hints, rev, opts.GenerateRedlines)
		return branchResult{changed: changed}
	}

	if IsListTarget(cleanText) {
		var original *etree.Element
		if len(paragraphs) > 0 {
			original = paragraphs[0]
		}
		svc := NewNumberingService(1)
		newParas := GenerateList(original, cleanText, rev, opts.GenerateRedlines, opts.Font, svc)
		if newParas != nil {
			spliceParagraphs(paragraphs, newParas, container)
			return branchResult{changed: true, numberingFragment: svc.Fragment()}
		}
	}

	changed := ApplyReconstruction(paragraphs, container, cleanText, hints, rev, opts.GenerateRedlines)
	return branchResult{changed: changed}
}

func anySpanFormatted(spans []TextSpan) bool {
	for _, s := range spans {
		if extractFormatFromRPr(s.RPr).Any() {
			return true
		}
	}
	return false
}

func containsTable(container *etree.Element) bool {
	return len(ooxml.Children(container, "w:tbl")) > 0
}

func firstTable(container *etree.Element) *etree.Element {
	tbls := ooxml.Children(container, "w:tbl")
	if len(tbls) == 0 {
		return nil
	}
	return tbls[0]
}

// locateBody finds the w:body reachable from root for a document-body or
// package root, descending into a package's document part when needed.
func locateBody(root *etree.Element, form ooxml.RootForm) *etree.Element {
	if form == ooxml.FormDocumentBody {
		return ooxml.Body(root)
	}
	if doc := findDescendant(root, "w:document"); doc != nil {
		return ooxml.Body(doc)
	}
	return findDescendant(root, "w:body")
}

// findDescendant walks el's subtree (not including el itself) for the
// first element matching nstag, depth-first.
func findDescendant(el *etree.Element, nstag string) *etree.Element {
	for _, c := range el.ChildElements() {
		if ooxml.Is(c, nstag) {
			return c
		}
		if found := findDescendant(c, nstag); found != nil {
			return found
		}
	}
	return nil
}

// topLevelContent splits body's direct children into paragraphs and
// tables, in document order.
func topLevelContent(body *etree.Element) (paragraphs []*etree.Element, tables []*etree.Element) {
	for _, c := range body.ChildElements() {
		switch {
		case ooxml.Is(c, "w:p"):
			paragraphs = append(paragraphs, c)
		case ooxml.Is(c, "w:tbl"):
			tables = append(tables, c)
		}
	}
	return paragraphs, tables
}

// collectParagraphInfos builds one ParagraphInfo per paragraph, with
// cumulative StartOffset across the whole set (spec.md §3).
func collectParagraphInfos(paragraphs []*etree.Element, container *etree.Element) []ParagraphInfo {
	infos := make([]ParagraphInfo, 0, len(paragraphs))
	offset := 0
	for _, p := range paragraphs {
		spans, text := CollectSpans([]*etree.Element{p}, container)
		infos = append(infos, ParagraphInfo{
			Elem: p, Spans: spans, Text: text,
			Normalized: normalizeForCompare(text), StartOffset: offset,
		})
		offset += len(text) + 1
	}
	return infos
}
