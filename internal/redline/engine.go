package redline

import (
	"strings"

	"github.com/beevik/etree"

	"github.com/vortex/docx-redline/internal/ooxml"
)

// ApplyRedlineToOxml is the engine's primary public entry point (spec.md
// §6): reconciles oxml against modifiedText, scoped to originalText when
// oxml contains more content than just the target, and returns the
// modified fragment plus whether anything changed.
func ApplyRedlineToOxml(oxml, originalText, modifiedText string, opts Options) Result {
	return applyRedline(oxml, originalText, modifiedText, opts)
}

// ApplyRedlineToOxmlWithListFallback is the secondary entry point (spec.md
// §6): if the primary call reports no changes but modifiedText begins with
// a list marker, force a structural list conversion instead of leaving the
// text untouched.
func ApplyRedlineToOxmlWithListFallback(oxmlStr, originalText, modifiedText string, opts Options) Result {
	res := ApplyRedlineToOxml(oxmlStr, originalText, modifiedText, opts)
	if res.HasChanges {
		return res
	}

	sanitized := sanitizeModifiedText(modifiedText)
	cleanText, _ := PreprocessMarkdown(sanitized)
	firstLine, _, _ := strings.Cut(cleanText, "\n")
	if _, ok := detectListMarker(firstLine); !ok {
		return res
	}

	forced := forceListConversion(oxmlStr, originalText, sanitized, opts)
	if !forced.HasChanges {
		return res
	}
	return forced
}

// forceListConversion re-parses oxmlStr and runs the list-generation
// pipeline (C10) unconditionally over whatever scope the router would
// otherwise have chosen, bypassing C13's step 5 branch decision.
func forceListConversion(oxmlStr, originalText, listText string, opts Options) Result {
	root, form, err := ooxml.Parse(oxmlStr)
	if err != nil {
		return Result{OXML: oxmlStr, HasChanges: false, Warnings: []string{err.Error()}}
	}

	author := opts.Author
	if author == "" {
		author = "docx-redline"
	}
	rev := newRevision(globalRevisionCounter, author)
	svc := NewNumberingService(1)

	switch form {
	case ooxml.FormParagraph:
		container := wrapParagraphForProcessing(root)
		newParas := GenerateList(root, listText, rev, opts.GenerateRedlines, opts.Font, svc)
		if newParas == nil {
			out, _ := serializeParagraphEnvelope(container)
			return Result{OXML: out, HasChanges: false}
		}
		spliceParagraphs([]*etree.Element{root}, newParas, container)
		out, serr := serializeParagraphEnvelope(container)
		if serr != nil {
			return Result{HasChanges: false, Warnings: []string{serr.Error()}}
		}
		return Result{OXML: out, HasChanges: true, NumberingFragment: svc.Fragment()}

	case ooxml.FormDocumentBody, ooxml.FormPackage:
		body := locateBody(root, form)
		if body == nil {
			out, _ := ooxml.Serialize(root)
			return Result{OXML: out, HasChanges: false}
		}
		paragraphs, _ := topLevelContent(body)
		var original *etree.Element
		var target []*etree.Element
		if originalText != "" {
			infos := collectParagraphInfos(paragraphs, body)
			if info, _, found := findTargetParagraphInfo(infos, originalText); found {
				original = info.Elem
				target = []*etree.Element{info.Elem}
			}
		}
		if target == nil && len(paragraphs) > 0 {
			original = paragraphs[0]
			target = paragraphs
		}
		newParas := GenerateList(original, listText, rev, opts.GenerateRedlines, opts.Font, svc)
		if newParas == nil {
			out, _ := ooxml.Serialize(root)
			return Result{OXML: out, HasChanges: false}
		}
		spliceParagraphs(target, newParas, body)
		out, serr := ooxml.Serialize(root)
		if serr != nil {
			return Result{HasChanges: false, Warnings: []string{serr.Error()}}
		}
		return Result{OXML: out, HasChanges: true, NumberingFragment: svc.Fragment()}

	default:
		return Result{OXML: oxmlStr, HasChanges: false}
	}
}
