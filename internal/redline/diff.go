package redline

import (
	"regexp"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// DiffOp is one element of a word-granular diff (spec.md §4.3).
type DiffOp struct {
	Op   int // -1 delete, 0 equal, +1 insert
	Text string
}

// tokenPattern splits text into maximal runs of word characters,
// maximal runs of whitespace, or single punctuation characters — the
// "word-granular" tokenization spec.md §4.3 calls for, so a diff never
// has to split a word across an insert/delete boundary.
var tokenPattern = regexp.MustCompile(`\s+|\w+|[^\s\w]`)

// tokenize splits s into its diffable atoms, preserving every byte
// (concatenating the returned tokens reproduces s exactly).
func tokenize(s string) []string {
	return tokenPattern.FindAllString(s, -1)
}

// DiffText computes a word-granular diff between original and modified,
// wrapping difflib's Myers-style SequenceMatcher (spec.md §4.3). A
// "replace" opcode is expanded into a delete immediately followed by an
// insert, since the engine has no "replace" primitive of its own.
//
// Guarantee: concatenating every op with Op<=0 reproduces original;
// concatenating every op with Op>=0 reproduces modified.
func DiffText(original, modified string) []DiffOp {
	a := tokenize(original)
	b := tokenize(modified)

	matcher := difflib.NewMatcher(a, b)
	var ops []DiffOp
	for _, oc := range matcher.GetOpCodes() {
		switch oc.Tag {
		case 'e':
			ops = append(ops, DiffOp{Op: 0, Text: strings.Join(a[oc.I1:oc.I2], "")})
		case 'd':
			ops = append(ops, DiffOp{Op: -1, Text: strings.Join(a[oc.I1:oc.I2], "")})
		case 'i':
			ops = append(ops, DiffOp{Op: +1, Text: strings.Join(b[oc.J1:oc.J2], "")})
		case 'r':
			ops = append(ops, DiffOp{Op: -1, Text: strings.Join(a[oc.I1:oc.I2], "")})
			ops = append(ops, DiffOp{Op: +1, Text: strings.Join(b[oc.J1:oc.J2], "")})
		}
	}
	return mergeAdjacentOps(ops)
}

// mergeAdjacentOps coalesces consecutive ops of the same kind, which
// GetOpCodes never emits itself but a delete+insert expansion can
// produce at a replace/replace boundary.
func mergeAdjacentOps(ops []DiffOp) []DiffOp {
	if len(ops) == 0 {
		return ops
	}
	out := ops[:1]
	for _, op := range ops[1:] {
		last := &out[len(out)-1]
		if last.Op == op.Op {
			last.Text += op.Text
		} else {
			out = append(out, op)
		}
	}
	return out
}

// HasChanges reports whether ops contains any non-equal operation.
func HasChanges(ops []DiffOp) bool {
	for _, op := range ops {
		if op.Op != 0 {
			return true
		}
	}
	return false
}
