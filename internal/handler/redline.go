package handler

import (
	"encoding/json"
	"net/http"

	"github.com/vortex/docx-redline/internal/redline"
	"github.com/vortex/docx-redline/pkg/response"
)

// RedlineHandler exposes the reconciliation engine over HTTP.
type RedlineHandler struct {
	defaultAuthor   string
	defaultRedlines bool
}

// NewRedlineHandler creates a handler with the given fallback defaults,
// used whenever a request omits the corresponding option field.
func NewRedlineHandler(defaultAuthor string, defaultRedlines bool) *RedlineHandler {
	return &RedlineHandler{defaultAuthor: defaultAuthor, defaultRedlines: defaultRedlines}
}

// applyRequest is the JSON body for POST /api/v1/redline/apply.
type applyRequest struct {
	OXML         string        `json:"oxml"`
	OriginalText string        `json:"originalText"`
	ModifiedText string        `json:"modifiedText"`
	Options      *applyOptions `json:"options"`
}

type applyOptions struct {
	Author            string `json:"author"`
	GenerateRedlines  *bool  `json:"generateRedlines"`
	TargetParagraphID string `json:"targetParagraphId"`
	Font              string `json:"font"`
	ListFallback      bool   `json:"listFallback"`
}

// applyResponse mirrors redline.Result for JSON output.
type applyResponse struct {
	OXML              string   `json:"oxml"`
	HasChanges        bool     `json:"hasChanges"`
	Warnings          []string `json:"warnings,omitempty"`
	UseNativeAPI      bool     `json:"useNativeApi"`
	NumberingFragment string   `json:"numberingFragment,omitempty"`
}

// Apply handles POST /api/v1/redline/apply
// Reconciles an OOXML fragment against the desired text, returning the
// fragment with tracked revisions applied.
func (h *RedlineHandler) Apply(w http.ResponseWriter, r *http.Request) {
	var req applyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	if req.OXML == "" {
		response.Error(w, http.StatusBadRequest, "oxml is required")
		return
	}

	opts := redline.Options{
		Author:           h.defaultAuthor,
		GenerateRedlines: h.defaultRedlines,
	}
	listFallback := false
	if req.Options != nil {
		if req.Options.Author != "" {
			opts.Author = req.Options.Author
		}
		if req.Options.GenerateRedlines != nil {
			opts.GenerateRedlines = *req.Options.GenerateRedlines
		}
		opts.TargetParagraphID = req.Options.TargetParagraphID
		opts.Font = req.Options.Font
		listFallback = req.Options.ListFallback
	}

	var res redline.Result
	if listFallback {
		res = redline.ApplyRedlineToOxmlWithListFallback(req.OXML, req.OriginalText, req.ModifiedText, opts)
	} else {
		res = redline.ApplyRedlineToOxml(req.OXML, req.OriginalText, req.ModifiedText, opts)
	}

	response.JSON(w, http.StatusOK, applyResponse{
		OXML:              res.OXML,
		HasChanges:        res.HasChanges,
		Warnings:          res.Warnings,
		UseNativeAPI:      res.UseNativeAPI,
		NumberingFragment: res.NumberingFragment,
	})
}
