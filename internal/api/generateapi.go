package api

import (
	"net/http"
	"strings"

	"github.com/nborup/skribent/internal/generate"
	"github.com/nborup/skribent/internal/models"
)

type generateHandler struct {
	deps Deps
}

type generateRequest struct {
	Keywords       string `json:"keywords"`
	Profile        string `json:"profile"`
	TextLength     int    `json:"text_length"`
	IncludeMeta    *bool  `json:"include_meta"`
	ContentType    string `json:"content_type"`
	TargetAudience string `json:"target_audience"`
	Purpose        string `json:"content_purpose"`
}

// resolveProfile loads the named profile, falling back to the currently
// selected one.
func (h *generateHandler) resolveProfile(name string) (models.Profile, error) {
	if strings.TrimSpace(name) != "" {
		return h.deps.Profiles.Get(name)
	}
	return h.deps.Profiles.Current()
}

func (h *generateHandler) buildRequest(req generateRequest) (generate.Request, error) {
	p, err := h.resolveProfile(req.Profile)
	if err != nil {
		return generate.Request{}, err
	}
	includeMeta := true
	if req.IncludeMeta != nil {
		includeMeta = *req.IncludeMeta
	}
	return generate.Request{
		Keywords:       req.Keywords,
		Profile:        p,
		TextLength:     req.TextLength,
		IncludeMeta:    includeMeta,
		ContentType:    req.ContentType,
		TargetAudience: req.TargetAudience,
		Purpose:        req.Purpose,
	}, nil
}

// Generate handles POST /api/enhanced-generate-seo.
func (h *generateHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	greq, err := h.buildRequest(req)
	if err != nil {
		writeError(w, err)
		return
	}
	text, err := h.deps.Generator.Generate(r.Context(), greq)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, text)
}

// Variations handles POST /api/generate-seo-variations.
func (h *generateHandler) Variations(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Keywords string `json:"keywords"`
		Count    int    `json:"count"`
		Profile  string `json:"profile"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	p, err := h.resolveProfile(req.Profile)
	if err != nil {
		writeError(w, err)
		return
	}
	texts, err := h.deps.Generator.Variations(r.Context(), req.Keywords, req.Count, p)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"variations": texts})
}

// Batch handles POST /api/batch-generate-seo. Items are processed
// sequentially; per-item failures are reported through SSE progress events
// and the batch continues.
func (h *generateHandler) Batch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Keywords []string `json:"keywords"`
		generateRequest
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if len(req.Keywords) == 0 {
		writeJSON(w, http.StatusBadRequest, errorBody("keywords list is required"))
		return
	}

	base, err := h.buildRequest(req.generateRequest)
	if err != nil {
		writeError(w, err)
		return
	}
	reqs := make([]generate.Request, 0, len(req.Keywords))
	for _, kw := range req.Keywords {
		item := base
		item.Keywords = kw
		reqs = append(reqs, item)
	}

	var progress generate.Progress
	if h.deps.Broker != nil {
		progress = func(done, total int, keywords string, err error) {
			h.deps.Broker.PublishProgress("generation", done, total, keywords, err)
		}
	}
	texts, err := h.deps.Generator.BatchGenerate(r.Context(), reqs, progress)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"results":   texts,
		"generated": len(texts),
		"requested": len(req.Keywords),
	})
}

// EditSelection handles POST /api/ai-edit-selection and
// POST /api/revision-request.
func (h *generateHandler) EditSelection(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Instruction  string `json:"instruction"`
		SelectedText string `json:"selected_text"`
		Text         string `json:"text"`
		Profile      string `json:"profile"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	original := req.SelectedText
	if original == "" {
		original = req.Text
	}
	p, err := h.resolveProfile(req.Profile)
	if err != nil {
		writeError(w, err)
		return
	}
	revised, err := h.deps.Generator.EditSelection(r.Context(), req.Instruction, original, p)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"text": revised})
}

// GenerateText handles POST /api/generate-text, a raw prompt completion
// with no SEO structure applied.
func (h *generateHandler) GenerateText(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Prompt      string  `json:"prompt"`
		Temperature float32 `json:"temperature"`
		Profile     string  `json:"profile"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Temperature <= 0 {
		req.Temperature = 0.7
	}
	p, err := h.resolveProfile(req.Profile)
	if err != nil {
		writeError(w, err)
		return
	}
	out, err := h.deps.Generator.Complete(r.Context(), req.Prompt, req.Temperature, p.APIKey)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "success",
		"generated_text": out,
	})
}

// QuickTranslate handles POST /api/quick-translate, a one-off HTML-preserving
// translation outside any CSV session.
func (h *generateHandler) QuickTranslate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text           string `json:"text"`
		TargetLanguage string `json:"target_language"`
		APIKey         string `json:"api_key"`
		Profile        string `json:"profile"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	apiKey := req.APIKey
	if apiKey == "" {
		if p, err := h.resolveProfile(req.Profile); err == nil {
			apiKey = p.APIKey
		}
	}
	out, err := h.deps.Generator.Translate(r.Context(), req.Text, req.TargetLanguage, apiKey)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"translated_text": out})
}
