package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/nborup/skribent/internal/apperr"
	"github.com/nborup/skribent/internal/autosave"
	"github.com/nborup/skribent/internal/models"
)

type textHandler struct {
	deps Deps
}

func textKey(profile, name string) string {
	return profile + "/" + name
}

// List handles GET /api/texts.
func (h *textHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	items, total, err := h.deps.Texts.ListTexts(r.Context(), q.Get("profile"), limit, offset, q.Get("sort"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"texts": items,
		"total": total,
	})
}

// ListSaved handles GET /api/saved-texts, scoped to the current profile.
// With no profile selected it returns an empty set rather than an error.
func (h *textHandler) ListSaved(w http.ResponseWriter, r *http.Request) {
	current, err := h.deps.Profiles.Current()
	if errors.Is(err, apperr.ErrNoProfile) {
		writeJSON(w, http.StatusOK, map[string]any{"saved_texts": []models.SavedText{}})
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}
	items, _, err := h.deps.Texts.ListTexts(r.Context(), current.Name, 0, 0, "")
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"saved_texts": items})
}

// DeleteSaved handles DELETE /api/saved-texts/{name} for the current profile.
func (h *textHandler) DeleteSaved(w http.ResponseWriter, r *http.Request) {
	current, err := h.deps.Profiles.Current()
	if err != nil {
		writeError(w, err)
		return
	}
	name := chi.URLParam(r, "name")
	key := textKey(current.Name, name)
	h.deps.AutoSave.Cancel(key)
	if err := h.deps.Texts.DeleteText(r.Context(), current.Name, name); err != nil {
		writeError(w, err)
		return
	}
	h.deps.Histories.Drop(key)
	if h.deps.Broker != nil {
		h.deps.Broker.PublishTextEvent("text.deleted", key)
	}
	w.WriteHeader(http.StatusNoContent)
}

// Get handles GET /api/texts/{profile}/{name}.
func (h *textHandler) Get(w http.ResponseWriter, r *http.Request) {
	detail, err := h.deps.Texts.GetText(r.Context(), chi.URLParam(r, "profile"), chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// Save handles POST /api/save-text. An explicit save cancels any pending
// auto-save for the same document and honors If-Match.
func (h *textHandler) Save(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Profile          string `json:"profile"`
		Name             string `json:"name"`
		Title            string `json:"title"`
		Content          string `json:"content"`
		MetaDescription  string `json:"meta_description"`
		Keywords         string `json:"keywords"`
		Category         string `json:"category"`
		FeaturedImageURL string `json:"featured_image_url"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	ifMatch := strings.Trim(r.Header.Get("If-Match"), `"`)
	h.deps.AutoSave.Cancel(textKey(req.Profile, req.Name))

	detail, err := h.deps.Texts.SaveText(r.Context(), models.SavedText{
		Profile:          req.Profile,
		Name:             req.Name,
		Title:            req.Title,
		Content:          req.Content,
		MetaDescription:  req.MetaDescription,
		Keywords:         req.Keywords,
		Category:         req.Category,
		FeaturedImageURL: req.FeaturedImageURL,
	}, ifMatch)
	if err != nil {
		writeError(w, err)
		return
	}
	if h.deps.Broker != nil {
		h.deps.Broker.PublishTextEvent("text.saved", detail.Path)
	}
	writeJSON(w, http.StatusOK, detail)
}

// AutoSave handles POST /api/auto-save-text. The write is debounced: each
// call resets the quiet interval and only the last one persists. Empty
// snapshots are dropped by the controller.
func (h *textHandler) AutoSave(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Profile string `json:"profile"`
		Name    string `json:"name"`
		Title   string `json:"title"`
		Content string `json:"content"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Profile == "" || req.Name == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("profile and name are required"))
		return
	}
	h.deps.AutoSave.Schedule(textKey(req.Profile, req.Name), autosave.Snapshot{
		Title:   req.Title,
		Content: req.Content,
	})
	writeJSON(w, http.StatusAccepted, map[string]any{"scheduled": true})
}

// Delete handles DELETE /api/texts/{profile}/{name}.
func (h *textHandler) Delete(w http.ResponseWriter, r *http.Request) {
	profile := chi.URLParam(r, "profile")
	name := chi.URLParam(r, "name")
	h.deps.AutoSave.Cancel(textKey(profile, name))
	if err := h.deps.Texts.DeleteText(r.Context(), profile, name); err != nil {
		writeError(w, err)
		return
	}
	h.deps.Histories.Drop(textKey(profile, name))
	if h.deps.Broker != nil {
		h.deps.Broker.PublishTextEvent("text.deleted", textKey(profile, name))
	}
	w.WriteHeader(http.StatusNoContent)
}

// Rename handles POST /api/texts/rename.
func (h *textHandler) Rename(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Profile string `json:"profile"`
		OldName string `json:"old_name"`
		NewName string `json:"new_name"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	detail, err := h.deps.Texts.RenameText(r.Context(), req.Profile, req.OldName, req.NewName)
	if err != nil {
		writeError(w, err)
		return
	}
	h.deps.AutoSave.Cancel(textKey(req.Profile, req.OldName))
	h.deps.Histories.Drop(textKey(req.Profile, req.OldName))
	if h.deps.Broker != nil {
		h.deps.Broker.PublishTextEvent("text.saved", detail.Path)
	}
	writeJSON(w, http.StatusOK, detail)
}

// Search handles GET /api/search.
func (h *textHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.deps.Texts.Search(r.Context(), q, r.URL.Query().Get("profile"), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

// ExportMarkdown handles GET /api/texts/{profile}/{name}/export.
func (h *textHandler) ExportMarkdown(w http.ResponseWriter, r *http.Request) {
	data, filename, err := h.deps.Texts.ExportMarkdown(r.Context(), chi.URLParam(r, "profile"), chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// Settings handles GET /api/settings, a light status endpoint for the UI.
func (h *textHandler) Settings(w http.ResponseWriter, r *http.Request) {
	current, err := h.deps.Profiles.Current()
	hasProfile := err == nil
	if err != nil && !errors.Is(err, apperr.ErrNoProfile) {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"profiles":           len(h.deps.Profiles.List()),
		"current_profile":    current.Name,
		"api_key_configured": hasProfile && current.APIKey != "",
		"shopify_configured": hasProfile && current.Shopify.StoreURL != "" && current.Shopify.APIToken != "",
	})
}
