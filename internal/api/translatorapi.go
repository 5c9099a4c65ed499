package api

import (
	"context"
	"net/http"
	"time"

	"github.com/nborup/skribent/internal/translator"
)

type translatorHandler struct {
	deps Deps
}

const maxCSVUpload = 20 << 20

// Upload handles POST /api/upload-csv (multipart, repeated "files" fields).
func (h *translatorHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxCSVUpload)
	if err := r.ParseMultipartForm(maxCSVUpload); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("file too large or invalid multipart"))
		return
	}
	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		files = r.MultipartForm.File["file"]
	}
	if len(files) == 0 {
		writeJSON(w, http.StatusBadRequest, errorBody("no CSV files provided"))
		return
	}

	loaded := make([]translator.FileStats, 0, len(files))
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("failed to read upload"))
			return
		}
		file, err := h.deps.Translator.LoadCSV(fh.Filename, f)
		f.Close()
		if err != nil {
			writeError(w, err)
			return
		}
		for _, stats := range h.deps.Translator.Files() {
			if stats.ID == file.ID {
				loaded = append(loaded, stats)
			}
		}
	}
	writeJSON(w, http.StatusCreated, map[string]any{"files": loaded})
}

// Files handles GET /api/csv-files.
func (h *translatorHandler) Files(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"files": h.deps.Translator.Files()})
}

// Remove handles POST /api/remove-csv-file.
func (h *translatorHandler) Remove(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FileID string `json:"file_id"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.deps.Translator.RemoveFile(req.FileID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"files": h.deps.Translator.Files()})
}

func filterFromQuery(r *http.Request) translator.Filter {
	q := r.URL.Query()
	return translator.Filter{
		Query:            q.Get("query"),
		OnlyUntranslated: q.Get("only_untranslated") == "true" || q.Get("only_untranslated") == "1",
		LongOnly:         q.Get("long_only") == "true" || q.Get("long_only") == "1",
		ShortOnly:        q.Get("short_only") == "true" || q.Get("short_only") == "1",
		Locale:           q.Get("locale"),
	}
}

// Preview handles GET /api/csv-preview. Filtering is a view: rows keep
// their IDs and data regardless of visibility.
func (h *translatorHandler) Preview(w http.ResponseWriter, r *http.Request) {
	f := filterFromQuery(r)
	rows := h.deps.Translator.Rows(f)
	total, visible, changed := h.deps.Translator.Counts(f)
	writeJSON(w, http.StatusOK, map[string]any{
		"rows":         rows,
		"total_rows":   total,
		"visible_rows": visible,
		"changed_rows": changed,
	})
}

// FilterUntranslated handles POST /api/filter-untranslated, the working-set
// view the translation grid is built from.
func (h *translatorHandler) FilterUntranslated(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Query    string `json:"query"`
		LongOnly bool   `json:"long_only"`
		Locale   string `json:"locale"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	f := translator.Filter{
		Query:            req.Query,
		OnlyUntranslated: true,
		LongOnly:         req.LongOnly,
		Locale:           req.Locale,
	}
	rows := h.deps.Translator.Rows(f)
	total, visible, changed := h.deps.Translator.Counts(f)
	writeJSON(w, http.StatusOK, map[string]any{
		"rows":         rows,
		"total_rows":   total,
		"visible_rows": visible,
		"changed_rows": changed,
	})
}

// UpdateRow handles POST /api/update-translation. The changed flag set here
// is sticky for the session, even if the edit is later reverted by hand.
// Rows are addressed by stable ID; row_index is accepted as a legacy
// fallback and resolved against the untranslated working set.
func (h *translatorHandler) UpdateRow(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RowID             string `json:"row_id"`
		RowIndex          *int   `json:"row_index"`
		TranslatedContent string `json:"translated_content"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	rowID := req.RowID
	if rowID == "" && req.RowIndex != nil {
		rows := h.deps.Translator.Rows(translator.Filter{OnlyUntranslated: true})
		if *req.RowIndex < 0 || *req.RowIndex >= len(rows) {
			writeJSON(w, http.StatusBadRequest, errorBody("row_index out of range"))
			return
		}
		rowID = rows[*req.RowIndex].ID
	}
	row, err := h.deps.Translator.UpdateRow(rowID, req.TranslatedContent)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, row)
}

// TranslateAll handles POST /api/translate-csv. Runs synchronously with
// per-row progress published over SSE; a second call while one is running
// is rejected.
func (h *translatorHandler) TranslateAll(w http.ResponseWriter, r *http.Request) {
	var req struct {
		APIKey  string `json:"api_key"`
		Profile string `json:"profile"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	apiKey := req.APIKey
	if apiKey == "" {
		if p, err := h.deps.Profiles.Current(); err == nil {
			apiKey = p.APIKey
		}
	}

	translate := func(ctx context.Context, text, targetLanguage string) (string, error) {
		return h.deps.Generator.Translate(ctx, text, targetLanguage, apiKey)
	}
	var progress translator.RowProgress
	if h.deps.Broker != nil {
		progress = func(done, total int, rowID, locale string, err error) {
			h.deps.Broker.PublishProgress("translation", done, total, rowID+" ("+locale+")", err)
		}
	}

	count, err := h.deps.Translator.TranslateAll(r.Context(), translate, progress)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"translated": count})
}

// DownloadTranslated handles GET /api/download-translated-csv, merging the
// session's edits back into the file's original column order.
func (h *translatorHandler) DownloadTranslated(w http.ResponseWriter, r *http.Request) {
	fileID := r.URL.Query().Get("file_id")
	data, filename, err := h.deps.Translator.ExportCSV(fileID)
	if err != nil {
		writeError(w, err)
		return
	}
	serveDownload(w, "text/csv; charset=utf-8", filename, data)
}

// ExportUntranslated handles GET /api/export-untranslated. ?format=xlsx
// switches the download to a spreadsheet.
func (h *translatorHandler) ExportUntranslated(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("format") == "xlsx" {
		data, filename, err := h.deps.Translator.ExportUntranslatedXLSX()
		if err != nil {
			writeError(w, err)
			return
		}
		serveDownload(w, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", filename, data)
		return
	}
	data, filename, err := h.deps.Translator.ExportUntranslatedCSV(time.Now())
	if err != nil {
		writeError(w, err)
		return
	}
	serveDownload(w, "text/csv; charset=utf-8", filename, data)
}
