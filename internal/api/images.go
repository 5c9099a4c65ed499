package api

import (
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/nborup/skribent/internal/editor"
)

const (
	uploadsDir     = "uploads"
	maxUploadBytes = 10 << 20 // 10 MB
)

// allowedImageExts mirrors the editor's accept list.
var allowedImageExts = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".webp": true,
}

// imageHandler stores and serves editor image uploads.
type imageHandler struct {
	libraryRoot string
}

func newImageHandler(libraryRoot string) *imageHandler {
	return &imageHandler{libraryRoot: libraryRoot}
}

func (h *imageHandler) uploadsPath() string {
	return filepath.Join(h.libraryRoot, uploadsDir)
}

// safeName validates that the filename is a plain name (no path separators,
// no traversal) and returns the absolute path under the uploads dir.
func (h *imageHandler) safeName(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("filename is required")
	}
	cleaned := filepath.Clean(name)
	if cleaned != filepath.Base(cleaned) || strings.Contains(cleaned, "..") {
		return "", fmt.Errorf("invalid filename: %s", name)
	}
	abs := filepath.Join(h.uploadsPath(), cleaned)
	if !strings.HasPrefix(abs, h.uploadsPath()+string(os.PathSeparator)) && abs != h.uploadsPath() {
		return "", fmt.Errorf("path escapes uploads directory")
	}
	return abs, nil
}

// Upload handles POST /api/upload-image (multipart/form-data, field
// "image"). The file is persisted under the library's uploads dir and also
// returned as a data URL so the editor can embed it immediately.
func (h *imageHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("file too large or invalid multipart"))
		return
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("missing 'image' field in multipart form"))
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !allowedImageExts[ext] {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid file type, allowed: PNG, JPG, JPEG, GIF, WEBP"))
		return
	}
	abs, err := h.safeName(header.Filename)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read upload"))
		return
	}

	if err := os.MkdirAll(h.uploadsPath(), 0o755); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody("failed to create uploads dir"))
		return
	}
	if err := os.WriteFile(abs, data, 0o644); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody("failed to write file"))
		return
	}

	mimeType := mime.TypeByExtension(ext)
	if mimeType == "" {
		mimeType = "image/jpeg"
	}
	dataURL := "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)

	writeJSON(w, http.StatusCreated, map[string]any{
		"success":   true,
		"filename":  header.Filename,
		"size":      len(data),
		"mime_type": mimeType,
		"data_url":  dataURL,
		"url":       "/api/uploads/" + header.Filename,
	})
}

// ServeFile handles GET /api/uploads/{filename}.
func (h *imageHandler) ServeFile(w http.ResponseWriter, r *http.Request) {
	abs, err := h.safeName(chi.URLParam(r, "filename"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if _, statErr := os.Stat(abs); os.IsNotExist(statErr) {
		http.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, abs)
}

// ServeCachedImage handles GET /api/cached-image/{profile}/*, serving image
// files from the library's Shopify image cache. The resolved path must stay
// inside the cache directory.
func (h *imageHandler) ServeCachedImage(w http.ResponseWriter, r *http.Request) {
	cacheRoot, err := filepath.Abs(filepath.Join(h.libraryRoot, "image-cache"))
	if err != nil {
		http.Error(w, "invalid cache directory", http.StatusInternalServerError)
		return
	}
	rel := filepath.Join(chi.URLParam(r, "profile"), chi.URLParam(r, "*"))
	abs, err := filepath.Abs(filepath.Join(cacheRoot, rel))
	if err != nil || !strings.HasPrefix(abs, cacheRoot+string(os.PathSeparator)) {
		http.Error(w, "invalid image path", http.StatusBadRequest)
		return
	}
	if info, statErr := os.Stat(abs); statErr != nil || info.IsDir() {
		http.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, abs)
}

// InsertHTML handles POST /api/insert-image-html, building a sanitized <img>
// fragment for insertion into the editor.
func (h *imageHandler) InsertHTML(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ImageURL string `json:"image_url"`
		AltText  string `json:"alt_text"`
		Width    int    `json:"width"`
		Height   int    `json:"height"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.ImageURL) == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("image URL is required"))
		return
	}

	var b strings.Builder
	b.WriteString(`<img src="` + htmlAttrEscape(req.ImageURL) + `"`)
	if req.AltText != "" {
		b.WriteString(` alt="` + htmlAttrEscape(req.AltText) + `"`)
	}
	if req.Width > 0 {
		fmt.Fprintf(&b, ` width="%d"`, req.Width)
	}
	if req.Height > 0 {
		fmt.Fprintf(&b, ` height="%d"`, req.Height)
	}
	b.WriteString("/>")

	fragment := editor.Sanitize(b.String())
	if fragment == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("image URL was rejected"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"html":    fragment,
	})
}

func htmlAttrEscape(s string) string {
	r := strings.NewReplacer("&", "&amp;", `"`, "&quot;", "<", "&lt;", ">", "&gt;")
	return r.Replace(s)
}
