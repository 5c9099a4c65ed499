package api

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nborup/skribent/internal/models"
	"github.com/nborup/skribent/internal/profile"
	"github.com/nborup/skribent/internal/textdoc"
)

type profileHandler struct {
	deps Deps
}

// scrapeClient fetches product pages for fetch-url-info.
var scrapeClient = &http.Client{Timeout: 10 * time.Second}

// List handles GET /api/profiles.
func (h *profileHandler) List(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"profiles": h.deps.Profiles.List()})
}

// Get handles GET /api/profiles/{name}.
func (h *profileHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.deps.Profiles.Get(chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// Create handles POST /api/profiles.
func (h *profileHandler) Create(w http.ResponseWriter, r *http.Request) {
	var p models.Profile
	if !decodeBody(w, r, &p) {
		return
	}
	if err := h.deps.Profiles.Create(p); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// Update handles PUT /api/profiles/{name}.
func (h *profileHandler) Update(w http.ResponseWriter, r *http.Request) {
	var p models.Profile
	if !decodeBody(w, r, &p) {
		return
	}
	if err := h.deps.Profiles.Update(chi.URLParam(r, "name"), p); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// Delete handles DELETE /api/profiles/{name}.
func (h *profileHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.Profiles.Delete(chi.URLParam(r, "name")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Select handles POST /api/profiles/{name}/select.
func (h *profileHandler) Select(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := h.deps.Profiles.Select(name); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"current_profile": name})
}

// Current handles GET /api/profiles/current.
func (h *profileHandler) Current(w http.ResponseWriter, _ *http.Request) {
	p, err := h.deps.Profiles.Current()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// Export handles GET /api/profiles/{name}/export as a JSON download.
func (h *profileHandler) Export(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	data, err := h.deps.Profiles.Export(name)
	if err != nil {
		writeError(w, err)
		return
	}
	serveDownload(w, "application/json", textdoc.Slug(name)+".json", data)
}

// ExportAll handles GET /api/profiles/export.
func (h *profileHandler) ExportAll(w http.ResponseWriter, _ *http.Request) {
	data, err := json.MarshalIndent(h.deps.Profiles.List(), "", "  ")
	if err != nil {
		writeError(w, err)
		return
	}
	serveDownload(w, "application/json", "profiles.json", data)
}

// Import handles POST /api/profiles/import. Accepts either a multipart form
// with a "file" field or a raw JSON body. Name collisions get a numeric
// suffix rather than overwriting.
func (h *profileHandler) Import(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)

	var data []byte
	if err := r.ParseMultipartForm(10 << 20); err == nil {
		file, _, ferr := r.FormFile("file")
		if ferr != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("missing 'file' field in multipart form"))
			return
		}
		defer file.Close()
		data, ferr = io.ReadAll(file)
		if ferr != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("failed to read upload"))
			return
		}
	} else {
		var rerr error
		data, rerr = io.ReadAll(r.Body)
		if rerr != nil || len(data) == 0 {
			writeJSON(w, http.StatusBadRequest, errorBody("request body is required"))
			return
		}
	}

	imported, err := h.deps.Profiles.Import(data)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, imported)
}

// Products handles GET /api/profiles/{name}/products.
func (h *profileHandler) Products(w http.ResponseWriter, r *http.Request) {
	p, err := h.deps.Profiles.Get(chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, err)
		return
	}
	products := p.Products
	if products == nil {
		products = []models.Product{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"products": products})
}

// AddProduct handles POST /api/profiles/{name}/products.
func (h *profileHandler) AddProduct(w http.ResponseWriter, r *http.Request) {
	var p models.Product
	if !decodeBody(w, r, &p) {
		return
	}
	if err := h.deps.Profiles.AddProduct(chi.URLParam(r, "name"), p); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// UpdateProduct handles PUT /api/profiles/{name}/products/{index}.
func (h *profileHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	idx, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("product index must be a number"))
		return
	}
	var p models.Product
	if !decodeBody(w, r, &p) {
		return
	}
	if err := h.deps.Profiles.UpdateProduct(chi.URLParam(r, "name"), idx, p); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// DeleteProduct handles DELETE /api/profiles/{name}/products/{index}.
func (h *profileHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	idx, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("product index must be a number"))
		return
	}
	if err := h.deps.Profiles.DeleteProduct(chi.URLParam(r, "name"), idx); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ProductsCurrent handles GET /api/products for the current profile. With
// no profile selected it returns an empty list rather than an error.
func (h *profileHandler) ProductsCurrent(w http.ResponseWriter, _ *http.Request) {
	p, err := h.deps.Profiles.Current()
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]any{"products": []models.Product{}})
		return
	}
	products := p.Products
	if products == nil {
		products = []models.Product{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"products": products})
}

// AddProductCurrent handles POST /api/products for the current profile.
func (h *profileHandler) AddProductCurrent(w http.ResponseWriter, r *http.Request) {
	current, err := h.deps.Profiles.Current()
	if err != nil {
		writeError(w, err)
		return
	}
	var p models.Product
	if !decodeBody(w, r, &p) {
		return
	}
	if err := h.deps.Profiles.AddProduct(current.Name, p); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// UpdateProductCurrent handles PUT /api/products/{index} for the current
// profile.
func (h *profileHandler) UpdateProductCurrent(w http.ResponseWriter, r *http.Request) {
	current, err := h.deps.Profiles.Current()
	if err != nil {
		writeError(w, err)
		return
	}
	idx, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("product index must be a number"))
		return
	}
	var p models.Product
	if !decodeBody(w, r, &p) {
		return
	}
	if err := h.deps.Profiles.UpdateProduct(current.Name, idx, p); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// DeleteProductCurrent handles DELETE /api/products/{index} for the current
// profile.
func (h *profileHandler) DeleteProductCurrent(w http.ResponseWriter, r *http.Request) {
	current, err := h.deps.Profiles.Current()
	if err != nil {
		writeError(w, err)
		return
	}
	idx, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("product index must be a number"))
		return
	}
	if err := h.deps.Profiles.DeleteProduct(current.Name, idx); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// FetchURLInfo handles POST /api/fetch-url-info, scraping a product page's
// title and description for the product form.
func (h *profileHandler) FetchURLInfo(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URL string `json:"url"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	info, err := profile.FetchURLInfo(r.Context(), scrapeClient, req.URL)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func serveDownload(w http.ResponseWriter, contentType, filename string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
