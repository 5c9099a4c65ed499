package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nborup/skribent/internal/autosave"
	"github.com/nborup/skribent/internal/editor"
	"github.com/nborup/skribent/internal/generate"
	"github.com/nborup/skribent/internal/profile"
	"github.com/nborup/skribent/internal/shopify"
	"github.com/nborup/skribent/internal/sse"
	"github.com/nborup/skribent/internal/textservice"
	"github.com/nborup/skribent/internal/translator"
)

// Deps collects everything the REST surface needs. Nil optional fields
// (Broker, Shopify) disable the corresponding routes.
type Deps struct {
	Texts       *textservice.Service
	Profiles    *profile.Store
	Generator   *generate.Service
	Translator  *translator.Session
	Histories   *editor.Registry
	AutoSave    *autosave.Controller
	Shopify     *shopify.Client
	Broker      *sse.Broker
	LibraryRoot string
	AuthEnabled bool
	Token       string
	Logger      *slog.Logger
}

// NewRouter creates a chi router with all API routes mounted. The router is
// meant to be mounted under /api; uploads are additionally served from
// /uploads by the caller.
func NewRouter(d Deps) chi.Router {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	th := &textHandler{deps: d}
	eh := &editorHandler{deps: d}
	ph := &profileHandler{deps: d}
	gh := &generateHandler{deps: d}
	trh := &translatorHandler{deps: d}
	ih := newImageHandler(d.LibraryRoot)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(d.AuthEnabled, d.Token))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/settings", th.Settings)

	// Saved texts.
	r.Get("/texts", th.List)
	r.Get("/texts/{profile}/{name}", th.Get)
	r.Delete("/texts/{profile}/{name}", th.Delete)
	r.Get("/texts/{profile}/{name}/export", th.ExportMarkdown)
	r.Post("/texts/rename", th.Rename)
	r.Post("/save-text", th.Save)
	r.Post("/auto-save-text", th.AutoSave)
	r.Get("/search", th.Search)
	r.Get("/saved-texts", th.ListSaved)
	r.Delete("/saved-texts/{name}", th.DeleteSaved)

	// Editor engine.
	r.Post("/editor/format", eh.Format)
	r.Post("/editor/snapshot", eh.Snapshot)
	r.Post("/editor/undo", eh.Undo)
	r.Post("/editor/redo", eh.Redo)

	// Profiles and products.
	r.Get("/profiles", ph.List)
	r.Post("/profiles", ph.Create)
	r.Get("/profiles/current", ph.Current)
	r.Get("/profiles/export", ph.ExportAll)
	r.Post("/profiles/import", ph.Import)
	r.Get("/profiles/{name}", ph.Get)
	r.Put("/profiles/{name}", ph.Update)
	r.Delete("/profiles/{name}", ph.Delete)
	r.Post("/profiles/{name}/select", ph.Select)
	r.Get("/profiles/{name}/export", ph.Export)
	r.Get("/profiles/{name}/products", ph.Products)
	r.Post("/profiles/{name}/products", ph.AddProduct)
	r.Put("/profiles/{name}/products/{index}", ph.UpdateProduct)
	r.Delete("/profiles/{name}/products/{index}", ph.DeleteProduct)
	r.Post("/fetch-url-info", ph.FetchURLInfo)

	// Current-profile product aliases.
	r.Get("/products", ph.ProductsCurrent)
	r.Post("/products", ph.AddProductCurrent)
	r.Put("/products/{index}", ph.UpdateProductCurrent)
	r.Delete("/products/{index}", ph.DeleteProductCurrent)

	// Generation.
	r.Post("/enhanced-generate-seo", gh.Generate)
	r.Post("/generate-seo-variations", gh.Variations)
	r.Post("/batch-generate-seo", gh.Batch)
	r.Post("/ai-edit-selection", gh.EditSelection)
	r.Post("/revision-request", gh.EditSelection)
	r.Post("/quick-translate", gh.QuickTranslate)
	r.Post("/translate", gh.QuickTranslate)
	r.Post("/generate-text", gh.GenerateText)

	// CSV translation.
	r.Post("/upload-csv", trh.Upload)
	r.Get("/csv-files", trh.Files)
	r.Post("/remove-csv-file", trh.Remove)
	r.Get("/csv-preview", trh.Preview)
	r.Post("/filter-untranslated", trh.FilterUntranslated)
	r.Post("/update-translation", trh.UpdateRow)
	r.Post("/translate-csv", trh.TranslateAll)
	r.Get("/download-translated-csv", trh.DownloadTranslated)
	r.Get("/export-untranslated", trh.ExportUntranslated)

	// Images.
	r.Post("/upload-image", ih.Upload)
	r.Post("/insert-image-html", ih.InsertHTML)
	r.Get("/uploads/{filename}", ih.ServeFile)
	r.Get("/cached-image/{profile}/*", ih.ServeCachedImage)

	// Shopify.
	if d.Shopify != nil {
		sh := &shopifyHandler{deps: d}
		r.Post("/shopify/test-connection", sh.TestConnection)
		r.Get("/shopify/products", sh.Products)
		r.Get("/shopify/product-images", sh.ProductImages)
		r.Post("/shopify/upload-blog-post", sh.UploadBlogPost)
		r.Post("/shopify/upload-blog-post-to-blog", sh.UploadToBlog)
	}

	// SSE endpoint (protected by the same auth middleware).
	if d.Broker != nil {
		r.Get("/events", d.Broker.ServeHTTP)
	}

	return r
}
