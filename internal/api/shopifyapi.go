package api

import (
	"errors"
	"net/http"

	"github.com/nborup/skribent/internal/models"
	"github.com/nborup/skribent/internal/shopify"
)

type shopifyHandler struct {
	deps Deps
}

// creds resolves the Shopify credentials of the named profile, or the
// currently selected one when name is empty.
func (h *shopifyHandler) creds(name string) (models.ShopifyCredentials, string, error) {
	var (
		p   models.Profile
		err error
	)
	if name != "" {
		p, err = h.deps.Profiles.Get(name)
	} else {
		p, err = h.deps.Profiles.Current()
	}
	if err != nil {
		return models.ShopifyCredentials{}, "", err
	}
	return p.Shopify, p.Name, nil
}

// TestConnection handles POST /api/shopify/test-connection.
func (h *shopifyHandler) TestConnection(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Profile string `json:"profile"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	creds, _, err := h.creds(req.Profile)
	if err != nil {
		writeError(w, err)
		return
	}
	shop, err := h.deps.Shopify.TestConnection(r.Context(), creds)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"shop_name": shop.Name,
		"domain":    shop.Domain,
	})
}

// Products handles GET /api/shopify/products.
func (h *shopifyHandler) Products(w http.ResponseWriter, r *http.Request) {
	creds, _, err := h.creds(r.URL.Query().Get("profile"))
	if err != nil {
		writeError(w, err)
		return
	}
	products, err := h.deps.Shopify.Products(r.Context(), creds)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"products": products})
}

// ProductImages handles GET /api/shopify/product-images, served from the
// per-profile disk cache when possible. ?refresh=1 drops the cache first so
// the listing comes fresh from the Admin API.
func (h *shopifyHandler) ProductImages(w http.ResponseWriter, r *http.Request) {
	creds, profileName, err := h.creds(r.URL.Query().Get("profile"))
	if err != nil {
		writeError(w, err)
		return
	}
	if refresh := r.URL.Query().Get("refresh"); refresh == "true" || refresh == "1" {
		if err := h.deps.Shopify.InvalidateImages(profileName); err != nil {
			writeError(w, err)
			return
		}
	}
	images, source, err := h.deps.Shopify.ProductImages(r.Context(), creds, profileName, r.URL.Query().Get("product_id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"images": images,
		"total":  len(images),
		"source": source,
	})
}

type uploadBlogPostRequest struct {
	Profile          string `json:"profile"`
	BlogID           int64  `json:"blog_id"`
	Title            string `json:"title"`
	Author           string `json:"author"`
	Content          string `json:"content"`
	FeaturedImageURL string `json:"featured_image_url"`
}

func (req uploadBlogPostRequest) post() shopify.BlogPost {
	return shopify.BlogPost{
		Title:            req.Title,
		Author:           req.Author,
		BodyHTML:         req.Content,
		FeaturedImageURL: req.FeaturedImageURL,
	}
}

// UploadBlogPost handles POST /api/shopify/upload-blog-post. With a single
// blog in the store the article is created directly; with several, the blog
// list comes back for the user to choose from.
func (h *shopifyHandler) UploadBlogPost(w http.ResponseWriter, r *http.Request) {
	var req uploadBlogPostRequest
	if !decodeBody(w, r, &req) {
		return
	}
	creds, _, err := h.creds(req.Profile)
	if err != nil {
		writeError(w, err)
		return
	}
	article, blogs, err := h.deps.Shopify.UploadBlogPost(r.Context(), creds, req.post())
	if errors.Is(err, shopify.ErrBlogChoice) {
		writeJSON(w, http.StatusOK, map[string]any{
			"blogs":              blogs,
			"requires_selection": true,
		})
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeArticle(w, req.Title, article)
}

// UploadToBlog handles POST /api/shopify/upload-blog-post-to-blog.
func (h *shopifyHandler) UploadToBlog(w http.ResponseWriter, r *http.Request) {
	var req uploadBlogPostRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.BlogID == 0 {
		writeJSON(w, http.StatusBadRequest, errorBody("blog_id is required"))
		return
	}
	creds, _, err := h.creds(req.Profile)
	if err != nil {
		writeError(w, err)
		return
	}
	article, err := h.deps.Shopify.UploadToBlog(r.Context(), creds, req.BlogID, req.post())
	if err != nil {
		writeError(w, err)
		return
	}
	writeArticle(w, req.Title, article)
}

func writeArticle(w http.ResponseWriter, title string, article shopify.Article) {
	writeJSON(w, http.StatusCreated, map[string]any{
		"success":    true,
		"message":    "Nyt blogindlæg \"" + title + "\" blev oprettet i Shopify!",
		"article_id": article.ID,
		"blog_id":    article.BlogID,
		"admin_url":  article.AdminURL,
		"status":     "Kladde",
	})
}
