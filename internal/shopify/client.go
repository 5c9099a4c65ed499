// Package shopify is a thin Admin REST API client covering the store
// operations Skribent needs: connection checks, product and image listing,
// and blog article upload.
package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/nborup/skribent/internal/apperr"
	"github.com/nborup/skribent/internal/models"
)

// DefaultAPIVersion is used when a profile does not pin one.
const DefaultAPIVersion = "2023-10"

const userAgent = "Skribent/1.0"

// Client talks to the Shopify Admin REST API. Credentials are passed per
// call since every profile carries its own store.
type Client struct {
	http   *http.Client
	logger *slog.Logger
	cache  *imageCache

	// baseURL overrides the store host when set. Tests point it at a
	// local server.
	baseURL string
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL routes every request to a fixed base URL instead of the
// credential's store host. Used for testing against a local server.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// NewClient creates an Admin API client. cacheDir is the root directory for
// the per-profile product image cache; empty disables caching.
func NewClient(cacheDir string, timeout time.Duration, logger *slog.Logger, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	var cache *imageCache
	if cacheDir != "" {
		cache = &imageCache{dir: cacheDir}
	}
	c := &Client{
		http:   &http.Client{Timeout: timeout},
		logger: logger,
		cache:  cache,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Shop identifies a connected store.
type Shop struct {
	Name   string `json:"name"`
	Domain string `json:"domain"`
}

// Blog is a store blog an article can be published into.
type Blog struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
}

// ProductImage is one image attached to a store product, flattened with its
// owning product's identity.
type ProductImage struct {
	ID           int64  `json:"id"`
	ProductID    int64  `json:"product_id"`
	ProductTitle string `json:"product_title"`
	Src          string `json:"src"`
	Alt          string `json:"alt"`
	Width        int    `json:"width,omitempty"`
	Height       int    `json:"height,omitempty"`
}

// RemoteProduct is a product as listed by the store.
type RemoteProduct struct {
	ID     int64          `json:"id"`
	Title  string         `json:"title"`
	Images []ProductImage `json:"images,omitempty"`
}

// BlogPost is the article payload for upload. Articles are always created
// as drafts; publishing happens in the Shopify admin.
type BlogPost struct {
	Title            string
	Author           string
	BodyHTML         string
	FeaturedImageURL string
}

// Article is the created blog article.
type Article struct {
	ID       int64  `json:"id"`
	BlogID   int64  `json:"blog_id"`
	AdminURL string `json:"admin_url"`
}

// normalizeStoreURL reduces a user-entered store URL to a bare
// *.myshopify.com host.
func normalizeStoreURL(raw string) (string, error) {
	host := strings.TrimSpace(raw)
	host = strings.TrimPrefix(host, "https://")
	host = strings.TrimPrefix(host, "http://")
	host = strings.TrimRight(host, "/")
	if host == "" {
		return "", fmt.Errorf("%w: shopify store URL is empty", apperr.ErrInvalid)
	}
	if !strings.HasSuffix(host, ".myshopify.com") {
		host += ".myshopify.com"
	}
	return host, nil
}

func (c *Client) endpoint(creds models.ShopifyCredentials, path string) (string, error) {
	version := strings.TrimSpace(creds.APIVersion)
	if version == "" {
		version = DefaultAPIVersion
	}
	if c.baseURL != "" {
		return fmt.Sprintf("%s/admin/api/%s/%s", c.baseURL, version, path), nil
	}
	host, err := normalizeStoreURL(creds.StoreURL)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("https://%s/admin/api/%s/%s", host, version, path), nil
}

// do performs a request and decodes the JSON body into out on 2xx. Non-2xx
// responses become errors with Shopify's "errors" payload folded in.
func (c *Client) do(ctx context.Context, creds models.ShopifyCredentials, method, path string, body, out any) error {
	token := strings.TrimSpace(creds.APIToken)
	if token == "" || strings.TrimSpace(creds.StoreURL) == "" {
		return fmt.Errorf("%w: shopify credentials are not configured", apperr.ErrInvalid)
	}
	url, err := c.endpoint(creds, path)
	if err != nil {
		return err
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("X-Shopify-Access-Token", token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrUpstream, err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
	case resp.StatusCode == http.StatusUnauthorized:
		return fmt.Errorf("%w: authentication failed (401): %s", apperr.ErrInvalid, upstreamErrors(raw))
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: store or resource not found (404)", apperr.ErrInvalid)
	default:
		c.logger.Warn("shopify request failed", "method", method, "path", path, "status", resp.StatusCode)
		return fmt.Errorf("%w: shopify returned %d: %s", apperr.ErrUpstream, resp.StatusCode, upstreamErrors(raw))
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: decode response: %v", apperr.ErrUpstream, err)
	}
	return nil
}

// upstreamErrors renders Shopify's "errors" field, which may be a string,
// list, or field map.
func upstreamErrors(raw []byte) string {
	var body struct {
		Errors json.RawMessage `json:"errors"`
	}
	if err := json.Unmarshal(raw, &body); err != nil || len(body.Errors) == 0 {
		return strings.TrimSpace(string(raw))
	}
	var s string
	if json.Unmarshal(body.Errors, &s) == nil {
		return s
	}
	var m map[string]any
	if json.Unmarshal(body.Errors, &m) == nil {
		parts := make([]string, 0, len(m))
		for k, v := range m {
			parts = append(parts, fmt.Sprintf("%s: %v", k, v))
		}
		return strings.Join(parts, "; ")
	}
	return strings.TrimSpace(string(body.Errors))
}

// TestConnection verifies the credentials by fetching the shop record.
func (c *Client) TestConnection(ctx context.Context, creds models.ShopifyCredentials) (Shop, error) {
	var resp struct {
		Shop Shop `json:"shop"`
	}
	if err := c.do(ctx, creds, http.MethodGet, "shop.json", nil, &resp); err != nil {
		return Shop{}, err
	}
	return resp.Shop, nil
}

// Products lists the store's products.
func (c *Client) Products(ctx context.Context, creds models.ShopifyCredentials) ([]RemoteProduct, error) {
	var resp struct {
		Products []RemoteProduct `json:"products"`
	}
	if err := c.do(ctx, creds, http.MethodGet, "products.json", nil, &resp); err != nil {
		return nil, err
	}
	if resp.Products == nil {
		resp.Products = []RemoteProduct{}
	}
	return resp.Products, nil
}

// Blogs lists the store's blogs.
func (c *Client) Blogs(ctx context.Context, creds models.ShopifyCredentials) ([]Blog, error) {
	var resp struct {
		Blogs []Blog `json:"blogs"`
	}
	if err := c.do(ctx, creds, http.MethodGet, "blogs.json", nil, &resp); err != nil {
		return nil, err
	}
	if resp.Blogs == nil {
		resp.Blogs = []Blog{}
	}
	return resp.Blogs, nil
}

// ImageSource says where a ProductImages result came from.
type ImageSource string

const (
	SourceCache ImageSource = "cache"
	SourceAPI   ImageSource = "api"
)

// ProductImages returns all product images for the profile's store,
// optionally scoped to one product. Results are cached on disk per profile
// so repeated browsing does not re-hit the Admin API.
func (c *Client) ProductImages(ctx context.Context, creds models.ShopifyCredentials, profileName, productID string) ([]ProductImage, ImageSource, error) {
	if c.cache != nil {
		if images, ok := c.cache.load(profileName, productID); ok {
			return images, SourceCache, nil
		}
	}

	var images []ProductImage
	if productID != "" {
		var resp struct {
			Images []ProductImage `json:"images"`
		}
		path := fmt.Sprintf("products/%s/images.json", productID)
		if err := c.do(ctx, creds, http.MethodGet, path, nil, &resp); err != nil {
			return nil, "", err
		}
		images = resp.Images
	} else {
		var resp struct {
			Products []RemoteProduct `json:"products"`
		}
		if err := c.do(ctx, creds, http.MethodGet, "products.json?fields=id,title,images", nil, &resp); err != nil {
			return nil, "", err
		}
		for _, p := range resp.Products {
			for _, img := range p.Images {
				img.ProductID = p.ID
				img.ProductTitle = p.Title
				images = append(images, img)
			}
		}
	}
	if images == nil {
		images = []ProductImage{}
	}
	if c.cache != nil && len(images) > 0 {
		if err := c.cache.save(profileName, productID, images); err != nil {
			c.logger.Warn("caching product images failed", "profile", profileName, "error", err)
		}
	}
	return images, SourceAPI, nil
}

// InvalidateImages drops the cached images for a profile.
func (c *Client) InvalidateImages(profileName string) error {
	if c.cache == nil {
		return nil
	}
	return c.cache.invalidate(profileName)
}

// UploadBlogPost creates a draft article, resolving the target blog
// automatically when the store has exactly one. With multiple blogs it
// returns them alongside ErrBlogChoice so the caller can ask the user.
func (c *Client) UploadBlogPost(ctx context.Context, creds models.ShopifyCredentials, post BlogPost) (Article, []Blog, error) {
	blogs, err := c.Blogs(ctx, creds)
	if err != nil {
		return Article{}, nil, err
	}
	if len(blogs) == 0 {
		return Article{}, nil, fmt.Errorf("%w: no blogs found in the store, create one in the Shopify admin first", apperr.ErrInvalid)
	}
	if len(blogs) > 1 {
		return Article{}, blogs, ErrBlogChoice
	}
	article, err := c.UploadToBlog(ctx, creds, blogs[0].ID, post)
	return article, nil, err
}

// ErrBlogChoice signals that the store has several blogs and the caller
// must pick one before uploading.
var ErrBlogChoice = fmt.Errorf("multiple blogs available, a target blog must be chosen")

// UploadToBlog creates a draft article in the given blog.
func (c *Client) UploadToBlog(ctx context.Context, creds models.ShopifyCredentials, blogID int64, post BlogPost) (Article, error) {
	if strings.TrimSpace(post.Title) == "" {
		return Article{}, fmt.Errorf("%w: article title is required", apperr.ErrInvalid)
	}
	author := post.Author
	if author == "" {
		author = "Skribent"
	}

	type imagePayload struct {
		Src string `json:"src"`
		Alt string `json:"alt"`
	}
	type articlePayload struct {
		Title     string        `json:"title"`
		Author    string        `json:"author"`
		BodyHTML  string        `json:"body_html"`
		Published bool          `json:"published"`
		Image     *imagePayload `json:"image,omitempty"`
	}
	payload := struct {
		Article articlePayload `json:"article"`
	}{
		Article: articlePayload{
			Title:     post.Title,
			Author:    author,
			BodyHTML:  post.BodyHTML,
			Published: false,
		},
	}
	if post.FeaturedImageURL != "" {
		payload.Article.Image = &imagePayload{
			Src: post.FeaturedImageURL,
			Alt: AltText(post.Title),
		}
	}

	var resp struct {
		Article struct {
			ID int64 `json:"id"`
		} `json:"article"`
	}
	path := fmt.Sprintf("blogs/%d/articles.json", blogID)
	if err := c.do(ctx, creds, http.MethodPost, path, payload, &resp); err != nil {
		return Article{}, err
	}

	article := Article{ID: resp.Article.ID, BlogID: blogID}
	if host, err := normalizeStoreURL(creds.StoreURL); err == nil && article.ID != 0 {
		article.AdminURL = fmt.Sprintf("https://%s/admin/blogs/%d/articles/%d", host, blogID, article.ID)
	}
	return article, nil
}

// AltText derives a short SEO alt text from an article title.
func AltText(title string) string {
	short := title
	if i := strings.IndexByte(short, '?'); i >= 0 {
		short = short[:i]
	} else if i := strings.Index(short, " – "); i >= 0 {
		short = short[:i]
	}
	words := strings.Fields(short)
	if len(words) > 8 {
		words = words[:8]
	}
	return "Guide til " + strings.ToLower(strings.Join(words, " "))
}
