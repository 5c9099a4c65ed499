// Package models defines the domain types for Skribent.
package models

import (
	"time"
	"unicode/utf8"
)

// ShopifyCredentials holds per-profile Shopify Admin API access.
type ShopifyCredentials struct {
	StoreURL   string `json:"store_url" yaml:"store_url"`
	APIToken   string `json:"api_token" yaml:"api_token"`
	APIVersion string `json:"api_version" yaml:"api_version"`
}

// Product is a catalog entry belonging to a profile. Products are addressed
// by their position in the profile's product list.
type Product struct {
	Name        string `json:"name"`
	URL         string `json:"url"`
	Description string `json:"description"`
}

// Profile is a saved brand/voice configuration used to parameterize
// generation. It also owns the product catalog and the saved-text namespace.
type Profile struct {
	Name          string             `json:"name"`
	Description   string             `json:"description"`
	Values        string             `json:"values"`
	Tone          string             `json:"tone"`
	APIKey        string             `json:"api_key"`
	BlockedWords  []string           `json:"blocked_words"`
	URL           string             `json:"url"`
	InternalLinks string             `json:"internal_links"`
	Shopify       ShopifyCredentials `json:"shopify"`
	Products      []Product          `json:"products"`
}

// SavedText is a durably persisted generated/edited document, keyed by a
// human-chosen name within its profile.
type SavedText struct {
	Name             string    `json:"name"`
	Title            string    `json:"title"`
	Content          string    `json:"content"` // sanitized HTML body
	MetaDescription  string    `json:"meta_description"`
	Keywords         string    `json:"keywords"`
	Category         string    `json:"category"`
	FeaturedImageURL string    `json:"featured_image_url,omitempty"`
	Profile          string    `json:"profile"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// TextMetadata is a lightweight representation returned by list operations.
type TextMetadata struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

// GeneratedText is an ephemeral generation result held for the session's
// preview selector; it becomes durable only through an explicit save.
type GeneratedText struct {
	Title           string    `json:"title"`
	Text            string    `json:"text"`
	HTML            string    `json:"html"`
	WebsiteHTML     string    `json:"website_html"`
	MetaDescription string    `json:"meta_description"`
	Keywords        string    `json:"keywords"`
	Profile         string    `json:"profile"`
	Timestamp       time.Time `json:"timestamp"`
}

// TranslationRow is one row of an uploaded Shopify translation CSV. ID is a
// stable opaque identifier assigned at load time; it survives filtering and
// re-ordering, unlike the row's position.
type TranslationRow struct {
	ID                string `json:"id"`
	Locale            string `json:"locale"`
	Type              string `json:"type"`
	Field             string `json:"field"`
	DefaultContent    string `json:"default_content"`
	TranslatedContent string `json:"translated_content"`
	SourceFile        string `json:"source_file,omitempty"`
	Changed           bool   `json:"changed"`
}

// LongText reports whether the row's source content crosses the long-text
// threshold used by the grid's display classification. The threshold counts
// characters, not bytes, so multibyte content is not penalized.
func (r TranslationRow) LongText() bool {
	return utf8.RuneCountInString(r.DefaultContent) > 300
}

// NeedsTranslation reports whether the row still awaits a translation and
// actually has content to translate.
func (r TranslationRow) NeedsTranslation() bool {
	return trimmedEmpty(r.TranslatedContent) && !trimmedEmpty(r.DefaultContent)
}

func trimmedEmpty(s string) bool {
	for _, c := range s {
		switch c {
		case ' ', '\t', '\n', '\r':
		default:
			return false
		}
	}
	return true
}

// SelectedImage is the tagged union of an uploaded image and a Shopify
// product image. Exactly one may be selected at a time.
type SelectedImage struct {
	Type string `json:"type"` // "upload" or "shopify"

	// Upload fields.
	DataURL  string `json:"data_url,omitempty"`
	Filename string `json:"filename,omitempty"`
	Size     int64  `json:"size,omitempty"`
	MimeType string `json:"mime_type,omitempty"`

	// Shopify fields.
	Src          string `json:"src,omitempty"`
	Alt          string `json:"alt,omitempty"`
	Width        int    `json:"width,omitempty"`
	Height       int    `json:"height,omitempty"`
	ProductTitle string `json:"product_title,omitempty"`
}
