package profile

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/nborup/skribent/internal/apperr"
)

// URLInfo is the scraped summary of a product page.
type URLInfo struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

const maxScrapedDescription = 300

// FetchURLInfo downloads a product page and extracts a display title and
// description from its markup, preferring Open Graph tags. Used to prefill
// product forms from a pasted URL.
func FetchURLInfo(ctx context.Context, client *http.Client, rawURL string) (URLInfo, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return URLInfo{}, fmt.Errorf("%w: invalid url %q", apperr.ErrInvalid, rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return URLInfo{}, fmt.Errorf("profile: build request: %w", err)
	}
	req.Header.Set("User-Agent", "skribent/1.0")
	req.Header.Set("Accept", "text/html")

	resp, err := client.Do(req)
	if err != nil {
		return URLInfo{}, fmt.Errorf("%w: fetch %s: %v", apperr.ErrUpstream, u.Host, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return URLInfo{}, fmt.Errorf("%w: fetch %s: status %d", apperr.ErrUpstream, u.Host, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return URLInfo{}, fmt.Errorf("%w: parse %s: %v", apperr.ErrUpstream, u.Host, err)
	}

	info := URLInfo{URL: u.String()}

	if og, ok := doc.Find(`meta[property="og:title"]`).Attr("content"); ok && strings.TrimSpace(og) != "" {
		info.Title = strings.TrimSpace(og)
	} else {
		info.Title = strings.TrimSpace(doc.Find("title").First().Text())
	}

	if meta, ok := doc.Find(`meta[name="description"]`).Attr("content"); ok && strings.TrimSpace(meta) != "" {
		info.Description = strings.TrimSpace(meta)
	} else if og, ok := doc.Find(`meta[property="og:description"]`).Attr("content"); ok {
		info.Description = strings.TrimSpace(og)
	} else {
		// Fall back to the first non-empty paragraph.
		doc.Find("p").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
			text := strings.TrimSpace(sel.Text())
			if text == "" {
				return true
			}
			info.Description = text
			return false
		})
	}
	if runes := []rune(info.Description); len(runes) > maxScrapedDescription {
		info.Description = string(runes[:maxScrapedDescription]) + "…"
	}

	return info, nil
}
