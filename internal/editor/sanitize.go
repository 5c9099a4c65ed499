package editor

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
)

// contentPolicy admits the markup the editor itself produces: semantic
// inline tags, links, headings, lists, images, and font-size spans.
var contentPolicy = func() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements(
		"p", "br", "strong", "em", "u", "b", "i",
		"h1", "h2", "h3", "h4", "h5", "h6",
		"ul", "ol", "li", "blockquote", "code", "pre",
		"table", "thead", "tbody", "tr", "td", "th",
		"span", "div",
	)
	p.AllowAttrs("href", "target", "rel").OnElements("a")
	p.AllowElements("a")
	p.AllowAttrs("src", "alt", "width", "height").OnElements("img")
	p.AllowElements("img")
	p.AllowAttrs("style").OnElements("span")
	p.AllowStyles("font-size").OnElements("span")
	p.AllowURLSchemes("http", "https", "mailto")
	return p
}()

var strictPolicy = bluemonday.StrictPolicy()

// Sanitize strips everything from fragment that the editor could not have
// produced. All markup persisted or previewed passes through here.
func Sanitize(fragment string) string {
	return contentPolicy.Sanitize(fragment)
}

// PlainText reduces markup to its unescaped text content. Used for search
// indexing and meta-description derivation.
func PlainText(fragment string) string {
	stripped := strictPolicy.Sanitize(fragment)
	return strings.TrimSpace(html.UnescapeString(stripped))
}
