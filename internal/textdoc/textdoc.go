// Package textdoc reads and writes the on-disk document format for saved
// texts and derives the searchable fields the index stores.
package textdoc

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/nborup/skribent/internal/editor"
	"github.com/nborup/skribent/internal/models"
)

// Result is the indexable projection of a saved text.
type Result struct {
	Profile   string
	Name      string
	Title     string
	Body      string
	Keywords  []string
	UpdatedAt time.Time
}

// Decode parses a stored document.
func Decode(data []byte) (models.SavedText, error) {
	var st models.SavedText
	if err := json.Unmarshal(data, &st); err != nil {
		return models.SavedText{}, fmt.Errorf("textdoc: decode: %w", err)
	}
	return st, nil
}

// Encode serializes a saved text for storage. Indented output keeps the
// library diffable and hand-editable.
func Encode(st models.SavedText) ([]byte, error) {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("textdoc: encode: %w", err)
	}
	return append(data, '\n'), nil
}

// Parse decodes data and projects it into indexable fields. The body is the
// plain text of the stored markup.
func Parse(data []byte) (Result, error) {
	st, err := Decode(data)
	if err != nil {
		return Result{}, err
	}
	return Result{
		Profile:   st.Profile,
		Name:      st.Name,
		Title:     st.Title,
		Body:      editor.PlainText(st.Content),
		Keywords:  splitKeywords(st.Keywords),
		UpdatedAt: st.UpdatedAt,
	}, nil
}

// Path maps a profile and text name to the document's library-relative
// path. Names are slugged so the filesystem never sees unsafe characters.
func Path(profile, name string) string {
	return filepath.Join(Slug(profile), Slug(name)+".json")
}

// Slug lowercases s and replaces everything outside [a-z0-9æøå-] with
// hyphens, collapsing runs.
func Slug(s string) string {
	var b strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9',
			r == 'æ', r == 'ø', r == 'å':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

func splitKeywords(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
