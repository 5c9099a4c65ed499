// Package textservice coordinates storage and index operations for the
// saved-text library.
package textservice

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"

	"github.com/nborup/skribent/internal/apperr"
	"github.com/nborup/skribent/internal/checksum"
	"github.com/nborup/skribent/internal/editor"
	"github.com/nborup/skribent/internal/index"
	"github.com/nborup/skribent/internal/models"
	"github.com/nborup/skribent/internal/storage"
	"github.com/nborup/skribent/internal/textdoc"
)

// TextDetail is the full representation of a saved text.
type TextDetail struct {
	models.SavedText
	Path     string `json:"path"`
	Checksum string `json:"checksum"`
}

// TextListItem is a lightweight item in a list response.
type TextListItem struct {
	Path      string    `json:"path"`
	Profile   string    `json:"profile"`
	Name      string    `json:"name"`
	Title     string    `json:"title"`
	Keywords  []string  `json:"keywords"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Service coordinates storage and index operations.
type Service struct {
	store storage.Provider
	db    *index.DB
}

// NewService creates a new text service.
func NewService(store storage.Provider, db *index.DB) *Service {
	return &Service{store: store, db: db}
}

// GetText reads a saved text from storage by profile and name.
func (s *Service) GetText(_ context.Context, profile, name string) (*TextDetail, error) {
	path := textdoc.Path(profile, name)
	data, err := s.store.Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	return buildDetail(path, data)
}

// SaveText persists a text explicitly. A new document is created when none
// exists; otherwise the existing one is overwritten, guarded by optimistic
// concurrency when ifMatch is non-empty. Markup is sanitized on the way in.
func (s *Service) SaveText(_ context.Context, st models.SavedText, ifMatch string) (*TextDetail, error) {
	if strings.TrimSpace(st.Name) == "" {
		return nil, fmt.Errorf("%w: text name is required", apperr.ErrInvalid)
	}
	if strings.TrimSpace(st.Profile) == "" {
		return nil, apperr.ErrNoProfile
	}
	st.Content = editor.Sanitize(st.Content)

	path := textdoc.Path(st.Profile, st.Name)
	now := time.Now().UTC()
	st.UpdatedAt = now

	existing, err := s.store.Read(path)
	switch {
	case err == nil:
		if ifMatch != "" && ifMatch != checksum.Sum(existing) {
			return nil, apperr.ErrConflict
		}
		if prev, decErr := textdoc.Decode(existing); decErr == nil && !prev.CreatedAt.IsZero() {
			st.CreatedAt = prev.CreatedAt
		} else {
			st.CreatedAt = now
		}
	case errors.Is(err, os.ErrNotExist):
		st.CreatedAt = now
	default:
		return nil, err
	}

	return s.write(path, st)
}

// AutoSave upserts a text from a background save. Unlike SaveText it never
// checks concurrency, and an empty incoming title keeps the stored one so a
// cleared title field cannot clobber a previously saved text.
func (s *Service) AutoSave(_ context.Context, profile, name, title, content string) (*TextDetail, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: text name is required", apperr.ErrInvalid)
	}
	if strings.TrimSpace(profile) == "" {
		return nil, apperr.ErrNoProfile
	}
	content = editor.Sanitize(content)

	path := textdoc.Path(profile, name)
	now := time.Now().UTC()

	st := models.SavedText{
		Name:      name,
		Title:     strings.TrimSpace(title),
		Content:   content,
		Profile:   profile,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if existing, err := s.store.Read(path); err == nil {
		if prev, decErr := textdoc.Decode(existing); decErr == nil {
			st.MetaDescription = prev.MetaDescription
			st.Keywords = prev.Keywords
			st.Category = prev.Category
			st.FeaturedImageURL = prev.FeaturedImageURL
			if !prev.CreatedAt.IsZero() {
				st.CreatedAt = prev.CreatedAt
			}
			if st.Title == "" {
				st.Title = prev.Title
			}
		}
	}

	return s.write(path, st)
}

// DeleteText removes a text from storage and index.
func (s *Service) DeleteText(_ context.Context, profile, name string) error {
	path := textdoc.Path(profile, name)
	if err := s.store.Delete(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return apperr.ErrNotFound
		}
		return err
	}
	return s.db.DeleteText(path)
}

// RenameText moves a text to a new name within its profile. The target name
// must be free.
func (s *Service) RenameText(_ context.Context, profile, oldName, newName string) (*TextDetail, error) {
	if strings.TrimSpace(newName) == "" {
		return nil, fmt.Errorf("%w: new name is required", apperr.ErrInvalid)
	}
	oldPath := textdoc.Path(profile, oldName)
	newPath := textdoc.Path(profile, newName)

	data, err := s.store.Read(oldPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	if _, err := s.store.Read(newPath); err == nil {
		return nil, apperr.ErrAlreadyExists
	}

	st, err := textdoc.Decode(data)
	if err != nil {
		return nil, err
	}
	st.Name = newName
	st.UpdatedAt = time.Now().UTC()

	// Relocate the file first, then rewrite it in place with the updated
	// name so a crash between the two leaves a readable document.
	if err := s.store.Move(oldPath, newPath); err != nil {
		return nil, err
	}
	detail, err := s.write(newPath, st)
	if err != nil {
		return nil, err
	}
	if err := s.db.DeleteText(oldPath); err != nil {
		return nil, err
	}
	return detail, nil
}

// ListTexts returns paginated texts, optionally scoped to one profile.
func (s *Service) ListTexts(_ context.Context, profile string, limit, offset int, sort string) ([]TextListItem, int, error) {
	rows, total, err := s.db.ListTexts(profile, limit, offset, sort)
	if err != nil {
		return nil, 0, err
	}
	items := make([]TextListItem, len(rows))
	for i, r := range rows {
		items[i] = TextListItem{
			Path:      r.Path,
			Profile:   r.Profile,
			Name:      r.Name,
			Title:     r.Title,
			Keywords:  nonNilSlice(r.Keywords),
			Checksum:  r.Checksum,
			UpdatedAt: r.UpdatedAt,
		}
	}
	return items, total, nil
}

// Search delegates full-text search to the index.
func (s *Service) Search(_ context.Context, query, profile string, limit int) ([]index.SearchResult, error) {
	return s.db.Search(query, profile, limit)
}

// ExportMarkdown converts a saved text's markup to Markdown, prefixed with
// its title as a heading. Returns the document and a suggested filename.
func (s *Service) ExportMarkdown(ctx context.Context, profile, name string) ([]byte, string, error) {
	detail, err := s.GetText(ctx, profile, name)
	if err != nil {
		return nil, "", err
	}
	md, err := htmltomarkdown.ConvertString(detail.Content)
	if err != nil {
		return nil, "", fmt.Errorf("textservice: convert markdown: %w", err)
	}
	var b strings.Builder
	if detail.Title != "" {
		b.WriteString("# " + detail.Title + "\n\n")
	}
	b.WriteString(strings.TrimSpace(md))
	b.WriteString("\n")
	return []byte(b.String()), textdoc.Slug(name) + ".md", nil
}

// write encodes st, stores it at path, and indexes the result.
func (s *Service) write(path string, st models.SavedText) (*TextDetail, error) {
	data, err := textdoc.Encode(st)
	if err != nil {
		return nil, err
	}
	if err := s.store.Write(path, data); err != nil {
		return nil, err
	}
	if err := s.IndexDoc(path, data); err != nil {
		return nil, err
	}
	return buildDetail(path, data)
}

// IndexDoc parses data and upserts it into the index.
// Exported so that sync and watcher paths can reuse it.
func (s *Service) IndexDoc(path string, data []byte) error {
	res, err := textdoc.Parse(data)
	if err != nil {
		return err
	}
	return s.db.UpsertText(index.TextRow{
		Path:      path,
		Profile:   res.Profile,
		Name:      res.Name,
		Title:     res.Title,
		Keywords:  nonNilSlice(res.Keywords),
		Checksum:  checksum.Sum(data),
		UpdatedAt: res.UpdatedAt,
	}, res.Body)
}

// buildDetail constructs a TextDetail from raw data without re-reading the
// file.
func buildDetail(path string, data []byte) (*TextDetail, error) {
	st, err := textdoc.Decode(data)
	if err != nil {
		return nil, err
	}
	return &TextDetail{
		SavedText: st,
		Path:      path,
		Checksum:  checksum.Sum(data),
	}, nil
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
