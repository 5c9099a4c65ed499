// Package translator manages uploaded Shopify translation CSV files: the
// editable grid, filtering, machine translation, and exports.
//
// Rows carry stable opaque IDs assigned at load time. All lookups go
// through those IDs, so filtering and re-ordering in a client can never
// address the wrong row.
package translator

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/nborup/skribent/internal/apperr"
	"github.com/nborup/skribent/internal/models"
)

// requiredColumns must all be present (after header normalization) for a
// file to be accepted.
var requiredColumns = []string{"locale", "type", "field", "default content", "translated content"}

// File is one uploaded CSV held in the session.
type File struct {
	ID       string
	Filename string
	Columns  []string // normalized header, original order
	Rows     []models.TranslationRow
	// Extra holds pass-through values for columns outside the required
	// set, keyed by row ID then column name. They survive round trips to
	// the exported CSV untouched.
	Extra map[string]map[string]string
}

// Session is the in-memory translator state. It holds any number of files
// at once; rows from all files share one grid.
type Session struct {
	mu       sync.Mutex
	files    map[string]*File
	order    []string
	nextFile int
	nextRow  int

	translating bool
}

// NewSession creates an empty translator session.
func NewSession() *Session {
	return &Session{files: make(map[string]*File)}
}

// LoadCSV parses an uploaded file and adds it to the session. The header
// is normalized (trimmed, lowercased) before the required columns are
// checked, so cosmetic variations in exports are accepted.
func (s *Session) LoadCSV(filename string, r io.Reader) (*File, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: empty or unreadable CSV", apperr.ErrInvalid)
	}
	columns := make([]string, len(header))
	colIdx := make(map[string]int, len(header))
	for i, h := range header {
		norm := strings.ToLower(strings.TrimSpace(h))
		columns[i] = norm
		if _, dup := colIdx[norm]; !dup {
			colIdx[norm] = i
		}
	}
	for _, req := range requiredColumns {
		if _, ok := colIdx[req]; !ok {
			return nil, fmt.Errorf("%w: missing required column %q", apperr.ErrInvalid, req)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextFile++
	f := &File{
		ID:       fmt.Sprintf("file-%d", s.nextFile),
		Filename: filename,
		Columns:  columns,
		Extra:    make(map[string]map[string]string),
	}

	cell := func(record []string, col string) string {
		i, ok := colIdx[col]
		if !ok || i >= len(record) {
			return ""
		}
		return record[i]
	}

	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: malformed CSV row: %v", apperr.ErrInvalid, err)
		}

		s.nextRow++
		row := models.TranslationRow{
			ID:                fmt.Sprintf("row-%d", s.nextRow),
			Locale:            strings.TrimSpace(cell(record, "locale")),
			Type:              cell(record, "type"),
			Field:             cell(record, "field"),
			DefaultContent:    cell(record, "default content"),
			TranslatedContent: cleanCell(cell(record, "translated content")),
			SourceFile:        f.ID,
		}
		f.Rows = append(f.Rows, row)

		extra := make(map[string]string)
		for i, col := range columns {
			if isRequired(col) || i >= len(record) {
				continue
			}
			extra[col] = record[i]
		}
		if len(extra) > 0 {
			f.Extra[row.ID] = extra
		}
	}

	s.files[f.ID] = f
	s.order = append(s.order, f.ID)
	return f, nil
}

// cleanCell maps spreadsheet artifacts to empty content.
func cleanCell(v string) string {
	if strings.TrimSpace(v) == "nan" {
		return ""
	}
	return v
}

func isRequired(col string) bool {
	for _, req := range requiredColumns {
		if col == req {
			return true
		}
	}
	return false
}

// FileStats summarizes one loaded file.
type FileStats struct {
	ID               string         `json:"id"`
	Filename         string         `json:"filename"`
	TotalRows        int            `json:"total_rows"`
	UntranslatedRows int            `json:"untranslated_rows"`
	Locales          map[string]int `json:"locales"` // locale → untranslated count
}

// Files returns stats for every loaded file, in upload order.
func (s *Session) Files() []FileStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]FileStats, 0, len(s.order))
	for _, id := range s.order {
		f := s.files[id]
		st := FileStats{
			ID:       f.ID,
			Filename: f.Filename,
			Locales:  make(map[string]int),
		}
		for _, row := range f.Rows {
			st.TotalRows++
			if row.NeedsTranslation() {
				st.UntranslatedRows++
				st.Locales[row.Locale]++
			}
		}
		out = append(out, st)
	}
	return out
}

// RemoveFile drops a file and its rows from the session.
func (s *Session) RemoveFile(fileID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.files[fileID]; !ok {
		return apperr.ErrNotFound
	}
	delete(s.files, fileID)
	for i, id := range s.order {
		if id == fileID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// Filter selects which rows a grid view shows.
type Filter struct {
	Query            string // case-insensitive substring over content fields
	OnlyUntranslated bool
	LongOnly         bool // only rows whose source exceeds the long-text threshold
	ShortOnly        bool
	Locale           string
}

// matches applies the visibility rules. Filtering inspects content only;
// it never mutates rows.
func (f Filter) matches(row models.TranslationRow) bool {
	if f.OnlyUntranslated && !row.NeedsTranslation() {
		return false
	}
	if f.LongOnly && !row.LongText() {
		return false
	}
	if f.ShortOnly && row.LongText() {
		return false
	}
	if f.Locale != "" && !strings.EqualFold(row.Locale, f.Locale) {
		return false
	}
	if q := strings.ToLower(strings.TrimSpace(f.Query)); q != "" {
		hay := strings.ToLower(row.DefaultContent + "\n" + row.TranslatedContent + "\n" + row.Field + "\n" + row.Type)
		if !strings.Contains(hay, q) {
			return false
		}
	}
	return true
}

// Rows returns all rows passing the filter, across files in upload order.
func (s *Session) Rows(f Filter) []models.TranslationRow {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.TranslationRow
	for _, id := range s.order {
		for _, row := range s.files[id].Rows {
			if f.matches(row) {
				out = append(out, row)
			}
		}
	}
	return out
}

// Counts reports grid totals: all rows, rows visible under f, and rows
// whose translation has been edited this session.
func (s *Session) Counts(f Filter) (total, visible, changed int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range s.order {
		for _, row := range s.files[id].Rows {
			total++
			if row.Changed {
				changed++
			}
			if f.matches(row) {
				visible++
			}
		}
	}
	return total, visible, changed
}

// UpdateRow sets a row's translated content by ID and marks it changed.
// The changed flag is sticky: reverting the content to its original value
// does not clear it.
func (s *Session) UpdateRow(rowID, translated string) (models.TranslationRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row := s.locate(rowID)
	if row == nil {
		return models.TranslationRow{}, apperr.ErrNotFound
	}
	row.TranslatedContent = translated
	row.Changed = true
	return *row, nil
}

// locate returns a pointer into the backing slice for rowID. Caller holds
// mu.
func (s *Session) locate(rowID string) *models.TranslationRow {
	for _, id := range s.order {
		f := s.files[id]
		for i := range f.Rows {
			if f.Rows[i].ID == rowID {
				return &f.Rows[i]
			}
		}
	}
	return nil
}

// ExportCSV serializes one file back to CSV in its original column order,
// including session edits. The suggested filename appends "_translated".
func (s *Session) ExportCSV(fileID string) ([]byte, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.files[fileID]
	if !ok {
		return nil, "", apperr.ErrNotFound
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(f.Columns); err != nil {
		return nil, "", fmt.Errorf("translator: write header: %w", err)
	}
	for _, row := range f.Rows {
		record := make([]string, len(f.Columns))
		for i, col := range f.Columns {
			switch col {
			case "locale":
				record[i] = row.Locale
			case "type":
				record[i] = row.Type
			case "field":
				record[i] = row.Field
			case "default content":
				record[i] = row.DefaultContent
			case "translated content":
				record[i] = row.TranslatedContent
			default:
				record[i] = f.Extra[row.ID][col]
			}
		}
		if err := w.Write(record); err != nil {
			return nil, "", fmt.Errorf("translator: write row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, "", fmt.Errorf("translator: flush: %w", err)
	}

	base := strings.TrimSuffix(f.Filename, ".csv")
	return buf.Bytes(), base + "_translated.csv", nil
}

// UntranslatedRows returns every row still awaiting translation, across
// all files, sorted by locale for readable exports.
func (s *Session) UntranslatedRows() []models.TranslationRow {
	rows := s.Rows(Filter{OnlyUntranslated: true})
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Locale < rows[j].Locale })
	return rows
}

// ExportUntranslatedCSV serializes every untranslated row, required
// columns only, with a timestamped filename.
func (s *Session) ExportUntranslatedCSV(now time.Time) ([]byte, string, error) {
	rows := s.UntranslatedRows()
	if len(rows) == 0 {
		return nil, "", fmt.Errorf("%w: no untranslated rows", apperr.ErrNotFound)
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write(requiredColumns)
	for _, row := range rows {
		_ = w.Write([]string{row.Locale, row.Type, row.Field, row.DefaultContent, row.TranslatedContent})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, "", fmt.Errorf("translator: flush: %w", err)
	}
	filename := fmt.Sprintf("untranslated_rows_%s.csv", now.Format("20060102_150405"))
	return buf.Bytes(), filename, nil
}
