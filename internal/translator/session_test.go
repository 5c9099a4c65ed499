package translator

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/nborup/skribent/internal/apperr"
)

const sampleCSV = `Locale, Type ,Field,Default content,Translated content,Market
de,product,title,Solcreme SPF50,,dach
de,product,body_html,` + `"<p>Vandfast solcreme til hele familien</p>",,dach
en,product,title,Solcreme SPF50,Sunscreen SPF50,intl
sv,product,title,Solcreme SPF50,nan,norden
`

func loadSample(t *testing.T) (*Session, *File) {
	t.Helper()
	s := NewSession()
	f, err := s.LoadCSV("produkter.csv", strings.NewReader(sampleCSV))
	if err != nil {
		t.Fatalf("LoadCSV: %v", err)
	}
	return s, f
}

func TestLoadCSVNormalizesHeader(t *testing.T) {
	_, f := loadSample(t)
	if len(f.Rows) != 4 {
		t.Fatalf("rows = %d, want 4", len(f.Rows))
	}
	// "Locale" and " Type " in the header resolve to normalized names.
	if f.Rows[0].Locale != "de" || f.Rows[0].Type != "product" {
		t.Errorf("first row = %+v", f.Rows[0])
	}
	// "nan" cells count as empty translations.
	if !f.Rows[3].NeedsTranslation() {
		t.Error("nan cell should read as untranslated")
	}
	// Pass-through column survives.
	if f.Extra[f.Rows[0].ID]["market"] != "dach" {
		t.Errorf("extra = %+v", f.Extra[f.Rows[0].ID])
	}
}

func TestLoadCSVMissingColumn(t *testing.T) {
	s := NewSession()
	_, err := s.LoadCSV("bad.csv", strings.NewReader("locale,type,field\nda,x,y\n"))
	if !errors.Is(err, apperr.ErrInvalid) {
		t.Errorf("err = %v, want ErrInvalid", err)
	}
}

func TestRowIDsAreStable(t *testing.T) {
	s, f := loadSample(t)

	id := f.Rows[1].ID
	// Filter the grid down, then address the row by ID: the update must
	// land on that row no matter what the visible set looks like.
	visible := s.Rows(Filter{OnlyUntranslated: true, LongOnly: false})
	if len(visible) != 3 {
		t.Fatalf("visible = %d, want 3 untranslated", len(visible))
	}

	updated, err := s.UpdateRow(id, "<p>Wasserfeste Sonnencreme</p>")
	if err != nil {
		t.Fatalf("UpdateRow: %v", err)
	}
	if updated.Field != "body_html" {
		t.Errorf("update landed on row %+v", updated)
	}

	if _, err := s.UpdateRow("row-999", "x"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("unknown ID: err = %v, want ErrNotFound", err)
	}
}

func TestChangedFlagIsSticky(t *testing.T) {
	s, f := loadSample(t)
	id := f.Rows[0].ID

	if _, err := s.UpdateRow(id, "Sonnencreme SPF50"); err != nil {
		t.Fatal(err)
	}
	// Reverting to the original empty value keeps the flag set.
	row, err := s.UpdateRow(id, "")
	if err != nil {
		t.Fatal(err)
	}
	if !row.Changed {
		t.Error("changed flag cleared by revert")
	}

	_, _, changed := s.Counts(Filter{})
	if changed != 1 {
		t.Errorf("changed count = %d, want 1", changed)
	}
}

func TestFilteringDoesNotMutate(t *testing.T) {
	s, _ := loadSample(t)

	before := s.Rows(Filter{})
	_ = s.Rows(Filter{Query: "solcreme", OnlyUntranslated: true, LongOnly: true})
	_ = s.Rows(Filter{ShortOnly: true, Locale: "de"})
	after := s.Rows(Filter{})

	if len(before) != len(after) {
		t.Fatalf("row count changed: %d -> %d", len(before), len(after))
	}
	for i := range before {
		if before[i] != after[i] {
			t.Errorf("row %d mutated by filtering: %+v -> %+v", i, before[i], after[i])
		}
	}
}

func TestFilterSemantics(t *testing.T) {
	s, _ := loadSample(t)

	if got := len(s.Rows(Filter{Locale: "de"})); got != 2 {
		t.Errorf("locale filter = %d rows, want 2", got)
	}
	if got := len(s.Rows(Filter{Query: "VANDFAST"})); got != 1 {
		t.Errorf("query filter = %d rows, want 1 (case-insensitive)", got)
	}
	if got := len(s.Rows(Filter{OnlyUntranslated: true})); got != 3 {
		t.Errorf("untranslated filter = %d rows, want 3", got)
	}

	total, visible, _ := s.Counts(Filter{OnlyUntranslated: true})
	if total != 4 || visible != 3 {
		t.Errorf("counts = %d/%d, want 4/3", total, visible)
	}
}

func TestLongTextClassification(t *testing.T) {
	long := strings.Repeat("x", 301)
	data := "locale,type,field,default content,translated content\n" +
		"de,product,body_html," + long + ",\n" +
		"de,product,title,kort,\n"
	s := NewSession()
	if _, err := s.LoadCSV("len.csv", strings.NewReader(data)); err != nil {
		t.Fatal(err)
	}
	if got := len(s.Rows(Filter{LongOnly: true})); got != 1 {
		t.Errorf("long rows = %d, want 1", got)
	}
	if got := len(s.Rows(Filter{ShortOnly: true})); got != 1 {
		t.Errorf("short rows = %d, want 1", got)
	}
}

func TestFileStatsAndRemove(t *testing.T) {
	s, f := loadSample(t)

	stats := s.Files()
	if len(stats) != 1 {
		t.Fatalf("files = %d", len(stats))
	}
	st := stats[0]
	if st.TotalRows != 4 || st.UntranslatedRows != 3 {
		t.Errorf("stats = %+v", st)
	}
	if st.Locales["de"] != 2 || st.Locales["sv"] != 1 {
		t.Errorf("locale stats = %+v", st.Locales)
	}

	if err := s.RemoveFile(f.ID); err != nil {
		t.Fatalf("RemoveFile: %v", err)
	}
	if len(s.Files()) != 0 || len(s.Rows(Filter{})) != 0 {
		t.Error("rows survived file removal")
	}
	if err := s.RemoveFile(f.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("double remove: err = %v, want ErrNotFound", err)
	}
}

func TestExportCSVRoundTrip(t *testing.T) {
	s, f := loadSample(t)
	if _, err := s.UpdateRow(f.Rows[0].ID, "Sonnencreme SPF50"); err != nil {
		t.Fatal(err)
	}

	data, filename, err := s.ExportCSV(f.ID)
	if err != nil {
		t.Fatalf("ExportCSV: %v", err)
	}
	if filename != "produkter_translated.csv" {
		t.Errorf("filename = %q", filename)
	}

	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	if err != nil {
		t.Fatalf("reparse export: %v", err)
	}
	if len(records) != 5 {
		t.Fatalf("exported records = %d, want header + 4", len(records))
	}
	header := records[0]
	if header[0] != "locale" || header[len(header)-1] != "market" {
		t.Errorf("header = %v", header)
	}
	if records[1][4] != "Sonnencreme SPF50" {
		t.Errorf("edit missing from export: %v", records[1])
	}
	if records[1][5] != "dach" {
		t.Errorf("pass-through column lost: %v", records[1])
	}
}

func TestExportUntranslated(t *testing.T) {
	s, _ := loadSample(t)

	data, filename, err := s.ExportUntranslatedCSV(time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("ExportUntranslatedCSV: %v", err)
	}
	if filename != "untranslated_rows_20260830_120000.csv" {
		t.Errorf("filename = %q", filename)
	}
	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 4 {
		t.Errorf("records = %d, want header + 3", len(records))
	}

	xlsxData, xlsxName, err := s.ExportUntranslatedXLSX()
	if err != nil {
		t.Fatalf("ExportUntranslatedXLSX: %v", err)
	}
	if len(xlsxData) == 0 || !strings.HasSuffix(xlsxName, ".xlsx") {
		t.Errorf("xlsx export: %d bytes, name %q", len(xlsxData), xlsxName)
	}
}

func TestTranslateAll(t *testing.T) {
	s, f := loadSample(t)

	var calls int
	translate := func(_ context.Context, text, lang string) (string, error) {
		calls++
		if lang == "svensk" {
			return "", fmt.Errorf("boom")
		}
		return "[" + lang + "] " + text, nil
	}

	var progress []string
	n, err := s.TranslateAll(context.Background(), translate, func(done, total int, rowID, locale string, err error) {
		progress = append(progress, fmt.Sprintf("%d/%d %s", done, total, locale))
	})
	if err != nil {
		t.Fatalf("TranslateAll: %v", err)
	}
	// Three untranslated rows, the Swedish one fails.
	if n != 2 || calls != 3 {
		t.Errorf("translated %d rows in %d calls, want 2/3", n, calls)
	}
	if len(progress) != 3 {
		t.Errorf("progress calls = %d", len(progress))
	}

	rows := s.Rows(Filter{})
	if !strings.HasPrefix(rows[0].TranslatedContent, "[tysk] ") {
		t.Errorf("row 0 = %+v", rows[0])
	}
	if !strings.HasPrefix(rows[3].TranslatedContent, "[ERROR] ") {
		t.Errorf("failed row = %+v", rows[3])
	}
	// The already-translated English row was untouched.
	if rows[2].TranslatedContent != "Sunscreen SPF50" || rows[2].Changed {
		t.Errorf("translated row touched: %+v", rows[2])
	}

	_ = f
}

func TestTranslateAllBusyGuard(t *testing.T) {
	s, _ := loadSample(t)

	started := make(chan struct{})
	release := make(chan struct{})
	go s.TranslateAll(context.Background(), func(ctx context.Context, text, lang string) (string, error) {
		close(started)
		<-release
		return text, nil
	}, nil)

	<-started
	_, err := s.TranslateAll(context.Background(), func(ctx context.Context, text, lang string) (string, error) {
		return text, nil
	}, nil)
	if !errors.Is(err, apperr.ErrBusy) {
		t.Errorf("concurrent run: err = %v, want ErrBusy", err)
	}
	close(release)
}
