package translator

import (
	"context"
	"fmt"

	"github.com/nborup/skribent/internal/apperr"
)

// localeNames maps Shopify locale codes to the Danish language names the
// translation prompt uses.
var localeNames = map[string]string{
	"da": "dansk",
	"de": "tysk",
	"en": "engelsk",
	"es": "spansk",
	"fr": "fransk",
	"it": "italiensk",
	"nl": "hollandsk",
	"sv": "svensk",
	"no": "norsk",
	"fi": "finsk",
	"pl": "polsk",
	"pt": "portugisisk",
	"ru": "russisk",
	"zh": "kinesisk",
	"ja": "japansk",
}

// TranslateFunc performs one machine translation of text into the target
// language (a Danish language name, e.g. "tysk").
type TranslateFunc func(ctx context.Context, text, targetLanguage string) (string, error)

// RowProgress reports the outcome of each row during TranslateAll.
type RowProgress func(done, total int, rowID, locale string, err error)

// TranslateAll machine-translates every untranslated row with a supported
// locale. Only one run may be active per session; concurrent calls get
// ErrBusy. Failed rows keep their source content behind an error marker so
// they stay visible in the grid, and the run continues.
func (s *Session) TranslateAll(ctx context.Context, translate TranslateFunc, progress RowProgress) (int, error) {
	s.mu.Lock()
	if s.translating {
		s.mu.Unlock()
		return 0, fmt.Errorf("%w: a translation run is already in progress", apperr.ErrBusy)
	}
	s.translating = true

	// Snapshot the IDs to work on; row content is re-read per ID so
	// interleaved manual edits are not overwritten blindly.
	var ids []string
	for _, fid := range s.order {
		for _, row := range s.files[fid].Rows {
			if row.NeedsTranslation() && localeNames[row.Locale] != "" {
				ids = append(ids, row.ID)
			}
		}
	}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.translating = false
		s.mu.Unlock()
	}()

	translated := 0
	for i, id := range ids {
		if err := ctx.Err(); err != nil {
			return translated, err
		}

		s.mu.Lock()
		row := s.locate(id)
		if row == nil || !row.NeedsTranslation() {
			s.mu.Unlock()
			continue
		}
		source := row.DefaultContent
		locale := row.Locale
		s.mu.Unlock()

		out, err := translate(ctx, source, localeNames[locale])

		s.mu.Lock()
		if row := s.locate(id); row != nil {
			if err != nil {
				row.TranslatedContent = "[ERROR] " + source
			} else {
				row.TranslatedContent = out
				row.Changed = true
				translated++
			}
		}
		s.mu.Unlock()

		if progress != nil {
			progress(i+1, len(ids), id, locale, err)
		}
	}
	return translated, nil
}

// Translating reports whether a TranslateAll run is active.
func (s *Session) Translating() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.translating
}
