package index

import (
	"log/slog"

	"github.com/nborup/skribent/internal/checksum"
	"github.com/nborup/skribent/internal/storage"
	"github.com/nborup/skribent/internal/textdoc"
)

// Sync walks the library and brings the index up to date:
//   - new/changed documents are parsed and upserted
//   - documents removed from disk are deleted from the index
func Sync(db *DB, store storage.Provider, logger *slog.Logger) error {
	metas, err := store.List("")
	if err != nil {
		return err
	}

	checksums, err := db.AllChecksums()
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		disk[m.Path] = struct{}{}

		if checksums[m.Path] == m.Checksum {
			continue
		}

		data, err := store.Read(m.Path)
		if err != nil {
			logger.Warn("sync: read failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		if err := indexDoc(db, m.Path, data); err != nil {
			logger.Warn("sync: index failed", slog.String("path", m.Path), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: indexed", slog.String("path", m.Path))
		}
	}

	// Remove stale entries.
	for p := range checksums {
		if _, ok := disk[p]; !ok {
			if err := db.DeleteText(p); err != nil {
				logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
			} else {
				logger.Debug("sync: removed stale", slog.String("path", p))
			}
		}
	}

	return nil
}

// indexDoc parses data and upserts it into the DB.
func indexDoc(db *DB, path string, data []byte) error {
	res, err := textdoc.Parse(data)
	if err != nil {
		return err
	}

	row := TextRow{
		Path:      path,
		Profile:   res.Profile,
		Name:      res.Name,
		Title:     res.Title,
		Keywords:  res.Keywords,
		Checksum:  checksum.Sum(data),
		UpdatedAt: res.UpdatedAt,
	}
	return db.UpsertText(row, res.Body)
}
