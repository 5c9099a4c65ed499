package index

import (
	"encoding/json"
	"fmt"
	"time"
)

// TextRow represents a row in the texts table.
type TextRow struct {
	Path      string
	Profile   string
	Name      string
	Title     string
	Keywords  []string
	Checksum  string
	UpdatedAt time.Time
}

// SearchResult represents one search hit.
type SearchResult struct {
	Path    string
	Profile string
	Title   string
	Snippet string
}

// UpsertText inserts or replaces a text and its FTS entry within a
// transaction. body is the plain-text projection used for search.
func (db *DB) UpsertText(r TextRow, body string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	keywordsJSON, _ := json.Marshal(r.Keywords)

	// Upsert texts table (includes body for fallback search).
	_, err = tx.Exec(`
		INSERT INTO texts (path, profile, name, title, keywords, checksum, body, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			profile    = excluded.profile,
			name       = excluded.name,
			title      = excluded.title,
			keywords   = excluded.keywords,
			checksum   = excluded.checksum,
			body       = excluded.body,
			updated_at = excluded.updated_at
	`, r.Path, r.Profile, r.Name, r.Title, string(keywordsJSON), r.Checksum, body, r.UpdatedAt)
	if err != nil {
		return fmt.Errorf("index: upsert text: %w", err)
	}

	// FTS upsert (no-op when FTS5 tag is absent).
	if err := ftsUpsert(tx, r.Path, r.Profile, r.Title, body, r.Keywords); err != nil {
		return err
	}

	return tx.Commit()
}

// DeleteText removes a text and its FTS entry.
func (db *DB) DeleteText(path string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ftsDelete(tx, path)
	_, _ = tx.Exec(`DELETE FROM texts WHERE path = ?`, path)

	return tx.Commit()
}

// GetChecksum returns the stored checksum for a text, or empty string if
// not found.
func (db *DB) GetChecksum(path string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM texts WHERE path = ?`, path).Scan(&cs)
	if err != nil {
		return "", nil // not found is fine
	}
	return cs, nil
}

// GetText returns a single indexed row, or nil when absent.
func (db *DB) GetText(path string) (*TextRow, error) {
	var r TextRow
	var keywordsJSON string
	err := db.conn.QueryRow(`
		SELECT path, profile, name, title, keywords, checksum, updated_at
		FROM texts WHERE path = ?
	`, path).Scan(&r.Path, &r.Profile, &r.Name, &r.Title, &keywordsJSON, &r.Checksum, &r.UpdatedAt)
	if err != nil {
		return nil, nil //nolint:nilnil // absence is not an error here
	}
	_ = json.Unmarshal([]byte(keywordsJSON), &r.Keywords)
	return &r, nil
}

// ListTexts returns a page of indexed texts plus the total count. An empty
// profile lists across all profiles. sort is "name" or "updated" (default).
func (db *DB) ListTexts(profile string, limit, offset int, sort string) ([]TextRow, int, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	where := ""
	args := []any{}
	if profile != "" {
		where = "WHERE profile = ?"
		args = append(args, profile)
	}

	var total int
	if err := db.conn.QueryRow(`SELECT COUNT(*) FROM texts `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("index: count texts: %w", err)
	}

	order := "updated_at DESC"
	if sort == "name" {
		order = "name COLLATE NOCASE ASC"
	}

	query := fmt.Sprintf(`
		SELECT path, profile, name, title, keywords, checksum, updated_at
		FROM texts %s ORDER BY %s LIMIT ? OFFSET ?
	`, where, order)
	rows, err := db.conn.Query(query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("index: list texts: %w", err)
	}
	defer rows.Close()

	var out []TextRow
	for rows.Next() {
		var r TextRow
		var keywordsJSON string
		if err := rows.Scan(&r.Path, &r.Profile, &r.Name, &r.Title, &keywordsJSON, &r.Checksum, &r.UpdatedAt); err != nil {
			return nil, 0, err
		}
		_ = json.Unmarshal([]byte(keywordsJSON), &r.Keywords)
		out = append(out, r)
	}
	return out, total, rows.Err()
}

// AllChecksums returns path → checksum for every indexed text.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, checksum FROM texts`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, err
		}
		out[p] = cs
	}
	return out, rows.Err()
}
