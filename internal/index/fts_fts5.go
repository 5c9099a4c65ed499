//go:build sqlite_fts5

package index

import (
	"database/sql"
	"fmt"
	"strings"
)

func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS texts_fts USING fts5(
			path UNINDEXED,
			profile UNINDEXED,
			title,
			body,
			keywords,
			tokenize = 'unicode61 remove_diacritics 2'
		);
	`)
	return err
}

func ftsUpsert(tx *sql.Tx, path, profile, title, body string, keywords []string) error {
	_, _ = tx.Exec(`DELETE FROM texts_fts WHERE path = ?`, path)
	_, err := tx.Exec(`INSERT INTO texts_fts (path, profile, title, body, keywords) VALUES (?, ?, ?, ?, ?)`,
		path, profile, title, body, strings.Join(keywords, " "))
	if err != nil {
		return fmt.Errorf("index: upsert fts: %w", err)
	}
	return nil
}

func ftsDelete(tx *sql.Tx, path string) {
	_, _ = tx.Exec(`DELETE FROM texts_fts WHERE path = ?`, path)
}

// Search performs an FTS5 full-text search, optionally scoped to one
// profile, and returns matching results with snippets.
func (db *DB) Search(query, profile string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	q := `
		SELECT path,
		       profile,
		       title,
		       snippet(texts_fts, 3, '<b>', '</b>', '...', 64)
		FROM texts_fts
		WHERE texts_fts MATCH ?`
	args := []any{query}
	if profile != "" {
		q += ` AND profile = ?`
		args = append(args, profile)
	}
	q += ` ORDER BY rank LIMIT ?`
	args = append(args, limit)

	rows, err := db.conn.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}
	defer rows.Close()

	var out []SearchResult
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.Path, &r.Profile, &r.Title, &r.Snippet); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
