package snapshot

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/iisdela/pubsearch/internal/apperr"
)

// PutTable inserts or replaces a stored table.
func (db *DB) PutTable(t Table) error {
	_, err := db.conn.Exec(`
		INSERT INTO tables (name, checksum, content, fetched_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			checksum   = excluded.checksum,
			content    = excluded.content,
			fetched_at = excluded.fetched_at
	`, t.Name, t.Checksum, t.Content, t.FetchedAt)
	if err != nil {
		return fmt.Errorf("snapshot: put %s: %w", t.Name, err)
	}
	return nil
}

// GetTable returns the stored copy of a table, or apperr.ErrNotFound.
func (db *DB) GetTable(name string) (*Table, error) {
	t := Table{Name: name}
	err := db.conn.QueryRow(`SELECT checksum, content, fetched_at FROM tables WHERE name = ?`, name).
		Scan(&t.Checksum, &t.Content, &t.FetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("snapshot: get %s: %w", name, err)
	}
	return &t, nil
}

// Checksums returns the stored checksum of every table.
func (db *DB) Checksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT name, checksum FROM tables`)
	if err != nil {
		return nil, fmt.Errorf("snapshot: checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var name, cs string
		if err := rows.Scan(&name, &cs); err != nil {
			return nil, err
		}
		out[name] = cs
	}
	return out, rows.Err()
}

// RecordLoad appends an entry to the load history.
func (db *DB) RecordLoad(l LoadRecord) error {
	_, err := db.conn.Exec(`
		INSERT INTO loads (version, checksum, source, publications, authors, row_errors, stale, loaded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, l.Version, l.Checksum, l.Source, l.Publications, l.Authors, l.RowErrors, l.Stale, l.LoadedAt)
	if err != nil {
		return fmt.Errorf("snapshot: record load: %w", err)
	}
	return nil
}

// RecentLoads returns the newest load records first.
func (db *DB) RecentLoads(limit int) ([]LoadRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := db.conn.Query(`
		SELECT version, checksum, source, publications, authors, row_errors, stale, loaded_at
		FROM loads
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("snapshot: recent loads: %w", err)
	}
	defer rows.Close()

	var out []LoadRecord
	for rows.Next() {
		var l LoadRecord
		if err := rows.Scan(&l.Version, &l.Checksum, &l.Source, &l.Publications, &l.Authors, &l.RowErrors, &l.Stale, &l.LoadedAt); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}
