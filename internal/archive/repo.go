package archive

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/starford/diagreplay/internal/checksum"
	"github.com/starford/diagreplay/internal/models"
)

// Meta keys written by Save.
const (
	MetaSource = "source"
)

// Save replaces the archive content with records. Records must already be
// deduplicated; their order is kept through the position column.
func (db *DB) Save(source string, records []models.Record) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("archive: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	if _, err := tx.Exec(`DELETE FROM records`); err != nil {
		return fmt.Errorf("archive: clear records: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO records (route, position, payload, checksum)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(route) DO UPDATE SET
			payload  = excluded.payload,
			checksum = excluded.checksum
	`)
	if err != nil {
		return fmt.Errorf("archive: prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, r := range records {
		if !r.Recovered() {
			continue
		}
		if _, err := stmt.Exec(r.Route, i, []byte(r.Payload), checksum.Sum(r.Payload)); err != nil {
			return fmt.Errorf("archive: insert %s: %w", r.Route, err)
		}
	}

	if _, err := tx.Exec(`
		INSERT INTO meta (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, MetaSource, source); err != nil {
		return fmt.Errorf("archive: write meta: %w", err)
	}

	return tx.Commit()
}

// Load returns every archived record in its original order.
func (db *DB) Load() ([]models.Record, error) {
	rows, err := db.conn.Query(`SELECT route, payload, checksum FROM records ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("archive: load: %w", err)
	}
	defer rows.Close()

	var out []models.Record
	for rows.Next() {
		var (
			r       models.Record
			payload []byte
			sum     string
		)
		if err := rows.Scan(&r.Route, &payload, &sum); err != nil {
			return nil, fmt.Errorf("archive: scan: %w", err)
		}
		if sum != "" && checksum.Sum(payload) != sum {
			return nil, fmt.Errorf("archive: checksum mismatch for %s", r.Route)
		}
		r.Payload = payload
		out = append(out, r)
	}
	return out, rows.Err()
}

// Count returns the number of archived records.
func (db *DB) Count() (int, error) {
	var n int
	if err := db.conn.QueryRow(`SELECT count(*) FROM records`).Scan(&n); err != nil {
		return 0, fmt.Errorf("archive: count: %w", err)
	}
	return n, nil
}

// Meta returns a metadata value, or "" when unset.
func (db *DB) Meta(key string) (string, error) {
	var v string
	err := db.conn.QueryRow(`SELECT value FROM meta WHERE key = ?`, key).Scan(&v)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("archive: meta %s: %w", key, err)
	}
	return v, nil
}
