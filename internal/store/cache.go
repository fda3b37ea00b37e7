package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SaveCatalog replaces the cached catalog payload.
func (d *DB) SaveCatalog(payload []byte, fetchedAt time.Time) error {
	_, err := d.db.Exec(`INSERT INTO catalog_cache (id, payload, fetched_at)
		VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET payload = excluded.payload, fetched_at = excluded.fetched_at`,
		string(payload), fetchedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("caching catalog: %w", err)
	}
	return nil
}

// LoadCatalog returns the cached catalog payload and when it was fetched.
// It reports false when nothing is cached.
func (d *DB) LoadCatalog() ([]byte, time.Time, bool, error) {
	var payload, fetched string
	err := d.db.QueryRow("SELECT payload, fetched_at FROM catalog_cache WHERE id = 1").Scan(&payload, &fetched)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, time.Time{}, false, nil
	}
	if err != nil {
		return nil, time.Time{}, false, fmt.Errorf("reading catalog cache: %w", err)
	}
	at, _ := time.Parse(time.RFC3339Nano, fetched)
	return []byte(payload), at, true, nil
}

// ClearCatalog drops the cached catalog.
func (d *DB) ClearCatalog() error {
	_, err := d.db.Exec("DELETE FROM catalog_cache")
	return err
}
