package store

import (
	"database/sql"
	"fmt"
	"time"
)

// CacheGet returns the cached payload for (kind, key) if it is fresher
// than ttl.
func (s *Store) CacheGet(kind, key string, ttl time.Duration) ([]byte, bool, error) {
	row := s.db.QueryRow(
		"SELECT payload, fetched_at FROM CatalogCache WHERE kind = ? AND key = ?", kind, key)

	var payload string
	var fetchedAt int64
	err := row.Scan(&payload, &fetchedAt)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading cache %s/%s: %w", kind, key, err)
	}

	if time.Since(time.Unix(fetchedAt, 0)) > ttl {
		return nil, false, nil
	}
	return []byte(payload), true, nil
}

// CachePut stores a payload for (kind, key), refreshing its timestamp.
func (s *Store) CachePut(kind, key string, payload []byte) error {
	_, err := s.db.Exec(`
		INSERT INTO CatalogCache (kind, key, payload, fetched_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(kind, key) DO UPDATE SET payload = excluded.payload, fetched_at = excluded.fetched_at`,
		kind, key, string(payload), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("writing cache %s/%s: %w", kind, key, err)
	}
	return nil
}
