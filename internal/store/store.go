// Package store is the SQLite persistence layer: the append-only rating
// log plus the derived per-user records the engine maintains.
package store

import (
	"database/sql"
	"fmt"

	"github.com/calsper/tasteline/internal/migration"
	_ "github.com/mattn/go-sqlite3"
)

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec(migration.Create); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating tables: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// CreateUser ensures a user exists.
func (s *Store) CreateUser(user string) error {
	_, err := s.db.Exec("INSERT OR IGNORE INTO User (name) VALUES (?)", user)
	if err != nil {
		return fmt.Errorf("inserting user %q: %w", user, err)
	}
	return nil
}

// ListUsers returns every known user name.
func (s *Store) ListUsers() ([]string, error) {
	rows, err := s.db.Query("SELECT name FROM User ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	defer rows.Close()

	var users []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scanning user: %w", err)
		}
		users = append(users, name)
	}
	return users, rows.Err()
}

// SetLastRecomputed stamps the user's most recent pipeline run.
func (s *Store) SetLastRecomputed(user string) error {
	_, err := s.db.Exec("UPDATE User SET last_recomputed = CURRENT_TIMESTAMP WHERE name = ?", user)
	if err != nil {
		return fmt.Errorf("updating last_recomputed for %q: %w", user, err)
	}
	return nil
}
