package storage

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"pasartani/internal/domain/repository"
	"pasartani/pkg/errors"
)

type sqliteCredentialStore struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewSQLiteCredentialStore opens (or creates) the durable local session
// file. The sync core only reads the session; login tooling writes it.
func NewSQLiteCredentialStore(path string) (repository.CredentialStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open credential store: %v", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping credential store: %v", err)
	}

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize credential store: %v", err)
	}

	return &sqliteCredentialStore{db: db}, nil
}

func initSchema(db *sql.DB) error {
	query := `CREATE TABLE IF NOT EXISTS session (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		token TEXT NOT NULL,
		user_id TEXT NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`
	if _, err := db.Exec(query); err != nil {
		return fmt.Errorf("failed to execute query %q: %v", query, err)
	}
	return nil
}

func (s *sqliteCredentialStore) Session() (string, string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var token, userID string
	err := s.db.QueryRow(`SELECT token, user_id FROM session WHERE id = 1`).Scan(&token, &userID)
	if err == sql.ErrNoRows {
		return "", "", errors.Unauthorized("no stored session", nil)
	}
	if err != nil {
		return "", "", errors.Internal("failed to read session", err)
	}
	return token, userID, nil
}

func (s *sqliteCredentialStore) Save(token, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		`INSERT INTO session (id, token, user_id, updated_at) VALUES (1, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET token = excluded.token, user_id = excluded.user_id, updated_at = excluded.updated_at`,
		token, userID, time.Now().UTC(),
	)
	if err != nil {
		return errors.Internal("failed to save session", err)
	}
	return nil
}

func (s *sqliteCredentialStore) Close() error {
	return s.db.Close()
}
