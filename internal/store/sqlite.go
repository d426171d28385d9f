package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"atsquick/internal/errors"
	"atsquick/internal/types"

	_ "modernc.org/sqlite"
)

// SQLiteStore keeps the result in a single-row SQLite table
type SQLiteStore struct {
	db     *sql.DB
	logger *errors.Logger
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and ensures the
// results table exists.
func NewSQLiteStore(dbPath string, logger *errors.Logger) (*SQLiteStore, error) {
	if dbPath == "" {
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig, "store path is required for the sqlite backend", nil)
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("creating sqlite directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging sqlite db: %w", err)
	}

	createTable := `CREATE TABLE IF NOT EXISTS results (
		key      TEXT PRIMARY KEY,
		payload  TEXT NOT NULL,
		saved_at DATETIME NOT NULL
	)`
	if _, err := db.Exec(createTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating results table: %w", err)
	}

	return &SQLiteStore{db: db, logger: logger}, nil
}

// Save replaces the stored result
func (s *SQLiteStore) Save(ctx context.Context, result types.AnalysisResult) error {
	payload, err := encodeResult(result)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO results (key, payload, saved_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET payload = excluded.payload, saved_at = excluded.saved_at`,
		SlotKey, string(payload), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("saving analysis result: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Load(ctx context.Context) (types.AnalysisResult, bool) {
	var payload string
	err := s.db.QueryRowContext(ctx, "SELECT payload FROM results WHERE key = ?", SlotKey).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, false
	}
	if err != nil {
		if s.logger != nil {
			s.logger.Warn("Cannot read stored analysis", "error", err.Error())
		}
		return nil, false
	}
	return decodeResult([]byte(payload), "sqlite", s.logger)
}

func (s *SQLiteStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM results WHERE key = ?", SlotKey); err != nil {
		return fmt.Errorf("clearing analysis result: %w", err)
	}
	return nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
