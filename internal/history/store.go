package history

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SendRecord is one dispatch attempt, successful or not.
type SendRecord struct {
	ID         int64
	EntryIndex int
	Message    string
	Status     string // "sent" | "failed"
	Error      string
	CreatedAt  time.Time
}

// Store keeps the send history in SQLite so the operator can inspect
// what a long-running process actually did.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewStore(dbPath string, logger *slog.Logger) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create database directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}

	// Single connection for SQLite
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	store := &Store{db: db, logger: logger}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database migration failed: %w", err)
	}
	return store, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sends (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		entry_index INTEGER NOT NULL,
		message     TEXT NOT NULL,
		status      TEXT NOT NULL,
		error       TEXT,
		created_at  DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_sends_time ON sends(created_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Record inserts one send attempt. Signature matches
// dispatch.Recorder.
func (s *Store) Record(ctx context.Context, entryIndex int, message, status, errText string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sends (entry_index, message, status, error, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		entryIndex, message, status, errText, time.Now(),
	)
	return err
}

// Recent returns the latest send attempts, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]SendRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, entry_index, message, status, error, created_at
		 FROM sends ORDER BY created_at DESC, id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []SendRecord
	for rows.Next() {
		var r SendRecord
		var errText sql.NullString
		if err := rows.Scan(&r.ID, &r.EntryIndex, &r.Message, &r.Status, &errText, &r.CreatedAt); err != nil {
			return nil, err
		}
		r.Error = errText.String
		records = append(records, r)
	}
	return records, rows.Err()
}

// Prune deletes records older than the retention window.
func (s *Store) Prune(ctx context.Context, retention time.Duration) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM sends WHERE created_at < ?`, time.Now().Add(-retention),
	)
	return err
}

func (s *Store) Close() error {
	return s.db.Close()
}
