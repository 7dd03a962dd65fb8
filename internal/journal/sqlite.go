package journal

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

const (
	recordRetries   = 3
	recordBaseDelay = 50 * time.Millisecond
	maxRecentLimit  = 500
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db      *sql.DB
	writeMu sync.Mutex
}

// Ensure SQLiteStore implements Repository.
var _ Repository = (*SQLiteStore)(nil)

// NewSQLite opens (or creates) the journal database at dbPath.
func NewSQLite(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS activity (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		kind TEXT NOT NULL,
		lesson_id TEXT,
		session_id TEXT,
		status TEXT NOT NULL,
		detail TEXT,
		duration_ms INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_activity_created ON activity(created_at);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Record appends an entry, retrying with exponential backoff when the database is busy.
func (s *SQLiteStore) Record(ctx context.Context, e *Entry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}

	for i := 0; i < recordRetries; i++ {
		err := s.recordOnce(ctx, e)
		if err == nil {
			return nil
		}
		if !isConflictError(err) || i == recordRetries-1 {
			return fmt.Errorf("record %s after %d attempts: %w", e.Kind, i+1, err)
		}

		delay := recordBaseDelay * time.Duration(1<<i)
		slog.Debug("Journal write busy, retrying", "kind", e.Kind, "attempt", i+1, "delay", delay)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (s *SQLiteStore) recordOnce(ctx context.Context, e *Entry) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	query := `
	INSERT INTO activity (kind, lesson_id, session_id, status, detail, duration_ms, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)`

	res, err := s.db.ExecContext(ctx, query,
		string(e.Kind), nullString(e.LessonID), nullString(e.SessionID),
		string(e.Status), nullString(e.Detail),
		e.Duration.Milliseconds(), e.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("insert activity: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("get insert id: %w", err)
	}
	e.ID = id
	return nil
}

// Recent returns up to limit entries, newest first.
func (s *SQLiteStore) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 || limit > maxRecentLimit {
		limit = maxRecentLimit
	}

	query := `
		SELECT id, kind, lesson_id, session_id, status, detail, duration_ms, created_at
		FROM activity ORDER BY created_at DESC, id DESC LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query activity: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close activity rows", "error", closeErr)
		}
	}()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		var kind, status string
		var lessonID, sessionID, detail sql.NullString
		var durationMs, createdAt int64

		if err := rows.Scan(&e.ID, &kind, &lessonID, &sessionID, &status, &detail, &durationMs, &createdAt); err != nil {
			return nil, fmt.Errorf("scan activity row: %w", err)
		}

		e.Kind = Kind(kind)
		e.Status = Status(status)
		e.LessonID = lessonID.String
		e.SessionID = sessionID.String
		e.Detail = detail.String
		e.Duration = time.Duration(durationMs) * time.Millisecond
		e.CreatedAt = time.UnixMilli(createdAt)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate activity: %w", err)
	}

	return entries, nil
}

// Prune removes entries older than retention.
func (s *SQLiteStore) Prune(ctx context.Context, retention time.Duration) (int64, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	threshold := time.Now().Add(-retention).UnixMilli()
	result, err := s.db.ExecContext(ctx, `DELETE FROM activity WHERE created_at < ?`, threshold)
	if err != nil {
		return 0, fmt.Errorf("prune activity: %w", err)
	}
	return result.RowsAffected()
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
