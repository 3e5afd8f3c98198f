// Package convlog persists one audit row per conversion request in SQLite.
// Writes go through an async batch writer so the request path never blocks
// on the database.
package convlog

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const Schema = `
CREATE TABLE IF NOT EXISTS conversions (
	id TEXT PRIMARY KEY,
	filename TEXT NOT NULL,
	kind TEXT NOT NULL,
	pages INTEGER NOT NULL DEFAULT 0,
	chunks INTEGER NOT NULL DEFAULT 0,
	ocr_pages INTEGER NOT NULL DEFAULT 0,
	image_count INTEGER NOT NULL DEFAULT 0,
	duration_ms INTEGER NOT NULL,
	status TEXT NOT NULL,
	error TEXT,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_conversions_created ON conversions(created_at);
CREATE INDEX IF NOT EXISTS idx_conversions_status ON conversions(status) WHERE status != 'ok';
`

const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Entry is one conversion audit row.
type Entry struct {
	ID         string
	Filename   string
	Kind       string // pdf, word, html
	Pages      int
	Chunks     int
	OCRPages   int
	ImageCount int
	Duration   time.Duration
	Status     string
	Error      string
	CreatedAt  time.Time
}

// Store persists conversion entries. Synchronous writes via Record,
// fire-and-forget via RecordAsync.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
	ch     chan *Entry
	done   chan struct{}
	once   sync.Once
}

// Open opens (creating if needed) the audit database at path with WAL mode
// and production pragmas, applies the schema and starts the batch writer.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("convlog: mkdir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("convlog: open: %w", err)
	}
	for _, pragma := range []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 10000",
		"PRAGMA synchronous = NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("convlog: %s: %w", pragma, err)
		}
	}
	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("convlog: schema: %w", err)
	}
	return NewStore(db, logger), nil
}

// NewStore wraps an existing database connection. The store takes ownership
// and closes it on Close.
func NewStore(db *sql.DB, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{
		db:     db,
		logger: logger,
		ch:     make(chan *Entry, 256),
		done:   make(chan struct{}),
	}
	go s.flushLoop()
	return s
}

// Init applies the schema. Open already does this; NewStore callers with a
// bare connection use Init.
func (s *Store) Init() error {
	_, err := s.db.Exec(Schema)
	return err
}

func (s *Store) fill(e *Entry) {
	if e.ID == "" {
		if id, err := uuid.NewV7(); err == nil {
			e.ID = id.String()
		} else {
			e.ID = uuid.NewString()
		}
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	if e.Status == "" {
		e.Status = StatusOK
	}
}

// Record inserts the entry synchronously.
func (s *Store) Record(ctx context.Context, e *Entry) error {
	s.fill(e)
	_, err := s.db.ExecContext(ctx, `INSERT INTO conversions
		(id, filename, kind, pages, chunks, ocr_pages, image_count, duration_ms, status, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Filename, e.Kind, e.Pages, e.Chunks, e.OCRPages, e.ImageCount,
		e.Duration.Milliseconds(), e.Status, e.Error, e.CreatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("convlog: insert: %w", err)
	}
	return nil
}

// RecordAsync queues the entry for the batch writer. Non-blocking; drops the
// entry when the buffer is full rather than backpressure the request path.
func (s *Store) RecordAsync(e *Entry) {
	s.fill(e)
	select {
	case s.ch <- e:
	default:
		s.logger.Warn("convlog: buffer full, dropping entry", "id", e.ID)
	}
}

// Recent returns up to limit entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `SELECT
		id, filename, kind, pages, chunks, ocr_pages, image_count, duration_ms, status, COALESCE(error, ''), created_at
		FROM conversions ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("convlog: query: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var durMs, createdMs int64
		if err := rows.Scan(&e.ID, &e.Filename, &e.Kind, &e.Pages, &e.Chunks,
			&e.OCRPages, &e.ImageCount, &durMs, &e.Status, &e.Error, &createdMs); err != nil {
			return nil, err
		}
		e.Duration = time.Duration(durMs) * time.Millisecond
		e.CreatedAt = time.UnixMilli(createdMs)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Close drains the async buffer, stops the writer and closes the database.
func (s *Store) Close() error {
	s.once.Do(func() {
		close(s.ch)
		<-s.done
	})
	return s.db.Close()
}

func (s *Store) flushLoop() {
	defer close(s.done)

	batch := make([]*Entry, 0, 32)
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case e, ok := <-s.ch:
			if !ok {
				s.flushBatch(batch)
				return
			}
			batch = append(batch, e)
			if len(batch) >= 32 {
				s.flushBatch(batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				s.flushBatch(batch)
				batch = batch[:0]
			}
		}
	}
}

func (s *Store) flushBatch(batch []*Entry) {
	if len(batch) == 0 {
		return
	}
	tx, err := s.db.Begin()
	if err != nil {
		s.logger.Error("convlog: begin tx", "error", err)
		return
	}
	stmt, err := tx.Prepare(`INSERT INTO conversions
		(id, filename, kind, pages, chunks, ocr_pages, image_count, duration_ms, status, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		s.logger.Error("convlog: prepare", "error", err)
		return
	}
	defer stmt.Close()

	for _, e := range batch {
		if _, err := stmt.Exec(e.ID, e.Filename, e.Kind, e.Pages, e.Chunks,
			e.OCRPages, e.ImageCount, e.Duration.Milliseconds(), e.Status,
			e.Error, e.CreatedAt.UnixMilli()); err != nil {
			s.logger.Error("convlog: insert", "error", err)
		}
	}
	if err := tx.Commit(); err != nil {
		s.logger.Error("convlog: commit", "error", err)
	}
}
