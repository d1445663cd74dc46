package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"webextract/internal/storage"
)

// Sink implements storage.Sink for SQLite.
//
// SQLite has no timezone-aware timestamp type; fetched_at is stored as an
// RFC3339Nano string for reliable round trips and easy debugging.
type Sink struct {
	db *sql.DB
}

func init() {
	storage.Register("sqlite", New)
}

// New opens (or creates) the SQLite database at cfg.DSN.
func New(ctx context.Context, cfg storage.Config) (storage.Sink, error) {
	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Sink{db: db}, nil
}

func (s *Sink) Close() { _ = s.db.Close() }

const createTableSQL = `
CREATE TABLE IF NOT EXISTS records (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	source_url TEXT NOT NULL,
	fetched_at TEXT NOT NULL,
	data TEXT NOT NULL
)`

// EnsureSchema creates the records table if it does not exist.
func (s *Sink) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, createTableSQL); err != nil {
		return fmt.Errorf("create records table: %w", err)
	}
	return nil
}

// InsertRecords appends records inside one transaction.
func (s *Sink) InsertRecords(ctx context.Context, recs []storage.PageRecord) (int64, error) {
	if len(recs) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO records (source_url, fetched_at, data) VALUES (?, ?, ?)`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	var n int64
	for _, rec := range recs {
		if _, err := stmt.ExecContext(ctx,
			rec.SourceURL,
			rec.FetchedAt.UTC().Format(time.RFC3339Nano),
			rec.Data,
		); err != nil {
			return n, fmt.Errorf("insert record: %w", err)
		}
		n++
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return n, nil
}
