package mssql

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/microsoft/go-mssqldb"

	"webextract/internal/storage"
)

// Sink implements storage.Sink for Microsoft SQL Server.
type Sink struct {
	db *sql.DB
}

func init() {
	storage.Register("mssql", New)
}

// New connects to SQL Server using the "sqlserver" driver and validates
// connectivity with a ping.
func New(ctx context.Context, cfg storage.Config) (storage.Sink, error) {
	db, err := sql.Open("sqlserver", cfg.DSN)
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
IF NOT EXISTS (SELECT 1 FROM sys.tables WHERE name = 'records')
CREATE TABLE records (
	id BIGINT IDENTITY(1,1) PRIMARY KEY,
	source_url NVARCHAR(2048) NOT NULL,
	fetched_at DATETIMEOFFSET NOT NULL,
	data NVARCHAR(MAX) NOT NULL
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
		`INSERT INTO records (source_url, fetched_at, data) VALUES (@p1, @p2, @p3)`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	var n int64
	for _, rec := range recs {
		if _, err := stmt.ExecContext(ctx, rec.SourceURL, rec.FetchedAt, rec.Data); err != nil {
			return n, fmt.Errorf("insert record: %w", err)
		}
		n++
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return n, nil
}
