package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"webextract/internal/storage"
)

// Sink implements storage.Sink for Postgres. Record bodies land in a JSONB
// column so they stay queryable in place.
type Sink struct {
	pool *pgxpool.Pool
}

func init() {
	storage.Register("postgres", New)
}

// New connects a pgx pool to cfg.DSN.
func New(ctx context.Context, cfg storage.Config) (storage.Sink, error) {
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return &Sink{pool: pool}, nil
}

func (s *Sink) Close() { s.pool.Close() }

const createTableSQL = `
CREATE TABLE IF NOT EXISTS records (
	id BIGSERIAL PRIMARY KEY,
	source_url TEXT NOT NULL,
	fetched_at TIMESTAMPTZ NOT NULL,
	data JSONB NOT NULL
)`

// EnsureSchema creates the records table if it does not exist.
func (s *Sink) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, createTableSQL); err != nil {
		return fmt.Errorf("create records table: %w", err)
	}
	return nil
}

// InsertRecords appends records using one batched round trip.
func (s *Sink) InsertRecords(ctx context.Context, recs []storage.PageRecord) (int64, error) {
	if len(recs) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, rec := range recs {
		batch.Queue(
			`INSERT INTO records (source_url, fetched_at, data) VALUES ($1, $2, $3)`,
			rec.SourceURL, rec.FetchedAt, rec.Data,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	var n int64
	for range recs {
		cmd, err := br.Exec()
		if err != nil {
			return n, fmt.Errorf("insert record: %w", err)
		}
		n += cmd.RowsAffected()
	}
	return n, nil
}
