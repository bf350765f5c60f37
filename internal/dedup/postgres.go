package dedup

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/daniela/profile-archiver/internal/record"
)

// PostgresBacking is a durable Backing over a PostgreSQL table, shared
// across restarts and instances.
type PostgresBacking struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects to the database and ensures the mapping table
// exists.
func OpenPostgres(ctx context.Context, databaseURL string) (*PostgresBacking, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS dedup_entries (
			fingerprint TEXT PRIMARY KEY,
			cid         TEXT NOT NULL,
			gateway_url TEXT NOT NULL,
			created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ensure dedup table: %w", err)
	}
	return &PostgresBacking{pool: pool}, nil
}

// Close releases the connection pool.
func (b *PostgresBacking) Close() {
	if b.pool != nil {
		b.pool.Close()
	}
}

// Get returns the stored entry for a fingerprint, or nil when unknown.
func (b *PostgresBacking) Get(ctx context.Context, fp record.Fingerprint) (*Entry, error) {
	var e Entry
	err := b.pool.QueryRow(ctx,
		`SELECT cid, gateway_url FROM dedup_entries WHERE fingerprint = $1`,
		fp.Hex(),
	).Scan(&e.CID, &e.GatewayURL)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read dedup entry: %w", err)
	}
	return &e, nil
}

// Put records a fingerprint's identifier. First writer wins; identical
// content yields identical identifiers, so conflicts are not an error.
func (b *PostgresBacking) Put(ctx context.Context, fp record.Fingerprint, e Entry) error {
	_, err := b.pool.Exec(ctx,
		`INSERT INTO dedup_entries (fingerprint, cid, gateway_url)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (fingerprint) DO NOTHING`,
		fp.Hex(), e.CID, e.GatewayURL,
	)
	if err != nil {
		return fmt.Errorf("failed to write dedup entry: %w", err)
	}
	return nil
}
