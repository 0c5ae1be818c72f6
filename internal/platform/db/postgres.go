package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Options tunes pool sizing beyond what the DSN carries. Zero values
// fall back to defaults sized for a single-store billing counter.
type Options struct {
	MaxConns int32
	MinConns int32
}

// New creates a PostgreSQL connection pool and verifies connectivity.
// MinConns keeps warm connections for the sale path so the first bill
// of the day does not pay the handshake cost.
func New(ctx context.Context, dsn string, opts Options) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("platform/db: parse config: %w", err)
	}

	config.MaxConns = opts.MaxConns
	if config.MaxConns <= 0 {
		config.MaxConns = 16
	}
	config.MinConns = opts.MinConns
	if config.MinConns <= 0 {
		config.MinConns = 2
	}
	config.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("platform/db: new pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("platform/db: ping: %w", err)
	}

	return pool, nil
}
