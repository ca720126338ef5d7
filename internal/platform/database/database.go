// Package database manages the PostgreSQL pool that backs the catalogue
// tables and the diagnosis event log.
package database

import (
	"context"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const defaultApplicationName = "gapfinder"

// DB wraps a pgx connection pool.
type DB struct {
	Pool *pgxpool.Pool
}

// Options holds pool settings. Zero values take the defaults.
type Options struct {
	URL             string
	MaxConns        int
	MinConns        int
	ApplicationName string
	ConnectTimeout  time.Duration
}

// ParseURL validates a PostgreSQL connection URL.
func ParseURL(url string) (*pgxpool.Config, error) {
	if url == "" {
		return nil, fmt.Errorf("database URL is empty")
	}
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("invalid database URL: %w", err)
	}
	return cfg, nil
}

// New opens a pool and pings it.
func New(ctx context.Context, opts Options) (*DB, error) {
	cfg, err := ParseURL(opts.URL)
	if err != nil {
		return nil, err
	}

	if opts.MaxConns > 0 {
		cfg.MaxConns = int32(opts.MaxConns)
	}
	if opts.MinConns > 0 && int32(opts.MinConns) <= cfg.MaxConns {
		cfg.MinConns = int32(opts.MinConns)
	}
	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.MaxConnIdleTime = 5 * time.Minute

	if opts.ApplicationName != "" {
		cfg.ConnConfig.RuntimeParams["application_name"] = opts.ApplicationName
	} else if _, ok := cfg.ConnConfig.RuntimeParams["application_name"]; !ok {
		cfg.ConnConfig.RuntimeParams["application_name"] = defaultApplicationName
	}

	timeout := opts.ConnectTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return &DB{Pool: pool}, nil
}

// Close shuts down the connection pool.
func (db *DB) Close() {
	if db == nil || db.Pool == nil {
		return
	}
	db.Pool.Close()
}

// HealthCheck verifies the database connection is alive.
func (db *DB) HealthCheck(ctx context.Context) error {
	return db.Pool.Ping(ctx)
}

// Migrate runs ddl in one transaction under an advisory lock derived from
// name, so processes starting together do not race on CREATE statements.
func Migrate(ctx context.Context, pool *pgxpool.Pool, name, ddl string) error {
	if pool == nil {
		return fmt.Errorf("migrate %s: pool is nil", name)
	}

	return pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", LockKey(name)); err != nil {
			return fmt.Errorf("migrate %s: acquiring lock: %w", name, err)
		}
		if _, err := tx.Exec(ctx, ddl); err != nil {
			return fmt.Errorf("migrate %s: %w", name, err)
		}
		return nil
	})
}

// LockKey maps a migration name to an advisory lock id.
func LockKey(name string) int64 {
	h := fnv.New64a()
	h.Write([]byte("gapfinder:" + name))
	return int64(h.Sum64())
}
