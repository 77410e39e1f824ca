package pgprobe

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// newPoolWithConfig is a package-private seam used by tests to force
// deterministic pool-construction outcomes without network dependencies.
var newPoolWithConfig = pgxpool.NewWithConfig

// OpenPool creates a long-lived connection pool from the resolved
// configuration. The pool knobs map onto pgx: PoolSize bounds MaxConns,
// PoolRecycle bounds connection lifetime, PoolTimeout bounds connection
// establishment, and PoolPrePing verifies connectivity before returning.
//
// Probe operations do not use a pool; each probe opens and closes exactly
// one connection. OpenPool serves applications that embed pgprobe and want
// a validated handle for ongoing work.
func OpenPool(ctx context.Context, cfg Config) (*Pool, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	pgxCfg, err := pgxpool.ParseConfig(cfg.dsn(cfg.PoolTimeout))
	if err != nil {
		// Parse errors from upstream may echo DSN content; keep the outer
		// message sanitized.
		return nil, &SafeError{
			msg:   fmt.Sprintf("pgprobe: invalid pool configuration (host=%s)", cfg.Host),
			cause: err,
		}
	}

	if cfg.PoolSize > 0 {
		pgxCfg.MaxConns = cfg.PoolSize
	}
	if cfg.PoolRecycle > 0 {
		pgxCfg.MaxConnLifetime = cfg.PoolRecycle
	}
	if cfg.PoolTimeout > 0 {
		pgxCfg.ConnConfig.ConnectTimeout = cfg.PoolTimeout
	}

	pool, err := newPoolWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, &SafeError{
			msg:   fmt.Sprintf("pgprobe: failed to create pool (host=%s)", cfg.Host),
			cause: err,
		}
	}

	if cfg.PoolPrePing {
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, &SafeError{
				msg:   fmt.Sprintf("pgprobe: initial ping failed (host=%s:%d)", cfg.Host, cfg.Port),
				cause: err,
			}
		}
	}

	return &Pool{pool: pool}, nil
}

// Pool wraps (does not embed) *pgxpool.Pool.
type Pool struct {
	pool *pgxpool.Pool
}

// Stat returns a snapshot of pool statistics.
func (p *Pool) Stat() *pgxpool.Stat {
	return p.pool.Stat()
}

func (p *Pool) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return p.pool.Exec(ctx, sql, args...)
}

func (p *Pool) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return p.pool.Query(ctx, sql, args...)
}

func (p *Pool) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return p.pool.QueryRow(ctx, sql, args...)
}

// Ping verifies connectivity.
func (p *Pool) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// Close releases all pool resources. Call once during shutdown.
func (p *Pool) Close() {
	p.pool.Close()
}
