package pgprobe

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// Conn is the surface of a live server connection used by probe operations.
//
// Probes run a small fixed sequence of single-row queries, so QueryRow is
// the only query method required. Close must be safe to call exactly once
// per opened connection; probes guarantee they do so on every exit path.
type Conn interface {
	// QueryRow executes a query expected to return at most one row.
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row

	// Close releases the connection.
	Close(ctx context.Context) error
}

// Driver opens server connections. The default implementation is backed by
// pgx v5; tests substitute a TestDriver. A Prober constructed with a nil
// Driver reports every probe as failed without attempting a network call.
type Driver interface {
	Connect(ctx context.Context, dsn string) (Conn, error)
}

type pgxDriver struct{}

var _ Driver = pgxDriver{}

func (pgxDriver) Connect(ctx context.Context, dsn string) (Conn, error) {
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return conn, nil
}
