package pgprobe

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
)

// ErrNotMocked is returned when a TestDriver or TestConn method is called
// without a corresponding Func field set.
var ErrNotMocked = errors.New("pgprobe: method not mocked — set the corresponding Func field")

// TestDriver is a mock Driver implementation for unit tests.
type TestDriver struct {
	ConnectFunc func(ctx context.Context, dsn string) (Conn, error)
}

var _ Driver = (*TestDriver)(nil)

func (d *TestDriver) Connect(ctx context.Context, dsn string) (Conn, error) {
	if d.ConnectFunc != nil {
		return d.ConnectFunc(ctx, dsn)
	}
	return nil, ErrNotMocked
}

// TestConn is a mock Conn implementation for unit tests.
type TestConn struct {
	QueryRowFunc func(ctx context.Context, sql string, args ...any) pgx.Row
	CloseFunc    func(ctx context.Context) error
}

var _ Conn = (*TestConn)(nil)

func (c *TestConn) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if c.QueryRowFunc != nil {
		return c.QueryRowFunc(ctx, sql, args...)
	}
	return &ErrRow{Err: ErrNotMocked}
}

func (c *TestConn) Close(ctx context.Context) error {
	if c.CloseFunc != nil {
		return c.CloseFunc(ctx)
	}
	return nil
}

// ErrRow implements pgx.Row. Its Scan always returns Err.
type ErrRow struct {
	Err error
}

func (r *ErrRow) Scan(dest ...any) error {
	return r.Err
}

// NewRow returns a pgx.Row backed by the provided values.
func NewRow(values ...any) pgx.Row {
	return &valueRow{values: values}
}

type valueRow struct {
	values []any
}

func (r *valueRow) Scan(dest ...any) error {
	if len(dest) != len(r.values) {
		return fmt.Errorf("pgprobe.valueRow: scan dest count %d != column count %d", len(dest), len(r.values))
	}

	for i, val := range r.values {
		if err := assignScanValue(i, dest[i], val); err != nil {
			return err
		}
	}

	return nil
}

func assignScanValue(idx int, dest any, val any) error {
	switch d := dest.(type) {
	case *string:
		v, ok := val.(string)
		if !ok {
			return fmt.Errorf("pgprobe.valueRow: expected string at column %d, got %T", idx, val)
		}
		*d = v
	case *int:
		v, ok := val.(int)
		if !ok {
			return fmt.Errorf("pgprobe.valueRow: expected int at column %d, got %T", idx, val)
		}
		*d = v
	case *int32:
		v, ok := val.(int32)
		if !ok {
			return fmt.Errorf("pgprobe.valueRow: expected int32 at column %d, got %T", idx, val)
		}
		*d = v
	case *int64:
		v, ok := val.(int64)
		if !ok {
			return fmt.Errorf("pgprobe.valueRow: expected int64 at column %d, got %T", idx, val)
		}
		*d = v
	case *bool:
		v, ok := val.(bool)
		if !ok {
			return fmt.Errorf("pgprobe.valueRow: expected bool at column %d, got %T", idx, val)
		}
		*d = v
	case *float64:
		v, ok := val.(float64)
		if !ok {
			return fmt.Errorf("pgprobe.valueRow: expected float64 at column %d, got %T", idx, val)
		}
		*d = v
	case *any:
		*d = val
	default:
		return fmt.Errorf("pgprobe.valueRow: unsupported scan target type %T at column %d", dest, idx)
	}

	return nil
}

// ScriptedConn returns a TestConn that dispatches QueryRow by SQL prefix.
// Unmatched queries scan as ErrNotMocked. Close is counted via closes.
func ScriptedConn(rows map[string]pgx.Row, closes *int) *TestConn {
	return &TestConn{
		QueryRowFunc: func(_ context.Context, sql string, _ ...any) pgx.Row {
			for prefix, row := range rows {
				if strings.HasPrefix(sql, prefix) {
					return row
				}
			}
			return &ErrRow{Err: ErrNotMocked}
		},
		CloseFunc: func(context.Context) error {
			if closes != nil {
				*closes++
			}
			return nil
		},
	}
}
