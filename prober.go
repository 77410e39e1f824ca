package pgprobe

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

const (
	testConnectTimeout   = 10 * time.Second
	healthConnectTimeout = 5 * time.Second
)

// Prober runs connectivity probes against a single PostgreSQL database.
//
// Each operation opens exactly one connection, runs a fixed query sequence,
// and closes the connection before returning. A Prober holds no connection
// state between calls and is safe for concurrent use; the advisory
// connected flag is the only shared field and callers must tolerate it
// being stale.
type Prober struct {
	cfg    Config
	driver Driver
	log    *zap.Logger

	// now is a seam for deterministic latency in tests.
	now func() time.Time

	// connected is advisory only: written by TestConnection, read by Info.
	connected atomic.Bool
}

// Option configures a Prober.
type Option func(*Prober)

// WithDriver substitutes the connection driver. Passing an explicitly nil
// Driver models a missing client library: probes fail fast without a
// network call.
func WithDriver(d Driver) Option {
	return func(p *Prober) {
		p.driver = d
	}
}

// WithLogger sets the logging collaborator. The Prober emits semantic
// events (connected, schema mismatch, probe failed); formatting and sinks
// belong to the caller. Defaults to a no-op logger.
func WithLogger(log *zap.Logger) Option {
	return func(p *Prober) {
		if log != nil {
			p.log = log
		}
	}
}

// New validates cfg and constructs a Prober. It is the only place a
// pgprobe error crosses a public boundary; every probe operation reports
// failure through its result value instead.
func New(cfg Config, opts ...Option) (*Prober, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	p := &Prober{
		cfg:    cfg,
		driver: pgxDriver{},
		log:    zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(p)
	}

	p.log.Info("prober initialized",
		zap.String("host", cfg.Host),
		zap.Int("port", cfg.Port),
		zap.String("database", cfg.Database),
		zap.String("schema", cfg.Schema),
		zap.String("user", cfg.User),
	)

	return p, nil
}

// TestConnection opens a connection with a 10s bound and runs three
// introspection queries: server version, current schema, and database
// identity/size. A schema mismatch is logged as a warning but does not
// fail the probe. The connection is released on every exit path.
func (p *Prober) TestConnection(ctx context.Context) Result {
	res := Result{
		Timestamp:        p.now().UTC(),
		ConfiguredSchema: p.cfg.Schema,
	}

	if p.driver == nil {
		res.Error = errDriverUnavailable.Error()
		p.log.Error("probe failed", zap.String("reason", res.Error))
		return res
	}

	connCtx, cancel := context.WithTimeout(ctx, testConnectTimeout)
	defer cancel()

	conn, err := p.driver.Connect(connCtx, p.cfg.dsn(testConnectTimeout))
	if err != nil {
		p.connected.Store(false)
		res.Error = err.Error()
		p.log.Error("probe failed: connect", zap.Error(err))
		return res
	}
	defer conn.Close(ctx)

	p.log.Info("connected", zap.String("host", p.cfg.Host), zap.Int("port", p.cfg.Port))

	var version string
	if err := conn.QueryRow(ctx, "SELECT version()").Scan(&version); err != nil {
		return p.failProbe(res, "server version query", err)
	}

	var reported string
	if err := conn.QueryRow(ctx, "SELECT current_schema()").Scan(&reported); err != nil {
		return p.failProbe(res, "current schema query", err)
	}

	var dbName, dbUser string
	var size int64
	const identityQuery = "SELECT current_database(), current_user, pg_database_size(current_database())"
	if err := conn.QueryRow(ctx, identityQuery).Scan(&dbName, &dbUser, &size); err != nil {
		return p.failProbe(res, "database info query", err)
	}

	if reported != p.cfg.Schema {
		p.log.Warn("schema mismatch",
			zap.String("configured", p.cfg.Schema),
			zap.String("reported", reported),
		)
	}

	res.Connected = true
	res.ServerVersion = version
	res.ReportedSchema = reported
	res.DatabaseSize = size
	p.connected.Store(true)

	p.log.Info("connection test passed",
		zap.String("database", dbName),
		zap.String("user", dbUser),
		zap.Int64("size_bytes", size),
		zap.String("schema", reported),
	)

	return res
}

// failProbe records a post-connect query failure. The deferred close in
// TestConnection still releases the connection.
func (p *Prober) failProbe(res Result, op string, err error) Result {
	p.connected.Store(false)
	res.Connected = false
	res.Error = fmt.Sprintf("%s: %s", op, err)
	p.log.Error("probe failed: "+op, zap.Error(err))
	return res
}

// Info returns a snapshot of the resolved configuration plus the advisory
// connected flag. It performs no I/O and cannot fail.
func (p *Prober) Info() Snapshot {
	return Snapshot{
		Type:      p.cfg.Type,
		Host:      p.cfg.Host,
		Port:      p.cfg.Port,
		Database:  p.cfg.Database,
		User:      p.cfg.User,
		Schema:    p.cfg.Schema,
		SSLMode:   p.cfg.SSLMode,
		PoolSize:  p.cfg.PoolSize,
		Connected: p.connected.Load(),
		Timestamp: p.now().UTC(),
	}
}

// Config returns the resolved configuration.
func (p *Prober) Config() Config {
	return p.cfg
}
