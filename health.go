package pgprobe

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const (
	schemaExistsQuery  = `SELECT EXISTS(SELECT 1 FROM information_schema.schemata WHERE schema_name = $1)`
	databaseStatsQuery = `SELECT pg_database_size(datname), numbackends FROM pg_stat_database WHERE datname = $1`
)

// HealthCheck opens a connection with a 5s bound, verifies liveness
// (SELECT 1), schema existence, and database stats, and classifies the
// outcome per DeriveStatus. Latency covers the whole scoped connection and
// is reported even when the probe fails partway through.
func (p *Prober) HealthCheck(ctx context.Context) HealthReport {
	start := p.now()
	rep := HealthReport{
		Result: Result{
			Timestamp:        start.UTC(),
			ConfiguredSchema: p.cfg.Schema,
		},
		Status: StatusUnhealthy,
	}

	fail := func(err error) HealthReport {
		rep.LatencyMS = p.elapsedMS(start)
		rep.Error = err.Error()
		rep.Status = StatusUnhealthy
		p.log.Error("health check failed",
			zap.Error(err),
			zap.Float64("latency_ms", rep.LatencyMS),
		)
		return rep
	}

	if p.driver == nil {
		return fail(errDriverUnavailable)
	}

	connCtx, cancel := context.WithTimeout(ctx, healthConnectTimeout)
	defer cancel()

	conn, err := p.driver.Connect(connCtx, p.cfg.dsn(healthConnectTimeout))
	if err != nil {
		return fail(err)
	}
	defer conn.Close(ctx)

	var one int
	if err := conn.QueryRow(ctx, "SELECT 1").Scan(&one); err != nil {
		return fail(err)
	}
	p.log.Info("health check: connection ok")

	var schemaExists bool
	if err := conn.QueryRow(ctx, schemaExistsQuery, p.cfg.Schema).Scan(&schemaExists); err != nil {
		return fail(err)
	}
	if !schemaExists {
		p.log.Warn("schema does not exist", zap.String("schema", p.cfg.Schema))
	}

	var size int64
	var backends int32
	if err := conn.QueryRow(ctx, databaseStatsQuery, p.cfg.Database).Scan(&size, &backends); err != nil {
		return fail(err)
	}

	rep.Connected = true
	rep.SchemaExists = schemaExists
	rep.DatabaseSize = size
	rep.ActiveConnections = backends
	rep.LatencyMS = p.elapsedMS(start)
	rep.Status = DeriveStatus(true, rep.LatencyMS, schemaExists)

	p.log.Info("health check complete",
		zap.String("status", string(rep.Status)),
		zap.Float64("latency_ms", rep.LatencyMS),
		zap.Bool("schema_exists", schemaExists),
		zap.Int32("active_connections", backends),
	)

	return rep
}

func (p *Prober) elapsedMS(start time.Time) float64 {
	return float64(p.now().Sub(start)) / float64(time.Millisecond)
}
