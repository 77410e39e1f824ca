package pgprobe

import "time"

// Status classifies the outcome of a health check.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// Result is the value produced by a single probe operation. It is built
// fresh on every call and never mutated after return.
//
// On failure, Connected is false, Error is non-empty, and the server-derived
// fields are left at their zero values.
type Result struct {
	Connected bool      `json:"connected"`
	Timestamp time.Time `json:"timestamp"`

	// Error carries the failure description. Probe operations never return
	// a Go error across their boundary.
	Error string `json:"error,omitempty"`

	ServerVersion     string `json:"server_version,omitempty"`
	ReportedSchema    string `json:"reported_schema,omitempty"`
	ConfiguredSchema  string `json:"configured_schema"`
	DatabaseSize      int64  `json:"database_size_bytes,omitempty"`
	ActiveConnections int32  `json:"active_connections,omitempty"`
}

// HealthReport extends Result with the latency-derived status produced by
// HealthCheck.
type HealthReport struct {
	Result

	Status Status `json:"status"`

	// LatencyMS is the wall-clock time from just before the connection
	// attempt to just after the final query, in milliseconds. It is
	// populated even when the probe fails partway through.
	LatencyMS float64 `json:"latency_ms"`

	SchemaExists bool `json:"schema_exists"`
}

// Snapshot is the pure, no-I/O view returned by Info.
type Snapshot struct {
	Type     string `json:"type"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Database string `json:"database"`
	User     string `json:"user"`
	Schema   string `json:"schema"`
	SSLMode  string `json:"ssl_mode"`
	PoolSize int32  `json:"pool_size"`

	// Connected is advisory: it reflects the outcome of the most recent
	// TestConnection and may be stale.
	Connected bool `json:"connected"`

	Timestamp time.Time `json:"timestamp"`
}

// DeriveStatus applies the health classification rule: healthy requires a
// live connection, sub-second latency, and a present schema; a failed
// connection is unhealthy regardless of latency; everything else is
// degraded.
func DeriveStatus(connected bool, latencyMS float64, schemaExists bool) Status {
	if !connected {
		return StatusUnhealthy
	}
	if latencyMS < 1000 && schemaExists {
		return StatusHealthy
	}
	return StatusDegraded
}
