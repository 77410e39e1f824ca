package pgprobe

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Configuration keys recognized by ResolveConfig. Values are resolved
// per key: explicit override, then process environment, then default.
const (
	KeyType     = "DB_TYPE"
	KeyHost     = "DB_HOST"
	KeyPort     = "DB_PORT"
	KeyName     = "DB_NAME"
	KeyUser     = "DB_USER"
	KeyPassword = "DB_PASSWORD"
	KeySSLMode  = "DB_SSLMODE"
	KeySchema   = "DB_SCHEMA"

	// Pool keys keep their historical names for compatibility with
	// deployments that already set them.
	KeyPoolSize    = "SQLALCHEMY_POOL_SIZE"
	KeyPoolRecycle = "SQLALCHEMY_POOL_RECYCLE"
	KeyPoolTimeout = "SQLALCHEMY_POOL_TIMEOUT"
	KeyPoolPrePing = "SQLALCHEMY_POOL_PRE_PING"
)

const (
	defaultType     = "postgresql"
	defaultHost     = "localhost"
	defaultPort     = "5434"
	defaultName     = "dashboard_360"
	defaultUser     = "dashboard_user"
	defaultPassword = ""
	defaultSSLMode  = "disable"
	defaultSchema   = "igpt"

	defaultPoolSize    = "10"
	defaultPoolRecycle = "3600"
	defaultPoolTimeout = "30"
	defaultPoolPrePing = "true"
)

// Config is the resolved connection configuration. It is immutable once
// constructed by ResolveConfig.
type Config struct {
	// Type must be "postgresql".
	Type string

	Host     string
	Port     int
	Database string
	User     string
	Password string
	SSLMode  string
	Schema   string

	// PoolSize is the maximum number of connections held by a Pool.
	PoolSize int32

	// PoolRecycle bounds the lifetime of a pooled connection.
	PoolRecycle time.Duration

	// PoolTimeout bounds pooled connection establishment.
	PoolTimeout time.Duration

	// PoolPrePing verifies connectivity when a Pool is opened.
	PoolPrePing bool
}

// ResolveConfig builds a Config from explicit overrides layered over the
// process environment, with per-key defaults. Overrides win; empty values
// fall through.
func ResolveConfig(overrides map[string]string) (Config, error) {
	lookup := func(key, def string) string {
		if v, ok := overrides[key]; ok && v != "" {
			return v
		}
		if v := os.Getenv(key); v != "" {
			return v
		}
		return def
	}

	cfg := Config{
		Type:     lookup(KeyType, defaultType),
		Host:     lookup(KeyHost, defaultHost),
		Database: lookup(KeyName, defaultName),
		User:     lookup(KeyUser, defaultUser),
		Password: lookup(KeyPassword, defaultPassword),
		SSLMode:  lookup(KeySSLMode, defaultSSLMode),
		Schema:   lookup(KeySchema, defaultSchema),
	}

	port, err := strconv.Atoi(lookup(KeyPort, defaultPort))
	if err != nil {
		return Config{}, &ConfigError{Key: KeyPort, Reason: "must be an integer"}
	}
	cfg.Port = port

	poolSize, err := strconv.ParseInt(lookup(KeyPoolSize, defaultPoolSize), 10, 32)
	if err != nil {
		return Config{}, &ConfigError{Key: KeyPoolSize, Reason: "must be an integer"}
	}
	cfg.PoolSize = int32(poolSize)

	recycle, err := strconv.Atoi(lookup(KeyPoolRecycle, defaultPoolRecycle))
	if err != nil {
		return Config{}, &ConfigError{Key: KeyPoolRecycle, Reason: "must be an integer number of seconds"}
	}
	cfg.PoolRecycle = time.Duration(recycle) * time.Second

	timeout, err := strconv.Atoi(lookup(KeyPoolTimeout, defaultPoolTimeout))
	if err != nil {
		return Config{}, &ConfigError{Key: KeyPoolTimeout, Reason: "must be an integer number of seconds"}
	}
	cfg.PoolTimeout = time.Duration(timeout) * time.Second

	prePing, err := strconv.ParseBool(lookup(KeyPoolPrePing, defaultPoolPrePing))
	if err != nil {
		return Config{}, &ConfigError{Key: KeyPoolPrePing, Reason: "must be a boolean"}
	}
	cfg.PoolPrePing = prePing

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate checks invariants that must hold before any connection attempt.
func (c Config) Validate() error {
	if c.Type != "postgresql" {
		return &ConfigError{
			Key:    KeyType,
			Reason: fmt.Sprintf("unsupported database type %q: only postgresql is supported", c.Type),
		}
	}
	if c.Host == "" {
		return &ConfigError{Key: KeyHost, Reason: "must not be empty"}
	}
	if c.Port < 1 || c.Port > 65535 {
		return &ConfigError{Key: KeyPort, Reason: "must be in range 1-65535"}
	}
	return nil
}

// dsn assembles a keyword/value connection string for one probe attempt.
// connectTimeout is per operation: probes use a tighter bound than pools.
func (c Config) dsn(connectTimeout time.Duration) string {
	parts := []string{
		"host=" + quoteDSNValue(c.Host),
		"port=" + strconv.Itoa(c.Port),
		"dbname=" + quoteDSNValue(c.Database),
		"user=" + quoteDSNValue(c.User),
	}
	if c.Password != "" {
		parts = append(parts, "password="+quoteDSNValue(c.Password))
	}
	parts = append(parts,
		"sslmode="+c.SSLMode,
		fmt.Sprintf("connect_timeout=%d", int(connectTimeout.Seconds())),
		"options="+quoteDSNValue("-c search_path="+c.Schema),
	)
	return strings.Join(parts, " ")
}

// quoteDSNValue quotes a libpq keyword/value component when it contains
// characters the parser would otherwise split on.
func quoteDSNValue(v string) string {
	if v != "" && !strings.ContainsAny(v, ` '\`) {
		return v
	}
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}

// Redacted returns a URL-form rendering of the configuration safe for
// display and logging. The password is never included.
func (c Config) Redacted() string {
	return fmt.Sprintf("postgresql://%s:xxxxx@%s:%d/%s?sslmode=%s&search_path=%s",
		c.User, c.Host, c.Port, c.Database, c.SSLMode, c.Schema)
}
