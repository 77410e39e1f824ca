package pgprobe

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allConfigKeys = []string{
	KeyType, KeyHost, KeyPort, KeyName, KeyUser, KeyPassword, KeySSLMode, KeySchema,
	KeyPoolSize, KeyPoolRecycle, KeyPoolTimeout, KeyPoolPrePing,
}

// clearProbeEnv pins every recognized key to empty so tests see defaults
// regardless of the host environment.
func clearProbeEnv(t *testing.T) {
	t.Helper()
	for _, key := range allConfigKeys {
		t.Setenv(key, "")
	}
}

func TestResolveConfig_Defaults(t *testing.T) {
	clearProbeEnv(t)

	cfg, err := ResolveConfig(nil)
	require.NoError(t, err)

	assert.Equal(t, "postgresql", cfg.Type)
	assert.Equal(t, "localhost", cfg.Host)
	assert.Equal(t, 5434, cfg.Port)
	assert.Equal(t, "dashboard_360", cfg.Database)
	assert.Equal(t, "dashboard_user", cfg.User)
	assert.Empty(t, cfg.Password)
	assert.Equal(t, "disable", cfg.SSLMode)
	assert.Equal(t, "igpt", cfg.Schema)
	assert.Equal(t, int32(10), cfg.PoolSize)
	assert.Equal(t, time.Hour, cfg.PoolRecycle)
	assert.Equal(t, 30*time.Second, cfg.PoolTimeout)
	assert.True(t, cfg.PoolPrePing)
}

func TestResolveConfig_EnvironmentBeatsDefaults(t *testing.T) {
	clearProbeEnv(t)
	t.Setenv(KeyHost, "db.internal")
	t.Setenv(KeyPort, "6543")
	t.Setenv(KeyPoolPrePing, "False")

	cfg, err := ResolveConfig(nil)
	require.NoError(t, err)

	assert.Equal(t, "db.internal", cfg.Host)
	assert.Equal(t, 6543, cfg.Port)
	assert.False(t, cfg.PoolPrePing)
}

func TestResolveConfig_OverridesBeatEnvironment(t *testing.T) {
	clearProbeEnv(t)
	t.Setenv(KeyHost, "db.internal")

	cfg, err := ResolveConfig(map[string]string{
		KeyHost:   "10.0.0.7",
		KeySchema: "public",
	})
	require.NoError(t, err)

	assert.Equal(t, "10.0.0.7", cfg.Host)
	assert.Equal(t, "public", cfg.Schema)
}

func TestResolveConfig_EmptyOverrideFallsThrough(t *testing.T) {
	clearProbeEnv(t)
	t.Setenv(KeyUser, "svc_probe")

	cfg, err := ResolveConfig(map[string]string{KeyUser: ""})
	require.NoError(t, err)

	assert.Equal(t, "svc_probe", cfg.User)
}

func TestResolveConfig_RejectsUnsupportedType(t *testing.T) {
	clearProbeEnv(t)

	_, err := ResolveConfig(map[string]string{KeyType: "mysql"})
	require.Error(t, err)

	var cfgErr *ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, KeyType, cfgErr.Key)
	assert.Contains(t, err.Error(), "only postgresql is supported")
}

func TestResolveConfig_RejectsMalformedNumerics(t *testing.T) {
	clearProbeEnv(t)

	for key, value := range map[string]string{
		KeyPort:        "not-a-port",
		KeyPoolSize:    "many",
		KeyPoolRecycle: "1h",
		KeyPoolTimeout: "soon",
		KeyPoolPrePing: "maybe",
	} {
		_, err := ResolveConfig(map[string]string{key: value})
		require.Error(t, err, "key %s", key)

		var cfgErr *ConfigError
		require.True(t, errors.As(err, &cfgErr), "key %s", key)
		assert.Equal(t, key, cfgErr.Key)
	}
}

func TestResolveConfig_AcceptsPythonStyleBoolean(t *testing.T) {
	clearProbeEnv(t)
	t.Setenv(KeyPoolPrePing, "True")

	cfg, err := ResolveConfig(nil)
	require.NoError(t, err)
	assert.True(t, cfg.PoolPrePing)
}

func TestConfig_DSN(t *testing.T) {
	t.Parallel()

	cfg := Config{
		Type:     "postgresql",
		Host:     "localhost",
		Port:     5434,
		Database: "dashboard_360",
		User:     "dashboard_user",
		SSLMode:  "disable",
		Schema:   "igpt",
	}

	dsn := cfg.dsn(10 * time.Second)
	assert.Contains(t, dsn, "host=localhost")
	assert.Contains(t, dsn, "port=5434")
	assert.Contains(t, dsn, "dbname=dashboard_360")
	assert.Contains(t, dsn, "user=dashboard_user")
	assert.Contains(t, dsn, "sslmode=disable")
	assert.Contains(t, dsn, "connect_timeout=10")
	assert.Contains(t, dsn, "options='-c search_path=igpt'")
	assert.NotContains(t, dsn, "password=", "empty password must be omitted")

	cfg.Password = "p ss'wd"
	dsn = cfg.dsn(5 * time.Second)
	assert.Contains(t, dsn, `password='p ss\'wd'`)
	assert.Contains(t, dsn, "connect_timeout=5")
}

func TestConfig_RedactedNeverShowsPassword(t *testing.T) {
	t.Parallel()

	cfg := Config{
		Type:     "postgresql",
		Host:     "db.example.com",
		Port:     5434,
		Database: "dashboard_360",
		User:     "dashboard_user",
		Password: "supersecret",
		SSLMode:  "require",
		Schema:   "igpt",
	}

	redacted := cfg.Redacted()
	assert.NotContains(t, redacted, "supersecret")
	assert.Contains(t, redacted, "dashboard_user")
	assert.Contains(t, redacted, "db.example.com:5434")
	assert.Contains(t, redacted, "dashboard_360")
}

func TestConfig_ValidatePortRange(t *testing.T) {
	t.Parallel()

	cfg := Config{Type: "postgresql", Host: "localhost", Port: 0}
	var cfgErr *ConfigError
	require.True(t, errors.As(cfg.Validate(), &cfgErr))
	assert.Equal(t, KeyPort, cfgErr.Key)
}
