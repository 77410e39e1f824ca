package pgprobe

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubPoolConstruction replaces the pool-construction seam for one test.
func stubPoolConstruction(t *testing.T, fn func(context.Context, *pgxpool.Config) (*pgxpool.Pool, error)) {
	t.Helper()

	orig := newPoolWithConfig
	newPoolWithConfig = fn
	t.Cleanup(func() { newPoolWithConfig = orig })
}

func TestOpenPool_MapsPoolKnobsOntoPgx(t *testing.T) {
	errStop := errors.New("stop-before-connect")

	var captured *pgxpool.Config
	stubPoolConstruction(t, func(_ context.Context, cfg *pgxpool.Config) (*pgxpool.Pool, error) {
		captured = cfg
		return nil, errStop
	})

	cfg := testConfig()
	cfg.Password = "supersecret"

	_, err := OpenPool(context.Background(), cfg)
	require.Error(t, err)
	assertSafeErrorWraps(t, err, errStop)
	assertNoDSNLeak(t, err.Error())
	assert.NotContains(t, err.Error(), "supersecret")

	require.NotNil(t, captured)
	assert.Equal(t, int32(10), captured.MaxConns)
	assert.Equal(t, time.Hour, captured.MaxConnLifetime)
	assert.Equal(t, 30*time.Second, captured.ConnConfig.ConnectTimeout)
	assert.Equal(t, "dashboard_360", captured.ConnConfig.Database)
	assert.Equal(t, uint16(5434), captured.ConnConfig.Port)
}

func TestOpenPool_PrePingDisabledReturnsWithoutPing(t *testing.T) {
	stubPoolConstruction(t, func(context.Context, *pgxpool.Config) (*pgxpool.Pool, error) {
		// A nil pool would panic on Ping; returning it proves OpenPool does
		// not ping when pre-ping is disabled.
		return nil, nil
	})

	cfg := testConfig()
	cfg.PoolPrePing = false

	pool, err := OpenPool(context.Background(), cfg)
	require.NoError(t, err)
	require.NotNil(t, pool)
}

func TestOpenPool_RejectsUnsupportedType(t *testing.T) {
	cfg := testConfig()
	cfg.Type = "mysql"

	_, err := OpenPool(context.Background(), cfg)
	require.Error(t, err)

	var cfgErr *ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, KeyType, cfgErr.Key)
}
