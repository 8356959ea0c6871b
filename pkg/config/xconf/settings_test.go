package xconf

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omeyang/xshield/pkg/resilience/xbreaker"
	"github.com/omeyang/xshield/pkg/resilience/xprovider"
	"github.com/omeyang/xshield/pkg/resilience/xretry"
	"github.com/omeyang/xshield/pkg/storage/xcache"
)

const settingsYAML = `
log:
  level: debug
  format: json
redis:
  addr: 10.0.0.5:6379
  pool_size: 20
cache:
  l1_max_size: 500
  l1_ttl: 2m
  default_ttl: 30m
  key_prefix: "svc:"
  codec: msgpack
  invalidation_channel: xshield:events
breaker_defaults:
  failure_threshold: 4
  reset_timeout: 30s
providers:
  pricing:
    circuit_breaker:
      failure_threshold: 3
    retry:
      max_attempts: 2
      base_delay: 200ms
      max_delay: 2s
      backoff: linear
    timeout: 5s
    cache:
      enabled: true
      ttl: 1m
    fallback:
      getQuote: rethrow
      createOrder: "null"
  inventory:
    timeout: 10s
`

func TestLoadSettings(t *testing.T) {
	cfg, err := NewFromBytes([]byte(settingsYAML), FormatYAML)
	require.NoError(t, err)

	s, err := LoadSettings(cfg)
	require.NoError(t, err)

	assert.Equal(t, "debug", s.Log.Level)
	assert.Equal(t, "10.0.0.5:6379", s.Redis.Addr)
	assert.Equal(t, 5*time.Second, s.Redis.DialTimeout, "defaults survive partial sections")
	assert.Equal(t, 500, s.Cache.L1MaxSize)
	assert.Equal(t, xcache.DefaultMinTTL, s.Cache.MinTTL)
	assert.Equal(t, 30*time.Minute, s.Cache.DefaultTTL)
	assert.Equal(t, 4, s.BreakerDefaults.FailureThreshold)
	assert.Equal(t, xbreaker.DefaultSuccessThreshold, s.BreakerDefaults.SuccessThreshold)
	assert.Equal(t, []string{"inventory", "pricing"}, s.ProviderNames())

	p, ok := s.ProviderConfig("pricing")
	require.True(t, ok)
	assert.Equal(t, 3, p.CircuitBreaker.FailureThreshold)
	assert.Equal(t, 30*time.Second, p.CircuitBreaker.ResetTimeout)
	assert.Equal(t, xretry.BackoffLinear, p.Retry.Backoff)
	assert.Equal(t, 200*time.Millisecond, p.Retry.BaseDelay)
	assert.Equal(t, 5*time.Second, p.Timeout)
	assert.True(t, p.Cache.Enabled)
	assert.Equal(t, xprovider.FallbackRethrow, p.Fallback["getQuote"])
	assert.Equal(t, xprovider.FallbackNull, p.Fallback["createOrder"])

	inv, ok := s.ProviderConfig("inventory")
	require.True(t, ok)
	assert.False(t, inv.Cache.Enabled)
	assert.Equal(t, 4, inv.CircuitBreaker.FailureThreshold)

	_, ok = s.ProviderConfig("missing")
	assert.False(t, ok)
}

func TestLoadSettings_Defaults(t *testing.T) {
	cfg, err := NewFromBytes(nil, FormatYAML)
	require.NoError(t, err)
	s, err := LoadSettings(cfg)
	require.NoError(t, err)
	want := DefaultSettings()
	assert.Equal(t, &want, s)
}

func TestLoadSettings_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"level", "log:\n  level: loud\n"},
		{"format", "log:\n  format: xml\n"},
		{"addr", "redis:\n  addr: \"\"\n"},
		{"ttl bounds", "cache:\n  min_ttl: 2h\n  max_ttl: 1h\n"},
		{"codec", "cache:\n  codec: gob\n"},
		{"breaker", "breaker_defaults:\n  failure_threshold: -1\n"},
		{"provider backoff", "providers:\n  p:\n    retry:\n      backoff: random\n"},
		{"provider fallback", "providers:\n  p:\n    fallback:\n      getA: ignore\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := NewFromBytes([]byte(tt.yaml), FormatYAML)
			require.NoError(t, err)
			_, err = LoadSettings(cfg)
			require.Error(t, err)
		})
	}
}

func TestSettings_ValidateJoinsErrors(t *testing.T) {
	s := DefaultSettings()
	s.Log.Level = "loud"
	s.Redis.Addr = ""
	err := s.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidSettings)
	assert.Contains(t, err.Error(), "log.level")
	assert.Contains(t, err.Error(), "redis.addr")
}

func TestCacheSettings_Options(t *testing.T) {
	c := DefaultSettings().Cache
	c.Codec = "msgpack"
	c.InvalidationChannel = "events"
	c.SlowThreshold = time.Second
	opts, err := c.Options()
	require.NoError(t, err)
	assert.Len(t, opts, 10)

	c.Codec = "gob"
	_, err = c.Options()
	assert.ErrorIs(t, err, ErrInvalidSettings)
}

func TestRedisSettings_Options(t *testing.T) {
	r := RedisSettings{Addr: "a:1", DB: 3, PoolSize: 7, DialTimeout: time.Second}
	o := r.Options()
	assert.Equal(t, "a:1", o.Addr)
	assert.Equal(t, 3, o.DB)
	assert.Equal(t, 7, o.PoolSize)
	assert.Equal(t, time.Second, o.DialTimeout)
}

func TestLogSettings_Builder(t *testing.T) {
	file := filepath.Join(t.TempDir(), "xshield.log")
	l := LogSettings{Level: "warn", Format: "json", File: file, MaxSizeMB: 10, MaxBackups: 2, MaxAgeDays: 1, Compress: true}
	logger, cleanup, err := l.Builder().Build()
	require.NoError(t, err)
	t.Cleanup(func() { _ = cleanup() })
	assert.NotNil(t, logger)

	_, _, err = LogSettings{Level: "loud"}.Builder().Build()
	assert.Error(t, err)
}
