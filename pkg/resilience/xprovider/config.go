package xprovider

import (
	"fmt"
	"time"

	"github.com/omeyang/xshield/pkg/resilience/xbreaker"
	"github.com/omeyang/xshield/pkg/resilience/xretry"
)

// 默认配置。
const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = time.Second
	DefaultMaxDelay    = 10 * time.Second
	DefaultTimeout     = 30 * time.Second
	DefaultCacheTTL    = 5 * time.Minute
)

// RetryConfig 重试配置。
type RetryConfig struct {
	// MaxAttempts 最大尝试次数（包含首次）。
	MaxAttempts int                `koanf:"max_attempts"`
	BaseDelay   time.Duration      `koanf:"base_delay"`
	MaxDelay    time.Duration      `koanf:"max_delay"`
	Backoff     xretry.BackoffKind `koanf:"backoff"`
}

// CacheConfig 结果缓存配置。
type CacheConfig struct {
	TTL     time.Duration `koanf:"ttl"`
	Enabled bool          `koanf:"enabled"`
}

// Config provider 配置。零值字段在注册时使用默认值，Cache.Enabled 除外。
type Config struct {
	CircuitBreaker xbreaker.Config `koanf:"circuit_breaker"`
	Retry          RetryConfig     `koanf:"retry"`
	// Timeout 单次尝试的超时。
	Timeout time.Duration `koanf:"timeout"`
	Cache   CacheConfig   `koanf:"cache"`
	// Fallback 按方法名指定降级策略，优先于方法名推断。
	Fallback map[string]FallbackPolicy `koanf:"fallback"`
}

// DefaultConfig 返回默认配置，缓存默认开启。
func DefaultConfig() Config {
	return Config{
		CircuitBreaker: xbreaker.DefaultConfig(),
		Retry: RetryConfig{
			MaxAttempts: DefaultMaxAttempts,
			BaseDelay:   DefaultBaseDelay,
			MaxDelay:    DefaultMaxDelay,
			Backoff:     xretry.BackoffExponential,
		},
		Timeout: DefaultTimeout,
		Cache:   CacheConfig{TTL: DefaultCacheTTL, Enabled: true},
	}
}

// withDefaults 填充零值字段。
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	c.CircuitBreaker = c.CircuitBreaker.Merge(d.CircuitBreaker)
	if c.Retry.MaxAttempts <= 0 {
		c.Retry.MaxAttempts = d.Retry.MaxAttempts
	}
	if c.Retry.BaseDelay <= 0 {
		c.Retry.BaseDelay = d.Retry.BaseDelay
	}
	if c.Retry.MaxDelay <= 0 {
		c.Retry.MaxDelay = d.Retry.MaxDelay
	}
	if c.Retry.Backoff == "" {
		c.Retry.Backoff = d.Retry.Backoff
	}
	if c.Timeout <= 0 {
		c.Timeout = d.Timeout
	}
	if c.Cache.TTL <= 0 {
		c.Cache.TTL = d.Cache.TTL
	}
	return c
}

// Validate 检查配置是否合法，零值视为使用默认值。
func (c Config) Validate() error {
	if _, err := xretry.ParseBackoffKind(string(c.Retry.Backoff)); err != nil {
		return err
	}
	if c.Retry.MaxAttempts < 0 {
		return fmt.Errorf("xprovider: retry max_attempts must not be negative: %d", c.Retry.MaxAttempts)
	}
	if c.Retry.MaxDelay > 0 && c.Retry.BaseDelay > c.Retry.MaxDelay {
		return fmt.Errorf("xprovider: retry base_delay %s exceeds max_delay %s", c.Retry.BaseDelay, c.Retry.MaxDelay)
	}
	for method, p := range c.Fallback {
		if !p.valid() {
			return fmt.Errorf("%w: %q for method %s", ErrInvalidFallback, p, method)
		}
	}
	return nil
}
