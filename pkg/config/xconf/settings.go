package xconf

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/omeyang/xshield/pkg/observability/xlog"
	"github.com/omeyang/xshield/pkg/resilience/xbreaker"
	"github.com/omeyang/xshield/pkg/resilience/xprovider"
	"github.com/omeyang/xshield/pkg/storage/xcache"
)

// Settings 是 xshield 进程的完整配置。
//
//	log:
//	  level: info
//	  format: json
//	redis:
//	  addr: 127.0.0.1:6379
//	cache:
//	  l1_max_size: 1000
//	  default_ttl: 1h
//	breaker_defaults:
//	  failure_threshold: 5
//	  reset_timeout: 60s
//	providers:
//	  pricing:
//	    retry: {max_attempts: 3, base_delay: 1s, backoff: exponential}
//	    fallback: {getQuote: "null"}
type Settings struct {
	Log             LogSettings                 `koanf:"log"`
	Redis           RedisSettings               `koanf:"redis"`
	Cache           CacheSettings               `koanf:"cache"`
	BreakerDefaults xbreaker.Config             `koanf:"breaker_defaults"`
	Providers       map[string]xprovider.Config `koanf:"providers"`
}

// LogSettings 日志配置。File 非空时输出到按体积轮转的文件。
type LogSettings struct {
	Level      string `koanf:"level"`
	Format     string `koanf:"format"`
	File       string `koanf:"file"`
	MaxSizeMB  int    `koanf:"max_size_mb"`
	MaxBackups int    `koanf:"max_backups"`
	MaxAgeDays int    `koanf:"max_age_days"`
	Compress   bool   `koanf:"compress"`
}

// RedisSettings L2 存储连接配置。
type RedisSettings struct {
	Addr         string        `koanf:"addr"`
	Username     string        `koanf:"username"`
	Password     string        `koanf:"password"`
	DB           int           `koanf:"db"`
	PoolSize     int           `koanf:"pool_size"`
	DialTimeout  time.Duration `koanf:"dial_timeout"`
	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`
}

// CacheSettings 两级缓存配置，零值字段使用 xcache 的默认值。
type CacheSettings struct {
	L1MaxSize     int           `koanf:"l1_max_size"`
	L1TTL         time.Duration `koanf:"l1_ttl"`
	MinTTL        time.Duration `koanf:"min_ttl"`
	MaxTTL        time.Duration `koanf:"max_ttl"`
	DefaultTTL    time.Duration `koanf:"default_ttl"`
	NullTTL       time.Duration `koanf:"null_ttl"`
	SweepInterval time.Duration `koanf:"sweep_interval"`
	KeyPrefix     string        `koanf:"key_prefix"`
	Codec         string        `koanf:"codec"`
	// InvalidationChannel 非空时开启跨进程失效广播。
	InvalidationChannel string        `koanf:"invalidation_channel"`
	PreloadLimit        int           `koanf:"preload_limit"`
	SlowThreshold       time.Duration `koanf:"slow_threshold"`
}

// DefaultSettings 返回默认配置。
func DefaultSettings() Settings {
	return Settings{
		Log:   LogSettings{Level: "info", Format: "text"},
		Redis: RedisSettings{Addr: "127.0.0.1:6379", DialTimeout: 5 * time.Second},
		Cache: CacheSettings{
			L1MaxSize:     xcache.DefaultL1MaxSize,
			L1TTL:         xcache.DefaultL1TTL,
			MinTTL:        xcache.DefaultMinTTL,
			MaxTTL:        xcache.DefaultMaxTTL,
			DefaultTTL:    xcache.DefaultTTL,
			NullTTL:       xcache.DefaultNullTTL,
			SweepInterval: xcache.DefaultSweepInterval,
			Codec:         "json",
		},
		BreakerDefaults: xbreaker.DefaultConfig(),
	}
}

// LoadSettings 在默认值之上反序列化整个配置并校验。
func LoadSettings(cfg Config) (*Settings, error) {
	s := DefaultSettings()
	if err := cfg.Unmarshal("", &s); err != nil {
		return nil, err
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate 校验所有字段，返回合并后的全部错误。
func (s *Settings) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidSettings}, args...)...))
	}

	if _, err := xlog.ParseLevel(s.Log.Level); err != nil {
		add("log.level: %v", err)
	}
	switch strings.ToLower(s.Log.Format) {
	case "", "text", "json":
	default:
		add("log.format %q", s.Log.Format)
	}

	if s.Redis.Addr == "" {
		add("redis.addr is empty")
	}
	if s.Redis.DB < 0 || s.Redis.PoolSize < 0 {
		add("redis.db and redis.pool_size must not be negative")
	}

	c := s.Cache
	if c.L1MaxSize < 0 {
		add("cache.l1_max_size must not be negative")
	}
	if c.MinTTL > 0 && c.MaxTTL > 0 && c.MinTTL > c.MaxTTL {
		add("cache.min_ttl %s exceeds cache.max_ttl %s", c.MinTTL, c.MaxTTL)
	}
	if _, ok := xcache.CodecByName(c.Codec); !ok {
		add("cache.codec %q", c.Codec)
	}

	b := s.BreakerDefaults
	if b.FailureThreshold < 0 || b.HalfOpenMaxCalls < 0 || b.SuccessThreshold < 0 ||
		b.ResetTimeout < 0 || b.MonitoringPeriod < 0 {
		add("breaker_defaults must not contain negative values")
	}

	for _, name := range slices.Sorted(maps.Keys(s.Providers)) {
		if err := s.Providers[name].Validate(); err != nil {
			add("providers.%s: %v", name, err)
		}
	}
	return errors.Join(errs...)
}

// Builder 返回按配置设置好的 xlog 构建器。
func (l LogSettings) Builder() *xlog.Builder {
	b := xlog.New().SetLevelString(l.Level).SetFormat(l.Format)
	if l.File == "" {
		return b
	}
	var opts []xlog.RotationOption
	if l.MaxSizeMB > 0 {
		opts = append(opts, xlog.WithMaxSizeMB(l.MaxSizeMB))
	}
	if l.MaxBackups > 0 {
		opts = append(opts, xlog.WithMaxBackups(l.MaxBackups))
	}
	if l.MaxAgeDays > 0 {
		opts = append(opts, xlog.WithMaxAgeDays(l.MaxAgeDays))
	}
	if l.Compress {
		opts = append(opts, xlog.WithCompress(true))
	}
	return b.SetRotation(l.File, opts...)
}

// Options 转换为 go-redis 连接选项。
func (r RedisSettings) Options() *redis.Options {
	return &redis.Options{
		Addr:         r.Addr,
		Username:     r.Username,
		Password:     r.Password,
		DB:           r.DB,
		PoolSize:     r.PoolSize,
		DialTimeout:  r.DialTimeout,
		ReadTimeout:  r.ReadTimeout,
		WriteTimeout: r.WriteTimeout,
	}
}

// Options 转换为 xcache 选项，零值字段不覆盖默认值。
func (c CacheSettings) Options() ([]xcache.Option, error) {
	codec, ok := xcache.CodecByName(c.Codec)
	if !ok {
		return nil, fmt.Errorf("%w: cache.codec %q", ErrInvalidSettings, c.Codec)
	}
	l1Size, l1TTL := c.L1MaxSize, c.L1TTL
	if l1Size <= 0 {
		l1Size = xcache.DefaultL1MaxSize
	}
	if l1TTL <= 0 {
		l1TTL = xcache.DefaultL1TTL
	}
	minTTL, maxTTL := c.MinTTL, c.MaxTTL
	if minTTL <= 0 {
		minTTL = xcache.DefaultMinTTL
	}
	if maxTTL <= 0 {
		maxTTL = xcache.DefaultMaxTTL
	}

	opts := []xcache.Option{
		xcache.WithTTLBounds(minTTL, maxTTL),
		xcache.WithDefaultTTL(c.DefaultTTL),
		xcache.WithNullTTL(c.NullTTL),
		xcache.WithL1(l1Size, l1TTL),
		xcache.WithSweepInterval(c.SweepInterval),
		xcache.WithKeyPrefix(c.KeyPrefix),
		xcache.WithCodec(codec),
		xcache.WithPreloadLimit(c.PreloadLimit),
	}
	if c.InvalidationChannel != "" {
		opts = append(opts, xcache.WithInvalidationBroadcast(c.InvalidationChannel))
	}
	if c.SlowThreshold > 0 {
		opts = append(opts, xcache.WithSlowThreshold(c.SlowThreshold))
	}
	return opts, nil
}

// ProviderConfig 返回 provider 配置，熔断器零值字段由 breaker_defaults 补齐。
func (s *Settings) ProviderConfig(name string) (xprovider.Config, bool) {
	cfg, ok := s.Providers[name]
	if !ok {
		return xprovider.Config{}, false
	}
	cfg.CircuitBreaker = cfg.CircuitBreaker.Merge(s.BreakerDefaults)
	return cfg, true
}

// ProviderNames 返回排序后的 provider 名称。
func (s *Settings) ProviderNames() []string {
	return slices.Sorted(maps.Keys(s.Providers))
}
