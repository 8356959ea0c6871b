package xcache

import (
	"fmt"
	"time"

	"github.com/omeyang/xshield/internal/storageopt"
	"github.com/omeyang/xshield/pkg/observability/xlog"
	"github.com/omeyang/xshield/pkg/observability/xmetrics"
)

// 默认配置。
const (
	DefaultMinTTL        = 60 * time.Second
	DefaultMaxTTL        = 24 * time.Hour
	DefaultTTL           = time.Hour
	DefaultNullTTL       = 5 * time.Minute
	DefaultL1MaxSize     = 1000
	DefaultL1TTL         = 5 * time.Minute
	DefaultSweepInterval = time.Minute
	DefaultEventChannel  = "xshield:cache:events"
	DefaultPreloadLimit  = 16
)

// Options 定义 Service 的配置。
type Options struct {
	// MinTTL/MaxTTL 写入 TTL 的上下界，所有写入都会被限制在该区间内。
	MinTTL time.Duration
	MaxTTL time.Duration

	// DefaultTTL 调用方传入 ttl <= 0 时使用。
	DefaultTTL time.Duration

	// NullTTL 空值标记的 TTL，同样受 MinTTL/MaxTTL 约束。
	NullTTL time.Duration

	// L1MaxSize L1 最大条目数。
	L1MaxSize int

	// L1TTL L1 条目的最长存活时间，实际 TTL 取 min(写入 TTL, L1TTL)。
	L1TTL time.Duration

	// SweepInterval L1 后台清扫间隔，<= 0 表示不启动清扫。
	SweepInterval time.Duration

	// KeyPrefix 只作用于 L2 的 key 前缀，L1 使用原始 key。
	KeyPrefix string

	// Codec L2 值编解码器，默认 JSON。
	Codec Codec

	// EventChannel 失效事件频道。
	EventChannel string

	// Broadcast 为 true 时，删除和版本递增会发布失效事件。
	Broadcast bool

	// PreloadLimit Preload 的最大并发数。
	PreloadLimit int

	// HealthTimeout 健康检查超时，默认 storageopt.DefaultHealthTimeout。
	HealthTimeout time.Duration

	// SlowThreshold L2 慢操作阈值，<= 0 表示不检测。
	SlowThreshold time.Duration

	Logger   xlog.Logger
	Observer xmetrics.Observer
	Now      func() time.Time
}

// Option 定义配置 Service 的函数类型。
type Option func(*Options)

func defaultOptions() *Options {
	return &Options{
		MinTTL:        DefaultMinTTL,
		MaxTTL:        DefaultMaxTTL,
		DefaultTTL:    DefaultTTL,
		NullTTL:       DefaultNullTTL,
		L1MaxSize:     DefaultL1MaxSize,
		L1TTL:         DefaultL1TTL,
		SweepInterval: DefaultSweepInterval,
		Codec:         JSONCodec{},
		EventChannel:  DefaultEventChannel,
		PreloadLimit:  DefaultPreloadLimit,
		HealthTimeout: storageopt.DefaultHealthTimeout,
		Observer:      xmetrics.NoopObserver{},
		Now:           time.Now,
	}
}

func (o *Options) validate() error {
	switch {
	case o.MinTTL <= 0:
		return fmt.Errorf("%w: min ttl must be positive", ErrInvalidConfig)
	case o.MaxTTL < o.MinTTL:
		return fmt.Errorf("%w: max ttl %s < min ttl %s", ErrInvalidConfig, o.MaxTTL, o.MinTTL)
	case o.L1MaxSize <= 0:
		return fmt.Errorf("%w: l1 max size must be positive", ErrInvalidConfig)
	case o.L1TTL <= 0:
		return fmt.Errorf("%w: l1 ttl must be positive", ErrInvalidConfig)
	case o.Broadcast && o.EventChannel == "":
		return fmt.Errorf("%w: broadcast requires an event channel", ErrInvalidConfig)
	}
	return nil
}

// WithTTLBounds 设置写入 TTL 的上下界。
func WithTTLBounds(minTTL, maxTTL time.Duration) Option {
	return func(o *Options) {
		o.MinTTL = minTTL
		o.MaxTTL = maxTTL
	}
}

// WithDefaultTTL 设置默认 TTL。
func WithDefaultTTL(ttl time.Duration) Option {
	return func(o *Options) {
		if ttl > 0 {
			o.DefaultTTL = ttl
		}
	}
}

// WithNullTTL 设置空值标记 TTL。
func WithNullTTL(ttl time.Duration) Option {
	return func(o *Options) {
		if ttl > 0 {
			o.NullTTL = ttl
		}
	}
}

// WithL1 设置 L1 容量和最长存活时间。
func WithL1(maxSize int, ttl time.Duration) Option {
	return func(o *Options) {
		o.L1MaxSize = maxSize
		o.L1TTL = ttl
	}
}

// WithSweepInterval 设置 L1 清扫间隔，<= 0 关闭后台清扫。
func WithSweepInterval(d time.Duration) Option {
	return func(o *Options) {
		o.SweepInterval = d
	}
}

// WithKeyPrefix 设置 L2 key 前缀。
func WithKeyPrefix(prefix string) Option {
	return func(o *Options) {
		o.KeyPrefix = prefix
	}
}

// WithCodec 设置 L2 编解码器。
func WithCodec(c Codec) Option {
	return func(o *Options) {
		if c != nil {
			o.Codec = c
		}
	}
}

// WithInvalidationBroadcast 开启失效事件广播。channel 为空时使用 DefaultEventChannel。
func WithInvalidationBroadcast(channel string) Option {
	return func(o *Options) {
		o.Broadcast = true
		if channel != "" {
			o.EventChannel = channel
		}
	}
}

// WithPreloadLimit 设置 Preload 并发上限。
func WithPreloadLimit(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.PreloadLimit = n
		}
	}
}

// WithHealthTimeout 设置健康检查超时。
func WithHealthTimeout(d time.Duration) Option {
	return func(o *Options) {
		o.HealthTimeout = d
	}
}

// WithSlowThreshold 设置 L2 慢操作阈值，超过阈值的操作记录 Warn 日志。
func WithSlowThreshold(d time.Duration) Option {
	return func(o *Options) {
		o.SlowThreshold = d
	}
}

// WithLogger 设置日志记录器，默认使用 xlog.Default()。
func WithLogger(l xlog.Logger) Option {
	return func(o *Options) {
		if l != nil {
			o.Logger = l
		}
	}
}

// WithObserver 设置观测器。
func WithObserver(obs xmetrics.Observer) Option {
	return func(o *Options) {
		if obs != nil {
			o.Observer = obs
		}
	}
}

// WithClock 设置时钟，主要用于测试。
func WithClock(now func() time.Time) Option {
	return func(o *Options) {
		if now != nil {
			o.Now = now
		}
	}
}
