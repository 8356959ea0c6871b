package xprovider

import (
	"context"
	"time"

	"github.com/omeyang/xshield/pkg/observability/xlog"
	"github.com/omeyang/xshield/pkg/observability/xmetrics"
)

// Cache 是 Manager 需要的结果缓存，*xcache.Service 满足该接口。
//
// GetInto 把缓存值解码到 dst 指向的类型，ExecuteAs 用它保证
// 跨实例命中时也能拿到原始结果类型。
type Cache interface {
	Get(ctx context.Context, key string) (any, bool)
	GetInto(ctx context.Context, key string, dst any) bool
	Set(ctx context.Context, key string, value any, ttl time.Duration) bool
}

// HealthChecker 可选接口，Cache 实现它时 HealthCheck 会一并检查缓存。
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Option Manager 配置选项。
type Option func(*Manager)

// WithCache 设置结果缓存，未设置时不缓存。
func WithCache(c Cache) Option {
	return func(m *Manager) {
		m.cache = c
	}
}

// WithLogger 设置日志记录器，默认使用 xlog.Default()。
func WithLogger(l xlog.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithObserver 设置观测器。
func WithObserver(o xmetrics.Observer) Option {
	return func(m *Manager) {
		if o != nil {
			m.observer = o
		}
	}
}

// WithClock 设置统计时间戳使用的时钟，主要用于测试。
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// CallOption 单次调用选项。
type CallOption func(*callOptions)

type callOptions struct {
	skipCache bool
	fallback  FallbackFunc
	// read 替换默认的 Cache.Get，ExecuteAs 用它按结果类型读取
	read func(ctx context.Context, c Cache, key string) (any, bool)
}

// SkipCache 跳过缓存读写。
func SkipCache() CallOption {
	return func(o *callOptions) {
		o.skipCache = true
	}
}

// WithFallback 设置本次调用的降级函数，优先于配置策略。
func WithFallback(f FallbackFunc) CallOption {
	return func(o *callOptions) {
		o.fallback = f
	}
}

func (o callOptions) readCache(ctx context.Context, c Cache, key string) (any, bool) {
	if o.read != nil {
		return o.read(ctx, c, key)
	}
	return c.Get(ctx, key)
}

func buildCallOptions(opts []CallOption) callOptions {
	var o callOptions
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}
