package xprovider

import (
	"context"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/omeyang/xshield/pkg/observability/xlog"
	"github.com/omeyang/xshield/pkg/observability/xmetrics"
	"github.com/omeyang/xshield/pkg/resilience/xbreaker"
	"github.com/omeyang/xshield/pkg/resilience/xretry"
)

const component = "xprovider"

// registration 已注册的 provider。
type registration struct {
	name     string
	provider Provider
	config   Config
	retry    xretry.RetryPolicy
	backoff  xretry.BackoffPolicy
	stats    statsRecorder
}

// Manager 管理 provider 注册并执行受保护的调用。
type Manager struct {
	breakers *xbreaker.Registry
	cache    Cache
	logger   xlog.Logger
	observer xmetrics.Observer
	now      func() time.Time

	mu        sync.RWMutex
	providers map[string]*registration
}

// NewManager 创建 Manager，熔断器由 breakers 统一管理。
func NewManager(breakers *xbreaker.Registry, opts ...Option) (*Manager, error) {
	if breakers == nil {
		return nil, ErrNilRegistry
	}
	m := &Manager{
		breakers:  breakers,
		observer:  xmetrics.NoopObserver{},
		now:       time.Now,
		providers: make(map[string]*registration),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	if m.logger == nil {
		m.logger = xlog.Default()
	}
	m.logger = m.logger.With(xlog.Component(component))
	return m, nil
}

// Breakers 返回熔断器注册表。
func (m *Manager) Breakers() *xbreaker.Registry {
	return m.breakers
}

// Register 注册 provider，同名注册会替换原有注册并清零统计。
//
// 熔断器配置只在熔断器首次创建时生效，已存在的熔断器保持原配置，需要时先 Reset 或清理。
func (m *Manager) Register(name string, p Provider, cfg Config) error {
	if name == "" {
		return ErrEmptyName
	}
	if strings.Contains(name, ":") {
		return ErrInvalidName
	}
	if p == nil {
		return ErrNilProvider
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	cfg = cfg.withDefaults()

	reg := &registration{
		name:     name,
		provider: p,
		config:   cfg,
		retry:    xretry.NewFixedRetry(cfg.Retry.MaxAttempts),
		backoff:  xretry.NewBackoff(cfg.Retry.Backoff, cfg.Retry.BaseDelay, cfg.Retry.MaxDelay),
	}

	m.mu.Lock()
	_, replaced := m.providers[name]
	m.providers[name] = reg
	m.mu.Unlock()

	m.logger.Info(context.Background(), "provider registered",
		xlog.Provider(name), slog.Bool("replaced", replaced))
	return nil
}

// Unregister 移除 provider，返回是否存在。
func (m *Manager) Unregister(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.providers[name]
	delete(m.providers, name)
	return ok
}

// Providers 返回排序后的 provider 名称。
func (m *Manager) Providers() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Sorted(maps.Keys(m.providers))
}

// Config 返回 provider 生效的配置。
func (m *Manager) Config(name string) (Config, error) {
	reg, err := m.lookup(name)
	if err != nil {
		return Config{}, err
	}
	return reg.config, nil
}

func (m *Manager) lookup(name string) (*registration, error) {
	m.mu.RLock()
	reg, ok := m.providers[name]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrProviderNotFound
	}
	return reg, nil
}

// Execute 调用 provider 的方法。
//
// 缓存命中时直接返回且不经过熔断器。未命中时在熔断器保护下执行
// 带重试和超时的调用，失败时按降级策略处理。成功结果写回缓存，降级结果不缓存。
// provider 或方法不存在时在进入熔断器之前返回错误。
func (m *Manager) Execute(ctx context.Context, providerName, method string, args []any, opts ...CallOption) (any, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}
	reg, err := m.lookup(providerName)
	if err != nil {
		return nil, err
	}
	fn, ok := reg.provider.Lookup(method)
	if !ok {
		return nil, &MethodNotFoundError{Provider: providerName, Method: method}
	}
	co := buildCallOptions(opts)

	ctx, span := xmetrics.Start(ctx, m.observer, xmetrics.SpanOptions{
		Component: component,
		Operation: "execute",
		Kind:      xmetrics.KindClient,
		Attrs: []xmetrics.Attr{
			xmetrics.String("provider.name", providerName),
			xmetrics.String("provider.method", method),
		},
	})
	reg.stats.request(m.now())

	cacheKey, cacheable := m.cacheKey(ctx, reg, method, args, co)
	if cacheable {
		if v, ok := co.readCache(ctx, m.cache, cacheKey); ok {
			reg.stats.cacheHit()
			span.End(xmetrics.Result{Attrs: []xmetrics.Attr{xmetrics.Bool("cache.hit", true)}})
			return v, nil
		}
	}

	var fellBack bool
	fallback := m.fallback(reg, args, co.fallback, method, &fellBack)
	op := func(ctx context.Context) (any, error) {
		return m.invoke(ctx, reg, method, fn, args)
	}

	begin := time.Now()
	result, err := m.breakers.Execute(ctx, BreakerName(providerName, method), op, fallback,
		xbreaker.WithConfig(reg.config.CircuitBreaker))
	elapsed := time.Since(begin)

	if err != nil {
		reg.stats.failure(m.now())
		status := xmetrics.StatusError
		if xbreaker.IsBreakerError(err) {
			status = xmetrics.StatusRejected
		}
		span.End(xmetrics.Result{Status: status, Err: err})
		m.logger.Warn(ctx, "provider call failed",
			xlog.Provider(providerName), xlog.Method(method), xlog.Duration(elapsed), xlog.Err(err))
		return nil, err
	}
	if fellBack {
		reg.stats.fallback()
		span.End(xmetrics.Result{Status: xmetrics.StatusFallback})
		return result, nil
	}

	if cacheable {
		m.cache.Set(ctx, cacheKey, result, reg.config.Cache.TTL)
	}
	reg.stats.success(m.now(), elapsed)
	span.End(xmetrics.Result{Status: xmetrics.StatusOK})
	return result, nil
}

// Diagnose 绕过缓存调用任意方法，用于管理端诊断。
func (m *Manager) Diagnose(ctx context.Context, providerName, method string, args []any) (any, error) {
	return m.Execute(ctx, providerName, method, args, SkipCache())
}

// invoke 带重试地调用方法，每次尝试独立超时。
func (m *Manager) invoke(ctx context.Context, reg *registration, method string, fn Method, args []any) (any, error) {
	retryer := xretry.NewRetryer(
		xretry.WithRetryPolicy(reg.retry),
		xretry.WithBackoffPolicy(reg.backoff),
		xretry.WithOnRetry(func(attempt int, err error) {
			m.logger.Debug(ctx, "provider call retry",
				xlog.Provider(reg.name), xlog.Method(method), xlog.Attempt(attempt), xlog.Err(err))
		}),
	)
	return xretry.DoWithResult(ctx, retryer, func(ctx context.Context) (any, error) {
		v, err := xretry.DoWithTimeout(ctx, reg.config.Timeout, func(ctx context.Context) (any, error) {
			return fn(ctx, args...)
		})
		if xretry.IsTimeout(err) {
			reg.stats.timeout()
		}
		return v, err
	})
}

func (m *Manager) cacheKey(ctx context.Context, reg *registration, method string, args []any, co callOptions) (string, bool) {
	if m.cache == nil || !reg.config.Cache.Enabled || co.skipCache {
		return "", false
	}
	key, err := CacheKey(reg.name, method, args)
	if err != nil {
		m.logger.Debug(ctx, "skip cache for unhashable args",
			xlog.Provider(reg.name), xlog.Method(method), xlog.Err(err))
		return "", false
	}
	return key, true
}

// fallback 返回熔断器使用的降级函数，不降级时返回 nil。
func (m *Manager) fallback(reg *registration, args []any, custom FallbackFunc, method string, used *bool) xbreaker.Fallback {
	ff := custom
	if ff == nil {
		ff = policyFallback(resolvePolicy(reg.config, method))
	}
	if ff == nil {
		return nil
	}
	return func(ctx context.Context, err error) (any, error) {
		*used = true
		return ff(ctx, err, args)
	}
}
