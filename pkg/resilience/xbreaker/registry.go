package xbreaker

import (
	"context"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/omeyang/xshield/pkg/observability/xlog"
	"github.com/omeyang/xshield/pkg/observability/xmetrics"
)

// Registry 熔断器注册表
//
// 熔断器在首次引用名称时惰性创建，只能通过 CleanupInactive 移除。
// 注册表拥有所有熔断器，对外只返回快照。
type Registry struct {
	defaults      Config
	now           func() time.Time
	logger        xlog.Logger
	observer      xmetrics.Observer
	onStateChange func(name string, from, to State)

	mu       sync.RWMutex
	breakers map[string]*Breaker
}

// NewRegistry 创建熔断器注册表
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		defaults: DefaultConfig(),
		now:      time.Now,
		observer: xmetrics.NoopObserver{},
		breakers: make(map[string]*Breaker),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	if r.logger == nil {
		r.logger = xlog.Default()
	}
	r.logger = r.logger.With(xlog.Component("xbreaker"))
	return r
}

// GetOrCreate 获取或创建熔断器
//
// cfg 只在首次创建时生效，零值字段使用注册表默认值。
func (r *Registry) GetOrCreate(name string, cfg Config) *Breaker {
	r.mu.RLock()
	b, ok := r.breakers[name]
	r.mu.RUnlock()
	if ok {
		return b
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok = r.breakers[name]; ok {
		return b
	}
	b = newBreaker(name, cfg.Merge(r.defaults), r.now, r.handleTransition)
	r.breakers[name] = b
	return b
}

func (r *Registry) lookup(name string) (*Breaker, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.breakers[name]
	if !ok {
		return nil, ErrBreakerNotFound
	}
	return b, nil
}

func (r *Registry) handleTransition(tr transition) {
	ctx := context.Background()
	attrs := []slog.Attr{
		xlog.Breaker(tr.name),
		slog.String("from", tr.from.String()),
		slog.String("to", tr.to.String()),
	}
	if tr.reason != "" {
		attrs = append(attrs, slog.String("reason", tr.reason))
	}
	if tr.to == StateOpen {
		r.logger.Warn(ctx, "circuit breaker opened", attrs...)
	} else {
		r.logger.Info(ctx, "circuit breaker state changed", attrs...)
	}

	xmetrics.Event(ctx, r.observer, "xbreaker", "state_change",
		xmetrics.String("breaker", tr.name),
		xmetrics.String("from", tr.from.String()),
		xmetrics.String("to", tr.to.String()),
	)

	if r.onStateChange != nil {
		r.onStateChange(tr.name, tr.from, tr.to)
	}
}

// Execute 在名为 name 的熔断器保护下执行 op
//
//   - 熔断拒绝：有 fallback 时返回 fallback(ctx, *BreakerError)，否则返回 *BreakerError
//   - op 失败：记录失败后，有 fallback 时返回其结果，否则返回 op 的错误
//   - 调用方 ctx 已结束导致的失败不计入熔断统计，也不触发 fallback
func (r *Registry) Execute(ctx context.Context, name string, op Operation, fallback Fallback, opts ...ExecOption) (any, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}
	if op == nil {
		return nil, ErrNilFunc
	}
	o := buildExecOptions(opts)
	return r.execute(ctx, r.GetOrCreate(name, o.config), op, fallback)
}

func (r *Registry) execute(ctx context.Context, b *Breaker, op Operation, fallback Fallback) (any, error) {
	result, err := b.Execute(ctx, op)
	if err == nil {
		return result, nil
	}
	if !IsBreakerError(err) && ctx.Err() != nil {
		return nil, err
	}
	if fallback == nil {
		return nil, err
	}

	r.logger.Warn(ctx, "circuit breaker fallback", xlog.Breaker(b.name), xlog.Err(err))
	return fallback(ctx, err)
}

// ExecuteBatch 分块并发执行一批操作
//
// 批次开始时熔断器已打开：有 fallback 时所有操作都走 fallback，否则直接返回 *BreakerError。
// 否则每块最多并发 batchSize 个操作，每块全部完成后重新检查状态，
// 熔断器在中途打开时停止派发后续块，返回已完成部分的结果（与 ops 前缀一一对应）。
func (r *Registry) ExecuteBatch(ctx context.Context, name string, ops []Operation, fallback Fallback, opts ...ExecOption) ([]BatchResult, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}
	if slices.ContainsFunc(ops, func(op Operation) bool { return op == nil }) {
		return nil, ErrNilFunc
	}
	o := buildExecOptions(opts)
	b := r.GetOrCreate(name, o.config)

	if snap := b.Snapshot(); snap.State == StateOpen && r.now().Before(snap.NextAttempt) {
		b.mu.Lock()
		for range ops {
			b.reject()
		}
		b.mu.Unlock()
		rejected := &BreakerError{Err: ErrOpenState, Name: name, State: StateOpen, NextAttempt: snap.NextAttempt}
		if fallback == nil {
			return nil, rejected
		}
		results := make([]BatchResult, len(ops))
		for i := range ops {
			v, err := fallback(ctx, rejected)
			results[i] = BatchResult{Value: v, Err: err}
		}
		return results, nil
	}

	results := make([]BatchResult, 0, len(ops))
	for chunk := range slices.Chunk(ops, o.batchSize) {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		chunkResults := make([]BatchResult, len(chunk))
		var g errgroup.Group
		for i, op := range chunk {
			g.Go(func() error {
				v, err := r.execute(ctx, b, op, fallback)
				chunkResults[i] = BatchResult{Value: v, Err: err}
				return nil
			})
		}
		_ = g.Wait() //nolint:errcheck // 单项错误记录在 chunkResults 中
		results = append(results, chunkResults...)

		if b.State() == StateOpen && len(results) < len(ops) {
			r.logger.Warn(ctx, "batch stopped: circuit breaker opened",
				xlog.Breaker(name), slog.Int("completed", len(results)), slog.Int("total", len(ops)))
			break
		}
	}
	return results, nil
}

// =============================================================================
// 管理操作
// =============================================================================

// Open 手动打开熔断器
func (r *Registry) Open(name, reason string) error {
	b, err := r.lookup(name)
	if err != nil {
		return err
	}
	b.forceOpen(reason)
	return nil
}

// Close 手动关闭熔断器，保留累计统计
func (r *Registry) Close(name string) error {
	b, err := r.lookup(name)
	if err != nil {
		return err
	}
	b.forceClose()
	return nil
}

// Reset 关闭熔断器并清空所有统计
func (r *Registry) Reset(name string) error {
	b, err := r.lookup(name)
	if err != nil {
		return err
	}
	b.reset()
	return nil
}

// GetState 返回指定熔断器的快照
func (r *Registry) GetState(name string) (Snapshot, error) {
	b, err := r.lookup(name)
	if err != nil {
		return Snapshot{}, err
	}
	return b.Snapshot(), nil
}

// GetAllStates 返回所有熔断器的快照
func (r *Registry) GetAllStates() map[string]Snapshot {
	r.mu.RLock()
	breakers := slices.Collect(maps.Values(r.breakers))
	r.mu.RUnlock()

	out := make(map[string]Snapshot, len(breakers))
	for _, b := range breakers {
		out[b.name] = b.Snapshot()
	}
	return out
}

// Names 返回所有熔断器名称（已排序）
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.breakers))
}

// CleanupInactive 移除最近活动时间早于 now - threshold 的熔断器，返回被移除的名称
//
// 最近活动时间取最后一次成功与失败中较晚者，从未调用过的熔断器以创建时间计。
func (r *Registry) CleanupInactive(threshold time.Duration) []string {
	cutoff := r.now().Add(-threshold)

	r.mu.Lock()
	defer r.mu.Unlock()

	var removed []string
	for name, b := range r.breakers {
		if b.Snapshot().LastActivity().Before(cutoff) {
			delete(r.breakers, name)
			removed = append(removed, name)
		}
	}
	slices.Sort(removed)

	if len(removed) > 0 {
		r.logger.Info(context.Background(), "removed inactive circuit breakers",
			xlog.Count(int64(len(removed))), slog.Any("names", removed))
	}
	return removed
}

// BatchOpen 批量打开
func (r *Registry) BatchOpen(names []string, reason string) []AdminResult {
	return r.batch(names, func(name string) error { return r.Open(name, reason) })
}

// BatchClose 批量关闭
func (r *Registry) BatchClose(names []string) []AdminResult {
	return r.batch(names, r.Close)
}

// BatchReset 批量重置
func (r *Registry) BatchReset(names []string) []AdminResult {
	return r.batch(names, r.Reset)
}

func (r *Registry) batch(names []string, fn func(string) error) []AdminResult {
	results := make([]AdminResult, len(names))
	for i, name := range names {
		results[i] = AdminResult{Name: name, Err: fn(name)}
	}
	return results
}
