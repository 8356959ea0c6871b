package xcache

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/omeyang/xshield/internal/storageopt"
	"github.com/omeyang/xshield/pkg/observability/xlog"
	"github.com/omeyang/xshield/pkg/observability/xmetrics"
)

const (
	component = "xcache"

	// nullPrefix 空值标记 key 前缀。
	nullPrefix = "null:"
	nullMarker = "__null__"

	// deleteBatch 单次 DEL 的最大 key 数。
	deleteBatch = 500
)

// slowOp 慢操作信息。
type slowOp struct {
	Op  string
	Key string
}

// Service 两级缓存服务。
//
// 必须通过 [NewService] 创建，使用结束后调用 Close 停止后台 goroutine。
// 所有方法并发安全。
type Service struct {
	store  Store
	opts   *Options
	logger xlog.Logger
	l1     *memoryTier
	origin string

	versions singleflight.Group
	slow     *storageopt.SlowOpDetector[slowOp]

	hits, misses   atomic.Int64
	l1Hits, l2Hits atomic.Int64
	sets, deletes  atomic.Int64
	errs           atomic.Int64
	l2             storageopt.OpCounter
	health         storageopt.HealthCounter

	// lifeMu 保证 closed 置位后不会再启动新的后台 goroutine。
	lifeMu    sync.RWMutex
	closed    bool
	stop      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewService 创建两级缓存服务，并在 SweepInterval > 0 时启动 L1 清扫。
func NewService(store Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, ErrNilStore
	}
	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	if err := o.validate(); err != nil {
		return nil, err
	}
	if o.Logger == nil {
		o.Logger = xlog.Default()
	}

	l1, err := newMemoryTier(o.L1MaxSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	s := &Service{
		store:  store,
		opts:   o,
		logger: o.Logger.With(xlog.Component(component)),
		l1:     l1,
		origin: uuid.NewString(),
		stop:   make(chan struct{}),
	}
	s.slow = storageopt.NewSlowOpDetector(o.SlowThreshold, func(ctx context.Context, info slowOp, elapsed time.Duration) {
		s.logger.Warn(ctx, "slow cache operation",
			xlog.Operation(info.Op), xlog.CacheKey(info.Key), xlog.Duration(elapsed))
	})

	if o.SweepInterval > 0 {
		s.spawn(s.sweepLoop)
	}
	return s, nil
}

// Store 返回底层 L2 存储。
func (s *Service) Store() Store {
	return s.store
}

// Get 读取缓存。L1 命中直接返回；否则查询 L2，命中后回填 L1。
// L2 值无法反序列化时返回原始字符串。
func (s *Service) Get(ctx context.Context, key string) (any, bool) {
	e, ok := s.lookup(ctx, key)
	if !ok {
		return nil, false
	}
	return e.value, true
}

// lookup 返回 key 对应的条目，统计命中与未命中。
func (s *Service) lookup(ctx context.Context, key string) (*entry, bool) {
	if key == "" || s.isClosed() {
		s.misses.Add(1)
		return nil, false
	}

	now := s.opts.Now()
	if e, ok := s.l1.get(key, now); ok {
		s.hits.Add(1)
		s.l1Hits.Add(1)
		return e, true
	}

	var raw []byte
	err := s.l2Call(ctx, "get", key, func(ctx context.Context) error {
		var err error
		raw, err = s.store.Get(ctx, s.l2Key(key))
		return err
	})
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.fail(ctx, "get", key, err)
		}
		s.misses.Add(1)
		return nil, false
	}

	e := &entry{
		value:     s.decode(ctx, key, raw),
		raw:       raw,
		createdAt: now,
		expiresAt: now.Add(s.opts.L1TTL),
	}
	s.l1.set(key, e)
	s.hits.Add(1)
	s.l2Hits.Add(1)
	return e, true
}

// decode 反序列化 L2 值，失败时降级为原始字符串。
func (s *Service) decode(ctx context.Context, key string, raw []byte) any {
	var v any
	if err := s.opts.Codec.Unmarshal(raw, &v); err != nil {
		s.logger.Debug(ctx, "cache value decode failed, returning raw string",
			xlog.CacheKey(key), xlog.Err(err))
		return string(raw)
	}
	return v
}

// Set 写入缓存，ttl 会被限制在 [MinTTL, MaxTTL]，ttl <= 0 使用 DefaultTTL。
// 只有 L1 和 L2 都写入成功时返回 true，失败只计数并记录日志。
func (s *Service) Set(ctx context.Context, key string, value any, ttl time.Duration) bool {
	if key == "" || s.isClosed() {
		return false
	}
	ttl = s.clampTTL(ttl)

	raw, err := s.opts.Codec.Marshal(value)
	if err != nil {
		s.logger.Warn(ctx, "cache value encode failed, storing string form",
			xlog.CacheKey(key), xlog.Err(err))
		raw = []byte(fmt.Sprint(value))
	}

	now := s.opts.Now()
	s.l1.set(key, &entry{
		value:     value,
		raw:       raw,
		createdAt: now,
		expiresAt: now.Add(min(ttl, s.opts.L1TTL)),
	})

	err = s.l2Call(ctx, "set", key, func(ctx context.Context) error {
		return s.store.Set(ctx, s.l2Key(key), raw, ttl)
	})
	s.sets.Add(1)
	if err != nil {
		s.fail(ctx, "set", key, err)
		return false
	}
	return true
}

// Delete 从两级缓存删除 key。
func (s *Service) Delete(ctx context.Context, key string) bool {
	if key == "" || s.isClosed() {
		return false
	}
	s.l1.delete(key)
	err := s.l2Call(ctx, "del", key, func(ctx context.Context) error {
		_, err := s.store.Del(ctx, s.l2Key(key))
		return err
	})
	s.deletes.Add(1)
	if err != nil {
		s.fail(ctx, "del", key, err)
		return false
	}
	s.broadcastDelete(ctx, []string{key})
	return true
}

// DeletePattern 按 glob 模式删除，返回 L2 中删除的数量。
// 匹配由 L2 扫描决定，再把相同的 key 从 L1 删除。
func (s *Service) DeletePattern(ctx context.Context, pattern string) int {
	if pattern == "" || s.isClosed() {
		return 0
	}
	keys, n := s.deletePattern(ctx, pattern)
	s.broadcastDelete(ctx, keys)
	return n
}

// deletePattern 返回被匹配的原始 key 和 L2 删除数量。
func (s *Service) deletePattern(ctx context.Context, pattern string) ([]string, int) {
	var found []string
	err := s.l2Call(ctx, "keys", pattern, func(ctx context.Context) error {
		var err error
		found, err = s.store.Keys(ctx, s.l2Key(pattern))
		return err
	})
	if err != nil {
		s.fail(ctx, "keys", pattern, err)
		return nil, 0
	}
	if len(found) == 0 {
		return nil, 0
	}

	var deleted int64
	for batch := range slices.Chunk(found, deleteBatch) {
		err := s.l2Call(ctx, "del", pattern, func(ctx context.Context) error {
			n, err := s.store.Del(ctx, batch...)
			deleted += n
			return err
		})
		if err != nil {
			s.fail(ctx, "del", pattern, err)
			break
		}
	}

	keys := make([]string, 0, len(found))
	for _, k := range found {
		key := strings.TrimPrefix(k, s.opts.KeyPrefix)
		s.l1.delete(key)
		keys = append(keys, key)
	}
	s.deletes.Add(deleted)
	return keys, int(deleted)
}

// SetNull 写入空值标记，用于防止缓存穿透。
func (s *Service) SetNull(ctx context.Context, key string) bool {
	if key == "" {
		return false
	}
	return s.Set(ctx, nullPrefix+key, nullMarker, s.opts.NullTTL)
}

// IsNull 检查 key 是否被标记为空值。
func (s *Service) IsNull(ctx context.Context, key string) bool {
	if key == "" {
		return false
	}
	_, ok := s.Get(ctx, nullPrefix+key)
	return ok
}

// Close 停止后台 goroutine 并清空 L1。不关闭底层 Store。
func (s *Service) Close() error {
	s.closeOnce.Do(func() {
		s.lifeMu.Lock()
		s.closed = true
		s.lifeMu.Unlock()
		close(s.stop)
		s.wg.Wait()
		s.l1.purge()
	})
	return nil
}

func (s *Service) isClosed() bool {
	s.lifeMu.RLock()
	defer s.lifeMu.RUnlock()
	return s.closed
}

// spawn 启动受 Close 管理的后台 goroutine，服务已关闭时返回 false。
func (s *Service) spawn(fn func()) bool {
	s.lifeMu.RLock()
	defer s.lifeMu.RUnlock()
	if s.closed {
		return false
	}
	s.wg.Go(fn)
	return true
}

func (s *Service) sweepLoop() {
	ticker := time.NewTicker(s.opts.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			if n := s.l1.sweep(s.opts.Now()); n > 0 {
				s.logger.Debug(context.Background(), "l1 sweep", xlog.Count(int64(n)))
			}
		}
	}
}

// Sweep 立即清扫 L1 过期条目，返回删除数量。
func (s *Service) Sweep() int {
	return s.l1.sweep(s.opts.Now())
}

func (s *Service) clampTTL(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		ttl = s.opts.DefaultTTL
	}
	return min(max(ttl, s.opts.MinTTL), s.opts.MaxTTL)
}

func (s *Service) l2Key(key string) string {
	return s.opts.KeyPrefix + key
}

// l2Call 执行一次 L2 操作并记录计数、跨度和慢操作。ErrNotFound 不计为错误。
func (s *Service) l2Call(ctx context.Context, op, key string, fn func(ctx context.Context) error) error {
	ctx, span := xmetrics.Start(ctx, s.opts.Observer, xmetrics.SpanOptions{
		Component: component,
		Operation: op,
		Kind:      xmetrics.KindClient,
		Attrs:     []xmetrics.Attr{xmetrics.String("cache.key", key)},
	})
	start := time.Now()
	err := fn(ctx)
	elapsed := storageopt.MeasureOperation(start)

	counted := err
	if errors.Is(err, ErrNotFound) {
		counted = nil
	}
	s.l2.Observe(counted)
	span.End(xmetrics.Result{Err: counted})
	s.slow.Observe(ctx, slowOp{Op: op, Key: key}, elapsed)
	return err
}

// fail 记录缓存层失败。
func (s *Service) fail(ctx context.Context, op, key string, err error) {
	s.errs.Add(1)
	s.logger.Warn(ctx, "cache operation failed",
		xlog.Operation(op), xlog.CacheKey(key), xlog.Err(err))
}
