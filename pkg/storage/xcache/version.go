package xcache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/omeyang/xshield/pkg/observability/xlog"
	"github.com/omeyang/xshield/pkg/observability/xmetrics"
)

const (
	versionPrefix = "version:"

	// versionLoadTimeout 版本号读取的独立超时，避免首个调用者取消影响其他等待者。
	versionLoadTimeout = 5 * time.Second

	// staleSweepTimeout 旧版本清扫的超时。
	staleSweepTimeout = 30 * time.Second
)

// VersionedKey 组合版本化 key："<namespace>:<version>:<key>"。
func VersionedKey(namespace string, version int64, key string) string {
	return namespace + ":" + strconv.FormatInt(version, 10) + ":" + key
}

// Version 返回命名空间当前版本号。
//
// L2 中不存在版本号时视为 1，且不写入：并发进程同时初始化时，
// 写入 1 可能覆盖另一进程刚递增的版本。
// 并发读取同一命名空间会合并为一次 L2 请求。
func (s *Service) Version(ctx context.Context, namespace string) (int64, error) {
	if namespace == "" {
		return 0, ErrEmptyNamespace
	}
	if s.isClosed() {
		return 0, ErrClosed
	}

	ch := s.versions.DoChan(namespace, func() (any, error) {
		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), versionLoadTimeout)
		defer cancel()
		return s.loadVersion(lctx, namespace)
	})

	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return 0, res.Err
		}
		v, ok := res.Val.(int64)
		if !ok {
			return 0, errors.New("xcache: unexpected result type from singleflight")
		}
		return v, nil
	}
}

func (s *Service) loadVersion(ctx context.Context, namespace string) (int64, error) {
	key := versionPrefix + namespace
	var raw []byte
	err := s.l2Call(ctx, "version", key, func(ctx context.Context) error {
		var err error
		raw, err = s.store.Get(ctx, s.l2Key(key))
		return err
	})
	if errors.Is(err, ErrNotFound) {
		return 1, nil
	}
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil || v < 1 {
		return 0, fmt.Errorf("xcache: invalid version %q for namespace %s", raw, namespace)
	}
	return v, nil
}

// GetWithVersion 读取命名空间当前版本下的 key。版本号读取失败视为未命中。
func (s *Service) GetWithVersion(ctx context.Context, namespace, key string) (any, bool) {
	vkey, ok := s.versionedKey(ctx, namespace, key)
	if !ok {
		s.misses.Add(1)
		return nil, false
	}
	return s.Get(ctx, vkey)
}

// SetWithVersion 写入命名空间当前版本下的 key。
func (s *Service) SetWithVersion(ctx context.Context, namespace, key string, value any, ttl time.Duration) bool {
	vkey, ok := s.versionedKey(ctx, namespace, key)
	if !ok {
		return false
	}
	return s.Set(ctx, vkey, value, ttl)
}

func (s *Service) versionedKey(ctx context.Context, namespace, key string) (string, bool) {
	if key == "" {
		return "", false
	}
	v, err := s.Version(ctx, namespace)
	if err != nil {
		if !errors.Is(err, ErrClosed) {
			s.fail(ctx, "version", namespace, err)
		}
		return "", false
	}
	return VersionedKey(namespace, v, key), true
}

// IncrementVersion 原子递增命名空间版本号并返回新版本。
//
// 旧版本的 key 立即不可达。本进程 L1 中的旧版本条目同步删除，
// L2 中旧版本 key 由后台 goroutine best-effort 清扫，随后发布 version_update 事件。
func (s *Service) IncrementVersion(ctx context.Context, namespace string) (int64, error) {
	if namespace == "" {
		return 0, ErrEmptyNamespace
	}
	if s.isClosed() {
		return 0, ErrClosed
	}

	ctx, span := xmetrics.Start(ctx, s.opts.Observer, xmetrics.SpanOptions{
		Component: component,
		Operation: "increment_version",
		Attrs:     []xmetrics.Attr{xmetrics.String("cache.namespace", namespace)},
	})

	v, err := s.incr(ctx, versionPrefix+namespace)
	if err == nil && v == 1 {
		// 之前不存在，隐式版本为 1，需要再递增一次才能使旧 key 失效
		v, err = s.incr(ctx, versionPrefix+namespace)
	}
	if err != nil {
		s.fail(ctx, "incr", namespace, err)
		span.End(xmetrics.Result{Err: err})
		return 0, err
	}

	dropped := s.l1.deleteFunc(func(key string) bool {
		return staleVersioned(key, namespace, v)
	})
	s.logger.Info(ctx, "cache namespace version incremented",
		xlog.Namespace(namespace), slog.Int64("version", v), slog.Int("l1_dropped", dropped))

	old := v - 1
	s.spawn(func() {
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), staleSweepTimeout)
		defer cancel()
		pattern := globEscape(namespace) + ":" + strconv.FormatInt(old, 10) + ":*"
		_, n := s.deletePattern(sctx, pattern)
		s.logger.Debug(sctx, "stale version keys swept",
			xlog.Namespace(namespace), xlog.Count(int64(n)))
	})

	s.publishEvent(ctx, Event{
		Type:      EventVersionUpdate,
		Namespace: namespace,
		Version:   v,
	})
	span.End(xmetrics.Result{Attrs: []xmetrics.Attr{xmetrics.Int64("cache.version", v)}})
	return v, nil
}

func (s *Service) incr(ctx context.Context, key string) (int64, error) {
	var v int64
	err := s.l2Call(ctx, "incr", key, func(ctx context.Context) error {
		var err error
		v, err = s.store.Incr(ctx, s.l2Key(key))
		return err
	})
	return v, err
}

// staleVersioned 判断 key 是否属于 namespace 中低于 current 的版本。
func staleVersioned(key, namespace string, current int64) bool {
	rest, ok := strings.CutPrefix(key, namespace+":")
	if !ok {
		return false
	}
	seg, _, ok := strings.Cut(rest, ":")
	if !ok {
		return false
	}
	v, err := strconv.ParseInt(seg, 10, 64)
	return err == nil && v < current
}

// globEscape 转义 glob 元字符。
func globEscape(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
