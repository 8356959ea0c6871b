package xcache

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/omeyang/xshield/internal/storageopt"
)

// healthPrefix 健康检查哨兵 key 前缀。
const healthPrefix = "health:"

// Stats 缓存统计快照。
type Stats struct {
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
	L1Hits  int64 `json:"l1_hits"`
	L2Hits  int64 `json:"l2_hits"`
	Sets    int64 `json:"sets"`
	Deletes int64 `json:"deletes"`
	Errors  int64 `json:"errors"`

	// HitRate 命中率百分比，L1HitRate 为 L1 命中占全部读取的百分比。
	HitRate   float64 `json:"hit_rate"`
	L1HitRate float64 `json:"l1_hit_rate"`

	L1Size   int   `json:"l1_size"`
	L2Ops    int64 `json:"l2_ops"`
	L2Errors int64 `json:"l2_errors"`

	HealthChecks int64 `json:"health_checks"`
	HealthErrors int64 `json:"health_errors"`
	SlowOps      int64 `json:"slow_ops"`
}

// GetStats 返回统计快照。
func (s *Service) GetStats() Stats {
	st := Stats{
		Hits:         s.hits.Load(),
		Misses:       s.misses.Load(),
		L1Hits:       s.l1Hits.Load(),
		L2Hits:       s.l2Hits.Load(),
		Sets:         s.sets.Load(),
		Deletes:      s.deletes.Load(),
		Errors:       s.errs.Load(),
		L1Size:       s.l1.len(),
		L2Ops:        s.l2.Ops(),
		L2Errors:     s.l2.Errors(),
		HealthChecks: s.health.PingCount(),
		HealthErrors: s.health.PingErrors(),
		SlowOps:      s.slow.Count(),
	}
	if total := st.Hits + st.Misses; total > 0 {
		st.HitRate = float64(st.Hits) / float64(total) * 100
		st.L1HitRate = float64(st.L1Hits) / float64(total) * 100
	}
	return st
}

// ResetStats 清零读写统计。L1 内容不受影响。
func (s *Service) ResetStats() {
	s.hits.Store(0)
	s.misses.Store(0)
	s.l1Hits.Store(0)
	s.l2Hits.Store(0)
	s.sets.Store(0)
	s.deletes.Store(0)
	s.errs.Store(0)
	s.l2.Reset()
}

// HealthCheck 对 L2 执行写入、读回、删除一个哨兵 key。
func (s *Service) HealthCheck(ctx context.Context) error {
	if s.isClosed() {
		return ErrClosed
	}
	ctx, cancel := storageopt.HealthContext(ctx, s.opts.HealthTimeout)
	defer cancel()

	s.health.IncPing()
	if err := s.roundTrip(ctx); err != nil {
		s.health.IncPingError()
		return fmt.Errorf("xcache: health check: %w", err)
	}
	return nil
}

func (s *Service) roundTrip(ctx context.Context) error {
	key := s.l2Key(healthPrefix + uuid.NewString())
	want := []byte(strconv.FormatInt(s.opts.Now().UnixNano(), 10))

	if err := s.store.Set(ctx, key, want, s.opts.MinTTL); err != nil {
		return err
	}
	got, err := s.store.Get(ctx, key)
	if err != nil {
		return err
	}
	if _, err := s.store.Del(ctx, key); err != nil {
		return err
	}
	if !bytes.Equal(got, want) {
		return ErrHealthMismatch
	}
	return nil
}

// PreloadItem 预热条目。
type PreloadItem struct {
	Key   string
	Value any
	TTL   time.Duration
}

// Preload 并发写入一批条目，返回成功数量。
func (s *Service) Preload(ctx context.Context, items []PreloadItem) int {
	var (
		g  errgroup.Group
		ok atomic.Int64
	)
	g.SetLimit(s.opts.PreloadLimit)
	for _, it := range items {
		g.Go(func() error {
			if s.Set(ctx, it.Key, it.Value, it.TTL) {
				ok.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // 任务不返回错误
	return int(ok.Load())
}
