package xprovider

import (
	"context"
	"strings"
	"time"

	"github.com/omeyang/xshield/pkg/resilience/xbreaker"
)

// HealthStatus 整体健康状态。
type HealthStatus string

const (
	StatusHealthy   HealthStatus = "healthy"
	StatusDegraded  HealthStatus = "degraded"
	StatusUnhealthy HealthStatus = "unhealthy"
)

// unhealthyRatio 打开的熔断器占比达到此值时判定为 unhealthy。
const unhealthyRatio = 0.5

// Health 健康检查结果。
type Health struct {
	Status       HealthStatus `json:"status"`
	Providers    int          `json:"providers"`
	Breakers     int          `json:"breakers"`
	OpenBreakers int          `json:"open_breakers"`
	OpenRatio    float64      `json:"open_ratio"`
	CacheError   string       `json:"cache_error,omitempty"`
	CheckedAt    time.Time    `json:"checked_at"`
}

// ProviderStatus 单个 provider 的熔断器快照和统计。
type ProviderStatus struct {
	Name     string              `json:"name"`
	Breakers []xbreaker.Snapshot `json:"breakers"`
	Stats    Stats               `json:"stats"`
}

// Stats 返回 provider 统计快照。
func (m *Manager) Stats(name string) (Stats, error) {
	reg, err := m.lookup(name)
	if err != nil {
		return Stats{}, err
	}
	return reg.stats.snapshot(), nil
}

// AllStats 返回全部 provider 的统计快照。
func (m *Manager) AllStats() map[string]Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]Stats, len(m.providers))
	for name, reg := range m.providers {
		out[name] = reg.stats.snapshot()
	}
	return out
}

// ResetStats 清零 provider 统计。
func (m *Manager) ResetStats(name string) error {
	reg, err := m.lookup(name)
	if err != nil {
		return err
	}
	reg.stats.reset()
	return nil
}

// States 返回每个 provider 的熔断器快照（按名称排序）和统计。
func (m *Manager) States() map[string]ProviderStatus {
	all := m.breakers.GetAllStates()
	names := m.breakers.Names()

	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]ProviderStatus, len(m.providers))
	for name, reg := range m.providers {
		prefix := BreakerName(name, "")
		st := ProviderStatus{Name: name, Stats: reg.stats.snapshot()}
		for _, bn := range names {
			if snap, ok := all[bn]; ok && strings.HasPrefix(bn, prefix) {
				st.Breakers = append(st.Breakers, snap)
			}
		}
		out[name] = st
	}
	return out
}

// HealthCheck 根据打开的 provider 熔断器占比判定整体状态：
// 没有打开的为 healthy，占比低于一半为 degraded，否则为 unhealthy。
// 缓存实现 HealthChecker 且检查失败时，状态至少为 degraded。
func (m *Manager) HealthCheck(ctx context.Context) Health {
	h := Health{
		Status:    StatusHealthy,
		Providers: len(m.Providers()),
		CheckedAt: m.now(),
	}
	for name, snap := range m.breakers.GetAllStates() {
		if !strings.HasPrefix(name, breakerPrefix) {
			continue
		}
		h.Breakers++
		if snap.State == xbreaker.StateOpen {
			h.OpenBreakers++
		}
	}
	if h.Breakers > 0 {
		h.OpenRatio = float64(h.OpenBreakers) / float64(h.Breakers)
	}
	switch {
	case h.OpenRatio >= unhealthyRatio:
		h.Status = StatusUnhealthy
	case h.OpenBreakers > 0:
		h.Status = StatusDegraded
	}

	if hc, ok := m.cache.(HealthChecker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			h.CacheError = err.Error()
			if h.Status == StatusHealthy {
				h.Status = StatusDegraded
			}
		}
	}
	return h
}
