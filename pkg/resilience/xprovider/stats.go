package xprovider

import (
	"sync"
	"time"
)

// Stats provider 累计统计，在 ResetStats 之前单调递增。
type Stats struct {
	TotalRequests  int64 `json:"total_requests"`
	TotalSuccesses int64 `json:"total_successes"`
	TotalFailures  int64 `json:"total_failures"`
	TotalTimeouts  int64 `json:"total_timeouts"`
	TotalCacheHits int64 `json:"total_cache_hits"`
	// TotalFallbacks 以降级结果返回的调用数，不计入成功或失败。
	TotalFallbacks int64 `json:"total_fallbacks"`

	TotalResponseTime   time.Duration `json:"total_response_time"`
	AverageResponseTime time.Duration `json:"average_response_time"`

	LastRequestAt time.Time `json:"last_request_at,omitzero"`
	LastSuccessAt time.Time `json:"last_success_at,omitzero"`
	LastFailureAt time.Time `json:"last_failure_at,omitzero"`
}

// SuccessRate 返回成功率百分比，无已完成调用时返回 0。
func (s Stats) SuccessRate() float64 {
	done := s.TotalSuccesses + s.TotalFailures
	if done == 0 {
		return 0
	}
	return float64(s.TotalSuccesses) / float64(done) * 100
}

// statsRecorder 并发安全的统计记录器。
type statsRecorder struct {
	mu sync.Mutex
	s  Stats
}

func (r *statsRecorder) request(now time.Time) {
	r.mu.Lock()
	r.s.TotalRequests++
	r.s.LastRequestAt = now
	r.mu.Unlock()
}

func (r *statsRecorder) cacheHit() {
	r.mu.Lock()
	r.s.TotalCacheHits++
	r.mu.Unlock()
}

func (r *statsRecorder) timeout() {
	r.mu.Lock()
	r.s.TotalTimeouts++
	r.mu.Unlock()
}

func (r *statsRecorder) fallback() {
	r.mu.Lock()
	r.s.TotalFallbacks++
	r.mu.Unlock()
}

func (r *statsRecorder) success(now time.Time, elapsed time.Duration) {
	r.mu.Lock()
	r.s.TotalSuccesses++
	r.s.TotalResponseTime += elapsed
	r.s.LastSuccessAt = now
	r.mu.Unlock()
}

func (r *statsRecorder) failure(now time.Time) {
	r.mu.Lock()
	r.s.TotalFailures++
	r.s.LastFailureAt = now
	r.mu.Unlock()
}

func (r *statsRecorder) snapshot() Stats {
	r.mu.Lock()
	s := r.s
	r.mu.Unlock()
	if s.TotalSuccesses > 0 {
		s.AverageResponseTime = s.TotalResponseTime / time.Duration(s.TotalSuccesses)
	}
	return s
}

func (r *statsRecorder) reset() {
	r.mu.Lock()
	r.s = Stats{}
	r.mu.Unlock()
}
