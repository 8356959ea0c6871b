package xbreaker

import (
	"context"
	"sync"
	"time"
)

type outcome int

const (
	outcomeSuccess outcome = iota
	outcomeFailure
	// outcomeIgnored 调用方放弃（ctx 已结束），不计入成功或失败
	outcomeIgnored
)

// transition 一次状态迁移，在释放锁后通知
type transition struct {
	name     string
	from, to State
	reason   string
}

// Breaker 单个依赖的熔断器
//
// 所有状态读写都在 mu 下完成，不同 Breaker 之间互不影响。
type Breaker struct {
	name   string
	cfg    Config
	now    func() time.Time
	notify func(transition)

	mu               sync.Mutex
	state            State
	generation       uint64
	failureCount     int
	successCount     int
	halfOpenInFlight int
	lastFailure      time.Time
	lastSuccess      time.Time
	nextAttempt      time.Time
	reason           string
	counts           Counts
	rejected         uint64
	createdAt        time.Time
}

func newBreaker(name string, cfg Config, now func() time.Time, notify func(transition)) *Breaker {
	return &Breaker{
		name:      name,
		cfg:       cfg,
		now:       now,
		notify:    notify,
		state:     StateClosed,
		createdAt: now(),
	}
}

// Name 返回熔断器名称
func (b *Breaker) Name() string {
	return b.name
}

// Config 返回生效配置
func (b *Breaker) Config() Config {
	return b.cfg
}

// State 返回当前状态
//
// 不触发 Open → HalfOpen 的惰性翻转，翻转只发生在调用路径上。
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Snapshot 返回状态快照
func (b *Breaker) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	s := Snapshot{
		Name:         b.name,
		State:        b.state,
		FailureCount: b.failureCount,
		SuccessCount: b.successCount,
		LastFailure:  b.lastFailure,
		LastSuccess:  b.lastSuccess,
		Reason:       b.reason,
		Counts:       b.counts,
		Rejected:     b.rejected,
		Config:       b.cfg,
		CreatedAt:    b.createdAt,
	}
	if b.state == StateOpen {
		s.NextAttempt = b.nextAttempt
	}
	return s
}

// Execute 执行受熔断器保护的操作
//
// 被拒绝时返回 *BreakerError，操作不会被调用。
// 操作 panic 时记为失败并继续 panic。
func (b *Breaker) Execute(ctx context.Context, op Operation) (result any, err error) {
	if ctx == nil {
		return nil, ErrNilContext
	}
	if op == nil {
		return nil, ErrNilFunc
	}

	gen, err := b.allow()
	if err != nil {
		return nil, err
	}

	defer func() {
		if p := recover(); p != nil {
			b.done(gen, outcomeFailure)
			panic(p)
		}
	}()

	result, err = op(ctx)
	b.done(gen, classify(ctx, err))
	return result, err
}

func classify(ctx context.Context, err error) outcome {
	if err == nil {
		return outcomeSuccess
	}
	if ctx.Err() != nil {
		return outcomeIgnored
	}
	return outcomeFailure
}

// allow 判断是否放行，放行时返回当前代数
func (b *Breaker) allow() (uint64, error) {
	b.mu.Lock()
	now := b.now()
	var tr *transition

	if b.state == StateOpen {
		if now.Before(b.nextAttempt) {
			b.reject()
			err := &BreakerError{Err: ErrOpenState, Name: b.name, State: StateOpen, NextAttempt: b.nextAttempt}
			b.mu.Unlock()
			return 0, err
		}
		tr = b.setState(StateHalfOpen, now, "")
	}

	if b.state == StateHalfOpen {
		if b.halfOpenInFlight >= b.cfg.HalfOpenMaxCalls {
			b.reject()
			b.mu.Unlock()
			b.fire(tr)
			return 0, &BreakerError{Err: ErrTooManyRequests, Name: b.name, State: StateHalfOpen}
		}
		b.halfOpenInFlight++
	}

	b.counts.Requests++
	gen := b.generation
	b.mu.Unlock()
	b.fire(tr)
	return gen, nil
}

// reject 熔断拒绝同样计入失败指标，但不影响 failureCount
func (b *Breaker) reject() {
	b.rejected++
	b.counts.Requests++
	b.counts.TotalFailures++
}

// done 记录一次放行调用的结果
func (b *Breaker) done(gen uint64, out outcome) {
	b.mu.Lock()
	now := b.now()

	// 状态已迁移，旧代调用只计入累计统计
	if gen != b.generation {
		switch out {
		case outcomeSuccess:
			b.counts.TotalSuccesses++
		case outcomeFailure:
			b.counts.TotalFailures++
		}
		b.mu.Unlock()
		return
	}

	if b.state == StateHalfOpen && b.halfOpenInFlight > 0 {
		b.halfOpenInFlight--
	}

	var tr *transition
	switch out {
	case outcomeSuccess:
		tr = b.onSuccess(now)
	case outcomeFailure:
		tr = b.onFailure(now)
	}
	b.mu.Unlock()
	b.fire(tr)
}

func (b *Breaker) onSuccess(now time.Time) *transition {
	b.counts.TotalSuccesses++
	b.counts.ConsecutiveSuccesses++
	b.counts.ConsecutiveFailures = 0
	b.lastSuccess = now

	switch b.state {
	case StateClosed:
		if b.failureCount > 0 && now.Sub(b.lastFailure) > b.cfg.MonitoringPeriod {
			b.failureCount = 0
		}
	case StateHalfOpen:
		b.successCount++
		if b.successCount >= b.cfg.SuccessThreshold {
			return b.setState(StateClosed, now, "")
		}
	}
	return nil
}

func (b *Breaker) onFailure(now time.Time) *transition {
	b.counts.TotalFailures++
	b.counts.ConsecutiveFailures++
	b.counts.ConsecutiveSuccesses = 0
	b.lastFailure = now

	switch b.state {
	case StateClosed:
		b.failureCount++
		if b.failureCount >= b.cfg.FailureThreshold {
			return b.setState(StateOpen, now, "")
		}
	case StateHalfOpen:
		return b.setState(StateOpen, now, "")
	}
	return nil
}

// setState 切换状态并重置对应计数，调用方持有 mu
func (b *Breaker) setState(to State, now time.Time, reason string) *transition {
	from := b.state
	b.state = to
	b.generation++
	b.successCount = 0
	b.halfOpenInFlight = 0

	switch to {
	case StateClosed:
		b.failureCount = 0
		b.nextAttempt = time.Time{}
		b.reason = ""
	case StateOpen:
		b.nextAttempt = now.Add(b.cfg.ResetTimeout)
		b.reason = reason
	case StateHalfOpen:
		b.reason = ""
	}

	if from == to {
		return nil
	}
	return &transition{name: b.name, from: from, to: to, reason: reason}
}

func (b *Breaker) fire(tr *transition) {
	if tr != nil && b.notify != nil {
		b.notify(*tr)
	}
}

// forceOpen 手动打开，NextAttempt 从当前时间重新计算
func (b *Breaker) forceOpen(reason string) {
	b.mu.Lock()
	tr := b.setState(StateOpen, b.now(), reason)
	b.mu.Unlock()
	b.fire(tr)
}

// forceClose 手动关闭，保留累计统计
func (b *Breaker) forceClose() {
	b.mu.Lock()
	tr := b.setState(StateClosed, b.now(), "")
	b.mu.Unlock()
	b.fire(tr)
}

// reset 关闭并清空所有统计
func (b *Breaker) reset() {
	b.mu.Lock()
	tr := b.setState(StateClosed, b.now(), "")
	b.counts = Counts{}
	b.rejected = 0
	b.lastFailure = time.Time{}
	b.lastSuccess = time.Time{}
	b.mu.Unlock()
	b.fire(tr)
}
