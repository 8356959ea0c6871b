package xretry

import (
	"context"
	"errors"
	"time"
)

// RetryPolicy 决定一次失败之后是否继续尝试。
type RetryPolicy interface {
	// MaxAttempts 最大尝试次数，包含首次调用。
	MaxAttempts() int
	// ShouldRetry 在第 attempt 次失败后调用（attempt 从 1 开始）。
	ShouldRetry(ctx context.Context, attempt int, err error) bool
}

// BackoffPolicy 决定第 attempt 次失败后等待多久。
type BackoffPolicy interface {
	NextDelay(attempt int) time.Duration
}

// BackoffFunc 把普通函数适配为 BackoffPolicy。
type BackoffFunc func(attempt int) time.Duration

// NextDelay 调用 f。
func (f BackoffFunc) NextDelay(attempt int) time.Duration { return f(attempt) }

// NoBackoff 失败后立即重试。
var NoBackoff BackoffPolicy = BackoffFunc(func(int) time.Duration { return 0 })

// FixedRetryPolicy 最多尝试固定次数，只重试被判定为可重试的错误。
// 显式声明 Retryable()==false 的错误（PermanentError、熔断拒绝）始终不重试。
type FixedRetryPolicy struct {
	attempts  int
	retryable func(error) bool
}

// NewFixedRetry 使用 IsRetryable 判定错误，maxAttempts 小于 1 时按 1 处理。
func NewFixedRetry(maxAttempts int) *FixedRetryPolicy {
	return NewFixedRetryIf(maxAttempts, nil)
}

// NewFixedRetryIf 使用自定义判定函数，retryable 为 nil 时退回 IsRetryable。
func NewFixedRetryIf(maxAttempts int, retryable func(error) bool) *FixedRetryPolicy {
	if retryable == nil {
		retryable = IsRetryable
	}
	return &FixedRetryPolicy{attempts: max(maxAttempts, 1), retryable: retryable}
}

func (p *FixedRetryPolicy) MaxAttempts() int { return p.attempts }

func (p *FixedRetryPolicy) ShouldRetry(ctx context.Context, attempt int, err error) bool {
	if attempt >= p.attempts || ctx.Err() != nil {
		return false
	}
	var re RetryableError
	if errors.As(err, &re) && !re.Retryable() {
		return false
	}
	return p.retryable(err)
}

var _ RetryPolicy = (*FixedRetryPolicy)(nil)
