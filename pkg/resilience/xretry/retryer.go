package xretry

import (
	"context"
	"time"

	retry "github.com/avast/retry-go/v5"
)

const defaultAttempts = 3

// Retryer 组合 RetryPolicy 和 BackoffPolicy，重试循环由 retry-go 驱动。
// 构造后只读，可并发使用。
type Retryer struct {
	policy  RetryPolicy
	backoff BackoffPolicy
	onRetry func(attempt int, err error)
}

// RetryerOption 配置 Retryer。
type RetryerOption func(*Retryer)

// WithRetryPolicy 设置重试策略，nil 忽略。
func WithRetryPolicy(p RetryPolicy) RetryerOption {
	return func(r *Retryer) {
		if p != nil {
			r.policy = p
		}
	}
}

// WithBackoffPolicy 设置退避策略，nil 忽略。
func WithBackoffPolicy(p BackoffPolicy) RetryerOption {
	return func(r *Retryer) {
		if p != nil {
			r.backoff = p
		}
	}
}

// WithOnRetry 每次决定重试、开始等待之前回调，attempt 为已失败次数。
func WithOnRetry(f func(attempt int, err error)) RetryerOption {
	return func(r *Retryer) { r.onRetry = f }
}

// NewRetryer 默认最多尝试 3 次，1s 起步的指数退避，上限 10s。
func NewRetryer(opts ...RetryerOption) *Retryer {
	r := &Retryer{
		policy:  NewFixedRetry(defaultAttempts),
		backoff: NewBackoff(BackoffExponential, time.Second, 10*time.Second),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Do 是 DoWithResult 的无返回值版本。
func (r *Retryer) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if fn == nil {
		return ErrNilFunc
	}
	_, err := DoWithResult(ctx, r, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// DoWithResult 带重试执行 fn，失败时只返回最后一次的错误。
// 等待期间 ctx 结束时返回包装了 ErrCanceled 的错误。
func DoWithResult[T any](ctx context.Context, r *Retryer, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	switch {
	case r == nil:
		return zero, ErrNilRetryer
	case ctx == nil:
		return zero, ErrNilContext
	case fn == nil:
		return zero, ErrNilFunc
	}
	if err := ctx.Err(); err != nil {
		return zero, canceled(err)
	}

	v, err := retry.NewWithData[T](r.options(ctx)...).Do(func() (T, error) {
		return fn(ctx)
	})
	if err != nil && ctx.Err() != nil && !IsCanceled(err) {
		return v, canceled(ctx.Err())
	}
	return v, err
}

// options 把策略翻译成 retry-go 选项。retry-go 的 DelayType 计数从 1 开始，
// OnRetry 从 0 开始，这里统一成已失败次数。
func (r *Retryer) options(ctx context.Context) []retry.Option {
	failures := 0
	opts := []retry.Option{
		retry.Context(ctx),
		retry.Attempts(uint(max(r.policy.MaxAttempts(), 1))),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			failures++
			return retry.IsRecoverable(err) && r.policy.ShouldRetry(ctx, failures, err)
		}),
		retry.DelayType(func(n uint, _ error, _ retry.DelayContext) time.Duration {
			return r.backoff.NextDelay(int(n))
		}),
	}
	if r.onRetry != nil {
		opts = append(opts, retry.OnRetry(func(n uint, err error) {
			r.onRetry(int(n)+1, err)
		}))
	}
	return opts
}
