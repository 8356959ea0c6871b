package xretry

import (
	"context"
	"fmt"
	"time"
)

type outcome[T any] struct {
	val T
	err error
}

// DoWithTimeout 在 timeout 内执行 fn，先完成者胜出
//
// 计时器先到时取消传给 fn 的 ctx 并返回 *TimeoutError，fn 的后续结果被丢弃，
// 其副作用无法回滚。调用方 ctx 先结束时返回包装了 ErrCanceled 的错误。
// timeout <= 0 表示不限时，直接调用 fn。fn 中的 panic 会被转换为错误。
func DoWithTimeout[T any](ctx context.Context, timeout time.Duration, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if ctx == nil {
		return zero, ErrNilContext
	}
	if fn == nil {
		return zero, ErrNilFunc
	}
	if err := ctx.Err(); err != nil {
		return zero, canceled(err)
	}
	if timeout <= 0 {
		return fn(ctx)
	}

	callCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// 缓冲为 1，败者 goroutine 写入后即可退出
	done := make(chan outcome[T], 1)
	go func() {
		var out outcome[T]
		defer func() {
			if p := recover(); p != nil {
				out = outcome[T]{err: fmt.Errorf("xretry: panic in operation: %v", p)}
			}
			done <- out
		}()
		out.val, out.err = fn(callCtx)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case out := <-done:
		return out.val, out.err
	case <-timer.C:
		return zero, &TimeoutError{After: timeout}
	case <-ctx.Done():
		return zero, canceled(ctx.Err())
	}
}
