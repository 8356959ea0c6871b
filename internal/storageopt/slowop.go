package storageopt

import (
	"context"
	"sync/atomic"
	"time"
)

// SlowOpHook 慢操作回调钩子，在请求路径上同步执行。
//
// 钩子耗时会直接增加请求延迟，只做计数或轻量日志。
type SlowOpHook[T any] func(ctx context.Context, info T, elapsed time.Duration)

// SlowOpDetector 慢操作检测器。
type SlowOpDetector[T any] struct {
	threshold time.Duration
	hook      SlowOpHook[T]
	count     atomic.Int64
}

// NewSlowOpDetector 创建慢操作检测器。threshold 为 0 时禁用检测。
func NewSlowOpDetector[T any](threshold time.Duration, hook SlowOpHook[T]) *SlowOpDetector[T] {
	return &SlowOpDetector[T]{threshold: threshold, hook: hook}
}

// Observe 检测并可能触发钩子，返回是否判定为慢操作（elapsed >= threshold）。
// nil 检测器安全。
func (d *SlowOpDetector[T]) Observe(ctx context.Context, info T, elapsed time.Duration) bool {
	if d == nil || d.threshold <= 0 || elapsed < d.threshold {
		return false
	}
	d.count.Add(1)
	if d.hook != nil {
		d.hook(ctx, info, elapsed)
	}
	return true
}

// Count 返回已检测到的慢操作次数。
func (d *SlowOpDetector[T]) Count() int64 {
	if d == nil {
		return 0
	}
	return d.count.Load()
}
