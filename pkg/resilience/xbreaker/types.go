package xbreaker

import (
	"context"
	"time"

	"github.com/sony/gobreaker/v2"
)

type (
	// Counts 累计统计计数（自创建或 Reset 起）
	Counts = gobreaker.Counts

	// State 熔断器状态
	State = gobreaker.State
)

// 熔断器状态常量
const (
	// StateClosed 关闭状态（正常），请求正常通过，失败会被统计
	StateClosed = gobreaker.StateClosed

	// StateHalfOpen 半开状态（探测），允许有限请求通过以检测依赖是否恢复
	StateHalfOpen = gobreaker.StateHalfOpen

	// StateOpen 打开状态（熔断），请求直接失败，不会调用依赖
	StateOpen = gobreaker.StateOpen
)

// Operation 受保护的操作
type Operation func(ctx context.Context) (any, error)

// Fallback 降级函数，err 为操作失败或熔断拒绝的原因，其自身的错误会原样返回给调用方
type Fallback func(ctx context.Context, err error) (any, error)

// Snapshot 熔断器状态快照
type Snapshot struct {
	Name         string
	State        State
	FailureCount int
	SuccessCount int
	LastFailure  time.Time
	LastSuccess  time.Time
	NextAttempt  time.Time // 仅 Open 状态有效
	Reason       string    // 手动打开时的原因
	Counts       Counts
	Rejected     uint64 // 被熔断拒绝的调用数
	Config       Config
	CreatedAt    time.Time
}

// LastActivity 返回最近一次成功或失败的时间，均为空时返回创建时间
func (s Snapshot) LastActivity() time.Time {
	last := s.LastSuccess
	if s.LastFailure.After(last) {
		last = s.LastFailure
	}
	if last.IsZero() {
		return s.CreatedAt
	}
	return last
}

// BatchResult 批量执行中单个操作的结果
type BatchResult struct {
	Value any
	Err   error
}

// AdminResult 批量管理操作中单个名称的结果
type AdminResult struct {
	Name string
	Err  error
}

// OK 报告该项是否成功
func (r AdminResult) OK() bool {
	return r.Err == nil
}
