package storageopt

import (
	"sync/atomic"
	"time"
)

// HealthCounter 健康检查计数器。
type HealthCounter struct {
	pingCount  atomic.Int64
	pingErrors atomic.Int64
}

// IncPing 增加 ping 计数。
func (h *HealthCounter) IncPing() {
	h.pingCount.Add(1)
}

// IncPingError 增加 ping 错误计数。
func (h *HealthCounter) IncPingError() {
	h.pingErrors.Add(1)
}

// PingCount 返回 ping 计数。
func (h *HealthCounter) PingCount() int64 {
	return h.pingCount.Load()
}

// PingErrors 返回 ping 错误计数。
func (h *HealthCounter) PingErrors() int64 {
	return h.pingErrors.Load()
}

// OpCounter 远端存储操作计数器。
type OpCounter struct {
	ops    atomic.Int64
	errors atomic.Int64
}

// Observe 记录一次操作，err 非 nil 时同时计入错误。
func (c *OpCounter) Observe(err error) {
	c.ops.Add(1)
	if err != nil {
		c.errors.Add(1)
	}
}

// Ops 返回操作总数。
func (c *OpCounter) Ops() int64 {
	return c.ops.Load()
}

// Errors 返回失败操作数。
func (c *OpCounter) Errors() int64 {
	return c.errors.Load()
}

// Reset 清零计数。
func (c *OpCounter) Reset() {
	c.ops.Store(0)
	c.errors.Store(0)
}

// MeasureOperation 测量操作耗时。
//
//	start := time.Now()
//	// ... 操作 ...
//	duration := storageopt.MeasureOperation(start)
func MeasureOperation(start time.Time) time.Duration {
	return time.Since(start)
}
