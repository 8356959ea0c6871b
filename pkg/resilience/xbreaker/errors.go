package xbreaker

import (
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker/v2"
)

// 熔断器错误哨兵，复用 gobreaker 定义
var (
	// ErrOpenState 熔断器处于打开状态
	ErrOpenState = gobreaker.ErrOpenState

	// ErrTooManyRequests 半开状态下在途探测请求已满
	ErrTooManyRequests = gobreaker.ErrTooManyRequests
)

var (
	// ErrBreakerNotFound 管理操作指定的熔断器不存在
	ErrBreakerNotFound = errors.New("xbreaker: breaker not found")

	// ErrNilFunc 传入的操作函数为 nil
	ErrNilFunc = errors.New("xbreaker: function cannot be nil")

	// ErrNilContext 传入的 context 为 nil
	ErrNilContext = errors.New("xbreaker: context cannot be nil")
)

// BreakerError 熔断拒绝错误（CircuitOpenError）
//
// 包装 ErrOpenState 或 ErrTooManyRequests，
// 实现 Retryable() 返回 false，xretry 不会重试被熔断拒绝的调用。
type BreakerError struct {
	Err         error // ErrOpenState 或 ErrTooManyRequests
	Name        string
	State       State
	NextAttempt time.Time
}

// Error 实现 error 接口
func (e *BreakerError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("breaker %s: %v", e.Name, e.Err)
	}
	return e.Err.Error()
}

// Unwrap 实现 errors.Unwrap 接口
func (e *BreakerError) Unwrap() error {
	return e.Err
}

// Retryable 实现 xretry.RetryableError 接口，熔断错误不可重试
func (e *BreakerError) Retryable() bool {
	return false
}

// IsOpen 检查错误是否是熔断器打开错误
func IsOpen(err error) bool {
	return errors.Is(err, ErrOpenState)
}

// IsTooManyRequests 检查错误是否是半开探测已满错误
func IsTooManyRequests(err error) bool {
	return errors.Is(err, ErrTooManyRequests)
}

// IsBreakerError 检查错误是否为熔断拒绝（任一原因）
func IsBreakerError(err error) bool {
	var be *BreakerError
	return errors.As(err, &be)
}
