package xretry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNilRetryer nil Retryer
	ErrNilRetryer = errors.New("xretry: nil retryer")
	// ErrNilContext nil context
	ErrNilContext = errors.New("xretry: nil context")
	// ErrNilFunc nil 执行函数
	ErrNilFunc = errors.New("xretry: nil func")
	// ErrInvalidBackoff 无法识别的退避策略名称
	ErrInvalidBackoff = errors.New("xretry: invalid backoff kind")
	// ErrCanceled 调用方取消了操作（ctx 取消或截止时间到达）
	//
	// 与 TimeoutError 不同，取消不计入超时统计，也不会被重试。
	ErrCanceled = errors.New("xretry: canceled")
)

// RetryableError 可重试错误接口
// 实现此接口的错误会被自动识别为可重试或不可重试
type RetryableError interface {
	error
	Retryable() bool
}

// PermanentError 永久性错误（不应重试）
type PermanentError struct {
	Err error
}

// NewPermanentError 创建永久性错误
func NewPermanentError(err error) *PermanentError {
	return &PermanentError{Err: err}
}

func (e *PermanentError) Error() string {
	if e.Err == nil {
		return "permanent error"
	}
	return e.Err.Error()
}

func (e *PermanentError) Unwrap() error   { return e.Err }
func (e *PermanentError) Retryable() bool { return false }

// TemporaryError 临时性错误（应该重试）
type TemporaryError struct {
	Err error
}

// NewTemporaryError 创建临时性错误
func NewTemporaryError(err error) *TemporaryError {
	return &TemporaryError{Err: err}
}

func (e *TemporaryError) Error() string {
	if e.Err == nil {
		return "temporary error"
	}
	return e.Err.Error()
}

func (e *TemporaryError) Unwrap() error   { return e.Err }
func (e *TemporaryError) Retryable() bool { return true }

// TimeoutError 单次尝试超过截止时间
//
// 属于瞬时错误，可被重试。
type TimeoutError struct {
	After time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("xretry: operation timed out after %s", e.After)
}

// Timeout 满足 net.Error 风格的超时判断
func (e *TimeoutError) Timeout() bool   { return true }
func (e *TimeoutError) Retryable() bool { return true }

// IsTimeout 判断错误链中是否包含 TimeoutError
func IsTimeout(err error) bool {
	var te *TimeoutError
	return errors.As(err, &te)
}

// IsCanceled 判断错误是否为调用方取消
func IsCanceled(err error) bool {
	return errors.Is(err, ErrCanceled)
}

// canceled 将 ctx 错误包装为 ErrCanceled，保留原因
func canceled(cause error) error {
	if cause == nil {
		cause = context.Canceled
	}
	return fmt.Errorf("%w: %w", ErrCanceled, cause)
}

// IsRetryable 检查错误是否可重试
// 规则：
//   - nil 错误：不需要重试
//   - 调用方取消：不重试
//   - 实现 RetryableError 接口：根据 Retryable() 返回值判断
//   - 其他错误：仅当属于瞬时网络错误（见 IsTransient）时重试，业务错误不重试
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if IsCanceled(err) {
		return false
	}

	var re RetryableError
	if errors.As(err, &re) {
		return re.Retryable()
	}

	return IsTransient(err)
}

// IsPermanent 检查错误是否为永久性错误
func IsPermanent(err error) bool {
	if err == nil {
		return false
	}
	return !IsRetryable(err)
}
