package xprovider

import (
	"errors"
	"fmt"
)

var (
	// ErrProviderNotFound 表示 provider 未注册。
	ErrProviderNotFound = errors.New("xprovider: provider not found")

	// ErrEmptyName 表示 provider 名称为空。
	ErrEmptyName = errors.New("xprovider: empty provider name")

	// ErrInvalidName 表示 provider 名称包含熔断器名称的分隔符 ':'。
	ErrInvalidName = errors.New("xprovider: provider name must not contain ':'")

	// ErrNilProvider 表示注册的 provider 为 nil。
	ErrNilProvider = errors.New("xprovider: nil provider")

	// ErrNilRegistry 表示熔断器注册表为 nil。
	ErrNilRegistry = errors.New("xprovider: nil breaker registry")

	// ErrNilContext 表示传入的 context 为 nil。
	ErrNilContext = errors.New("xprovider: nil context")

	// ErrInvalidFallback 表示降级策略名称无效。
	ErrInvalidFallback = errors.New("xprovider: invalid fallback policy")

	// ErrUnexpectedType 表示 ExecuteAs 的结果类型与期望不符。
	ErrUnexpectedType = errors.New("xprovider: unexpected result type")
)

// MethodNotFoundError 表示 provider 上不存在该方法。
type MethodNotFoundError struct {
	Provider string
	Method   string
}

func (e *MethodNotFoundError) Error() string {
	return fmt.Sprintf("xprovider: method %s not found on provider %s", e.Method, e.Provider)
}

// Retryable 方法不存在属于配置错误，不可重试。
func (e *MethodNotFoundError) Retryable() bool { return false }

// IsMethodNotFound 判断错误是否为 *MethodNotFoundError。
func IsMethodNotFound(err error) bool {
	var e *MethodNotFoundError
	return errors.As(err, &e)
}
