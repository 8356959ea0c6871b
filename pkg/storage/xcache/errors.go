package xcache

import "errors"

var (
	// ErrNilClient 表示传入的客户端为 nil。
	ErrNilClient = errors.New("xcache: nil client")

	// ErrNilStore 表示传入的 Store 为 nil。
	ErrNilStore = errors.New("xcache: nil store")

	// ErrNotFound 表示 L2 中不存在该 key。
	// Store 实现必须在 key 不存在时返回此错误（可包装）。
	ErrNotFound = errors.New("xcache: key not found")

	// ErrEmptyKey 表示传入的 key 为空字符串。
	ErrEmptyKey = errors.New("xcache: empty key")

	// ErrEmptyNamespace 表示版本命名空间为空。
	ErrEmptyNamespace = errors.New("xcache: empty namespace")

	// ErrClosed 表示服务已关闭。
	ErrClosed = errors.New("xcache: service closed")

	// ErrNilHandler 表示订阅回调为 nil。
	ErrNilHandler = errors.New("xcache: nil handler")

	// ErrHealthMismatch 表示健康检查读回的值与写入值不一致。
	ErrHealthMismatch = errors.New("xcache: health check value mismatch")

	// ErrInvalidConfig 表示配置参数无效。
	ErrInvalidConfig = errors.New("xcache: invalid configuration")
)
