package xlog

import (
	"log/slog"
	"time"
)

// 标准字段名
const (
	KeyError     = "error"
	KeyStack     = "stack"
	KeyDuration  = "duration"
	KeyCount     = "count"
	KeyComponent = "component"
	KeyOperation = "operation"
	KeyProvider  = "provider"
	KeyMethod    = "method"
	KeyBreaker   = "breaker"
	KeyState     = "state"
	KeyAttempt   = "attempt"
	KeyCacheKey  = "cache_key"
	KeyNamespace = "namespace"
	KeyChannel   = "channel"
)

// Err 创建错误属性，err 为 nil 时返回空属性（会被 slog 忽略）
//
//	if err != nil {
//	    logger.Error(ctx, "operation failed", xlog.Err(err))
//	}
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// Duration 创建人类可读的耗时属性（如 "1.5s"）
func Duration(d time.Duration) slog.Attr {
	return slog.String(KeyDuration, d.String())
}

// Component 标识日志来源组件
func Component(name string) slog.Attr {
	return slog.String(KeyComponent, name)
}

// Operation 标识当前执行的操作
func Operation(name string) slog.Attr {
	return slog.String(KeyOperation, name)
}

// Count 创建计数属性
func Count(n int64) slog.Attr {
	return slog.Int64(KeyCount, n)
}

// Provider 创建外部依赖（provider）名称属性
func Provider(name string) slog.Attr {
	return slog.String(KeyProvider, name)
}

// Method 创建 provider 方法名属性
func Method(name string) slog.Attr {
	return slog.String(KeyMethod, name)
}

// Breaker 创建熔断器名称属性
func Breaker(name string) slog.Attr {
	return slog.String(KeyBreaker, name)
}

// State 创建状态属性，接受任意 fmt.Stringer（如熔断器状态）
func State(s interface{ String() string }) slog.Attr {
	return slog.String(KeyState, s.String())
}

// Attempt 创建重试次数属性（从 1 开始）
func Attempt(n int) slog.Attr {
	return slog.Int(KeyAttempt, n)
}

// CacheKey 创建缓存 key 属性
func CacheKey(key string) slog.Attr {
	return slog.String(KeyCacheKey, key)
}

// Namespace 创建缓存版本命名空间属性
func Namespace(ns string) slog.Attr {
	return slog.String(KeyNamespace, ns)
}

// Channel 创建发布订阅频道属性
func Channel(name string) slog.Attr {
	return slog.String(KeyChannel, name)
}
