package xprovider

import (
	"context"
	"fmt"
	"strings"
)

// FallbackPolicy 方法级降级策略。
type FallbackPolicy string

const (
	// FallbackNull 降级为 nil 结果，适合读操作。
	FallbackNull FallbackPolicy = "null"
	// FallbackFailure 降级为 FallbackResult，适合写操作。
	FallbackFailure FallbackPolicy = "failure"
	// FallbackRethrow 不降级，返回原始错误。
	FallbackRethrow FallbackPolicy = "rethrow"
)

func (p FallbackPolicy) valid() bool {
	switch p {
	case FallbackNull, FallbackFailure, FallbackRethrow:
		return true
	default:
		return false
	}
}

// ParseFallbackPolicy 解析策略名称（大小写不敏感）。
func ParseFallbackPolicy(s string) (FallbackPolicy, error) {
	p := FallbackPolicy(strings.ToLower(strings.TrimSpace(s)))
	if !p.valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidFallback, s)
	}
	return p, nil
}

// UnmarshalText 支持从配置文件直接反序列化。
func (p *FallbackPolicy) UnmarshalText(data []byte) error {
	parsed, err := ParseFallbackPolicy(string(data))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// FallbackResult 是 FallbackFailure 策略返回的结构化失败结果。
type FallbackResult struct {
	Success  bool   `json:"success"`
	Error    string `json:"error"`
	Fallback bool   `json:"fallback"`
}

// FallbackFunc 调用方提供的降级函数，args 为原始调用参数。
type FallbackFunc func(ctx context.Context, err error, args []any) (any, error)

// InferFallbackPolicy 按方法名前缀推断降级策略。
func InferFallbackPolicy(method string) FallbackPolicy {
	m := strings.ToLower(method)
	switch {
	case strings.HasPrefix(m, "get"), strings.HasPrefix(m, "fetch"):
		return FallbackNull
	case strings.HasPrefix(m, "create"), strings.HasPrefix(m, "process"):
		return FallbackFailure
	default:
		return FallbackRethrow
	}
}

// resolvePolicy 显式配置优先，其次按方法名推断。
func resolvePolicy(cfg Config, method string) FallbackPolicy {
	if p, ok := cfg.Fallback[method]; ok {
		return p
	}
	return InferFallbackPolicy(method)
}

// policyFallback 把策略转换为降级函数，FallbackRethrow 返回 nil。
func policyFallback(p FallbackPolicy) FallbackFunc {
	switch p {
	case FallbackNull:
		return func(context.Context, error, []any) (any, error) {
			return nil, nil
		}
	case FallbackFailure:
		return func(_ context.Context, err error, _ []any) (any, error) {
			return FallbackResult{Success: false, Error: err.Error(), Fallback: true}, nil
		}
	default:
		return nil
	}
}
