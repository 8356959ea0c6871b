package xprovider

import (
	"context"
	"maps"
	"slices"
)

// Method 是 provider 上可按名称调用的方法，参数按位置传入。
type Method func(ctx context.Context, args ...any) (any, error)

// Provider 按名称查找方法。
type Provider interface {
	Lookup(method string) (Method, bool)
}

// Methods 是基于 map 的 Provider 实现。
//
//	p := xprovider.Methods{
//	    "getQuote": func(ctx context.Context, args ...any) (any, error) { ... },
//	}
type Methods map[string]Method

// Lookup 实现 Provider。
func (m Methods) Lookup(method string) (Method, bool) {
	fn, ok := m[method]
	if !ok || fn == nil {
		return nil, false
	}
	return fn, true
}

// Names 返回排序后的方法名。
func (m Methods) Names() []string {
	return slices.Sorted(maps.Keys(m))
}
