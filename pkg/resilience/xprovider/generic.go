package xprovider

import (
	"context"
	"fmt"
	"slices"
)

// ExecuteAs 是 Execute 的泛型版本。nil 结果（如读操作降级）返回零值和 nil 错误。
//
// 缓存命中时按 T 解码缓存值，其他实例写入的结果同样得到 T，而不是通用的解码形式。
func ExecuteAs[T any](ctx context.Context, m *Manager, providerName, method string, args []any, opts ...CallOption) (T, error) {
	var zero T
	v, err := m.Execute(ctx, providerName, method, args, append(slices.Clip(opts), readAs[T]())...)
	if err != nil || v == nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("%w: got %T, want %T", ErrUnexpectedType, v, zero)
	}
	return t, nil
}

func readAs[T any]() CallOption {
	return func(o *callOptions) {
		o.read = func(ctx context.Context, c Cache, key string) (any, bool) {
			var t T
			if !c.GetInto(ctx, key, &t) {
				return nil, false
			}
			return t, true
		}
	}
}
