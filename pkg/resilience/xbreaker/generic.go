package xbreaker

import "context"

// Execute 泛型版本的 Registry.Execute
//
// 此函数是包级函数而非方法，因为 Go 不支持方法的类型参数。
// fallback 可为 nil。
func Execute[T any](ctx context.Context, r *Registry, name string,
	op func(ctx context.Context) (T, error),
	fallback func(ctx context.Context, err error) (T, error),
	opts ...ExecOption,
) (T, error) {
	var zero T
	if op == nil {
		return zero, ErrNilFunc
	}

	var fb Fallback
	if fallback != nil {
		fb = func(ctx context.Context, err error) (any, error) {
			return fallback(ctx, err)
		}
	}

	result, err := r.Execute(ctx, name, func(ctx context.Context) (any, error) {
		return op(ctx)
	}, fb, opts...)
	if err != nil {
		return zero, err
	}
	typed, _ := result.(T)
	return typed, nil
}
