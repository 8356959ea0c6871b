package xlog

import (
	"context"
	"log/slog"
)

type ctxAttrsKey struct{}

// ContextWith 返回携带日志属性的 context
//
// 属性会追加到 ctx 上已有的属性之后，所有经由 xlog 输出且使用该 ctx 的日志都会自动附加。
func ContextWith(ctx context.Context, attrs ...slog.Attr) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if len(attrs) == 0 {
		return ctx
	}
	prev := FromContext(ctx)
	merged := make([]slog.Attr, 0, len(prev)+len(attrs))
	merged = append(merged, prev...)
	merged = append(merged, attrs...)
	return context.WithValue(ctx, ctxAttrsKey{}, merged)
}

// FromContext 返回 ctx 上携带的日志属性，返回的切片不可修改
func FromContext(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	attrs, _ := ctx.Value(ctxAttrsKey{}).([]slog.Attr)
	return attrs
}

// contextHandler 在 Handle 时注入 context 上的属性
//
// 调用 WithGroup 后注入的属性会归入 group 下，这是 slog handler 链的固有行为。
type contextHandler struct {
	base slog.Handler
}

func (h *contextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.base.Enabled(ctx, level)
}

func (h *contextHandler) Handle(ctx context.Context, r slog.Record) error {
	if attrs := FromContext(ctx); len(attrs) > 0 {
		// slog 契约：修改前必须 Clone
		r = r.Clone()
		r.AddAttrs(attrs...)
	}
	return h.base.Handle(ctx, r)
}

func (h *contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &contextHandler{base: h.base.WithAttrs(attrs)}
}

func (h *contextHandler) WithGroup(name string) slog.Handler {
	return &contextHandler{base: h.base.WithGroup(name)}
}
