package xmetrics

import (
	"context"
	"strconv"
)

// Kind 跨度类型，决定 trace 中的 span kind。
type Kind uint8

const (
	KindInternal Kind = iota
	// KindClient 对外部依赖（provider、Redis）的调用。
	KindClient
	// KindProducer 发布失效事件。
	KindProducer
	// KindConsumer 处理收到的失效事件。
	KindConsumer
)

var kindNames = [...]string{"internal", "client", "producer", "consumer"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// Status 调用结果。
type Status string

const (
	StatusOK    Status = "ok"
	StatusError Status = "error"
	// StatusFallback 主调用失败，由降级函数给出结果。
	StatusFallback Status = "fallback"
	// StatusRejected 被熔断器拒绝，没有到达下游。
	StatusRejected Status = "rejected"
)

// Attr 观测属性，Value 支持基础类型、time.Duration、[]string 和 fmt.Stringer。
type Attr struct {
	Key   string
	Value any
}

// SpanOptions 创建跨度的参数。Component 为空时记为 "unknown"。
type SpanOptions struct {
	Component string
	Operation string
	Kind      Kind
	Attrs     []Attr
}

// Result 跨度结束时的结果，Status 为空时由 Err 推导。
type Result struct {
	Status Status
	Err    error
	Attrs  []Attr
}

// Span 一次受观测的调用。End 只有第一次生效。
type Span interface {
	End(result Result)
}

// Observer 是熔断器、缓存和 provider 管理器依赖的观测接口。
type Observer interface {
	Start(ctx context.Context, opts SpanOptions) (context.Context, Span)
	// Event 记录熔断迁移、失效广播等离散事件。
	Event(ctx context.Context, component, event string, attrs ...Attr)
}

// NoopObserver 不记录任何东西，是各组件未配置 Observer 时的默认值。
type NoopObserver struct{}

func (NoopObserver) Start(ctx context.Context, _ SpanOptions) (context.Context, Span) {
	return orBackground(ctx), NoopSpan{}
}

func (NoopObserver) Event(context.Context, string, string, ...Attr) {}

// NoopSpan 空跨度。
type NoopSpan struct{}

func (NoopSpan) End(Result) {}

// Start 调用 observer.Start，保证返回的 ctx 和 Span 都不为 nil。
func Start(ctx context.Context, observer Observer, opts SpanOptions) (context.Context, Span) {
	ctx = orBackground(ctx)
	if observer == nil {
		return ctx, NoopSpan{}
	}
	got, span := observer.Start(ctx, opts)
	if got == nil {
		got = ctx
	}
	if span == nil {
		span = NoopSpan{}
	}
	return got, span
}

// Event 调用 observer.Event，observer 为 nil 时忽略。
func Event(ctx context.Context, observer Observer, component, event string, attrs ...Attr) {
	if observer != nil {
		observer.Event(orBackground(ctx), component, event, attrs...)
	}
}

func orBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
