package xmetrics

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultInstrumentationName = "github.com/omeyang/xshield/pkg/observability/xmetrics"
	unknownName                = "unknown"

	metricCallTotal    = "xshield.call.total"
	metricCallDuration = "xshield.call.duration"
	metricCallInflight = "xshield.call.inflight"
	metricEventTotal   = "xshield.event.total"

	keyComponent = attribute.Key("component")
	keyOperation = attribute.Key("operation")
	keyStatus    = attribute.Key("status")
	keyEvent     = attribute.Key("event")
)

type otelConfig struct {
	instrumentationName string
	tracerProvider      trace.TracerProvider
	meterProvider       metric.MeterProvider
}

// Option 定义 OTel Observer 的配置选项。
type Option func(*otelConfig)

// WithInstrumentationName 设置 instrumentation scope 名称。
func WithInstrumentationName(name string) Option {
	return func(cfg *otelConfig) {
		if name != "" {
			cfg.instrumentationName = name
		}
	}
}

// WithTracerProvider 设置 TracerProvider，默认使用全局 provider。
func WithTracerProvider(provider trace.TracerProvider) Option {
	return func(cfg *otelConfig) {
		if provider != nil {
			cfg.tracerProvider = provider
		}
	}
}

// WithMeterProvider 设置 MeterProvider，默认使用全局 provider。
func WithMeterProvider(provider metric.MeterProvider) Option {
	return func(cfg *otelConfig) {
		if provider != nil {
			cfg.meterProvider = provider
		}
	}
}

// instruments 是 OTel Observer 使用的全部指标。
type instruments struct {
	calls    metric.Int64Counter
	duration metric.Float64Histogram
	inflight metric.Int64UpDownCounter
	events   metric.Int64Counter
}

func newInstruments(meter metric.Meter) (instruments, error) {
	var (
		ins  instruments
		errs []error
	)
	record := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	var err error
	ins.calls, err = meter.Int64Counter(metricCallTotal,
		metric.WithDescription("protected calls by component, operation and outcome"),
		metric.WithUnit("{call}"))
	record(err)
	ins.duration, err = meter.Float64Histogram(metricCallDuration,
		metric.WithDescription("protected call latency including retries and fallback"),
		metric.WithUnit("s"))
	record(err)
	ins.inflight, err = meter.Int64UpDownCounter(metricCallInflight,
		metric.WithDescription("protected calls currently in progress"),
		metric.WithUnit("{call}"))
	record(err)
	ins.events, err = meter.Int64Counter(metricEventTotal,
		metric.WithDescription("breaker transitions, invalidations and other discrete events"),
		metric.WithUnit("{event}"))
	record(err)

	if len(errs) > 0 {
		return instruments{}, fmt.Errorf("xmetrics: create instruments: %w", errors.Join(errs...))
	}
	return ins, nil
}

// NewOTelObserver 创建基于 OpenTelemetry 的 Observer。
//
// 每个跨度对应一个 trace span，并记录调用计数、耗时和进行中的调用数；
// 事件同时计入事件计数并附加到当前活跃 span。
func NewOTelObserver(opts ...Option) (Observer, error) {
	cfg := otelConfig{
		instrumentationName: defaultInstrumentationName,
		tracerProvider:      otel.GetTracerProvider(),
		meterProvider:       otel.GetMeterProvider(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	ins, err := newInstruments(cfg.meterProvider.Meter(cfg.instrumentationName))
	if err != nil {
		return nil, err
	}
	return &otelObserver{
		tracer: cfg.tracerProvider.Tracer(cfg.instrumentationName),
		ins:    ins,
	}, nil
}

type otelObserver struct {
	tracer trace.Tracer
	ins    instruments
}

func (o *otelObserver) Start(ctx context.Context, opts SpanOptions) (context.Context, Span) {
	ctx = orBackground(ctx)
	component := orUnknown(opts.Component)
	operation := orUnknown(opts.Operation)
	base := attribute.NewSet(keyComponent.String(component), keyOperation.String(operation))

	ctx, span := o.tracer.Start(ctx, component+"."+operation,
		trace.WithSpanKind(spanKinds[opts.Kind]),
		trace.WithAttributes(base.ToSlice()...),
		trace.WithAttributes(attrsToOTel(opts.Attrs)...),
	)
	o.ins.inflight.Add(context.WithoutCancel(ctx), 1, metric.WithAttributeSet(base))

	return ctx, &otelSpan{
		observer: o,
		span:     span,
		ctx:      ctx,
		base:     base,
		start:    time.Now(),
	}
}

func (o *otelObserver) Event(ctx context.Context, component, event string, attrs ...Attr) {
	ctx = orBackground(ctx)
	component = orUnknown(component)
	kvs := append([]attribute.KeyValue{keyComponent.String(component), keyEvent.String(event)},
		attrsToOTel(attrs)...)
	o.ins.events.Add(context.WithoutCancel(ctx), 1, metric.WithAttributes(kvs...))

	// 挂到当前 span 上，链路中可以看到熔断迁移发生在哪次调用里
	if span := trace.SpanFromContext(ctx); span.IsRecording() {
		span.AddEvent(component+"."+event, trace.WithAttributes(kvs...))
	}
}

type otelSpan struct {
	observer *otelObserver
	span     trace.Span
	ctx      context.Context
	base     attribute.Set
	start    time.Time
	once     sync.Once
}

func (s *otelSpan) End(result Result) {
	if s == nil {
		return
	}
	s.once.Do(func() { s.end(result) })
}

func (s *otelSpan) end(result Result) {
	status := result.status()
	elapsed := time.Since(s.start)

	if result.Err != nil {
		s.span.RecordError(result.Err)
	}
	code, desc := spanStatus(status, result.Err)
	s.span.SetStatus(code, desc)
	s.span.SetAttributes(keyStatus.String(string(status)))
	s.span.SetAttributes(attrsToOTel(result.Attrs)...)
	s.span.End()

	// 调用方 ctx 可能已取消，指标照常记录
	ctx := context.WithoutCancel(s.ctx)
	s.observer.ins.inflight.Add(ctx, -1, metric.WithAttributeSet(s.base))
	withStatus := metric.WithAttributes(append(s.base.ToSlice(), keyStatus.String(string(status)))...)
	s.observer.ins.calls.Add(ctx, 1, withStatus)
	s.observer.ins.duration.Record(ctx, elapsed.Seconds(), withStatus)
}

func (r Result) status() Status {
	switch {
	case r.Status != "":
		return r.Status
	case r.Err != nil:
		return StatusError
	default:
		return StatusOK
	}
}

// spanStatus 降级成功视为 Ok；熔断拒绝和失败都标记为 Error。
func spanStatus(status Status, err error) (codes.Code, string) {
	switch status {
	case StatusError, StatusRejected:
		if err != nil {
			return codes.Error, err.Error()
		}
		return codes.Error, string(status)
	default:
		return codes.Ok, ""
	}
}

var spanKinds = map[Kind]trace.SpanKind{
	KindInternal: trace.SpanKindInternal,
	KindClient:   trace.SpanKindClient,
	KindProducer: trace.SpanKindProducer,
	KindConsumer: trace.SpanKindConsumer,
}

func orUnknown(s string) string {
	if s == "" {
		return unknownName
	}
	return s
}

func attrsToOTel(attrs []Attr) []attribute.KeyValue {
	out := make([]attribute.KeyValue, 0, len(attrs))
	for _, a := range attrs {
		if a.Key != "" && a.Value != nil {
			out = append(out, toKeyValue(a))
		}
	}
	return out
}

// toKeyValue 把 Attr 转成 OTel 属性。Duration 以毫秒记录，
// 超出 int64 的无符号数和其他类型按字符串记录。
func toKeyValue(a Attr) attribute.KeyValue {
	key := attribute.Key(a.Key)
	switch v := a.Value.(type) {
	case string:
		return key.String(v)
	case bool:
		return key.Bool(v)
	case int:
		return key.Int(v)
	case int64:
		return key.Int64(v)
	case float64:
		return key.Float64(v)
	case time.Duration:
		return key.Int64(v.Milliseconds())
	case []string:
		return key.StringSlice(v)
	case uint64:
		if v <= math.MaxInt64 {
			return key.Int64(int64(v))
		}
	case fmt.Stringer:
		return key.String(v.String())
	}
	return key.String(fmt.Sprint(a.Value))
}
