// Package xmetrics 提供 xshield 统一的可观测性接口（metrics + tracing）。
//
// # 设计理念
//
// xmetrics 仅定义最小化接口：Observer/Span/Attr，
// xbreaker、xcache、xprovider 只依赖接口；默认实现基于 OpenTelemetry。
// 未配置 Observer 时使用 [NoopObserver]，不产生任何开销。
//
// # 使用示例
//
//	obs, _ := xmetrics.NewOTelObserver()
//	ctx, span := xmetrics.Start(ctx, obs, xmetrics.SpanOptions{
//		Component: "xprovider",
//		Operation: "execute",
//		Kind:      xmetrics.KindClient,
//	})
//	defer span.End(xmetrics.Result{Err: err})
//
//	// 离散事件（熔断状态迁移、缓存命中等）
//	obs.Event(ctx, "xbreaker", "state_change", xmetrics.String("to", "open"))
//
// # 指标命名
//
//   - xshield.call.total     受保护调用计数，属性 component / operation / status
//   - xshield.call.duration  调用耗时（秒），含重试和降级
//   - xshield.call.inflight  进行中的调用数
//   - xshield.event.total    事件计数，属性 component / event 以及调用方附加属性
package xmetrics
