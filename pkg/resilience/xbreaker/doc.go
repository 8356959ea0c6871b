// Package xbreaker 提供按名称管理的熔断器注册表。
//
// # 状态机
//
// 每个名称（通常是一个外部依赖或其某个方法）对应一个独立的熔断器：
//
//   - Closed → Open：累计失败次数达到 FailureThreshold，NextAttempt = now + ResetTimeout
//   - Open → HalfOpen：惰性判定，now ≥ NextAttempt 时下一次调用翻转为半开并作为第一个探测请求
//   - HalfOpen → Closed：连续成功达到 SuccessThreshold
//   - HalfOpen → Open：任意一次失败立即重新打开
//   - Closed 自愈：距上次失败超过 MonitoringPeriod 后的下一次成功会清零失败计数
//
// 半开状态下同时在途的探测请求不超过 HalfOpenMaxCalls，超出的请求按熔断拒绝处理。
// 熔断器本身不重试，重试由调用方负责（见 xretry）。
//
// 状态类型、统计计数与错误哨兵复用 [gobreaker]：
// 拒绝时返回 *BreakerError，包装 ErrOpenState 或 ErrTooManyRequests，Retryable() 为 false。
//
// # 使用方式
//
//	reg := xbreaker.NewRegistry(xbreaker.WithLogger(logger))
//	v, err := reg.Execute(ctx, "payment", func(ctx context.Context) (any, error) {
//	    return client.Pay(ctx, req)
//	}, func(ctx context.Context, err error) (any, error) {
//	    return cachedQuote, nil
//	})
//
// 管理操作（Open/Close/Reset/GetState/GetAllStates/CleanupInactive 及批量版本）
// 只返回快照，不暴露内部可变状态。
//
// [gobreaker]: https://github.com/sony/gobreaker
package xbreaker
