// Package xretry 提供重试策略、退避策略和超时竞速。
//
// # 设计理念
//
// xretry 采用接口驱动设计：
//   - RetryPolicy：定义是否应该重试
//   - BackoffPolicy：定义重试间隔时间
//
// 底层使用 [avast/retry-go/v5] 实现重试循环。
//
// # 退避策略
//
// 由 NewBackoff(kind, base, max) 按配置创建，结果均被限制在 max 以内：
//   - fixed：base
//   - linear：base × attempt
//   - exponential：base × 2^(attempt-1)
//
// # 错误分类
//
// 默认只重试瞬时网络错误（IsTransient）：连接重置、域名不存在、超时、
// 连接被拒绝、一般网络错误。业务错误不重试。
//
//   - NewPermanentError(err)：强制不重试
//   - NewTemporaryError(err)：强制重试
//   - *TimeoutError：单次尝试超时，可重试
//   - ErrCanceled：调用方取消，不重试
//
// # 使用方式
//
//	retryer := xretry.NewRetryer(
//	    xretry.WithRetryPolicy(xretry.NewFixedRetry(3)),
//	    xretry.WithBackoffPolicy(xretry.NewBackoff(xretry.BackoffExponential, time.Second, 10*time.Second)),
//	)
//	user, err := xretry.DoWithResult(ctx, retryer, func(ctx context.Context) (*User, error) {
//	    return xretry.DoWithTimeout(ctx, 5*time.Second, client.GetUser)
//	})
//
// [avast/retry-go/v5]: https://github.com/avast/retry-go
package xretry
