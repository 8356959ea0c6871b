// Package xprovider 为外部依赖（第三方 API、模型后端、图像处理服务等）提供统一的调用包装。
//
// 一次 Execute 依次经过：
//
//  1. 缓存读取：键为 "provider:<name>:<method>:<参数哈希>"，命中直接返回，不经过熔断器
//  2. 熔断保护：熔断器名称为 "provider:<name>:<method>"
//  3. 重试：仅对瞬时错误重试，退避策略为 fixed/linear/exponential
//  4. 超时：每次尝试独立计时，超时返回 *xretry.TimeoutError 并计数
//  5. 降级：调用方提供的 fallback 优先，其次是按方法配置的策略，最后是按方法名推断
//  6. 写回缓存：只缓存真实调用的结果，降级结果不缓存
//
// # 默认降级策略
//
// 未显式配置时按方法名前缀推断（大小写不敏感）：
//
//   - get*、fetch*：返回 nil
//   - create*、process*：返回 FallbackResult{Success: false, Fallback: true}
//   - 其他：返回原始错误
//
// 推断规则依赖命名约定，建议通过 Config.Fallback 为每个方法显式指定策略。
package xprovider
