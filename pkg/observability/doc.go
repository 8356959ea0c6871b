// Package observability 提供可观测性相关的子包。
//
// 子包列表：
//   - xlog: 结构化日志，基于 log/slog 扩展，支持 lumberjack 文件轮转
//   - xmetrics: 统一的指标与追踪接口，默认实现基于 OpenTelemetry
//
// provider 管理器、熔断器和缓存服务都通过这两个包输出日志和调用观测数据，
// 未配置时分别退化为默认 logger 和 NoopObserver。
package observability
