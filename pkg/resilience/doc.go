// Package resilience 提供外部调用的容错子包。
//
// 子包列表：
//   - xbreaker: 熔断器状态机与按名称管理的熔断器注册表
//   - xretry: 重试策略与退避策略，以及单次调用超时
//   - xprovider: provider 注册与受保护调用，组合熔断、重试、超时、降级和结果缓存
package resilience
