// Package xcache 提供两级缓存服务：进程内 L1 + 外部 KV 存储 L2。
//
// # 核心组件
//
//   - Store：L2 存储最小契约（get/set/del/keys/incr/publish/subscribe），
//     默认实现 [NewRedisStore] 基于 go-redis UniversalClient
//   - Service：两级缓存服务，提供 Cache-Aside 读写、版本命名空间、
//     空值缓存（防穿透）、发布订阅、预热、统计与健康检查
//
// # 读写语义
//
// Get 先查 L1，未命中或已过期再查 L2；L2 命中后反序列化并以较短 TTL 回填 L1。
// Set 的 TTL 总会被限制在 [MinTTL, MaxTTL] 之间，同时写入 L1 和 L2。
// 缓存层的任何失败都只计数并记录日志，不会以 error 形式返回给调用方：
// 缓存不可用只影响性能，不影响正确性。
//
// # L1 淘汰
//
// L1 容量有界，满时淘汰最早插入的条目（读取不调整顺序）。
// 过期条目在读取时惰性删除，同时由后台清扫 goroutine 定期删除，
// 清扫 goroutine 在 Close 时退出。
//
// # 版本命名空间
//
// 版本号存储在 L2 的 "version:<namespace>"，版本化 key 为 "<namespace>:<version>:<key>"。
// IncrementVersion 原子递增版本号后，旧版本 key 立即不可达；
// 旧 key 由后台 best-effort 清扫提前删除，否则等待 TTL 过期。
//
// # 跨进程失效
//
// 启用 WithInvalidationBroadcast 后，Delete/DeletePattern/IncrementVersion 会在
// 事件频道上发布失效事件；其他进程调用 ListenInvalidations 订阅后删除本地 L1 条目。
// 每个 Service 带有随机 origin id，会忽略自己发出的事件。
package xcache
