// Package storageopt 提供 xcache 与 cmd 共享的存储层辅助工具。
//
// 本包是 internal 包，外部用户不应直接导入。
//
// 主要功能：
//   - 健康检查超时 context
//   - L2 操作统计计数器（HealthCounter、OpCounter）
//   - 慢操作检测器（SlowOpDetector），用于标记 Redis 等远端存储的长尾调用
package storageopt
