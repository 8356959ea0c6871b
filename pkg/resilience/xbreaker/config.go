package xbreaker

import "time"

// 默认配置
const (
	DefaultFailureThreshold = 5
	DefaultResetTimeout     = 60 * time.Second
	DefaultMonitoringPeriod = 10 * time.Second
	DefaultHalfOpenMaxCalls = 3
	DefaultSuccessThreshold = 2
)

// Config 熔断器配置
//
// 零值字段在熔断器首次创建时使用注册表默认值。
type Config struct {
	// FailureThreshold Closed 状态下累计失败达到此值时打开
	FailureThreshold int `koanf:"failure_threshold"`
	// ResetTimeout 打开后多久允许半开探测
	ResetTimeout time.Duration `koanf:"reset_timeout"`
	// MonitoringPeriod Closed 状态下距上次失败超过此时长，下一次成功清零失败计数
	MonitoringPeriod time.Duration `koanf:"monitoring_period"`
	// HalfOpenMaxCalls 半开状态下同时在途的探测请求上限
	HalfOpenMaxCalls int `koanf:"half_open_max_calls"`
	// SuccessThreshold 半开状态下连续成功达到此值时关闭
	SuccessThreshold int `koanf:"success_threshold"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		FailureThreshold: DefaultFailureThreshold,
		ResetTimeout:     DefaultResetTimeout,
		MonitoringPeriod: DefaultMonitoringPeriod,
		HalfOpenMaxCalls: DefaultHalfOpenMaxCalls,
		SuccessThreshold: DefaultSuccessThreshold,
	}
}

// Merge 以 c 中的非零字段覆盖 base，返回合并结果
func (c Config) Merge(base Config) Config {
	out := base
	if c.FailureThreshold > 0 {
		out.FailureThreshold = c.FailureThreshold
	}
	if c.ResetTimeout > 0 {
		out.ResetTimeout = c.ResetTimeout
	}
	if c.MonitoringPeriod > 0 {
		out.MonitoringPeriod = c.MonitoringPeriod
	}
	if c.HalfOpenMaxCalls > 0 {
		out.HalfOpenMaxCalls = c.HalfOpenMaxCalls
	}
	if c.SuccessThreshold > 0 {
		out.SuccessThreshold = c.SuccessThreshold
	}
	return out
}

// IsZero 报告是否未设置任何字段
func (c Config) IsZero() bool {
	return c == Config{}
}
