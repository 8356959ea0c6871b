package xbreaker

import (
	"time"

	"github.com/omeyang/xshield/pkg/observability/xlog"
	"github.com/omeyang/xshield/pkg/observability/xmetrics"
)

// DefaultBatchSize ExecuteBatch 默认的分块大小
const DefaultBatchSize = 5

// Option 注册表配置选项
type Option func(*Registry)

// WithDefaults 设置新建熔断器的默认配置，零值字段使用包级默认值
func WithDefaults(cfg Config) Option {
	return func(r *Registry) {
		r.defaults = cfg.Merge(DefaultConfig())
	}
}

// WithClock 设置时钟，主要用于测试
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		if now != nil {
			r.now = now
		}
	}
}

// WithLogger 设置日志记录器，默认使用 xlog.Default()
func WithLogger(l xlog.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithObserver 设置观测器，状态迁移会记录为 xmetrics 事件
func WithObserver(o xmetrics.Observer) Option {
	return func(r *Registry) {
		if o != nil {
			r.observer = o
		}
	}
}

// WithOnStateChange 设置状态变化回调
//
// 回调在释放熔断器锁之后同步执行，可以安全地调用注册表方法。
func WithOnStateChange(f func(name string, from, to State)) Option {
	return func(r *Registry) {
		r.onStateChange = f
	}
}

// execOptions 单次执行的选项
type execOptions struct {
	config    Config
	batchSize int
}

// ExecOption 单次执行选项
type ExecOption func(*execOptions)

// WithConfig 首次创建该名称的熔断器时使用的配置，已存在时忽略
func WithConfig(cfg Config) ExecOption {
	return func(o *execOptions) {
		o.config = cfg
	}
}

// WithBatchSize 设置 ExecuteBatch 每块并发执行的操作数
func WithBatchSize(n int) ExecOption {
	return func(o *execOptions) {
		if n > 0 {
			o.batchSize = n
		}
	}
}

func buildExecOptions(opts []ExecOption) execOptions {
	o := execOptions{batchSize: DefaultBatchSize}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}
