package xrun

import (
	"os"
	"syscall"

	"github.com/omeyang/xshield/pkg/observability/xlog"
)

// Option Group 选项。
type Option func(*options)

type options struct {
	logger  xlog.Logger
	name    string
	signals []os.Signal
}

func buildOptions(opts []Option) options {
	o := options{name: "xrun"}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if o.logger == nil {
		o.logger = xlog.Default()
	}
	o.logger = o.logger.With(xlog.Component(o.name))
	return o
}

// WithLogger 设置生命周期日志，默认 xlog.Default()。
func WithLogger(l xlog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithName 设置 Group 名称，用作日志的 component。
func WithName(name string) Option {
	return func(o *options) {
		if name != "" {
			o.name = name
		}
	}
}

// WithSignals 设置 Run 监听的信号，默认 DefaultSignals()。
func WithSignals(signals ...os.Signal) Option {
	copied := append([]os.Signal(nil), signals...)
	return func(o *options) {
		o.signals = copied
	}
}

// DefaultSignals 返回 SIGINT、SIGTERM、SIGQUIT。
func DefaultSignals() []os.Signal {
	return []os.Signal{syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT}
}
