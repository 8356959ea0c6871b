package xlog

import (
	"context"
	"log/slog"
	"os"
	"sync/atomic"
)

// 全局 logger 只作为未注入 Logger 时的兜底，组件都通过 WithLogger 注入。
var global atomic.Pointer[LoggerWithLevel]

// Default 返回全局 logger，未设置时惰性创建 stderr/Info/text logger。
func Default() LoggerWithLevel {
	if l := global.Load(); l != nil {
		return *l
	}
	var l LoggerWithLevel
	if built, _, err := New().Build(); err == nil {
		l = built
	} else {
		l = newLogger(slog.NewTextHandler(os.Stderr, nil), nil, nil, false)
	}
	// 并发初始化时以先写入者为准
	if global.CompareAndSwap(nil, &l) {
		return l
	}
	return *global.Load()
}

// SetDefault 替换全局 logger，nil 忽略。
func SetDefault(l LoggerWithLevel) {
	if l != nil {
		global.Store(&l)
	}
}

// ResetDefault 清除全局 logger，下次 Default 时重建。测试用。
func ResetDefault() {
	global.Store(nil)
}

// Discard 返回丢弃所有输出的 logger。
func Discard() LoggerWithLevel {
	level := new(slog.LevelVar)
	level.Set(slog.LevelError + 1)
	return newLogger(slog.DiscardHandler, level, nil, false)
}

func Info(ctx context.Context, msg string, attrs ...slog.Attr) {
	Default().Info(ctx, msg, attrs...)
}

func Warn(ctx context.Context, msg string, attrs ...slog.Attr) {
	Default().Warn(ctx, msg, attrs...)
}

func Error(ctx context.Context, msg string, attrs ...slog.Attr) {
	Default().Error(ctx, msg, attrs...)
}
