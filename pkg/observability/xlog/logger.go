package xlog

import (
	"context"
	"log/slog"
	"runtime"
	"runtime/debug"
	"sync/atomic"
	"time"
)

// sink 是同一个 Builder 产出的 logger 及其派生 logger 共享的状态。
type sink struct {
	level     *slog.LevelVar
	onError   func(error)
	failures  atomic.Uint64
	addSource bool
}

// xlogger 实现 LoggerWithLevel。With/WithGroup 只替换 handler，sink 共用。
type xlogger struct {
	handler slog.Handler
	sink    *sink
}

var _ LoggerWithLevel = (*xlogger)(nil)

func newLogger(h slog.Handler, level *slog.LevelVar, onError func(error), addSource bool) *xlogger {
	if level == nil {
		level = new(slog.LevelVar)
	}
	return &xlogger{
		handler: h,
		sink:    &sink{level: level, onError: onError, addSource: addSource},
	}
}

// callerSkip 依次跳过 runtime.Callers、emit 和 Debug/Info/...，落在调用方。
const callerSkip = 3

//go:noinline
func (l *xlogger) emit(ctx context.Context, level slog.Level, msg string, attrs []slog.Attr) {
	if ctx == nil {
		ctx = context.Background()
	}
	if !l.handler.Enabled(ctx, level) {
		return
	}

	var pc uintptr
	if l.sink.addSource {
		var pcs [1]uintptr
		runtime.Callers(callerSkip, pcs[:])
		pc = pcs[0]
	}
	r := slog.NewRecord(time.Now(), level, msg, pc)
	r.AddAttrs(attrs...)
	if err := l.handler.Handle(ctx, r); err != nil {
		l.sink.failures.Add(1)
		if l.sink.onError != nil {
			l.sink.onError(err)
		}
	}
}

func (l *xlogger) Debug(ctx context.Context, msg string, attrs ...slog.Attr) {
	l.emit(ctx, slog.LevelDebug, msg, attrs)
}

func (l *xlogger) Info(ctx context.Context, msg string, attrs ...slog.Attr) {
	l.emit(ctx, slog.LevelInfo, msg, attrs)
}

func (l *xlogger) Warn(ctx context.Context, msg string, attrs ...slog.Attr) {
	l.emit(ctx, slog.LevelWarn, msg, attrs)
}

func (l *xlogger) Error(ctx context.Context, msg string, attrs ...slog.Attr) {
	l.emit(ctx, slog.LevelError, msg, attrs)
}

// Stack 以 Error 级别记录，附带当前 goroutine 的堆栈。
func (l *xlogger) Stack(ctx context.Context, msg string, attrs ...slog.Attr) {
	l.emit(ctx, slog.LevelError, msg, append(attrs[:len(attrs):len(attrs)], slog.String(KeyStack, string(debug.Stack()))))
}

func (l *xlogger) With(attrs ...slog.Attr) Logger {
	if len(attrs) == 0 {
		return l
	}
	return &xlogger{handler: l.handler.WithAttrs(attrs), sink: l.sink}
}

func (l *xlogger) WithGroup(name string) Logger {
	if name == "" {
		return l
	}
	return &xlogger{handler: l.handler.WithGroup(name), sink: l.sink}
}

func (l *xlogger) SetLevel(level Level) { l.sink.level.Set(slog.Level(level)) }

func (l *xlogger) GetLevel() Level { return Level(l.sink.level.Level()) }

func (l *xlogger) Enabled(ctx context.Context, level Level) bool {
	if ctx == nil {
		ctx = context.Background()
	}
	return l.handler.Enabled(ctx, slog.Level(level))
}

// ErrorCount 返回 handler 写入失败的次数，派生 logger 共享计数。
// 非本包创建的 Logger 返回 0。
func ErrorCount(l Logger) uint64 {
	if xl, ok := l.(*xlogger); ok {
		return xl.sink.failures.Load()
	}
	return 0
}
