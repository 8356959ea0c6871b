package xlog_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/omeyang/xshield/pkg/observability/xlog"
)

// testCleanup 测试辅助函数，在测试结束时执行 cleanup
func testCleanup(t *testing.T, cleanup func() error) {
	t.Helper()
	t.Cleanup(func() {
		if err := cleanup(); err != nil {
			t.Errorf("cleanup error: %v", err)
		}
	})
}

func newBufLogger(t *testing.T, format string) (xlog.LoggerWithLevel, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	logger, cleanup, err := xlog.New().
		SetOutput(&buf).
		SetLevel(xlog.LevelDebug).
		SetFormat(format).
		Build()
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	testCleanup(t, cleanup)
	return logger, &buf
}

// =============================================================================
// Logger 接口测试
// =============================================================================

func TestLogger_BasicLogging(t *testing.T) {
	logger, buf := newBufLogger(t, "text")
	ctx := context.Background()

	logger.Debug(ctx, "debug message")
	logger.Info(ctx, "info message")
	logger.Warn(ctx, "warn message")
	logger.Error(ctx, "error message")

	output := buf.String()
	for _, want := range []string{"debug message", "info message", "warn message", "error message"} {
		if !strings.Contains(output, want) {
			t.Errorf("output missing %q\noutput: %s", want, output)
		}
	}
}

func TestLogger_LevelFilter(t *testing.T) {
	logger, buf := newBufLogger(t, "text")
	logger.SetLevel(xlog.LevelWarn)

	logger.Info(context.Background(), "hidden")
	logger.Warn(context.Background(), "shown")

	if strings.Contains(buf.String(), "hidden") {
		t.Errorf("info should be filtered at warn level: %s", buf.String())
	}
	if !strings.Contains(buf.String(), "shown") {
		t.Errorf("warn should pass: %s", buf.String())
	}
	if got := logger.GetLevel(); got != xlog.LevelWarn {
		t.Errorf("GetLevel() = %v, want WARN", got)
	}
	if logger.Enabled(context.Background(), xlog.LevelInfo) {
		t.Error("Enabled(Info) should be false")
	}
}

func TestLogger_NilContext(t *testing.T) {
	logger, buf := newBufLogger(t, "text")
	//nolint:staticcheck // 验证 nil ctx 不 panic
	logger.Info(nil, "nil ctx")
	if !strings.Contains(buf.String(), "nil ctx") {
		t.Errorf("output missing message: %s", buf.String())
	}
}

func TestLogger_WithAndGroup(t *testing.T) {
	logger, buf := newBufLogger(t, "json")

	child := logger.With(xlog.Component("xcache")).WithGroup("op")
	child.Info(context.Background(), "grouped", xlog.CacheKey("k1"))

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("unmarshal: %v\n%s", err, buf.String())
	}
	if rec[xlog.KeyComponent] != "xcache" {
		t.Errorf("component = %v", rec[xlog.KeyComponent])
	}
	group, ok := rec["op"].(map[string]any)
	if !ok {
		t.Fatalf("missing group: %v", rec)
	}
	if group[xlog.KeyCacheKey] != "k1" {
		t.Errorf("cache_key = %v", group[xlog.KeyCacheKey])
	}
}

func TestLogger_Stack(t *testing.T) {
	logger, buf := newBufLogger(t, "text")
	logger.Stack(context.Background(), "with stack")
	if !strings.Contains(buf.String(), "goroutine") {
		t.Errorf("stack output missing goroutine trace: %s", buf.String())
	}
}

func TestContextWith(t *testing.T) {
	logger, buf := newBufLogger(t, "json")

	ctx := xlog.ContextWith(context.Background(), xlog.Provider("payment"))
	ctx = xlog.ContextWith(ctx, xlog.Method("getUser"))
	logger.Info(ctx, "ctx attrs")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if rec[xlog.KeyProvider] != "payment" || rec[xlog.KeyMethod] != "getUser" {
		t.Errorf("ctx attrs not injected: %v", rec)
	}
	if got := len(xlog.FromContext(ctx)); got != 2 {
		t.Errorf("FromContext len = %d, want 2", got)
	}
	if got := xlog.ContextWith(ctx); got != ctx {
		t.Error("ContextWith without attrs should return same ctx")
	}
}

type failWriter struct{}

func (failWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestLogger_OnError(t *testing.T) {
	var got error
	logger, cleanup, err := xlog.New().
		SetOutput(failWriter{}).
		SetOnError(func(err error) { got = err }).
		Build()
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	testCleanup(t, cleanup)

	logger.Info(context.Background(), "lost")
	if got == nil {
		t.Fatal("onError not called")
	}
	if n := xlog.ErrorCount(logger); n != 1 {
		t.Errorf("ErrorCount = %d, want 1", n)
	}
	if n := xlog.ErrorCount(logger.With(xlog.Count(1))); n != 1 {
		t.Errorf("derived ErrorCount = %d, want 1", n)
	}
}

// =============================================================================
// Builder 测试
// =============================================================================

func TestBuilder_Errors(t *testing.T) {
	tests := []struct {
		name string
		b    *xlog.Builder
	}{
		{"bad level", xlog.New().SetLevelString("verbose")},
		{"bad format", xlog.New().SetFormat("xml")},
		{"empty rotation", xlog.New().SetRotation("  ")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := tt.b.Build(); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestBuilder_Rotation(t *testing.T) {
	file := filepath.Join(t.TempDir(), "xshield.log")
	logger, cleanup, err := xlog.New().
		SetRotation(file, xlog.WithMaxSizeMB(1), xlog.WithMaxBackups(1), xlog.WithCompress(false)).
		SetAttrs(slog.String("service", "xshield")).
		Build()
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	logger.Info(context.Background(), "to file", xlog.Duration(time.Second))
	if err := cleanup(); err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if err := cleanup(); err != nil {
		t.Fatalf("second cleanup: %v", err)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    xlog.Level
		wantErr bool
	}{
		{"debug", xlog.LevelDebug, false},
		{" INFO ", xlog.LevelInfo, false},
		{"", xlog.LevelInfo, false},
		{"warning", xlog.LevelWarn, false},
		{"error", xlog.LevelError, false},
		{"trace", xlog.LevelInfo, true},
	}
	for _, tt := range tests {
		got, err := xlog.ParseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLevel(%q) err = %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}

	var lvl xlog.Level
	if err := lvl.UnmarshalText([]byte("warn")); err != nil || lvl != xlog.LevelWarn {
		t.Errorf("UnmarshalText = %v, %v", lvl, err)
	}
	if xlog.LevelError.String() != "ERROR" {
		t.Errorf("String() = %s", xlog.LevelError.String())
	}
}

func TestAttrs_ErrNil(t *testing.T) {
	if a := xlog.Err(nil); !a.Equal(slog.Attr{}) {
		t.Errorf("Err(nil) = %v, want empty", a)
	}
	if a := xlog.Err(errors.New("boom")); a.Value.String() != "boom" {
		t.Errorf("Err = %v", a)
	}
}

func TestGlobal(t *testing.T) {
	t.Cleanup(xlog.ResetDefault)

	logger, buf := newBufLogger(t, "text")
	xlog.SetDefault(logger)
	xlog.SetDefault(nil)

	xlog.Info(context.Background(), "global info")
	xlog.Warn(context.Background(), "global warn")
	xlog.Error(context.Background(), "global error")
	for _, want := range []string{"global info", "global warn", "global error"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("missing %q", want)
		}
	}

	xlog.ResetDefault()
	if xlog.Default() == nil {
		t.Error("Default() should lazily build")
	}
	xlog.Discard().Error(context.Background(), "dropped")
}

func TestLogger_AddSourcePointsAtCaller(t *testing.T) {
	var buf bytes.Buffer
	logger, cleanup, err := xlog.New().SetOutput(&buf).SetFormat("json").SetAddSource(true).Build()
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	testCleanup(t, cleanup)

	logger.Info(context.Background(), "with source")

	var rec struct {
		Source struct {
			File string `json:"file"`
		} `json:"source"`
	}
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if filepath.Base(rec.Source.File) != "xlog_test.go" {
		t.Errorf("source file = %q, want xlog_test.go", rec.Source.File)
	}
}

func TestLevel_MarshalText(t *testing.T) {
	for _, l := range []xlog.Level{xlog.LevelDebug, xlog.LevelInfo, xlog.LevelWarn, xlog.LevelError} {
		text, err := l.MarshalText()
		if err != nil {
			t.Fatalf("MarshalText: %v", err)
		}
		var back xlog.Level
		if err := back.UnmarshalText(text); err != nil || back != l {
			t.Errorf("round trip %v -> %s -> %v (%v)", l, text, back, err)
		}
	}
}
