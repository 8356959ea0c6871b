package xconf

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omeyang/xshield/pkg/observability/xlog"
)

func startWatcher(t *testing.T, w *Watcher) (stop func()) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	return func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Fatal("watcher did not stop")
		}
	}
}

func TestWatch_ReloadsOnWrite(t *testing.T) {
	path := writeFile(t, "xshield.yaml", "redis:\n  addr: a:1\n")
	cfg, err := New(path)
	require.NoError(t, err)

	var reloads atomic.Int32
	w, err := Watch(cfg, func(c Config, err error) {
		if err == nil && c.Client().String("redis.addr") == "b:2" {
			reloads.Add(1)
		}
	}, WithDebounce(20*time.Millisecond), WithWatchLogger(xlog.Discard()))
	require.NoError(t, err)
	stop := startWatcher(t, w)
	defer stop()

	// 监视在 Run 内异步建立，持续写入直到观察到重载
	assert.Eventually(t, func() bool {
		_ = os.WriteFile(path, []byte("redis:\n  addr: b:2\n"), 0o600)
		return reloads.Load() > 0
	}, 5*time.Second, 50*time.Millisecond)
	assert.Equal(t, "b:2", cfg.Client().String("redis.addr"))
}

func TestWatch_AtomicRename(t *testing.T) {
	path := writeFile(t, "xshield.yaml", "redis:\n  addr: a:1\n")
	cfg, err := New(path)
	require.NoError(t, err)

	w, err := Watch(cfg, nil, WithDebounce(10*time.Millisecond), WithWatchLogger(xlog.Discard()))
	require.NoError(t, err)
	stop := startWatcher(t, w)
	defer stop()

	var n int
	assert.Eventually(t, func() bool {
		n++
		tmp := fmt.Sprintf("%s.tmp%d", path, n)
		_ = os.WriteFile(tmp, []byte("redis:\n  addr: c:3\n"), 0o600)
		_ = os.Rename(tmp, path)
		return cfg.Client().String("redis.addr") == "c:3"
	}, 5*time.Second, 50*time.Millisecond)
}

func TestWatch_Debounce(t *testing.T) {
	path := writeFile(t, "xshield.yaml", "v: 0\n")
	cfg, err := New(path)
	require.NoError(t, err)

	var mu sync.Mutex
	var seen []int
	w, err := Watch(cfg, func(c Config, err error) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, c.Client().Int("v"))
	}, WithDebounce(200*time.Millisecond), WithWatchLogger(xlog.Discard()))
	require.NoError(t, err)
	stop := startWatcher(t, w)
	defer stop()

	// 等待监视建立
	assert.Eventually(t, func() bool {
		_ = os.WriteFile(path, []byte("v: 1\n"), 0o600)
		mu.Lock()
		defer mu.Unlock()
		return len(seen) > 0
	}, 5*time.Second, 300*time.Millisecond)

	mu.Lock()
	seen = nil
	mu.Unlock()
	for i := 2; i <= 6; i++ {
		require.NoError(t, os.WriteFile(path, fmt.Appendf(nil, "v: %d\n", i), 0o600))
		time.Sleep(10 * time.Millisecond)
	}
	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) > 0 && seen[len(seen)-1] == 6
	}, 5*time.Second, 20*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, seen, 1, "burst of writes reloads once")
}

func TestWatch_CallbackPanicRecovered(t *testing.T) {
	path := writeFile(t, "xshield.yaml", "v: 0\n")
	cfg, err := New(path)
	require.NoError(t, err)

	var calls atomic.Int32
	w, err := Watch(cfg, func(Config, error) {
		calls.Add(1)
		panic("boom")
	}, WithDebounce(10*time.Millisecond), WithWatchLogger(xlog.Discard()))
	require.NoError(t, err)
	stop := startWatcher(t, w)
	defer stop()

	assert.Eventually(t, func() bool {
		_ = os.WriteFile(path, []byte("v: 1\n"), 0o600)
		return calls.Load() >= 2
	}, 5*time.Second, 50*time.Millisecond)
}

func TestWatch_Errors(t *testing.T) {
	fromBytes, err := NewFromBytes(nil, FormatYAML)
	require.NoError(t, err)
	_, err = Watch(fromBytes, nil)
	assert.ErrorIs(t, err, ErrNotReloadable)

	_, err = Watch(otherConfig{}, nil)
	assert.Error(t, err)
}

func TestWatcher_RunTwiceAndStop(t *testing.T) {
	cfg, err := New(writeFile(t, "xshield.yaml", "v: 0\n"))
	require.NoError(t, err)
	w, err := Watch(cfg, nil, WithWatchLogger(xlog.Discard()))
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- w.Run(context.Background()) }()

	require.Eventually(t, w.running.Load, time.Second, 5*time.Millisecond)
	assert.ErrorIs(t, w.Run(context.Background()), ErrWatcherRunning)

	w.Stop()
	w.Stop()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestWatcher_MissingDirectory(t *testing.T) {
	path := writeFile(t, "xshield.yaml", "v: 0\n")
	cfg, err := New(path)
	require.NoError(t, err)
	require.NoError(t, os.RemoveAll(filepath.Dir(path)))

	w, err := Watch(cfg, nil, WithWatchLogger(xlog.Discard()))
	require.NoError(t, err)
	assert.Error(t, w.Run(context.Background()))
}

type otherConfig struct{ Config }
