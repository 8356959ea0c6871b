package xconf

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/omeyang/xshield/pkg/observability/xlog"
)

// DefaultDebounce 监视器默认防抖时间。
const DefaultDebounce = 100 * time.Millisecond

// ReloadFunc 配置重载后的回调，err 非 nil 时 cfg 仍是重载前的内容。
type ReloadFunc func(cfg Config, err error)

// WatchOption 监视器选项。
type WatchOption func(*Watcher)

// WithDebounce 设置防抖时间，窗口内的多次变更只触发一次重载。
func WithDebounce(d time.Duration) WatchOption {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithWatchLogger 设置监视器日志。
func WithWatchLogger(l xlog.Logger) WatchOption {
	return func(w *Watcher) {
		if l != nil {
			w.logger = l
		}
	}
}

// Watcher 监视配置文件并自动 Reload。
type Watcher struct {
	cfg      *koanfConfig
	onReload ReloadFunc
	debounce time.Duration
	logger   xlog.Logger

	running  atomic.Bool
	stop     chan struct{}
	stopOnce sync.Once
}

// Watch 创建监视器，只支持 New 创建的配置。需要调用 Run 开始监视。
func Watch(cfg Config, onReload ReloadFunc, opts ...WatchOption) (*Watcher, error) {
	kc, ok := cfg.(*koanfConfig)
	if !ok {
		return nil, fmt.Errorf("xconf: cannot watch config of type %T", cfg)
	}
	if kc.path == "" {
		return nil, ErrNotReloadable
	}
	w := &Watcher{
		cfg:      kc,
		onReload: onReload,
		debounce: DefaultDebounce,
		stop:     make(chan struct{}),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(w)
		}
	}
	if w.logger == nil {
		w.logger = xlog.Default()
	}
	w.logger = w.logger.With(xlog.Component("xconf"))
	return w, nil
}

// Run 阻塞监视，直到 ctx 取消或 Stop 被调用，正常退出返回 nil。
// 监视的是文件所在目录，编辑器先写临时文件再 rename 的保存方式同样能触发重载。
// Run 返回后不会再调用回调。
func (w *Watcher) Run(ctx context.Context) error {
	if !w.running.CompareAndSwap(false, true) {
		return ErrWatcherRunning
	}

	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("xconf: create watcher: %w", err)
	}
	defer fs.Close()

	dir := filepath.Dir(w.cfg.path)
	if err := fs.Add(dir); err != nil {
		return fmt.Errorf("xconf: watch %s: %w", dir, err)
	}
	name := filepath.Base(w.cfg.path)
	w.logger.Debug(ctx, "config watch started", slog.String("path", w.cfg.path))

	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-w.stop:
			return nil
		case ev, ok := <-fs.Events:
			if !ok {
				return nil
			}
			if !relevant(ev, name) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			w.reload(ctx)
		case err, ok := <-fs.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn(ctx, "config watch error", xlog.Err(err))
			w.notify(ctx, fmt.Errorf("xconf: watch error: %w", err))
		}
	}
}

// Stop 停止监视，可重复调用。
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() { close(w.stop) })
}

func (w *Watcher) reload(ctx context.Context) {
	err := w.cfg.Reload()
	if err != nil {
		w.logger.Warn(ctx, "config reload failed", xlog.Err(err))
	} else {
		w.logger.Info(ctx, "config reloaded", slog.String("path", w.cfg.path))
	}
	w.notify(ctx, err)
}

func (w *Watcher) notify(ctx context.Context, err error) {
	if w.onReload == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error(ctx, "config reload callback panicked", xlog.Err(fmt.Errorf("%v", r)))
		}
	}()
	w.onReload(w.cfg, err)
}

// relevant 只关心目标文件的写入、创建和 rename。
func relevant(ev fsnotify.Event, name string) bool {
	if filepath.Base(ev.Name) != name {
		return false
	}
	return ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename)
}
