package xrun

import (
	"context"
	"time"
)

// Ticker 每隔 interval 调用一次 fn，fn 返回错误时服务退出。
// immediate 为 true 时启动后先执行一次。
func Ticker(name string, interval time.Duration, immediate bool, fn func(ctx context.Context) error) Service {
	if fn == nil {
		return nil
	}
	return NewService(name, func(ctx context.Context) error {
		if interval <= 0 {
			return ErrInvalidInterval
		}
		if immediate && ctx.Err() == nil {
			if err := fn(ctx); err != nil {
				return err
			}
		}
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-t.C:
				if err := fn(ctx); err != nil {
					return err
				}
			}
		}
	})
}

// OnShutdown 等待 Group 取消后执行 fn，用于释放资源。
// fn 收到的 context 不继承取消，但受 timeout 限制（timeout <= 0 表示不限时）。
func OnShutdown(name string, timeout time.Duration, fn func(ctx context.Context) error) Service {
	if fn == nil {
		return nil
	}
	return NewService(name, func(ctx context.Context) error {
		<-ctx.Done()
		sctx := context.WithoutCancel(ctx)
		if timeout > 0 {
			var cancel context.CancelFunc
			sctx, cancel = context.WithTimeout(sctx, timeout)
			defer cancel()
		}
		return fn(sctx)
	})
}
