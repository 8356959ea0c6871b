// Package xrun 管理 xshield 进程内长期运行的服务：缓存失效订阅、配置监视、
// 周期性熔断器清理等。
//
// 所有服务共享一个 context，任一服务返回错误、收到退出信号或父 context 取消时，
// 其余服务都会被取消，Run 等待全部退出后返回第一个有意义的错误。
// 收到信号时返回 *SignalError，可以用 errors.Is(err, ErrSignal) 判断。
//
//	err := xrun.Run(ctx, []xrun.Option{xrun.WithLogger(logger)},
//	    xrun.NewService("invalidations", listen),
//	    xrun.Ticker("breaker-cleanup", time.Minute, false, cleanup),
//	    xrun.OnShutdown("cache-close", 5*time.Second, closeCache),
//	)
package xrun
