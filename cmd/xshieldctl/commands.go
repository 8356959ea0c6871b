package main

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/omeyang/xshield/pkg/config/xconf"
	"github.com/omeyang/xshield/pkg/lifecycle/xrun"
	"github.com/omeyang/xshield/pkg/observability/xlog"
	"github.com/omeyang/xshield/pkg/resilience/xbreaker"
	"github.com/omeyang/xshield/pkg/resilience/xprovider"
)

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "运行失效订阅、配置热加载、熔断器清理和健康巡检，直到收到退出信号",
		Flags: []cli.Flag{
			&cli.DurationFlag{Name: "health-interval", Usage: "健康巡检间隔", Value: 30 * time.Second},
			&cli.DurationFlag{Name: "breaker-idle", Usage: "清理超过该时长无活动的熔断器", Value: time.Hour},
		},
		Action: cmdServe,
	}
}

func healthCommand() *cli.Command {
	return &cli.Command{
		Name:  "health",
		Usage: "检查 L2 存储并输出缓存统计，不健康时退出码为 1",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			e, err := openEnv(cmd)
			if err != nil {
				return err
			}
			defer e.Close()
			ctx, cancel := commandContext(ctx, cmd)
			defer cancel()

			report := struct {
				Healthy bool   `json:"healthy"`
				Error   string `json:"error,omitempty"`
				Stats   any    `json:"stats"`
			}{Healthy: true}
			if err := e.cache.HealthCheck(ctx); err != nil {
				report.Healthy = false
				report.Error = err.Error()
			}
			report.Stats = e.cache.GetStats()
			if err := printJSON(cmd.Root().Writer, report); err != nil {
				return err
			}
			if !report.Healthy {
				return &exitError{code: 1}
			}
			return nil
		},
	}
}

func configCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "配置相关命令",
		Commands: []*cli.Command{{
			Name:  "check",
			Usage: "校验配置并输出生效值",
			Action: func(_ context.Context, cmd *cli.Command) error {
				_, s, err := loadSettings(cmd)
				if err != nil {
					return err
				}
				return printJSON(cmd.Root().Writer, s)
			},
		}},
	}
}

func diagnoseCommand() *cli.Command {
	return &cli.Command{
		Name:      "diagnose",
		Usage:     "通过熔断器、重试和超时调用内置存储 provider，输出结果和统计",
		ArgsUsage: "<ping|getValue> [args...]",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.NArg() < 1 {
				return usagef("diagnose 需要方法名")
			}
			e, err := openEnv(cmd)
			if err != nil {
				return err
			}
			defer e.Close()
			ctx, cancel := commandContext(ctx, cmd)
			defer cancel()

			mgr, err := newManager(e)
			if err != nil {
				return err
			}
			args := make([]any, 0, cmd.NArg()-1)
			for _, a := range cmd.Args().Slice()[1:] {
				args = append(args, a)
			}
			result, callErr := mgr.Diagnose(ctx, storeProviderName, cmd.Args().First(), args)
			if xprovider.IsMethodNotFound(callErr) {
				return usagef("%v", callErr)
			}
			stats, _ := mgr.Stats(storeProviderName)
			report := struct {
				Result any             `json:"result"`
				Error  string          `json:"error,omitempty"`
				Stats  xprovider.Stats `json:"stats"`
			}{Result: result, Stats: stats}
			if callErr != nil {
				report.Error = callErr.Error()
			}
			if err := printJSON(cmd.Root().Writer, report); err != nil {
				return err
			}
			if callErr != nil {
				return &exitError{code: 1}
			}
			return nil
		},
	}
}

// newManager 创建熔断器注册表和 Manager，并注册内置存储 provider。
func newManager(e *env) (*xprovider.Manager, error) {
	breakers := xbreaker.NewRegistry(
		xbreaker.WithDefaults(e.settings.Load().BreakerDefaults),
		xbreaker.WithLogger(e.logger),
	)
	mgr, err := xprovider.NewManager(breakers,
		xprovider.WithCache(e.cache),
		xprovider.WithLogger(e.logger),
	)
	if err != nil {
		return nil, err
	}
	if err := mgr.Register(storeProviderName, storeProvider(e.store), providerConfig(e, storeProviderName)); err != nil {
		return nil, err
	}
	return mgr, nil
}

func cmdServe(ctx context.Context, cmd *cli.Command) error {
	e, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	mgr, err := newManager(e)
	if err != nil {
		return err
	}
	unsubscribe, err := e.cache.ListenInvalidations(ctx)
	if err != nil {
		return err
	}

	services := []xrun.Service{
		xrun.OnShutdown("invalidations", 0, func(context.Context) error {
			return unsubscribe()
		}),
		xrun.Ticker("breaker-cleanup", cleanupInterval(cmd.Duration("breaker-idle")), false, func(ctx context.Context) error {
			if removed := mgr.Breakers().CleanupInactive(cmd.Duration("breaker-idle")); len(removed) > 0 {
				e.logger.Info(ctx, "inactive breakers removed", xlog.Count(int64(len(removed))))
			}
			return nil
		}),
		xrun.Ticker("health", cmd.Duration("health-interval"), true, func(ctx context.Context) error {
			logHealth(ctx, e, mgr)
			return nil
		}),
	}
	if e.config != nil {
		w, err := xconf.Watch(e.config, reloadSettings(ctx, e, mgr), xconf.WithWatchLogger(e.logger))
		if err != nil {
			return err
		}
		services = append(services, xrun.NewService("config-watch", w.Run))
	}

	e.logger.Info(ctx, "xshield serving", slog.String("redis", e.settings.Load().Redis.Addr))
	err = xrun.Run(ctx, []xrun.Option{xrun.WithLogger(e.logger), xrun.WithName("xshieldctl")}, services...)
	if errors.Is(err, xrun.ErrSignal) {
		return nil
	}
	return err
}

// cleanupInterval 清理周期取空闲阈值的十分之一，至少一分钟。
func cleanupInterval(idle time.Duration) time.Duration {
	return max(idle/10, time.Minute)
}

func logHealth(ctx context.Context, e *env, mgr *xprovider.Manager) {
	if _, err := mgr.Execute(ctx, storeProviderName, "ping", nil, xprovider.SkipCache()); err != nil {
		e.logger.Warn(ctx, "store ping failed", xlog.Err(err))
	}
	h := mgr.HealthCheck(ctx)
	st := e.cache.GetStats()
	attrs := []slog.Attr{
		slog.String("status", string(h.Status)),
		slog.Int("open_breakers", h.OpenBreakers),
		slog.Float64("cache_hit_rate", st.HitRate),
		slog.Int64("cache_errors", st.Errors),
	}
	if h.Status == xprovider.StatusHealthy {
		e.logger.Debug(ctx, "health check", attrs...)
		return
	}
	e.logger.Warn(ctx, "health check", append(attrs, slog.String("cache_error", h.CacheError))...)
}

// reloadSettings 配置变更后更新日志级别并按新配置重新注册 provider。
// 新配置校验失败时保留旧配置。
func reloadSettings(ctx context.Context, e *env, mgr *xprovider.Manager) xconf.ReloadFunc {
	return func(cfg xconf.Config, err error) {
		if err != nil {
			return
		}
		s, err := xconf.LoadSettings(cfg)
		if err != nil {
			e.logger.Warn(ctx, "ignore invalid settings", xlog.Err(err))
			return
		}
		if level, err := xlog.ParseLevel(s.Log.Level); err == nil {
			e.logger.SetLevel(level)
		}
		e.settings.Store(s)
		if err := mgr.Register(storeProviderName, storeProvider(e.store), providerConfig(e, storeProviderName)); err != nil {
			e.logger.Warn(ctx, "re-register provider failed", xlog.Provider(storeProviderName), xlog.Err(err))
		}
	}
}
