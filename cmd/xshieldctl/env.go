package main

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/redis/go-redis/v9"
	"github.com/urfave/cli/v3"

	"github.com/omeyang/xshield/pkg/config/xconf"
	"github.com/omeyang/xshield/pkg/observability/xlog"
	"github.com/omeyang/xshield/pkg/storage/xcache"
)

// env 命令共享的运行环境。
type env struct {
	settings atomic.Pointer[xconf.Settings] // 热更新时由监听 goroutine 替换
	config   xconf.Config                   // 未指定配置文件时为 nil
	logger   xlog.LoggerWithLevel
	store    *xcache.RedisStore
	cache    *xcache.Service
	closers  []func() error
}

// loadSettings 读取 --config 指定的配置，未指定时使用默认值。
func loadSettings(cmd *cli.Command) (xconf.Config, *xconf.Settings, error) {
	var (
		cfg xconf.Config
		err error
	)
	if path := cmd.String("config"); path != "" {
		cfg, err = xconf.New(path)
	} else {
		cfg, err = xconf.NewFromBytes(nil, xconf.FormatYAML)
	}
	if err != nil {
		return nil, nil, err
	}
	s, err := xconf.LoadSettings(cfg)
	if err != nil {
		return nil, nil, err
	}
	if addr := cmd.String("redis"); addr != "" {
		s.Redis.Addr = addr
	}
	if cmd.String("config") == "" {
		cfg = nil
	}
	return cfg, s, nil
}

// openEnv 按配置创建日志、Redis 连接和缓存服务。
func openEnv(cmd *cli.Command, cacheOpts ...xcache.Option) (*env, error) {
	cfg, s, err := loadSettings(cmd)
	if err != nil {
		return nil, err
	}
	e := &env{config: cfg}
	e.settings.Store(s)

	logger, closeLog, err := s.Log.Builder().SetOutput(cmd.Root().ErrWriter).Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	e.logger = logger
	e.closers = append(e.closers, closeLog)

	store, err := xcache.NewRedisStore(redis.NewClient(s.Redis.Options()))
	if err != nil {
		return nil, errors.Join(err, e.Close())
	}
	e.store = store
	e.closers = append(e.closers, store.Close)

	opts, err := s.Cache.Options()
	if err != nil {
		return nil, errors.Join(err, e.Close())
	}
	opts = append(opts, xcache.WithLogger(logger))
	svc, err := xcache.NewService(store, append(opts, cacheOpts...)...)
	if err != nil {
		return nil, errors.Join(err, e.Close())
	}
	e.cache = svc
	e.closers = append(e.closers, svc.Close)
	return e, nil
}

// Close 逆序释放资源。
func (e *env) Close() error {
	var errs []error
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	e.closers = nil
	return errors.Join(errs...)
}

// commandContext 为一次性命令加上 --timeout 限制。
func commandContext(ctx context.Context, cmd *cli.Command) (context.Context, context.CancelFunc) {
	if d := cmd.Duration("timeout"); d > 0 {
		return context.WithTimeout(ctx, d)
	}
	return context.WithCancel(ctx)
}
