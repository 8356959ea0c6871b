package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/omeyang/xshield/pkg/resilience/xprovider"
	"github.com/omeyang/xshield/pkg/storage/xcache"
)

// storeProviderName 内置的 L2 存储 provider。
const storeProviderName = "store"

// pingKey ping 读取的探测 key，不存在视为成功。
const pingKey = "xshield:ping"

// storeProvider 把 L2 存储的读操作暴露为受熔断器保护的 provider 方法。
func storeProvider(store xcache.Store) xprovider.Methods {
	get := func(ctx context.Context, key string) (any, error) {
		b, err := store.Get(ctx, key)
		if errors.Is(err, xcache.ErrNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return string(b), nil
	}
	return xprovider.Methods{
		"ping": func(ctx context.Context, _ ...any) (any, error) {
			if _, err := get(ctx, pingKey); err != nil {
				return nil, err
			}
			return "pong", nil
		},
		"getValue": func(ctx context.Context, args ...any) (any, error) {
			if len(args) != 1 {
				return nil, fmt.Errorf("getValue: want 1 argument, got %d", len(args))
			}
			key, ok := args[0].(string)
			if !ok {
				return nil, fmt.Errorf("getValue: key must be a string, got %T", args[0])
			}
			return get(ctx, key)
		},
	}
}

// providerConfig 返回配置中的 provider 配置，未配置时使用默认值。
func providerConfig(e *env, name string) xprovider.Config {
	s := e.settings.Load()
	if cfg, ok := s.ProviderConfig(name); ok {
		return cfg
	}
	cfg := xprovider.DefaultConfig()
	cfg.CircuitBreaker = s.BreakerDefaults
	return cfg
}
