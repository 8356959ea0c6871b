package main

import (
	"context"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/omeyang/xshield/pkg/storage/xcache"
)

func cacheCommand() *cli.Command {
	return &cli.Command{
		Name:  "cache",
		Usage: "两级缓存操作",
		Commands: []*cli.Command{
			{
				Name:      "get",
				Usage:     "读取缓存",
				ArgsUsage: "<key>",
				Action: withCache(1, 1, func(ctx context.Context, cmd *cli.Command, svc *xcache.Service) error {
					key := cmd.Args().First()
					v, ok := svc.Get(ctx, key)
					return printJSON(cmd.Root().Writer, map[string]any{"key": key, "found": ok, "value": v})
				}),
			},
			{
				Name:      "set",
				Usage:     "写入缓存，value 按 JSON 解析，失败时作为字符串",
				ArgsUsage: "<key> <value> [ttl]",
				Action: withCache(2, 3, func(ctx context.Context, cmd *cli.Command, svc *xcache.Service) error {
					var ttl time.Duration
					if s := cmd.Args().Get(2); s != "" {
						d, err := time.ParseDuration(s)
						if err != nil {
							return usagef("invalid ttl %q: %v", s, err)
						}
						ttl = d
					}
					ok := svc.Set(ctx, cmd.Args().Get(0), parseValue(cmd.Args().Get(1)), ttl)
					return report(cmd, map[string]any{"key": cmd.Args().Get(0), "ok": ok}, ok)
				}),
			},
			{
				Name:      "del",
				Usage:     "删除缓存",
				ArgsUsage: "<key>...",
				Action: withCache(1, -1, func(ctx context.Context, cmd *cli.Command, svc *xcache.Service) error {
					deleted := 0
					for _, key := range cmd.Args().Slice() {
						if svc.Delete(ctx, key) {
							deleted++
						}
					}
					return printJSON(cmd.Root().Writer, map[string]any{"deleted": deleted})
				}),
			},
			{
				Name:      "del-pattern",
				Usage:     "按通配符删除缓存（SCAN + DEL）",
				ArgsUsage: "<pattern>",
				Action: withCache(1, 1, func(ctx context.Context, cmd *cli.Command, svc *xcache.Service) error {
					n := svc.DeletePattern(ctx, cmd.Args().First())
					return printJSON(cmd.Root().Writer, map[string]any{"pattern": cmd.Args().First(), "deleted": n})
				}),
			},
			{
				Name:      "version",
				Usage:     "查看命名空间当前版本",
				ArgsUsage: "<namespace>",
				Action: withCache(1, 1, func(ctx context.Context, cmd *cli.Command, svc *xcache.Service) error {
					v, err := svc.Version(ctx, cmd.Args().First())
					if err != nil {
						return err
					}
					return printJSON(cmd.Root().Writer, map[string]any{"namespace": cmd.Args().First(), "version": v})
				}),
			},
			{
				Name:      "bump-version",
				Usage:     "递增命名空间版本，旧版本缓存随后被清理",
				ArgsUsage: "<namespace>",
				Action: withCache(1, 1, func(ctx context.Context, cmd *cli.Command, svc *xcache.Service) error {
					v, err := svc.IncrementVersion(ctx, cmd.Args().First())
					if err != nil {
						return err
					}
					return printJSON(cmd.Root().Writer, map[string]any{"namespace": cmd.Args().First(), "version": v})
				}),
			},
			{
				Name:      "publish",
				Usage:     "发布消息，message 按 JSON 解析，失败时作为字符串",
				ArgsUsage: "<channel> <message>",
				Action: withCache(2, 2, func(ctx context.Context, cmd *cli.Command, svc *xcache.Service) error {
					ok := svc.Publish(ctx, cmd.Args().Get(0), parseValue(cmd.Args().Get(1)))
					return report(cmd, map[string]any{"channel": cmd.Args().Get(0), "ok": ok}, ok)
				}),
			},
		},
	}
}

type cacheAction func(ctx context.Context, cmd *cli.Command, svc *xcache.Service) error

// withCache 校验参数个数（maxArgs < 0 表示不限），打开缓存服务后执行 fn。
func withCache(minArgs, maxArgs int, fn cacheAction) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		if n := cmd.NArg(); n < minArgs || (maxArgs >= 0 && n > maxArgs) {
			return usagef("%s: 参数个数错误，用法: %s %s", cmd.Name, cmd.Name, cmd.ArgsUsage)
		}
		e, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer e.Close()
		ctx, cancel := commandContext(ctx, cmd)
		defer cancel()
		return fn(ctx, cmd, e.cache)
	}
}

// report 输出结果，ok 为 false 时以退出码 1 结束。
func report(cmd *cli.Command, v any, ok bool) error {
	if err := printJSON(cmd.Root().Writer, v); err != nil {
		return err
	}
	if !ok {
		return &exitError{code: 1}
	}
	return nil
}
