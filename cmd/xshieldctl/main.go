// xshieldctl 运行和管理 xshield 缓存与 provider 保护层。
//
// 用法:
//
//	xshieldctl [全局选项] <命令> [命令参数]
//
// 全局选项:
//
//	-c, --config   配置文件路径，为空时使用默认配置（环境变量 XSHIELD_CONFIG）
//	    --redis    覆盖配置中的 redis.addr
//	-t, --timeout  单个命令的超时时间（默认 10s，serve 不受限制）
//
// 命令:
//
//	serve                          运行失效订阅、配置热加载、熔断器清理和健康巡检
//	health                         检查 L2 存储并输出缓存统计
//	config check                   校验配置并输出生效值
//	cache get <key>                读取缓存
//	cache set <key> <json> [ttl]   写入缓存
//	cache del <key>...             删除缓存
//	cache del-pattern <pattern>    按通配符删除缓存
//	cache version <ns>             查看命名空间版本
//	cache bump-version <ns>        递增命名空间版本，使旧版本缓存失效
//	cache publish <channel> <json> 发布消息
//	diagnose <method> [args...]    通过熔断器调用内置存储 provider（ping、getValue）
//
// 退出码:
//
//	0: 成功
//	1: 执行失败或健康检查不通过
//	2: 参数错误
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"
)

const defaultTimeout = 10 * time.Second

// 版本信息，可通过 -ldflags "-X main.Version=..." 注入。
var (
	Version   = "0.1.0-dev"
	GitCommit = "unknown"
)

func main() {
	os.Exit(run(os.Args, os.Stdout, os.Stderr))
}

func createApp(stdout, stderr io.Writer) *cli.Command {
	return &cli.Command{
		Name:      "xshieldctl",
		Usage:     "xshield 缓存与 provider 保护层命令行工具",
		Version:   fmt.Sprintf("%s (commit: %s)", Version, GitCommit),
		Writer:    stdout,
		ErrWriter: stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "配置文件路径（.yaml/.yml/.json）",
				Sources: cli.EnvVars("XSHIELD_CONFIG"),
			},
			&cli.StringFlag{
				Name:  "redis",
				Usage: "覆盖 redis.addr",
			},
			&cli.DurationFlag{
				Name:    "timeout",
				Aliases: []string{"t"},
				Usage:   "命令超时时间",
				Value:   defaultTimeout,
			},
		},
		Commands: []*cli.Command{
			serveCommand(),
			healthCommand(),
			configCommand(),
			cacheCommand(),
			diagnoseCommand(),
		},
		ExitErrHandler: func(_ context.Context, _ *cli.Command, err error) {
			if _, ok := err.(cli.ExitCoder); ok {
				fmt.Fprintln(stderr, err)
			}
		},
	}
}

func run(args []string, stdout, stderr io.Writer) int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return exitCode(createApp(stdout, stderr).Run(ctx, args), stderr)
}

// exitError 命令已完成输出，只需要非零退出码。
type exitError struct {
	code int
}

func (e *exitError) Error() string { return fmt.Sprintf("exit status %d", e.code) }

// usageError 参数错误。
type usageError struct {
	msg string
}

func (e *usageError) Error() string { return e.msg }

func usagef(format string, args ...any) error {
	return &usageError{msg: fmt.Sprintf(format, args...)}
}

func exitCode(err error, stderr io.Writer) int {
	if err == nil {
		return 0
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	var ue *usageError
	if errors.As(err, &ue) {
		fmt.Fprintf(stderr, "参数错误: %v\n", ue)
		return 2
	}
	var ec cli.ExitCoder
	if errors.As(err, &ec) {
		return ec.ExitCode()
	}
	fmt.Fprintf(stderr, "错误: %v\n", err)
	return 1
}
