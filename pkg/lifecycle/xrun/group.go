package xrun

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"

	"golang.org/x/sync/errgroup"

	"github.com/omeyang/xshield/pkg/observability/xlog"
)

// Service 是可由 Group 管理的长期运行服务，Run 应在 ctx 取消后尽快返回。
type Service interface {
	Name() string
	Run(ctx context.Context) error
}

type funcService struct {
	name string
	fn   func(ctx context.Context) error
}

func (s funcService) Name() string                  { return s.name }
func (s funcService) Run(ctx context.Context) error { return s.fn(ctx) }

// NewService 把函数包装为 Service。
func NewService(name string, fn func(ctx context.Context) error) Service {
	if fn == nil {
		return nil
	}
	return funcService{name: name, fn: fn}
}

// Group 基于 errgroup 并发运行服务，任一服务出错时取消其余服务。
type Group struct {
	eg       *errgroup.Group
	ctx      context.Context
	causeCtx context.Context
	cancel   context.CancelCauseFunc
	opts     options
}

// NewGroup 创建 Group，返回的 context 在 Group 取消时结束。
func NewGroup(ctx context.Context, opts ...Option) (*Group, context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	causeCtx, cancel := context.WithCancelCause(ctx)
	eg, egCtx := errgroup.WithContext(causeCtx)
	return &Group{
		eg:       eg,
		ctx:      egCtx,
		causeCtx: causeCtx,
		cancel:   cancel,
		opts:     buildOptions(opts),
	}, egCtx
}

// Go 启动服务。nil 服务使 Group 以 ErrNilService 退出。
func (g *Group) Go(svc Service) {
	if svc == nil {
		g.eg.Go(func() error { return ErrNilService })
		return
	}
	g.eg.Go(func() error {
		name := slog.String("service", svc.Name())
		g.opts.logger.Debug(g.ctx, "service starting", name)
		err := svc.Run(g.ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			g.opts.logger.Warn(g.ctx, "service exited with error", name, xlog.Err(err))
		} else {
			g.opts.logger.Debug(g.ctx, "service stopped", name)
		}
		return err
	})
}

// Cancel 以 cause 取消所有服务，Wait 会返回 cause。
func (g *Group) Cancel(cause error) {
	g.cancel(cause)
}

// Wait 等待所有服务退出。
//
// Group 被取消时，服务返回的 context.Canceled 会被替换为取消原因，
// 没有显式原因时返回 nil。服务自身产生的错误原样返回。
func (g *Group) Wait() error {
	defer g.cancel(nil)
	err := g.eg.Wait()

	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	if err != nil && g.causeCtx.Err() == nil {
		// context.Canceled 来自服务内部
		return err
	}
	if g.causeCtx.Err() != nil {
		if cause := context.Cause(g.causeCtx); cause != nil && !errors.Is(cause, context.Canceled) {
			return cause
		}
	}
	return nil
}

// Run 运行服务并监听退出信号，直到全部服务退出。
func Run(ctx context.Context, opts []Option, services ...Service) error {
	g, _ := NewGroup(ctx, opts...)
	signals := g.opts.signals
	if len(signals) == 0 {
		signals = DefaultSignals()
	}

	g.eg.Go(func() error {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, signals...)
		defer signal.Stop(ch)

		var sig os.Signal
		select {
		case sig = <-ch:
		case sig = <-injectedSignals(g.ctx):
		case <-g.ctx.Done():
			return nil
		}
		g.opts.logger.Info(g.ctx, "received signal, shutting down", slog.String("signal", sig.String()))
		g.cancel(&SignalError{Signal: sig})
		return nil
	})
	for _, svc := range services {
		g.Go(svc)
	}
	return g.Wait()
}

type signalKey struct{}

// injectedSignals 返回测试通过 context 注入的信号通道，生产环境为 nil。
func injectedSignals(ctx context.Context) <-chan os.Signal {
	c, _ := ctx.Value(signalKey{}).(<-chan os.Signal)
	return c
}
