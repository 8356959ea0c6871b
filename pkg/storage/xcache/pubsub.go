package xcache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/omeyang/xshield/pkg/observability/xlog"
)

// 失效事件类型。
const (
	EventDelete        = "delete"
	EventVersionUpdate = "version_update"
)

// Envelope 是频道消息的外层包装。
type Envelope struct {
	ID        string          `json:"id"`
	Timestamp int64           `json:"timestamp"` // Unix 毫秒
	Data      json.RawMessage `json:"data"`
}

// Decode 把 Data 解码到 v。
func (e Envelope) Decode(v any) error {
	return json.Unmarshal(e.Data, v)
}

// Event 是缓存失效事件，发布在事件频道上。
type Event struct {
	Type      string   `json:"type"`
	Keys      []string `json:"keys,omitempty"`
	Namespace string   `json:"namespace,omitempty"`
	Version   int64    `json:"version,omitempty"`
	Timestamp int64    `json:"timestamp"`
	Origin    string   `json:"origin"`
}

// Handler 处理订阅到的消息。
type Handler func(ctx context.Context, env Envelope)

// Publish 以 Envelope 包装 message 并发布到频道，失败只计数并记录日志。
func (s *Service) Publish(ctx context.Context, channel string, message any) bool {
	if channel == "" || s.isClosed() {
		return false
	}
	payload, err := s.envelope(message)
	if err != nil {
		s.fail(ctx, "publish", channel, err)
		return false
	}
	err = s.l2Call(ctx, "publish", channel, func(ctx context.Context) error {
		_, err := s.store.Publish(ctx, channel, payload)
		return err
	})
	if err != nil {
		s.fail(ctx, "publish", channel, err)
		return false
	}
	return true
}

func (s *Service) envelope(message any) ([]byte, error) {
	data, err := json.Marshal(message)
	if err != nil {
		return nil, fmt.Errorf("xcache: encode message: %w", err)
	}
	return json.Marshal(Envelope{
		ID:        uuid.NewString(),
		Timestamp: s.opts.Now().UnixMilli(),
		Data:      data,
	})
}

// Subscribe 订阅频道，消息在后台 goroutine 中依次交给 handler。
//
// 订阅在 ctx 取消、调用返回的 unsubscribe 或 Service.Close 时结束。
// 无法解析的消息记录日志后丢弃，handler 的 panic 会被恢复。
func (s *Service) Subscribe(ctx context.Context, channel string, handler Handler) (unsubscribe func() error, err error) {
	if handler == nil {
		return nil, ErrNilHandler
	}
	if s.isClosed() {
		return nil, ErrClosed
	}
	sub, err := s.store.Subscribe(ctx, channel)
	if err != nil {
		s.fail(ctx, "subscribe", channel, err)
		return nil, err
	}

	// 调用方取消和后台退出都会关闭订阅，只关闭一次
	closeSub := sync.OnceValue(sub.Close)
	started := s.spawn(func() {
		defer closeSub() //nolint:errcheck // 退出时关闭订阅，错误无需处理
		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stop:
				return
			case m, ok := <-msgs:
				if !ok {
					return
				}
				s.dispatch(ctx, m, handler)
			}
		}
	})
	if !started {
		_ = closeSub() //nolint:errcheck // 服务已关闭
		return nil, ErrClosed
	}
	return closeSub, nil
}

func (s *Service) dispatch(ctx context.Context, m Message, handler Handler) {
	var env Envelope
	if err := json.Unmarshal(m.Payload, &env); err != nil {
		s.logger.Warn(ctx, "drop malformed message", xlog.Channel(m.Channel), xlog.Err(err))
		return
	}
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error(ctx, "subscription handler panicked",
				xlog.Channel(m.Channel), xlog.Err(fmt.Errorf("panic: %v", r)))
		}
	}()
	handler(ctx, env)
}

// ListenInvalidations 订阅事件频道，按其他进程发布的失效事件删除本地 L1 条目。
func (s *Service) ListenInvalidations(ctx context.Context) (unsubscribe func() error, err error) {
	return s.Subscribe(ctx, s.opts.EventChannel, func(ctx context.Context, env Envelope) {
		var ev Event
		if err := env.Decode(&ev); err != nil {
			s.logger.Warn(ctx, "drop malformed invalidation event", xlog.Err(err))
			return
		}
		if ev.Origin == s.origin {
			return
		}
		s.applyEvent(ctx, ev)
	})
}

func (s *Service) applyEvent(ctx context.Context, ev Event) {
	switch ev.Type {
	case EventDelete:
		for _, key := range ev.Keys {
			s.l1.delete(key)
		}
	case EventVersionUpdate:
		if ev.Namespace == "" {
			return
		}
		n := s.l1.deleteFunc(func(key string) bool {
			return staleVersioned(key, ev.Namespace, ev.Version)
		})
		s.logger.Debug(ctx, "remote version update applied",
			xlog.Namespace(ev.Namespace), xlog.Count(int64(n)))
	default:
		s.logger.Debug(ctx, "ignore unknown invalidation event", xlog.Operation(ev.Type))
	}
}

// publishEvent 在事件频道上发布失效事件，补全 Origin 和 Timestamp。
func (s *Service) publishEvent(ctx context.Context, ev Event) {
	ev.Origin = s.origin
	ev.Timestamp = s.opts.Now().UnixMilli()
	s.Publish(ctx, s.opts.EventChannel, ev)
}

// broadcastDelete 在开启广播时发布删除事件。
func (s *Service) broadcastDelete(ctx context.Context, keys []string) {
	if !s.opts.Broadcast || len(keys) == 0 {
		return
	}
	s.publishEvent(ctx, Event{Type: EventDelete, Keys: keys})
}
