package xcache

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// scanCount 每次 SCAN 的建议返回数量。
const scanCount = 256

// RedisStore 基于 go-redis 的 Store 实现。
type RedisStore struct {
	client redis.UniversalClient
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore 使用已有的 go-redis 客户端创建 Store。
// 客户端的生命周期由调用方管理，RedisStore.Close 会关闭它。
func NewRedisStore(client redis.UniversalClient) (*RedisStore, error) {
	if client == nil {
		return nil, ErrNilClient
	}
	return &RedisStore{client: client}, nil
}

// Client 返回底层的 redis.UniversalClient。
func (s *RedisStore) Client() redis.UniversalClient {
	return s.client
}

// Get 读取 key，redis.Nil 转换为 ErrNotFound。
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	return b, err
}

// Set 写入 key。
func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	return s.client.Set(ctx, key, value, ttl).Err()
}

// Del 删除 keys。
func (s *RedisStore) Del(ctx context.Context, keys ...string) (int64, error) {
	if len(keys) == 0 {
		return 0, nil
	}
	return s.client.Del(ctx, keys...).Result()
}

// Keys 使用 SCAN 遍历匹配的 key，避免 KEYS 阻塞服务端。
func (s *RedisStore) Keys(ctx context.Context, pattern string) ([]string, error) {
	var (
		cursor uint64
		result []string
	)
	for {
		keys, next, err := s.client.Scan(ctx, cursor, pattern, scanCount).Result()
		if err != nil {
			return nil, err
		}
		result = append(result, keys...)
		if next == 0 {
			return result, nil
		}
		cursor = next
	}
}

// Incr 原子递增。
func (s *RedisStore) Incr(ctx context.Context, key string) (int64, error) {
	return s.client.Incr(ctx, key).Result()
}

// Publish 发布消息。
func (s *RedisStore) Publish(ctx context.Context, channel string, payload []byte) (int64, error) {
	return s.client.Publish(ctx, channel, payload).Result()
}

// Subscribe 订阅频道，等待服务端确认后返回。
func (s *RedisStore) Subscribe(ctx context.Context, channel string) (Subscription, error) {
	ps := s.client.Subscribe(ctx, channel)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close() //nolint:errcheck // 订阅确认失败，关闭错误无需处理
		return nil, err
	}

	sub := &redisSubscription{
		ps:   ps,
		out:  make(chan Message),
		done: make(chan struct{}),
	}
	go sub.forward()
	return sub, nil
}

// Close 关闭底层客户端。
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// redisSubscription 把 go-redis 的消息流转换为 Message 流。
type redisSubscription struct {
	ps        *redis.PubSub
	out       chan Message
	done      chan struct{}
	closeOnce sync.Once
}

func (s *redisSubscription) forward() {
	defer close(s.out)
	in := s.ps.Channel()
	for {
		select {
		case <-s.done:
			return
		case m, ok := <-in:
			if !ok {
				return
			}
			select {
			case s.out <- Message{Channel: m.Channel, Payload: []byte(m.Payload)}:
			case <-s.done:
				return
			}
		}
	}
}

func (s *redisSubscription) Channel() <-chan Message {
	return s.out
}

func (s *redisSubscription) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		err = s.ps.Close()
	})
	return err
}
