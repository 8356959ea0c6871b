package xcache

import (
	"context"
	"time"
)

// Store 定义 L2 外部缓存的最小契约。
//
// Service 只通过该接口访问外部存储，便于替换实现或在测试中注入故障。
type Store interface {
	// Get 读取 key，不存在时返回 ErrNotFound。
	Get(ctx context.Context, key string) ([]byte, error)

	// Set 写入 key，ttl <= 0 表示不过期。
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Del 删除 keys，返回实际删除的数量。
	Del(ctx context.Context, keys ...string) (int64, error)

	// Keys 返回匹配 glob 模式的全部 key。
	Keys(ctx context.Context, pattern string) ([]string, error)

	// Incr 原子递增 key 的整数值并返回新值，不存在时从 0 开始。
	Incr(ctx context.Context, key string) (int64, error)

	// Publish 向频道发布消息，返回收到消息的订阅者数量。
	Publish(ctx context.Context, channel string, payload []byte) (int64, error)

	// Subscribe 订阅频道。返回时订阅已确认生效。
	Subscribe(ctx context.Context, channel string) (Subscription, error)
}

// Message 表示从频道收到的一条消息。
type Message struct {
	Channel string
	Payload []byte
}

// Subscription 表示一个活跃的频道订阅。
type Subscription interface {
	// Channel 返回消息流。订阅关闭后 channel 被关闭。
	Channel() <-chan Message

	// Close 取消订阅并释放连接。
	Close() error
}
