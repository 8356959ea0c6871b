package xcache

import (
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/simplelru"
)

// entry 是 L1 中的缓存条目。
type entry struct {
	// value 为解码后的值，raw 为编码后的字节，GetInto 据此重新解码为目标类型。
	value     any
	raw       []byte
	createdAt time.Time
	expiresAt time.Time
}

func (e *entry) expired(now time.Time) bool {
	return !now.Before(e.expiresAt)
}

// memoryTier 是有界的进程内缓存。
//
// 读取只使用 Peek，不调整顺序，因此淘汰顺序等同于插入顺序（FIFO）。
// 覆盖写视为重新插入。
type memoryTier struct {
	mu  sync.Mutex
	lru *simplelru.LRU[string, *entry]
}

func newMemoryTier(size int) (*memoryTier, error) {
	lru, err := simplelru.NewLRU[string, *entry](size, nil)
	if err != nil {
		return nil, err
	}
	return &memoryTier{lru: lru}, nil
}

// get 返回未过期的条目，过期条目顺带删除。
func (m *memoryTier) get(key string, now time.Time) (*entry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.lru.Peek(key)
	if !ok {
		return nil, false
	}
	if e.expired(now) {
		m.lru.Remove(key)
		return nil, false
	}
	return e, true
}

// set 写入条目，返回是否淘汰了最早插入的条目。
func (m *memoryTier) set(key string, e *entry) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.lru.Contains(key) {
		m.lru.Remove(key)
	}
	return m.lru.Add(key, e)
}

func (m *memoryTier) delete(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lru.Remove(key)
}

// deleteFunc 删除所有 match 返回 true 的 key，返回删除数量。
func (m *memoryTier) deleteFunc(match func(key string) bool) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, key := range m.lru.Keys() {
		if match(key) {
			m.lru.Remove(key)
			n++
		}
	}
	return n
}

// sweep 删除所有已过期条目，返回删除数量。
// 只删除 expiresAt 已过的条目，不影响并发读取的存活条目。
func (m *memoryTier) sweep(now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, key := range m.lru.Keys() {
		if e, ok := m.lru.Peek(key); ok && e.expired(now) {
			m.lru.Remove(key)
			n++
		}
	}
	return n
}

func (m *memoryTier) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lru.Len()
}

func (m *memoryTier) purge() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lru.Purge()
}
