package xcache

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRedisStore_NilClient(t *testing.T) {
	_, err := NewRedisStore(nil)
	assert.ErrorIs(t, err, ErrNilClient)
}

func TestRedisStore_Basic(t *testing.T) {
	mr := miniredis.RunT(t)
	store := newRedisStore(t, mr)
	ctx := context.Background()

	_, err := store.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Set(ctx, "k", []byte("v"), time.Minute))
	got, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)
	assert.Equal(t, time.Minute, mr.TTL("k"))

	require.NoError(t, store.Set(ctx, "forever", []byte("v"), 0))
	assert.Zero(t, mr.TTL("forever"))

	n, err := store.Del(ctx, "k", "forever", "missing")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = store.Del(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	v, err := store.Incr(ctx, "counter")
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)

	assert.NotNil(t, store.Client())
}

func TestRedisStore_KeysScansAllPages(t *testing.T) {
	mr := miniredis.RunT(t)
	store := newRedisStore(t, mr)
	ctx := context.Background()

	const total = scanCount*2 + 10
	for i := range total {
		require.NoError(t, mr.Set("item:"+strconv.Itoa(i), "x"))
	}
	require.NoError(t, mr.Set("other", "x"))

	keys, err := store.Keys(ctx, "item:*")
	require.NoError(t, err)
	assert.Len(t, keys, total)
}

func TestRedisStore_PubSub(t *testing.T) {
	mr := miniredis.RunT(t)
	store := newRedisStore(t, mr)
	ctx := context.Background()

	sub, err := store.Subscribe(ctx, "events")
	require.NoError(t, err)

	n, err := store.Publish(ctx, "events", []byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	select {
	case m := <-sub.Channel():
		assert.Equal(t, "events", m.Channel)
		assert.Equal(t, []byte("hello"), m.Payload)
	case <-time.After(2 * time.Second):
		t.Fatal("message not received")
	}

	require.NoError(t, sub.Close())
	require.NoError(t, sub.Close())

	// 关闭后消息流结束
	for range sub.Channel() {
	}
}
