package xcache_test

import (
	"context"
	"fmt"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/omeyang/xshield/pkg/observability/xlog"
	"github.com/omeyang/xshield/pkg/storage/xcache"
)

func ExampleService() {
	mr, err := miniredis.Run()
	if err != nil {
		panic(err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store, err := xcache.NewRedisStore(client)
	if err != nil {
		panic(err)
	}
	defer store.Close()

	svc, err := xcache.NewService(store,
		xcache.WithLogger(xlog.Discard()),
		xcache.WithKeyPrefix("demo:"),
	)
	if err != nil {
		panic(err)
	}
	defer svc.Close()

	ctx := context.Background()
	svc.Set(ctx, "greeting", "hello", 10*time.Minute)
	v, ok := svc.Get(ctx, "greeting")
	fmt.Println(v, ok)

	svc.SetWithVersion(ctx, "users", "1", "alice", time.Minute)
	version, _ := svc.IncrementVersion(ctx, "users")
	_, ok = svc.GetWithVersion(ctx, "users", "1")
	fmt.Println(version, ok)

	// Output:
	// hello true
	// 2 false
}
