package storageopt

import (
	"context"
	"time"
)

// DefaultHealthTimeout 探活的默认超时。
const DefaultHealthTimeout = 5 * time.Second

// HealthContext 为一次探活派生带超时的 ctx；timeout <= 0 时不加限制，cancel 为空操作。
func HealthContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout > 0 {
		return context.WithTimeout(ctx, timeout)
	}
	return ctx, func() {}
}
