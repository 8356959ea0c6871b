package xprovider

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// CacheKey 生成确定性的缓存键："provider:<name>:<method>:<参数哈希>"。
//
// 参数先序列化为 JSON（map 键按字典序输出），再取 xxhash64。
// 参数无法序列化时返回错误，调用方应跳过缓存。
func CacheKey(provider, method string, args []any) (string, error) {
	if args == nil {
		args = []any{}
	}
	data, err := json.Marshal(args)
	if err != nil {
		return "", fmt.Errorf("xprovider: hash args: %w", err)
	}
	return BreakerName(provider, method) + ":" + strconv.FormatUint(xxhash.Sum64(data), 16), nil
}

// BreakerName 返回 provider 方法对应的熔断器名称。
func BreakerName(provider, method string) string {
	return breakerPrefix + provider + ":" + method
}

const breakerPrefix = "provider:"
