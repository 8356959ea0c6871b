package xcache

import (
	"context"
	"log/slog"
	"reflect"

	"github.com/omeyang/xshield/pkg/observability/xlog"
)

// GetInto 读取缓存并写入 dst，dst 必须是非 nil 指针。
//
// L1 中保存的值可以直接赋给 *dst 时直接赋值；否则用编解码器把原始字节解码到 dst，
// 因此其他实例写入、只能从 L2 读到的值也能得到原始类型。
// 未命中、dst 不是指针或解码失败返回 false。
func (s *Service) GetInto(ctx context.Context, key string, dst any) bool {
	rv := reflect.ValueOf(dst)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return false
	}
	e, ok := s.lookup(ctx, key)
	if !ok {
		return false
	}
	if e.value != nil {
		if v := reflect.ValueOf(e.value); v.Type().AssignableTo(rv.Elem().Type()) {
			rv.Elem().Set(v)
			return true
		}
	}
	if err := s.opts.Codec.Unmarshal(e.raw, dst); err != nil {
		s.logger.Debug(ctx, "cache value decode into target failed",
			xlog.CacheKey(key), slog.String("target", rv.Elem().Type().String()), xlog.Err(err))
		return false
	}
	return true
}

// GetAs 读取缓存并转换为 T，未命中或解码失败返回零值和 false。
func GetAs[T any](ctx context.Context, s *Service, key string) (T, bool) {
	var v T
	if !s.GetInto(ctx, key, &v) {
		var zero T
		return zero, false
	}
	return v, true
}

// GetWithVersionAs 是 GetAs 的版本化形式。
func GetWithVersionAs[T any](ctx context.Context, s *Service, namespace, key string) (T, bool) {
	var zero T
	vkey, ok := s.versionedKey(ctx, namespace, key)
	if !ok {
		return zero, false
	}
	return GetAs[T](ctx, s, vkey)
}
