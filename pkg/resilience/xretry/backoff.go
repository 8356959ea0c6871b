package xretry

import (
	"fmt"
	"math"
	"math/rand/v2"
	"strings"
	"time"
)

// BackoffKind 退避类型，对应 provider 配置中的 retry.backoff。
type BackoffKind string

const (
	BackoffFixed       BackoffKind = "fixed"
	BackoffLinear      BackoffKind = "linear"
	BackoffExponential BackoffKind = "exponential"
)

// ParseBackoffKind 大小写不敏感，空字符串视为 exponential。
func ParseBackoffKind(s string) (BackoffKind, error) {
	kind := BackoffKind(strings.ToLower(strings.TrimSpace(s)))
	switch kind {
	case "":
		return BackoffExponential, nil
	case BackoffFixed, BackoffLinear, BackoffExponential:
		return kind, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidBackoff, s)
}

// UnmarshalText 供 koanf 等配置库直接解码。
func (k *BackoffKind) UnmarshalText(data []byte) error {
	parsed, err := ParseBackoffKind(string(data))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Backoff 按 kind 计算第 attempt 次失败后的等待时间，结果不超过 max：
//
//	fixed        base
//	linear       base × attempt
//	exponential  base × 2^(attempt-1)
//
// 设置 jitter 后在上述结果上做 ±jitter 比例的随机扰动，再截断到 max。
type Backoff struct {
	kind   BackoffKind
	base   time.Duration
	max    time.Duration
	jitter float64
}

// NewBackoff 创建退避策略。maxDelay <= 0 表示不设上限，未知 kind 按 exponential 处理。
func NewBackoff(kind BackoffKind, baseDelay, maxDelay time.Duration) *Backoff {
	if maxDelay <= 0 {
		maxDelay = math.MaxInt64
	}
	return &Backoff{kind: kind, base: max(baseDelay, 0), max: maxDelay}
}

// WithJitter 返回带抖动的副本，j 截断到 [0,1]。
func (b *Backoff) WithJitter(j float64) *Backoff {
	c := *b
	c.jitter = min(max(j, 0), 1)
	return &c
}

// Kind 返回退避类型。
func (b *Backoff) Kind() BackoffKind { return b.kind }

func (b *Backoff) NextDelay(attempt int) time.Duration {
	d := b.raw(max(attempt, 1))
	if b.jitter > 0 && d > 0 {
		d = time.Duration(float64(d) * (1 + (rand.Float64()*2-1)*b.jitter))
	}
	return min(d, b.max)
}

// raw 计算不带抖动的延迟，乘法溢出前直接返回上限。
func (b *Backoff) raw(attempt int) time.Duration {
	switch b.kind {
	case BackoffFixed:
		return b.base
	case BackoffLinear:
		if b.base > 0 && time.Duration(attempt) > b.max/b.base {
			return b.max
		}
		return b.base * time.Duration(attempt)
	default:
		shift := attempt - 1
		if shift >= 62 || (b.base > 0 && b.base > b.max>>shift) {
			return b.max
		}
		return b.base << shift
	}
}

var _ BackoffPolicy = (*Backoff)(nil)
