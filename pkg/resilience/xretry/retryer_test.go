package xretry

import (
	"context"
	"errors"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRetryer_Do(t *testing.T) {
	t.Run("SuccessOnFirstAttempt", func(t *testing.T) {
		r := NewRetryer()
		var attempts int

		err := r.Do(context.Background(), func(ctx context.Context) error {
			attempts++
			return nil
		})

		assert.NoError(t, err)
		assert.Equal(t, 1, attempts)
	})

	t.Run("TransientRetriedUntilSuccess", func(t *testing.T) {
		r := NewRetryer(
			WithRetryPolicy(NewFixedRetry(3)),
			WithBackoffPolicy(NoBackoff),
		)
		var attempts int

		err := r.Do(context.Background(), func(ctx context.Context) error {
			attempts++
			if attempts < 3 {
				return syscall.ECONNRESET
			}
			return nil
		})

		assert.NoError(t, err)
		assert.Equal(t, 3, attempts)
	})

	t.Run("ExhaustedReturnsLastError", func(t *testing.T) {
		r := NewRetryer(
			WithRetryPolicy(NewFixedRetry(3)),
			WithBackoffPolicy(NoBackoff),
		)
		var attempts int

		err := r.Do(context.Background(), func(ctx context.Context) error {
			attempts++
			return syscall.ECONNREFUSED
		})

		assert.ErrorIs(t, err, syscall.ECONNREFUSED)
		assert.Equal(t, 3, attempts)
	})

	t.Run("BusinessErrorNotRetried", func(t *testing.T) {
		r := NewRetryer(WithRetryPolicy(NewFixedRetry(5)), WithBackoffPolicy(NoBackoff))
		var attempts int
		bizErr := errors.New("invalid amount")

		err := r.Do(context.Background(), func(ctx context.Context) error {
			attempts++
			return bizErr
		})

		assert.ErrorIs(t, err, bizErr)
		assert.Equal(t, 1, attempts)
	})

	t.Run("SingleAttempt", func(t *testing.T) {
		r := NewRetryer(WithRetryPolicy(NewFixedRetry(0)))
		var attempts int
		_ = r.Do(context.Background(), func(ctx context.Context) error {
			attempts++
			return syscall.ECONNRESET
		})
		assert.Equal(t, 1, attempts)
	})

	t.Run("CustomClassifier", func(t *testing.T) {
		r := NewRetryer(
			WithRetryPolicy(NewFixedRetryIf(2, func(error) bool { return true })),
			WithBackoffPolicy(NoBackoff),
		)
		var attempts int
		_ = r.Do(context.Background(), func(ctx context.Context) error {
			attempts++
			return errors.New("anything")
		})
		assert.Equal(t, 2, attempts)
	})
}

func TestRetryer_OnRetryAndBackoff(t *testing.T) {
	var retried []int
	var delays []time.Duration
	backoff := NewBackoff(BackoffLinear, time.Millisecond, 10*time.Millisecond)
	r := NewRetryer(
		WithRetryPolicy(NewFixedRetry(4)),
		WithBackoffPolicy(recordingBackoff{inner: backoff, delays: &delays}),
		WithOnRetry(func(attempt int, err error) { retried = append(retried, attempt) }),
	)

	_, err := DoWithResult(context.Background(), r, func(ctx context.Context) (int, error) {
		return 0, syscall.ETIMEDOUT
	})

	assert.ErrorIs(t, err, syscall.ETIMEDOUT)
	assert.Equal(t, []int{1, 2, 3}, retried)
	assert.Equal(t, []time.Duration{time.Millisecond, 2 * time.Millisecond, 3 * time.Millisecond}, delays)
}

type recordingBackoff struct {
	inner  BackoffPolicy
	delays *[]time.Duration
}

func (b recordingBackoff) NextDelay(attempt int) time.Duration {
	d := b.inner.NextDelay(attempt)
	*b.delays = append(*b.delays, d)
	return d
}

func TestRetryer_Canceled(t *testing.T) {
	r := NewRetryer(
		WithRetryPolicy(NewFixedRetry(10)),
		WithBackoffPolicy(NewBackoff(BackoffFixed, time.Hour, 0)),
	)

	ctx, cancel := context.WithCancel(context.Background())
	var attempts int
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	err := r.Do(ctx, func(ctx context.Context) error {
		attempts++
		return syscall.ECONNRESET
	})

	assert.True(t, IsCanceled(err), "err = %v", err)
	assert.Equal(t, 1, attempts)

	// 已取消的 ctx 不执行 fn
	err = r.Do(ctx, func(ctx context.Context) error {
		t.Fatal("should not run")
		return nil
	})
	assert.True(t, IsCanceled(err))
}

func TestRetryer_NilArgs(t *testing.T) {
	var nilRetryer *Retryer
	_, err := DoWithResult(context.Background(), nilRetryer, func(ctx context.Context) (int, error) { return 1, nil })
	assert.ErrorIs(t, err, ErrNilRetryer)
	assert.ErrorIs(t, nilRetryer.Do(context.Background(), func(context.Context) error { return nil }), ErrNilRetryer)

	//nolint:staticcheck // 验证 nil ctx
	_, err = DoWithResult(nil, NewRetryer(), func(ctx context.Context) (int, error) { return 1, nil })
	assert.ErrorIs(t, err, ErrNilContext)

	_, err = DoWithResult[int](context.Background(), NewRetryer(), nil)
	assert.ErrorIs(t, err, ErrNilFunc)
}

func TestRetryer_PermanentShortCircuits(t *testing.T) {
	r := NewRetryer(WithRetryPolicy(NewFixedRetryIf(5, func(error) bool { return true })), WithBackoffPolicy(NoBackoff))
	var attempts int
	err := r.Do(context.Background(), func(ctx context.Context) error {
		attempts++
		return NewPermanentError(syscall.ECONNRESET)
	})
	assert.True(t, IsPermanent(err))
	assert.Equal(t, 1, attempts)
	assert.ErrorIs(t, r.Do(context.Background(), nil), ErrNilFunc)
}
