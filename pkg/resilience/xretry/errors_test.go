package xretry

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type codedError struct{ code string }

func (e codedError) Error() string { return "coded: " + e.code }
func (e codedError) Code() string  { return e.code }

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"conn reset", fmt.Errorf("read: %w", syscall.ECONNRESET), true},
		{"conn refused", &net.OpError{Op: "dial", Err: os.NewSyscallError("connect", syscall.ECONNREFUSED)}, true},
		{"timed out", syscall.ETIMEDOUT, true},
		{"dns not found", &net.DNSError{Err: "no such host", Name: "x.invalid", IsNotFound: true}, true},
		{"dns other", &net.DNSError{Err: "server misbehaving"}, false},
		{"generic network", &net.OpError{Op: "read", Err: errors.New("broken")}, true},
		{"code ENOTFOUND", codedError{"ENOTFOUND"}, true},
		{"code network", codedError{"network_error"}, true},
		{"code business", codedError{"INSUFFICIENT_FUNDS"}, false},
		{"deadline", os.ErrDeadlineExceeded, true},
		{"business", errors.New("invalid order"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}

func TestIsRetryable(t *testing.T) {
	assert.False(t, IsRetryable(nil))
	assert.False(t, IsRetryable(errors.New("business")))
	assert.True(t, IsRetryable(syscall.ECONNRESET))
	assert.True(t, IsRetryable(NewTemporaryError(errors.New("busy"))))
	assert.False(t, IsRetryable(NewPermanentError(syscall.ECONNRESET)))
	assert.True(t, IsRetryable(&TimeoutError{After: time.Second}))
	assert.False(t, IsRetryable(canceled(context.Canceled)))
	assert.True(t, IsPermanent(errors.New("business")))
	assert.False(t, IsPermanent(nil))
}

func TestErrorTypes(t *testing.T) {
	inner := errors.New("inner")
	assert.Equal(t, "inner", NewPermanentError(inner).Error())
	assert.Equal(t, "permanent error", NewPermanentError(nil).Error())
	assert.Equal(t, "temporary error", NewTemporaryError(nil).Error())
	assert.ErrorIs(t, NewTemporaryError(inner), inner)

	te := &TimeoutError{After: 50 * time.Millisecond}
	assert.Contains(t, te.Error(), "50ms")
	assert.True(t, IsTimeout(fmt.Errorf("wrap: %w", te)))
	assert.Equal(t, 50*time.Millisecond, te.After)

	var timeouter interface{ Timeout() bool }
	require.ErrorAs(t, fmt.Errorf("wrap: %w", te), &timeouter)
	assert.True(t, timeouter.Timeout())

	c := canceled(context.DeadlineExceeded)
	assert.True(t, IsCanceled(c))
	assert.ErrorIs(t, c, context.DeadlineExceeded)
	assert.ErrorIs(t, canceled(nil), context.Canceled)
}
