package xrun

import (
	"errors"
	"fmt"
	"os"
)

var (
	// ErrSignal 因收到系统信号退出。
	ErrSignal = errors.New("xrun: received signal")

	ErrNilService      = errors.New("xrun: nil service")
	ErrInvalidInterval = errors.New("xrun: interval must be positive")
)

// SignalError 记录触发退出的信号。
type SignalError struct {
	Signal os.Signal
}

func (e *SignalError) Error() string {
	return fmt.Sprintf("xrun: received signal %v", e.Signal)
}

func (e *SignalError) Unwrap() error {
	return ErrSignal
}
