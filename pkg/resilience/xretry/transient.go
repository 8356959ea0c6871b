package xretry

import (
	"errors"
	"net"
	"strings"
	"syscall"
)

// 瞬时错误码，兼容以字符串码标识错误的 SDK
const (
	CodeConnReset    = "ECONNRESET"
	CodeNotFound     = "ENOTFOUND"
	CodeTimedOut     = "ETIMEDOUT"
	CodeConnRefused  = "ECONNREFUSED"
	CodeNetworkError = "NETWORK_ERROR"
)

// Coder 携带字符串错误码的错误
type Coder interface {
	Code() string
}

var transientCodes = map[string]struct{}{
	CodeConnReset:    {},
	CodeNotFound:     {},
	CodeTimedOut:     {},
	CodeConnRefused:  {},
	CodeNetworkError: {},
}

// IsTransient 判断错误是否属于瞬时网络错误集合：
// 连接重置、域名不存在、超时、连接被拒绝、一般网络错误。
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ETIMEDOUT) {
		return true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr.IsNotFound || dnsErr.IsTimeout || dnsErr.IsTemporary
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}

	var coder Coder
	if errors.As(err, &coder) {
		_, ok := transientCodes[strings.ToUpper(coder.Code())]
		return ok
	}

	return false
}
