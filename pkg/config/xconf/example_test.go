package xconf_test

import (
	"fmt"

	"github.com/omeyang/xshield/pkg/config/xconf"
)

func ExampleLoadSettings() {
	data := []byte(`
redis:
  addr: cache.internal:6379
providers:
  pricing:
    timeout: 2s
    fallback:
      getQuote: failure
`)
	cfg, err := xconf.NewFromBytes(data, xconf.FormatYAML)
	if err != nil {
		panic(err)
	}
	s, err := xconf.LoadSettings(cfg)
	if err != nil {
		panic(err)
	}
	p, _ := s.ProviderConfig("pricing")
	fmt.Println(s.Redis.Addr, p.Timeout, p.Fallback["getQuote"], p.CircuitBreaker.FailureThreshold)
	// Output: cache.internal:6379 2s failure 5
}
