package fetcher

import (
	"fmt"
	"math/rand/v2"
	"net/url"

	"github.com/holos-company/etldrivers/pkg/etl"
)

// RandomProxyPicker picks uniformly from a fixed proxy list.
// An empty list means direct connections.
type RandomProxyPicker struct {
	proxies []string
	rng     *rand.Rand
}

// NewRandomProxyPicker creates a picker over proxies. A nil rng uses the
// global source.
func NewRandomProxyPicker(proxies []string, rng *rand.Rand) *RandomProxyPicker {
	return &RandomProxyPicker{proxies: append([]string(nil), proxies...), rng: rng}
}

// PickProxy returns a proxy URL, or "" when the pool is empty.
func (p *RandomProxyPicker) PickProxy() string {
	switch len(p.proxies) {
	case 0:
		return ""
	case 1:
		return p.proxies[0]
	}
	if p.rng != nil {
		return p.proxies[p.rng.IntN(len(p.proxies))]
	}
	return p.proxies[rand.IntN(len(p.proxies))]
}

// Proxies returns a copy of the pool.
func (p *RandomProxyPicker) Proxies() []string {
	return append([]string(nil), p.proxies...)
}

// ValidateProxies checks that every entry is an absolute http, https or
// socks5 URL.
func ValidateProxies(proxies []string) error {
	for _, p := range proxies {
		u, err := url.Parse(p)
		if err != nil {
			return fmt.Errorf("%w: proxy %q: %w", etl.ErrInvalidConfig, p, err)
		}
		switch u.Scheme {
		case "http", "https", "socks5":
		default:
			return fmt.Errorf("%w: proxy %q must use http, https or socks5", etl.ErrInvalidConfig, p)
		}
		if u.Host == "" {
			return fmt.Errorf("%w: proxy %q has no host", etl.ErrInvalidConfig, p)
		}
	}
	return nil
}
