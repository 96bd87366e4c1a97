package fetcher

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
)

const (
	chromeUA  = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	edgeUA    = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36 Edg/120.0.0.0"
	firefoxUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:121.0) Gecko/20100101 Firefox/121.0"
	safariUA  = "Mozilla/5.0 (Macintosh; Intel Mac OS X 14_2) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.2 Safari/605.1.15"
	operaUA   = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36 OPR/106.0.0.0"
)

func TestBrowserFamily(t *testing.T) {
	assert.Equal(t, "chrome", BrowserFamily(chromeUA))
	assert.Equal(t, "edge", BrowserFamily(edgeUA))
	assert.Equal(t, "firefox", BrowserFamily(firefoxUA))
	assert.Equal(t, "safari", BrowserFamily(safariUA))
	assert.Equal(t, "opera", BrowserFamily(operaUA))
	assert.Equal(t, "", BrowserFamily("curl/8.0"))
}

func TestRandomUserAgents_FiltersFamilies(t *testing.T) {
	seq := []string{safariUA, operaUA, firefoxUA}
	i := 0
	src := NewRandomUserAgents([]string{"Edge", " firefox "}, "fallback")
	src.draw = func() string {
		ua := seq[i%len(seq)]
		i++
		return ua
	}

	assert.Equal(t, firefoxUA, src.UserAgent())
	assert.Equal(t, 3, i)
}

func TestRandomUserAgents_Fallback(t *testing.T) {
	draws := 0
	src := NewRandomUserAgents([]string{"edge"}, "fallback")
	src.draw = func() string {
		draws++
		return chromeUA
	}

	assert.Equal(t, "fallback", src.UserAgent())
	assert.Equal(t, maxDraws, draws)
}

func TestRandomUserAgents_RealSource(t *testing.T) {
	src := NewRandomUserAgents([]string{"edge", "chrome", "firefox"}, "fallback")
	for i := 0; i < 20; i++ {
		ua := src.UserAgent()
		if ua == "fallback" {
			continue
		}
		assert.Contains(t, []string{"edge", "chrome", "firefox"}, BrowserFamily(ua))
	}
}

func TestRandomUserAgents_AnyFamily(t *testing.T) {
	src := NewRandomUserAgents(nil, "fallback")
	src.draw = func() string { return "curl/8.0" }
	assert.Equal(t, "curl/8.0", src.UserAgent())
}

func TestRandomProxyPicker(t *testing.T) {
	assert.Equal(t, "", NewRandomProxyPicker(nil, nil).PickProxy())
	assert.Equal(t, "http://a:1", NewRandomProxyPicker([]string{"http://a:1"}, nil).PickProxy())

	pool := []string{"http://a:1", "http://b:1", "http://c:1", "http://d:1"}
	p := NewRandomProxyPicker(pool, rand.New(rand.NewPCG(1, 2)))
	seen := map[string]int{}
	for i := 0; i < 400; i++ {
		seen[p.PickProxy()]++
	}
	assert.Len(t, seen, 4)
	for _, proxy := range pool {
		assert.Greater(t, seen[proxy], 50, proxy)
	}

	pool[0] = "mutated"
	assert.NotContains(t, p.Proxies(), "mutated")
}

func TestValidateProxies(t *testing.T) {
	assert.NoError(t, ValidateProxies([]string{"http://196.51.132.133:8800", "socks5://127.0.0.1:1080"}))
	assert.Error(t, ValidateProxies([]string{"http://"}))
}
