package fetcher

import (
	"strings"

	"github.com/corpix/uarand"
)

// maxDraws bounds how many random agents are inspected before falling back.
const maxDraws = 64

// RandomUserAgents draws real browser user agents, restricted to a set of
// browser families.
type RandomUserAgents struct {
	families []string
	fallback string
	draw     func() string
}

// NewRandomUserAgents creates a source limited to browsers ("edge",
// "chrome", "firefox", "safari", "opera"). No browsers means any family.
// fallback is returned when no matching agent is found.
func NewRandomUserAgents(browsers []string, fallback string) *RandomUserAgents {
	families := make([]string, 0, len(browsers))
	for _, b := range browsers {
		if b = strings.ToLower(strings.TrimSpace(b)); b != "" {
			families = append(families, b)
		}
	}
	return &RandomUserAgents{families: families, fallback: fallback, draw: uarand.GetRandom}
}

// UserAgent returns a matching agent or the fallback.
func (u *RandomUserAgents) UserAgent() string {
	for i := 0; i < maxDraws; i++ {
		ua := u.draw()
		if ua != "" && u.matches(ua) {
			return ua
		}
	}
	return u.fallback
}

func (u *RandomUserAgents) matches(ua string) bool {
	if len(u.families) == 0 {
		return true
	}
	for _, f := range u.families {
		if BrowserFamily(ua) == f {
			return true
		}
	}
	return false
}

// BrowserFamily classifies a user agent string. Unknown agents return "".
func BrowserFamily(ua string) string {
	switch {
	case strings.Contains(ua, "Edg/") || strings.Contains(ua, "Edge/") || strings.Contains(ua, "EdgA/") || strings.Contains(ua, "EdgiOS/"):
		return "edge"
	case strings.Contains(ua, "OPR/") || strings.Contains(ua, "Opera"):
		return "opera"
	case strings.Contains(ua, "Firefox/") || strings.Contains(ua, "FxiOS/"):
		return "firefox"
	case strings.Contains(ua, "Chrome/") || strings.Contains(ua, "CriOS/"):
		return "chrome"
	case strings.Contains(ua, "Safari/"):
		return "safari"
	}
	return ""
}

// StaticUserAgent always returns the same agent.
type StaticUserAgent string

// UserAgent returns s.
func (s StaticUserAgent) UserAgent() string { return string(s) }
