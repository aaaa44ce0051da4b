package app

import (
	"net/url"
	"strings"
)

// originMatcher accepts origins whose host[:port] matches one of the
// configured patterns: exact hosts, "*.example.com" for any subdomain,
// or "host:*" for any port on host.
type originMatcher struct {
	exact    map[string]bool
	suffixes []string
	hosts    []string
}

func newOriginMatcher(patterns []string) *originMatcher {
	m := &originMatcher{exact: make(map[string]bool, len(patterns))}
	for _, p := range patterns {
		p = strings.ToLower(strings.TrimSpace(p))
		switch {
		case p == "":
		case strings.HasPrefix(p, "*."):
			m.suffixes = append(m.suffixes, p[1:])
		case strings.HasSuffix(p, ":*"):
			m.hosts = append(m.hosts, strings.TrimSuffix(p, ":*"))
		default:
			m.exact[p] = true
		}
	}
	return m
}

func (m *originMatcher) allow(origin string) bool {
	host := strings.ToLower(extractOriginHost(origin))
	if m.exact[host] {
		return true
	}
	for _, s := range m.suffixes {
		if len(host) > len(s) && strings.HasSuffix(host, s) {
			return true
		}
	}
	bare, _, _ := strings.Cut(host, ":")
	for _, h := range m.hosts {
		if bare == h {
			return true
		}
	}
	return false
}

// extractOriginHost returns the host[:port] part of an origin URL.
func extractOriginHost(origin string) string {
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return origin
	}
	return u.Host
}
