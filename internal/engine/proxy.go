package engine

import (
	"fmt"
	"net/url"
	"sync/atomic"
)

// ProxyPool rotates outbound requests across a fixed proxy list,
// round-robin. Credentials, when configured, are injected into every
// proxy URL that does not already carry its own.
type ProxyPool struct {
	urls   []string
	cursor atomic.Uint64
}

// NewProxyPool parses the server list and embeds credentials.
// Servers may be bare host:port (http assumed) or full URLs.
func NewProxyPool(servers []string, username, password string) (*ProxyPool, error) {
	if len(servers) == 0 {
		return nil, fmt.Errorf("proxy pool: no servers configured")
	}
	urls := make([]string, 0, len(servers))
	for _, s := range servers {
		if s == "" {
			continue
		}
		u, err := url.Parse(s)
		if err != nil || u.Host == "" {
			// Bare host:port form.
			u = &url.URL{Scheme: "http", Host: s}
		}
		if u.Scheme == "" {
			u.Scheme = "http"
		}
		if u.User == nil && username != "" {
			u.User = url.UserPassword(username, password)
		}
		urls = append(urls, u.String())
	}
	if len(urls) == 0 {
		return nil, fmt.Errorf("proxy pool: no usable servers")
	}
	return &ProxyPool{urls: urls}, nil
}

// Next returns the next proxy URL in rotation.
func (p *ProxyPool) Next() string {
	n := p.cursor.Add(1) - 1
	return p.urls[n%uint64(len(p.urls))]
}

// Len reports the pool size.
func (p *ProxyPool) Len() int { return len(p.urls) }
