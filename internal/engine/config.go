package engine

import (
	"net/http"
	"time"
)

// Config holds all analyzer configuration, injected from main.
// Each analyzer instance owns its own cache, limiter and fetch client
// built from one Config; instances never share state.
type Config struct {
	RateLimit   int           // requests allowed per window
	RateWindow  time.Duration // fixed window length
	RateMaxWait time.Duration // 0 = wait for the next window indefinitely

	CacheEnabled         bool
	CacheTTL             time.Duration
	CacheMaxEntries      int
	CacheCleanupInterval time.Duration
	RedisURL             string // empty = L1 memory cache only

	HTTPTimeout  time.Duration
	MaxBodyBytes int64 // response body read cap

	ProxyEnabled  bool
	ProxyServers  []string
	ProxyUsername string
	ProxyPassword string

	OutputDir string
	HistoryDB string // empty = run history disabled

	HTTPClient    *http.Client   // fallback transport
	BrowserClient *BrowserClient // nil = plain HTTPClient used for all fetches
}

// Defaults fills zero-valued fields with production defaults.
func (c *Config) Defaults() {
	if c.RateLimit <= 0 {
		c.RateLimit = 30
	}
	if c.RateWindow <= 0 {
		c.RateWindow = time.Minute
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = time.Hour
	}
	if c.CacheMaxEntries <= 0 {
		c.CacheMaxEntries = 1000
	}
	if c.CacheCleanupInterval <= 0 {
		c.CacheCleanupInterval = 5 * time.Minute
	}
	if c.HTTPTimeout <= 0 {
		c.HTTPTimeout = 15 * time.Second
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = 4 * 1024 * 1024
	}
	if c.OutputDir == "" {
		c.OutputDir = "output"
	}
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{
			Timeout: c.HTTPTimeout,
			Transport: &http.Transport{
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     60 * time.Second,
			},
		}
	}
}
