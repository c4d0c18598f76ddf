package engine

import (
	"net/http"
	"time"
)

// Config holds all engine configuration, injected from main.
type Config struct {
	BaseURL  string // TikTok web origin, e.g. https://www.tiktok.com
	TikwmURL string // aggregation API origin, e.g. https://www.tikwm.com/api

	FetchTimeout     time.Duration // per-strategy upstream budget
	ShortLinkTimeout time.Duration // HEAD redirect resolution budget

	RateLimitCount    int           // requests allowed per window
	RateLimitWindow   time.Duration // counting window length
	RateLimitCooldown time.Duration // penalty anchored to window start

	HTTPClient    *http.Client
	BrowserClient *BrowserClient // nil = plain client used for page scrapes
	YtdlpPath     string         // empty = extractor strategy disabled
}

var cfg Config

// Cfg exposes the engine configuration for sub-packages.
// Always points to the current cfg value.
var Cfg = &cfg

// Init initializes the engine with the given configuration.
func Init(c Config) {
	cfg = c
	Cfg = &cfg
}
