package engine

import (
	"fmt"
	"strings"
	"sync/atomic"
)

// Metrics tracks operational counters across the engine.
var metrics struct {
	ProfileLookups   atomic.Int64
	VideoLookups     atomic.Int64
	StrategyFailures atomic.Int64
	RateChecks       atomic.Int64
	RateDenials      atomic.Int64
	ShortLinkHops    atomic.Int64
}

func IncrProfileLookups()   { metrics.ProfileLookups.Add(1) }
func IncrVideoLookups()     { metrics.VideoLookups.Add(1) }
func IncrStrategyFailures() { metrics.StrategyFailures.Add(1) }
func IncrRateChecks()       { metrics.RateChecks.Add(1) }
func IncrRateDenials()      { metrics.RateDenials.Add(1) }
func IncrShortLinkHops()    { metrics.ShortLinkHops.Add(1) }

// GetMetrics returns a snapshot of all metrics including cache stats.
func GetMetrics() map[string]int64 {
	hits, misses := CacheStats()
	return map[string]int64{
		"profile_lookups":   metrics.ProfileLookups.Load(),
		"video_lookups":     metrics.VideoLookups.Load(),
		"strategy_failures": metrics.StrategyFailures.Load(),
		"rate_checks":       metrics.RateChecks.Load(),
		"rate_denials":      metrics.RateDenials.Load(),
		"shortlink_hops":    metrics.ShortLinkHops.Load(),
		"cache_hits":        hits,
		"cache_misses":      misses,
	}
}

// FormatMetrics returns metrics as a simple text format for the HTTP endpoint.
func FormatMetrics() string {
	m := GetMetrics()
	var sb strings.Builder
	keys := []string{
		"profile_lookups", "video_lookups", "strategy_failures",
		"rate_checks", "rate_denials", "shortlink_hops",
		"cache_hits", "cache_misses",
	}
	for _, k := range keys {
		fmt.Fprintf(&sb, "%s %d\n", k, m[k])
	}
	return sb.String()
}
