package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// ResolutionsTotal counts per-request resolution outcomes by decision
	ResolutionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tenantgate_resolutions_total",
		Help: "The number of tenant resolutions by decision",
	}, []string{"decision"})

	// ResolutionCacheRequests counts cache lookups by lookup kind and tier
	// (fresh, stale, miss, expired)
	ResolutionCacheRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tenantgate_resolution_cache_requests_total",
		Help: "The number of resolution cache lookups by kind and freshness tier",
	}, []string{"kind", "tier"})

	// ResolutionCacheFailOpen counts lookups answered from an old cache entry
	// because the synchronous directory re-fetch failed
	ResolutionCacheFailOpen = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tenantgate_resolution_cache_fail_open_total",
		Help: "The number of lookups served from a previously cached entry after a directory failure",
	}, []string{"kind"})

	// ResolutionCacheRefresh counts background refreshes by result
	ResolutionCacheRefresh = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tenantgate_resolution_cache_refresh_total",
		Help: "The number of background cache refreshes by result",
	}, []string{"result"})

	// DirectoryRequestDuration records the last directory call duration per
	// response code
	DirectoryRequestDuration = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "tenantgate_directory_request_duration_seconds",
		Help: "The time (in seconds) taken by directory API calls",
	}, []string{"code"})

	// DirectoryRequests counts directory API calls by response code
	DirectoryRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tenantgate_directory_requests_total",
		Help: "The number of directory API calls by response code",
	}, []string{"code"})

	// RateLimitSourceIPCachedEntries tracks the amount of source IPs known to
	// the rate limiter
	RateLimitSourceIPCachedEntries = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "tenantgate_rate_limit_source_ip_cached_entries",
		Help: "The number of source IP entries tracked by the rate limiter",
	}, []string{"op"})

	// RateLimitSourceIPCacheRequests counts rate limiter cache hits/misses
	RateLimitSourceIPCacheRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tenantgate_rate_limit_source_ip_cache_requests_total",
		Help: "The number of rate limiter cache lookups by result",
	}, []string{"op", "result"})

	// RateLimitSourceIPBlockedCount counts requests blocked by the source IP
	// rate limiter
	RateLimitSourceIPBlockedCount = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "tenantgate_rate_limit_source_ip_blocked_count",
		Help: "The number of requests blocked by the source IP rate limiter",
	}, []string{"enforced"})

	// LimitListenerMaxConns reports the configured connection limit
	LimitListenerMaxConns = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "tenantgate_limit_listener_max_conns",
		Help: "The configured connection limit shared between listeners",
	})

	// LimitListenerConcurrentConns tracks open connections across listeners
	LimitListenerConcurrentConns = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "tenantgate_limit_listener_concurrent_conns",
		Help: "The number of concurrent connections across all listeners",
	})

	// LimitListenerWaitingConns tracks connections waiting for a slot
	LimitListenerWaitingConns = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "tenantgate_limit_listener_waiting_conns",
		Help: "The number of connections waiting to be accepted",
	})
)

// Register all metrics collectors with the given registerer. Called once
// from appmain.
func Register(reg prometheus.Registerer) {
	reg.MustRegister(
		ResolutionsTotal,
		ResolutionCacheRequests,
		ResolutionCacheFailOpen,
		ResolutionCacheRefresh,
		DirectoryRequestDuration,
		DirectoryRequests,
		RateLimitSourceIPCachedEntries,
		RateLimitSourceIPCacheRequests,
		RateLimitSourceIPBlockedCount,
		LimitListenerMaxConns,
		LimitListenerConcurrentConns,
		LimitListenerWaitingConns,
	)
}
