package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TileRequests = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rtiles_requests_total",
		Help: "Total number of tile requests",
	})

	TileBytesServed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rtiles_bytes_served_total",
		Help: "Total number of tile payload bytes written to clients",
	})

	TileNotModified = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rtiles_not_modified_total",
		Help: "Total number of requests answered 304 from conditional validation",
	})

	AccessCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rtiles_access_cache_hits_total",
		Help: "Total number of permission cache hits",
	})

	AccessCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rtiles_access_cache_misses_total",
		Help: "Total number of permission cache misses",
	})

	AccessResolverCalls = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rtiles_access_resolver_calls_total",
		Help: "Total number of upstream permission authority calls",
	})

	AccessResolverFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rtiles_access_resolver_failures_total",
		Help: "Total number of failed or timed out authority calls",
	})

	ContentCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rtiles_content_cache_hits_total",
		Help: "Total number of tile content cache hits",
	})

	ContentCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rtiles_content_cache_misses_total",
		Help: "Total number of tile content cache misses",
	})

	StreamDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "rtiles_stream_duration_seconds",
		Help:    "Duration of tile payload streaming in seconds",
		Buckets: prometheus.DefBuckets,
	})
)
