package sdk

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	resolverCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "openrep_resolver_cache_hits_total",
		Help: "Identifier resolutions served from the in-process cache.",
	})

	resolverCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "openrep_resolver_cache_misses_total",
		Help: "Identifier resolutions that missed the in-process cache.",
	})

	mintLookups = promauto.NewCounter(prometheus.CounterOpts{
		Name: "openrep_mint_lookups_total",
		Help: "Identifier lookups that went to the network.",
	})

	extensionScanFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "openrep_extension_scan_fallbacks_total",
		Help: "Bulk extension scans that fell back to sequential fetches.",
	})

	extensionParseSkips = promauto.NewCounter(prometheus.CounterOpts{
		Name: "openrep_extension_parse_skips_total",
		Help: "Extension accounts skipped because their data failed to parse.",
	})
)
