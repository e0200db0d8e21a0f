package stats

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var poolLabelNames = []string{"pool"}

// Pool-level metrics, one vector entry per active pool name (simple, split,
// dummy). Mirrors a driverLabelNames/driversRunning style vector family
// used to track pool scaling, here tracking byte budgets instead of
// process counts.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "devicepool_requests_total",
		Help: "The total number of alloc/free requests handled by the pool",
	}, append(poolLabelNames, "op"))

	driverCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "devicepool_driver_calls_total",
		Help: "The total number of calls made to the underlying device driver",
	}, append(poolLabelNames, "op"))

	usedBytes = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "devicepool_used_bytes",
		Help: "Bytes currently handed out to the application",
	}, poolLabelNames)

	cachedBytes = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "devicepool_cached_bytes",
		Help: "Bytes held in the pool's free-list(s), not handed out",
	}, poolLabelNames)

	driverUsageBytes = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "devicepool_driver_usage_bytes",
		Help: "Bytes currently held from the driver (used+cached)",
	}, poolLabelNames)

	oomTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "devicepool_oom_total",
		Help: "The total number of allocations that failed with OUT_OF_MEMORY",
	}, poolLabelNames)

	ladderPhaseTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "devicepool_ladder_phase_total",
		Help: "The number of times each fallback ladder phase was entered",
	}, append(poolLabelNames, "phase"))
)
