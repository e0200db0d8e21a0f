package stats

import (
	"go.uber.org/atomic"
)

// Counters accumulates request/driver/byte counts for a single pool
// instance. It is safe for concurrent use; every field is an
// atomic so Free/Alloc never need to take the pool lock just to bump a
// counter.
type Counters struct {
	poolName string

	requests     atomic.Uint64
	frees        atomic.Uint64
	driverAllocs atomic.Uint64
	driverFrees  atomic.Uint64

	bytesRequested atomic.Uint64
	bytesFreed     atomic.Uint64
	driverBytesIn  atomic.Uint64
	driverBytesOut atomic.Uint64

	oomCount atomic.Uint64
}

// NewCounters creates a Counters bound to the given pool name, used as the
// pool label for the prometheus vectors in metrics.go and as the
// snapshot's PoolName.
func NewCounters(poolName string) *Counters {
	return &Counters{poolName: poolName}
}

// RecordAllocRequest records that an Alloc(nbytes) request was made.
func (c *Counters) RecordAllocRequest(nbytes uint64) {
	c.requests.Inc()
	c.bytesRequested.Add(nbytes)
	requestsTotal.WithLabelValues(c.poolName, "alloc").Inc()
}

// RecordFreeRequest records that a Free(handle) request was made.
func (c *Counters) RecordFreeRequest(nbytes uint64) {
	c.frees.Inc()
	c.bytesFreed.Add(nbytes)
	requestsTotal.WithLabelValues(c.poolName, "free").Inc()
}

// RecordDriverAlloc records a successful call to the driver's allocation
// primitive.
func (c *Counters) RecordDriverAlloc(nbytes uint64) {
	c.driverAllocs.Inc()
	c.driverBytesIn.Add(nbytes)
	driverCallsTotal.WithLabelValues(c.poolName, "alloc").Inc()
}

// RecordDriverFree records a call to the driver's free primitive.
func (c *Counters) RecordDriverFree(nbytes uint64) {
	c.driverFrees.Inc()
	c.driverBytesOut.Add(nbytes)
	driverCallsTotal.WithLabelValues(c.poolName, "free").Inc()
}

// RecordOOM records that an allocation exhausted the full fallback ladder.
func (c *Counters) RecordOOM() {
	c.oomCount.Inc()
	oomTotal.WithLabelValues(c.poolName).Inc()
}

// RecordLadderPhase records that the fallback ladder entered the given
// phase (1, 2 or 3) while serving a request.
func (c *Counters) RecordLadderPhase(phase int) {
	ladderPhaseTotal.WithLabelValues(c.poolName, phaseLabel(phase)).Inc()
}

func phaseLabel(phase int) string {
	switch phase {
	case 1:
		return "1"
	case 2:
		return "2"
	case 3:
		return "3"
	default:
		return "unknown"
	}
}

// SetGauges pushes the current used/cached/driver-usage byte counts to the
// prometheus gauges. Pools call this after every Alloc/Free so the exported
// gauges never lag the in-memory truth by more than one operation.
func (c *Counters) SetGauges(used, cached, driverUsage uint64) {
	usedBytes.WithLabelValues(c.poolName).Set(float64(used))
	cachedBytes.WithLabelValues(c.poolName).Set(float64(cached))
	driverUsageBytes.WithLabelValues(c.poolName).Set(float64(driverUsage))
}

// Snapshot returns a point-in-time copy of the counters, suitable for the
// dispatcher's exit summary or the devicepoolctl stats subcommand.
func (c *Counters) Snapshot() Snapshot {
	return Snapshot{
		PoolName:       c.poolName,
		Requests:       c.requests.Load(),
		Frees:          c.frees.Load(),
		DriverAllocs:   c.driverAllocs.Load(),
		DriverFrees:    c.driverFrees.Load(),
		BytesRequested: c.bytesRequested.Load(),
		BytesFreed:     c.bytesFreed.Load(),
		DriverBytesIn:  c.driverBytesIn.Load(),
		DriverBytesOut: c.driverBytesOut.Load(),
		OOMCount:       c.oomCount.Load(),
	}
}
