package stats

// Snapshot is a point-in-time copy of a pool's Counters, used by the
// dispatcher's exit summary and by devicepoolctl's stats subcommand. It
// supplements the required UsedBytes/CachedBytes accessors with the full
// request/driver/OOM counter set.
type Snapshot struct {
	PoolName string

	Requests uint64
	Frees    uint64

	DriverAllocs uint64
	DriverFrees  uint64

	BytesRequested uint64
	BytesFreed     uint64
	DriverBytesIn  uint64
	DriverBytesOut uint64

	OOMCount uint64

	UsedBytes   uint64
	CachedBytes uint64
}
