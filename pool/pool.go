// Package pool implements the three interchangeable pooling strategies
// (DummyPool, SimplePool, SplittingPool), the uniform
// contract they share, and the fallback ladder every one of
// them drives its Alloc through.
package pool

import (
	"context"

	"github.com/vramkit/devicepool/driver"
	"github.com/vramkit/devicepool/stats"
)

// Name identifies which pooling strategy is in effect; used for config
// selection and for labeling stats/metrics.
type Name string

const (
	Dummy Name = "dummy"
	Simple Name = "simple"
	Split  Name = "split"
)

// Config is the one-time setup a Pool.Init receives.
type Config struct {
	// Limit is the optional global byte budget enforced by the driver
	// shim. Zero means unlimited.
	Limit uint64

	// AllowSplit controls whether SplittingPool may split/coalesce
	// blocks. An older variant defaulted this to false; callers should
	// pass true unless specifically reproducing that legacy behavior.
	AllowSplit bool
}

// Pool is the uniform contract every pooling strategy implements
// supplemented with the read-only Stats/DumpState
// accessors.
type Pool interface {
	// Init performs one-time setup from cfg.
	Init(cfg Config) error
	// Deinit asserts no live (application-held) handles remain and
	// releases any cached buffers back to the driver.
	Deinit() error

	// Alloc returns a handle of at least nbytes, or poolerr.ErrOutOfMemory
	// if the full fallback ladder could not satisfy the request.
	Alloc(ctx context.Context, nbytes uint64) (driver.Handle, error)
	// Free releases h back to the pool (not necessarily to the driver).
	Free(h driver.Handle) error

	// UsedBytes is the sum of sizes of handles currently held by the
	// application.
	UsedBytes() uint64
	// CachedBytes is the sum of sizes held in the pool's free-list(s).
	CachedBytes() uint64

	// Stats returns a snapshot of the pool's counters.
	Stats() stats.Snapshot
	// DumpState renders every ALLOCATED and AVAILABLE entry the pool
	// knows about, used for the OOM failure report and
	// general debugging.
	DumpState() string
}

// New constructs the pool implementation selected by name.
func New(name Name, dev driver.Device, gc driver.GCHint) Pool {
	switch name {
	case Dummy:
		return NewDummyPool(dev, gc)
	case Simple:
		return NewSimplePool(dev, gc)
	case Split:
		return NewSplittingPool(dev, gc)
	default:
		return NewSplittingPool(dev, gc)
	}
}
