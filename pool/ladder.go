package pool

import (
	"github.com/sirupsen/logrus"

	"github.com/vramkit/devicepool/driver"
	"github.com/vramkit/devicepool/stats"
)

// Steps are the sub-steps a pool's Alloc plugs into the shared ladder.
// Scan and compactAndScan never fail outright (a miss just
// means "not found"); the two driver-touching steps can return a
// DRIVER_FAULT error, which aborts the ladder immediately rather than
// continuing to retry.
type Steps struct {
	// Scan performs sub-step (a): a scan of the pool's own free-list(s).
	Scan func() (driver.Handle, bool)

	// DriverAlloc performs sub-step (b): a direct call to the driver.
	DriverAlloc func() (driver.Handle, error)

	// CompactAndScan performs sub-step (c) in phases 2/3 for the
	// SplittingPool only: coalesce free blocks, then scan again. Left nil
	// for pools that don't split (Dummy, Simple).
	CompactAndScan func() (driver.Handle, bool)

	// ReclaimAndDriverAlloc performs the final sub-step of every phase:
	// release reclaimable cached buffers back to the driver, then retry
	// the driver allocation.
	ReclaimAndDriverAlloc func() (driver.Handle, error)
}

// Ladder runs the shared three-phase scan -> driver -> GC+reclaim state
// machine on behalf of a Pool's Alloc implementation.
type Ladder struct {
	GC      driver.GCHint
	Counter *stats.Counters
	Log     logrus.FieldLogger
}

// NewLadder creates a Ladder. log may be nil, in which case the standard
// logger is used.
func NewLadder(gc driver.GCHint, counter *stats.Counters, log logrus.FieldLogger) *Ladder {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if gc == nil {
		gc = driver.NoopGC
	}
	return &Ladder{GC: gc, Counter: counter, Log: log}
}

// Run drives steps through all three phases, returning the first non-nil
// handle produced, or (nil, nil) if every phase exhausted every sub-step
// without error — the caller (a Pool's Alloc) is expected to turn that
// into poolerr.ErrOutOfMemory, since only it knows the requested size to
// put in the error message.
func (l *Ladder) Run(steps Steps) (driver.Handle, error) {
	if l.Counter != nil {
		l.Counter.RecordLadderPhase(1)
	}
	if h, err := l.phase1(steps); h != nil || err != nil {
		return h, err
	}

	l.Log.Warn("fallback ladder: phase 1 exhausted, requesting incremental GC")
	if l.Counter != nil {
		l.Counter.RecordLadderPhase(2)
	}
	l.GC(false)
	if h, err := l.phase2or3(steps); h != nil || err != nil {
		return h, err
	}

	l.Log.Warn("fallback ladder: phase 2 exhausted, requesting full GC")
	if l.Counter != nil {
		l.Counter.RecordLadderPhase(3)
	}
	l.GC(true)
	if h, err := l.phase2or3(steps); h != nil || err != nil {
		return h, err
	}

	return nil, nil
}

func (l *Ladder) phase1(steps Steps) (driver.Handle, error) {
	if steps.Scan != nil {
		if h, ok := steps.Scan(); ok {
			return h, nil
		}
	}
	if steps.DriverAlloc != nil {
		h, err := steps.DriverAlloc()
		if err != nil {
			return nil, err
		}
		if h != nil {
			return h, nil
		}
	}
	if steps.ReclaimAndDriverAlloc != nil {
		return steps.ReclaimAndDriverAlloc()
	}
	return nil, nil
}

// phase2or3 is identical sub-step ordering for both GC-preluded phases:
// scan, driver alloc, [compact+scan], reclaim+driver alloc.
func (l *Ladder) phase2or3(steps Steps) (driver.Handle, error) {
	if steps.Scan != nil {
		if h, ok := steps.Scan(); ok {
			return h, nil
		}
	}
	if steps.DriverAlloc != nil {
		h, err := steps.DriverAlloc()
		if err != nil {
			return nil, err
		}
		if h != nil {
			return h, nil
		}
	}
	if steps.CompactAndScan != nil {
		if h, ok := steps.CompactAndScan(); ok {
			return h, nil
		}
	}
	if steps.ReclaimAndDriverAlloc != nil {
		return steps.ReclaimAndDriverAlloc()
	}
	return nil, nil
}
