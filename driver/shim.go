package driver

import (
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.uber.org/atomic"

	"github.com/vramkit/devicepool/poolerr"
	"github.com/vramkit/devicepool/stats"
)

// limitRetryMaxElapsed bounds how long the shim will retry actual_alloc
// against a transient byte-limit rejection ("retry decisions
// are meant to be deterministic; this only smooths over a race against an
// in-flight concurrent Free, not a real capacity shortfall).
const limitRetryMaxElapsed = 5 * time.Millisecond

// Shim wraps a Device, tracking usage against an optional byte limit and
// recording stats.
type Shim struct {
	dev     Device
	limit   uint64 // 0 means unlimited
	hasLim  bool
	usage   atomic.Uint64
	counter *stats.Counters
	log     logrus.FieldLogger
}

// NewShim wraps dev with no usage limit. Use WithLimit to enforce one.
func NewShim(dev Device, counter *stats.Counters, log logrus.FieldLogger) *Shim {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Shim{dev: dev, counter: counter, log: log}
}

// WithLimit sets the global byte budget the shim enforces. A limit of 0
// means "no limit" and is the zero-value default.
func (s *Shim) WithLimit(limit uint64) *Shim {
	s.limit = limit
	s.hasLim = limit > 0
	return s
}

// Usage returns the number of bytes currently held from the driver (the
// sum over every buffer ever allocated minus every one freed).
func (s *Shim) Usage() uint64 {
	return s.usage.Load()
}

// ActualAlloc asks the driver for nbytes. It returns a nil handle (no
// error) if the request would exceed the configured limit or if the
// driver itself reports OOM; any other driver failure is returned wrapped
// as poolerr.ErrDriverFault.
func (s *Shim) ActualAlloc(nbytes uint64) (Handle, error) {
	if s.hasLim && !s.reserve(nbytes) {
		s.log.WithField("nbytes", nbytes).Debug("actual_alloc: rejected by usage limit")
		return nil, nil
	}

	h, err := s.dev.Alloc(nbytes)
	if err != nil {
		if errors.Is(err, ErrDriverOOM) {
			if s.hasLim {
				s.usage.Sub(nbytes) // release the reservation, driver never took it
			}
			s.log.WithField("nbytes", nbytes).Debug("actual_alloc: driver reported OOM")
			return nil, nil
		}
		if s.hasLim {
			s.usage.Sub(nbytes)
		}
		wrapped := errors.Wrap(err, "device driver fault during alloc")
		s.log.WithError(wrapped).Error("actual_alloc: driver fault")
		return nil, poolerr.ErrDriverFault.Wrap(wrapped)
	}

	if !s.hasLim {
		s.usage.Add(nbytes)
	}
	if s.counter != nil {
		s.counter.RecordDriverAlloc(nbytes)
	}
	return h, nil
}

// reserve attempts to account for nbytes against the limit, retrying a
// short bounded backoff in case a concurrent Free is mid-flight and would
// free enough headroom. Returns false if the limit truly can't be met.
func (s *Shim) reserve(nbytes uint64) bool {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 50 * time.Microsecond
	b.MaxElapsedTime = limitRetryMaxElapsed

	ok := false
	_ = backoff.Retry(func() error {
		cur := s.usage.Load()
		if cur+nbytes > s.limit {
			return errBudgetExceeded
		}
		if s.usage.CompareAndSwap(cur, cur+nbytes) {
			ok = true
			return nil
		}
		return errBudgetExceeded // lost the race, retry
	}, b)
	return ok
}

var errBudgetExceeded = errors.New("usage limit exceeded")

// ActualFree releases h back to the driver, unless its device context is
// no longer valid (in which case the owning context already released it,
// and calling the driver would be an error). usage is decremented
// unconditionally either way.
func (s *Shim) ActualFree(h Handle) error {
	sz := h.Size()
	defer s.usage.Sub(sz)

	if !h.ContextValid() {
		s.log.WithField("size", sz).Debug("actual_free: context gone, skipping driver free")
		return nil
	}

	if err := s.dev.Free(h); err != nil {
		wrapped := errors.Wrap(err, "device driver fault during free")
		s.log.WithError(wrapped).Error("actual_free: driver fault")
		return poolerr.ErrDriverFault.Wrap(wrapped)
	}

	if s.counter != nil {
		s.counter.RecordDriverFree(sz)
	}
	return nil
}
