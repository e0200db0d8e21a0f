package pool

import (
	"context"
	"math"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/vramkit/devicepool/driver"
	"github.com/vramkit/devicepool/poolerr"
	"github.com/vramkit/devicepool/stats"
)

// oneMiB is the SimplePool's small/large scan-policy threshold.
const oneMiB = 1 << 20

// maxOversize implements the tiered oversize policy: requests at
// or under 1 MiB accept any fit (small buffers rarely waste much); larger
// requests refuse anything more than 4x oversized.
func maxOversize(sz uint64) uint64 {
	if sz <= oneMiB {
		return math.MaxUint64
	}
	return 4 * sz
}

// SimplePool is a single ordered free-list of raw driver buffers: no
// splitting or merging, a buffer keeps the exact size the driver gave it.
type SimplePool struct {
	shim    *driver.Shim
	ladder  *Ladder
	counter *stats.Counters
	log     logrus.FieldLogger

	mu        sync.Mutex
	available orderedSet[driver.Handle]
	allocated map[uintptr]driver.Handle
}

// NewSimplePool creates a SimplePool over dev, using gc as the GC hint.
func NewSimplePool(dev driver.Device, gc driver.GCHint) *SimplePool {
	counter := stats.NewCounters(string(Simple))
	log := logrus.StandardLogger().WithField("pool", Simple)
	return &SimplePool{
		shim:      driver.NewShim(dev, counter, log),
		ladder:    NewLadder(gc, counter, log),
		counter:   counter,
		log:       log,
		allocated: make(map[uintptr]driver.Handle),
	}
}

// Init implements Pool.
func (p *SimplePool) Init(cfg Config) error {
	if cfg.Limit > 0 {
		p.shim = p.shim.WithLimit(cfg.Limit)
	}
	return nil
}

// Deinit implements Pool.
func (p *SimplePool) Deinit() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.allocated) != 0 {
		return poolerr.ErrInvalidState.New("deinit called with outstanding handles")
	}
	for _, h := range p.available.Items() {
		if err := p.shim.ActualFree(h); err != nil {
			return err
		}
	}
	p.available = orderedSet[driver.Handle]{}
	return nil
}

// Alloc implements Pool.
func (p *SimplePool) Alloc(ctx context.Context, nbytes uint64) (driver.Handle, error) {
	p.counter.RecordAllocRequest(nbytes)

	h, err := p.ladder.Run(Steps{
		Scan:        func() (driver.Handle, bool) { return p.scan(nbytes) },
		DriverAlloc: func() (driver.Handle, error) { return p.shim.ActualAlloc(nbytes) },
		ReclaimAndDriverAlloc: func() (driver.Handle, error) {
			p.reclaim(nbytes)
			return p.shim.ActualAlloc(nbytes)
		},
	})
	if err != nil {
		return nil, err
	}
	if h == nil {
		p.counter.RecordOOM()
		return nil, poolerr.ErrOutOfMemory.New(nbytes)
	}

	p.mu.Lock()
	p.allocated[h.Address()] = h
	p.mu.Unlock()
	p.publishGauges()
	return h, nil
}

// scan implements the scan policy under the pool lock.
func (p *SimplePool) scan(nbytes uint64) (driver.Handle, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	bound := maxOversize(nbytes)
	h, ok := p.available.ScanFirst(nbytes,
		func(driver.Handle) bool { return true },
		func(h driver.Handle) bool {
			return bound != math.MaxUint64 && h.Size() > bound
		},
	)
	if !ok {
		return nil, false
	}
	p.available.Remove(h)
	return h, true
}

// reclaim pops largest AVAILABLE
// buffers and return each to the driver until cumulative freed >= sz or
// the free-list is empty.
func (p *SimplePool) reclaim(sz uint64) {
	var freed uint64
	for freed < sz {
		p.mu.Lock()
		h, ok := p.available.PopLargest()
		p.mu.Unlock()
		if !ok {
			return
		}
		if err := p.shim.ActualFree(h); err != nil {
			p.log.WithError(err).Error("reclaim: driver free failed")
			return
		}
		freed += h.Size()
	}
}

// Free implements Pool: push the buffer into available, no merging.
func (p *SimplePool) Free(h driver.Handle) error {
	p.counter.RecordFreeRequest(h.Size())

	p.mu.Lock()
	if _, ok := p.allocated[h.Address()]; !ok {
		p.mu.Unlock()
		return poolerr.ErrInvalidState.New("double-free or free of unknown handle")
	}
	delete(p.allocated, h.Address())
	p.available.Insert(h)
	p.mu.Unlock()

	p.publishGauges()
	return nil
}

// UsedBytes implements Pool.
func (p *SimplePool) UsedBytes() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	var total uint64
	for _, h := range p.allocated {
		total += h.Size()
	}
	return total
}

// CachedBytes implements Pool.
func (p *SimplePool) CachedBytes() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.available.TotalBytes()
}

// Stats implements Pool.
func (p *SimplePool) Stats() stats.Snapshot {
	snap := p.counter.Snapshot()
	snap.UsedBytes = p.UsedBytes()
	snap.CachedBytes = p.CachedBytes()
	return snap
}

// DumpState implements Pool.
func (p *SimplePool) DumpState() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	s := "simple pool:\nallocated:\n"
	for addr, h := range p.allocated {
		s += formatEntry(addr, h.Size())
	}
	s += "available:\n"
	for _, h := range p.available.Items() {
		s += formatEntry(h.Address(), h.Size())
	}
	return s
}

func (p *SimplePool) publishGauges() {
	p.counter.SetGauges(p.UsedBytes(), p.CachedBytes(), p.shim.Usage())
}
