package pool

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/vramkit/devicepool/driver"
	"github.com/vramkit/devicepool/poolerr"
	"github.com/vramkit/devicepool/stats"
)

// DummyPool is the passthrough baseline: no caching, every
// request goes straight to the driver shim. It still drives the shared
// ladder so GC gets its incremental/full opportunities before OOM, but
// only the driver-alloc sub-step is wired in (there is nothing to scan or
// reclaim).
type DummyPool struct {
	shim    *driver.Shim
	ladder  *Ladder
	counter *stats.Counters
	log     logrus.FieldLogger

	mu        sync.Mutex
	allocated map[uintptr]driver.Handle
}

// NewDummyPool creates a DummyPool over dev, using gc as the GC hint.
func NewDummyPool(dev driver.Device, gc driver.GCHint) *DummyPool {
	counter := stats.NewCounters(string(Dummy))
	log := logrus.StandardLogger().WithField("pool", Dummy)
	return &DummyPool{
		shim:      driver.NewShim(dev, counter, log),
		ladder:    NewLadder(gc, counter, log),
		counter:   counter,
		log:       log,
		allocated: make(map[uintptr]driver.Handle),
	}
}

// Init implements Pool.
func (p *DummyPool) Init(cfg Config) error {
	if cfg.Limit > 0 {
		p.shim = p.shim.WithLimit(cfg.Limit)
	}
	return nil
}

// Deinit implements Pool.
func (p *DummyPool) Deinit() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.allocated) != 0 {
		return poolerr.ErrInvalidState.New("deinit called with outstanding handles")
	}
	return nil
}

// Alloc implements Pool.
func (p *DummyPool) Alloc(ctx context.Context, nbytes uint64) (driver.Handle, error) {
	p.counter.RecordAllocRequest(nbytes)

	h, err := p.ladder.Run(Steps{
		DriverAlloc: func() (driver.Handle, error) { return p.shim.ActualAlloc(nbytes) },
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

// Free implements Pool.
func (p *DummyPool) Free(h driver.Handle) error {
	p.counter.RecordFreeRequest(h.Size())

	p.mu.Lock()
	if _, ok := p.allocated[h.Address()]; !ok {
		p.mu.Unlock()
		return poolerr.ErrInvalidState.New("double-free or free of unknown handle")
	}
	delete(p.allocated, h.Address())
	p.mu.Unlock()

	err := p.shim.ActualFree(h)
	p.publishGauges()
	return err
}

// UsedBytes implements Pool.
func (p *DummyPool) UsedBytes() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	var total uint64
	for _, h := range p.allocated {
		total += h.Size()
	}
	return total
}

// CachedBytes implements Pool. DummyPool never caches.
func (p *DummyPool) CachedBytes() uint64 { return 0 }

// Stats implements Pool.
func (p *DummyPool) Stats() stats.Snapshot {
	snap := p.counter.Snapshot()
	snap.UsedBytes = p.UsedBytes()
	snap.CachedBytes = 0
	return snap
}

// DumpState implements Pool.
func (p *DummyPool) DumpState() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	s := "dummy pool: no cache; allocated handles:\n"
	for addr, h := range p.allocated {
		s += formatEntry(addr, h.Size())
	}
	return s
}

func (p *DummyPool) publishGauges() {
	p.counter.SetGauges(p.UsedBytes(), 0, p.shim.Usage())
}
