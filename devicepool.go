// Package devicepool is a user-space pool allocator sitting between an
// application and a device driver's raw allocation primitive. Three
// interchangeable pooling strategies (pool.Dummy, pool.Simple, pool.Split)
// share a uniform contract; Dispatcher selects one at init, routes every
// Alloc/Free through it, and owns the surrounding observability and
// configuration surface.
package devicepool

import (
	"context"
	"sync"

	"github.com/opentracing/opentracing-go"
	"github.com/sirupsen/logrus"

	"github.com/vramkit/devicepool/driver"
	"github.com/vramkit/devicepool/pool"
	"github.com/vramkit/devicepool/poolerr"
	"github.com/vramkit/devicepool/stats"
)

// Dispatcher is the single entry point applications use: it owns the
// active pool, the logger, and the tracer, and can swap the active pool at
// runtime via SwitchPool.
type Dispatcher struct {
	mu  sync.RWMutex
	p   pool.Pool
	dev driver.Device
	gc  driver.GCHint
	cfg Config
	log logrus.FieldLogger
}

// NewDispatcher builds a Dispatcher, selects the pool named by cfg.PoolName
// and initializes it with cfg.MemLimit.
func NewDispatcher(cfg Config, dev driver.Device, gc driver.GCHint) (*Dispatcher, error) {
	log := logrus.StandardLogger().WithField("component", "devicepool")
	d := &Dispatcher{
		dev: dev,
		gc:  gc,
		cfg: cfg,
		log: log,
	}

	p := pool.New(cfg.PoolName, dev, gc)
	if err := p.Init(pool.Config{Limit: cfg.MemLimit, AllowSplit: true}); err != nil {
		return nil, err
	}
	d.p = p

	log.WithField("pool", cfg.PoolName).Info("dispatcher initialized")
	return d, nil
}

func (d *Dispatcher) currentPool() pool.Pool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.p
}

// Alloc routes an allocation request to the active pool, opening a tracing
// span around the call and asserting the pool honored its contract (the
// returned handle is never smaller than requested).
func (d *Dispatcher) Alloc(ctx context.Context, nbytes uint64) (driver.Handle, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "devicepool.alloc")
	defer span.Finish()

	p := d.currentPool()
	h, err := p.Alloc(ctx, nbytes)
	if err != nil {
		if poolerr.ErrOutOfMemory.Is(err) {
			d.log.WithField("dump", p.DumpState()).Error("allocation failed: pool exhausted")
		} else {
			d.log.WithError(err).Error("allocation failed")
		}
		return nil, err
	}
	if h.Size() < nbytes {
		return nil, poolerr.ErrInvalidState.New("pool returned a handle smaller than requested")
	}
	return h, nil
}

// Free routes a free back to whichever pool is currently active.
func (d *Dispatcher) Free(ctx context.Context, h driver.Handle) error {
	span, _ := opentracing.StartSpanFromContext(ctx, "devicepool.free")
	defer span.Finish()

	p := d.currentPool()
	if err := p.Free(h); err != nil {
		d.log.WithError(err).Error("free failed")
		return err
	}
	return nil
}

// Stats returns the active pool's stats snapshot.
func (d *Dispatcher) Stats() stats.Snapshot {
	return d.currentPool().Stats()
}

// DumpState returns the active pool's ALLOCATED/AVAILABLE dump.
func (d *Dispatcher) DumpState() string {
	return d.currentPool().DumpState()
}

// SwitchPool deinitializes the current pool (failing if it still has live
// handles) and replaces it with a freshly initialized pool of the named
// strategy.
func (d *Dispatcher) SwitchPool(name pool.Name) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.p.Deinit(); err != nil {
		return err
	}

	next := pool.New(name, d.dev, d.gc)
	if err := next.Init(pool.Config{Limit: d.cfg.MemLimit, AllowSplit: true}); err != nil {
		return err
	}

	d.log.WithFields(logrus.Fields{"from": d.cfg.PoolName, "to": name}).Info("switch_pool")
	d.p = next
	d.cfg.PoolName = name
	return nil
}

// Close deinitializes the active pool, releasing any cached buffers back
// to the driver. Callers must have freed every outstanding handle first.
func (d *Dispatcher) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.p.Deinit()
}
