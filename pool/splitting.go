package pool

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/olekukonko/tablewriter"
	"github.com/sirupsen/logrus"

	"github.com/vramkit/devicepool/driver"
	"github.com/vramkit/devicepool/poolerr"
	"github.com/vramkit/devicepool/stats"
)

// Size classes for SplittingPool's segregated free-lists. Each class has
// its own split/reclaim granularity so a SMALL request never fragments a
// HUGE arena and vice versa.
const (
	classSmall = iota
	classLarge
	classHuge

	numClasses = classHuge + 1

	smallMax = 1 << 20 // 1 MiB
	largeMax = 1 << 25 // 32 MiB

	smallGranularity = 512
	largeGranularity = 128 * 1024
	hugeGranularity  = 1 << 20
)

var classOrder = [numClasses]int{classSmall, classLarge, classHuge}

func classOf(sz uint64) int {
	switch {
	case sz <= smallMax:
		return classSmall
	case sz <= largeMax:
		return classLarge
	default:
		return classHuge
	}
}

func granularityFor(class int) uint64 {
	switch class {
	case classSmall:
		return smallGranularity
	case classLarge:
		return largeGranularity
	default:
		return hugeGranularity
	}
}

// maxOverhead bounds how much bigger than the request a reused block may
// be, per class: SMALL and LARGE accept any fit (never bounded — there's
// nowhere smaller to go within the class), HUGE requires an exact
// match, since a HUGE block must always be returnable to the driver whole
// and is never split.
func maxOverhead(class int) uint64 {
	if class == classHuge {
		return 0
	}
	return ^uint64(0)
}

func classLabel(class int) string {
	switch class {
	case classSmall:
		return "small"
	case classLarge:
		return "large"
	default:
		return "huge"
	}
}

func roundUp(n, granularity uint64) uint64 {
	if n%granularity == 0 {
		return n
	}
	return n + (granularity - n%granularity)
}

// SplittingPool splits driver arenas into sibling-linked blocks on alloc and
// coalesces adjacent free blocks back together, segregated into SMALL,
// LARGE and HUGE size classes, each with its own split/merge granularity.
type SplittingPool struct {
	shim    *driver.Shim
	ladder  *Ladder
	counter *stats.Counters
	log     logrus.FieldLogger

	mu sync.Mutex
	// coalesceMu is a second, narrower lock that only guards the
	// neighbor-merge step; compactAll holds it for its whole pass. Free()
	// takes it with TryLock, so a free never waits for a compact pass — it
	// just leaves its block AVAILABLE-but-unmerged for the next compact
	// pass to pick up. Free still takes mu, so it does wait while a scan,
	// reclaim step or compact pass holds mu.
	coalesceMu sync.Mutex

	// allowSplit mirrors Config.AllowSplit: false reproduces the older
	// variant where arenas are never split or coalesced, only ever reused
	// on an exact size match and returned to the driver whole.
	allowSplit bool

	free      [numClasses]orderedSet[*block]
	allocated map[uintptr]*block
}

// NewSplittingPool creates a SplittingPool over dev, using gc as the GC
// hint.
func NewSplittingPool(dev driver.Device, gc driver.GCHint) *SplittingPool {
	counter := stats.NewCounters(string(Split))
	log := logrus.StandardLogger().WithField("pool", Split)
	return &SplittingPool{
		shim:      driver.NewShim(dev, counter, log),
		ladder:    NewLadder(gc, counter, log),
		counter:   counter,
		log:       log,
		allocated: make(map[uintptr]*block),
	}
}

// Init implements Pool.
func (p *SplittingPool) Init(cfg Config) error {
	if cfg.Limit > 0 {
		p.shim = p.shim.WithLimit(cfg.Limit)
	}
	p.allowSplit = cfg.AllowSplit
	return nil
}

// Deinit implements Pool: every live handle must already have been freed,
// and every cached arena must fully recombine before it can be handed back
// to the driver — a partially split arena can never be returned.
func (p *SplittingPool) Deinit() error {
	p.mu.Lock()
	if len(p.allocated) != 0 {
		p.mu.Unlock()
		return poolerr.ErrInvalidState.New("deinit called with outstanding handles")
	}
	p.mu.Unlock()

	p.compactAll()

	p.mu.Lock()
	defer p.mu.Unlock()
	for _, class := range classOrder {
		for _, b := range p.free[class].Items() {
			if !b.isWholeArena() {
				return poolerr.ErrInvalidState.New("deinit: cached arena did not fully recombine")
			}
		}
	}
	for _, class := range classOrder {
		for _, b := range append([]*block(nil), p.free[class].Items()...) {
			if err := p.shim.ActualFree(b.base); err != nil {
				return err
			}
			p.free[class].Remove(b)
		}
	}
	return nil
}

// Alloc implements Pool.
func (p *SplittingPool) Alloc(ctx context.Context, nbytes uint64) (driver.Handle, error) {
	p.counter.RecordAllocRequest(nbytes)

	h, err := p.ladder.Run(Steps{
		Scan:           func() (driver.Handle, bool) { return p.scan(nbytes) },
		DriverAlloc:    func() (driver.Handle, error) { return p.driverAlloc(nbytes) },
		CompactAndScan: func() (driver.Handle, bool) { p.compactAll(); return p.scan(nbytes) },
		ReclaimAndDriverAlloc: func() (driver.Handle, error) {
			p.reclaimAll(nbytes)
			return p.driverAlloc(nbytes)
		},
	})
	if err != nil {
		return nil, err
	}
	if h == nil {
		p.counter.RecordOOM()
		return nil, poolerr.ErrOutOfMemory.New(nbytes)
	}

	b := h.(*block)
	p.mu.Lock()
	p.allocated[b.Address()] = b
	p.mu.Unlock()
	p.publishGauges()
	return b, nil
}

// scan looks for a fit in nbytes's own size class only; classes are kept
// segregated so a request never fragments an arena from a different class.
// SMALL/LARGE accept any sized fit (to be split down to nbytes); HUGE
// requires an exact match, since a HUGE block is never split.
func (p *SplittingPool) scan(nbytes uint64) (driver.Handle, bool) {
	class := classOf(nbytes)
	bound := maxOverhead(class)

	p.mu.Lock()
	defer p.mu.Unlock()

	fit := func(*block) bool { return true }
	if !p.allowSplit {
		fit = func(b *block) bool { return b.Size() == nbytes }
	}
	found, ok := p.free[class].ScanFirst(nbytes, fit,
		func(b *block) bool { return bound != ^uint64(0) && b.Size()-nbytes > bound },
	)
	if !ok {
		return nil, false
	}
	p.free[class].Remove(found)

	if !p.allowSplit {
		found.state = blockAllocated
		return found, true
	}

	head, remainder := split(found, nbytes, class)
	if remainder != nil {
		p.free[classOf(remainder.Size())].Insert(remainder)
	}
	return head, true
}

// driverAlloc asks the driver for a fresh arena rounded up to the class
// granularity, then carves exactly nbytes off the front when split allows
// it; if the remainder would fall in a different class, the whole rounded
// arena is returned as the allocation.
func (p *SplittingPool) driverAlloc(nbytes uint64) (driver.Handle, error) {
	class := classOf(nbytes)
	allocSize := roundUp(nbytes, granularityFor(class))

	h, err := p.shim.ActualAlloc(allocSize)
	if err != nil {
		return nil, err
	}
	if h == nil {
		return nil, nil
	}

	arena := newArena(h)
	if !p.allowSplit {
		arena.state = blockAllocated
		return arena, nil
	}

	head, remainder := split(arena, nbytes, class)
	if remainder != nil {
		p.mu.Lock()
		p.free[classOf(remainder.Size())].Insert(remainder)
		p.mu.Unlock()
	}
	return head, nil
}

// reclaimAll walks classes SMALL -> LARGE -> HUGE, returning only
// whole-arena AVAILABLE blocks to the driver (a split block can never be
// returned piecemeal) until at least nbytes has been freed or nothing
// reclaimable remains.
func (p *SplittingPool) reclaimAll(nbytes uint64) {
	var freed uint64
	for _, class := range classOrder {
		for freed < nbytes {
			b, ok := p.popWholeArena(class)
			if !ok {
				break
			}
			if err := p.shim.ActualFree(b.base); err != nil {
				p.log.WithError(err).Error("reclaim: driver free failed")
				return
			}
			freed += b.Size()
		}
	}
}

func (p *SplittingPool) popWholeArena(class int) (*block, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	items := p.free[class].Items()
	for i := len(items) - 1; i >= 0; i-- {
		b := items[i]
		if b.isWholeArena() {
			p.free[class].Remove(b)
			return b, true
		}
	}
	return nil, false
}

// Free implements Pool. It always records the free and parks the block in
// its size class's free-list as AVAILABLE; the neighbor-merge is attempted
// opportunistically and skipped (not blocked on) if a compact pass already
// holds the merge lock.
func (p *SplittingPool) Free(h driver.Handle) error {
	b, ok := h.(*block)
	if !ok {
		return poolerr.ErrInvalidState.New("splitting pool: handle did not originate from this pool")
	}
	p.counter.RecordFreeRequest(b.Size())

	p.mu.Lock()
	if _, ok := p.allocated[b.Address()]; !ok {
		p.mu.Unlock()
		return poolerr.ErrInvalidState.New("double-free or free of unknown handle")
	}
	delete(p.allocated, b.Address())
	b.state = blockAvailable
	p.free[classOf(b.Size())].Insert(b)
	p.mu.Unlock()

	if p.coalesceMu.TryLock() {
		p.mu.Lock()
		p.coalesceLocked(b)
		p.mu.Unlock()
		p.coalesceMu.Unlock()
	}

	p.publishGauges()
	return nil
}

// coalesceLocked merges b with any immediately AVAILABLE siblings. Callers
// must hold mu.
func (p *SplittingPool) coalesceLocked(b *block) {
	p.free[classOf(b.Size())].Remove(b)
	if b.next != nil && b.next.state == blockAvailable {
		p.free[classOf(b.next.Size())].Remove(b.next)
	}
	if b.prev != nil && b.prev.state == blockAvailable {
		p.free[classOf(b.prev.Size())].Remove(b.prev)
	}
	merged := coalesce(b)
	p.free[classOf(merged.Size())].Insert(merged)
}

// compactAll forces a full coalescing pass over every class, used by the
// fallback ladder's compact-and-scan sub-step and by Deinit, which needs
// every cached arena to fully recombine before it can be freed to the
// driver.
func (p *SplittingPool) compactAll() {
	p.coalesceMu.Lock()
	defer p.coalesceMu.Unlock()
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, class := range classOrder {
		for _, b := range append([]*block(nil), p.free[class].Items()...) {
			if b.state != blockAvailable {
				continue
			}
			nextFree := b.next != nil && b.next.state == blockAvailable
			prevFree := b.prev != nil && b.prev.state == blockAvailable
			if !nextFree && !prevFree {
				continue
			}
			p.free[classOf(b.Size())].Remove(b)
			if nextFree {
				p.free[classOf(b.next.Size())].Remove(b.next)
			}
			if prevFree {
				p.free[classOf(b.prev.Size())].Remove(b.prev)
			}
			merged := coalesce(b)
			p.free[classOf(merged.Size())].Insert(merged)
		}
	}
}

// UsedBytes implements Pool.
func (p *SplittingPool) UsedBytes() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	var total uint64
	for _, b := range p.allocated {
		total += b.Size()
	}
	return total
}

// CachedBytes implements Pool.
func (p *SplittingPool) CachedBytes() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	var total uint64
	for _, class := range classOrder {
		total += p.free[class].TotalBytes()
	}
	return total
}

// Stats implements Pool.
func (p *SplittingPool) Stats() stats.Snapshot {
	snap := p.counter.Snapshot()
	snap.UsedBytes = p.UsedBytes()
	snap.CachedBytes = p.CachedBytes()
	return snap
}

// DumpState implements Pool, rendering a table of every ALLOCATED and
// AVAILABLE block, used in the OOM failure report.
func (p *SplittingPool) DumpState() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	var sb strings.Builder
	table := tablewriter.NewWriter(&sb)
	table.SetHeader([]string{"class", "state", "addr", "size", "whole arena"})

	for addr, b := range p.allocated {
		table.Append([]string{
			classLabel(classOf(b.Size())),
			blockAllocated.String(),
			fmt.Sprintf("0x%x", addr),
			fmt.Sprintf("%d", b.Size()),
			fmt.Sprintf("%v", b.isWholeArena()),
		})
	}
	for _, class := range classOrder {
		for _, b := range p.free[class].Items() {
			table.Append([]string{
				classLabel(class),
				blockAvailable.String(),
				fmt.Sprintf("0x%x", b.Address()),
				fmt.Sprintf("%d", b.Size()),
				fmt.Sprintf("%v", b.isWholeArena()),
			})
		}
	}
	table.Render()
	return sb.String()
}

func (p *SplittingPool) publishGauges() {
	p.counter.SetGauges(p.UsedBytes(), p.CachedBytes(), p.shim.Usage())
}
