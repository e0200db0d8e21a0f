// Package fakedriver is an in-memory stand-in for the external device
// driver primitive, modeled on pool_test.go's mockDriver/newMockDriver
// pattern: a small function-backed fake that implements the narrow
// interface the thing under test depends on.
package fakedriver

import (
	"sync"

	"github.com/oklog/ulid"

	"github.com/vramkit/devicepool/driver"
)

// handle is the fake's Handle implementation. address puts the device's
// allocation ordinal in the high bits (one 4 GiB slot per handle) and the
// low bits of a ULID timestamp below it, giving monotonically sortable,
// collision free fake addresses without needing real memory.
type handle struct {
	size    uint64
	address uintptr
	valid   *bool // shared with the owning Device; flips false on DropContext
}

func (h *handle) Size() uint64       { return h.size }
func (h *handle) Address() uintptr   { return h.address }
func (h *handle) ContextValid() bool { return *h.valid }

// Device is a fake driver.Device. Capacity, if non-zero, makes Alloc
// return driver.ErrDriverOOM once the outstanding total would exceed it,
// simulating genuine device exhaustion independent of any Shim-level
// limit under test.
type Device struct {
	mu       sync.Mutex
	capacity uint64 // 0 = unlimited
	total    uint64
	valid    bool

	allocs int
	frees  int

	entropy *ulid.MonotonicEntropy
}

// New creates a Device with the given capacity (0 for unlimited). The
// device's context starts valid; use DropContext to simulate the owning
// context going away (subsequent Free calls on handles it minted become
// no-ops, matching the driver's ContextValid semantics).
func New(capacity uint64) *Device {
	d := &Device{capacity: capacity, valid: true}
	seed, _ := ulid.New(ulid.Now(), nil)
	d.entropy = ulid.Monotonic(deterministicReader{seed: seed}, 0)
	return d
}

// deterministicReader feeds ulid.Monotonic a fixed byte stream so address
// generation needs no real randomness source, keeping fake-driver tests
// reproducible.
type deterministicReader struct {
	seed ulid.ULID
	pos  int
}

func (r deterministicReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = r.seed[(r.pos+i)%len(r.seed)]
	}
	return len(p), nil
}

// Alloc implements driver.Device.
func (d *Device) Alloc(nbytes uint64) (driver.Handle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.capacity != 0 && d.total+nbytes > d.capacity {
		return nil, driver.ErrDriverOOM
	}

	id, err := ulid.New(ulid.Now(), d.entropy)
	if err != nil {
		return nil, err
	}
	// The ULID's timestamp and leading entropy bytes repeat for every
	// allocation made within the same millisecond, so the ordinal supplies
	// the distinguishing high bits.
	addr := uintptr(d.allocs+1)<<32 | uintptr(id.Time()&0xffff)

	d.total += nbytes
	d.allocs++
	return &handle{size: nbytes, address: addr, valid: &d.valid}, nil
}

// Free implements driver.Device.
func (d *Device) Free(h driver.Handle) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.valid {
		return nil
	}
	d.total -= h.Size()
	d.frees++
	return nil
}

// DropContext marks every handle this device has ever minted as having an
// invalid context, the way a process exit would in the real driver.
func (d *Device) DropContext() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.valid = false
}

// Counts returns the number of Alloc/Free calls the fake has seen, for
// test assertions.
func (d *Device) Counts() (allocs, frees int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.allocs, d.frees
}

// Total returns the current outstanding byte total the fake believes the
// real driver holds.
func (d *Device) Total() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.total
}

// GC returns a driver.GCHint that records how many times it was called,
// and optionally frees handles via a release callback - tests wire this up
// to a pool's own reclaim-eligible set to simulate the host GC dropping
// references.
type GC struct {
	mu         sync.Mutex
	incremental int
	full       int
	onHint     func(full bool)
}

// NewGC creates a GC hint recorder. onHint, if non-nil, is invoked
// synchronously from Hint so tests can simulate references being dropped.
func NewGC(onHint func(full bool)) *GC {
	return &GC{onHint: onHint}
}

// Hint implements driver.GCHint.
func (g *GC) Hint(full bool) {
	g.mu.Lock()
	if full {
		g.full++
	} else {
		g.incremental++
	}
	hook := g.onHint
	g.mu.Unlock()

	if hook != nil {
		hook(full)
	}
}

// Counts returns how many incremental and full collections were requested.
func (g *GC) Counts() (incremental, full int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.incremental, g.full
}
