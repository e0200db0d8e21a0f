// Package driver wraps the raw device allocation primitive (device_alloc,
// device_free, is_context_valid) with usage accounting, an optional byte
// limit, and stats. It is the only part of the system that talks to the
// actual device driver.
package driver

// Handle is an opaque reference to a contiguous device-memory region,
// produced by a Device. Equality and address arithmetic over Address are
// the only operations a Handle's identity supports.
type Handle interface {
	// Size returns the handle's byte length, as given to Alloc.
	Size() uint64
	// Address returns an opaque, comparable identity for the handle.
	// It is used for ordering and equality only, never dereferenced.
	Address() uintptr
	// ContextValid reports whether the device context that minted this
	// handle is still alive. A handle whose context is gone can still be
	// freed, but the free becomes a no-op on the driver side.
	ContextValid() bool
}

// Device is the external, fixed raw allocation primitive this package
// wraps. Implementations talk to the actual GPU driver; internal/fakedriver
// provides an in-memory stand-in for tests and the demo CLI.
type Device interface {
	// Alloc requests nbytes from the driver. A driver-level OOM condition
	// is reported as (nil, ErrDriverOOM); any other failure is a non-nil,
	// non-ErrDriverOOM error and is fatal (propagated as DRIVER_FAULT).
	Alloc(nbytes uint64) (Handle, error)
	// Free releases a handle previously returned by Alloc. Freeing a
	// handle whose context is no longer valid must be a silent no-op.
	Free(h Handle) error
}

// GCHint is the callable hint into the host language's tracing GC. full
// requests a full collection; false requests a cheaper incremental one.
// Either may cause more handles to become unreachable and be freed back to
// a pool before the caller retries an allocation.
type GCHint func(full bool)

// NoopGC is a GCHint that does nothing, useful for pools/tests that don't
// model host GC pressure (e.g. DummyPool has nothing to gain from it, but
// still must call it per the ladder contract).
func NoopGC(full bool) {}
