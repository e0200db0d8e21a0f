// Package poolerr defines the typed error vocabulary shared by the driver
// shim and the pool implementations.
package poolerr

import "gopkg.in/src-d/go-errors.v1"

var (
	// ErrOutOfMemory is raised by Alloc only after the full three-phase
	// ladder has run and every phase failed to produce a handle.
	ErrOutOfMemory = errors.NewKind("out of memory: could not satisfy allocation of %d bytes")

	// ErrLimitExceeded is modelled as a driver OOM (see driver.ErrDriverOOM):
	// the shim returns a nil handle when usage+nbytes would exceed the
	// configured limit, and the ladder treats it identically to a real
	// driver OOM. Nothing in this module returns this Kind: the shim
	// records no reason for a rejection, so a limit rejection and a real
	// driver OOM both surface as ErrOutOfMemory.
	ErrLimitExceeded = errors.NewKind("allocation of %d bytes would exceed the %d byte usage limit")

	// ErrInvalidState indicates a programming error: deinit with
	// outstanding handles, double-free of a block, or attempting to
	// return a split (non-whole) block to the driver. These are fatal
	// because continuing could corrupt the block graph.
	ErrInvalidState = errors.NewKind("invalid pool state: %s")

	// ErrDriverFault wraps a non-OOM failure returned by the underlying
	// Device; it is propagated unchanged rather than retried.
	ErrDriverFault = errors.NewKind("device driver fault")
)
