package driver

import "errors"

// ErrDriverOOM is the sentinel a Device implementation returns from Alloc
// to indicate the driver itself is out of memory, as opposed to any other
// (fatal, DRIVER_FAULT) failure. The shim translates this into a nil
// handle so the fallback ladder can make a deterministic retry decision;
// every other error is propagated unchanged.
var ErrDriverOOM = errors.New("device: out of memory")
