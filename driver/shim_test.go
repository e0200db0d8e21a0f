package driver_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vramkit/devicepool/driver"
	"github.com/vramkit/devicepool/internal/fakedriver"
	"github.com/vramkit/devicepool/poolerr"
	"github.com/vramkit/devicepool/stats"
)

func TestActualAllocAndFreeTrackUsage(t *testing.T) {
	dev := fakedriver.New(0)
	shim := driver.NewShim(dev, stats.NewCounters("test"), nil)

	h, err := shim.ActualAlloc(4096)
	require.NoError(t, err)
	require.NotNil(t, h)
	require.EqualValues(t, 4096, shim.Usage())

	require.NoError(t, shim.ActualFree(h))
	require.EqualValues(t, 0, shim.Usage())
}

func TestActualAllocReturnsNilOnDriverOOM(t *testing.T) {
	dev := fakedriver.New(1024)
	shim := driver.NewShim(dev, stats.NewCounters("test"), nil)

	h, err := shim.ActualAlloc(2048)
	require.NoError(t, err)
	require.Nil(t, h)
	require.EqualValues(t, 0, shim.Usage())
}

func TestActualAllocRejectsOverLimit(t *testing.T) {
	dev := fakedriver.New(0)
	shim := driver.NewShim(dev, stats.NewCounters("test"), nil).WithLimit(1024)

	h, err := shim.ActualAlloc(2048)
	require.NoError(t, err)
	require.Nil(t, h)
	require.EqualValues(t, 0, shim.Usage())

	h, err = shim.ActualAlloc(1024)
	require.NoError(t, err)
	require.NotNil(t, h)
	require.EqualValues(t, 1024, shim.Usage())
}

func TestActualFreeSkipsDriverWhenContextInvalid(t *testing.T) {
	dev := fakedriver.New(0)
	shim := driver.NewShim(dev, stats.NewCounters("test"), nil)

	h, err := shim.ActualAlloc(1024)
	require.NoError(t, err)

	dev.DropContext()
	require.NoError(t, shim.ActualFree(h))

	_, frees := dev.Counts()
	require.Zero(t, frees)
}

type failingDevice struct{ err error }

func (f failingDevice) Alloc(nbytes uint64) (driver.Handle, error) { return nil, f.err }
func (f failingDevice) Free(h driver.Handle) error                { return f.err }

func TestActualAllocWrapsNonOOMDriverFault(t *testing.T) {
	shim := driver.NewShim(failingDevice{err: assertErr{}}, stats.NewCounters("test"), nil)

	_, err := shim.ActualAlloc(1024)
	require.Error(t, err)
	require.True(t, poolerr.ErrDriverFault.Is(err))
}

type assertErr struct{}

func (assertErr) Error() string { return "simulated driver fault" }
