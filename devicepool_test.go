package devicepool_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vramkit/devicepool"
	"github.com/vramkit/devicepool/internal/fakedriver"
	"github.com/vramkit/devicepool/pool"
	"github.com/vramkit/devicepool/poolerr"
)

func TestDispatcherAllocFreeRoundTrip(t *testing.T) {
	dev := fakedriver.New(0)
	d, err := devicepool.NewDispatcher(devicepool.Config{PoolName: pool.Simple}, dev, nil)
	require.NoError(t, err)

	h, err := d.Alloc(context.Background(), 4096)
	require.NoError(t, err)
	require.NoError(t, d.Free(context.Background(), h))
}

func TestDispatcherSwitchPoolResetsCaches(t *testing.T) {
	dev := fakedriver.New(0)
	d, err := devicepool.NewDispatcher(devicepool.Config{PoolName: pool.Simple}, dev, nil)
	require.NoError(t, err)

	h, err := d.Alloc(context.Background(), 4096)
	require.NoError(t, err)
	require.NoError(t, d.Free(context.Background(), h))
	require.EqualValues(t, 4096, d.Stats().CachedBytes)

	require.NoError(t, d.SwitchPool(pool.Split))
	require.Zero(t, d.Stats().CachedBytes)
}

func TestDispatcherSwitchPoolFailsWithOutstandingHandles(t *testing.T) {
	dev := fakedriver.New(0)
	d, err := devicepool.NewDispatcher(devicepool.Config{PoolName: pool.Dummy}, dev, nil)
	require.NoError(t, err)

	_, err = d.Alloc(context.Background(), 4096)
	require.NoError(t, err)

	err = d.SwitchPool(pool.Split)
	require.Error(t, err)
	require.True(t, poolerr.ErrInvalidState.Is(err))
}

func TestDispatcherOOMReturnsOutOfMemory(t *testing.T) {
	dev := fakedriver.New(1024)
	d, err := devicepool.NewDispatcher(devicepool.Config{PoolName: pool.Dummy}, dev, nil)
	require.NoError(t, err)

	_, err = d.Alloc(context.Background(), 2048)
	require.Error(t, err)
	require.True(t, poolerr.ErrOutOfMemory.Is(err))
}
