package stats_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vramkit/devicepool/stats"
)

func TestCountersAccumulateAcrossAllocAndFree(t *testing.T) {
	c := stats.NewCounters("split")

	c.RecordAllocRequest(4096)
	c.RecordAllocRequest(8192)
	c.RecordFreeRequest(4096)
	c.RecordDriverAlloc(8192)
	c.RecordDriverFree(4096)
	c.RecordOOM()
	c.RecordLadderPhase(2)

	snap := c.Snapshot()
	require.Equal(t, "split", snap.PoolName)
	require.EqualValues(t, 2, snap.Requests)
	require.EqualValues(t, 1, snap.Frees)
	require.EqualValues(t, 1, snap.DriverAllocs)
	require.EqualValues(t, 1, snap.DriverFrees)
	require.EqualValues(t, 4096+8192, snap.BytesRequested)
	require.EqualValues(t, 4096, snap.BytesFreed)
	require.EqualValues(t, 8192, snap.DriverBytesIn)
	require.EqualValues(t, 4096, snap.DriverBytesOut)
	require.EqualValues(t, 1, snap.OOMCount)
}

func TestCountersSnapshotIsIndependentOfLiveCounter(t *testing.T) {
	c := stats.NewCounters("simple")
	c.RecordAllocRequest(1024)

	first := c.Snapshot()
	c.RecordAllocRequest(2048)
	second := c.Snapshot()

	require.EqualValues(t, 1, first.Requests)
	require.EqualValues(t, 2, second.Requests)
}
