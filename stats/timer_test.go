package stats_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vramkit/devicepool/stats"
)

func TestTimerRecordsQuantilesForNamedOperation(t *testing.T) {
	timer := stats.NewTimer()

	timer.Time(context.Background(), "alloc", func(ctx context.Context) {
		time.Sleep(time.Millisecond)
	})
	timer.Time(context.Background(), "alloc", func(ctx context.Context) {
		time.Sleep(2 * time.Millisecond)
	})

	p50, p90, p99 := timer.Quantiles("alloc")
	require.Greater(t, p50, int64(0))
	require.GreaterOrEqual(t, p90, p50)
	require.GreaterOrEqual(t, p99, p90)
}

func TestTimerQuantilesAreZeroForUnrecordedName(t *testing.T) {
	timer := stats.NewTimer()
	p50, p90, p99 := timer.Quantiles("never_called")
	require.Zero(t, p50)
	require.Zero(t, p90)
	require.Zero(t, p99)
}

func TestTimerNamesTracksEveryRecordedOperation(t *testing.T) {
	timer := stats.NewTimer()
	timer.Time(context.Background(), "scan", func(ctx context.Context) {})
	timer.Time(context.Background(), "reclaim", func(ctx context.Context) {})

	names := timer.Names()
	require.ElementsMatch(t, []string{"scan", "reclaim"}, names)
}
