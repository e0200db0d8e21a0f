package pool

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeKeyed struct {
	size uint64
	addr uintptr
}

func (k fakeKeyed) Size() uint64     { return k.size }
func (k fakeKeyed) Address() uintptr { return k.addr }

func TestOrderedSetInsertKeepsAscendingOrder(t *testing.T) {
	var s orderedSet[fakeKeyed]
	s.Insert(fakeKeyed{size: 30, addr: 1})
	s.Insert(fakeKeyed{size: 10, addr: 2})
	s.Insert(fakeKeyed{size: 20, addr: 3})

	sizes := make([]uint64, 0, 3)
	for _, it := range s.Items() {
		sizes = append(sizes, it.Size())
	}
	require.Equal(t, []uint64{10, 20, 30}, sizes)
}

func TestOrderedSetScanFirstFindsSmallestFit(t *testing.T) {
	var s orderedSet[fakeKeyed]
	s.Insert(fakeKeyed{size: 10, addr: 1})
	s.Insert(fakeKeyed{size: 20, addr: 2})
	s.Insert(fakeKeyed{size: 30, addr: 3})

	found, ok := s.ScanFirst(15, func(fakeKeyed) bool { return true }, nil)
	require.True(t, ok)
	require.EqualValues(t, 20, found.Size())
}

func TestOrderedSetScanFirstRespectsStopAt(t *testing.T) {
	var s orderedSet[fakeKeyed]
	s.Insert(fakeKeyed{size: 10, addr: 1})
	s.Insert(fakeKeyed{size: 100, addr: 2})

	_, ok := s.ScanFirst(5, func(fakeKeyed) bool { return true }, func(k fakeKeyed) bool { return k.Size() > 50 })
	require.True(t, ok) // size 10 still matches before the stop bound

	_, ok = s.ScanFirst(50, func(fakeKeyed) bool { return true }, func(k fakeKeyed) bool { return k.Size() > 50 })
	require.False(t, ok) // only the size-100 entry qualifies by minSize, but stopAt excludes it
}

func TestOrderedSetRemove(t *testing.T) {
	var s orderedSet[fakeKeyed]
	a := fakeKeyed{size: 10, addr: 1}
	b := fakeKeyed{size: 10, addr: 2}
	s.Insert(a)
	s.Insert(b)

	require.True(t, s.Remove(a))
	require.Equal(t, 1, s.Len())
	require.False(t, s.Remove(a))
}

func TestOrderedSetPopLargest(t *testing.T) {
	var s orderedSet[fakeKeyed]
	s.Insert(fakeKeyed{size: 10, addr: 1})
	s.Insert(fakeKeyed{size: 30, addr: 2})
	s.Insert(fakeKeyed{size: 20, addr: 3})

	top, ok := s.PopLargest()
	require.True(t, ok)
	require.EqualValues(t, 30, top.Size())
	require.Equal(t, 2, s.Len())
}

func TestOrderedSetTotalBytes(t *testing.T) {
	var s orderedSet[fakeKeyed]
	s.Insert(fakeKeyed{size: 10, addr: 1})
	s.Insert(fakeKeyed{size: 20, addr: 2})
	require.EqualValues(t, 30, s.TotalBytes())
}
