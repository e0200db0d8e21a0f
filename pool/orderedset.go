package pool

import "sort"

// Keyed is anything the ordered free-set can hold: something with a byte
// size and an address-like identity. driver.Handle already satisfies this;
// *block (SplittingPool) implements it too.
type Keyed interface {
	Size() uint64
	Address() uintptr
}

// orderedSet is the ordered multi-set used as a pool's free-list: entries are kept
// sorted by (size, identity), identity mixed in below the size bits only to
// break ties between equal-sized entries, never to reorder by size. This
// lets scans find "smallest satisfying" with a single binary search plus a
// short forward walk, and lets reclaim walk from the largest entry
// backwards.
//
// It deliberately holds no lock of its own: every pool guards its
// orderedSet(s) with its own mutex, because the
// free-list is only one piece of state (alongside block graph links in
// SplittingPool) that must change atomically together.
type orderedSet[T Keyed] struct {
	items []T
}

func less[T Keyed](a, b T) bool {
	if a.Size() != b.Size() {
		return a.Size() < b.Size()
	}
	return a.Address() < b.Address()
}

// Insert adds item, keeping items sorted.
func (s *orderedSet[T]) Insert(item T) {
	i := sort.Search(len(s.items), func(i int) bool { return less(item, s.items[i]) })
	s.items = append(s.items, item)
	copy(s.items[i+1:], s.items[i:])
	s.items[i] = item
}

// Remove deletes the first entry with the same (size, address) key as
// item, returning whether one was found.
func (s *orderedSet[T]) Remove(item T) bool {
	i := sort.Search(len(s.items), func(i int) bool { return !less(s.items[i], item) })
	for i < len(s.items) && s.items[i].Size() == item.Size() {
		if s.items[i].Address() == item.Address() {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return true
		}
		i++
	}
	return false
}

// ScanFirst returns the first (smallest) entry for which fit reports true,
// starting the walk at the first entry whose size is >= minSize. fit is
// expected to test an upper bound on size (e.g. sz <= s <= max_oversize);
// the walk stops as soon as fit can no longer possibly hold again, via
// stopAt — pass a stopAt that always returns false to scan to the end.
func (s *orderedSet[T]) ScanFirst(minSize uint64, fit func(T) bool, stopAt func(T) bool) (T, bool) {
	var zero T
	i := sort.Search(len(s.items), func(i int) bool { return s.items[i].Size() >= minSize })
	for ; i < len(s.items); i++ {
		if stopAt != nil && stopAt(s.items[i]) {
			break
		}
		if fit(s.items[i]) {
			return s.items[i], true
		}
	}
	return zero, false
}

// PopLargest removes and returns the largest entry, or ok=false if empty.
func (s *orderedSet[T]) PopLargest() (T, bool) {
	var zero T
	if len(s.items) == 0 {
		return zero, false
	}
	last := len(s.items) - 1
	item := s.items[last]
	s.items = s.items[:last]
	return item, true
}

// Len returns the number of entries.
func (s *orderedSet[T]) Len() int { return len(s.items) }

// Items returns the entries in ascending order. Callers must not mutate
// the returned slice.
func (s *orderedSet[T]) Items() []T { return s.items }

// TotalBytes sums Size() over every entry.
func (s *orderedSet[T]) TotalBytes() uint64 {
	var total uint64
	for _, it := range s.items {
		total += it.Size()
	}
	return total
}
