package pool

import "github.com/vramkit/devicepool/driver"

// blockState is a block's place in the split/coalesce lifecycle.
type blockState int

const (
	blockAvailable blockState = iota
	blockAllocated
	blockFreed
)

func (s blockState) String() string {
	switch s {
	case blockAvailable:
		return "AVAILABLE"
	case blockAllocated:
		return "ALLOCATED"
	case blockFreed:
		return "FREED"
	default:
		return "UNKNOWN"
	}
}

// block is a sibling-linked view over a slice of a base driver buffer.
// Splitting a block produces two adjacent blocks linked through prev/next;
// coalescing a just-freed block with its AVAILABLE neighbors merges them
// back into one. block implements driver.Handle directly so a *block can be handed to
// an application as its allocation.
type block struct {
	base    driver.Handle // the arena this block is a view over
	address uintptr
	size    uint64
	state   blockState

	prev, next *block // siblings within the same base arena, address order
}

// newArena wraps a freshly driver-allocated buffer as a single AVAILABLE
// block spanning the whole thing.
func newArena(h driver.Handle) *block {
	return &block{
		base:    h,
		address: h.Address(),
		size:    h.Size(),
		state:   blockAvailable,
	}
}

// Size implements driver.Handle and Keyed.
func (b *block) Size() uint64 { return b.size }

// Address implements driver.Handle and Keyed.
func (b *block) Address() uintptr { return b.address }

// ContextValid implements driver.Handle: a block is only as valid as the
// arena it was carved from.
func (b *block) ContextValid() bool { return b.base.ContextValid() }

// isWholeArena reports whether b is the sole block of its base arena (no
// siblings), meaning it can be freed directly to the driver instead of
// through coalescing.
func (b *block) isWholeArena() bool { return b.prev == nil && b.next == nil }

// split carves nbytes off the front of an AVAILABLE block b, returning the
// new ALLOCATED head and the AVAILABLE remainder. A split only happens when
// the remainder would land in the same size class as nbytes itself
// (class is classOf(nbytes)); a remainder that would fall into a different
// class is never carved off, since that would hand a LARGE arena's tail to
// the SMALL free-list (or vice versa). If nbytes == b.size, or the
// remainder's class differs from class, the remainder is nil and b itself
// becomes the allocated block.
func split(b *block, nbytes uint64, class int) (head *block, remainder *block) {
	if b.state != blockAvailable {
		panic("pool: split of non-AVAILABLE block")
	}
	if nbytes >= b.size || classOf(b.size-nbytes) != class {
		b.state = blockAllocated
		return b, nil
	}

	remainder = &block{
		base:    b.base,
		address: b.address + uintptr(nbytes),
		size:    b.size - nbytes,
		state:   blockAvailable,
		prev:    b,
		next:    b.next,
	}
	if b.next != nil {
		b.next.prev = remainder
	}
	b.next = remainder
	b.size = nbytes
	b.state = blockAllocated
	return b, remainder
}

// coalesce merges the just-freed block b with its immediately adjacent
// AVAILABLE siblings, returning the single resulting AVAILABLE block. It
// merges the next sibling first, then the previous one, so up to two merges
// happen per call; AVAILABLE blocks further along the chain than those
// immediate neighbors are not merged.
func coalesce(b *block) *block {
	if b.next != nil && b.next.state == blockAvailable {
		b = mergeWithNext(b)
	}
	if b.prev != nil && b.prev.state == blockAvailable {
		b = mergeWithNext(b.prev)
	}
	b.state = blockAvailable
	return b
}

// mergeWithNext absorbs b.next into b, splicing b.next's sibling links out.
func mergeWithNext(b *block) *block {
	n := b.next
	b.size += n.size
	b.next = n.next
	if n.next != nil {
		n.next.prev = b
	}
	return b
}
