// Package memalloc implements the per-context memory allocator backing
// alloca/palloca/calloca lowering: first-fit allocation over a fixed-size
// arena with adjacent-free-block coalescing on deallocate.
package memalloc

import (
	"sort"

	"venom/internal/errors"
)

// Block is one allocated or free region of the arena. Addr is the absolute
// address (the allocator's base is already included), not an offset.
type Block struct {
	Addr uint64
	Size uint64
}

func (b Block) end() uint64 { return b.Addr + b.Size }

// Allocator is a first-fit allocator over [base, base+size) that merges
// adjacent free blocks back together on deallocate.
type Allocator struct {
	base uint64
	size uint64
	free []Block // sorted by Addr, no two adjacent/overlapping
	used map[uint64]uint64 // addr -> size, for allocated blocks
}

// New creates an allocator over an arena of the given size starting at base.
func New(base, size uint64) *Allocator {
	return &Allocator{
		base: base,
		size: size,
		free: []Block{{Addr: base, Size: size}},
		used: make(map[uint64]uint64),
	}
}

// Allocate finds the first free block large enough for size (first-fit),
// splitting it if larger than needed, and returns the allocated address.
func (a *Allocator) Allocate(size uint64) (uint64, error) {
	if size == 0 {
		return 0, &errors.MemoryError{Code: errors.ErrorAllocationFailed, Message: "cannot allocate zero bytes"}
	}
	for i, blk := range a.free {
		if blk.Size < size {
			continue
		}
		addr := blk.Addr
		if blk.Size == size {
			a.free = append(a.free[:i], a.free[i+1:]...)
		} else {
			a.free[i] = Block{Addr: blk.Addr + size, Size: blk.Size - size}
		}
		a.used[addr] = size
		return addr, nil
	}
	return 0, &errors.MemoryError{
		Code:    errors.ErrorAllocationFailed,
		Message: "no free block large enough to satisfy the request",
	}
}

// Deallocate frees the block at addr, coalescing with adjacent free blocks.
// Returns false (rather than panicking) if addr was never allocated, per
// the allocator's accessor-restoring design.
func (a *Allocator) Deallocate(addr uint64) bool {
	size, ok := a.used[addr]
	if !ok {
		return false
	}
	delete(a.used, addr)

	blk := Block{Addr: addr, Size: size}
	a.free = append(a.free, blk)
	sort.Slice(a.free, func(i, j int) bool { return a.free[i].Addr < a.free[j].Addr })

	merged := a.free[:0]
	for _, b := range a.free {
		if len(merged) > 0 && merged[len(merged)-1].end() == b.Addr {
			merged[len(merged)-1].Size += b.Size
		} else {
			merged = append(merged, b)
		}
	}
	a.free = merged
	return true
}

// GetFreeMemory returns the total size of all free blocks.
func (a *Allocator) GetFreeMemory() uint64 {
	var total uint64
	for _, b := range a.free {
		total += b.Size
	}
	return total
}

// GetAllocatedMemory returns the total size of all currently allocated blocks.
func (a *Allocator) GetAllocatedMemory() uint64 {
	var total uint64
	for _, size := range a.used {
		total += size
	}
	return total
}

// FreeBlocks returns a snapshot of the current free-block list in address order.
func (a *Allocator) FreeBlocks() []Block {
	out := make([]Block, len(a.free))
	copy(out, a.free)
	return out
}
