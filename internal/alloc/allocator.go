package alloc

import (
	"fmt"
	"sort"
	"sync"
)

// Allocator hands out non-overlapping byte ranges of a file.
type Allocator struct {
	mu sync.Mutex

	eofAddr  uint64
	baseAddr uint64

	live  map[uint64]uint64 // addr -> size of blocks in use
	free  []Block           // sorted by address, coalesced
	stats Stats
}

// Block is a byte range of the file.
type Block struct {
	Addr uint64
	Size uint64
}

// Stats contains allocation statistics.
type Stats struct {
	TotalAllocations uint64 // Number of allocations made
	TotalBytesAlloc  uint64 // Total bytes allocated
	TotalBytesFree   uint64 // Total bytes released
	ReusedBytes      uint64 // Bytes served from the free list
}

// New creates an allocator whose first block starts at baseAddr.
func New(baseAddr uint64) *Allocator {
	return &Allocator{
		eofAddr:  baseAddr,
		baseAddr: baseAddr,
		live:     make(map[uint64]uint64),
	}
}

// Resume creates an allocator for an existing file whose metadata starts
// at baseAddr and whose current end of file is eofAddr. Blocks written by
// an earlier session can be released with Free.
func Resume(baseAddr, eofAddr uint64) *Allocator {
	a := New(baseAddr)
	if eofAddr > baseAddr {
		a.eofAddr = eofAddr
	}
	return a
}

// Alloc reserves size bytes and returns the block address. A zero size
// returns the current EOF without reserving anything.
func (a *Allocator) Alloc(size uint64) uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()

	if size == 0 {
		return a.eofAddr
	}
	a.stats.TotalAllocations++
	a.stats.TotalBytesAlloc += size

	for i, b := range a.free {
		if b.Size < size {
			continue
		}
		addr := b.Addr
		if b.Size == size {
			a.free = append(a.free[:i], a.free[i+1:]...)
		} else {
			a.free[i] = Block{Addr: b.Addr + size, Size: b.Size - size}
		}
		a.stats.ReusedBytes += size
		a.live[addr] = size
		return addr
	}

	addr := a.eofAddr
	a.eofAddr += size
	a.live[addr] = size
	return addr
}

// Free releases a block previously returned by Alloc, or a block that was
// allocated by an earlier writer session (in which case size must be given
// exactly). Adjacent free blocks are merged; a free block that reaches EOF
// shrinks the file instead.
func (a *Allocator) Free(addr, size uint64) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if size == 0 || addr < a.baseAddr || addr+size > a.eofAddr {
		return
	}
	delete(a.live, addr)
	a.stats.TotalBytesFree += size

	i := sort.Search(len(a.free), func(i int) bool { return a.free[i].Addr >= addr })
	a.free = append(a.free, Block{})
	copy(a.free[i+1:], a.free[i:])
	a.free[i] = Block{Addr: addr, Size: size}
	a.coalesce()

	if n := len(a.free); n > 0 && a.free[n-1].Addr+a.free[n-1].Size == a.eofAddr {
		a.eofAddr = a.free[n-1].Addr
		a.free = a.free[:n-1]
	}
}

func (a *Allocator) coalesce() {
	out := a.free[:0]
	for _, b := range a.free {
		if n := len(out); n > 0 && out[n-1].Addr+out[n-1].Size >= b.Addr {
			if end := b.Addr + b.Size; end > out[n-1].Addr+out[n-1].Size {
				out[n-1].Size = end - out[n-1].Addr
			}
			continue
		}
		out = append(out, b)
	}
	a.free = out
}

// EOFAddr returns the current end-of-file address.
func (a *Allocator) EOFAddr() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.eofAddr
}

// Stats returns a copy of the allocation statistics.
func (a *Allocator) Stats() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stats
}

// FreeBlocks returns a copy of the free list.
func (a *Allocator) FreeBlocks() []Block {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]Block(nil), a.free...)
}

// Validate checks that live blocks neither overlap each other or the free
// list nor extend past EOF.
func (a *Allocator) Validate() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	blocks := append([]Block(nil), a.free...)
	for addr, size := range a.live {
		blocks = append(blocks, Block{Addr: addr, Size: size})
	}
	sort.Slice(blocks, func(i, j int) bool { return blocks[i].Addr < blocks[j].Addr })
	for i, b := range blocks {
		if b.Addr < a.baseAddr || b.Addr+b.Size > a.eofAddr {
			return fmt.Errorf("block at 0x%x size %d outside [0x%x, 0x%x)", b.Addr, b.Size, a.baseAddr, a.eofAddr)
		}
		if i > 0 && blocks[i-1].Addr+blocks[i-1].Size > b.Addr {
			return fmt.Errorf("overlapping blocks at 0x%x and 0x%x", blocks[i-1].Addr, b.Addr)
		}
	}
	return nil
}
