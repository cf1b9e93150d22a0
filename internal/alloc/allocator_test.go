package alloc

import (
	"sync"
	"testing"
)

func TestAllocatorAppend(t *testing.T) {
	a := New(1024)

	if addr := a.Alloc(100); addr != 1024 {
		t.Errorf("first allocation: got 0x%x, want 0x%x", addr, 1024)
	}
	if addr := a.Alloc(200); addr != 1124 {
		t.Errorf("second allocation: got 0x%x, want 0x%x", addr, 1124)
	}
	if a.EOFAddr() != 1324 {
		t.Errorf("EOF: got 0x%x, want 0x%x", a.EOFAddr(), 1324)
	}
	if addr := a.Alloc(0); addr != 1324 || a.EOFAddr() != 1324 {
		t.Errorf("zero allocation moved EOF to 0x%x", a.EOFAddr())
	}
}

func TestAllocatorReuse(t *testing.T) {
	a := New(0)
	first := a.Alloc(64)
	a.Alloc(32) // keeps first from touching EOF

	a.Free(first, 64)
	if got := a.Alloc(48); got != first {
		t.Errorf("reused allocation at 0x%x, want 0x%x", got, first)
	}
	if got := a.Alloc(16); got != first+48 {
		t.Errorf("remainder allocation at 0x%x, want 0x%x", got, first+48)
	}
	if len(a.FreeBlocks()) != 0 {
		t.Errorf("free list not empty: %v", a.FreeBlocks())
	}
	if s := a.Stats(); s.ReusedBytes != 64 {
		t.Errorf("ReusedBytes = %d, want 64", s.ReusedBytes)
	}
	if err := a.Validate(); err != nil {
		t.Error(err)
	}
}

func TestAllocatorCoalesceAndShrink(t *testing.T) {
	a := New(0)
	x := a.Alloc(10)
	y := a.Alloc(10)
	z := a.Alloc(10)
	keep := a.Alloc(10)

	a.Free(x, 10)
	a.Free(z, 10)
	a.Free(y, 10)
	blocks := a.FreeBlocks()
	if len(blocks) != 1 || blocks[0].Addr != x || blocks[0].Size != 30 {
		t.Fatalf("free list = %v, want one 30-byte block at 0", blocks)
	}

	a.Free(keep, 10)
	if a.EOFAddr() != 0 {
		t.Errorf("EOF = %d after freeing everything, want 0", a.EOFAddr())
	}
}

func TestAllocatorIgnoresForeignFree(t *testing.T) {
	a := New(100)
	a.Alloc(10)
	a.Free(50, 10)  // before base
	a.Free(105, 50) // past EOF
	if len(a.FreeBlocks()) != 0 {
		t.Errorf("free list = %v, want empty", a.FreeBlocks())
	}
}

func TestAllocatorConcurrent(t *testing.T) {
	a := New(0)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				a.Alloc(8)
			}
		}()
	}
	wg.Wait()
	if a.EOFAddr() != 8*100*8 {
		t.Errorf("EOF = %d, want %d", a.EOFAddr(), 8*100*8)
	}
	if err := a.Validate(); err != nil {
		t.Error(err)
	}
}

func TestAllocatorResume(t *testing.T) {
	a := Resume(48, 4096)
	if got := a.EOFAddr(); got != 4096 {
		t.Fatalf("EOFAddr = %d, want 4096", got)
	}

	// A block from the earlier session can be released and reused.
	a.Free(1000, 200)
	if got := a.Alloc(100); got != 1000 {
		t.Errorf("Alloc = %d, want reuse at 1000", got)
	}
	if got := a.Alloc(500); got != 4096 {
		t.Errorf("Alloc = %d, want EOF allocation at 4096", got)
	}
	if err := a.Validate(); err != nil {
		t.Error(err)
	}
}
