package heap

import (
	"github.com/ethindp/kernel/kernel"
	"github.com/ethindp/kernel/kernel/kfmt"
	"github.com/ethindp/kernel/kernel/mem"
	"github.com/ethindp/kernel/kernel/sync"
)

var (
	// KernelAllocator is the process-wide general allocator serving the
	// kernel heap. It must be initialized with the placed region before
	// any allocation is attempted.
	KernelAllocator Allocator

	// ErrHeapExhausted is returned when no free span can satisfy an
	// allocation request. Callers must treat it as recoverable.
	ErrHeapExhausted = &kernel.Error{Module: "heap", Message: "out of heap memory"}

	errInvalidAlloc  = &kernel.Error{Module: "heap", Message: "allocation size is zero or alignment is not a power of two"}
	errHeapCorrupted = &kernel.Error{Module: "heap", Message: "freed range is outside the heap or overlaps a free span"}
)

// span describes a free byte range inside the heap region. Spans are
// kept sorted by address and never touch; adjacent spans coalesce on
// insertion.
type span struct {
	addr uintptr
	size mem.Size
	next *span
}

// Allocator hands out byte ranges from the heap region using an
// address-ordered first-fit free list.
type Allocator struct {
	lock      sync.Spinlock
	base      uintptr
	size      mem.Size
	freeHead  *span
	usedBytes mem.Size
}

// Init points the allocator at the placed heap region and resets the
// free list to a single span covering the entire region.
func (a *Allocator) Init(region *Region) {
	a.lock.Acquire()
	defer a.lock.Release()

	a.base = region.Base()
	a.size = region.Size()
	a.freeHead = &span{addr: a.base, size: a.size}
	a.usedBytes = 0
}

// Alloc reserves size bytes aligned to align and returns the address of
// the reserved block. The scan is first-fit by address; when a span is
// larger than needed, the leading alignment fragment and the trailing
// remainder both stay on the free list. Alloc fails with
// ErrHeapExhausted when no span fits.
func (a *Allocator) Alloc(size, align mem.Size) (uintptr, *kernel.Error) {
	if size == 0 || align == 0 || align&(align-1) != 0 {
		return 0, errInvalidAlloc
	}

	a.lock.Acquire()
	defer a.lock.Release()

	var prev *span
	for cur := a.freeHead; cur != nil; prev, cur = cur, cur.next {
		aligned := (cur.addr + uintptr(align) - 1) &^ (uintptr(align) - 1)
		leading := mem.Size(aligned - cur.addr)
		if leading+size > cur.size {
			continue
		}

		trailing := cur.size - leading - size

		// Shrink the span to the leading fragment or unlink it, then
		// re-insert any trailing remainder right after it.
		rest := cur.next
		if leading > 0 {
			cur.size = leading
			prev = cur
		} else if prev == nil {
			a.freeHead = rest
		} else {
			prev.next = rest
		}

		if trailing > 0 {
			remainder := &span{addr: aligned + uintptr(size), size: trailing, next: rest}
			if prev == nil {
				a.freeHead = remainder
			} else {
				prev.next = remainder
			}
		}

		a.usedBytes += size
		return aligned, nil
	}

	return 0, ErrHeapExhausted
}

// Free returns the block at addr to the free list, coalescing it with
// adjacent free spans. Freeing memory outside the heap region or
// overlapping a free span indicates a kernel bug and halts the
// processor.
func (a *Allocator) Free(addr uintptr, size mem.Size) {
	if err := a.free(addr, size); err != nil {
		kfmt.Panic(err)
	}
}

func (a *Allocator) free(addr uintptr, size mem.Size) *kernel.Error {
	a.lock.Acquire()
	defer a.lock.Release()

	if size == 0 || addr < a.base || addr+uintptr(size) > a.base+uintptr(a.size) {
		return errHeapCorrupted
	}

	// Locate the insertion point keeping the list address-ordered.
	var prev *span
	cur := a.freeHead
	for cur != nil && cur.addr < addr {
		prev, cur = cur, cur.next
	}

	if prev != nil && prev.addr+uintptr(prev.size) > addr {
		return errHeapCorrupted
	}
	if cur != nil && addr+uintptr(size) > cur.addr {
		return errHeapCorrupted
	}

	freed := &span{addr: addr, size: size, next: cur}
	if prev == nil {
		a.freeHead = freed
	} else {
		prev.next = freed
	}

	// Coalesce with the following span, then with the preceding one.
	if cur != nil && freed.addr+uintptr(freed.size) == cur.addr {
		freed.size += cur.size
		freed.next = cur.next
	}
	if prev != nil && prev.addr+uintptr(prev.size) == freed.addr {
		prev.size += freed.size
		prev.next = freed.next
	}

	a.usedBytes -= size
	return nil
}

// UsedBytes returns the number of heap bytes currently handed out.
func (a *Allocator) UsedBytes() mem.Size {
	a.lock.Acquire()
	defer a.lock.Release()
	return a.usedBytes
}
