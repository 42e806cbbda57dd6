// Package allocator implements the kernel's physical frame table: a
// fixed-capacity registry of page frames that serves contiguous-run
// allocations for the heap and the memory syscalls.
package allocator

import (
	"github.com/ethindp/kernel/kernel"
	"github.com/ethindp/kernel/kernel/hal/bootinfo"
	"github.com/ethindp/kernel/kernel/kfmt"
	"github.com/ethindp/kernel/kernel/mem"
	"github.com/ethindp/kernel/kernel/mem/pmm"
	"github.com/ethindp/kernel/kernel/sync"
)

const (
	// MaxFrames is the hard capacity of the frame table. Frame i covers
	// physical addresses [i << mem.PageShift, (i+1) << mem.PageShift).
	MaxFrames = 65535

	bitmapLen = (MaxFrames + 63) / 64
)

var (
	// FrameAllocator is the process-wide frame table instance. It must
	// be initialized exactly once at boot via Init before any frame can
	// be reserved.
	FrameAllocator FrameTable

	// ErrOutOfMemory is returned when no run of free frames can satisfy
	// an allocation request.
	ErrOutOfMemory = &kernel.Error{Module: "pmm", Message: "out of memory"}

	// ErrInvalidRange is returned when a freed range is out of bounds,
	// contains a frame that is already free or covers a reserved frame.
	ErrInvalidRange = &kernel.Error{Module: "pmm", Message: "frame range is invalid or already free"}

	errNoUsableMemory = &kernel.Error{Module: "pmm", Message: "bootloader reported no usable memory regions"}
)

// FrameTable tracks the allocation state of physical memory frames using
// a bitmap. A set bit marks the frame as allocated or reserved. All
// mutations are serialized by an internal spinlock so concurrent
// allocations on different processors never hand out overlapping runs.
type FrameTable struct {
	lock sync.Spinlock

	// frameCount is the number of frames the table manages. It is
	// derived from the bootloader memory map and never exceeds
	// MaxFrames.
	frameCount uint32

	// reservedFrames counts the frames premarked at Init because their
	// backing memory is not usable RAM.
	reservedFrames uint32

	// allocatedFrames counts the frames currently handed out.
	allocatedFrames uint32

	// bitmap tracks occupancy; a set bit means the frame cannot be
	// handed out. reserved marks the subset premarked at Init so a
	// reservation can never be cleared by FreeRange.
	bitmap   [bitmapLen]uint64
	reserved [bitmapLen]uint64
}

// Stats describes the utilization of a frame table.
type Stats struct {
	// TotalFrames is the number of frames the table manages.
	TotalFrames uint32

	// ReservedFrames is the number of frames covering non-usable
	// memory; they can never be allocated or freed.
	ReservedFrames uint32

	// AllocatedFrames is the number of frames currently handed out.
	AllocatedFrames uint32
}

// Init derives the table size from the bootloader-reported memory map
// and premarks every frame whose address range does not fall inside a
// usable region so it can never be handed out.
func (t *FrameTable) Init() *kernel.Error {
	t.lock.Acquire()
	defer t.lock.Release()

	var maxUsableEnd uint64
	bootinfo.VisitRegions(func(r *bootinfo.MemoryRegion) bool {
		if r.Kind == bootinfo.RegionUsable && r.End > maxUsableEnd {
			maxUsableEnd = r.End
		}
		return true
	})

	if maxUsableEnd == 0 {
		return errNoUsableMemory
	}

	t.frameCount = uint32(maxUsableEnd >> mem.PageShift)
	if t.frameCount > MaxFrames {
		t.frameCount = MaxFrames
	}
	t.reservedFrames = 0
	t.allocatedFrames = 0
	for i := range t.bitmap {
		t.bitmap[i] = 0
		t.reserved[i] = 0
	}

	for frame := uint32(0); frame < t.frameCount; frame++ {
		if !frameUsable(uint64(frame) << mem.PageShift) {
			t.bitmap[frame>>6] |= 1 << (frame & 63)
			t.reserved[frame>>6] |= 1 << (frame & 63)
			t.reservedFrames++
		}
	}

	return nil
}

// frameUsable returns true if the page-sized range starting at start
// falls entirely inside a usable memory region.
func frameUsable(start uint64) bool {
	var (
		end    = start + uint64(mem.PageSize)
		usable bool
	)

	bootinfo.VisitRegions(func(r *bootinfo.MemoryRegion) bool {
		if r.Kind == bootinfo.RegionUsable && start >= r.Start && end <= r.End {
			usable = true
			return false
		}
		return true
	})

	return usable
}

// AllocRange reserves a run of count consecutive free frames and returns
// the first frame in the run. The scan is first-fit from the start of
// the table; a run is either reserved whole or not at all. AllocRange
// returns ErrOutOfMemory if no sufficiently long free run exists.
func (t *FrameTable) AllocRange(count uint32) (pmm.Frame, *kernel.Error) {
	if count == 0 {
		return pmm.InvalidFrame, ErrInvalidRange
	}

	t.lock.Acquire()
	defer t.lock.Release()

	var run uint32
	for frame := uint32(0); frame < t.frameCount; frame++ {
		if t.bitmap[frame>>6]&(1<<(frame&63)) != 0 {
			run = 0
			continue
		}

		if run++; run == count {
			first := frame - count + 1
			t.markRange(first, count, true)
			t.allocatedFrames += count
			return pmm.Frame(first), nil
		}
	}

	return pmm.InvalidFrame, ErrOutOfMemory
}

// AllocFrame reserves a single free frame.
func (t *FrameTable) AllocFrame() (pmm.Frame, *kernel.Error) {
	return t.AllocRange(1)
}

// FreeRange marks the run of count frames starting at first as free.
// The entire run must currently be allocated and inside the table;
// otherwise FreeRange returns ErrInvalidRange and the table is left
// untouched. Freeing a frame that is already free indicates a kernel
// bug, so callers must escalate ErrInvalidRange instead of ignoring it.
func (t *FrameTable) FreeRange(first pmm.Frame, count uint32) *kernel.Error {
	t.lock.Acquire()
	defer t.lock.Release()

	if count == 0 || uint64(first) >= uint64(t.frameCount) || uint64(first)+uint64(count) > uint64(t.frameCount) {
		return ErrInvalidRange
	}

	// Validate the full run before mutating any bit so a bad request
	// cannot leave the table in a half-updated state. Reserved frames
	// were never handed out by AllocRange, so freeing one would turn
	// bootloader or kernel-image memory allocatable.
	for frame := uint32(first); frame < uint32(first)+count; frame++ {
		if t.bitmap[frame>>6]&(1<<(frame&63)) == 0 || t.reserved[frame>>6]&(1<<(frame&63)) != 0 {
			return ErrInvalidRange
		}
	}

	t.markRange(uint32(first), count, false)
	t.allocatedFrames -= count
	return nil
}

// FreeFrame marks a single frame as free.
func (t *FrameTable) FreeFrame(frame pmm.Frame) *kernel.Error {
	return t.FreeRange(frame, 1)
}

// markRange flips the allocation state for count frames starting at
// first. The caller must hold the table lock.
func (t *FrameTable) markRange(first, count uint32, allocated bool) {
	for frame := first; frame < first+count; frame++ {
		if allocated {
			t.bitmap[frame>>6] |= 1 << (frame & 63)
		} else {
			t.bitmap[frame>>6] &^= 1 << (frame & 63)
		}
	}
}

// Stats returns a snapshot of the table utilization counters.
func (t *FrameTable) Stats() Stats {
	t.lock.Acquire()
	defer t.lock.Release()

	return Stats{
		TotalFrames:     t.frameCount,
		ReservedFrames:  t.reservedFrames,
		AllocatedFrames: t.allocatedFrames,
	}
}

// Init sets up the kernel physical frame allocation sub-system.
func Init() *kernel.Error {
	printMemoryMap()

	if err := FrameAllocator.Init(); err != nil {
		return err
	}

	stats := FrameAllocator.Stats()
	kfmt.Printf("[pmm] frame table: %d frames, %d reserved\n", stats.TotalFrames, stats.ReservedFrames)
	return nil
}

// printMemoryMap logs the memory region information provided by the
// bootloader.
func printMemoryMap() {
	kfmt.Printf("[pmm] system memory map:\n")
	var totalUsable mem.Size
	bootinfo.VisitRegions(func(r *bootinfo.MemoryRegion) bool {
		kfmt.Printf("\t[0x%10x - 0x%10x], size: %10d, type: %s\n", r.Start, r.End, r.End-r.Start, r.Kind.String())

		if r.Kind == bootinfo.RegionUsable {
			totalUsable += mem.Size(r.End - r.Start)
		}
		return true
	})
	kfmt.Printf("[pmm] usable memory: %dKb\n", uint64(totalUsable/mem.Kb))
}
