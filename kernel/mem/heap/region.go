// Package heap places the kernel heap at a randomized virtual address
// and carves allocations out of it with an address-ordered free list.
package heap

import (
	"github.com/ethindp/kernel/kernel"
	"github.com/ethindp/kernel/kernel/hal/bootinfo"
	"github.com/ethindp/kernel/kernel/kfmt"
	"github.com/ethindp/kernel/kernel/mem"
	"github.com/ethindp/kernel/kernel/mem/pmm"
	"github.com/ethindp/kernel/kernel/mem/pmm/allocator"
	"github.com/ethindp/kernel/kernel/mem/vmm"
)

const (
	// searchBase is the start of the virtual address window where heap
	// placement candidates are generated.
	searchBase = uintptr(0x100000000000)

	// placementModulus bounds the randomized page offset added to
	// searchBase when generating a candidate base.
	placementModulus = 32767

	// maxPlacementAttempts bounds the number of candidates tried before
	// placement gives up. Running out of attempts is fatal at boot.
	maxPlacementAttempts = 64

	// heapSize is the length of the kernel heap region.
	heapSize = 8 * mem.Mb
)

var (
	errNoEntropySource = &kernel.Error{Module: "heap", Message: "no entropy source available for heap placement"}
	errPlacementFailed = &kernel.Error{Module: "heap", Message: "unable to find a non-colliding heap base"}
	errRegionNotMapped = &kernel.Error{Module: "heap", Message: "heap region rollback failed; mappings are inconsistent"}

	// Hooks into the frame and mapping layers. Tests swap these to
	// exercise the failure and rollback paths without real state.
	allocRangeFn = func(count uint32) (pmm.Frame, *kernel.Error) {
		return allocator.FrameAllocator.AllocRange(count)
	}
	freeRangeFn = func(first pmm.Frame, count uint32) *kernel.Error {
		return allocator.FrameAllocator.FreeRange(first, count)
	}
	mapFn   = vmm.Map
	unmapFn = vmm.Unmap
)

// ReservedRange describes a virtual address range the heap must not
// overlap, such as the kernel image or the frame table backing storage.
type ReservedRange struct {
	Start uintptr
	End   uintptr
}

// Region describes the placed kernel heap. Its fields are written once
// by InitRegion and are safe to read without locking afterwards.
type Region struct {
	base       uintptr
	size       mem.Size
	firstFrame pmm.Frame
}

// Base returns the virtual address where the heap region begins.
func (r *Region) Base() uintptr {
	return r.base
}

// Size returns the length of the heap region in bytes.
func (r *Region) Size() mem.Size {
	return r.size
}

// InitRegion selects a randomized base for the kernel heap, reserves
// the physical frames backing it and installs the page mappings. The
// entropy source must be installed before boot reaches this point;
// placement without one would be deterministic and is refused. Any
// failure leaves the frame table and the mapping table untouched.
func InitRegion(entropyFn func() uint64, reserved []ReservedRange) (*Region, *kernel.Error) {
	if entropyFn == nil {
		return nil, errNoEntropySource
	}

	base, err := findHeapBase(entropyFn, reserved)
	if err != nil {
		return nil, err
	}

	pageCount := uint32(heapSize >> mem.PageShift)
	firstFrame, err := allocRangeFn(pageCount)
	if err != nil {
		return nil, err
	}

	firstPage := vmm.PageFromAddress(base)
	for pageIndex := uint32(0); pageIndex < pageCount; pageIndex++ {
		err = mapFn(firstPage+vmm.Page(pageIndex), firstFrame+pmm.Frame(pageIndex), vmm.FlagPresent|vmm.FlagRW|vmm.FlagNoExecute)
		if err == nil {
			continue
		}

		// Roll back the mappings installed so far and release the
		// frame run before reporting the failure.
		for unmapIndex := uint32(0); unmapIndex < pageIndex; unmapIndex++ {
			if unmapErr := unmapFn(firstPage + vmm.Page(unmapIndex)); unmapErr != nil {
				kfmt.Panic(errRegionNotMapped)
			}
		}
		if freeErr := freeRangeFn(firstFrame, pageCount); freeErr != nil {
			kfmt.Panic(freeErr)
		}
		return nil, err
	}

	kfmt.Printf("[heap] region placed at 0x%16x, size: %dKb\n", base, uint64(heapSize/mem.Kb))
	return &Region{base: base, size: heapSize, firstFrame: firstFrame}, nil
}

// findHeapBase samples randomized placement candidates until one does
// not collide with a reserved range or a non-usable memory region.
func findHeapBase(entropyFn func() uint64, reserved []ReservedRange) (uintptr, *kernel.Error) {
	for attempt := 0; attempt < maxPlacementAttempts; attempt++ {
		pageOffset := uintptr(entropyFn() % placementModulus)
		candidate := searchBase + pageOffset<<mem.PageShift

		if !collides(candidate, candidate+uintptr(heapSize), reserved) {
			return candidate, nil
		}
	}

	return 0, errPlacementFailed
}

// collides reports whether [start, end) overlaps a reserved range or a
// bootloader-reported non-usable region.
func collides(start, end uintptr, reserved []ReservedRange) bool {
	for _, r := range reserved {
		if start < r.End && r.Start < end {
			return true
		}
	}

	var hit bool
	bootinfo.VisitRegions(func(r *bootinfo.MemoryRegion) bool {
		if r.Kind != bootinfo.RegionUsable && uint64(start) < r.End && r.Start < uint64(end) {
			hit = true
			return false
		}
		return true
	})

	return hit
}
