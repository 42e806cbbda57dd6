package syscall

import (
	"github.com/ethindp/kernel/kernel"
	"github.com/ethindp/kernel/kernel/kfmt"
	"github.com/ethindp/kernel/kernel/mem"
	"github.com/ethindp/kernel/kernel/mem/pmm"
	"github.com/ethindp/kernel/kernel/mem/pmm/allocator"
	"github.com/ethindp/kernel/kernel/mem/vmm"
)

// MaxRequestPages caps the page count a single allocate_paged_range
// request may claim.
const MaxRequestPages = 16384

var (
	errSyscallRollback = &kernel.Error{Module: "syscall", Message: "rollback after failed request left memory state inconsistent"}

	// Hooks into the frame and mapping layers, swapped by tests.
	allocRangeFn = func(count uint32) (pmm.Frame, *kernel.Error) {
		return allocator.FrameAllocator.AllocRange(count)
	}
	freeRangeFn = func(first pmm.Frame, count uint32) *kernel.Error {
		return allocator.FrameAllocator.FreeRange(first, count)
	}
	mapFn   = vmm.Map
	unmapFn = vmm.Unmap
)

// pageSpan converts an inclusive [start, end] address range into the
// page run that covers it. The count is kept in 64 bits so a huge range
// cannot truncate into a small one before it has been bounds-checked.
func pageSpan(start, end uint64) (vmm.Page, uint64) {
	firstPage := start >> mem.PageShift
	lastPage := end >> mem.PageShift
	return vmm.Page(firstPage), lastPage - firstPage + 1
}

// checkAllocatePagedRange validates an allocate_paged_range request:
// the range must not be inverted and the pages covering it must fit in
// a single request.
func checkAllocatePagedRange(desc *Descriptor) bool {
	start, end := desc.Params[0], desc.Params[1]
	if end < start {
		return false
	}

	_, pageCount := pageSpan(start, end)
	return pageCount <= MaxRequestPages
}

// allocatePagedRange backs the inclusive virtual range [start, end]
// with freshly allocated frames and returns the address of the first
// page mapped. A failure part-way through unmaps the pages already
// installed and releases the frame run, so the request either takes
// full effect or none.
func allocatePagedRange(desc *Descriptor) (uint64, *kernel.Error) {
	firstPage, span := pageSpan(desc.Params[0], desc.Params[1])

	// checkAllocatePagedRange bounds the span to MaxRequestPages so the
	// narrowing conversion is safe here.
	pageCount := uint32(span)

	firstFrame, err := allocRangeFn(pageCount)
	if err != nil {
		return 0, err
	}

	for pageIndex := uint32(0); pageIndex < pageCount; pageIndex++ {
		err = mapFn(firstPage+vmm.Page(pageIndex), firstFrame+pmm.Frame(pageIndex), vmm.FlagPresent|vmm.FlagRW)
		if err == nil {
			continue
		}

		for unmapIndex := uint32(0); unmapIndex < pageIndex; unmapIndex++ {
			if unmapErr := unmapFn(firstPage + vmm.Page(unmapIndex)); unmapErr != nil {
				kfmt.Panic(errSyscallRollback)
			}
		}
		if freeErr := freeRangeFn(firstFrame, pageCount); freeErr != nil {
			kfmt.Panic(freeErr)
		}
		return 0, err
	}

	return uint64(firstPage.Address()), nil
}

// statusForError converts a handler error into the status code written
// back to the caller.
func statusForError(err *kernel.Error) uint64 {
	switch err {
	case vmm.ErrAlreadyMapped:
		// The caller asked for a range that is already in use.
		return StatusInvalidParameters
	default:
		return StatusOutOfMemory
	}
}
