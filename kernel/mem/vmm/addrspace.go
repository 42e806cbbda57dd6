package vmm

import (
	"github.com/ethindp/kernel/kernel"
	"github.com/ethindp/kernel/kernel/mem"
	"github.com/ethindp/kernel/kernel/mem/pmm"
	"github.com/ethindp/kernel/kernel/sync"
)

var (
	// ErrInvalidMapping is returned when a virtual address cannot be
	// resolved to a physical frame.
	ErrInvalidMapping = &kernel.Error{Module: "vmm", Message: "virtual address does not point to a mapped page"}

	// ErrAlreadyMapped is returned by Map when the target page already
	// has an active mapping. Callers that hit this error mid-way
	// through mapping a range must unmap the pages they installed.
	ErrAlreadyMapped = &kernel.Error{Module: "vmm", Message: "page is already mapped"}

	// The arch layer mirrors mapping changes into the hardware page
	// tables through these hooks. They are no-ops until arch bring-up
	// installs them and tests override them to inject faults.
	installFn = func(_ Page, _ pmm.Frame, _ PageTableEntryFlag) *kernel.Error { return nil }
	removeFn  = func(_ Page) *kernel.Error { return nil }

	mappingsLock sync.Spinlock
	mappings     = make(map[Page]mapping)
)

type mapping struct {
	frame pmm.Frame
	flags PageTableEntryFlag
}

// Map establishes a mapping from page to frame with the given flags.
// Mapping a page that is already mapped fails with ErrAlreadyMapped;
// remapping must be an explicit Unmap followed by a Map so stale
// mappings can never mask an allocation bug.
func Map(page Page, frame pmm.Frame, flags PageTableEntryFlag) *kernel.Error {
	mappingsLock.Acquire()
	defer mappingsLock.Release()

	if _, exists := mappings[page]; exists {
		return ErrAlreadyMapped
	}

	if err := installFn(page, frame, flags); err != nil {
		return err
	}

	mappings[page] = mapping{frame: frame, flags: flags}
	return nil
}

// Unmap removes the mapping for page. Unmapping a page that is not
// mapped fails with ErrInvalidMapping.
func Unmap(page Page) *kernel.Error {
	mappingsLock.Acquire()
	defer mappingsLock.Release()

	if _, exists := mappings[page]; !exists {
		return ErrInvalidMapping
	}

	if err := removeFn(page); err != nil {
		return err
	}

	delete(mappings, page)
	return nil
}

// Translate resolves a virtual address to the physical address it maps
// to.
func Translate(virtAddr uintptr) (uintptr, *kernel.Error) {
	mappingsLock.Acquire()
	defer mappingsLock.Release()

	m, exists := mappings[PageFromAddress(virtAddr)]
	if !exists {
		return 0, ErrInvalidMapping
	}

	return m.frame.Address() + pageOffset(virtAddr), nil
}

// IsMapped returns true if the page has an active mapping.
func IsMapped(page Page) bool {
	mappingsLock.Acquire()
	defer mappingsLock.Release()

	_, exists := mappings[page]
	return exists
}

func pageOffset(virtAddr uintptr) uintptr {
	return virtAddr & (uintptr(mem.PageSize) - 1)
}
