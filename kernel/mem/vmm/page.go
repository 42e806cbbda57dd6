// Package vmm maintains the kernel's virtual memory mappings. The
// authoritative page to frame association is software state; an arch
// hook pair mirrors every change into the hardware page tables.
package vmm

import (
	"github.com/ethindp/kernel/kernel/mem"
)

// Page describes a virtual memory page index.
type Page uintptr

// Address returns the virtual memory address where this Page begins.
func (p Page) Address() uintptr {
	return uintptr(p << mem.PageShift)
}

// PageFromAddress returns the Page that contains the given virtual
// address.
func PageFromAddress(virtAddr uintptr) Page {
	return Page(virtAddr >> mem.PageShift)
}
