// Package pmm contains the types for referring to physical memory
// frames. Frame allocation state lives in the allocator sub-package.
package pmm

import (
	"math"

	"github.com/ethindp/kernel/kernel/mem"
)

// Frame describes a physical memory page index.
type Frame uintptr

// InvalidFrame is returned by frame allocators when they fail to reserve
// the requested frame.
const InvalidFrame = Frame(math.MaxUint64)

// Valid returns true if this is a valid frame.
func (f Frame) Valid() bool {
	return f != InvalidFrame
}

// Address returns the physical memory address where this Frame begins.
func (f Frame) Address() uintptr {
	return uintptr(f << mem.PageShift)
}
