// Package bootinfo provides access to the physical memory region list
// reported by the bootloader. The boot stub installs the list exactly
// once before any allocator is initialized; afterwards the list is
// read-only.
package bootinfo

import "unsafe"

// RegionKind describes how a reported memory region may be used.
type RegionKind uint32

const (
	// RegionUsable indicates that the region is available RAM.
	RegionUsable RegionKind = iota + 1

	// RegionReserved indicates that the region must not be used.
	RegionReserved

	// RegionKernelImage indicates the region backing the loaded kernel.
	RegionKernelImage

	// RegionBootloader indicates memory still owned by the bootloader.
	RegionBootloader
)

// String implements fmt.Stringer for RegionKind.
func (k RegionKind) String() string {
	switch k {
	case RegionUsable:
		return "usable"
	case RegionReserved:
		return "reserved"
	case RegionKernelImage:
		return "kernel image"
	case RegionBootloader:
		return "bootloader"
	default:
		return "unknown"
	}
}

// MemoryRegion describes a physical address range reported by the
// bootloader. End is exclusive.
type MemoryRegion struct {
	Start uint64
	End   uint64
	Kind  RegionKind

	// Padding so the struct layout matches the packed table prepared
	// by the boot stub (see SetInfoPtr).
	_ uint32
}

// regionTable mirrors the layout of the table prepared by the boot stub:
// a count word followed by count packed MemoryRegion entries.
type regionTable struct {
	count   uint64
	regions [maxRegions]MemoryRegion
}

// maxRegions caps the number of regions accepted from the bootloader.
const maxRegions = 1024

var regionList []MemoryRegion

// SetInfoPtr parses the memory region table that the boot stub placed at
// the supplied address and installs it as the active region list.
func SetInfoPtr(ptr uintptr) {
	table := (*regionTable)(unsafe.Pointer(ptr))
	count := table.count
	if count > maxRegions {
		count = maxRegions
	}
	regionList = table.regions[:count]
}

// SetRegions installs the supplied region list directly, bypassing the
// boot stub handoff. It is intended for subsystems that already hold a
// decoded list and for tests.
func SetRegions(regions []MemoryRegion) {
	regionList = regions
}

// VisitRegions invokes visitor for each reported memory region in order.
// If the visitor returns false, the iteration stops.
func VisitRegions(visitor func(*MemoryRegion) bool) {
	for i := range regionList {
		if !visitor(&regionList[i]) {
			return
		}
	}
}

// UsableBytes returns the total number of bytes in usable regions.
func UsableBytes() uint64 {
	var total uint64
	VisitRegions(func(r *MemoryRegion) bool {
		if r.Kind == RegionUsable {
			total += r.End - r.Start
		}
		return true
	})
	return total
}
