// Package kmain contains the kernel boot sequence that runs once the
// rt0 stub hands over control.
package kmain

import (
	"github.com/ethindp/kernel/kernel"
	"github.com/ethindp/kernel/kernel/cpu"
	"github.com/ethindp/kernel/kernel/hal/bootinfo"
	"github.com/ethindp/kernel/kernel/kfmt"
	"github.com/ethindp/kernel/kernel/mem/heap"
	"github.com/ethindp/kernel/kernel/mem/pmm/allocator"
	"github.com/ethindp/kernel/kernel/syscall"
)

var (
	errNoEntropySource = &kernel.Error{Module: "kmain", Message: "no hardware entropy source installed; cannot randomize heap placement"}
	errKmainReturned   = &kernel.Error{Module: "kmain", Message: "Kmain returned"}
)

// Kmain is the kernel entry point. It receives the physical address of
// the bootloader info block and the kernel image bounds from the rt0
// stub, brings up the memory subsystems and the syscall gateway, then
// hands off. Kmain must never return; every initialization failure is
// fatal since the kernel cannot run without a heap.
func Kmain(bootInfoPtr, kernelStart, kernelEnd uintptr) {
	bootinfo.SetInfoPtr(bootInfoPtr)

	// Heap placement randomization is mandatory; refuse to boot on
	// hardware without an entropy source.
	if !cpu.HasRandomSource() {
		kfmt.Panic(errNoEntropySource)
	}

	if err := allocator.Init(); err != nil {
		kfmt.Panic(err)
	}

	// The frame table is a kernel global, so its backing storage lies
	// inside [kernelStart, kernelEnd] and this entry covers both the
	// image and the table.
	region, err := heap.InitRegion(cpu.ReadRandom, []heap.ReservedRange{
		{Start: kernelStart, End: kernelEnd},
	})
	if err != nil {
		kfmt.Panic(err)
	}

	heap.KernelAllocator.Init(region)
	syscall.Init()

	kfmt.Panic(errKmainReturned)
}
