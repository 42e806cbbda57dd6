package heap

import (
	"testing"

	"github.com/ethindp/kernel/kernel"
	"github.com/ethindp/kernel/kernel/hal/bootinfo"
	"github.com/ethindp/kernel/kernel/mem"
	"github.com/ethindp/kernel/kernel/mem/pmm"
	"github.com/ethindp/kernel/kernel/mem/pmm/allocator"
	"github.com/ethindp/kernel/kernel/mem/vmm"
)

func TestInitRegionWithoutEntropySource(t *testing.T) {
	if _, err := InitRegion(nil, nil); err != errNoEntropySource {
		t.Fatalf("expected to get errNoEntropySource; got %v", err)
	}
}

func TestFindHeapBase(t *testing.T) {
	defer bootinfo.SetRegions(nil)

	// A deterministic entropy sequence: the first two candidates
	// collide with the reserved list, the third one does not.
	var sample int
	sequence := []uint64{100, 200, 300}
	entropyFn := func() uint64 {
		val := sequence[sample%len(sequence)]
		sample++
		return val
	}

	reserved := []ReservedRange{
		{Start: searchBase + 100<<mem.PageShift, End: searchBase + 101<<mem.PageShift},
		{Start: searchBase + 200<<mem.PageShift, End: searchBase + 201<<mem.PageShift},
	}

	base, err := findHeapBase(entropyFn, reserved)
	if err != nil {
		t.Fatal(err)
	}

	if exp := searchBase + 300<<mem.PageShift; base != exp {
		t.Fatalf("expected placement to select base 0x%x; got 0x%x", exp, base)
	}

	if sample != 3 {
		t.Fatalf("expected placement to draw 3 samples; got %d", sample)
	}
}

func TestFindHeapBaseRetryExhaustion(t *testing.T) {
	defer bootinfo.SetRegions(nil)

	// Every candidate lands inside the reserved window.
	var samples int
	entropyFn := func() uint64 {
		samples++
		return 42
	}

	reserved := []ReservedRange{
		{Start: searchBase, End: searchBase + placementModulus<<mem.PageShift + uintptr(heapSize)},
	}

	if _, err := findHeapBase(entropyFn, reserved); err != errPlacementFailed {
		t.Fatalf("expected to get errPlacementFailed; got %v", err)
	}

	if samples != maxPlacementAttempts {
		t.Fatalf("expected placement to give up after %d attempts; got %d", maxPlacementAttempts, samples)
	}
}

func TestFindHeapBaseBootRegionCollision(t *testing.T) {
	defer bootinfo.SetRegions(nil)

	// A bootloader-reported reserved region covering the candidate for
	// sample 10; sample 20 is clear.
	bootinfo.SetRegions([]bootinfo.MemoryRegion{
		{
			Start: uint64(searchBase + 10<<mem.PageShift),
			End:   uint64(searchBase + 11<<mem.PageShift),
			Kind:  bootinfo.RegionReserved,
		},
	})

	sequence := []uint64{10, 20}
	var sample int
	entropyFn := func() uint64 {
		val := sequence[sample%len(sequence)]
		sample++
		return val
	}

	base, err := findHeapBase(entropyFn, nil)
	if err != nil {
		t.Fatal(err)
	}

	if exp := searchBase + 20<<mem.PageShift; base != exp {
		t.Fatalf("expected placement to skip the reserved boot region and select 0x%x; got 0x%x", exp, base)
	}
}

func TestInitRegion(t *testing.T) {
	defer restoreRegionHooks()

	var (
		allocCount uint32
		mapCalls   int
	)

	allocRangeFn = func(count uint32) (pmm.Frame, *kernel.Error) {
		allocCount = count
		return pmm.Frame(128), nil
	}
	freeRangeFn = func(_ pmm.Frame, _ uint32) *kernel.Error {
		t.Error("unexpected call to freeRangeFn")
		return nil
	}
	mapFn = func(page vmm.Page, frame pmm.Frame, flags vmm.PageTableEntryFlag) *kernel.Error {
		if exp := vmm.FlagPresent | vmm.FlagRW | vmm.FlagNoExecute; flags != exp {
			t.Errorf("expected mapping flags 0x%x; got 0x%x", exp, flags)
		}
		if exp := pmm.Frame(128) + pmm.Frame(mapCalls); frame != exp {
			t.Errorf("expected map call %d to use frame %d; got %d", mapCalls, exp, frame)
		}
		mapCalls++
		return nil
	}
	unmapFn = func(_ vmm.Page) *kernel.Error {
		t.Error("unexpected call to unmapFn")
		return nil
	}

	region, err := InitRegion(func() uint64 { return 500 }, nil)
	if err != nil {
		t.Fatal(err)
	}

	if exp := searchBase + 500<<mem.PageShift; region.Base() != exp {
		t.Fatalf("expected region base 0x%x; got 0x%x", exp, region.Base())
	}

	if region.Size() != heapSize {
		t.Fatalf("expected region size %d; got %d", heapSize, region.Size())
	}

	if exp := uint32(heapSize >> mem.PageShift); allocCount != exp || mapCalls != int(exp) {
		t.Fatalf("expected %d frames allocated and mapped; got %d allocated, %d mapped", exp, allocCount, mapCalls)
	}
}

func TestInitRegionMapFailureRollsBack(t *testing.T) {
	defer restoreRegionHooks()

	var (
		expErr     = &kernel.Error{Module: "heap_test", Message: "map failed"}
		mapCalls   int
		unmapCalls int
		freedFirst pmm.Frame
		freedCount uint32
	)

	allocRangeFn = func(count uint32) (pmm.Frame, *kernel.Error) {
		return pmm.Frame(0), nil
	}
	freeRangeFn = func(first pmm.Frame, count uint32) *kernel.Error {
		freedFirst, freedCount = first, count
		return nil
	}
	mapFn = func(_ vmm.Page, _ pmm.Frame, _ vmm.PageTableEntryFlag) *kernel.Error {
		if mapCalls++; mapCalls == 10 {
			return expErr
		}
		return nil
	}
	unmapFn = func(_ vmm.Page) *kernel.Error {
		unmapCalls++
		return nil
	}

	if _, err := InitRegion(func() uint64 { return 0 }, nil); err != expErr {
		t.Fatalf("expected to get expErr; got %v", err)
	}

	if unmapCalls != 9 {
		t.Fatalf("expected the 9 installed mappings to be rolled back; got %d unmap calls", unmapCalls)
	}

	if exp := uint32(heapSize >> mem.PageShift); freedFirst != 0 || freedCount != exp {
		t.Fatalf("expected frame run (0, %d) to be freed; got (%d, %d)", exp, freedFirst, freedCount)
	}
}

func TestInitRegionAllocFailure(t *testing.T) {
	defer restoreRegionHooks()

	expErr := &kernel.Error{Module: "heap_test", Message: "no frames"}
	allocRangeFn = func(_ uint32) (pmm.Frame, *kernel.Error) {
		return pmm.InvalidFrame, expErr
	}
	mapFn = func(_ vmm.Page, _ pmm.Frame, _ vmm.PageTableEntryFlag) *kernel.Error {
		t.Error("unexpected call to mapFn")
		return nil
	}

	if _, err := InitRegion(func() uint64 { return 0 }, nil); err != expErr {
		t.Fatalf("expected to get expErr; got %v", err)
	}
}

func restoreRegionHooks() {
	allocRangeFn = func(count uint32) (pmm.Frame, *kernel.Error) {
		return allocator.FrameAllocator.AllocRange(count)
	}
	freeRangeFn = func(first pmm.Frame, count uint32) *kernel.Error {
		return allocator.FrameAllocator.FreeRange(first, count)
	}
	mapFn = vmm.Map
	unmapFn = vmm.Unmap
}
