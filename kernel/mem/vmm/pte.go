package vmm

// PageTableEntryFlag describes an attribute applied to a page mapping.
type PageTableEntryFlag uintptr

const (
	// FlagPresent marks the page as resident; translations through a
	// non-present entry fault.
	FlagPresent PageTableEntryFlag = 1 << iota

	// FlagRW marks the page as writable.
	FlagRW

	// FlagUserAccessible allows ring 3 code to access the page.
	FlagUserAccessible

	// FlagWriteThrough enables write-through caching for the page.
	FlagWriteThrough

	// FlagDoNotCache disables caching for the page.
	FlagDoNotCache

	// FlagGlobal prevents the TLB entry from being flushed on an
	// address space switch.
	FlagGlobal

	// FlagNoExecute prevents instruction fetches from the page.
	FlagNoExecute
)
