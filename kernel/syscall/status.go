package syscall

// Status codes written to RAX when a syscall cannot be serviced. They
// occupy the top of the uint64 range so they can never collide with a
// successfully returned address.
const (
	// StatusInvalidCategory reports a category id with no registry
	// entry.
	StatusInvalidCategory uint64 = 0xFFFFFFFFFFFFFFFF

	// StatusInvalidCode reports a code id the selected category does
	// not define.
	StatusInvalidCode uint64 = 0xFFFFFFFFFFFFFFFE

	// StatusInvalidParameters reports parameters that fail the code's
	// declared bounds checks.
	StatusInvalidParameters uint64 = 0xFFFFFFFFFFFFFFFD

	// StatusOutOfMemory reports that the kernel could not reserve the
	// requested memory. The condition is recoverable for the caller.
	StatusOutOfMemory uint64 = 0xFFFFFFFFFFFFFFFC
)
