// Package cpu provides access to processor-level primitives: halting the
// current processor, masking maskable interrupts and reading the
// hardware entropy source. The real routines belong to the arch bring-up
// and interrupt-controller subsystems which install them via the Set*
// hooks at boot; the defaults model the same behavior in software so the
// rest of the kernel can run in user mode.
package cpu

import "sync/atomic"

var (
	haltFn = func() {
		for {
		}
	}

	// intMaskState tracks the software view of the local interrupt
	// mask. A non-zero value means interrupts are masked.
	intMaskState uint32

	disableHookFn = func() {}
	enableHookFn  = func() {}

	randFn func() uint64
)

// Halt stops instruction execution on the current processor. Calls to
// Halt never return.
func Halt() {
	haltFn()
	for {
	}
}

// DisableInterrupts masks maskable interrupts on the current processor.
// This is a local masking discipline; other processors are unaffected.
func DisableInterrupts() {
	atomic.StoreUint32(&intMaskState, 1)
	disableHookFn()
}

// EnableInterrupts unmasks maskable interrupts on the current processor.
func EnableInterrupts() {
	enableHookFn()
	atomic.StoreUint32(&intMaskState, 0)
}

// InterruptsEnabled reports whether interrupts are currently unmasked on
// this processor according to the software mask state.
func InterruptsEnabled() bool {
	return atomic.LoadUint32(&intMaskState) == 0
}

// SetInterruptMaskHooks installs the mask/unmask routines provided by
// the interrupt controller bring-up code.
func SetInterruptMaskHooks(disable, enable func()) {
	disableHookFn = disable
	enableHookFn = enable
}

// SetRandomSource installs the arch entropy read routine (e.g. a rdrand
// wrapper). The heap placement code refuses to run without one.
func SetRandomSource(fn func() uint64) {
	randFn = fn
}

// HasRandomSource reports whether an entropy source has been installed.
func HasRandomSource() bool {
	return randFn != nil
}

// ReadRandom returns a word from the installed entropy source. It must
// not be called before a source is installed.
func ReadRandom() uint64 {
	return randFn()
}
