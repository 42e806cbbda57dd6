package syscall

import (
	"github.com/ethindp/kernel/kernel/cpu"
	"github.com/ethindp/kernel/kernel/irq"
	"github.com/ethindp/kernel/kernel/kfmt"
)

var (
	// Interrupts stay masked on the local processor for the whole
	// dispatch so a nested trap cannot re-enter the gateway while
	// shared state is mid-mutation.
	disableInterruptsFn = cpu.DisableInterrupts
	enableInterruptsFn  = cpu.EnableInterrupts
)

// Init registers the gateway as the handler for the syscall vector.
func Init() {
	irq.HandleInterrupt(irq.SyscallVector, dispatch)
	kfmt.Printf("[syscall] gateway registered on vector 0x%x\n", uint8(irq.SyscallVector))
}

// dispatch validates a trapped request against the category registry
// and runs its handler. The outcome is written to RAX on every path:
// either the handler's success value or a status code. Validation
// failures return before any handler runs, so a rejected request never
// has side effects.
func dispatch(regs *irq.Regs, _ *irq.Frame) {
	disableInterruptsFn()
	defer enableInterruptsFn()

	desc := descriptorFromRegs(regs)

	category := lookupCategory(desc.Category)
	if category == nil {
		regs.RAX = StatusInvalidCategory
		return
	}

	code := category.lookupCode(desc.Code)
	if code == nil {
		regs.RAX = StatusInvalidCode
		return
	}

	// The registry's declared arity is authoritative: registers beyond
	// the code's parameter count are not part of the request and are
	// cleared before the code's validation or handler can see them.
	for paramIndex := code.paramCount; paramIndex < MaxParams; paramIndex++ {
		desc.Params[paramIndex] = 0
	}

	if !code.check(&desc) {
		regs.RAX = StatusInvalidParameters
		return
	}

	value, err := code.handler(&desc)
	if err != nil {
		regs.RAX = statusForError(err)
		return
	}

	regs.RAX = value
}
