package irq

import "github.com/ethindp/kernel/kernel/kfmt"

// Vector identifies an entry in the interrupt descriptor table.
type Vector uint8

// SyscallVector is the software interrupt vector userspace raises to
// enter the kernel.
const SyscallVector = Vector(0x80)

// Handler is invoked with the register snapshot of the interrupted
// context when its vector fires.
type Handler func(regs *Regs, frame *Frame)

var handlers [256]Handler

// HandleInterrupt registers a handler for the given vector, replacing
// any previous registration.
func HandleInterrupt(vector Vector, handler Handler) {
	handlers[vector] = handler
}

// Dispatch routes an interrupt to the handler registered for its
// vector. Interrupts without a registered handler are logged and
// otherwise ignored so a stray vector cannot take the system down.
func Dispatch(vector Vector, regs *Regs, frame *Frame) {
	handler := handlers[vector]
	if handler == nil {
		kfmt.Printf("[irq] ignoring interrupt with unregistered vector 0x%x\n", uint8(vector))
		return
	}

	handler(regs, frame)
}
