// Package syscall implements the gateway that turns software interrupt
// 0x80 into validated calls against the kernel's category registry.
package syscall

import "github.com/ethindp/kernel/kernel/irq"

// MaxParams is the number of parameter-carrying registers in the
// syscall ABI.
const MaxParams = 12

// Descriptor is the decoded form of a syscall request: the category and
// code selectors plus the fixed-size parameter block captured from the
// caller's registers.
type Descriptor struct {
	Category uint64
	Code     uint64
	Params   [MaxParams]uint64
}

// descriptorFromRegs decodes a register snapshot into a Descriptor. The
// ABI places the category in RAX, the code in RBX and the parameters in
// RCX, RDX, RSI, RDI and R8 through R15, in that order.
func descriptorFromRegs(regs *irq.Regs) Descriptor {
	return Descriptor{
		Category: regs.RAX,
		Code:     regs.RBX,
		Params: [MaxParams]uint64{
			regs.RCX, regs.RDX, regs.RSI, regs.RDI,
			regs.R8, regs.R9, regs.R10, regs.R11,
			regs.R12, regs.R13, regs.R14, regs.R15,
		},
	}
}
