// Package asmkit disassembles x86 machine code, such as the
// instructions surrounding a signature match.
package asmkit

import (
	"fmt"

	"golang.org/x/arch/x86/x86asm"
)

const (
	SkipSyntax  DisassemblySyntax = ""
	ATTSyntax   DisassemblySyntax = "att"
	GoSyntax    DisassemblySyntax = "go"
	IntelSyntax DisassemblySyntax = "intel"
)

type DisassemblySyntax string

type DisassemblerConfig struct {
	Syntax DisassemblySyntax

	// Bits is the processor mode: 16, 32, or 64.
	Bits int
}

func NewDisassembler(config DisassemblerConfig) (*Disassembler, error) {
	switch config.Bits {
	case 16, 32, 64:
	default:
		return nil, fmt.Errorf("unsupported x86 mode: %d bits", config.Bits)
	}

	var disassemblyFn func(inst x86asm.Inst, pc uint64) string
	switch config.Syntax {
	case SkipSyntax:
		// Do nothing.
	case ATTSyntax:
		disassemblyFn = func(inst x86asm.Inst, pc uint64) string {
			return x86asm.GNUSyntax(inst, pc, nil)
		}
	case GoSyntax:
		disassemblyFn = func(inst x86asm.Inst, pc uint64) string {
			return x86asm.GoSyntax(inst, pc, nil)
		}
	case IntelSyntax:
		disassemblyFn = func(inst x86asm.Inst, pc uint64) string {
			return x86asm.IntelSyntax(inst, pc, nil)
		}
	default:
		return nil, fmt.Errorf("unsupported syntax type for x86: %q", config.Syntax)
	}

	return &Disassembler{
		bits:          config.Bits,
		disassemblyFn: disassemblyFn,
	}, nil
}

type Disassembler struct {
	bits          int
	disassemblyFn func(inst x86asm.Inst, pc uint64) string
}

// All decodes every instruction in rawInstructions, which are located
// at address addr, and calls onDecodeFn for each of them in order.
// Branch targets and rip-relative operands are rendered as absolute
// addresses when addr is not zero.
func (o *Disassembler) All(rawInstructions []byte, addr uintptr, onDecodeFn func(Inst) error) error {
	index := 0

	for index < len(rawInstructions) {
		inst, err := o.Next(rawInstructions[index:], addr+uintptr(index))
		if err != nil {
			return fmt.Errorf("failed to decode instruction at offset %d - %w - remaining data: 0x%x",
				index, err, rawInstructions[index:])
		}

		inst.Index = index

		err = onDecodeFn(inst)
		if err != nil {
			return fmt.Errorf("on decode function failed for instruction at offset %d (%q) - %w",
				index, inst.Dis, err)
		}

		index += inst.Len
	}

	return nil
}

// Next decodes the first instruction in rawInstructions, which is
// located at address addr.
func (o *Disassembler) Next(rawInstructions []byte, addr uintptr) (Inst, error) {
	x86Inst, err := x86asm.Decode(rawInstructions, o.bits)
	if err != nil {
		return Inst{}, err
	}

	var disassembly string
	if o.disassemblyFn != nil {
		disassembly = o.disassemblyFn(x86Inst, uint64(addr))
	}

	return Inst{
		Bin:  copySlice(rawInstructions, x86Inst.Len),
		Len:  x86Inst.Len,
		Addr: addr,
		Dis:  disassembly,
		Inst: x86Inst,
	}, nil
}

func copySlice(src []byte, numBytes int) []byte {
	cp := make([]byte, numBytes)

	copy(cp, src[0:numBytes])

	return cp
}

type Inst struct {
	Bin   []byte
	Len   int
	Index int
	Addr  uintptr
	Dis   string
	Inst  x86asm.Inst
}

// Target returns the absolute address referenced by the instruction's
// rip-relative memory operand or relative branch, if it has one.
func (o Inst) Target() (uintptr, bool) {
	end := o.Addr + uintptr(o.Len)

	for _, arg := range o.Inst.Args {
		switch a := arg.(type) {
		case nil:
			return 0, false
		case x86asm.Mem:
			if a.Base == x86asm.RIP {
				return end + uintptr(a.Disp), true
			}
		case x86asm.Rel:
			return end + uintptr(int64(a)), true
		}
	}

	return 0, false
}
