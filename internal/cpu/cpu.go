// Package cpu implements the 6502 CPU emulation for the NES.
//
// CPU state is a plain value. Every operation takes the previous State and
// returns the next one; callers rebind the result and must not reuse the
// value they passed in.
package cpu

import (
	"strings"

	"nescore/internal/memory"
)

// CPU constants
const (
	// Status register bit masks
	nFlagMask  = 0x80
	vFlagMask  = 0x40
	unusedMask = 0x20
	bFlagMask  = 0x10
	dFlagMask  = 0x08
	iFlagMask  = 0x04
	zFlagMask  = 0x02
	cFlagMask  = 0x01
	// Page boundary mask
	pageMask = 0xFF00
	// Interrupt vectors
	ResetVector = 0xFFFC

	// Stack pointer after reset
	resetStackPointer = 0xFD
	// Cycles spent by the reset sequence
	resetCycles = 7
)

// Status is the processor status register.
// Bit 5 is hardwired on real hardware and is never stored here; see Byte.
type Status uint8

// Processor status flags, in hardware bit order
const (
	Carry            Status = cFlagMask
	Zero             Status = zFlagMask
	InterruptDisable Status = iFlagMask
	Decimal          Status = dFlagMask
	Break            Status = bFlagMask
	Overflow         Status = vFlagMask
	Negative         Status = nFlagMask

	allFlags = Carry | Zero | InterruptDisable | Decimal | Break | Overflow | Negative
)

// Has reports whether every bit of flag is set.
func (p Status) Has(flag Status) bool {
	return p&flag == flag
}

// Byte returns the register as the hardware presents it, with the unused bit set.
func (p Status) Byte() uint8 {
	return uint8(p&allFlags) | unusedMask
}

// String renders the flags as NV-BDIZC, using '-' for clear bits.
func (p Status) String() string {
	var sb strings.Builder
	for _, f := range []struct {
		flag Status
		name byte
	}{
		{Negative, 'N'}, {Overflow, 'V'}, {0, '-'}, {Break, 'B'},
		{Decimal, 'D'}, {InterruptDisable, 'I'}, {Zero, 'Z'}, {Carry, 'C'},
	} {
		if f.flag != 0 && p.Has(f.flag) {
			sb.WriteByte(f.name)
		} else {
			sb.WriteByte('-')
		}
	}
	return sb.String()
}

// Register selects one of the 8-bit CPU registers.
type Register int

const (
	A Register = iota
	X
	Y
	SP
)

// State represents the 6502 registers
type State struct {
	PC uint16 // Program counter
	P  Status // Processor status

	A  uint8 // Accumulator
	X  uint8 // X register
	Y  uint8 // Y register
	SP uint8 // Stack pointer

	// Cycles executed since power-on
	Cycles uint64
}

// UpdateProcessorStatus returns a copy of s with flag set or cleared.
func UpdateProcessorStatus(s State, flag Status, enable bool) State {
	if enable {
		s.P = (s.P | flag) & allFlags
	} else {
		s.P &^= flag
	}
	return s
}

// MoveProgramCounter returns a copy of s with the program counter replaced.
func MoveProgramCounter(s State, address uint16) State {
	s.PC = address
	return s
}

// LoadRegister returns a copy of s with one register replaced.
func LoadRegister(s State, reg Register, value uint8) State {
	switch reg {
	case A:
		s.A = value
	case X:
		s.X = value
	case Y:
		s.Y = value
	case SP:
		s.SP = value
	}
	return s
}

// Register returns the value of one register.
func (s State) Register(reg Register) uint8 {
	switch reg {
	case X:
		return s.X
	case Y:
		return s.Y
	case SP:
		return s.SP
	default:
		return s.A
	}
}

// spendCycles returns a copy of s with n more cycles accounted.
func spendCycles(s State, n uint8) State {
	s.Cycles += uint64(n)
	return s
}

// Reset performs a CPU reset: registers and flags are cleared and the
// program counter is loaded from the reset vector at 0xFFFC-0xFFFD.
func Reset(bus memory.Bus) (State, error) {
	vector, err := bus.ReadWord(ResetVector)
	if err != nil {
		return State{}, err
	}

	s := State{SP: resetStackPointer}
	s = MoveProgramCounter(s, vector)
	return spendCycles(s, resetCycles), nil
}

// Tick executes a single instruction: fetch the opcode at PC, decode it
// through the instruction table, resolve its operand and apply its effect.
//
// On error the returned State is s, unchanged.
func Tick(s State, bus memory.Bus) (State, error) {
	opcode, err := bus.Read(s.PC)
	if err != nil {
		return s, err
	}

	instruction := table[opcode]
	if instruction == nil {
		return s, &UnsupportedOperationError{Opcode: opcode, PC: s.PC}
	}

	operand, err := Resolve(*instruction, s, bus)
	if err != nil {
		return s, err
	}

	next, err := instruction.Effect(s, bus, operand)
	if err != nil {
		return s, err
	}

	cycles := instruction.Cycles
	// Indexed reads take an extra cycle when the effective address crosses a page
	if operand.PageCrossed && instruction.Mode != Relative {
		cycles++
	}
	return spendCycles(next, cycles), nil
}
