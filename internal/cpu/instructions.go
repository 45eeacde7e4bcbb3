package cpu

import (
	"fmt"

	"nescore/internal/memory"
)

// Effect applies one instruction to the CPU state.
//
// s is the state before the instruction, with PC still pointing at the
// opcode. An effect must leave PC on the next instruction itself: most do so
// by skipping the opcode and operand bytes, jumps and taken branches load it.
type Effect func(s State, bus memory.Bus, op Operand) (State, error)

// Instruction represents a 6502 instruction
type Instruction struct {
	Name   string
	Opcode uint8
	Cycles uint8
	Mode   AddressingMode
	Effect Effect
}

// Bytes returns the encoded length of the instruction.
func (i Instruction) Bytes() uint16 {
	return 1 + i.Mode.OperandBytes()
}

// table is the instruction lookup table, indexed by opcode
var table = newTable([]Instruction{
	// Flag Instructions
	{"CLC", 0x18, 2, Implied, setFlag(Carry, false)},
	{"SEC", 0x38, 2, Implied, setFlag(Carry, true)},
	{"CLI", 0x58, 2, Implied, setFlag(InterruptDisable, false)},
	{"SEI", 0x78, 2, Implied, setFlag(InterruptDisable, true)},
	{"CLV", 0xB8, 2, Implied, setFlag(Overflow, false)},
	{"CLD", 0xD8, 2, Implied, setFlag(Decimal, false)},
	{"SED", 0xF8, 2, Implied, setFlag(Decimal, true)},

	// Load Instructions
	{"LDA", 0xA9, 2, Immediate, load(A)},
	{"LDA", 0xA5, 3, ZeroPage, load(A)},
	{"LDA", 0xAD, 4, Absolute, load(A)},
	{"LDA", 0xBD, 4, AbsoluteX, load(A)},
	{"LDA", 0xB9, 4, AbsoluteY, load(A)},
	{"LDX", 0xA2, 2, Immediate, load(X)},
	{"LDX", 0xA6, 3, ZeroPage, load(X)},
	{"LDX", 0xAE, 4, Absolute, load(X)},
	{"LDX", 0xBE, 4, AbsoluteY, load(X)},
	{"LDY", 0xA0, 2, Immediate, load(Y)},
	{"LDY", 0xA4, 3, ZeroPage, load(Y)},
	{"LDY", 0xAC, 4, Absolute, load(Y)},
	{"LDY", 0xBC, 4, AbsoluteX, load(Y)},

	// Transfer Instructions
	{"TAX", 0xAA, 2, Implied, transfer(A, X)},
	{"TAY", 0xA8, 2, Implied, transfer(A, Y)},
	{"TXA", 0x8A, 2, Implied, transfer(X, A)},
	{"TYA", 0x98, 2, Implied, transfer(Y, A)},
	{"TSX", 0xBA, 2, Implied, transfer(SP, X)},
	{"TXS", 0x9A, 2, Implied, transfer(X, SP)},

	// Register Increment/Decrement
	{"INX", 0xE8, 2, Implied, step(X, 1)},
	{"INY", 0xC8, 2, Implied, step(Y, 1)},
	{"DEX", 0xCA, 2, Implied, step(X, 0xFF)},
	{"DEY", 0x88, 2, Implied, step(Y, 0xFF)},

	// Arithmetic Instructions
	{"ADC", 0x69, 2, Immediate, adc},
	{"ADC", 0x65, 3, ZeroPage, adc},
	{"ADC", 0x6D, 4, Absolute, adc},
	{"ADC", 0x7D, 4, AbsoluteX, adc},
	{"ADC", 0x79, 4, AbsoluteY, adc},
	{"SBC", 0xE9, 2, Immediate, sbc},
	{"SBC", 0xE5, 3, ZeroPage, sbc},
	{"SBC", 0xED, 4, Absolute, sbc},
	{"SBC", 0xFD, 4, AbsoluteX, sbc},
	{"SBC", 0xF9, 4, AbsoluteY, sbc},

	// Logical Instructions
	{"AND", 0x29, 2, Immediate, logic(and)},
	{"AND", 0x25, 3, ZeroPage, logic(and)},
	{"AND", 0x2D, 4, Absolute, logic(and)},
	{"AND", 0x3D, 4, AbsoluteX, logic(and)},
	{"AND", 0x39, 4, AbsoluteY, logic(and)},
	{"ORA", 0x09, 2, Immediate, logic(or)},
	{"ORA", 0x05, 3, ZeroPage, logic(or)},
	{"ORA", 0x0D, 4, Absolute, logic(or)},
	{"ORA", 0x1D, 4, AbsoluteX, logic(or)},
	{"ORA", 0x19, 4, AbsoluteY, logic(or)},
	{"EOR", 0x49, 2, Immediate, logic(xor)},
	{"EOR", 0x45, 3, ZeroPage, logic(xor)},
	{"EOR", 0x4D, 4, Absolute, logic(xor)},
	{"EOR", 0x5D, 4, AbsoluteX, logic(xor)},
	{"EOR", 0x59, 4, AbsoluteY, logic(xor)},

	// Comparison Instructions
	{"CMP", 0xC9, 2, Immediate, compare(A)},
	{"CMP", 0xC5, 3, ZeroPage, compare(A)},
	{"CMP", 0xCD, 4, Absolute, compare(A)},
	{"CMP", 0xDD, 4, AbsoluteX, compare(A)},
	{"CMP", 0xD9, 4, AbsoluteY, compare(A)},
	{"CPX", 0xE0, 2, Immediate, compare(X)},
	{"CPX", 0xE4, 3, ZeroPage, compare(X)},
	{"CPX", 0xEC, 4, Absolute, compare(X)},
	{"CPY", 0xC0, 2, Immediate, compare(Y)},
	{"CPY", 0xC4, 3, ZeroPage, compare(Y)},
	{"CPY", 0xCC, 4, Absolute, compare(Y)},
	{"BIT", 0x24, 3, ZeroPage, bit},
	{"BIT", 0x2C, 4, Absolute, bit},

	// Shift Instructions (Accumulator only: the cartridge bus is read-only)
	{"ASL", 0x0A, 2, Accumulator, shift(asl)},
	{"LSR", 0x4A, 2, Accumulator, shift(lsr)},
	{"ROL", 0x2A, 2, Accumulator, shift(rol)},
	{"ROR", 0x6A, 2, Accumulator, shift(ror)},

	// Branch Instructions
	{"BPL", 0x10, 2, Relative, branch(Negative, false)},
	{"BMI", 0x30, 2, Relative, branch(Negative, true)},
	{"BVC", 0x50, 2, Relative, branch(Overflow, false)},
	{"BVS", 0x70, 2, Relative, branch(Overflow, true)},
	{"BCC", 0x90, 2, Relative, branch(Carry, false)},
	{"BCS", 0xB0, 2, Relative, branch(Carry, true)},
	{"BNE", 0xD0, 2, Relative, branch(Zero, false)},
	{"BEQ", 0xF0, 2, Relative, branch(Zero, true)},

	// Jump Instructions
	{"JMP", 0x4C, 3, Absolute, jmp},

	{"NOP", 0xEA, 2, Implied, nop},
})

// newTable indexes instructions by opcode. A duplicate opcode is a
// programming error in the table above.
func newTable(instructions []Instruction) [256]*Instruction {
	var t [256]*Instruction
	for i := range instructions {
		instruction := instructions[i]
		if existing := t[instruction.Opcode]; existing != nil {
			panic(fmt.Sprintf("cpu: duplicate opcode $%02X (%s, %s)",
				instruction.Opcode, existing.Name, instruction.Name))
		}
		t[instruction.Opcode] = &instruction
	}
	return t
}

// Lookup returns the instruction registered for opcode.
func Lookup(opcode uint8) (Instruction, bool) {
	if instruction := table[opcode]; instruction != nil {
		return *instruction, true
	}
	return Instruction{}, false
}

// Instructions returns every implemented instruction ordered by opcode.
func Instructions() []Instruction {
	instructions := make([]Instruction, 0, len(table))
	for _, instruction := range table {
		if instruction != nil {
			instructions = append(instructions, *instruction)
		}
	}
	return instructions
}

// Helpers

// advance moves PC past the opcode and its operand bytes
func advance(s State, op Operand) State {
	return MoveProgramCounter(s, op.next(s.PC))
}

// setZN sets Zero and Negative flags based on value
func setZN(s State, value uint8) State {
	s = UpdateProcessorStatus(s, Zero, value == 0)
	return UpdateProcessorStatus(s, Negative, value&nFlagMask != 0)
}

func carryIn(s State) uint8 {
	if s.P.Has(Carry) {
		return 1
	}
	return 0
}

// Instruction effects

func setFlag(flag Status, enable bool) Effect {
	return func(s State, _ memory.Bus, op Operand) (State, error) {
		if op.Mode != Implied {
			return s, op.unsupported()
		}
		return advance(UpdateProcessorStatus(s, flag, enable), op), nil
	}
}

func load(reg Register) Effect {
	return func(s State, bus memory.Bus, op Operand) (State, error) {
		value, err := operandValue(s, bus, op)
		if err != nil {
			return s, err
		}
		s = LoadRegister(s, reg, value)
		return advance(setZN(s, value), op), nil
	}
}

func transfer(from, to Register) Effect {
	return func(s State, _ memory.Bus, op Operand) (State, error) {
		if op.Mode != Implied {
			return s, op.unsupported()
		}
		value := s.Register(from)
		s = LoadRegister(s, to, value)
		// TXS is the only transfer that leaves the flags alone
		if to != SP {
			s = setZN(s, value)
		}
		return advance(s, op), nil
	}
}

func step(reg Register, delta uint8) Effect {
	return func(s State, _ memory.Bus, op Operand) (State, error) {
		if op.Mode != Implied {
			return s, op.unsupported()
		}
		value := s.Register(reg) + delta
		s = LoadRegister(s, reg, value)
		return advance(setZN(s, value), op), nil
	}
}

// add implements binary ADC; the 2A03 has no decimal mode.
func add(s State, value uint8) State {
	sum := uint16(s.A) + uint16(value) + uint16(carryIn(s))
	result := uint8(sum)

	// Overflow occurs when both inputs share a sign that the result does not
	s = UpdateProcessorStatus(s, Overflow, (s.A^result)&(value^result)&nFlagMask != 0)
	s = UpdateProcessorStatus(s, Carry, sum > 0xFF)
	s = LoadRegister(s, A, result)
	return setZN(s, result)
}

func adc(s State, bus memory.Bus, op Operand) (State, error) {
	value, err := operandValue(s, bus, op)
	if err != nil {
		return s, err
	}
	return advance(add(s, value), op), nil
}

func sbc(s State, bus memory.Bus, op Operand) (State, error) {
	value, err := operandValue(s, bus, op)
	if err != nil {
		return s, err
	}
	return advance(add(s, value^0xFF), op), nil
}

func and(a, m uint8) uint8 { return a & m }
func or(a, m uint8) uint8  { return a | m }
func xor(a, m uint8) uint8 { return a ^ m }

func logic(combine func(a, m uint8) uint8) Effect {
	return func(s State, bus memory.Bus, op Operand) (State, error) {
		value, err := operandValue(s, bus, op)
		if err != nil {
			return s, err
		}
		result := combine(s.A, value)
		s = LoadRegister(s, A, result)
		return advance(setZN(s, result), op), nil
	}
}

func compare(reg Register) Effect {
	return func(s State, bus memory.Bus, op Operand) (State, error) {
		value, err := operandValue(s, bus, op)
		if err != nil {
			return s, err
		}
		r := s.Register(reg)
		s = UpdateProcessorStatus(s, Carry, r >= value)
		return advance(setZN(s, r-value), op), nil
	}
}

func bit(s State, bus memory.Bus, op Operand) (State, error) {
	value, err := operandValue(s, bus, op)
	if err != nil {
		return s, err
	}
	s = UpdateProcessorStatus(s, Negative, value&nFlagMask != 0)
	s = UpdateProcessorStatus(s, Overflow, value&vFlagMask != 0)
	s = UpdateProcessorStatus(s, Zero, s.A&value == 0)
	return advance(s, op), nil
}

// Shift and rotate operations: each returns the result and the carry out
func asl(value uint8, _ bool) (uint8, bool) {
	return value << 1, value&0x80 != 0
}

func lsr(value uint8, _ bool) (uint8, bool) {
	return value >> 1, value&0x01 != 0
}

func rol(value uint8, carry bool) (uint8, bool) {
	result := value << 1
	if carry {
		result |= 0x01
	}
	return result, value&0x80 != 0
}

func ror(value uint8, carry bool) (uint8, bool) {
	result := value >> 1
	if carry {
		result |= 0x80
	}
	return result, value&0x01 != 0
}

func shift(op func(value uint8, carry bool) (uint8, bool)) Effect {
	return func(s State, _ memory.Bus, operand Operand) (State, error) {
		if operand.Mode != Accumulator {
			return s, operand.unsupported()
		}
		result, carry := op(s.A, s.P.Has(Carry))
		s = UpdateProcessorStatus(s, Carry, carry)
		s = LoadRegister(s, A, result)
		return advance(setZN(s, result), operand), nil
	}
}

func branch(flag Status, want bool) Effect {
	return func(s State, _ memory.Bus, op Operand) (State, error) {
		if op.Mode != Relative {
			return s, op.unsupported()
		}
		if s.P.Has(flag) != want {
			return advance(s, op), nil
		}

		// 1 extra cycle for a taken branch, 1 more when it crosses a page
		extra := uint8(1)
		if op.PageCrossed {
			extra++
		}
		return spendCycles(MoveProgramCounter(s, op.Address), extra), nil
	}
}

// jmp loads the program counter with the target address instead of advancing it.
func jmp(s State, _ memory.Bus, op Operand) (State, error) {
	if op.Mode != Absolute {
		return s, op.unsupported()
	}
	return MoveProgramCounter(s, op.Address), nil
}

func nop(s State, _ memory.Bus, op Operand) (State, error) {
	return advance(s, op), nil
}
