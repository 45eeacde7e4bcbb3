package cpu

import "nescore/internal/memory"

// AddressingMode describes how an instruction's operand bytes are interpreted
type AddressingMode int

const (
	Implied AddressingMode = iota
	Accumulator
	Immediate
	ZeroPage
	ZeroPageX
	ZeroPageY
	Relative
	Absolute
	AbsoluteX
	AbsoluteY
	Indirect
	IndexedIndirect // (zp,X)
	IndirectIndexed // (zp),Y
)

var modeNames = [...]string{
	Implied:         "Implied",
	Accumulator:     "Accumulator",
	Immediate:       "Immediate",
	ZeroPage:        "ZeroPage",
	ZeroPageX:       "ZeroPageX",
	ZeroPageY:       "ZeroPageY",
	Relative:        "Relative",
	Absolute:        "Absolute",
	AbsoluteX:       "AbsoluteX",
	AbsoluteY:       "AbsoluteY",
	Indirect:        "Indirect",
	IndexedIndirect: "IndexedIndirect",
	IndirectIndexed: "IndirectIndexed",
}

func (m AddressingMode) String() string {
	if m >= 0 && int(m) < len(modeNames) {
		return modeNames[m]
	}
	return "Unknown"
}

// OperandBytes returns how many bytes follow the opcode in this mode.
func (m AddressingMode) OperandBytes() uint16 {
	switch m {
	case Implied, Accumulator:
		return 0
	case Absolute, AbsoluteX, AbsoluteY, Indirect:
		return 2
	default:
		return 1
	}
}

// Operand is the result of resolving an addressing mode at the current PC.
type Operand struct {
	Mnemonic string
	Mode     AddressingMode

	// Bytes consumed after the opcode
	Bytes uint16

	// Effective address for memory modes, branch target for Relative
	Address uint16
	// Literal value for Immediate
	Value uint8

	PageCrossed bool
}

// next returns the address of the instruction following this one.
func (op Operand) next(pc uint16) uint16 {
	return pc + 1 + op.Bytes
}

func (op Operand) unsupported() error {
	return &UnsupportedAddressingModeError{Mnemonic: op.Mnemonic, Mode: op.Mode}
}

// Resolve reads the operand bytes that follow the opcode at s.PC and computes
// the operand for the instruction's addressing mode. The state is not
// changed; effects use Operand.Bytes to advance the program counter.
func Resolve(instruction Instruction, s State, bus memory.Bus) (Operand, error) {
	op := Operand{
		Mnemonic: instruction.Name,
		Mode:     instruction.Mode,
		Bytes:    instruction.Mode.OperandBytes(),
	}

	switch instruction.Mode {
	case Implied, Accumulator:
		return op, nil

	case Immediate:
		value, err := bus.Read(s.PC + 1)
		if err != nil {
			return Operand{}, err
		}
		op.Address = s.PC + 1
		op.Value = value
		return op, nil

	case ZeroPage:
		// The zero page is RAM, which is not mapped on the cartridge bus:
		// the address resolves but reading it faults.
		low, err := bus.Read(s.PC + 1)
		if err != nil {
			return Operand{}, err
		}
		op.Address = uint16(low)
		return op, nil

	case Relative:
		offset, err := bus.Read(s.PC + 1)
		if err != nil {
			return Operand{}, err
		}
		origin := op.next(s.PC)
		op.Address = origin + uint16(int8(offset))
		op.PageCrossed = origin&pageMask != op.Address&pageMask
		return op, nil

	case Absolute:
		address, err := bus.ReadWord(s.PC + 1)
		if err != nil {
			return Operand{}, err
		}
		op.Address = address
		return op, nil

	case AbsoluteX, AbsoluteY:
		base, err := bus.ReadWord(s.PC + 1)
		if err != nil {
			return Operand{}, err
		}
		index := s.X
		if instruction.Mode == AbsoluteY {
			index = s.Y
		}
		op.Address = base + uint16(index)
		op.PageCrossed = base&pageMask != op.Address&pageMask
		return op, nil

	default:
		return Operand{}, op.unsupported()
	}
}

// operandValue fetches the byte an instruction operates on.
func operandValue(s State, bus memory.Bus, op Operand) (uint8, error) {
	switch op.Mode {
	case Immediate:
		return op.Value, nil
	case Accumulator:
		return s.A, nil
	case ZeroPage, Absolute, AbsoluteX, AbsoluteY:
		return bus.Read(op.Address)
	default:
		return 0, op.unsupported()
	}
}
