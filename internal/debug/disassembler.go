// Package debug provides CPU tracing, disassembly and scripted halt
// conditions for the stepping loop.
package debug

import (
	"fmt"
	"strings"

	"nescore/internal/cpu"
	"nescore/internal/memory"
)

// Line is one disassembled instruction
type Line struct {
	PC       uint16
	Bytes    []uint8
	Mnemonic string
	Operand  string

	// Known is false for opcodes missing from the instruction table
	Known bool
}

// Next returns the address of the following instruction
func (l Line) Next() uint16 {
	return l.PC + uint16(len(l.Bytes))
}

// String formats the line as "8010  4C 00 90  JMP $9000"
func (l Line) String() string {
	hex := make([]string, len(l.Bytes))
	for i, b := range l.Bytes {
		hex[i] = fmt.Sprintf("%02X", b)
	}
	text := l.Mnemonic
	if l.Operand != "" {
		text += " " + l.Operand
	}
	return fmt.Sprintf("%04X  %-8s  %s", l.PC, strings.Join(hex, " "), text)
}

// Disassemble decodes the instruction at pc without executing it.
func Disassemble(bus memory.Bus, pc uint16) (Line, error) {
	opcode, err := bus.Read(pc)
	if err != nil {
		return Line{}, err
	}

	instruction, ok := cpu.Lookup(opcode)
	if !ok {
		return Line{
			PC:       pc,
			Bytes:    []uint8{opcode},
			Mnemonic: ".db",
			Operand:  fmt.Sprintf("$%02X", opcode),
		}, nil
	}

	line := Line{
		PC:       pc,
		Bytes:    make([]uint8, 0, instruction.Bytes()),
		Mnemonic: instruction.Name,
		Known:    true,
	}
	line.Bytes = append(line.Bytes, opcode)
	for i := uint16(1); i < instruction.Bytes(); i++ {
		b, err := bus.Read(pc + i)
		if err != nil {
			return Line{}, err
		}
		line.Bytes = append(line.Bytes, b)
	}

	line.Operand = formatOperand(instruction.Mode, pc, line.Bytes[1:])
	return line, nil
}

// DisassembleRange decodes up to count instructions starting at pc. It stops
// early, without error, at the end of the address space or at an
// unreadable byte after the first.
func DisassembleRange(bus memory.Bus, pc uint16, count int) ([]Line, error) {
	lines := make([]Line, 0, count)
	for len(lines) < count {
		line, err := Disassemble(bus, pc)
		if err != nil {
			if len(lines) == 0 {
				return nil, err
			}
			break
		}
		lines = append(lines, line)

		next := line.Next()
		if next < pc {
			break
		}
		pc = next
	}
	return lines, nil
}

func formatOperand(mode cpu.AddressingMode, pc uint16, operand []uint8) string {
	var word uint16
	if len(operand) == 2 {
		word = uint16(operand[0]) | uint16(operand[1])<<8
	}

	switch mode {
	case cpu.Accumulator:
		return "A"
	case cpu.Immediate:
		return fmt.Sprintf("#$%02X", operand[0])
	case cpu.ZeroPage:
		return fmt.Sprintf("$%02X", operand[0])
	case cpu.ZeroPageX:
		return fmt.Sprintf("$%02X,X", operand[0])
	case cpu.ZeroPageY:
		return fmt.Sprintf("$%02X,Y", operand[0])
	case cpu.Relative:
		return fmt.Sprintf("$%04X", pc+2+uint16(int8(operand[0])))
	case cpu.Absolute:
		return fmt.Sprintf("$%04X", word)
	case cpu.AbsoluteX:
		return fmt.Sprintf("$%04X,X", word)
	case cpu.AbsoluteY:
		return fmt.Sprintf("$%04X,Y", word)
	case cpu.Indirect:
		return fmt.Sprintf("($%04X)", word)
	case cpu.IndexedIndirect:
		return fmt.Sprintf("($%02X,X)", operand[0])
	case cpu.IndirectIndexed:
		return fmt.Sprintf("($%02X),Y", operand[0])
	default:
		return ""
	}
}
