package cpu

import "fmt"

// UnsupportedOperationError reports an opcode that has no instruction table entry.
type UnsupportedOperationError struct {
	Opcode uint8
	PC     uint16
}

func (e *UnsupportedOperationError) Error() string {
	return fmt.Sprintf("unsupported operation: opcode $%02X at $%04X", e.Opcode, e.PC)
}

// UnsupportedAddressingModeError reports an instruction used with a mode it cannot handle.
type UnsupportedAddressingModeError struct {
	Mnemonic string
	Mode     AddressingMode
}

func (e *UnsupportedAddressingModeError) Error() string {
	return fmt.Sprintf("unsupported addressing mode: %s does not support %s", e.Mnemonic, e.Mode)
}
