// Package memory implements the CPU-side cartridge bus for the NES.
package memory

import "fmt"

// Cartridge window and supported PRG ROM sizes
const (
	// WindowStart is the first CPU address mapped to PRG ROM
	WindowStart = 0x8000
	// WindowSize is the size of the CPU cartridge window (0x8000-0xFFFF)
	WindowSize = 0x8000

	// PRGBankSize is one 16KB PRG ROM bank
	PRGBankSize = 0x4000
)

// RomSizeError reports PRG ROM data that cannot be mapped into the window.
type RomSizeError struct {
	Reason string
	Size   int
}

func (e *RomSizeError) Error() string {
	return fmt.Sprintf("invalid ROM size: %s (got %dKB, %d bytes)", e.Reason, e.Size/1024, e.Size)
}

// AddressError reports a read outside the cartridge window.
type AddressError struct {
	Address uint16
}

func (e *AddressError) Error() string {
	return fmt.Sprintf("invalid address: $%04X is outside the cartridge window", e.Address)
}

// Bus maps the CPU cartridge window onto PRG ROM.
//
// A Bus is an immutable value: it is built once when a cartridge is inserted
// and never written afterwards, so copies of it can be passed around freely.
type Bus struct {
	prgROM []uint8
}

// New creates a bus over a copy of the given PRG ROM.
// Only 16KB (mirrored twice) and 32KB images are accepted.
func New(prgROM []uint8) (Bus, error) {
	switch len(prgROM) {
	case PRGBankSize, 2 * PRGBankSize:
	default:
		return Bus{}, &RomSizeError{
			Reason: "only 16KB or 32KB PRG ROMs are supported",
			Size:   len(prgROM),
		}
	}

	rom := make([]uint8, len(prgROM))
	copy(rom, prgROM)
	return Bus{prgROM: rom}, nil
}

// Size returns the size of the mapped PRG ROM in bytes (0 for an empty bus).
func (b Bus) Size() int {
	return len(b.prgROM)
}

// Loaded reports whether the bus has PRG ROM mapped.
func (b Bus) Loaded() bool {
	return len(b.prgROM) > 0
}

// Read reads a byte from the cartridge window.
// Memory map:
// 0x8000-0xFFFF: PRG ROM
//   - 16KB ROMs: 0x8000-0xBFFF mirrors to 0xC000-0xFFFF
//   - 32KB ROMs: direct mapped
func (b Bus) Read(address uint16) (uint8, error) {
	if address < WindowStart || len(b.prgROM) == 0 {
		return 0, &AddressError{Address: address}
	}
	offset := int(address-WindowStart) % len(b.prgROM)
	return b.prgROM[offset], nil
}

// ReadWord reads a little-endian 16-bit value. Both bytes go through Read,
// so each one is mirrored and bounds-checked on its own.
func (b Bus) ReadWord(address uint16) (uint16, error) {
	low, err := b.Read(address)
	if err != nil {
		return 0, err
	}
	high, err := b.Read(address + 1)
	if err != nil {
		return 0, err
	}
	return uint16(high)<<8 | uint16(low), nil
}
