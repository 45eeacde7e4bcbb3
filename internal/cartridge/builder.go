package cartridge

import (
	"github.com/pkg/errors"
)

const cpuWindowStart = 0x8000

// Builder provides a fluent interface for generating iNES images, mostly
// for tests. Program bytes are placed by CPU address and the vectors are
// written to the last six bytes of PRG ROM, so a 16KB image mirrors them
// to $FFFA-$FFFF as well.
type Builder struct {
	prgBanks    uint8
	chrBanks    uint8
	mapperID    uint8
	mirror      MirrorMode
	battery     bool
	trainer     []uint8
	data        map[uint16]uint8
	resetVector uint16
	nmiVector   uint16
	irqVector   uint16
}

// NewBuilder creates a builder for a 16KB NROM image that resets to $8000
func NewBuilder() *Builder {
	return &Builder{
		prgBanks:    1,
		chrBanks:    1,
		data:        make(map[uint16]uint8),
		resetVector: cpuWindowStart,
		nmiVector:   cpuWindowStart,
		irqVector:   cpuWindowStart,
	}
}

// WithPRGBanks sets the PRG ROM size in 16KB units
func (b *Builder) WithPRGBanks(banks uint8) *Builder {
	b.prgBanks = banks
	return b
}

// WithCHRBanks sets the CHR ROM size in 8KB units (0 = CHR RAM)
func (b *Builder) WithCHRBanks(banks uint8) *Builder {
	b.chrBanks = banks
	return b
}

// WithMapper sets the mapper ID
func (b *Builder) WithMapper(mapperID uint8) *Builder {
	b.mapperID = mapperID
	return b
}

// WithMirroring sets the nametable mirroring mode
func (b *Builder) WithMirroring(mirror MirrorMode) *Builder {
	b.mirror = mirror
	return b
}

// WithBattery marks the image as having battery-backed RAM
func (b *Builder) WithBattery() *Builder {
	b.battery = true
	return b
}

// WithTrainer adds a 512-byte trainer, padding or truncating data
func (b *Builder) WithTrainer(data []uint8) *Builder {
	b.trainer = make([]uint8, trainerSize)
	copy(b.trainer, data)
	return b
}

// WithProgram places bytes starting at a CPU address in $8000-$FFFF
func (b *Builder) WithProgram(address uint16, program ...uint8) *Builder {
	for i, value := range program {
		b.data[address+uint16(i)] = value
	}
	return b
}

// WithResetVector sets the reset vector
func (b *Builder) WithResetVector(address uint16) *Builder {
	b.resetVector = address
	return b
}

// WithNMIVector sets the NMI vector
func (b *Builder) WithNMIVector(address uint16) *Builder {
	b.nmiVector = address
	return b
}

// WithIRQVector sets the IRQ vector
func (b *Builder) WithIRQVector(address uint16) *Builder {
	b.irqVector = address
	return b
}

// Build generates the iNES file contents
func (b *Builder) Build() ([]byte, error) {
	if b.prgBanks == 0 {
		return nil, errors.New("PRG ROM size cannot be zero")
	}

	header := make([]byte, headerSize)
	copy(header[0:4], magic)
	header[4] = b.prgBanks
	header[5] = b.chrBanks

	flags6 := (b.mapperID & 0x0F) << 4
	switch b.mirror {
	case MirrorVertical:
		flags6 |= flag6Mirroring
	case MirrorFourScreen:
		flags6 |= flag6FourScreen
	}
	if b.battery {
		flags6 |= flag6Battery
	}
	if b.trainer != nil {
		flags6 |= flag6Trainer
	}
	header[6] = flags6
	header[7] = b.mapperID & 0xF0

	prgROM, err := b.prgROM()
	if err != nil {
		return nil, err
	}

	result := append([]byte{}, header...)
	result = append(result, b.trainer...)
	result = append(result, prgROM...)
	result = append(result, make([]byte, int(b.chrBanks)*CHRBankSize)...)
	return result, nil
}

// BuildImage generates the file and parses it back
func (b *Builder) BuildImage() (Image, error) {
	data, err := b.Build()
	if err != nil {
		return Image{}, err
	}
	return LoadFromBytes(data)
}

func (b *Builder) prgROM() ([]byte, error) {
	size := int(b.prgBanks) * PRGBankSize
	prgROM := make([]byte, size)

	for address, value := range b.data {
		if address < cpuWindowStart {
			return nil, errors.Errorf("program address $%04X is outside the cartridge window", address)
		}
		prgROM[int(address-cpuWindowStart)%size] = value
	}

	vectors := size - 6
	for i, vector := range []uint16{b.nmiVector, b.resetVector, b.irqVector} {
		prgROM[vectors+2*i] = uint8(vector & 0xFF)
		prgROM[vectors+2*i+1] = uint8(vector >> 8)
	}
	return prgROM, nil
}
