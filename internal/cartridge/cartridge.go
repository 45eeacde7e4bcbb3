// Package cartridge implements ROM loading and parsing for NES cartridges.
//
// Only the program storage is handed to the emulator core; the remaining
// header fields are kept so front ends can describe the image.
package cartridge

import (
	"bytes"
	"encoding/binary"
	"io"
	"os"

	"github.com/pkg/errors"
)

const (
	headerSize  = 16
	trainerSize = 512

	// PRGBankSize is the unit of the PRG ROM size field
	PRGBankSize = 16384
	// CHRBankSize is the unit of the CHR ROM size field
	CHRBankSize = 8192

	magic = "NES\x1A"

	flag6Mirroring  = 0x01
	flag6Battery    = 0x02
	flag6Trainer    = 0x04
	flag6FourScreen = 0x08
)

// ErrInvalidFormat is returned for data that does not start with an iNES header.
var ErrInvalidFormat = errors.New("invalid iNES file")

// MirrorMode represents nametable mirroring mode
type MirrorMode uint8

const (
	MirrorHorizontal MirrorMode = iota
	MirrorVertical
	MirrorFourScreen
)

func (m MirrorMode) String() string {
	switch m {
	case MirrorVertical:
		return "vertical"
	case MirrorFourScreen:
		return "four-screen"
	default:
		return "horizontal"
	}
}

// Image is a parsed cartridge file.
type Image struct {
	// PRGROMSize is the program storage size in bytes, len(PRGROM)
	PRGROMSize int
	PRGROM     []uint8
	// Trainer reports whether the file carried a 512-byte trainer.
	// The trainer itself is skipped.
	Trainer bool

	CHRROMSize int
	MapperID   uint8
	Mirror     MirrorMode
	HasBattery bool
}

// iNES header structure
type iNESHeader struct {
	Magic      [4]uint8
	PRGROMSize uint8 // in 16KB units
	CHRROMSize uint8 // in 8KB units
	Flags6     uint8
	Flags7     uint8
	PRGRAMSize uint8
	TVSystem1  uint8
	TVSystem2  uint8
	Padding    [5]uint8
}

// LoadFromFile loads a cartridge from an iNES file
func LoadFromFile(filename string) (Image, error) {
	file, err := os.Open(filename)
	if err != nil {
		return Image{}, errors.Wrap(err, "opening ROM")
	}
	defer file.Close()

	image, err := LoadFromReader(file)
	if err != nil {
		return Image{}, errors.Wrapf(err, "loading %s", filename)
	}
	return image, nil
}

// LoadFromBytes parses an in-memory iNES image
func LoadFromBytes(data []byte) (Image, error) {
	return LoadFromReader(bytes.NewReader(data))
}

// LoadFromReader loads a cartridge from an io.Reader
func LoadFromReader(r io.Reader) (Image, error) {
	var header iNESHeader
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return Image{}, errors.Wrap(err, "reading iNES header")
	}

	if string(header.Magic[:]) != magic {
		return Image{}, ErrInvalidFormat
	}
	if header.PRGROMSize == 0 {
		return Image{}, errors.Wrap(ErrInvalidFormat, "PRG ROM size cannot be zero")
	}

	image := Image{
		PRGROMSize: int(header.PRGROMSize) * PRGBankSize,
		Trainer:    header.Flags6&flag6Trainer != 0,
		CHRROMSize: int(header.CHRROMSize) * CHRBankSize,
		MapperID:   (header.Flags6 >> 4) | (header.Flags7 & 0xF0),
		HasBattery: header.Flags6&flag6Battery != 0,
	}

	switch {
	case header.Flags6&flag6FourScreen != 0:
		image.Mirror = MirrorFourScreen
	case header.Flags6&flag6Mirroring != 0:
		image.Mirror = MirrorVertical
	default:
		image.Mirror = MirrorHorizontal
	}

	if image.Trainer {
		if _, err := io.CopyN(io.Discard, r, trainerSize); err != nil {
			return Image{}, errors.Wrap(err, "skipping trainer")
		}
	}

	image.PRGROM = make([]uint8, image.PRGROMSize)
	if _, err := io.ReadFull(r, image.PRGROM); err != nil {
		return Image{}, errors.Wrapf(err, "reading %d bytes of PRG ROM", image.PRGROMSize)
	}

	// CHR data is not used by the core but must be present
	if image.CHRROMSize > 0 {
		if _, err := io.CopyN(io.Discard, r, int64(image.CHRROMSize)); err != nil {
			return Image{}, errors.Wrapf(err, "reading %d bytes of CHR ROM", image.CHRROMSize)
		}
	}

	return image, nil
}
