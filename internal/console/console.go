// Package console composes the memory bus and the CPU into a power-cycle
// state machine driven one instruction at a time.
//
// Console is a value. Every operation returns the next Console and callers
// rebind it; on error the returned Console is the receiver, unchanged.
package console

import (
	"slices"

	"github.com/pkg/errors"

	"nescore/internal/cartridge"
	"nescore/internal/cpu"
	"nescore/internal/memory"
)

var (
	// ErrNoRomInserted is returned by PowerOn and Reset without a cartridge.
	ErrNoRomInserted = errors.New("no ROM inserted")
	// ErrNotPowerOn is returned by Tick while the console is off.
	ErrNotPowerOn = errors.New("console is not powered on")
)

// PowerStatus is the console power switch
type PowerStatus int

const (
	Off PowerStatus = iota
	On
)

func (p PowerStatus) String() string {
	if p == On {
		return "on"
	}
	return "off"
}

// Console connects the cartridge bus and the CPU
type Console struct {
	power PowerStatus
	cpu   cpu.State
	bus   memory.Bus

	cartridge cartridge.Image
	inserted  bool

	// Instructions executed since the last reset
	instructions uint64
}

// New returns a console that is off, with no cartridge and the CPU zeroed.
func New() Console {
	return Console{}
}

// InsertCartridge loads the image's program storage onto the bus and resets
// the CPU. The power state is not changed.
func (c Console) InsertCartridge(image cartridge.Image) (Console, error) {
	if image.PRGROMSize != len(image.PRGROM) {
		return c, &memory.RomSizeError{
			Reason: "PRG ROM size does not match the image data",
			Size:   image.PRGROMSize,
		}
	}

	bus, err := memory.New(image.PRGROM)
	if err != nil {
		return c, errors.Wrap(err, "inserting cartridge")
	}
	state, err := cpu.Reset(bus)
	if err != nil {
		return c, errors.Wrap(err, "reset")
	}

	c.bus = bus
	c.cpu = state
	image.PRGROM = slices.Clone(image.PRGROM)
	c.cartridge = image
	c.inserted = true
	c.instructions = 0
	return c, nil
}

// PowerOn switches the console on. Switching on a console that is already
// on does nothing.
func (c Console) PowerOn() (Console, error) {
	if !c.inserted {
		return c, ErrNoRomInserted
	}
	c.power = On
	return c, nil
}

// Reset re-runs the CPU reset sequence against the inserted cartridge
func (c Console) Reset() (Console, error) {
	if !c.inserted {
		return c, ErrNoRomInserted
	}
	state, err := cpu.Reset(c.bus)
	if err != nil {
		return c, errors.Wrap(err, "reset")
	}
	c.cpu = state
	c.instructions = 0
	return c, nil
}

// Tick executes exactly one instruction.
func (c Console) Tick() (Console, error) {
	if c.power != On {
		return c, ErrNotPowerOn
	}

	state, err := cpu.Tick(c.cpu, c.bus)
	if err != nil {
		return c, errors.Wrapf(err, "tick at $%04X", c.cpu.PC)
	}
	c.cpu = state
	c.instructions++
	return c, nil
}

// Power returns the power switch position
func (c Console) Power() PowerStatus { return c.power }

// CPU returns the CPU state
func (c Console) CPU() cpu.State { return c.cpu }

// Bus returns the cartridge bus
func (c Console) Bus() memory.Bus { return c.bus }

// Cartridge returns the inserted image, if any. The returned PRGROM is a
// copy.
func (c Console) Cartridge() (cartridge.Image, bool) {
	image := c.cartridge
	image.PRGROM = slices.Clone(image.PRGROM)
	return image, c.inserted
}

// Instructions returns the number of instructions executed since the last reset
func (c Console) Instructions() uint64 { return c.instructions }
