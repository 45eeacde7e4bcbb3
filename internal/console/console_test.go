package console

import (
	"errors"
	"testing"

	"nescore/internal/cartridge"
	"nescore/internal/cpu"
	"nescore/internal/memory"
)

// buildImage creates a 16KB image with program bytes at $8010 and the reset vector pointing there
func buildImage(t *testing.T, program ...uint8) cartridge.Image {
	t.Helper()
	image, err := cartridge.NewBuilder().
		WithProgram(0x8010, program...).
		WithResetVector(0x8010).
		BuildImage()
	if err != nil {
		t.Fatalf("BuildImage: %v", err)
	}
	return image
}

// poweredOn returns a running console with the image inserted
func poweredOn(t *testing.T, image cartridge.Image) Console {
	t.Helper()
	c, err := New().InsertCartridge(image)
	if err != nil {
		t.Fatalf("InsertCartridge: %v", err)
	}
	if c, err = c.PowerOn(); err != nil {
		t.Fatalf("PowerOn: %v", err)
	}
	return c
}

func TestNew_IsOffAndEmpty(t *testing.T) {
	c := New()
	if c.Power() != Off {
		t.Errorf("Power = %s, want off", c.Power())
	}
	if _, ok := c.Cartridge(); ok {
		t.Error("new console reports a cartridge")
	}
	if c.CPU() != (cpu.State{}) {
		t.Errorf("CPU = %+v, want zero state", c.CPU())
	}
}

func TestInsertCartridge_ResetsCPU(t *testing.T) {
	c, err := New().InsertCartridge(buildImage(t, 0xEA))
	if err != nil {
		t.Fatalf("InsertCartridge: %v", err)
	}

	state := c.CPU()
	if state.PC != 0x8010 {
		t.Errorf("PC = $%04X, want $8010", state.PC)
	}
	if state.P != 0 {
		t.Errorf("P = %s, want all flags clear", state.P)
	}
	if c.Power() != Off {
		t.Error("InsertCartridge changed the power state")
	}
	if _, ok := c.Cartridge(); !ok {
		t.Error("Cartridge() not reported after insert")
	}
}

func TestInsertCartridge_Twice(t *testing.T) {
	image := buildImage(t, 0x78, 0xEA, 0xEA)
	c := poweredOn(t, image)

	var err error
	for i := 0; i < 2; i++ {
		if c, err = c.Tick(); err != nil {
			t.Fatalf("Tick: %v", err)
		}
	}
	if c.CPU().PC == 0x8010 {
		t.Fatal("program did not advance")
	}

	for i := 0; i < 2; i++ {
		if c, err = c.InsertCartridge(image); err != nil {
			t.Fatalf("InsertCartridge #%d: %v", i+1, err)
		}
		if c.CPU().PC != 0x8010 {
			t.Errorf("insert #%d: PC = $%04X, want $8010", i+1, c.CPU().PC)
		}
		if c.CPU().P.Has(cpu.InterruptDisable) {
			t.Errorf("insert #%d: flags not cleared", i+1)
		}
		if c.Instructions() != 0 {
			t.Errorf("insert #%d: Instructions = %d, want 0", i+1, c.Instructions())
		}
	}
	if c.Power() != On {
		t.Error("reinserting switched the console off")
	}
}

func TestInsertCartridge_InvalidSize(t *testing.T) {
	image := cartridge.Image{PRGROMSize: 8192, PRGROM: make([]uint8, 8192)}

	before := New()
	after, err := before.InsertCartridge(image)

	var sizeErr *memory.RomSizeError
	if !errors.As(err, &sizeErr) {
		t.Fatalf("error = %v, want *memory.RomSizeError", err)
	}
	if sizeErr.Size != 8192 {
		t.Errorf("Size = %d, want 8192", sizeErr.Size)
	}
	if _, ok := after.Cartridge(); ok {
		t.Error("failed insert left a cartridge behind")
	}
}

func TestInsertCartridge_SizeMismatch(t *testing.T) {
	image := cartridge.Image{PRGROMSize: 2 * cartridge.PRGBankSize, PRGROM: make([]uint8, cartridge.PRGBankSize)}

	_, err := New().InsertCartridge(image)

	var sizeErr *memory.RomSizeError
	if !errors.As(err, &sizeErr) {
		t.Fatalf("error = %v, want *memory.RomSizeError", err)
	}
}

func TestPowerOn_RequiresCartridge(t *testing.T) {
	c, err := New().PowerOn()
	if !errors.Is(err, ErrNoRomInserted) {
		t.Fatalf("error = %v, want ErrNoRomInserted", err)
	}
	if c.Power() != Off {
		t.Error("console switched on without a cartridge")
	}
}

func TestPowerOn_Idempotent(t *testing.T) {
	c := poweredOn(t, buildImage(t, 0xEA))
	before := c.CPU()

	c, err := c.PowerOn()
	if err != nil {
		t.Fatalf("second PowerOn: %v", err)
	}
	if c.Power() != On {
		t.Error("second PowerOn switched the console off")
	}
	if c.CPU() != before {
		t.Error("second PowerOn changed the CPU state")
	}
}

func TestTick_RequiresPower(t *testing.T) {
	_, err := New().Tick()
	if !errors.Is(err, ErrNotPowerOn) {
		t.Errorf("empty console: error = %v, want ErrNotPowerOn", err)
	}

	c, err := New().InsertCartridge(buildImage(t, 0xEA))
	if err != nil {
		t.Fatalf("InsertCartridge: %v", err)
	}
	after, err := c.Tick()
	if !errors.Is(err, ErrNotPowerOn) {
		t.Errorf("inserted console: error = %v, want ErrNotPowerOn", err)
	}
	if after.CPU() != c.CPU() {
		t.Error("failed tick changed the CPU state")
	}
}

func TestTick_SEIAndJMP(t *testing.T) {
	c := poweredOn(t, buildImage(t,
		0x78,             // SEI
		0x4C, 0x00, 0x90, // JMP $9000
	))

	c, err := c.Tick()
	if err != nil {
		t.Fatalf("SEI: %v", err)
	}
	if c.CPU().PC != 0x8011 || !c.CPU().P.Has(cpu.InterruptDisable) {
		t.Errorf("after SEI: PC = $%04X P = %s", c.CPU().PC, c.CPU().P)
	}

	if c, err = c.Tick(); err != nil {
		t.Fatalf("JMP: %v", err)
	}
	if c.CPU().PC != 0x9000 {
		t.Errorf("after JMP: PC = $%04X, want $9000", c.CPU().PC)
	}
	if c.Instructions() != 2 {
		t.Errorf("Instructions = %d, want 2", c.Instructions())
	}
}

func TestTick_UnsupportedOperation(t *testing.T) {
	c := poweredOn(t, buildImage(t, 0xFF))

	after, err := c.Tick()

	var opErr *cpu.UnsupportedOperationError
	if !errors.As(err, &opErr) {
		t.Fatalf("error = %v, want *cpu.UnsupportedOperationError", err)
	}
	if opErr.Opcode != 0xFF || opErr.PC != 0x8010 {
		t.Errorf("fault = opcode $%02X at $%04X, want $FF at $8010", opErr.Opcode, opErr.PC)
	}
	if after.CPU() != c.CPU() || after.Instructions() != c.Instructions() {
		t.Error("failed tick returned a modified console")
	}
}

func TestTick_InvalidAddress(t *testing.T) {
	c := poweredOn(t, buildImage(t, 0xA5, 0x10)) // LDA $10

	_, err := c.Tick()

	var addrErr *memory.AddressError
	if !errors.As(err, &addrErr) {
		t.Fatalf("error = %v, want *memory.AddressError", err)
	}
	if addrErr.Address != 0x0010 {
		t.Errorf("fault address = $%04X, want $0010", addrErr.Address)
	}
}

func TestReset(t *testing.T) {
	_, err := New().Reset()
	if !errors.Is(err, ErrNoRomInserted) {
		t.Errorf("empty console: error = %v, want ErrNoRomInserted", err)
	}

	c := poweredOn(t, buildImage(t, 0x38, 0x4C, 0x00, 0x90)) // SEC; JMP $9000
	for i := 0; i < 2; i++ {
		if c, err = c.Tick(); err != nil {
			t.Fatalf("Tick: %v", err)
		}
	}

	c, err = c.Reset()
	if err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if c.CPU().PC != 0x8010 || c.CPU().P != 0 || c.CPU().Cycles != 7 {
		t.Errorf("after reset: PC = $%04X P = %s cycles = %d", c.CPU().PC, c.CPU().P, c.CPU().Cycles)
	}
	if c.Power() != On {
		t.Error("Reset switched the console off")
	}
}

func TestConsole_ValueSemantics(t *testing.T) {
	c := poweredOn(t, buildImage(t, 0xEA, 0xEA))

	next, err := c.Tick()
	if err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if c.CPU().PC != 0x8010 {
		t.Errorf("previous value changed: PC = $%04X", c.CPU().PC)
	}
	if next.CPU().PC != 0x8011 {
		t.Errorf("next PC = $%04X, want $8011", next.CPU().PC)
	}
}

func TestConsole_CartridgeIsolatedFromCaller(t *testing.T) {
	image := buildImage(t, 0xEA)
	c := poweredOn(t, image)

	image.PRGROM[0x10] = 0x02
	stored, ok := c.Cartridge()
	if !ok {
		t.Fatal("Cartridge reported no image")
	}
	if stored.PRGROM[0x10] != 0xEA {
		t.Errorf("stored PRGROM[$10] = $%02X after caller write, want $EA", stored.PRGROM[0x10])
	}

	stored.PRGROM[0x10] = 0x02
	again, _ := c.Cartridge()
	if again.PRGROM[0x10] != 0xEA {
		t.Errorf("stored PRGROM[$10] = $%02X after write to returned image, want $EA", again.PRGROM[0x10])
	}

	next, err := c.Tick()
	if err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if next.CPU().PC != 0x8011 {
		t.Errorf("PC = $%04X, want $8011", next.CPU().PC)
	}
}

func TestPowerStatus_String(t *testing.T) {
	if Off.String() != "off" || On.String() != "on" {
		t.Errorf("String() = %q/%q", Off.String(), On.String())
	}
}
