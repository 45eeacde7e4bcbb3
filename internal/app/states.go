package app

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"nescore/internal/cartridge"
	"nescore/internal/cpu"
	"nescore/internal/version"
)

// StateDump is the final machine state of a run, written as JSON
type StateDump struct {
	// Metadata
	Version     string    `json:"version"`
	Timestamp   time.Time `json:"timestamp"`
	ROMPath     string    `json:"rom_path"`
	ROMChecksum string    `json:"rom_checksum"`

	// Run outcome
	Reason       string `json:"reason"`
	Error        string `json:"error,omitempty"`
	Instructions uint64 `json:"instructions"`

	CPUState CPUStateData `json:"cpu_state"`
}

// CPUStateData represents CPU state for dump files
type CPUStateData struct {
	PC     uint16       `json:"pc"`
	A      uint8        `json:"a"`
	X      uint8        `json:"x"`
	Y      uint8        `json:"y"`
	SP     uint8        `json:"sp"`
	P      uint8        `json:"p"`
	Cycles uint64       `json:"cycles"`
	Flags  CPUFlagsData `json:"flags"`
}

// CPUFlagsData represents CPU flags for dump files
type CPUFlagsData struct {
	N bool `json:"n"`
	V bool `json:"v"`
	B bool `json:"b"`
	D bool `json:"d"`
	I bool `json:"i"`
	Z bool `json:"z"`
	C bool `json:"c"`
}

// NewStateDump captures a run result
func NewStateDump(result RunResult, romPath string, image cartridge.Image) StateDump {
	s := result.Final
	dump := StateDump{
		Version:      version.GetVersion(),
		Timestamp:    time.Now(),
		ROMPath:      romPath,
		ROMChecksum:  calculateROMChecksum(image),
		Reason:       string(result.Reason),
		Instructions: result.Instructions,
		CPUState: CPUStateData{
			PC:     s.PC,
			A:      s.A,
			X:      s.X,
			Y:      s.Y,
			SP:     s.SP,
			P:      s.P.Byte(),
			Cycles: s.Cycles,
			Flags: CPUFlagsData{
				N: s.P.Has(cpu.Negative),
				V: s.P.Has(cpu.Overflow),
				B: s.P.Has(cpu.Break),
				D: s.P.Has(cpu.Decimal),
				I: s.P.Has(cpu.InterruptDisable),
				Z: s.P.Has(cpu.Zero),
				C: s.P.Has(cpu.Carry),
			},
		},
	}
	if result.Err != nil {
		dump.Error = result.Err.Error()
	}
	return dump
}

// State rebuilds the CPU state recorded in the dump
func (d StateDump) State() cpu.State {
	c := d.CPUState
	s := cpu.State{PC: c.PC, A: c.A, X: c.X, Y: c.Y, SP: c.SP, Cycles: c.Cycles}
	for flag, set := range map[cpu.Status]bool{
		cpu.Negative:         c.Flags.N,
		cpu.Overflow:         c.Flags.V,
		cpu.Break:            c.Flags.B,
		cpu.Decimal:          c.Flags.D,
		cpu.InterruptDisable: c.Flags.I,
		cpu.Zero:             c.Flags.Z,
		cpu.Carry:            c.Flags.C,
	} {
		s = cpu.UpdateProcessorStatus(s, flag, set)
	}
	return s
}

// SaveStateDump writes a dump to a file, creating its directory
func SaveStateDump(dump StateDump, filePath string) error {
	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %v", err)
	}

	data, err := json.MarshalIndent(dump, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %v", err)
	}

	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return fmt.Errorf("failed to write file: %v", err)
	}
	return nil
}

// LoadStateDump reads a dump written by SaveStateDump
func LoadStateDump(filePath string) (StateDump, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return StateDump{}, fmt.Errorf("failed to read file: %v", err)
	}

	var dump StateDump
	if err := json.Unmarshal(data, &dump); err != nil {
		return StateDump{}, fmt.Errorf("failed to unmarshal state: %v", err)
	}
	if dump.Version == "" {
		return StateDump{}, fmt.Errorf("missing version information")
	}
	return dump, nil
}

// dumpFilePath names the dump for a ROM inside dir
func dumpFilePath(dir, romPath string) string {
	romName := filepath.Base(romPath)
	romNameWithoutExt := romName[:len(romName)-len(filepath.Ext(romName))]
	return filepath.Join(dir, romNameWithoutExt+"_final.json")
}

// calculateROMChecksum hashes the PRG-ROM contents
func calculateROMChecksum(image cartridge.Image) string {
	sum := sha256.Sum256(image.PRGROM)
	return hex.EncodeToString(sum[:])
}
