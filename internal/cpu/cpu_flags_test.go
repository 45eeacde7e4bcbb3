package cpu

import "testing"

// FlagTest checks a flag instruction from a given starting status
type FlagTest struct {
	Name      string
	Opcode    uint8
	Initial   Status
	ExpectedP Status
}

func TestFlagInstructions(t *testing.T) {
	tests := []FlagTest{
		{"CLC", 0x18, Carry | Zero, Zero},
		{"SEC", 0x38, 0, Carry},
		{"CLI", 0x58, InterruptDisable | Negative, Negative},
		{"SEI", 0x78, Carry, Carry | InterruptDisable},
		{"CLV", 0xB8, Overflow | Carry, Carry},
		{"CLD", 0xD8, Decimal, 0},
		{"SED", 0xF8, Break, Break | Decimal},
	}

	runFlagTests(t, tests)
}

// Each flag instruction must leave every other flag and register alone,
// whatever the starting status.
func TestFlagDoNotAffect(t *testing.T) {
	targets := map[uint8]Status{
		0x18: Carry, 0x38: Carry,
		0x58: InterruptDisable, 0x78: InterruptDisable,
		0xB8: Overflow,
		0xD8: Decimal, 0xF8: Decimal,
	}

	for opcode, flag := range targets {
		for initial := 0; initial < 0x100; initial++ {
			h := NewCPUTestHelper(t)
			h.SetupResetVector(0x8000)
			h.State = UpdateProcessorStatus(h.State, Status(initial), true)
			h.State.A, h.State.X, h.State.Y = 0x11, 0x22, 0x33
			before := h.State

			after := h.MustExecute(opcode)

			if after.P&^flag != before.P&^flag {
				t.Fatalf("$%02X from %s changed other flags: %s", opcode, before.P, after.P)
			}
			if after.A != before.A || after.X != before.X || after.Y != before.Y || after.SP != before.SP {
				t.Fatalf("$%02X changed registers", opcode)
			}
		}
	}
}

func runFlagTests(t *testing.T, tests []FlagTest) {
	t.Helper()
	for _, test := range tests {
		t.Run(test.Name, func(t *testing.T) {
			helper := NewCPUTestHelper(t)
			helper.SetupResetVector(0x8000)
			helper.State = UpdateProcessorStatus(helper.State, test.Initial, true)

			after := helper.MustExecute(test.Opcode)

			if after.P != test.ExpectedP {
				t.Errorf("%s: Expected P=%s, got %s", test.Name, test.ExpectedP, after.P)
			}
			if after.PC != 0x8001 {
				t.Errorf("%s: Expected PC=0x8001, got 0x%04X", test.Name, after.PC)
			}
		})
	}
}
