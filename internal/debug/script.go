package debug

import (
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
	lua "github.com/yuin/gopher-lua"

	"nescore/internal/cpu"
	"nescore/internal/memory"
)

const stepFunction = "on_step"

// Script is a Lua halt condition. The script must define
//
//	function on_step(cpu) ... end
//
// which is called after every instruction with a table holding the
// registers (pc, a, x, y, sp, p, cycles, instructions) and the flags
// (carry, zero, interrupt, decimal, brk, overflow, negative). Returning
// true stops the run. The script may call read(address) to read the
// cartridge bus and log(message) to print a line.
//
// A Script is not safe for concurrent use.
type Script struct {
	name string
	L    *lua.LState
	step lua.LValue
	out  io.Writer

	// bus seen by read() during the current call
	bus memory.Bus
}

// LoadScript loads a script from a file
func LoadScript(path string) (*Script, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading script")
	}
	return NewScript(path, string(source))
}

// NewScript compiles source and checks that it defines on_step
func NewScript(name, source string) (*Script, error) {
	s := &Script{
		name: name,
		L:    lua.NewState(),
		out:  os.Stdout,
	}
	s.L.SetGlobal("read", s.L.NewFunction(s.luaRead))
	s.L.SetGlobal("log", s.L.NewFunction(s.luaLog))

	if err := s.L.DoString(source); err != nil {
		s.L.Close()
		return nil, errors.Wrapf(err, "loading script %s", name)
	}

	s.step = s.L.GetGlobal(stepFunction)
	if s.step.Type() != lua.LTFunction {
		s.L.Close()
		return nil, errors.Errorf("script %s does not define %s(cpu)", name, stepFunction)
	}
	return s, nil
}

// SetOutput redirects log() output
func (s *Script) SetOutput(w io.Writer) {
	s.out = w
}

// Name returns the script name or path
func (s *Script) Name() string {
	return s.name
}

// OnStep calls on_step with the state after an instruction and reports
// whether the script asked to halt.
func (s *Script) OnStep(state cpu.State, instructions uint64, bus memory.Bus) (bool, error) {
	s.bus = bus
	defer func() { s.bus = memory.Bus{} }()

	if err := s.L.CallByParam(lua.P{
		Fn:      s.step,
		NRet:    1,
		Protect: true,
	}, s.stateTable(state, instructions)); err != nil {
		return false, errors.Wrapf(err, "%s: %s", s.name, stepFunction)
	}

	ret := s.L.Get(-1)
	s.L.Pop(1)
	return lua.LVAsBool(ret), nil
}

// Close releases the Lua state
func (s *Script) Close() {
	s.L.Close()
}

func (s *Script) stateTable(state cpu.State, instructions uint64) *lua.LTable {
	t := s.L.NewTable()
	s.L.SetField(t, "pc", lua.LNumber(state.PC))
	s.L.SetField(t, "a", lua.LNumber(state.A))
	s.L.SetField(t, "x", lua.LNumber(state.X))
	s.L.SetField(t, "y", lua.LNumber(state.Y))
	s.L.SetField(t, "sp", lua.LNumber(state.SP))
	s.L.SetField(t, "p", lua.LNumber(state.P.Byte()))
	s.L.SetField(t, "cycles", lua.LNumber(state.Cycles))
	s.L.SetField(t, "instructions", lua.LNumber(instructions))

	for name, flag := range map[string]cpu.Status{
		"carry":     cpu.Carry,
		"zero":      cpu.Zero,
		"interrupt": cpu.InterruptDisable,
		"decimal":   cpu.Decimal,
		"brk":       cpu.Break,
		"overflow":  cpu.Overflow,
		"negative":  cpu.Negative,
	} {
		s.L.SetField(t, name, lua.LBool(state.P.Has(flag)))
	}
	return t
}

// read(address) -> byte
func (s *Script) luaRead(L *lua.LState) int {
	address := L.CheckInt(1)
	if address < 0 || address > 0xFFFF {
		L.ArgError(1, "address out of range")
		return 0
	}
	value, err := s.bus.Read(uint16(address))
	if err != nil {
		L.RaiseError("%v", err)
		return 0
	}
	L.Push(lua.LNumber(value))
	return 1
}

// log(message)
func (s *Script) luaLog(L *lua.LState) int {
	fmt.Fprintf(s.out, "[SCRIPT] %s\n", L.CheckString(1))
	return 0
}
