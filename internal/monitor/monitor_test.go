package monitor

import (
	"strings"
	"sync"
	"testing"

	"github.com/pkg/errors"

	"nescore/internal/cpu"
	"nescore/internal/debug"
)

// fakeSession counts NOPs from $8000 and ends after limit instructions
type fakeSession struct {
	mu     sync.Mutex
	state  cpu.State
	count  uint64
	limit  uint64
	steps  []int
	resets int

	advances  []int
	snapshots int
}

func newFakeSession(limit uint64) *fakeSession {
	return &fakeSession{state: cpu.State{PC: 0x8000, SP: 0xFD, Cycles: 7}, limit: limit}
}

func (f *fakeSession) Snapshot() Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshot()
}

func (f *fakeSession) snapshot() Snapshot {
	f.snapshots++
	s := Snapshot{
		Title:        "fake",
		State:        f.state,
		Instructions: f.count,
		Upcoming: []debug.Line{
			{PC: f.state.PC, Bytes: []uint8{0xEA}, Mnemonic: "NOP", Known: true},
		},
	}
	if f.count >= f.limit {
		s.Done = true
		s.Reason = "instruction limit"
	}
	return s
}

func (f *fakeSession) Step(n int) Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.steps = append(f.steps, n)
	f.advance(n)
	return f.snapshot()
}

func (f *fakeSession) Advance(n int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.advances = append(f.advances, n)
	return f.advance(n)
}

func (f *fakeSession) advance(n int) bool {
	for i := 0; i < n && f.count < f.limit; i++ {
		f.state.PC++
		f.state.Cycles += 2
		f.count++
	}
	return f.count >= f.limit
}

func (f *fakeSession) Reset() Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets++
	f.state.PC = 0x8000
	f.count = 0
	return f.snapshot()
}

func TestCreateBackend(t *testing.T) {
	tests := []struct {
		backendType BackendType
		headless    bool
		expectError bool
	}{
		{BackendHeadless, true, false},
		{BackendTerminal, false, false},
		{BackendEbitengine, false, false},
		{BackendType("vulkan"), false, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.backendType), func(t *testing.T) {
			backend, err := CreateBackend(tt.backendType)
			if tt.expectError {
				if err == nil {
					t.Fatal("expected an error for an unknown backend")
				}
				return
			}
			if err != nil {
				t.Fatalf("CreateBackend: %v", err)
			}
			if backend.GetName() == "" {
				t.Error("backend has no name")
			}
			if tt.backendType == BackendHeadless && backend.IsHeadless() != tt.headless {
				t.Errorf("IsHeadless = %v, want %v", backend.IsHeadless(), tt.headless)
			}
		})
	}
}

func TestHeadlessBackend_RunsToCompletion(t *testing.T) {
	backend := NewHeadlessBackend()
	config := DefaultConfig()
	config.StepsPerFrame = 4
	if err := backend.Initialize(config); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	defer backend.Cleanup()

	session := newFakeSession(10)
	if err := backend.Run(session); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if session.count != 10 {
		t.Errorf("executed %d instructions, want 10", session.count)
	}
	if len(session.advances) != 3 || session.advances[0] != 4 {
		t.Errorf("Advance calls = %v, want three batches of 4", session.advances)
	}
	if len(session.steps) != 0 || session.snapshots != 0 {
		t.Errorf("headless run took %d snapshots over %d Step calls, want none", session.snapshots, len(session.steps))
	}
}

func TestHeadlessBackend_Lifecycle(t *testing.T) {
	backend := NewHeadlessBackend()
	if err := backend.Run(newFakeSession(1)); err == nil {
		t.Error("Run before Initialize should fail")
	}
	if err := backend.Initialize(Config{}); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if err := backend.Initialize(Config{}); err == nil {
		t.Error("second Initialize should fail")
	}
	if err := backend.Cleanup(); err != nil {
		t.Errorf("Cleanup: %v", err)
	}
}

func TestStatusLines(t *testing.T) {
	session := newFakeSession(5)
	snapshot := session.Step(2)

	lines := StatusLines(snapshot, false)
	text := strings.Join(lines, "\n")

	for _, want := range []string{
		"PC:$8002  A:$00  X:$00  Y:$00  SP:$FD",
		"CYC:11  INS:2",
		"> 8002  EA        NOP",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("status text missing %q:\n%s", want, text)
		}
	}
	if last := lines[len(lines)-1]; last != "RUNNING" {
		t.Errorf("status = %q, want RUNNING", last)
	}
}

func TestStatusLines_StatusLine(t *testing.T) {
	tests := []struct {
		name     string
		snapshot Snapshot
		paused   bool
		want     string
	}{
		{"running", Snapshot{}, false, "RUNNING"},
		{"paused", Snapshot{}, true, "PAUSED"},
		{"done", Snapshot{Done: true, Reason: "script halt"}, false, "HALTED: script halt"},
		{"fault", Snapshot{Done: true, Reason: "fault", Err: errors.New("boom")}, true, "HALTED: fault: boom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lines := StatusLines(tt.snapshot, tt.paused)
			if got := lines[len(lines)-1]; got != tt.want {
				t.Errorf("status = %q, want %q", got, tt.want)
			}
		})
	}
}
