// Package monitor provides the front ends that drive a stepping session
// and display the CPU: headless, terminal and an Ebitengine window.
package monitor

import (
	"fmt"
	"time"

	"nescore/internal/cpu"
	"nescore/internal/debug"
)

// Backend drives a Session until it ends or the user quits
type Backend interface {
	// Initialize prepares the backend; it must be called once before Run
	Initialize(config Config) error

	// Run steps the session and displays it until the run ends or the user quits
	Run(session Session) error

	// Cleanup releases all resources
	Cleanup() error

	// IsHeadless returns true if the backend has no display
	IsHeadless() bool

	// GetName returns the backend name for identification
	GetName() string
}

// Session is the stepping loop a monitor drives
type Session interface {
	// Snapshot returns the current state without executing anything
	Snapshot() Snapshot
	// Step executes up to n instructions, stopping early when the run ends
	Step(n int) Snapshot
	// Advance is Step without the snapshot; it reports whether the run has ended
	Advance(n int) bool
	// Reset restarts the program from the reset vector
	Reset() Snapshot
}

// Snapshot is what a monitor displays
type Snapshot struct {
	Title        string
	State        cpu.State
	Instructions uint64
	// Upcoming holds the disassembly starting at State.PC
	Upcoming []debug.Line

	// Done is set once the run has ended; Reason says why
	Done   bool
	Reason string
	Err    error
}

// Config contains configuration for monitor backends
type Config struct {
	Title string

	// Instructions executed per refresh while running
	StepsPerFrame int
	// Refresh is the terminal redraw interval
	Refresh time.Duration
	// Scale is the window scale factor
	Scale int

	StartPaused bool
}

// DefaultConfig returns the settings used when none are given
func DefaultConfig() Config {
	return Config{
		Title:         "nescore",
		StepsPerFrame: 1,
		Refresh:       50 * time.Millisecond,
		Scale:         2,
	}
}

// BackendType represents different monitor backend types
type BackendType string

const (
	BackendEbitengine BackendType = "ebitengine"
	BackendHeadless   BackendType = "headless"
	BackendTerminal   BackendType = "terminal"
)

// CreateBackend creates a monitor backend of the specified type
func CreateBackend(backendType BackendType) (Backend, error) {
	switch backendType {
	case BackendEbitengine:
		return NewEbitengineBackend(), nil
	case BackendHeadless:
		return NewHeadlessBackend(), nil
	case BackendTerminal:
		return NewTerminalBackend(), nil
	default:
		return nil, fmt.Errorf("unknown monitor backend %q", backendType)
	}
}
