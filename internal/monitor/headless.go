package monitor

import "fmt"

// HeadlessBackend runs the session to completion without any display
type HeadlessBackend struct {
	initialized bool
	config      Config
}

// NewHeadlessBackend creates a new headless backend
func NewHeadlessBackend() Backend {
	return &HeadlessBackend{}
}

// Initialize initializes the headless backend
func (b *HeadlessBackend) Initialize(config Config) error {
	if b.initialized {
		return fmt.Errorf("headless backend already initialized")
	}
	if config.StepsPerFrame <= 0 {
		config.StepsPerFrame = 1
	}

	b.config = config
	b.initialized = true
	return nil
}

// Run advances the session until it ends. Nothing is displayed, so no
// snapshots are taken. StartPaused is ignored since nothing could resume it.
func (b *HeadlessBackend) Run(session Session) error {
	if !b.initialized {
		return fmt.Errorf("backend not initialized")
	}
	for !session.Advance(b.config.StepsPerFrame) {
	}
	return nil
}

// Cleanup releases all headless resources
func (b *HeadlessBackend) Cleanup() error {
	b.initialized = false
	return nil
}

// IsHeadless returns true (this is a headless backend)
func (b *HeadlessBackend) IsHeadless() bool {
	return true
}

// GetName returns the backend name
func (b *HeadlessBackend) GetName() string {
	return "Headless"
}
