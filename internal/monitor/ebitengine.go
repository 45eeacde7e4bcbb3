//go:build !headless

package monitor

import (
	"fmt"
	"strings"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
)

const (
	windowWidth  = 320
	windowHeight = 240
)

// EbitengineBackend shows the monitor text in a window
type EbitengineBackend struct {
	initialized bool
	config      Config
}

// NewEbitengineBackend creates a new Ebitengine backend
func NewEbitengineBackend() Backend {
	return &EbitengineBackend{}
}

// Initialize initializes the Ebitengine backend
func (b *EbitengineBackend) Initialize(config Config) error {
	if b.initialized {
		return fmt.Errorf("ebitengine backend already initialized")
	}
	if config.StepsPerFrame <= 0 {
		config.StepsPerFrame = 1
	}
	if config.Scale <= 0 {
		config.Scale = 1
	}

	b.config = config
	b.initialized = true
	return nil
}

// Run opens the window and blocks until it is closed
func (b *EbitengineBackend) Run(session Session) error {
	if !b.initialized {
		return fmt.Errorf("backend not initialized")
	}

	ebiten.SetWindowSize(windowWidth*b.config.Scale, windowHeight*b.config.Scale)
	ebiten.SetWindowTitle(b.config.Title)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)

	if err := ebiten.RunGame(newMonitorGame(session, b.config)); err != nil {
		return fmt.Errorf("ebitengine run failed: %w", err)
	}
	return nil
}

// Cleanup releases all Ebitengine resources
func (b *EbitengineBackend) Cleanup() error {
	b.initialized = false
	return nil
}

// IsHeadless returns false (Ebitengine opens a window)
func (b *EbitengineBackend) IsHeadless() bool {
	return false
}

// GetName returns the backend name
func (b *EbitengineBackend) GetName() string {
	return "Ebitengine"
}

// monitorGame implements ebiten.Game
type monitorGame struct {
	session  Session
	snapshot Snapshot
	steps    int
	paused   bool
}

func newMonitorGame(session Session, config Config) *monitorGame {
	return &monitorGame{
		session:  session,
		snapshot: session.Snapshot(),
		steps:    config.StepsPerFrame,
		paused:   config.StartPaused,
	}
}

// Update handles keys and steps the session once per tick
func (g *monitorGame) Update() error {
	switch {
	case inpututil.IsKeyJustPressed(ebiten.KeyEscape), inpututil.IsKeyJustPressed(ebiten.KeyQ):
		return ebiten.Termination
	case inpututil.IsKeyJustPressed(ebiten.KeySpace):
		g.paused = !g.paused
	case inpututil.IsKeyJustPressed(ebiten.KeyN):
		g.paused = true
		if !g.snapshot.Done {
			g.snapshot = g.session.Step(1)
		}
		return nil
	case inpututil.IsKeyJustPressed(ebiten.KeyR):
		g.snapshot = g.session.Reset()
	}

	if !g.paused && !g.snapshot.Done {
		g.snapshot = g.session.Step(g.steps)
	}
	return nil
}

// Draw prints the monitor text
func (g *monitorGame) Draw(screen *ebiten.Image) {
	ebitenutil.DebugPrint(screen, strings.Join(StatusLines(g.snapshot, g.paused), "\n"))
}

// Layout returns the fixed logical screen size
func (g *monitorGame) Layout(outsideWidth, outsideHeight int) (int, int) {
	return windowWidth, windowHeight
}
