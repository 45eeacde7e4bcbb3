package monitor

import (
	"fmt"
	"time"

	"github.com/gdamore/tcell"
)

const terminalHelp = "space run/pause  n step  r reset  q quit"

// TerminalBackend shows the registers and upcoming instructions in a
// boxed tcell view and steps the session from the keyboard.
type TerminalBackend struct {
	initialized bool
	config      Config
	screen      tcell.Screen
	paused      bool
}

// NewTerminalBackend creates a terminal backend on the controlling terminal
func NewTerminalBackend() Backend {
	return &TerminalBackend{}
}

// NewTerminalBackendWithScreen creates a terminal backend drawing to screen
func NewTerminalBackendWithScreen(screen tcell.Screen) *TerminalBackend {
	return &TerminalBackend{screen: screen}
}

// Initialize initializes the terminal backend
func (b *TerminalBackend) Initialize(config Config) error {
	if b.initialized {
		return fmt.Errorf("terminal backend already initialized")
	}
	if config.StepsPerFrame <= 0 {
		config.StepsPerFrame = 1
	}
	if config.Refresh <= 0 {
		config.Refresh = DefaultConfig().Refresh
	}

	if b.screen == nil {
		screen, err := tcell.NewScreen()
		if err != nil {
			return fmt.Errorf("creating terminal screen: %w", err)
		}
		b.screen = screen
	}
	if err := b.screen.Init(); err != nil {
		return fmt.Errorf("initializing terminal screen: %w", err)
	}

	b.config = config
	b.paused = config.StartPaused
	b.initialized = true
	return nil
}

// Run draws the session and handles keys until the user quits. A finished
// run stays on screen until then.
func (b *TerminalBackend) Run(session Session) error {
	if !b.initialized {
		return fmt.Errorf("backend not initialized")
	}

	done := make(chan struct{})
	defer close(done)
	events := make(chan tcell.Event)
	go func() {
		for {
			ev := b.screen.PollEvent()
			if ev == nil {
				close(events)
				return
			}
			select {
			case events <- ev:
			case <-done:
				return
			}
		}
	}()

	ticker := time.NewTicker(b.config.Refresh)
	defer ticker.Stop()

	snapshot := session.Snapshot()
	for {
		b.draw(snapshot)

		select {
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			switch ev := ev.(type) {
			case *tcell.EventKey:
				var quit bool
				if snapshot, quit = b.handleKey(ev, session, snapshot); quit {
					return nil
				}
			case *tcell.EventResize:
				b.screen.Sync()
			}
		case <-ticker.C:
			if !b.paused && !snapshot.Done {
				snapshot = session.Step(b.config.StepsPerFrame)
			}
		}
	}
}

func (b *TerminalBackend) handleKey(ev *tcell.EventKey, session Session, snapshot Snapshot) (Snapshot, bool) {
	switch ev.Key() {
	case tcell.KeyCtrlC, tcell.KeyEscape:
		return snapshot, true
	case tcell.KeyRune:
	default:
		return snapshot, false
	}

	switch ev.Rune() {
	case 'q':
		return snapshot, true
	case ' ':
		b.paused = !b.paused
	case 'n', 's':
		b.paused = true
		if !snapshot.Done {
			snapshot = session.Step(1)
		}
	case 'r':
		snapshot = session.Reset()
	}
	return snapshot, false
}

func (b *TerminalBackend) draw(snapshot Snapshot) {
	s := b.screen
	s.Clear()

	lines := StatusLines(snapshot, b.paused)
	width := len(b.config.Title) + 4
	for _, line := range lines {
		if len(line)+4 > width {
			width = len(line) + 4
		}
	}
	height := len(lines) + 2

	frame := tcell.StyleDefault.Foreground(tcell.ColorWhite)
	text := tcell.StyleDefault.Foreground(tcell.ColorWhite).Bold(true)
	Box(s, 0, 0, width, height, frame)
	DrawString(s, 2, 0, frame, b.config.Title)

	for i, line := range lines[:len(lines)-1] {
		DrawString(s, 2, i+1, text, line)
	}
	DrawString(s, 2, len(lines), b.statusStyle(snapshot), lines[len(lines)-1])
	DrawString(s, 0, height, tcell.StyleDefault.Foreground(tcell.ColorGray), terminalHelp)

	s.Show()
}

func (b *TerminalBackend) statusStyle(snapshot Snapshot) tcell.Style {
	switch {
	case snapshot.Done && snapshot.Err != nil:
		return tcell.StyleDefault.Foreground(tcell.ColorRed).Bold(true)
	case snapshot.Done || b.paused:
		return tcell.StyleDefault.Foreground(tcell.ColorYellow)
	default:
		return tcell.StyleDefault.Foreground(tcell.ColorGreen)
	}
}

// Cleanup restores the terminal
func (b *TerminalBackend) Cleanup() error {
	if b.initialized {
		b.screen.Fini()
	}
	b.initialized = false
	return nil
}

// IsHeadless returns false (terminal has a display)
func (b *TerminalBackend) IsHeadless() bool {
	return false
}

// GetName returns the backend name
func (b *TerminalBackend) GetName() string {
	return "Terminal"
}

// Box draws a single-line frame with its top left corner at x, y
func Box(s tcell.Screen, x, y, w, h int, style tcell.Style) {
	for i := x + 1; i < x+w-1; i++ {
		s.SetContent(i, y, tcell.RuneHLine, nil, style)
		s.SetContent(i, y+h-1, tcell.RuneHLine, nil, style)
	}
	for j := y + 1; j < y+h-1; j++ {
		s.SetContent(x, j, tcell.RuneVLine, nil, style)
		s.SetContent(x+w-1, j, tcell.RuneVLine, nil, style)
	}
	s.SetContent(x, y, tcell.RuneULCorner, nil, style)
	s.SetContent(x+w-1, y, tcell.RuneURCorner, nil, style)
	s.SetContent(x, y+h-1, tcell.RuneLLCorner, nil, style)
	s.SetContent(x+w-1, y+h-1, tcell.RuneLRCorner, nil, style)
}

// DrawString writes str starting at x, y
func DrawString(s tcell.Screen, x, y int, style tcell.Style, str string) {
	for i, r := range []rune(str) {
		s.SetContent(x+i, y, r, nil, style)
	}
}
