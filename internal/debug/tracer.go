package debug

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/pkg/errors"

	"nescore/internal/cpu"
	"nescore/internal/memory"
)

// TraceEvent records the CPU state before one instruction executed
type TraceEvent struct {
	Line  Line
	State cpu.State
}

// String formats the event in the nestest log layout
func (e TraceEvent) String() string {
	s := e.State
	return fmt.Sprintf("%-44s A:%02X X:%02X Y:%02X P:%02X SP:%02X CYC:%d",
		e.Line.String(), s.A, s.X, s.Y, s.P.Byte(), s.SP, s.Cycles)
}

// Tracer writes one line per instruction and keeps the most recent events
// in memory so they can be dumped after a fault.
type Tracer struct {
	out       io.Writer
	maxEvents int
	events    []TraceEvent
	traced    uint64
}

// NewTracer creates a tracer writing to out, which may be nil to only keep
// history. maxEvents bounds the history; 0 keeps none.
func NewTracer(out io.Writer, maxEvents int) *Tracer {
	return &Tracer{
		out:       out,
		maxEvents: maxEvents,
		events:    make([]TraceEvent, 0, maxEvents),
	}
}

// Trace records the instruction about to execute at state.PC
func (t *Tracer) Trace(state cpu.State, bus memory.Bus) error {
	line, err := Disassemble(bus, state.PC)
	if err != nil {
		return err
	}
	event := TraceEvent{Line: line, State: state}
	t.traced++

	if t.maxEvents > 0 {
		if len(t.events) >= t.maxEvents {
			copy(t.events, t.events[1:])
			t.events = t.events[:len(t.events)-1]
		}
		t.events = append(t.events, event)
	}

	if t.out != nil {
		if _, err := fmt.Fprintln(t.out, event.String()); err != nil {
			return errors.Wrap(err, "writing trace")
		}
	}
	return nil
}

// Events returns the recorded history, oldest first
func (t *Tracer) Events() []TraceEvent {
	return t.events
}

// Traced returns how many instructions were traced in total
func (t *Tracer) Traced() uint64 {
	return t.traced
}

// ExportEventsToFile writes the recorded history to a file
func (t *Tracer) ExportEventsToFile(filename string) error {
	if len(t.events) == 0 {
		return errors.New("no events to export")
	}

	file, err := os.Create(filename)
	if err != nil {
		return errors.Wrap(err, "failed to create trace file")
	}
	defer file.Close()

	fmt.Fprintf(file, "CPU Trace\n")
	fmt.Fprintf(file, "Generated: %s\n", time.Now().Format(time.RFC3339))
	fmt.Fprintf(file, "Total Instructions: %d (last %d shown)\n\n", t.traced, len(t.events))

	for _, event := range t.events {
		if _, err := fmt.Fprintln(file, event.String()); err != nil {
			return errors.Wrap(err, "writing trace file")
		}
	}
	return nil
}
