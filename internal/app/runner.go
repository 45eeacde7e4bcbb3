package app

import (
	"math"
	"time"

	"github.com/pkg/errors"

	"nescore/internal/cartridge"
	"nescore/internal/console"
	"nescore/internal/cpu"
	"nescore/internal/debug"
	"nescore/internal/monitor"
)

const (
	upcomingLines    = 8
	progressInterval = 1_000_000
)

// ErrRunFinished is returned when stepping a runner whose run has ended
var ErrRunFinished = errors.New("run finished")

// StopReason says why a run ended
type StopReason string

const (
	StopNone   StopReason = ""
	StopFault  StopReason = "fault"
	StopLimit  StopReason = "instruction limit"
	StopScript StopReason = "script halt"
	StopLoop   StopReason = "loop"
)

// RunResult summarizes a finished run
type RunResult struct {
	Instructions uint64
	Cycles       uint64
	Reason       StopReason
	Final        cpu.State
	// Err is the fault that ended the run, nil otherwise
	Err     error
	Elapsed time.Duration
}

// InstructionsPerSecond returns the execution speed of the run
func (r RunResult) InstructionsPerSecond() float64 {
	if r.Elapsed <= 0 {
		return 0
	}
	return float64(r.Instructions) / r.Elapsed.Seconds()
}

// Runner is the outer stepping loop: it ticks the console until a fault,
// the instruction limit, a jump-to-self loop or a script halt ends the run.
// It implements monitor.Session.
type Runner struct {
	console console.Console
	title   string

	maxInstructions uint64
	stopOnLoop      bool
	tracer          *debug.Tracer
	script          *debug.Script
	log             *Logger

	done    bool
	reason  StopReason
	err     error
	elapsed time.Duration
}

// RunnerOption configures a Runner
type RunnerOption func(*Runner)

// WithMaxInstructions ends the run after n instructions; 0 means no limit
func WithMaxInstructions(n uint64) RunnerOption {
	return func(r *Runner) { r.maxInstructions = n }
}

// WithStopOnLoop ends the run when an instruction leaves PC unchanged
func WithStopOnLoop(enabled bool) RunnerOption {
	return func(r *Runner) { r.stopOnLoop = enabled }
}

// WithTracer records every instruction before it executes
func WithTracer(t *debug.Tracer) RunnerOption {
	return func(r *Runner) { r.tracer = t }
}

// WithScript consults a Lua halt condition after every instruction
func WithScript(s *debug.Script) RunnerOption {
	return func(r *Runner) { r.script = s }
}

// WithLogger sets the progress logger
func WithLogger(l *Logger) RunnerOption {
	return func(r *Runner) { r.log = l }
}

// WithTitle names the run in monitor snapshots
func WithTitle(title string) RunnerOption {
	return func(r *Runner) { r.title = title }
}

// NewRunner inserts image into a fresh console and powers it on
func NewRunner(image cartridge.Image, opts ...RunnerOption) (*Runner, error) {
	c, err := console.New().InsertCartridge(image)
	if err != nil {
		return nil, err
	}
	if c, err = c.PowerOn(); err != nil {
		return nil, errors.Wrap(err, "power on")
	}

	r := &Runner{console: c, title: "nescore"}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// StepInstruction executes one instruction. The error is the fault that
// ended the run, if any.
func (r *Runner) StepInstruction() error {
	if r.done {
		return ErrRunFinished
	}

	before := r.console.CPU()
	if r.tracer != nil {
		if err := r.tracer.Trace(before, r.console.Bus()); err != nil {
			r.finish(StopFault, errors.Wrap(err, "trace"))
			return r.err
		}
	}

	next, err := r.console.Tick()
	if err != nil {
		r.finish(StopFault, err)
		return err
	}
	r.console = next
	count := next.Instructions()

	if count%progressInterval == 0 {
		r.log.Debugf("RUN", "%d instructions, PC=$%04X", count, next.CPU().PC)
	}

	if r.script != nil {
		halt, err := r.script.OnStep(next.CPU(), count, next.Bus())
		if err != nil {
			r.finish(StopFault, err)
			return err
		}
		if halt {
			r.finish(StopScript, nil)
			return nil
		}
	}

	switch {
	case r.stopOnLoop && next.CPU().PC == before.PC:
		r.finish(StopLoop, nil)
	case r.maxInstructions > 0 && count >= r.maxInstructions:
		r.finish(StopLimit, nil)
	}
	return nil
}

func (r *Runner) finish(reason StopReason, err error) {
	r.done = true
	r.reason = reason
	r.err = err

	state := r.console.CPU()
	if err != nil {
		r.log.Errorf("RUN", "fault after %d instructions: %v", r.console.Instructions(), err)
		return
	}
	r.log.Infof("RUN", "stopped (%s) after %d instructions at PC=$%04X", reason, r.console.Instructions(), state.PC)
}

// Run steps until the run ends
func (r *Runner) Run() RunResult {
	r.Advance(math.MaxInt)
	return r.Result()
}

// Advance implements monitor.Session. It executes up to n instructions
// without building a snapshot and reports whether the run has ended.
func (r *Runner) Advance(n int) bool {
	start := time.Now()
	for i := 0; i < n && !r.done; i++ {
		r.StepInstruction()
	}
	r.elapsed += time.Since(start)
	return r.done
}

// Done reports whether the run has ended
func (r *Runner) Done() bool {
	return r.done
}

// Result summarizes the run so far
func (r *Runner) Result() RunResult {
	state := r.console.CPU()
	return RunResult{
		Instructions: r.console.Instructions(),
		Cycles:       state.Cycles,
		Reason:       r.reason,
		Final:        state,
		Err:          r.err,
		Elapsed:      r.elapsed,
	}
}

// Console returns the console as of the last executed instruction
func (r *Runner) Console() console.Console {
	return r.console
}

// Snapshot implements monitor.Session
func (r *Runner) Snapshot() monitor.Snapshot {
	state := r.console.CPU()
	upcoming, _ := debug.DisassembleRange(r.console.Bus(), state.PC, upcomingLines)
	return monitor.Snapshot{
		Title:        r.title,
		State:        state,
		Instructions: r.console.Instructions(),
		Upcoming:     upcoming,
		Done:         r.done,
		Reason:       string(r.reason),
		Err:          r.err,
	}
}

// Step implements monitor.Session
func (r *Runner) Step(n int) monitor.Snapshot {
	r.Advance(n)
	return r.Snapshot()
}

// Reset implements monitor.Session. It restarts the program and clears a
// finished run.
func (r *Runner) Reset() monitor.Snapshot {
	c, err := r.console.Reset()
	if err != nil {
		r.finish(StopFault, errors.Wrap(err, "reset"))
		return r.Snapshot()
	}
	r.console = c
	r.done = false
	r.reason = StopNone
	r.err = nil
	r.log.Infof("RUN", "reset to PC=$%04X", c.CPU().PC)
	return r.Snapshot()
}
