package app

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"golang.org/x/term"

	"nescore/internal/cartridge"
	"nescore/internal/debug"
	"nescore/internal/monitor"
)

// Application loads a ROM and runs it under the configured monitor
type Application struct {
	config *Config
	log    *Logger
	stdout io.Writer

	backend     monitor.Backend
	backendType monitor.BackendType

	// ROM management
	romPath string
	image   cartridge.Image

	runner    *Runner
	tracer    *debug.Tracer
	traceFile *os.File
	script    *debug.Script

	initialized bool
}

// ApplicationError represents application-specific errors
type ApplicationError struct {
	Component string
	Operation string
	Err       error
}

func (e *ApplicationError) Error() string {
	return fmt.Sprintf("Application %s error during %s: %v", e.Component, e.Operation, e.Err)
}

func (e *ApplicationError) Unwrap() error {
	return e.Err
}

// NewApplication creates an application from a config file. A config that
// cannot be loaded falls back to defaults.
func NewApplication(configPath string) (*Application, error) {
	config := NewConfig()
	if configPath != "" {
		if err := config.LoadFromFile(configPath); err != nil {
			fmt.Printf("[APP_WARNING] Could not load config from %s, using defaults: %v\n", configPath, err)
		}
	}
	return NewApplicationWithConfig(config, os.Stdout)
}

// NewApplicationWithConfig creates an application logging and tracing to stdout
func NewApplicationWithConfig(config *Config, stdout io.Writer) (*Application, error) {
	if err := config.validate(); err != nil {
		return nil, &ApplicationError{Component: "config", Operation: "validate", Err: err}
	}

	app := &Application{
		config: config,
		log:    NewLogger(stdout, ParseLogLevel(config.Debug.LogLevel)),
		stdout: stdout,
	}
	app.backendType = ResolveBackend(config.Monitor.Backend, stdout)

	backend, err := monitor.CreateBackend(app.backendType)
	if err != nil {
		return nil, &ApplicationError{Component: "monitor", Operation: "create backend", Err: err}
	}
	app.backend = backend

	app.initialized = true
	return app, nil
}

// ResolveBackend maps a config backend name to a monitor type. "auto"
// picks the terminal monitor when out is a terminal, headless otherwise.
func ResolveBackend(name string, out io.Writer) monitor.BackendType {
	switch name {
	case "headless":
		return monitor.BackendHeadless
	case "terminal":
		return monitor.BackendTerminal
	case "ebitengine":
		return monitor.BackendEbitengine
	}

	if f, ok := out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return monitor.BackendTerminal
	}
	return monitor.BackendHeadless
}

// LoadROM parses an iNES file and prepares a run of it
func (app *Application) LoadROM(romPath string) error {
	if !app.initialized {
		return errors.New("application not initialized")
	}

	image, err := cartridge.LoadFromFile(romPath)
	if err != nil {
		return &ApplicationError{Component: "cartridge", Operation: "load ROM", Err: err}
	}
	app.log.Infof("ROM", "%s: %d KB PRG, mapper %d, %s mirroring", filepath.Base(romPath),
		image.PRGROMSize/1024, image.MapperID, image.Mirror)
	if image.MapperID != 0 {
		app.log.Warnf("ROM", "mapper %d is not emulated, running PRG-ROM as NROM", image.MapperID)
	}

	return app.LoadImage(romPath, image)
}

// LoadImage prepares a run of an already parsed cartridge image
func (app *Application) LoadImage(name string, image cartridge.Image) error {
	if !app.initialized {
		return errors.New("application not initialized")
	}
	app.closeDebugOutputs()

	opts := []RunnerOption{
		WithMaxInstructions(app.config.Emulation.MaxInstructions),
		WithStopOnLoop(app.config.Emulation.StopOnLoop),
		WithLogger(app.log),
		WithTitle("nescore - " + filepath.Base(name)),
	}

	tracer, err := app.newTracer()
	if err != nil {
		return &ApplicationError{Component: "debug", Operation: "open trace", Err: err}
	}
	if tracer != nil {
		app.tracer = tracer
		opts = append(opts, WithTracer(tracer))
	}

	if path := app.config.Debug.Script; path != "" {
		script, err := debug.LoadScript(path)
		if err != nil {
			app.closeDebugOutputs()
			return &ApplicationError{Component: "debug", Operation: "load script", Err: err}
		}
		script.SetOutput(app.stdout)
		app.script = script
		opts = append(opts, WithScript(script))
		app.log.Infof("SCRIPT", "loaded %s", path)
	}

	runner, err := NewRunner(image, opts...)
	if err != nil {
		app.closeDebugOutputs()
		return &ApplicationError{Component: "console", Operation: "insert cartridge", Err: err}
	}

	app.runner = runner
	app.romPath = name
	app.image = image
	return nil
}

// newTracer builds the tracer the debug settings ask for, nil when none
func (app *Application) newTracer() (*debug.Tracer, error) {
	d := app.config.Debug
	if !d.Trace && d.TraceHistory == 0 {
		return nil, nil
	}
	if !d.Trace {
		return debug.NewTracer(nil, d.TraceHistory), nil
	}

	if d.TraceFile != "" {
		file, err := os.Create(d.TraceFile)
		if err != nil {
			return nil, err
		}
		app.traceFile = file
		return debug.NewTracer(file, d.TraceHistory), nil
	}

	if !app.backend.IsHeadless() {
		app.log.Warnf("CPU_TRACE", "trace to stdout disabled under the %s monitor, set a trace file", app.backend.GetName())
		return debug.NewTracer(nil, d.TraceHistory), nil
	}
	return debug.NewTracer(app.stdout, d.TraceHistory), nil
}

// Run drives the loaded ROM under the monitor until the run ends or the
// user quits, and returns the run summary.
func (app *Application) Run() (RunResult, error) {
	if app.runner == nil {
		return RunResult{}, errors.New("no ROM loaded")
	}

	if err := app.initializeBackend(); err != nil {
		return RunResult{}, &ApplicationError{Component: "monitor", Operation: "initialize", Err: err}
	}
	if err := app.backend.Run(app.runner); err != nil {
		return app.runner.Result(), &ApplicationError{Component: "monitor", Operation: "run", Err: err}
	}

	result := app.runner.Result()
	if result.Reason == StopFault && app.tracer != nil && len(app.tracer.Events()) > 0 {
		path := filepath.Join(app.config.Paths.Logs, "fault_trace.log")
		if err := os.MkdirAll(app.config.Paths.Logs, 0755); err != nil {
			app.log.Warnf("CPU_TRACE", "could not create %s: %v", app.config.Paths.Logs, err)
		} else if err := app.tracer.ExportEventsToFile(path); err != nil {
			app.log.Warnf("CPU_TRACE", "could not export trace: %v", err)
		} else {
			app.log.Infof("CPU_TRACE", "last %d instructions written to %s", len(app.tracer.Events()), path)
		}
	}
	return result, nil
}

// initializeBackend initializes the monitor, falling back to headless
// when no window can be opened
func (app *Application) initializeBackend() error {
	settings := app.config.MonitorSettings(app.runner.title)
	err := app.backend.Initialize(settings)
	if err == nil || app.backendType != monitor.BackendEbitengine {
		return err
	}

	fmt.Printf("[APP_WARNING] Ebitengine backend failed (%v), falling back to headless mode\n", err)
	app.backendType = monitor.BackendHeadless
	app.backend = monitor.NewHeadlessBackend()
	return app.backend.Initialize(settings)
}

// SaveDump writes the final state of the run as JSON. An empty path uses
// the dumps directory.
func (app *Application) SaveDump(path string) (string, error) {
	if app.runner == nil {
		return "", errors.New("no ROM loaded")
	}
	if path == "" {
		path = dumpFilePath(app.config.Paths.Dumps, app.romPath)
	}
	dump := NewStateDump(app.runner.Result(), app.romPath, app.image)
	if err := SaveStateDump(dump, path); err != nil {
		return "", &ApplicationError{Component: "dump", Operation: "save", Err: err}
	}
	return path, nil
}

// GetConfig returns the application configuration
func (app *Application) GetConfig() *Config {
	return app.config
}

// GetROMPath returns the currently loaded ROM path
func (app *Application) GetROMPath() string {
	return app.romPath
}

// Backend returns the monitor backend type in use
func (app *Application) Backend() monitor.BackendType {
	return app.backendType
}

// Runner returns the loaded run, nil before LoadROM
func (app *Application) Runner() *Runner {
	return app.runner
}

func (app *Application) closeDebugOutputs() {
	if app.script != nil {
		app.script.Close()
		app.script = nil
	}
	if app.traceFile != nil {
		if err := app.traceFile.Close(); err != nil {
			fmt.Printf("[APP_ERROR] Trace file close error: %v\n", err)
		}
		app.traceFile = nil
	}
	app.tracer = nil
}

// Cleanup releases all resources and shuts down the application
func (app *Application) Cleanup() error {
	var lastErr error

	app.closeDebugOutputs()
	if app.backend != nil {
		if err := app.backend.Cleanup(); err != nil {
			lastErr = err
			fmt.Printf("[APP_ERROR] Monitor backend cleanup error: %v\n", err)
		}
	}

	app.initialized = false
	return lastErr
}
