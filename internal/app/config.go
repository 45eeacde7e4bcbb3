// Package app wires configuration, the stepping loop and the monitors
// into the nescore application.
package app

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"nescore/internal/monitor"
)

// Config holds all application configuration
type Config struct {
	Emulation EmulationConfig `json:"emulation"`
	Monitor   MonitorConfig   `json:"monitor"`
	Debug     DebugConfig     `json:"debug"`
	Paths     PathsConfig     `json:"paths"`

	// Internal state
	configPath string
	loaded     bool
}

// EmulationConfig controls when a run ends
type EmulationConfig struct {
	MaxInstructions uint64 `json:"max_instructions"` // 0 runs until a fault or halt
	StopOnLoop      bool   `json:"stop_on_loop"`     // Stop when an instruction jumps to itself
}

// MonitorConfig selects and tunes the front end
type MonitorConfig struct {
	Backend       string `json:"backend"` // "auto", "headless", "terminal", "ebitengine"
	StepsPerFrame int    `json:"steps_per_frame"`
	RefreshMS     int    `json:"refresh_ms"`
	Scale         int    `json:"scale"`
	StartPaused   bool   `json:"start_paused"`
}

// DebugConfig contains tracing and scripting options
type DebugConfig struct {
	Trace        bool   `json:"trace"`
	TraceFile    string `json:"trace_file"`    // Empty traces to stdout
	TraceHistory int    `json:"trace_history"` // Events kept for the fault dump
	Script       string `json:"script"`
	LogLevel     string `json:"log_level"` // "DEBUG", "INFO", "WARN", "ERROR"
}

// PathsConfig contains file and directory paths
type PathsConfig struct {
	ROMs  string `json:"roms"`
	Logs  string `json:"logs"`
	Dumps string `json:"dumps"`
}

// NewConfig creates a new configuration with default values
func NewConfig() *Config {
	return &Config{
		Emulation: EmulationConfig{
			MaxInstructions: 0,
			StopOnLoop:      true,
		},
		Monitor: MonitorConfig{
			Backend:       "auto",
			StepsPerFrame: 1,
			RefreshMS:     50,
			Scale:         2,
			StartPaused:   false,
		},
		Debug: DebugConfig{
			Trace:        false,
			TraceHistory: 64,
			LogLevel:     "INFO",
		},
		Paths: PathsConfig{
			ROMs:  "./roms",
			Logs:  "./logs",
			Dumps: "./dumps",
		},
	}
}

// LoadFromFile loads configuration from a JSON file
func (c *Config) LoadFromFile(path string) error {
	c.configPath = path

	// A missing file is created with the current values
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return c.SaveToFile(path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %v", err)
	}

	if err := json.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %v", err)
	}

	if err := c.validate(); err != nil {
		return fmt.Errorf("invalid configuration: %v", err)
	}

	c.loaded = true
	return nil
}

// SaveToFile saves configuration to a JSON file
func (c *Config) SaveToFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %v", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %v", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %v", err)
	}

	c.configPath = path
	return nil
}

// validate rejects unknown names and clamps numeric values to defaults
func (c *Config) validate() error {
	switch c.Monitor.Backend {
	case "", "auto", "headless", "terminal", "ebitengine":
	default:
		return &ConfigError{Field: "monitor.backend", Value: c.Monitor.Backend, Err: fmt.Errorf("unknown backend")}
	}
	if c.Monitor.Backend == "" {
		c.Monitor.Backend = "auto"
	}

	c.Debug.LogLevel = strings.ToUpper(c.Debug.LogLevel)
	if _, ok := logLevels[c.Debug.LogLevel]; !ok {
		c.Debug.LogLevel = "INFO"
	}

	if c.Monitor.StepsPerFrame <= 0 {
		c.Monitor.StepsPerFrame = 1
	}
	if c.Monitor.RefreshMS <= 0 {
		c.Monitor.RefreshMS = 50
	}
	if c.Monitor.Scale <= 0 {
		c.Monitor.Scale = 1
	}
	if c.Debug.TraceHistory < 0 {
		c.Debug.TraceHistory = 0
	}

	return nil
}

// MonitorSettings converts the monitor section for the backends
func (c *Config) MonitorSettings(title string) monitor.Config {
	return monitor.Config{
		Title:         title,
		StepsPerFrame: c.Monitor.StepsPerFrame,
		Refresh:       time.Duration(c.Monitor.RefreshMS) * time.Millisecond,
		Scale:         c.Monitor.Scale,
		StartPaused:   c.Monitor.StartPaused,
	}
}

// IsLoaded returns whether the configuration was loaded from file
func (c *Config) IsLoaded() bool {
	return c.loaded
}

// GetConfigPath returns the path to the config file
func (c *Config) GetConfigPath() string {
	return c.configPath
}

// GetDefaultConfigPath returns the default configuration file path
func GetDefaultConfigPath() string {
	return "./config/nescore.json"
}

// ConfigError represents configuration-related errors
type ConfigError struct {
	Field string
	Value interface{}
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error in field '%s' with value '%v': %v", e.Field, e.Value, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}
