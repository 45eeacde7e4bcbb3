package app

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestNewConfig_Defaults(t *testing.T) {
	c := NewConfig()

	if c.Monitor.Backend != "auto" {
		t.Errorf("Backend = %q, want auto", c.Monitor.Backend)
	}
	if c.Monitor.StepsPerFrame != 1 || c.Monitor.RefreshMS != 50 {
		t.Errorf("StepsPerFrame = %d RefreshMS = %d", c.Monitor.StepsPerFrame, c.Monitor.RefreshMS)
	}
	if !c.Emulation.StopOnLoop || c.Emulation.MaxInstructions != 0 {
		t.Errorf("Emulation = %+v", c.Emulation)
	}
	if c.Debug.LogLevel != "INFO" {
		t.Errorf("LogLevel = %q, want INFO", c.Debug.LogLevel)
	}
	if c.IsLoaded() {
		t.Error("default config reports loaded")
	}
}

func TestConfig_LoadFromFile_CreatesMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config", "nescore.json")

	c := NewConfig()
	if err := c.LoadFromFile(path); err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("default config not written: %v", err)
	}
	if c.GetConfigPath() != path {
		t.Errorf("GetConfigPath = %q, want %q", c.GetConfigPath(), path)
	}
}

func TestConfig_SaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nescore.json")

	saved := NewConfig()
	saved.Emulation.MaxInstructions = 5000
	saved.Monitor.Backend = "headless"
	saved.Debug.Script = "halt.lua"
	if err := saved.SaveToFile(path); err != nil {
		t.Fatalf("SaveToFile: %v", err)
	}

	loaded := NewConfig()
	if err := loaded.LoadFromFile(path); err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}
	if !loaded.IsLoaded() {
		t.Error("IsLoaded = false after loading a file")
	}
	if loaded.Emulation.MaxInstructions != 5000 || loaded.Monitor.Backend != "headless" || loaded.Debug.Script != "halt.lua" {
		t.Errorf("loaded = %+v", loaded)
	}
}

func TestConfig_ValidateClamps(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nescore.json")
	data := `{
		"monitor": {"backend": "", "steps_per_frame": -4, "refresh_ms": 0, "scale": 0},
		"debug": {"log_level": "debug", "trace_history": -1}
	}`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	c := NewConfig()
	if err := c.LoadFromFile(path); err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}

	tests := []struct {
		name string
		got  interface{}
		want interface{}
	}{
		{"backend", c.Monitor.Backend, "auto"},
		{"steps per frame", c.Monitor.StepsPerFrame, 1},
		{"refresh", c.Monitor.RefreshMS, 50},
		{"scale", c.Monitor.Scale, 1},
		{"log level", c.Debug.LogLevel, "DEBUG"},
		{"trace history", c.Debug.TraceHistory, 0},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
		}
	}
}

func TestConfig_InvalidBackend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nescore.json")
	if err := os.WriteFile(path, []byte(`{"monitor": {"backend": "opengl"}}`), 0644); err != nil {
		t.Fatal(err)
	}

	err := NewConfig().LoadFromFile(path)
	if err == nil {
		t.Fatal("LoadFromFile accepted an unknown backend")
	}

	c := NewConfig()
	c.Monitor.Backend = "opengl"
	var cfgErr *ConfigError
	if !errors.As(c.validate(), &cfgErr) || cfgErr.Field != "monitor.backend" {
		t.Errorf("validate = %v, want ConfigError for monitor.backend", c.validate())
	}
}

func TestConfig_InvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nescore.json")
	if err := os.WriteFile(path, []byte(`{"monitor": `), 0644); err != nil {
		t.Fatal(err)
	}
	if err := NewConfig().LoadFromFile(path); err == nil {
		t.Error("LoadFromFile accepted truncated JSON")
	}
}

func TestConfig_MonitorSettings(t *testing.T) {
	c := NewConfig()
	c.Monitor.StepsPerFrame = 100
	c.Monitor.RefreshMS = 20
	c.Monitor.StartPaused = true

	settings := c.MonitorSettings("title")
	if settings.Title != "title" || settings.StepsPerFrame != 100 || !settings.StartPaused {
		t.Errorf("settings = %+v", settings)
	}
	if settings.Refresh != 20*time.Millisecond {
		t.Errorf("Refresh = %v, want 20ms", settings.Refresh)
	}
}
