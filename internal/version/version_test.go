package version

import (
	"bytes"
	"runtime"
	"strings"
	"testing"
)

func TestGetVersion_Ldflags(t *testing.T) {
	old := Version
	defer func() { Version = old }()

	Version = "1.2.3"
	if got := GetVersion(); got != "1.2.3" {
		t.Errorf("GetVersion = %q, want 1.2.3", got)
	}
	if got := GetDetailedVersion(); !strings.HasPrefix(got, "nescore version 1.2.3") {
		t.Errorf("GetDetailedVersion = %q", got)
	}
}

func TestGetBuildInfo(t *testing.T) {
	info := GetBuildInfo()
	if info.GoVersion != runtime.Version() || info.Platform != runtime.GOOS || info.Arch != runtime.GOARCH {
		t.Errorf("info = %+v", info)
	}
}

func TestShortCommit(t *testing.T) {
	tests := []struct {
		commit string
		want   string
	}{
		{"0123456789abcdef", "0123456"},
		{"abc", "abc"},
		{"unknown", "unknown"},
	}
	for _, tt := range tests {
		if got := (BuildInfo{GitCommit: tt.commit}).ShortCommit(); got != tt.want {
			t.Errorf("ShortCommit(%q) = %q, want %q", tt.commit, got, tt.want)
		}
	}
}

func TestPrintBuildInfo(t *testing.T) {
	var out bytes.Buffer
	PrintBuildInfo(&out)
	if !strings.Contains(out.String(), "Go Version:  "+runtime.Version()) {
		t.Errorf("output missing Go version:\n%s", out.String())
	}
}
