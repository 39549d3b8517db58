package version

import (
	"runtime"
	"strings"
	"testing"
)

func TestGet(t *testing.T) {
	info := Get()
	if info.Version != Version || info.GitCommit != GitCommit || info.BuildDate != BuildDate {
		t.Errorf("Get() = %+v, want ldflags values", info)
	}
	if info.GoVersion != runtime.Version() {
		t.Errorf("GoVersion = %q, want %q", info.GoVersion, runtime.Version())
	}
}

func TestBuildInfoString(t *testing.T) {
	s := BuildInfo{Version: "1.2.3", GitCommit: "abc123", BuildDate: "2025-01-01", GoVersion: "go1.25.0", Platform: "linux/amd64"}.String()
	want := "pwarp 1.2.3 (commit abc123, built 2025-01-01, go1.25.0 linux/amd64)"
	if s != want {
		t.Errorf("String() = %q, want %q", s, want)
	}
	if !strings.HasPrefix(Get().String(), "pwarp ") {
		t.Errorf("unexpected prefix: %q", Get().String())
	}
}
