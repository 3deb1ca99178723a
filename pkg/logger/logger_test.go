package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestConfigureLevelFiltersDebug(t *testing.T) {
	var buf bytes.Buffer
	if err := Configure(Options{Level: "info"}); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	SetOutput(&buf)
	defer FlushLog()

	Debug("[Test] hidden %d", 1)
	Info("[Test] shown %d", 2)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("debug line should be filtered: %q", out)
	}
	if !strings.Contains(out, "[Test] shown 2") {
		t.Errorf("info line missing: %q", out)
	}
}

func TestConfigureRejectsUnknownFormat(t *testing.T) {
	if err := Configure(Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unknown format")
	}
	if err := Configure(Options{Level: "loud"}); err == nil {
		t.Fatal("expected error for unknown level")
	}
}

func TestInitLogWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "echobot.log")
	if err := InitLog(path); err != nil {
		t.Fatalf("InitLog: %v", err)
	}
	Info("[Test] to file")
	FlushLog()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), "[Test] to file") {
		t.Errorf("log file missing line: %q", data)
	}
}
