package logutil

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want log.Level
	}{
		{"", log.InfoLevel},
		{"debug", log.DebugLevel},
		{" WARN ", log.WarnLevel},
		{"trace", log.DebugLevel},
		{"error", log.ErrorLevel},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, %v; want %v", tt.in, got, err, tt.want)
		}
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Error("ParseLevel(loud) should fail")
	}
}

func TestConfigureFiltersLevel(t *testing.T) {
	if err := Configure("warn"); err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	SetOutput(&buf)
	defer Close()

	log.Info("hidden")
	log.Warn("shown", "k", "v")
	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, "shown") {
		t.Errorf("output = %q", out)
	}
}

func TestToFile(t *testing.T) {
	if err := Configure("info"); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "logs", "gwlens.log")
	if err := ToFile(path); err != nil {
		t.Fatal(err)
	}
	log.Info("to file")
	Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "to file") {
		t.Errorf("log file = %q", data)
	}
}
