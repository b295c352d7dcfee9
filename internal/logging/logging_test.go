// SPDX-License-Identifier: AGPL-3.0-only
package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := []struct {
		input string
		want  LogLevel
	}{
		{"debug", Debug},
		{"DEBUG", Debug},
		{"info", Info},
		{"warn", Warn},
		{"warning", Warn},
		{"error", Error},
		{"fatal", Fatal},
		{"unknown", Info},
		{"", Info},
	}
	for _, tc := range cases {
		if got := ParseLevel(tc.input); got != tc.want {
			t.Errorf("ParseLevel(%q): expected %v, got %v", tc.input, tc.want, got)
		}
	}
}

func TestLevelString(t *testing.T) {
	if got := Warn.String(); got != "WARN" {
		t.Errorf("Expected WARN, got %s", got)
	}
	if got := LogLevel(99).String(); got != "UNKNOWN" {
		t.Errorf("Expected UNKNOWN, got %s", got)
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Options{Output: &buf, Level: Warn})

	logger.Debugf("dropped debug")
	logger.Infof("dropped info")
	logger.Warnf("kept warn")
	logger.Errorf("kept error")

	out := buf.String()
	if strings.Contains(out, "dropped") {
		t.Errorf("Expected messages below Warn to be dropped, got %q", out)
	}
	if !strings.Contains(out, "kept warn") || !strings.Contains(out, "kept error") {
		t.Errorf("Expected Warn and Error lines, got %q", out)
	}
	if !strings.Contains(out, "[WARN]") || !strings.Contains(out, "[ERROR]") {
		t.Errorf("Expected level markers, got %q", out)
	}
}

func TestWithField(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Options{Output: &buf, Level: Info})

	scoped := logger.WithField("conversation_id", "conv-1").WithField("attempt", "2")
	scoped.Infof("working")

	line := buf.String()
	if !strings.Contains(line, "attempt=2") || !strings.Contains(line, "conversation_id=conv-1") {
		t.Errorf("Expected both fields on the line, got %q", line)
	}
	// Fields are sorted by key.
	if strings.Index(line, "attempt=") > strings.Index(line, "conversation_id=") {
		t.Errorf("Expected sorted field order, got %q", line)
	}

	// The parent logger is unchanged.
	buf.Reset()
	logger.Infof("plain")
	if strings.Contains(buf.String(), "conversation_id") {
		t.Errorf("Expected parent logger without fields, got %q", buf.String())
	}
}

func TestFileLogger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "chat.log")
	logger, err := FileLogger(path, Info)
	if err != nil {
		t.Fatalf("FileLogger failed: %v", err)
	}

	logger.Infof("to the file")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}
	if !strings.Contains(string(data), "to the file") {
		t.Errorf("Expected log line in file, got %q", string(data))
	}
}

func TestDefaultLogger(t *testing.T) {
	orig := GetDefaultLogger()
	defer SetDefaultLogger(orig)

	var buf bytes.Buffer
	SetDefaultLogger(New(Options{Output: &buf, Level: Debug}))
	GetDefaultLogger().Debugf("via default")

	if !strings.Contains(buf.String(), "via default") {
		t.Errorf("Expected default logger output, got %q", buf.String())
	}
}
