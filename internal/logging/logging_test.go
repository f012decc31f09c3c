package logging

import (
	"bytes"
	"log"
	"strings"
	"testing"
	"time"
)

func newTestLogger(buf *bytes.Buffer, level Level) *Logger {
	return &Logger{
		level:  level,
		logger: log.New(buf, "", 0),
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := newTestLogger(&buf, LevelWarn)

	l.Debug("debug message")
	l.Info("info message")
	l.Warn("warn message")
	l.Error("error message")

	out := buf.String()
	if strings.Contains(out, "debug message") || strings.Contains(out, "info message") {
		t.Errorf("messages below level leaked: %q", out)
	}
	if !strings.Contains(out, "[WARN] warn message") {
		t.Errorf("warn message missing: %q", out)
	}
	if !strings.Contains(out, "[ERROR] error message") {
		t.Errorf("error message missing: %q", out)
	}
}

func TestSetLevelFromString(t *testing.T) {
	tests := []struct {
		input string
		want  Level
	}{
		{"debug", LevelDebug},
		{"info", LevelInfo},
		{"warn", LevelWarn},
		{"warning", LevelWarn},
		{"error", LevelError},
		{"ERROR", LevelError},
		{"bogus", LevelInfo},
	}

	for _, tt := range tests {
		var buf bytes.Buffer
		l := newTestLogger(&buf, LevelInfo)
		l.SetLevelFromString(tt.input)
		if got := l.GetLevel(); got != tt.want {
			t.Errorf("SetLevelFromString(%q) level = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestFormatting(t *testing.T) {
	var buf bytes.Buffer
	l := newTestLogger(&buf, LevelDebug)

	l.Info("dropped %d packets on vcid %d", 3, 9)

	if !strings.Contains(buf.String(), "[INFO] dropped 3 packets on vcid 9") {
		t.Errorf("unexpected output: %q", buf.String())
	}
}

func TestLimiterSuppresses(t *testing.T) {
	// A limiter with burst 2 and a long interval admits exactly two
	// messages in quick succession.
	lim := NewLimiter(time.Hour, 2)

	admitted := 0
	for i := 0; i < 10; i++ {
		if lim.lim.Allow() {
			admitted++
		}
	}
	if admitted != 2 {
		t.Errorf("admitted %d messages, want 2", admitted)
	}
}
