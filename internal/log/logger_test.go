package log

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestNewText(t *testing.T) {
	var buf bytes.Buffer
	logger := NewText(&buf, slog.LevelDebug)

	logger.Info("running sub-step", "step", "cmake-build")

	output := buf.String()
	if !strings.Contains(output, "running sub-step") {
		t.Errorf("expected message in output, got: %s", output)
	}
	if !strings.Contains(output, "step=cmake-build") {
		t.Errorf("expected attribute in output, got: %s", output)
	}
}

func TestLoggerLevels(t *testing.T) {
	tests := []struct {
		name    string
		logFunc func(Logger)
		want    string
	}{
		{"Debug", func(l Logger) { l.Debug("debug msg") }, "debug msg"},
		{"Info", func(l Logger) { l.Info("info msg") }, "info msg"},
		{"Warn", func(l Logger) { l.Warn("warn msg") }, "warn msg"},
		{"Error", func(l Logger) { l.Error("error msg") }, "error msg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			tt.logFunc(NewText(&buf, slog.LevelDebug))

			output := buf.String()
			if !strings.Contains(output, tt.want) {
				t.Errorf("expected %q in output, got: %s", tt.want, output)
			}
			if !strings.Contains(output, strings.ToUpper(tt.name)) {
				t.Errorf("expected level %q in output, got: %s", tt.name, output)
			}
		})
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewText(&buf, slog.LevelWarn)

	logger.Debug("hidden debug")
	logger.Info("hidden info")
	logger.Warn("shown warn")

	output := buf.String()
	if strings.Contains(output, "hidden") {
		t.Errorf("messages below WARN should be filtered, got: %s", output)
	}
	if !strings.Contains(output, "shown warn") {
		t.Errorf("expected warn message, got: %s", output)
	}
}

func TestLoggerWith(t *testing.T) {
	var buf bytes.Buffer
	logger := NewText(&buf, slog.LevelDebug).With("action", "rebuild-and-test")

	logger.Info("start")

	if !strings.Contains(buf.String(), "action=rebuild-and-test") {
		t.Errorf("expected inherited attribute, got: %s", buf.String())
	}
}

func TestNoop(t *testing.T) {
	logger := NewNoop()
	logger.Debug("x")
	logger.Info("x")
	logger.Warn("x")
	logger.Error("x")
	if _, ok := logger.With("k", "v").(noopLogger); !ok {
		t.Error("With on noop logger should return a noop logger")
	}
}

func TestDefault(t *testing.T) {
	orig := Default()
	defer SetDefault(orig)

	var buf bytes.Buffer
	SetDefault(NewText(&buf, slog.LevelInfo))
	Default().Info("from default")
	if !strings.Contains(buf.String(), "from default") {
		t.Errorf("expected default logger to be used, got: %s", buf.String())
	}

	SetDefault(nil)
	if _, ok := Default().(noopLogger); !ok {
		t.Error("SetDefault(nil) should install the noop logger")
	}
}

func TestOrDefault(t *testing.T) {
	l := NewNoop()
	if OrDefault(l) != l {
		t.Error("OrDefault should return a non-nil logger unchanged")
	}
	if OrDefault(nil) == nil {
		t.Error("OrDefault(nil) should never return nil")
	}
}
