package log

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/YuminosukeSato/mnistlab/pkg/errors"
)

func newBufferLogger(buf *bytes.Buffer) *slog.Logger {
	handler := slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	return slog.New(WrapByErrFmtHandler(handler))
}

func TestErrFmtHandler_AddsStacktrace(t *testing.T) {
	var buf bytes.Buffer
	logger := newBufferLogger(&buf)

	err := errors.NewNotFittedError("SVC", "Predict")
	logger.Error("prediction failed", ErrAttr(err))

	var record map[string]interface{}
	if jsonErr := json.Unmarshal(buf.Bytes(), &record); jsonErr != nil {
		t.Fatalf("Failed to parse log output: %v", jsonErr)
	}

	stack, ok := record[StacktraceAttrKey].(string)
	if !ok || stack == "" {
		t.Error("Expected stacktrace attribute for cockroachdb error")
	}
	if !strings.Contains(stack, "handler_test.go") {
		t.Errorf("Expected stacktrace to reference this test file, got: %s", stack)
	}
}

func TestErrFmtHandler_PlainError(t *testing.T) {
	var buf bytes.Buffer
	logger := newBufferLogger(&buf)

	// Errors without safe details should not produce a stacktrace attribute.
	logger.Info("plain message", "count", 3)

	var record map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("Failed to parse log output: %v", err)
	}
	if _, ok := record[StacktraceAttrKey]; ok {
		t.Error("Did not expect stacktrace attribute on plain log record")
	}
}

func TestToLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
	}
	for _, tt := range tests {
		if got := ToLogLevel(tt.in); got != tt.want {
			t.Errorf("ToLogLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestInstallWarningLogger(t *testing.T) {
	var buf bytes.Buffer
	InstallWarningLogger(&buf)
	defer errors.SetZerologWarnFunc(nil)

	errors.Warn(errors.NewConvergenceWarning("SMO", 500, "KKT violations remain"))

	out := buf.String()
	if !strings.Contains(out, "ConvergenceWarning") {
		t.Errorf("Expected structured ConvergenceWarning in output, got: %s", out)
	}
	if !strings.Contains(out, "SMO") {
		t.Errorf("Expected algorithm name in output, got: %s", out)
	}
}
