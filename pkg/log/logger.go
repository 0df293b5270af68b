// Package log configures structured JSON logging for the library and
// bridges the warning system into zerolog.
package log

import (
	"fmt"
	"log/slog"
	"os"
)

// Attribute keys recognized by the stacktrace-extracting handler.
const (
	ErrAttrKey        = "error"
	StacktraceAttrKey = "stacktrace"
)

// SetupLogger installs a JSON slog logger on stdout as the process
// default. Record attributes are rewritten to Cloud Logging field names
// so severity-based filtering works out of the box.
func SetupLogger(loglevel string) {
	opts := slog.HandlerOptions{
		AddSource:   true,
		Level:       ToLogLevel(loglevel),
		ReplaceAttr: toCloudLogging,
	}
	handler := slog.NewJSONHandler(os.Stdout, &opts)
	slog.SetDefault(slog.New(WrapByErrFmtHandler(handler)))
}

func toCloudLogging(groups []string, attr slog.Attr) slog.Attr {
	switch attr.Key {
	case slog.LevelKey:
		attr.Key = "severity"
	case slog.MessageKey:
		attr.Key = "message"
	case slog.SourceKey:
		attr.Key = "logging.googleapis.com/sourceLocation"
	}
	return attr
}

// ToLogLevel maps a level name to its slog level. Unknown names panic;
// the level comes from static configuration, not user data.
func ToLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		panic(fmt.Sprintf("invalid log level :%s", level))
	}
}

// ErrAttr wraps an error as a slog attribute under ErrAttrKey so the
// handler can pull a stacktrace out of it.
func ErrAttr(err error) slog.Attr {
	return slog.Any(ErrAttrKey, err)
}
