package log

import (
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/YuminosukeSato/mnistlab/pkg/errors"
)

// InstallWarningLogger routes library warnings (ConvergenceWarning etc.)
// through a zerolog logger writing to w. Warning types implementing
// zerolog.LogObjectMarshaler are emitted as structured objects.
//
// Pass nil to write to standard error.
func InstallWarningLogger(w io.Writer) {
	if w == nil {
		w = os.Stderr
	}
	logger := zerolog.New(w).With().Timestamp().Logger()
	errors.SetZerologWarnFunc(func(warning error) {
		event := logger.Warn()
		if obj, ok := warning.(zerolog.LogObjectMarshaler); ok {
			event.EmbedObject(obj).Msg("warning")
			return
		}
		event.Str("warning", warning.Error()).Msg("warning")
	})
}
