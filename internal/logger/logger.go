package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

var (
	root    zerolog.Logger
	started bool
)

// Init builds the process-wide JSON logger from the environment:
// LOG_LEVEL picks the threshold (debug|info|warn|error, info when
// unset), LOG_PRETTY=true switches to the human console writer.
//
// Output goes to stdout; report files are written elsewhere, so the
// two never mix.
func Init() {
	zerolog.TimeFieldFormat = time.RFC3339Nano

	var w io.Writer = os.Stdout
	if strings.EqualFold(getenv("LOG_PRETTY", "false"), "true") {
		w = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}

	root = zerolog.New(w).With().Timestamp().Logger().
		Level(parseLevel(getenv("LOG_LEVEL", "info")))
	started = true
}

// L returns the process logger, initializing it on first use so early
// code paths never log through an unconfigured instance.
func L() *zerolog.Logger {
	if !started {
		Init()
	}
	return &root
}

// With returns a child logger tagged with a component field, so scan
// phases and API plumbing are distinguishable in one stream.
func With(component string) zerolog.Logger {
	return L().With().Str("component", component).Logger()
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseLevel(s string) zerolog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error", "err":
		return zerolog.ErrorLevel
	}
	return zerolog.InfoLevel
}
