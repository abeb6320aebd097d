package logger

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup configures the global zerolog logger. Non-prod environments get a
// human readable console writer on stdout; prod writes JSON lines to
// logs/catalogd.log and falls back to stdout if the file cannot be opened.
// The returned func closes the log file.
func Setup(env, level string) func() {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	zerolog.SetGlobalLevel(parseLevel(level))

	if env != "prod" {
		log.Logger = newLogger(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "15:04:05.000"})
		return func() {}
	}

	logDir := "logs"
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		log.Logger = newLogger(os.Stdout)
		log.Warn().Err(err).Msg("failed to create log dir, fallback to stdout")
		return func() {}
	}

	logPath := filepath.Join(logDir, "catalogd.log")
	f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		log.Logger = newLogger(os.Stdout)
		log.Warn().Err(err).Str("path", logPath).Msg("failed to open log file, fallback to stdout")
		return func() {}
	}

	log.Logger = newLogger(f)
	return func() {
		_ = f.Close()
	}
}

// SetupWriter sends human readable output to w. Command-line tools use it
// with stderr so logs never mix with command output.
func SetupWriter(w io.Writer, level string) {
	zerolog.SetGlobalLevel(parseLevel(level))
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}).With().Timestamp().Logger()
}

func newLogger(w io.Writer) zerolog.Logger {
	return zerolog.New(w).With().Timestamp().Caller().Logger()
}

func parseLevel(level string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || level == "" {
		return zerolog.InfoLevel
	}
	return lvl
}
