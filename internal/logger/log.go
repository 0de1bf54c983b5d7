// internal/logger/log.go
package logger

import (
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	stdlog "log"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
)

// Init
//
// Installs the process-wide logger. Called once from main before any work.
//
// Every line carries level, timestamp, caller file:line and message, the
// same fields the benchmark scripts have always printed. Output goes to w,
// which is os.Stderr unless a test supplies a buffer.
//
// level is "debug", "info", "warn" or "error"; anything else falls back to info.
//
//	logger.Init(cfg.LogLevel(), os.Stderr)
//	log.Info().Str("dir", dir).Msg("loading logs")
func Init(level string, w io.Writer) zerolog.Logger {
	lvl := zerolog.InfoLevel
	if l, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level))); err == nil && l != zerolog.NoLevel {
		lvl = l
	}
	zerolog.SetGlobalLevel(lvl)

	if w == nil {
		w = os.Stderr
	}

	// file:line instead of the full source path
	zerolog.CallerMarshalFunc = func(_ uintptr, file string, line int) string {
		return filepath.Base(file) + ":" + strconv.Itoa(line)
	}

	out := zerolog.ConsoleWriter{
		Out:        w,
		NoColor:    true,
		TimeFormat: "2006-01-02 15:04:05.000",
		PartsOrder: []string{
			zerolog.LevelFieldName,
			zerolog.TimestampFieldName,
			zerolog.CallerFieldName,
			zerolog.MessageFieldName,
		},
	}

	logger := zerolog.New(out).
		Level(lvl).
		With().
		Timestamp().
		Caller().
		Logger()

	zlog.Logger = logger

	// stdlib log users (net/http, sql drivers) end up in the same stream
	stdlog.SetFlags(0)
	stdlog.SetOutput(logger)

	return logger
}
