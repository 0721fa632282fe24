package logging

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// New builds the process logger and installs it as the global zerolog
// logger. Terminals get the colored console writer, everything else JSON.
func New(env, level string) zerolog.Logger {
	return newLogger(os.Stdout, env, level, isatty.IsTerminal(os.Stdout.Fd()))
}

func newLogger(out io.Writer, env, level string, console bool) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs
	w := out
	if console && env != "production" {
		w = zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: time.TimeOnly,
			FormatCaller: func(i interface{}) string {
				s, _ := i.(string)
				return filepath.Base(s)
			},
		}
	}

	logger := zerolog.New(w).Level(lvl).With().Timestamp().Str("service", "supportchat").Logger()
	if env != "production" {
		logger = logger.With().Caller().Logger()
	}

	log.Logger = logger
	return logger
}
