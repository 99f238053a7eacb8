// Package logger configures the global zerolog logger for the command line.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Modes accepted by Init.
const (
	ModePretty = "pretty"
	ModeJSON   = "json"
)

// ANSI color codes
const (
	gray  = "\x1b[37m"
	blue  = "\x1b[34m"
	cyan  = "\x1b[36m"
	red   = "\x1b[31m"
	reset = "\x1b[0m"
)

// Init points log.Logger at out with the given level and mode and returns it.
// An empty level means info.
func Init(out io.Writer, level, mode string) (zerolog.Logger, error) {
	if out == nil {
		out = os.Stderr
	}

	lvl := zerolog.InfoLevel
	if level != "" {
		parsed, err := zerolog.ParseLevel(strings.ToLower(level))
		if err != nil {
			return zerolog.Nop(), fmt.Errorf("invalid log level %q: %w", level, err)
		}
		lvl = parsed
	}

	switch mode {
	case ModePretty, "":
		out = zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: "2006-01-02 15:04:05",
			FormatLevel: func(i any) string {
				s, _ := i.(string)
				return colorizeLevel(s)
			},
			FormatFieldName: func(i any) string {
				return colorize(fmt.Sprint(i)+":", gray)
			},
		}
	case ModeJSON:
	default:
		return zerolog.Nop(), fmt.Errorf("invalid log mode %q", mode)
	}

	zerolog.TimeFieldFormat = time.RFC3339
	l := zerolog.New(out).Level(lvl).With().Timestamp().Logger()
	log.Logger = l
	zerolog.DefaultContextLogger = &log.Logger
	return l, nil
}

func colorize(s, color string) string {
	return color + s + reset
}

func colorizeLevel(level string) string {
	switch level {
	case "debug":
		return colorize("DBG", gray)
	case "info":
		return colorize("INF", blue)
	case "warn":
		return colorize("WRN", cyan)
	case "error":
		return colorize("ERR", red)
	default:
		return colorize(level, blue)
	}
}
