// Package logging builds the root zerolog.Logger that every constructor
// in this tree takes as a parameter, per the teacher's convention of
// threading a configured logger through rather than reaching for a
// global.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// New builds a root logger at the given level ("debug", "info", "warn",
// "error"; unrecognized values fall back to info) writing to w in either
// "console" (human-readable, colorized) or "json" (structured) format.
func New(level, format string, w io.Writer) zerolog.Logger {
	if w == nil {
		w = os.Stderr
	}

	zerolog.SetGlobalLevel(parseLevel(level))

	var out io.Writer = w
	if strings.EqualFold(format, "console") {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}

	return zerolog.New(out).With().Timestamp().Logger()
}

func parseLevel(level string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return zerolog.InfoLevel
	}
	return lvl
}
