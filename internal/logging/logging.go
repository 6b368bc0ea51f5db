// Package logging builds the application's slog.Logger.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	"golang.org/x/term"
)

// Output formats
const (
	FormatAuto = "auto"
	FormatText = "text"
	FormatJSON = "json"
)

// Options configures New.
type Options struct {
	Level  slog.Level
	Format string
}

// New returns a logger writing to w. FormatText renders human-readable lines,
// coloured only when w is a terminal. FormatAuto picks text for terminals and
// JSON otherwise.
func New(w io.Writer, opts Options) *slog.Logger {
	tty := isTerminal(w)

	format := opts.Format
	if format == "" || format == FormatAuto {
		format = FormatJSON
		if tty {
			format = FormatText
		}
	}

	var handler slog.Handler
	switch format {
	case FormatText:
		handler = tint.NewHandler(w, &tint.Options{
			Level:      opts.Level,
			TimeFormat: time.TimeOnly,
			NoColor:    !tty,
		})
	default:
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: opts.Level})
	}
	return slog.New(handler)
}

// ParseLevel maps debug, info, warn or error (case-insensitive) to a level.
// An empty string is info.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
