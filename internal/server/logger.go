package server

import (
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
)

// NewLogger returns a console logger writing to w, or stderr when w is nil.
// Debug output is enabled only when debug is true. Colors are used only when
// w is a terminal.
func NewLogger(debug bool, w io.Writer) zerolog.Logger {
	if w == nil {
		w = os.Stderr
	}

	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}

	console := zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: time.DateTime,
		NoColor:    !isTerminal(w),
	}
	return zerolog.New(console).
		Level(level).
		With().
		Timestamp().
		Logger()
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}
