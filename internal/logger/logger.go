package logger

import (
	"io"
	"os"
	"time"

	"regvm/pkg/color"

	"github.com/charmbracelet/log"
	"github.com/muesli/termenv"
)

// Init installs the process-wide logger. Debug enables the per-instruction trace.
func Init(debug, noColor bool) {
	log.SetDefault(New(os.Stderr, debug, noColor))
}

// New creates a logger writing to w with the regvm defaults
func New(w io.Writer, debug, noColor bool) *log.Logger {
	l := log.NewWithOptions(w,
		log.Options{
			ReportCaller:    debug,
			ReportTimestamp: false, // the runner reports elapsed time itself
			TimeFormat:      time.RFC3339,
			Prefix:          "REGVM",
		})

	l.SetLevel(log.WarnLevel)
	if debug {
		l.SetLevel(log.DebugLevel)
	}

	l.SetColorProfile(termenv.ANSI256)
	if noColor || !color.IsColorEnabled() {
		l.SetColorProfile(termenv.Ascii)
	}

	return l
}
