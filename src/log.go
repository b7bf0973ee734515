package borzoi

/*------------------------------------------------------------------
 *
 * Purpose:	Package wide logger.
 *
 * Description:	Everything above the per-bit hot path reports through
 *		here: intake negotiation, RS decode failures, internal
 *		invariant violations, periodic statistics.  Decoded
 *		frames themselves go to the delivery sink, not the log.
 *
 *---------------------------------------------------------------*/

import (
	"os"

	"github.com/charmbracelet/log"
)

var logger = log.NewWithOptions(os.Stderr, log.Options{
	ReportTimestamp: true,
	Prefix:          "borzoi",
})

// Logger returns the package logger so applications can redirect or
// restyle it.
func Logger() *log.Logger {
	return logger
}

// SetDebug raises the log level to include debug output, such as FX.25
// correlation tag matches and RS correction reports.
func SetDebug(debug bool) {
	if debug {
		logger.SetLevel(log.DebugLevel)
	} else {
		logger.SetLevel(log.InfoLevel)
	}
}
