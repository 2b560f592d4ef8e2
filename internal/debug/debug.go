// Package debug provides the stderr diagnostics logger.
//
// Stdout carries the single JSON result line of every nhub command, so all
// diagnostics go to stderr. Debug records are emitted only when NHUB_DEBUG is
// set or --verbose was passed; warnings and errors are always written.
package debug

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
)

var (
	enabled     = os.Getenv("NHUB_DEBUG") != ""
	verboseMode = false
	output      io.Writer = os.Stderr
	logMutex    sync.Mutex
)

func Enabled() bool {
	logMutex.Lock()
	defer logMutex.Unlock()
	return enabled || verboseMode
}

// SetVerbose enables verbose/debug output
func SetVerbose(verbose bool) {
	logMutex.Lock()
	defer logMutex.Unlock()
	verboseMode = verbose
}

// SetOutput redirects log output and returns a func restoring the previous writer.
func SetOutput(w io.Writer) func() {
	logMutex.Lock()
	defer logMutex.Unlock()
	prev := output
	output = w
	return func() {
		logMutex.Lock()
		defer logMutex.Unlock()
		output = prev
	}
}

// Logger returns a text logger on the current output at the current level.
func Logger() *slog.Logger {
	logMutex.Lock()
	defer logMutex.Unlock()

	level := slog.LevelWarn
	if enabled || verboseMode {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(output, &slog.HandlerOptions{Level: level}))
}

// Logf writes a printf-style debug record.
func Logf(format string, args ...interface{}) {
	Logger().Debug(fmt.Sprintf(format, args...))
}
