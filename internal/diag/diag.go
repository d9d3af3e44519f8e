// Package diag centralises the engine's stderr diagnostics: spawn
// announcements under -v, warnings from non-fatal error kinds, and fatal
// error reporting, coloured the way ninja-go's status printer colours its
// build progress lines, and automatically monochrome when stdout is not a
// terminal (github.com/fatih/color makes this check on stdout, not stderr).
package diag

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
)

// Logger writes coloured diagnostics to a single writer, normally os.Stderr.
type Logger struct {
	w       io.Writer
	verbose bool

	info  *color.Color
	warn  *color.Color
	fail  *color.Color
	spawn *color.Color
}

// New builds a Logger. verbose gates Spawn() lines; Warn/Error always print.
func New(w io.Writer, verbose bool) *Logger {
	return &Logger{
		w:       w,
		verbose: verbose,
		info:    color.New(color.FgCyan),
		warn:    color.New(color.FgYellow),
		fail:    color.New(color.FgRed, color.Bold),
		spawn:   color.New(color.FgBlue),
	}
}

// Spawn announces a job about to run, when -v is set.
func (l *Logger) Spawn(index uint64, slot uint32, cmd string) {
	if l == nil || !l.verbose {
		return
	}
	l.spawn.Fprintf(l.w, "[%d:%d] %s\n", index, slot, cmd)
}

// Info prints an informational line unconditionally.
func (l *Logger) Info(format string, args ...any) {
	if l == nil {
		return
	}
	l.info.Fprintf(l.w, format+"\n", args...)
}

// Warn prints a non-fatal diagnostic, e.g. an AdmissionError or a
// per-job ExpansionError/SpawnError that was routed as an output record.
func (l *Logger) Warn(format string, args ...any) {
	if l == nil {
		return
	}
	l.warn.Fprintf(l.w, "parallel: warning: "+format+"\n", args...)
}

// Error prints a fatal diagnostic before the engine exits.
func (l *Logger) Error(format string, args ...any) {
	if l == nil {
		fmt.Fprintf(os.Stderr, "parallel: "+format+"\n", args...)
		return
	}
	l.fail.Fprintf(l.w, "parallel: "+format+"\n", args...)
}
