// Package log provides colored console logging and traffic logging
// for sockprobe.
package log

import (
	"io"
	"os"

	"github.com/fatih/color"
)

var red = color.New(color.FgRed).FprintfFunc()
var blue = color.New(color.FgBlue).FprintfFunc()
var yellow = color.New(color.FgYellow).FprintfFunc()

// Logger writes progress messages to stderr. Verbose messages are only
// printed if the logger was created with verbose enabled.
// A nil *Logger discards everything.
type Logger struct {
	out     io.Writer
	verbose bool
}

// NewLogger returns a logger writing to stderr.
func NewLogger(verbose bool) *Logger {
	return newLogger(os.Stderr, verbose)
}

func newLogger(out io.Writer, verbose bool) *Logger {
	return &Logger{out: out, verbose: verbose}
}

// ErrorMsg prints an error message in red color.
func (l *Logger) ErrorMsg(format string, a ...interface{}) {
	if l == nil {
		return
	}
	red(l.out, "[!] Error: "+format, a...)
}

// InfoMsg prints an informational message in blue color.
func (l *Logger) InfoMsg(format string, a ...interface{}) {
	if l == nil {
		return
	}
	blue(l.out, "[+] "+format, a...)
}

// VerboseMsg prints a debug message in yellow color if verbose logging is on.
// A newline is appended.
func (l *Logger) VerboseMsg(format string, a ...interface{}) {
	if l == nil || !l.verbose {
		return
	}
	yellow(l.out, "[v] "+format+"\n", a...)
}

// Verbose reports whether verbose messages are printed.
func (l *Logger) Verbose() bool {
	return l != nil && l.verbose
}
