// Package joblog implements the --joblog output: a fixed-width,
// whitespace-padded job log, one line per completed job.
package joblog

import (
	"fmt"
	"io"
	"os"
	"time"
)

// Entry is one completed job's accounting line.
type Entry struct {
	Seq        uint64
	Host       string
	StartedAt  time.Time
	RuntimeSec float64
	Send       int64 // bytes fed to stdin in --pipe mode
	Receive    int64 // bytes of stdout captured
	ExitCode   int
	Signal     int
	Command    string
}

// Writer appends fixed-width entries to an underlying file.
type Writer struct {
	f *os.File
	w io.Writer
}

// Create opens (truncating) the job log at path and writes its header.
func Create(path string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	w := &Writer{f: f, w: f}
	if err := w.writeHeader(); err != nil {
		f.Close()
		return nil, err
	}
	return w, nil
}

func (w *Writer) writeHeader() error {
	_, err := fmt.Fprintf(w.w, "%-10s%-10s%-16s%-10s%-10s%-10s%-8s%-8s%s\n",
		"Seq", "Host", "Starttime", "Runtime", "Send", "Receive", "Exitval", "Signal", "Command")
	return err
}

// Write appends one entry.
func (w *Writer) Write(e Entry) error {
	_, err := fmt.Fprintf(w.w, "%-10d%-10s%-16d%-10.3f%-10d%-10d%-8d%-8d%s\n",
		e.Seq, e.Host, e.StartedAt.Unix(), e.RuntimeSec, e.Send, e.Receive, e.ExitCode, e.Signal, e.Command)
	return err
}

// Close flushes and closes the underlying file.
func (w *Writer) Close() error {
	return w.f.Close()
}
