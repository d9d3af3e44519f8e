// Package errs implements the error taxonomy: each kind
// carries the exit-code policy the engine applies when it surfaces.
package errs

import "fmt"

// Kind names one of the taxonomy's buckets.
type Kind int

const (
	Config Kind = iota
	Input
	Expansion
	Spawn
	Child
	IO
	Admission
)

func (k Kind) String() string {
	switch k {
	case Config:
		return "ConfigError"
	case Input:
		return "InputError"
	case Expansion:
		return "ExpansionError"
	case Spawn:
		return "SpawnError"
	case Child:
		return "ChildError"
	case IO:
		return "IOError"
	case Admission:
		return "AdmissionError"
	default:
		return "UnknownError"
	}
}

// Error wraps an underlying failure with the taxonomy kind that decides
// how the engine reacts to it (exit immediately, route as a per-job
// output record, or merely log).
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Fatal reports whether an error of this kind halts dispatch outright
// (ConfigError, InputError before any job runs, and IOError on the
// merger's temp-file path) rather than being routed per-job or merely
// logged.
func (k Kind) Fatal() bool {
	switch k {
	case Config, Input, IO:
		return true
	default:
		return false
	}
}

// ExitCode maps a ConfigError/InputError to the process exit code.
// Per-job kinds (Expansion, Spawn) are reported as a job's exit code
// (255), not the process exit code, and are not covered here.
func (k Kind) ExitCode() int {
	switch k {
	case Config, Input:
		return 2
	default:
		return 1
	}
}
