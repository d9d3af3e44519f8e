// Package engine wires together the argument pipeline, the execution
// engine, and the cross-cutting admission/signal/temp lifecycle
// components into one invocation.
package engine

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"time"

	"github.com/mmstick/parallel/internal/admission"
	"github.com/mmstick/parallel/internal/config"
	"github.com/mmstick/parallel/internal/diag"
	"github.com/mmstick/parallel/internal/dispatch"
	"github.com/mmstick/parallel/internal/errs"
	"github.com/mmstick/parallel/internal/inputs"
	"github.com/mmstick/parallel/internal/joblog"
	"github.com/mmstick/parallel/internal/ledger"
	"github.com/mmstick/parallel/internal/materialize"
	"github.com/mmstick/parallel/internal/merge"
	"github.com/mmstick/parallel/internal/permute"
	"github.com/mmstick/parallel/internal/stats"
	"github.com/mmstick/parallel/internal/supervisor"
	"github.com/mmstick/parallel/internal/tempspace"
	"github.com/mmstick/parallel/internal/token"
	"github.com/mmstick/parallel/internal/worker"
)

// Run executes one full invocation of the engine and returns the process
// exit code and a fatal error, if any. A fatal error always
// implies an exit code of 2 (ConfigError/InputError) or 1 (IOError); the
// returned exit code already reflects that — callers just os.Exit(code).
func Run(cfg *config.Config) (int, error) {
	base := cfg.TmpDir
	if err := tempspace.SweepStale(base); err != nil {
		// Best-effort crash recovery; never fatal to this run.
		_ = err
	}

	space, err := tempspace.New(base)
	if err != nil {
		return 1, errs.New(errs.IO, "tempspace", err)
	}
	defer space.Cleanup()
	_ = space.StartWatchdog(10 * time.Minute)

	log := diag.New(os.Stderr, cfg.Verbose)

	stdinIsPipe := stdinIsAPipe()
	lists, err := inputs.Collect(cfg.Sections, os.Stdin, stdinIsPipe, inputs.Options{AllowInvalidUTF8: cfg.AllowInvalidUTF8})
	if err != nil {
		log.Error("%v", err)
		return 2, err
	}
	if len(lists) == 0 {
		log.Error("no input lists given")
		return 2, errs.New(errs.Input, "collect", os.ErrInvalid)
	}

	lengths := make([]int, len(lists))
	for i, l := range lists {
		lengths[i] = len(l)
	}
	perm, err := permute.New(lengths)
	if err != nil {
		log.Error("%v", err)
		return 2, errs.New(errs.Config, "permute", err)
	}

	unprocessedPath := space.UnprocessedPath()
	space.Track(unprocessedPath)
	total, err := materialize.Write(unprocessedPath, perm, lists)
	if err != nil {
		log.Error("%v", err)
		return exitForFatal(err), err
	}

	words := tokenizeArgv(cfg)

	jobs := cfg.EffectiveJobs(runtime.NumCPU())
	admissionCtl := admission.New(cfg.Delay, cfg.MemfreeBytes, cfg.MaxLoad)

	var lg *ledger.Ledger
	if cfg.Resume || cfg.JobLogPath != "" {
		lpath := filepath.Join(space.Dir, "resume.sqlite")
		lg, err = ledger.Open(lpath)
		if err != nil {
			log.Warn("resume ledger unavailable: %v", err)
			lg = nil
		} else {
			defer lg.Close()
		}
	}

	var resumer dispatch.Resumer
	if cfg.Resume && lg != nil {
		done, err := lg.Completed()
		if err != nil {
			log.Warn("resume ledger read: %v", err)
		} else {
			resumer = resumeSet(done)
		}
	}

	var jl *joblog.Writer
	if cfg.JobLogPath != "" {
		jl, err = joblog.Create(cfg.JobLogPath)
		if err != nil {
			log.Warn("joblog unavailable: %v", err)
			jl = nil
		} else {
			defer jl.Close()
		}
	}

	backlogLimit := 4 * jobs
	merger := merge.New(cfg.Ungroup, backlogLimit, space, lg, os.Stdout, os.Stderr)

	stopStats := make(chan struct{})
	if cfg.StatsAddr != "" {
		go stats.Serve(cfg.StatsAddr, stopStats)
		defer close(stopStats)
	}

	super := supervisor.New(nil)
	superStop := make(chan struct{})
	go super.Watch(superStop)
	defer close(superStop)

	hostname, _ := os.Hostname()
	pool := &worker.Pool{
		Words:               words,
		ShellBin:            resolveShell(),
		NoShell:             cfg.NoShell,
		Pipe:                cfg.Pipe,
		Quote:               cfg.Quote,
		Silent:              cfg.Silent,
		Timeout:             cfg.Timeout,
		JobTotal:            total,
		DryRun:              cfg.DryRun,
		Admission:           admissionCtl,
		Supervisor:          super,
		Space:               space,
		Merger:              merger,
		Log:                 log,
		JobLog:              jl,
		Hostname:            hostname,
		EntireLineIsCommand: cfg.EntireLineIsCommand(),
	}

	dispatchCh := make(chan dispatch.Job, jobs)
	dispatchDone := make(chan error, 1)
	go func() {
		_, derr := dispatch.Run(unprocessedPath, dispatchCh, super.Done(), resumer)
		dispatchDone <- derr
	}()

	pool.Run(dispatchCh, jobs)
	merger.Drain()

	if derr := <-dispatchDone; derr != nil {
		log.Error("%v", derr)
		return exitForFatal(derr), derr
	}

	if super.Aborted() {
		return 130, nil
	}
	if super.Cancelled() {
		return 130, nil
	}
	return merger.ExitCode(), nil
}

func exitForFatal(err error) int {
	if e, ok := err.(*errs.Error); ok {
		return e.Kind.ExitCode()
	}
	return 1
}

// tokenizeArgv tokenises the command template; if no COMMAND was given,
// the template has no words at all and the worker pool treats each input
// record as the command itself. The implicit-{} rule is evaluated once
// across the whole template, not once per word.
func tokenizeArgv(cfg *config.Config) [][]token.Token {
	if cfg.EntireLineIsCommand() {
		return nil
	}
	return token.TokenizeWords(cfg.Argv)
}

// resolveShell consults $SHELL when shell mode is on and the platform is
// Unix, falling back to dash if found on PATH, else sh.
func resolveShell() string {
	if runtime.GOOS == "windows" {
		return "cmd"
	}
	if sh := os.Getenv("SHELL"); sh != "" {
		return sh
	}
	if path, err := exec.LookPath("dash"); err == nil {
		return path
	}
	return "/bin/sh"
}

// stdinIsAPipe reports whether stdin is redirected from a file or pipe
// rather than attached to an interactive terminal.
func stdinIsAPipe() bool {
	fi, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice == 0
}

type resumeSet map[uint64]bool

func (r resumeSet) Done(index uint64) bool { return r[index] }
