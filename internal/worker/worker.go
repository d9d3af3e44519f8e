// Package worker implements the worker pool: a fixed number of
// slots, each a loop that pulls a job, gates it through admission
// control, expands the template, spawns the child, captures its output,
// applies the per-job timeout, and reports completion to the merger.
package worker

import (
	"context"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/mmstick/parallel/internal/admission"
	"github.com/mmstick/parallel/internal/diag"
	"github.com/mmstick/parallel/internal/dispatch"
	"github.com/mmstick/parallel/internal/expand"
	"github.com/mmstick/parallel/internal/joblog"
	"github.com/mmstick/parallel/internal/ledger"
	"github.com/mmstick/parallel/internal/merge"
	"github.com/mmstick/parallel/internal/stats"
	"github.com/mmstick/parallel/internal/supervisor"
	"github.com/mmstick/parallel/internal/tempspace"
	"github.com/mmstick/parallel/internal/token"
)

// Pool holds everything shared read-only across workers: tokens are
// constructed once by the tokeniser and never mutated, so no locking is
// needed to share them.
type Pool struct {
	Words    [][]token.Token // one token list per template word
	ShellBin string          // resolved $SHELL / dash / sh, used unless NoShell
	NoShell  bool
	Pipe     bool
	Quote    bool
	Silent   bool // drop child stdout
	Timeout  time.Duration
	JobTotal uint64
	DryRun   bool

	Admission  *admission.Controller
	Supervisor *supervisor.Supervisor
	Space      *tempspace.Space
	Merger     *merge.Merger
	Log        *diag.Logger
	JobLog     *joblog.Writer // nil disables --joblog
	Hostname   string

	// Entire line is the command itself (CLI grammar: no COMMAND given).
	EntireLineIsCommand bool
}

// Run starts P worker goroutines, each with a stable 1-based slot id,
// consuming jobs from in until it is closed or cancellation is observed.
// It blocks until every worker has returned.
func (p *Pool) Run(in <-chan dispatch.Job, workers int) {
	done := make(chan struct{}, workers)
	for slot := 1; slot <= workers; slot++ {
		go func(slot uint32) {
			p.runOne(slot, in)
			done <- struct{}{}
		}(uint32(slot))
	}
	for i := 0; i < workers; i++ {
		<-done
	}
}

func (p *Pool) runOne(slot uint32, in <-chan dispatch.Job) {
	for {
		var job dispatch.Job
		var ok bool
		select {
		case job, ok = <-in:
		case <-p.Supervisor.Done():
			return
		}
		if !ok {
			return
		}
		if p.Supervisor.Cancelled() {
			return
		}
		p.runJob(slot, job)
	}
}

func (p *Pool) runJob(slot uint32, job dispatch.Job) {
	stats.Dispatched.Add(1)
	stats.Active.Add(1)
	defer stats.Active.Add(-1)

	if err := p.Admission.Gate(); err != nil {
		if p.Log != nil {
			p.Log.Warn("%v", err)
		}
		// Non-fatal: the job is dispatched anyway.
	}

	words, cmdLine, expandErr := p.expand(job, slot)
	started := time.Now()

	if expandErr != nil {
		p.publish(job, started, 255, false, expandErr.Error())
		return
	}

	if p.Log != nil {
		p.Log.Spawn(job.Index, slot, cmdLine)
	}
	if p.DryRun {
		p.publishDryRun(job, started, cmdLine)
		return
	}

	cmd := p.buildCmd(words)
	p.run(slot, job, started, cmd, cmdLine)
}

// expand renders every template word against job's input record, and
// also returns the flattened command line used for -v/--dry-run display.
func (p *Pool) expand(job dispatch.Job, slot uint32) (words []string, cmdLine string, err error) {
	if p.EntireLineIsCommand {
		line := strings.Join([]string(job.Input), " ")
		return []string{line}, line, nil
	}

	ctx := expand.Context{JobIndex: job.Index, Slot: slot, JobTotal: p.JobTotal, Quote: p.Quote}
	words = make([]string, len(p.Words))
	for i, toks := range p.Words {
		w, err := expand.Render(toks, job.Input, ctx)
		if err != nil {
			return nil, "", err
		}
		words[i] = w
	}
	return words, strings.Join(words, " "), nil
}

func (p *Pool) buildCmd(words []string) *exec.Cmd {
	if p.NoShell && !p.EntireLineIsCommand {
		return exec.Command(words[0], words[1:]...)
	}
	shellCmd := strings.Join(words, " ")
	bin := p.ShellBin
	if bin == "" {
		bin = "/bin/sh"
	}
	return exec.Command(bin, "-c", shellCmd)
}

func (p *Pool) run(slot uint32, job dispatch.Job, started time.Time, cmd *exec.Cmd, cmdLine string) {
	var stdoutPath, stderrPath string
	var stdoutFile, stderrFile *os.File

	if p.Merger.Ungrouped() {
		if p.Silent {
			cmd.Stdout = io.Discard
		} else {
			cmd.Stdout = os.Stdout
		}
		cmd.Stderr = os.Stderr
	} else {
		stdoutPath, stderrPath = p.Space.JobOutputPaths(job.Index)
		var err error
		stdoutFile, err = os.Create(stdoutPath)
		if err != nil {
			p.publish(job, started, 255, false, err.Error())
			return
		}
		p.Space.Track(stdoutPath)
		stderrFile, err = os.Create(stderrPath)
		if err != nil {
			stdoutFile.Close()
			p.publish(job, started, 255, false, err.Error())
			return
		}
		p.Space.Track(stderrPath)

		if p.Silent {
			cmd.Stdout = io.Discard
		} else {
			cmd.Stdout = stdoutFile
		}
		cmd.Stderr = stderrFile
	}

	if p.Pipe {
		cmd.Stdin = strings.NewReader(strings.Join([]string(job.Input), "\n") + "\n")
	} else {
		cmd.Stdin = nil
	}
	if err := cmd.Start(); err != nil {
		if stdoutFile != nil {
			stdoutFile.Close()
		}
		if stderrFile != nil {
			stderrFile.Close()
		}
		p.publish(job, started, 255, false, err.Error())
		return
	}
	p.Supervisor.RegisterChild(cmd.Process)
	defer p.Supervisor.UnregisterChild(cmd.Process)

	exitCode, killed := p.wait(cmd)

	if stdoutFile != nil {
		stdoutFile.Close()
	}
	if stderrFile != nil {
		stderrFile.Close()
	}

	finished := time.Now()
	c := merge.Completion{
		Index:      job.Index,
		ExitCode:   exitCode,
		Killed:     killed,
		StdoutPath: stdoutPath,
		StderrPath: stderrPath,
		InputHash:  ledger.HashInput(job.Input.Encode()),
		StartedAt:  started,
		FinishedAt: finished,
	}
	p.writeJobLog(job, started, finished, exitCode, killed, cmdLine)
	recordStats(exitCode, killed)
	p.Merger.Publish(c)
}

// recordStats updates the live --stats-addr counters; called once per
// completed job regardless of which path produced it.
func recordStats(exitCode int, killed bool) {
	if killed {
		stats.Killed.Add(1)
	}
	if exitCode == 0 {
		stats.Completed.Add(1)
	} else {
		stats.Failed.Add(1)
	}
}

func (p *Pool) writeJobLog(job dispatch.Job, started, finished time.Time, exitCode int, killed bool, cmdLine string) {
	if p.JobLog == nil {
		return
	}
	signal := 0
	if killed {
		signal = 9
	}
	_ = p.JobLog.Write(joblog.Entry{
		Seq:        job.Index,
		Host:       p.Hostname,
		StartedAt:  started,
		RuntimeSec: finished.Sub(started).Seconds(),
		ExitCode:   exitCode,
		Signal:     signal,
		Command:    cmdLine,
	})
}

// wait waits for cmd, enforcing the per-job timeout by sending SIGKILL
// (Unix) if the child outlives it.
func (p *Pool) wait(cmd *exec.Cmd) (exitCode int, killed bool) {
	if p.Timeout <= 0 {
		return waitResult(cmd.Wait())
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.Timeout)
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- cmd.Wait() }()

	select {
	case err := <-errCh:
		return waitResult(err)
	case <-ctx.Done():
		_ = cmd.Process.Kill()
		<-errCh
		return -15, true
	}
}

func waitResult(err error) (exitCode int, killed bool) {
	if err == nil {
		return 0, false
	}
	if exitErr, ok := err.(*exec.ExitError); ok {
		if ws, ok := exitErr.Sys().(interface{ Signaled() bool }); ok && ws.Signaled() {
			return exitErr.ExitCode(), true
		}
		return exitErr.ExitCode(), false
	}
	// Spawn-time failures that surface through Wait (e.g. exec format
	// errors) are reported like any other SpawnError.
	return 255, false
}

func (p *Pool) publish(job dispatch.Job, started time.Time, exitCode int, killed bool, diagMsg string) {
	var stdoutPath, stderrPath string
	if !p.Merger.Ungrouped() && diagMsg != "" {
		_, errPath := p.Space.JobOutputPaths(job.Index)
		if f, err := os.Create(errPath); err == nil {
			f.WriteString(diagMsg + "\n")
			f.Close()
			p.Space.Track(errPath)
			stderrPath = errPath
		}
	} else if diagMsg != "" && p.Log != nil {
		p.Log.Warn("job %d: %s", job.Index, diagMsg)
	}

	recordStats(exitCode, killed)
	p.Merger.Publish(merge.Completion{
		Index:      job.Index,
		ExitCode:   exitCode,
		Killed:     killed,
		StdoutPath: stdoutPath,
		StderrPath: stderrPath,
		InputHash:  ledger.HashInput(job.Input.Encode()),
		StartedAt:  started,
		FinishedAt: time.Now(),
	})
}

func (p *Pool) publishDryRun(job dispatch.Job, started time.Time, cmdLine string) {
	var stdoutPath string
	if !p.Merger.Ungrouped() {
		path, _ := p.Space.JobOutputPaths(job.Index)
		if f, err := os.Create(path); err == nil {
			f.WriteString(cmdLine + "\n")
			f.Close()
			p.Space.Track(path)
			stdoutPath = path
		}
	} else {
		os.Stdout.WriteString(cmdLine + "\n")
	}
	recordStats(0, false)
	p.Merger.Publish(merge.Completion{
		Index:      job.Index,
		ExitCode:   0,
		StdoutPath: stdoutPath,
		InputHash:  ledger.HashInput(job.Input.Encode()),
		StartedAt:  started,
		FinishedAt: time.Now(),
	})
}

