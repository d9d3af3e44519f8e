package worker

import (
	"bytes"
	"testing"

	"github.com/mmstick/parallel/internal/admission"
	"github.com/mmstick/parallel/internal/dispatch"
	"github.com/mmstick/parallel/internal/merge"
	"github.com/mmstick/parallel/internal/record"
	"github.com/mmstick/parallel/internal/supervisor"
	"github.com/mmstick/parallel/internal/token"
)

func TestRunExecutesEntireLineAsCommand(t *testing.T) {
	var stdout, stderr bytes.Buffer
	m := merge.New(true, 1, nil, nil, &stdout, &stderr)
	p := &Pool{
		ShellBin:            "/bin/sh",
		JobTotal:            2,
		Admission:           admission.New(0, 0, -1),
		Supervisor:          supervisor.New(nil),
		Merger:              m,
		EntireLineIsCommand: true,
	}

	in := make(chan dispatch.Job, 2)
	in <- dispatch.Job{Index: 1, Input: record.Record{"true"}}
	in <- dispatch.Job{Index: 2, Input: record.Record{"false"}}
	close(in)

	p.Run(in, 2)

	if got := m.ExitCode(); got == 0 {
		t.Fatalf("expected a non-zero aggregate exit code from the failing job")
	}
}

func TestExpandRendersTemplateWordsAgainstInput(t *testing.T) {
	p := &Pool{
		Words:    token.TokenizeWords([]string{"echo", "prefix-{}"}),
		JobTotal: 1,
	}
	job := dispatch.Job{Index: 1, Input: record.Record{"hello"}}

	words, cmdLine, err := p.expand(job, 1)
	if err != nil {
		t.Fatal(err)
	}
	// "prefix-{}" already carries a placeholder, so no implicit one is
	// appended anywhere else in the command.
	if len(words) != 2 || words[0] != "echo" || words[1] != "prefix-hello" {
		t.Fatalf("got %v", words)
	}
	if cmdLine != "echo prefix-hello" {
		t.Fatalf("got %q", cmdLine)
	}
}

func TestExpandAppliesImplicitPlaceholderOnceAcrossWholeCommand(t *testing.T) {
	p := &Pool{
		Words:    token.TokenizeWords([]string{"echo"}),
		JobTotal: 1,
	}
	job := dispatch.Job{Index: 1, Input: record.Record{"hello"}}

	words, cmdLine, err := p.expand(job, 1)
	if err != nil {
		t.Fatal(err)
	}
	// No word of the command carries a placeholder, so exactly one
	// implicit placeholder is appended as its own word, not duplicated
	// into "echo" itself.
	if len(words) != 2 || words[0] != "echo" || words[1] != "hello" {
		t.Fatalf("got %v", words)
	}
	if cmdLine != "echo hello" {
		t.Fatalf("got %q", cmdLine)
	}
}

func TestExpandEntireLineJoinsInputFields(t *testing.T) {
	p := &Pool{EntireLineIsCommand: true}
	job := dispatch.Job{Index: 1, Input: record.Record{"echo", "hi"}}

	words, cmdLine, err := p.expand(job, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(words) != 1 || words[0] != "echo hi" {
		t.Fatalf("got %v", words)
	}
	if cmdLine != "echo hi" {
		t.Fatalf("got %q", cmdLine)
	}
}
