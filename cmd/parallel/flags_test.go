package main

import (
	"testing"

	"github.com/mmstick/parallel/internal/inputs"
)

func TestParseArgsShortAndLongFlags(t *testing.T) {
	cfg, err := ParseArgs([]string{"-j", "4", "--dry-run", "--ungroup", "echo", "{}", ":::", "a", "b"})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Jobs != 4 {
		t.Fatalf("got Jobs=%d", cfg.Jobs)
	}
	if !cfg.DryRun || !cfg.Ungroup {
		t.Fatalf("got DryRun=%v Ungroup=%v", cfg.DryRun, cfg.Ungroup)
	}
	if len(cfg.Argv) != 2 || cfg.Argv[0] != "echo" || cfg.Argv[1] != "{}" {
		t.Fatalf("got Argv=%v", cfg.Argv)
	}
	if len(cfg.Sections) != 1 || cfg.Sections[0].Mode != inputs.ModeArgs {
		t.Fatalf("got Sections=%+v", cfg.Sections)
	}
	if len(cfg.Sections[0].Args) != 2 || cfg.Sections[0].Args[0] != "a" {
		t.Fatalf("got %+v", cfg.Sections[0].Args)
	}
}

func TestParseArgsNoCommandIsEntireLineMode(t *testing.T) {
	cfg, err := ParseArgs([]string{":::", "echo hi", "echo bye"})
	if err != nil {
		t.Fatal(err)
	}
	if len(cfg.Argv) != 0 {
		t.Fatalf("expected no COMMAND, got %v", cfg.Argv)
	}
	if !cfg.EntireLineIsCommand() {
		t.Fatalf("expected EntireLineIsCommand true")
	}
}

func TestParseArgsLongFlagWithEquals(t *testing.T) {
	cfg, err := ParseArgs([]string{"--delay=0.5", "--tmpdir=/tmp/x", "echo"})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Delay.Seconds() != 0.5 {
		t.Fatalf("got Delay=%v", cfg.Delay)
	}
	if cfg.TmpDir != "/tmp/x" {
		t.Fatalf("got TmpDir=%q", cfg.TmpDir)
	}
}

func TestParseByteSizeSuffixes(t *testing.T) {
	cases := map[string]uint64{
		"1024":  1024,
		"1k":    1 << 10,
		"2M":    2 << 20,
		"1G":    1 << 30,
		"":      0,
	}
	for in, want := range cases {
		got, err := parseByteSize(in)
		if err != nil {
			t.Fatalf("%q: %v", in, err)
		}
		if got != want {
			t.Fatalf("%q: got %d want %d", in, got, want)
		}
	}
}

func TestSplitCommandAndModesHandlesZipMarkers(t *testing.T) {
	argv, sections, err := splitCommandAndModes([]string{"echo", "{}", ":::", "a", ":::+", "b"})
	if err != nil {
		t.Fatal(err)
	}
	if len(argv) != 2 || argv[0] != "echo" {
		t.Fatalf("got argv=%v", argv)
	}
	if len(sections) != 2 || sections[0].Mode != inputs.ModeArgs || sections[1].Mode != inputs.ModeArgsZip {
		t.Fatalf("got sections=%+v", sections)
	}
}
