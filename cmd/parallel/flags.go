package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"git.sr.ht/~sircmpwn/getopt"
	"github.com/mmstick/parallel/internal/config"
	"github.com/mmstick/parallel/internal/errs"
	"github.com/mmstick/parallel/internal/inputs"
)

// shortOptstring lists every single-character flag this engine recognises,
// in the getopt(3) convention: a trailing ':' means the flag takes a value.
const shortOptstring = "j:unpqsv"

// longFlag describes one `--name` option that git.sr.ht/~sircmpwn/getopt
// cannot parse on its own, since it only understands POSIX short options
// (the same limitation ninja-go/ninja.go works around — see its commented-
// out kLongOptions table).
type longFlag struct {
	name     string
	hasValue bool
}

var longFlags = []longFlag{
	{"delay", true},
	{"timeout", true},
	{"memfree", true},
	{"maxload", true},
	{"tmpdir", true},
	{"joblog", true},
	{"stats-addr", true},
	{"resume", false},
	{"dry-run", false},
	{"num-cpu-cores", false},
	{"ungroup", false},
	{"no-shell", false},
	{"pipe", false},
	{"quote", false},
	{"shellquote", false},
	{"silent", false},
	{"quiet", false},
	{"verbose", false},
	{"jobs", true},
}

func matchLongFlag(token string) (name, value string, takesValue, ok bool) {
	if !strings.HasPrefix(token, "--") {
		return "", "", false, false
	}
	body := token[2:]
	name = body
	if eq := strings.IndexByte(body, '='); eq >= 0 {
		name = body[:eq]
		value = body[eq+1:]
	}
	for _, lf := range longFlags {
		if lf.name == name {
			return name, value, lf.hasValue, true
		}
	}
	return "", "", false, false
}

func isModeMarker(tok string) bool {
	switch tok {
	case ":::", ":::+", "::::", "::::+":
		return true
	default:
		return false
	}
}

// ParseArgs turns argv (without the program name) into a Config, following
// the positional layout [OPTIONS] [COMMAND] [MODE ARGS]... CLI parsing
// itself stays a thin, external-collaborator surface; this is what
// produces the configuration record the engine actually consumes.
func ParseArgs(args []string) (*config.Config, error) {
	cfg := &config.Config{MaxLoad: -1}

	// Phase 1: pull every recognised long option out of the options
	// prefix — the run of tokens up to the first one that is neither a
	// long flag, a long-flag value, nor parseable by getopt as a short
	// option. What's left goes to getopt for the short-option alphabet.
	var remainder []string
	i := 0
	for ; i < len(args); i++ {
		tok := args[i]
		if isModeMarker(tok) {
			break
		}
		if name, value, takesValue, ok := matchLongFlag(tok); ok {
			if takesValue && value == "" {
				i++
				if i >= len(args) {
					return nil, errs.New(errs.Config, "--"+name, fmt.Errorf("missing value"))
				}
				value = args[i]
			}
			if err := applyLongFlag(cfg, name, value); err != nil {
				return nil, err
			}
			continue
		}
		if strings.HasPrefix(tok, "-") && tok != "-" && !strings.HasPrefix(tok, "--") {
			remainder = append(remainder, tok)
			// -j takes a value; if it wasn't attached ("-j4") it is the
			// next token ("-j" "4"), which getopt also needs to see.
			if tok == "-j" && i+1 < len(args) {
				i++
				remainder = append(remainder, args[i])
			}
			continue
		}
		break
	}
	commandAndModes := args[i:]

	if len(remainder) > 0 {
		opts, _, err := getopt.Getopts(append([]string{""}, remainder...), shortOptstring)
		if err != nil {
			return nil, errs.New(errs.Config, "getopt", err)
		}
		for _, o := range opts {
			if err := applyShortFlag(cfg, o.Option, o.Value); err != nil {
				return nil, err
			}
		}
	}

	argv, sections, err := splitCommandAndModes(commandAndModes)
	if err != nil {
		return nil, err
	}
	cfg.Argv = argv
	cfg.Sections = sections
	return cfg, nil
}

func applyLongFlag(cfg *config.Config, name, value string) error {
	switch name {
	case "delay":
		d, err := parseSeconds(value)
		if err != nil {
			return errs.New(errs.Config, "--delay", err)
		}
		cfg.Delay = d
	case "timeout":
		d, err := parseSeconds(value)
		if err != nil {
			return errs.New(errs.Config, "--timeout", err)
		}
		cfg.Timeout = d
	case "memfree":
		n, err := parseByteSize(value)
		if err != nil {
			return errs.New(errs.Config, "--memfree", err)
		}
		cfg.MemfreeBytes = n
	case "maxload":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return errs.New(errs.Config, "--maxload", err)
		}
		cfg.MaxLoad = f
	case "tmpdir":
		cfg.TmpDir = value
	case "joblog":
		cfg.JobLogPath = value
	case "stats-addr":
		cfg.StatsAddr = value
	case "resume":
		cfg.Resume = true
	case "dry-run":
		cfg.DryRun = true
	case "num-cpu-cores":
		cfg.NumCPUCores = true
	case "ungroup":
		cfg.Ungroup = true
	case "no-shell":
		cfg.NoShell = true
	case "pipe":
		cfg.Pipe = true
	case "quote", "shellquote":
		cfg.Quote = true
	case "silent", "quiet":
		cfg.Silent = true
	case "verbose":
		cfg.Verbose = true
	case "jobs":
		n, err := strconv.Atoi(value)
		if err != nil {
			return errs.New(errs.Config, "--jobs", err)
		}
		cfg.Jobs = n
	}
	return nil
}

func applyShortFlag(cfg *config.Config, opt rune, value string) error {
	switch opt {
	case 'j':
		n, err := strconv.Atoi(value)
		if err != nil {
			return errs.New(errs.Config, "-j", err)
		}
		cfg.Jobs = n
	case 'u':
		cfg.Ungroup = true
	case 'n':
		cfg.NoShell = true
	case 'p':
		cfg.Pipe = true
	case 'q':
		cfg.Quote = true
	case 's':
		cfg.Silent = true
	case 'v':
		cfg.Verbose = true
	}
	return nil
}

// splitCommandAndModes separates the leading COMMAND words (if any) from
// the trailing `MODE ARGS...` groups. If the very first token is itself a
// mode marker, no COMMAND was given.
func splitCommandAndModes(toks []string) (argv []string, sections []inputs.Section, err error) {
	i := 0
	for i < len(toks) && !isModeMarker(toks[i]) {
		argv = append(argv, toks[i])
		i++
	}
	for i < len(toks) {
		marker := toks[i]
		i++
		var mode inputs.Mode
		switch marker {
		case ":::":
			mode = inputs.ModeArgs
		case ":::+":
			mode = inputs.ModeArgsZip
		case "::::":
			mode = inputs.ModeFiles
		case "::::+":
			mode = inputs.ModeFilesZip
		}
		start := i
		for i < len(toks) && !isModeMarker(toks[i]) {
			i++
		}
		sections = append(sections, inputs.Section{Mode: mode, Args: append([]string(nil), toks[start:i]...)})
	}
	return argv, sections, nil
}

func parseSeconds(s string) (time.Duration, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	return time.Duration(f * float64(time.Second)), nil
}

func parseByteSize(s string) (uint64, error) {
	if s == "" {
		return 0, nil
	}
	mult := uint64(1)
	last := s[len(s)-1]
	switch last {
	case 'k', 'K':
		mult = 1 << 10
		s = s[:len(s)-1]
	case 'm', 'M':
		mult = 1 << 20
		s = s[:len(s)-1]
	case 'g', 'G':
		mult = 1 << 30
		s = s[:len(s)-1]
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, err
	}
	return n * mult, nil
}
