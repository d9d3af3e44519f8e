// Package expand implements the expander: given a token list and an
// input record plus (job index, slot, total jobs), it renders the final
// argument vector, or a single shell command string in shell mode.
//
// Expansion is a pure function of (tokens, input record, job index, slot,
// total jobs); it spawns nothing and touches no disk.
package expand

import (
	"strconv"
	"strings"

	"github.com/mmstick/parallel/internal/record"
	"github.com/mmstick/parallel/internal/token"
)

// Context carries the per-job values a placeholder may reference besides
// the input record itself.
type Context struct {
	JobIndex uint64
	Slot     uint32
	JobTotal uint64
	Quote    bool
}

// Error reports a failure expanding one placeholder against one record.
type Error struct {
	Nth int
}

func (e *Error) Error() string { return record.ErrMissingColumn(e.Nth).Error() }

// Render expands tokens against rec, returning the joined result as a
// single string. The worker pool calls it once per template word, so in
// exec mode each result is one argument; nothing splits it further.
func Render(tokens []token.Token, rec record.Record, ctx Context) (string, error) {
	var b strings.Builder
	sawPlaceholder := false

	for _, t := range tokens {
		if !t.IsPlaceholder {
			b.WriteString(t.Literal)
			continue
		}
		sawPlaceholder = true

		switch t.Transform {
		case token.Slot:
			b.WriteString(strconv.FormatUint(uint64(ctx.Slot), 10))
			continue
		case token.JobIndex:
			b.WriteString(strconv.FormatUint(ctx.JobIndex, 10))
			continue
		case token.JobTotal:
			b.WriteString(strconv.FormatUint(ctx.JobTotal, 10))
			continue
		}

		field, err := fieldFor(rec, t.Nth)
		if err != nil {
			return "", err
		}

		value := applyTransform(field, t)
		if ctx.Quote {
			value = ShellQuote(value)
		}
		b.WriteString(value)
	}

	_ = sawPlaceholder // the implicit-{} rule is enforced by the tokeniser, not here.
	return b.String(), nil
}

// fieldFor resolves the field an un-numbered or numbered placeholder
// refers to. `{}` (nth == 0) renders the whole record — every list's
// selected value for this job, space-joined — not field 1; for a
// single-list product that happens to be the same string as field 1, but
// for a multi-list product field 1 alone would silently drop every other
// list's value from the command.
func fieldFor(rec record.Record, nth int) (string, error) {
	if nth == 0 {
		return rec.Whole(), nil
	}
	v, err := rec.Field(nth)
	if err != nil {
		return "", &Error{Nth: nth}
	}
	return v, nil
}

func applyTransform(input string, t token.Token) string {
	switch t.Transform {
	case token.Raw:
		return input
	case token.StripExt:
		return stripExt(input)
	case token.StripSuffix:
		return stripSuffix(input, t.Suffix)
	case token.Basename:
		return basename(input)
	case token.Dirname:
		return dirname(input)
	case token.BasenameStripExt:
		return stripExt(basename(input))
	case token.BasenameStripSuffix:
		return stripSuffix(basename(input), t.Suffix)
	default:
		return input
	}
}

// basename splits on the platform path separator; if the input has no
// separator, basename is the input itself.
func basename(s string) string {
	if i := strings.LastIndexByte(s, '/'); i >= 0 {
		return s[i+1:]
	}
	return s
}

// dirname is the complement of basename; empty string if there is no
// separator.
func dirname(s string) string {
	if i := strings.LastIndexByte(s, '/'); i >= 0 {
		return s[:i]
	}
	return ""
}

// stripExt strips the shortest substring starting from the last '.' in the
// basename only. "a.b/c" has no dot in its basename and is unchanged.
func stripExt(s string) string {
	base := basename(s)
	dir := dirname(s)
	if i := strings.LastIndexByte(base, '.'); i > 0 {
		base = base[:i]
	}
	if dir == "" {
		return base
	}
	return dir + "/" + base
}

// stripSuffix removes suffix literally, case-sensitively, if present.
func stripSuffix(s, suffix string) string {
	if suffix != "" && strings.HasSuffix(s, suffix) {
		return s[:len(s)-len(suffix)]
	}
	return s
}

// ShellQuote wraps a field in single quotes, preserving it verbatim and
// backslash-escaping any embedded single quote (POSIX-shell quoting
// rules).
func ShellQuote(s string) string {
	var b strings.Builder
	b.WriteByte('\'')
	for _, r := range s {
		if r == '\'' {
			b.WriteString(`'\''`)
		} else {
			b.WriteRune(r)
		}
	}
	b.WriteByte('\'')
	return b.String()
}
