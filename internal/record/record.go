// Package record defines the on-disk representation of one permutation of
// input lists: an input record is the fields of a single job joined by the
// ASCII unit separator, as written by the argument materialiser and
// read back by the dispatcher.
package record

import (
	"errors"
	"strings"
)

// Separator is the ASCII unit separator (0x1F) used to join fields of a
// single input record on disk. Raw input strings may contain neither this
// byte nor '\n' once materialised.
const Separator = '\x1F'

var (
	// ErrEmbeddedSeparator is returned when a raw argument contains the
	// unit separator byte and therefore cannot be safely encoded.
	ErrEmbeddedSeparator = errors.New("record: input contains embedded unit separator")
	// ErrEmbeddedNewline is returned when a raw argument contains a
	// newline, which would corrupt the line-oriented unprocessed-inputs
	// file.
	ErrEmbeddedNewline = errors.New("record: input contains embedded newline")
)

// Record is one permutation: the selected string from each input list, in
// list order.
type Record []string

// Validate checks that every field is safe to encode as a single line.
func (r Record) Validate() error {
	for _, f := range r {
		if strings.IndexByte(f, Separator) >= 0 {
			return ErrEmbeddedSeparator
		}
		if strings.IndexByte(f, '\n') >= 0 {
			return ErrEmbeddedNewline
		}
	}
	return nil
}

// Encode joins the record's fields with the unit separator, ready to be
// written as a single line of the unprocessed-inputs file.
func (r Record) Encode() string {
	return strings.Join(r, string(Separator))
}

// Decode splits a previously encoded line back into its fields.
func Decode(line string) Record {
	if line == "" {
		return Record{""}
	}
	return Record(strings.Split(line, string(Separator)))
}

// Field returns the 1-based Nth field, or an error if out of range.
func (r Record) Field(n int) (string, error) {
	if n < 1 || n > len(r) {
		return "", ErrMissingColumn(n)
	}
	return r[n-1], nil
}

// Whole joins every field of the record with a single space, the
// rendering an un-numbered placeholder produces for a multi-list
// permutation. For a single-field record this is the same string as
// Field(1).
func (r Record) Whole() string {
	return strings.Join(r, " ")
}

// ErrMissingColumn reports a reference to a column that does not exist in
// the current input record.
type ErrMissingColumn int

func (e ErrMissingColumn) Error() string {
	return "record: missing column " + itoa(int(e))
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
