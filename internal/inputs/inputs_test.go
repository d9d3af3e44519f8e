package inputs

import (
	"strings"
	"testing"
)

func TestCollectCartesian(t *testing.T) {
	lists, err := Collect([]Section{
		{Mode: ModeArgs, Args: []string{"1", "2", "3"}},
		{Mode: ModeArgs, Args: []string{"A", "B"}},
	}, nil, false, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(lists) != 2 || len(lists[0]) != 3 || len(lists[1]) != 2 {
		t.Fatalf("got %+v", lists)
	}
}

func TestCollectZipTruncates(t *testing.T) {
	lists, err := Collect([]Section{
		{Mode: ModeArgs, Args: []string{"a", "b", "c"}},
		{Mode: ModeArgsZip, Args: []string{"1", "2"}},
	}, nil, false, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(lists) != 1 {
		t.Fatalf("zip must not add a list, got %+v", lists)
	}
	want := List{"a 1", "b 2"}
	if len(lists[0]) != len(want) {
		t.Fatalf("got %+v want %+v", lists[0], want)
	}
	for i := range want {
		if lists[0][i] != want[i] {
			t.Fatalf("got %+v want %+v", lists[0], want)
		}
	}
}

func TestCollectStdinWhenNoSections(t *testing.T) {
	lists, err := Collect(nil, strings.NewReader("1\n2\n3\n"), true, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(lists) != 1 || len(lists[0]) != 3 {
		t.Fatalf("got %+v", lists)
	}
}

func TestCollectRejectsEmbeddedSeparator(t *testing.T) {
	_, err := Collect([]Section{
		{Mode: ModeArgs, Args: []string{"bad\x1farg"}},
	}, nil, false, Options{})
	// A raw argument holding the unit separator cannot be encoded as an
	// input record, so the collector rejects it before materialisation.
	if err == nil {
		t.Fatalf("collector should reject an argument with an embedded unit separator")
	}
}
