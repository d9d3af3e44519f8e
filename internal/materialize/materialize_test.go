package materialize

import (
	"bufio"
	"os"
	"path/filepath"
	"testing"

	"github.com/mmstick/parallel/internal/inputs"
	"github.com/mmstick/parallel/internal/permute"
	"github.com/mmstick/parallel/internal/record"
)

func TestWriteProducesOneLinePerPermutation(t *testing.T) {
	lists := []inputs.List{{"a", "b"}, {"1", "2"}}
	perm, err := permute.New([]int{len(lists[0]), len(lists[1])})
	if err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "unprocessed")
	n, err := Write(path, perm, lists)
	if err != nil {
		t.Fatal(err)
	}
	if n != 4 {
		t.Fatalf("got %d want 4", n)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	want := []record.Record{
		{"a", "1"}, {"a", "2"}, {"b", "1"}, {"b", "2"},
	}
	scanner := bufio.NewScanner(f)
	var i int
	for scanner.Scan() {
		got := record.Decode(scanner.Text())
		if len(got) != 2 || got[0] != want[i][0] || got[1] != want[i][1] {
			t.Fatalf("line %d: got %+v want %+v", i, got, want[i])
		}
		i++
	}
	if i != 4 {
		t.Fatalf("got %d lines want 4", i)
	}
}
