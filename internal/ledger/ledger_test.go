package ledger

import (
	"path/filepath"
	"testing"
	"time"
)

func TestHashInputIsDeterministic(t *testing.T) {
	h1 := HashInput("a\x1fb")
	h2 := HashInput("a\x1fb")
	h3 := HashInput("a\x1fc")
	if h1 != h2 {
		t.Fatalf("hash of identical input must match")
	}
	if h1 == h3 {
		t.Fatalf("hash of different input must differ")
	}
}

func TestRecordAndCompletedRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resume.sqlite")
	lg, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer lg.Close()

	now := time.Unix(1000, 0)
	if err := lg.Record(1, HashInput("a"), 0, now, now); err != nil {
		t.Fatal(err)
	}
	if err := lg.Record(2, HashInput("b"), 1, now, now); err != nil {
		t.Fatal(err)
	}

	done, err := lg.Completed()
	if err != nil {
		t.Fatal(err)
	}
	if !done[1] {
		t.Fatalf("job 1 exited 0, should be recorded as completed")
	}
	if done[2] {
		t.Fatalf("job 2 exited non-zero, must not count as completed")
	}
}

func TestRecordUpsertsOnConflict(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resume.sqlite")
	lg, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer lg.Close()

	now := time.Unix(1000, 0)
	if err := lg.Record(1, HashInput("a"), 1, now, now); err != nil {
		t.Fatal(err)
	}
	if err := lg.Record(1, HashInput("a"), 0, now, now); err != nil {
		t.Fatal(err)
	}

	done, err := lg.Completed()
	if err != nil {
		t.Fatal(err)
	}
	if !done[1] {
		t.Fatalf("second write with exit_code 0 should replace the first")
	}
}
