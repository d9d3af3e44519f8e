package permute

import "testing"

func TestRightmostAdvancesFastest(t *testing.T) {
	p, err := New([]int{2, 2, 2})
	if err != nil {
		t.Fatal(err)
	}
	want := [][]int{
		{0, 0, 0}, {0, 0, 1}, {0, 1, 0}, {0, 1, 1},
		{1, 0, 0}, {1, 0, 1}, {1, 1, 0}, {1, 1, 1},
	}
	for i, w := range want {
		got, ok := p.Next()
		if !ok {
			t.Fatalf("ran out early at %d", i)
		}
		if len(got) != len(w) || got[0] != w[0] || got[1] != w[1] || got[2] != w[2] {
			t.Fatalf("tuple %d: got %v want %v", i, got, w)
		}
	}
	if _, ok := p.Next(); ok {
		t.Fatalf("expected exhaustion")
	}
}

func TestTotalIsProduct(t *testing.T) {
	p, err := New([]int{3, 4, 5})
	if err != nil {
		t.Fatal(err)
	}
	if p.Total() != 60 {
		t.Fatalf("got %d", p.Total())
	}
}

func TestSeekIsCheapAndCorrect(t *testing.T) {
	p, err := New([]int{2, 2, 2})
	if err != nil {
		t.Fatal(err)
	}
	p.Seek(5)
	got, ok := p.Next()
	if !ok || got[0] != 1 || got[1] != 0 || got[2] != 1 {
		t.Fatalf("got %v ok=%v", got, ok)
	}
}

func TestOverflowIsFatal(t *testing.T) {
	_, err := New([]int{1 << 32, 1 << 32, 4})
	if err != ErrOverflow {
		t.Fatalf("expected ErrOverflow, got %v", err)
	}
}
