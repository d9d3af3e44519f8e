package admission

import (
	"testing"
	"time"
)

func fixedController(delay time.Duration) (*Controller, *fakeClock) {
	clk := &fakeClock{t: time.Unix(0, 0)}
	c := &Controller{
		delay:           delay,
		maxLoad:         -1,
		availableMemory: func() (uint64, error) { return 1 << 30, nil },
		now:             clk.Now,
		sleep:           clk.Sleep,
	}
	return c, clk
}

type fakeClock struct {
	t     time.Time
	slept time.Duration
}

func (f *fakeClock) Now() time.Time { return f.t }
func (f *fakeClock) Sleep(d time.Duration) {
	f.slept += d
	f.t = f.t.Add(d)
}

func TestGateWithNoDelayOrMemfreeNeverWaits(t *testing.T) {
	c, clk := fixedController(0)
	if err := c.Gate(); err != nil {
		t.Fatal(err)
	}
	if clk.slept != 0 {
		t.Fatalf("expected no sleep, got %v", clk.slept)
	}
}

func TestApplyDelayPacesConsecutiveCalls(t *testing.T) {
	c, clk := fixedController(100 * time.Millisecond)
	c.applyDelay() // first call: nothing to pace against yet
	if clk.slept != 0 {
		t.Fatalf("first call should not sleep, got %v", clk.slept)
	}
	c.applyDelay() // second call: must wait out the remaining delay
	if clk.slept != 100*time.Millisecond {
		t.Fatalf("got %v want 100ms", clk.slept)
	}
}

func TestApplyMemfreeGivesUpPastHardCap(t *testing.T) {
	c, _ := fixedController(0)
	c.memfreeBytes = 1 << 40 // never satisfiable
	err := c.applyMemfree()
	if err == nil {
		t.Fatalf("expected an AdmissionError once the hard cap is exceeded")
	}
}

func TestApplyMemfreeAdmitsWhenSatisfied(t *testing.T) {
	c, _ := fixedController(0)
	c.memfreeBytes = 1 << 20 // well below the fake 1GiB available
	if err := c.applyMemfree(); err != nil {
		t.Fatal(err)
	}
}
