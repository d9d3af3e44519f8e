package config

import "testing"

func TestEntireLineIsCommand(t *testing.T) {
	c := &Config{}
	if !c.EntireLineIsCommand() {
		t.Fatalf("empty Argv must mean the entire input line is the command")
	}
	c.Argv = []string{"echo"}
	if c.EntireLineIsCommand() {
		t.Fatalf("non-empty Argv must not be treated as a bare input line")
	}
}

func TestEffectiveJobsDetectsCores(t *testing.T) {
	c := &Config{}
	if got := c.EffectiveJobs(8); got != 8 {
		t.Fatalf("got %d want 8", got)
	}
	if got := c.EffectiveJobs(0); got != 1 {
		t.Fatalf("got %d want 1 floor", got)
	}
}

func TestEffectiveJobsHonoursExplicitCount(t *testing.T) {
	c := &Config{Jobs: 3}
	if got := c.EffectiveJobs(8); got != 3 {
		t.Fatalf("got %d want 3", got)
	}
}
