package timeutil

import (
	"testing"
	"time"
)

func TestFakeClockAdvance(t *testing.T) {
	start := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	c := NewFakeClock(start)

	if !c.Now().Equal(start) {
		t.Errorf("Now() = %v, want %v", c.Now(), start)
	}

	c.Advance(90 * time.Minute)
	want := start.Add(90 * time.Minute)
	if !c.Now().Equal(want) {
		t.Errorf("Now() after Advance = %v, want %v", c.Now(), want)
	}

	if got := c.Since(start); got != 90*time.Minute {
		t.Errorf("Since(start) = %v, want 90m", got)
	}
}

func TestRealClockMonotonic(t *testing.T) {
	c := RealClock{}
	t1 := c.Now()
	t2 := c.Now()
	if t2.Before(t1) {
		t.Errorf("real clock went backwards: %v then %v", t1, t2)
	}
	if c.Since(t1) < 0 {
		t.Error("Since returned negative duration")
	}
}
