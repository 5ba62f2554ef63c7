package model

import "testing"

func TestFixedScheduleIgnoresRtt(t *testing.T) {
	s := FixedSchedule(250)
	if got := s.WindowSize(999999); got != 250 {
		t.Errorf("WindowSize = %d, want 250", got)
	}
}

func TestRttDerivedScheduleClampsToMax(t *testing.T) {
	s := RttDerivedSchedule(100)
	if got := s.WindowSize(50_000); got != maxWindowSize {
		t.Errorf("WindowSize = %d, want clamp to %d", got, maxWindowSize)
	}
}

func TestRttDerivedScheduleComputesMilliseconds(t *testing.T) {
	s := RttDerivedSchedule(2)
	if got := s.WindowSize(1000); got != 2 {
		t.Errorf("WindowSize(rtt=1000us, factor=2) = %d, want 2", got)
	}
}
