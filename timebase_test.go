package vfx

import (
	"testing"
	"time"
)

func TestSystemTimebaseFirstPoll(t *testing.T) {
	tb := NewSystemTimebase()
	ti := tb.Poll()
	if ti.Time != 0 {
		t.Errorf("first Time = %v, want 0", ti.Time)
	}
	if ti.Dt != 0 {
		t.Errorf("first Dt = %v, want 0", ti.Dt)
	}
	if ti.Audio != ([4]float64{}) {
		t.Errorf("Audio = %v, want silence", ti.Audio)
	}
}

func TestSystemTimebaseAdvances(t *testing.T) {
	tb := NewSystemTimebase()
	first := tb.Poll()
	time.Sleep(2 * time.Millisecond)
	second := tb.Poll()

	if second.Time <= first.Time {
		t.Errorf("time went from %v to %v, want monotonic growth", first.Time, second.Time)
	}
	if second.Dt <= 0 {
		t.Errorf("Dt = %v, want positive after a sleep", second.Dt)
	}
	if second.Dt > second.Time {
		t.Errorf("Dt %v exceeds total elapsed %v", second.Dt, second.Time)
	}
}

func TestSystemTimebaseZeroValue(t *testing.T) {
	var tb SystemTimebase
	ti := tb.Poll()
	if ti.Time != 0 || ti.Dt != 0 {
		t.Errorf("zero-value first poll = %v/%v, want 0/0", ti.Time, ti.Dt)
	}
}
