package vfx

import "time"

// TimeInfo is one sample of the clock driving the graph: the global
// time in seconds, the step since the previous sample, and the current
// audio levels (low, mid, high bands plus overall level).
type TimeInfo struct {
	Time  float64
	Dt    float64
	Audio [4]float64
}

// Timebase supplies the per-frame TimeInfo. The driver polls it once
// at the start of every frame. Hosts with their own clock (a beat
// tracker, an audio analyzer, a test script) implement this interface.
type Timebase interface {
	Poll() TimeInfo
}

// SystemTimebase is the default Timebase: a monotonic wall clock with
// dt measured between polls and no audio. The zero value is ready to
// use; the first poll reports time 0 and dt 0.
type SystemTimebase struct {
	start time.Time
	last  time.Time
}

// NewSystemTimebase returns a SystemTimebase that starts counting at
// its first poll.
func NewSystemTimebase() *SystemTimebase { return &SystemTimebase{} }

// Poll samples the clock.
func (t *SystemTimebase) Poll() TimeInfo {
	now := time.Now()
	if t.start.IsZero() {
		t.start = now
		t.last = now
	}
	info := TimeInfo{
		Time: now.Sub(t.start).Seconds(),
		Dt:   now.Sub(t.last).Seconds(),
	}
	t.last = now
	return info
}
