package affinity

import "testing"

func TestGuard_SameGoroutine(t *testing.T) {
	var g Guard
	if !g.Check() {
		t.Error("first Check() = false, want true")
	}
	if !g.Check() {
		t.Error("repeated Check() on the binding goroutine = false, want true")
	}
}

func TestGuard_OtherGoroutine(t *testing.T) {
	var g Guard
	g.Check()

	result := make(chan bool)
	go func() {
		result <- g.Check()
	}()
	if <-result {
		t.Error("Check() from another goroutine = true, want false")
	}

	if !g.Check() {
		t.Error("Check() on the binding goroutine flipped to false")
	}
}

func TestGuard_BindsToFirstCaller(t *testing.T) {
	var g Guard

	bound := make(chan bool)
	go func() {
		bound <- g.Check()
	}()
	if !<-bound {
		t.Error("first Check() from spawned goroutine = false, want true")
	}

	if g.Check() {
		t.Error("Check() from a different goroutine than the binder = true, want false")
	}
}
