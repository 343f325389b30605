package work

import (
	"errors"
	"runtime"
	"sync/atomic"
	"testing"
	"time"
)

// =============================================================================
// Pool Creation Tests
// =============================================================================

func TestPool_Create(t *testing.T) {
	pool := NewPool(4)
	defer pool.Close()

	if pool.Workers() != 4 {
		t.Errorf("Workers() = %d, want 4", pool.Workers())
	}
	if !pool.IsRunning() {
		t.Error("pool should be running after creation")
	}
}

func TestPool_CreateZeroWorkers(t *testing.T) {
	pool := NewPool(0)
	defer pool.Close()

	expected := runtime.GOMAXPROCS(0)
	if pool.Workers() != expected {
		t.Errorf("Workers() = %d, want %d (GOMAXPROCS)", pool.Workers(), expected)
	}
}

func TestPool_CreateNegativeWorkers(t *testing.T) {
	pool := NewPool(-5)
	defer pool.Close()

	expected := runtime.GOMAXPROCS(0)
	if pool.Workers() != expected {
		t.Errorf("Workers() = %d, want %d (GOMAXPROCS)", pool.Workers(), expected)
	}
}

// =============================================================================
// Spawn / Join Tests
// =============================================================================

func TestSpawn_Result(t *testing.T) {
	pool := NewPool(2)
	defer pool.Close()

	h := Spawn(pool, func() (int, error) {
		return 42, nil
	})

	got, err := h.Join()
	if err != nil {
		t.Fatalf("Join() error = %v", err)
	}
	if got != 42 {
		t.Errorf("Join() = %d, want 42", got)
	}
}

func TestSpawn_Error(t *testing.T) {
	pool := NewPool(2)
	defer pool.Close()

	want := errors.New("shader exploded")
	h := Spawn(pool, func() (string, error) {
		return "", want
	})

	_, err := h.Join()
	if !errors.Is(err, want) {
		t.Errorf("Join() error = %v, want %v", err, want)
	}
}

func TestSpawn_ManyTasks(t *testing.T) {
	pool := NewPool(4)
	defer pool.Close()

	const n = 200
	handles := make([]*Handle[int], n)
	for i := range handles {
		v := i
		handles[i] = Spawn(pool, func() (int, error) {
			return v * 2, nil
		})
	}

	for i, h := range handles {
		got, err := h.Join()
		if err != nil {
			t.Fatalf("Join(%d) error = %v", i, err)
		}
		if got != i*2 {
			t.Errorf("Join(%d) = %d, want %d", i, got, i*2)
		}
	}
}

func TestJoin_Consumes(t *testing.T) {
	pool := NewPool(1)
	defer pool.Close()

	h := Spawn(pool, func() (int, error) {
		return 7, nil
	})

	if _, err := h.Join(); err != nil {
		t.Fatalf("first Join() error = %v", err)
	}

	got, err := h.Join()
	if !errors.Is(err, ErrConsumed) {
		t.Errorf("second Join() error = %v, want ErrConsumed", err)
	}
	if got != 0 {
		t.Errorf("second Join() = %d, want zero value", got)
	}
}

// =============================================================================
// Alive Tests
// =============================================================================

func TestAlive_Transitions(t *testing.T) {
	pool := NewPool(1)
	defer pool.Close()

	started := make(chan struct{})
	release := make(chan struct{})

	h := Spawn(pool, func() (int, error) {
		close(started)
		<-release
		return 1, nil
	})

	<-started
	if !h.Alive() {
		t.Error("Alive() = false while work is running")
	}

	close(release)
	if _, err := h.Join(); err != nil {
		t.Fatalf("Join() error = %v", err)
	}
	if h.Alive() {
		t.Error("Alive() = true after work finished")
	}
}

func TestAlive_NeverBlocks(t *testing.T) {
	pool := NewPool(1)
	defer pool.Close()

	release := make(chan struct{})
	h := Spawn(pool, func() (int, error) {
		<-release
		return 0, nil
	})

	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			h.Alive()
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Alive() blocked")
	}
	close(release)
	h.Join()
}

// =============================================================================
// Panic Handling Tests
// =============================================================================

func TestSpawn_PanicAborts(t *testing.T) {
	pool := NewPool(2)
	defer pool.Close()

	h := Spawn(pool, func() (int, error) {
		panic("compile blew up")
	})

	_, err := h.Join()
	if !errors.Is(err, ErrAborted) {
		t.Errorf("Join() error = %v, want ErrAborted", err)
	}

	// The pool must survive a panicking task.
	h2 := Spawn(pool, func() (int, error) {
		return 5, nil
	})
	got, err := h2.Join()
	if err != nil || got != 5 {
		t.Errorf("Join() after panic = %d, %v, want 5, nil", got, err)
	}
}

// =============================================================================
// Close Tests
// =============================================================================

func TestClose_AbortsQueuedWork(t *testing.T) {
	pool := NewPool(1)

	started := make(chan struct{})
	release := make(chan struct{})

	// Occupy the only worker so later tasks stay queued.
	blocker := Spawn(pool, func() (int, error) {
		close(started)
		<-release
		return 0, nil
	})
	<-started

	var ran atomic.Int64
	queued := make([]*Handle[int], 4)
	for i := range queued {
		queued[i] = Spawn(pool, func() (int, error) {
			ran.Add(1)
			return 0, nil
		})
	}

	closed := make(chan struct{})
	go func() {
		pool.Close()
		close(closed)
	}()

	// Close waits for the running task; queued work is then aborted.
	close(release)
	select {
	case <-closed:
	case <-time.After(5 * time.Second):
		t.Fatal("Close did not return")
	}

	if _, err := blocker.Join(); err != nil {
		t.Errorf("running task Join() error = %v, want nil", err)
	}
	for i, h := range queued {
		if _, err := h.Join(); !errors.Is(err, ErrAborted) {
			t.Errorf("queued task %d Join() error = %v, want ErrAborted", i, err)
		}
	}
	if got := ran.Load(); got != 0 {
		t.Errorf("%d queued tasks ran after Close", got)
	}
}

func TestClose_SpawnAfterCloseAborts(t *testing.T) {
	pool := NewPool(2)
	pool.Close()

	h := Spawn(pool, func() (int, error) {
		return 9, nil
	})

	if h.Alive() {
		t.Error("Alive() = true for task spawned on closed pool")
	}
	if _, err := h.Join(); !errors.Is(err, ErrAborted) {
		t.Errorf("Join() error = %v, want ErrAborted", err)
	}
	if pool.IsRunning() {
		t.Error("IsRunning() = true after Close")
	}
}

func TestClose_Idempotent(t *testing.T) {
	pool := NewPool(2)
	pool.Close()
	pool.Close()
	pool.Close()
}

// =============================================================================
// Overflow Tests
// =============================================================================

func TestSpawn_QueueOverflowNeverBlocks(t *testing.T) {
	pool := NewPool(1)
	defer pool.Close()

	release := make(chan struct{})
	defer close(release)

	// Far more tasks than the single queue can buffer. Spawn must not
	// block even though every one of them is stuck on the same gate.
	const n = 64
	handles := make([]*Handle[int], n)
	spawned := make(chan struct{})
	go func() {
		for i := range handles {
			handles[i] = Spawn(pool, func() (int, error) {
				<-release
				return 1, nil
			})
		}
		close(spawned)
	}()

	select {
	case <-spawned:
	case <-time.After(5 * time.Second):
		t.Fatal("Spawn blocked on a full queue")
	}
}
