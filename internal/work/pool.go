// Package work runs background node work on a small pool of goroutines.
//
// Shader compilation and image decoding happen off the render goroutine.
// Callers get a Handle they can poll without blocking and join once the
// work has finished. Handles may be abandoned; an unjoined result is
// simply garbage collected.
package work

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
)

var (
	// ErrAborted is reported by Join when the work never ran to
	// completion: the pool was closed first, or the function panicked.
	ErrAborted = errors.New("work: task aborted")

	// ErrConsumed is reported by Join after the result has already
	// been taken by an earlier Join.
	ErrConsumed = errors.New("work: result already consumed")
)

// task pairs the two ways a queued item can leave the queue: a worker
// runs it, or shutdown aborts it.
type task struct {
	run   func()
	abort func()
}

// Pool is a fixed set of goroutines for background node work.
//
// Each worker has its own queue and steals from the others when idle.
// Submission never blocks: if every queue is full the task runs on a
// dedicated goroutine instead.
//
// Thread safety: Pool is safe for concurrent use.
type Pool struct {
	// workers is the number of worker goroutines.
	workers int

	// workQueues holds per-worker queues.
	workQueues []chan *task

	// done signals workers to stop.
	done chan struct{}

	// wg waits for all workers to finish.
	wg sync.WaitGroup

	// mu orders in-flight submissions against Close so no task can be
	// queued after the workers have drained.
	mu sync.RWMutex

	// running indicates whether the pool is accepting work.
	running bool
}

// NewPool creates a pool with the specified number of workers.
// If workers is 0 or negative, GOMAXPROCS is used.
// Workers start immediately and wait for work.
func NewPool(workers int) *Pool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	queueSize := workers * 4
	if queueSize < 8 {
		queueSize = 8
	}

	p := &Pool{
		workers:    workers,
		workQueues: make([]chan *task, workers),
		done:       make(chan struct{}),
		running:    true,
	}
	for i := range workers {
		p.workQueues[i] = make(chan *task, queueSize)
	}

	p.wg.Add(workers)
	for i := range workers {
		go p.worker(i)
	}

	return p
}

// Handle is the pollable result of a spawned task.
type Handle[T any] struct {
	done     chan struct{}
	consumed atomic.Bool
	result   T
	err      error
}

// Alive reports whether the work is still pending or running.
// It never blocks.
func (h *Handle[T]) Alive() bool {
	select {
	case <-h.done:
		return false
	default:
		return true
	}
}

// Join waits for the work to finish and consumes its result.
// A second Join returns ErrConsumed. If the work panicked or the pool
// was closed before it ran, Join returns an error wrapping ErrAborted.
func (h *Handle[T]) Join() (T, error) {
	<-h.done
	if !h.consumed.CompareAndSwap(false, true) {
		var zero T
		return zero, ErrConsumed
	}
	return h.result, h.err
}

// Spawn schedules fn on the pool and returns a handle for its result.
// It never blocks the caller: with every queue full the work runs on
// its own goroutine, and on a closed pool the handle immediately
// reports ErrAborted.
func Spawn[T any](p *Pool, fn func() (T, error)) *Handle[T] {
	h := &Handle[T]{done: make(chan struct{})}
	t := &task{
		run: func() {
			defer func() {
				if r := recover(); r != nil {
					h.err = fmt.Errorf("%w: panic: %v", ErrAborted, r)
				}
				close(h.done)
			}()
			h.result, h.err = fn()
		},
		abort: func() {
			h.err = ErrAborted
			close(h.done)
		},
	}
	p.submit(t)
	return h
}

// submit places t on the shortest queue, falling back to a dedicated
// goroutine when all queues are full.
func (p *Pool) submit(t *task) {
	p.mu.RLock()
	if !p.running {
		p.mu.RUnlock()
		t.abort()
		return
	}

	minIdx := 0
	minLen := len(p.workQueues[0])
	for i := 1; i < p.workers; i++ {
		if qLen := len(p.workQueues[i]); qLen < minLen {
			minLen = qLen
			minIdx = i
		}
	}

	select {
	case p.workQueues[minIdx] <- t:
		p.mu.RUnlock()
	default:
		p.mu.RUnlock()
		go t.run()
	}
}

// worker is the main loop for each worker goroutine.
func (p *Pool) worker(id int) {
	defer p.wg.Done()

	myQueue := p.workQueues[id]

	for {
		// Shutdown wins over queued work, so anything not yet started
		// when the pool closes is aborted rather than run.
		select {
		case <-p.done:
			p.abortQueue(myQueue)
			return
		default:
		}

		select {
		case <-p.done:
			p.abortQueue(myQueue)
			return

		case t := <-myQueue:
			t.run()

		default:
			// Try to steal work from another worker.
			if stolen := p.steal(id); stolen != nil {
				stolen.run()
			} else {
				select {
				case <-p.done:
					p.abortQueue(myQueue)
					return
				case t := <-myQueue:
					t.run()
				}
			}
		}
	}
}

// abortQueue cancels all remaining work in a queue.
func (p *Pool) abortQueue(queue chan *task) {
	for {
		select {
		case t := <-queue:
			t.abort()
		default:
			return
		}
	}
}

// steal attempts to take work from another worker's queue.
// Returns nil if no work is available.
func (p *Pool) steal(myID int) *task {
	for i := range p.workers {
		if i == myID {
			continue
		}
		select {
		case t := <-p.workQueues[i]:
			return t
		default:
		}
	}
	return nil
}

// Close shuts down the pool. Work already running finishes; work still
// queued is aborted and its handles report ErrAborted.
// Close is safe to call multiple times.
func (p *Pool) Close() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	p.mu.Unlock()

	close(p.done)
	p.wg.Wait()
}

// Workers returns the number of workers in the pool.
func (p *Pool) Workers() int {
	return p.workers
}

// IsRunning reports whether the pool is still accepting work.
func (p *Pool) IsRunning() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.running
}
