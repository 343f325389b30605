// Package affinity tracks which goroutine first touched a
// single-goroutine object, so misuse can be logged instead of
// corrupting state silently.
package affinity

import (
	"sync/atomic"

	"github.com/petermattis/goid"
)

// Guard binds to the goroutine that first calls Check.
// The zero value is ready to use.
type Guard struct {
	id atomic.Int64
}

// Check binds the guard to the current goroutine on first use, then
// reports whether this call comes from the bound goroutine.
func (g *Guard) Check() bool {
	gid := goid.Get()
	if g.id.CompareAndSwap(0, gid) {
		return true
	}
	return g.id.Load() == gid
}
