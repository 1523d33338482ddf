// Package threadid allocates dense, 1-based participant ids bounded by
// processor count. The elimination-backoff stack (stack.Elimination)
// uses a dense id to index its per-thread elimination array slot; this
// package is the explicit, injectable resource backing that, per the
// source design note that thread-id state should not be a hidden
// package-level global.
package threadid

import (
	"runtime"
	"sync"

	"go.uber.org/automaxprocs/maxprocs"
)

func init() {
	// Correct GOMAXPROCS under cgroup CPU quotas before DefaultBound
	// reads it; a no-op logger since this package has no logging
	// dependency of its own (see SPEC_FULL.md's ambient-stack notes).
	_, _ = maxprocs.Set(maxprocs.Logger(func(string, ...any) {}))
}

// DefaultBound returns the allocator size a caller should use absent a
// more specific figure: the corrected GOMAXPROCS, which reflects
// container CPU quotas (via the automaxprocs call above) rather than
// the host's raw core count.
func DefaultBound() int {
	n := runtime.GOMAXPROCS(0)
	if n < 1 {
		n = 1
	}
	return n
}

// Allocator hands out dense ids in [1, bound] to participating
// goroutines and reclaims them on Release. It blocks a goroutine that
// tries to acquire an id while all slots are in use until one frees up;
// the elimination array this feeds has exactly that many slots and
// cannot usefully serve more concurrent participants than that.
type Allocator struct {
	mu    sync.Mutex
	cond  *sync.Cond
	free  []bool // free[i] true means id i+1 is available
	bound int
}

// NewAllocator returns an Allocator with ids [1, bound].
func NewAllocator(bound int) *Allocator {
	if bound < 1 {
		bound = 1
	}
	a := &Allocator{
		free:  make([]bool, bound),
		bound: bound,
	}
	for i := range a.free {
		a.free[i] = true
	}
	a.cond = sync.NewCond(&a.mu)
	return a
}

// Bound reports the number of distinct ids this allocator can hand out
// simultaneously.
func (a *Allocator) Bound() int {
	return a.bound
}

// Acquire blocks until a dense id in [1, Bound()] is available, marks
// it taken, and returns it.
func (a *Allocator) Acquire() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	for {
		if id, ok := a.tryAcquireLocked(); ok {
			return id
		}
		a.cond.Wait()
	}
}

// TryAcquire returns a free id without blocking. Callers on a
// lock-free path (e.g. stack.Elimination, which must not suspend just
// to find a partner slot) use this instead of Acquire and simply skip
// the id-requiring step when ok is false.
func (a *Allocator) TryAcquire() (id int, ok bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.tryAcquireLocked()
}

func (a *Allocator) tryAcquireLocked() (int, bool) {
	for i, free := range a.free {
		if free {
			a.free[i] = false
			return i + 1, true
		}
	}
	return 0, false
}

// Release returns id to the free pool, waking one blocked Acquire if
// any. Releasing an id not currently held, or out of range, is a no-op.
func (a *Allocator) Release(id int) {
	if id < 1 || id > a.bound {
		return
	}
	a.mu.Lock()
	a.free[id-1] = true
	a.mu.Unlock()
	a.cond.Signal()
}
