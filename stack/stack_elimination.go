package stack

import (
	"sync/atomic"
	"time"

	"github.com/aradzie/concurrency/backoff"
	"github.com/aradzie/concurrency/metrics"
	"github.com/aradzie/concurrency/threadid"
)

type collisionState int32

const (
	collisionEmpty collisionState = iota
	collisionPush
	collisionPop
)

// collisionSlot is the packed (state, value) pair a collision cell
// swings between states. Like exchanger's slot, state and value travel
// together behind a single atomic.Pointer swap so a pusher publishing
// a value and a pop claiming it can never observe one half of the pair
// without the other.
type collisionSlot[T any] struct {
	state collisionState
	value T
}

func newEmptyCollisionSlot[T any]() *collisionSlot[T] {
	return &collisionSlot[T]{state: collisionEmpty}
}

// collisionCell is one slot of the elimination array. A pusher
// publishes its value and flips state to collisionPush in one atomic
// swap; a pop that lands on the same slot swaps the whole (state,
// value) pair out for a collisionPop marker in one atomic swap, and
// the original pusher sees its installed pointer has been replaced
// instead of ever touching the main stack.
type collisionCell[T any] struct {
	ptr atomic.Pointer[collisionSlot[T]]
}

// Elimination is a Treiber stack backed by an elimination array: a
// push that loses the top CAS race offers its value on the slot of a
// dense id it takes from the allocator, and a pop that also loses its
// race scans every slot for a waiting push, before either side falls back to backoff
// and retrying the main stack.
type Elimination[T any] struct {
	top       atomic.Pointer[node[T]]
	min, max  int
	recorder  *metrics.Recorder
	ids       *threadid.Allocator
	collision []collisionCell[T]
}

// NewElimination returns an empty Elimination stack. ids supplies the
// dense participant id used to pick an elimination slot (ids.Bound()
// also sizes the array); recorder may be nil.
func NewElimination[T any](min, max int, ids *threadid.Allocator, recorder *metrics.Recorder) *Elimination[T] {
	e := &Elimination[T]{
		min: min, max: max,
		recorder:  recorder,
		ids:       ids,
		collision: make([]collisionCell[T], ids.Bound()),
	}
	for i := range e.collision {
		e.collision[i].ptr.Store(newEmptyCollisionSlot[T]())
	}
	return e
}

// Push adds v to the top of the stack.
func (s *Elimination[T]) Push(v T) {
	if isNil(v) {
		panic(ErrNilValue)
	}
	n := &node[T]{value: v}
	bo := backoff.New(s.min, s.max, s.recorder)
	for {
		old := s.top.Load()
		n.next = old
		if s.top.CompareAndSwap(old, n) {
			return
		}
		if s.tryEliminatePush(v) {
			return
		}
		bo.Wait()
	}
}

// Peek returns the current top value without removing it. Elimination
// never applies here: a value sitting in the elimination array has not
// joined the main stack and must not be visible to Peek.
func (s *Elimination[T]) Peek() (T, bool) {
	n := s.top.Load()
	if n == nil {
		var zero T
		return zero, false
	}
	return n.value, true
}

// Pop removes and returns the current top value.
func (s *Elimination[T]) Pop() (T, bool) {
	bo := backoff.New(s.min, s.max, s.recorder)
	for {
		old := s.top.Load()
		if old == nil {
			var zero T
			return zero, false
		}
		if s.top.CompareAndSwap(old, old.next) {
			return old.value, true
		}
		if v, ok := s.tryEliminatePop(); ok {
			return v, true
		}
		bo.Wait()
	}
}

// tryEliminatePush offers v on a slot picked via a dense thread id and
// waits briefly for a pop to claim it; it reports whether a pop did.
func (s *Elimination[T]) tryEliminatePush(v T) bool {
	if len(s.collision) == 0 {
		return false
	}
	id, ok := s.ids.TryAcquire()
	if !ok {
		return false
	}
	defer s.ids.Release(id)
	cell := &s.collision[(id-1)%len(s.collision)]

	cur := cell.ptr.Load()
	if cur.state != collisionEmpty {
		return false
	}
	mine := &collisionSlot[T]{state: collisionPush, value: v}
	if !cell.ptr.CompareAndSwap(cur, mine) {
		return false
	}

	deadline := time.Now().Add(collisionWindow)
	for time.Now().Before(deadline) {
		if cell.ptr.Load() != mine {
			// A pop atomically swapped mine out for a collisionPop
			// marker, claiming v along with it.
			cell.ptr.Store(newEmptyCollisionSlot[T]())
			s.recorder.IncElimination()
			return true
		}
	}
	// No partner arrived in time; reclaim the slot only if it is still
	// ours to reclaim -- a late pop may have just taken it.
	if cell.ptr.CompareAndSwap(mine, newEmptyCollisionSlot[T]()) {
		return false
	}
	cell.ptr.Store(newEmptyCollisionSlot[T]())
	s.recorder.IncElimination()
	return true
}

// tryEliminatePop scans the elimination array once for a waiting push
// and, if found, claims its value.
func (s *Elimination[T]) tryEliminatePop() (T, bool) {
	var zero T
	for i := range s.collision {
		cell := &s.collision[i]
		cur := cell.ptr.Load()
		if cur.state != collisionPush {
			continue
		}
		if !cell.ptr.CompareAndSwap(cur, &collisionSlot[T]{state: collisionPop}) {
			continue
		}
		return cur.value, true
	}
	return zero, false
}

// collisionWindow bounds how long a push waits on its elimination slot
// before giving up and returning to the main stack's CAS loop.
const collisionWindow = 50 * time.Microsecond
