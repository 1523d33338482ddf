package stack

import (
	"sync/atomic"

	"github.com/aradzie/concurrency/backoff"
	"github.com/aradzie/concurrency/metrics"
)

// Backoff is a Treiber stack where every failed top CAS consults
// package backoff's randomized exponential wait before retrying.
type Backoff[T any] struct {
	top      atomic.Pointer[node[T]]
	min, max int
	recorder *metrics.Recorder
}

// NewBackoff returns an empty Backoff stack whose retry delay starts at
// min steps and doubles up to max on sustained contention. recorder may
// be nil.
func NewBackoff[T any](min, max int, recorder *metrics.Recorder) *Backoff[T] {
	return &Backoff[T]{min: min, max: max, recorder: recorder}
}

// Push adds v to the top of the stack.
func (s *Backoff[T]) Push(v T) {
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
		bo.Wait()
	}
}

// Peek returns the current top value without removing it.
func (s *Backoff[T]) Peek() (T, bool) {
	n := s.top.Load()
	if n == nil {
		var zero T
		return zero, false
	}
	return n.value, true
}

// Pop removes and returns the current top value.
func (s *Backoff[T]) Pop() (T, bool) {
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
		bo.Wait()
	}
}
