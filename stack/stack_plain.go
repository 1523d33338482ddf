package stack

import (
	"reflect"
	"sync/atomic"
)

// Plain is the bare Treiber stack: push CAS-appends a new head, pop
// CAS-detaches it, unbounded retry on contention.
type Plain[T any] struct {
	top atomic.Pointer[node[T]]
}

// NewPlain returns an empty Plain stack.
func NewPlain[T any]() *Plain[T] {
	return &Plain[T]{}
}

// isNil reports whether v is a nil pointer/interface/slice/map/chan/func
// wrapped in T. any(v) == nil only catches T itself being a nil
// interface value; a concrete pointer type boxed into T still carries
// its type, so the check has to go through reflection to see the
// nil-ness underneath.
func isNil[T any](v T) bool {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Chan, reflect.Func, reflect.Interface, reflect.Map, reflect.Pointer, reflect.Slice, reflect.UnsafePointer:
		return rv.IsNil()
	default:
		return false
	}
}

// Push adds v to the top of the stack.
func (s *Plain[T]) Push(v T) {
	if isNil(v) {
		panic(ErrNilValue)
	}
	n := &node[T]{value: v}
	for {
		old := s.top.Load()
		n.next = old
		if s.top.CompareAndSwap(old, n) {
			return
		}
	}
}

// Peek returns the current top value without removing it.
func (s *Plain[T]) Peek() (T, bool) {
	n := s.top.Load()
	if n == nil {
		var zero T
		return zero, false
	}
	return n.value, true
}

// Pop removes and returns the current top value.
func (s *Plain[T]) Pop() (T, bool) {
	for {
		old := s.top.Load()
		if old == nil {
			var zero T
			return zero, false
		}
		if s.top.CompareAndSwap(old, old.next) {
			return old.value, true
		}
	}
}
