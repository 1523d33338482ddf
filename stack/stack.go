// Package stack implements the lock-free stack family: a plain Treiber
// stack, a backoff variant, a flat-combining stack, and an
// elimination-backoff stack. All four present the same push/peek/pop
// contract; none depend on mcas -- they share this module's general
// concurrency discipline (CAS retry loops, backoff) but are each a
// small, self-contained algorithm.
package stack

import "github.com/pkg/errors"

// ErrNilValue is the value every variant's Push panics with when v is
// a nil interface/pointer/etc -- nil is reserved as the empty-stack
// sentinel Pop/Peek return, so a caller cannot also push it.
var ErrNilValue = errors.New("stack: nil value not permitted")

// Stack is the common contract every variant in this package satisfies.
type Stack[T any] interface {
	// Push adds v to the top of the stack. It panics if v is a nil
	// interface value wrapped in T (callers passing pointer/interface
	// T should never push nil).
	Push(v T)
	// Peek returns the current top value and true, or the zero value
	// and false if the stack is empty.
	Peek() (T, bool)
	// Pop removes and returns the current top value and true, or the
	// zero value and false if the stack is empty.
	Pop() (T, bool)
}

// node is the immutable (value, next) cons cell every variant links
// from its top pointer.
type node[T any] struct {
	value T
	next  *node[T]
}
