// Package aref implements AREF, a generalized atomic reference whose
// stored slot is tagged: either a user value of T, or a transient
// descriptor installed by an in-flight mcas transaction. Resolving a
// slot -- helping any installed descriptor to completion before
// returning a user value -- is the discipline every reader in this
// module follows.
package aref

import (
	"sync/atomic"

	"github.com/pkg/errors"
)

// ErrDuplicateRef is the precondition violation mcas reports when a
// CASN transaction names the same AREF in two cells. Deduplication is
// the caller's responsibility; this module chooses to report the
// violation rather than let it corrupt state silently.
var ErrDuplicateRef = errors.New("aref: same AREF referenced twice in one transaction")

// Slot is the tagged contents of an AREF cell: either a boxed user
// value (see Box) or a Descriptor. User code never observes a raw
// Slot; Get/Set/CompareAndSwap resolve it first.
type Slot interface {
	isAREFSlot()
}

// Descriptor is implemented by transient values that may occupy an
// AREF's slot in place of a user value: rdcss and mcas descriptors.
// Descriptors are identified by reference -- two instances with
// identical fields are never equal -- which Slot equality (a Go
// interface comparison over a pointer-typed Descriptor) gives for
// free.
type Descriptor interface {
	Slot
	// Complete drives this descriptor to a terminal state. Safe to
	// call from any goroutine, including one that did not install it
	// (helping); idempotent.
	Complete()
}

// valueSlot carries a user value of T. T is constrained to comparable
// so Slot equality (used by CompareAndSwapRaw) can compare boxed
// values structurally without reflection.
type valueSlot[T comparable] struct {
	v T
}

func (valueSlot[T]) isAREFSlot() {}

// Box wraps v as a Slot, for building CASN cells (see the mcas
// package's Cell) and for AREF's own Get/Set/CompareAndSwap.
func Box[T comparable](v T) Slot {
	return valueSlot[T]{v}
}

// Unbox recovers a T previously wrapped with Box. It panics if s does
// not hold a T, which would indicate a caller mismatched an AREF[T]
// against a cell built for a different type -- a programming error,
// not a runtime condition this module's contract needs to absorb.
func Unbox[T comparable](s Slot) T {
	return s.(valueSlot[T]).v
}

// Ref is the non-generic subset of AREF's API that rdcss and mcas
// operate against: a single MCAS transaction's cells may name AREFs of
// differing T, so the protocol is written against Ref rather than
// AREF[T] directly. Every *AREF[T] implements Ref.
type Ref interface {
	// CompareAndSwapRaw installs new iff the current slot contents equal
	// expected (by reference for a Descriptor, by value for a boxed user
	// value); it always returns the pre-existing
	// contents, so callers can see which foreign descriptor (if any)
	// is in the way. No resolution is performed -- callers that need a
	// plain user value call Get, not this.
	CompareAndSwapRaw(expected, new Slot) Slot
	// RawRead returns the current slot contents without resolving a
	// descriptor.
	RawRead() Slot
}

// AREF is a single-cell atomic holder of a tagged Slot.
type AREF[T comparable] struct {
	cell atomic.Pointer[Slot]
}

// New returns an AREF initialized to v.
func New[T comparable](v T) *AREF[T] {
	r := &AREF[T]{}
	s := Box(v)
	r.cell.Store(&s)
	return r
}

// Get returns the current user value, helping any installed descriptor
// to completion first.
func (r *AREF[T]) Get() T {
	return Unbox[T](r.resolve())
}

// Set installs v unconditionally, retrying against concurrent
// descriptor installation until it observes and replaces a plain user
// value.
func (r *AREF[T]) Set(v T) {
	for {
		old := Unbox[T](r.resolve())
		if r.CompareAndSwap(old, v) {
			return
		}
	}
}

// CompareAndSwap installs new iff the current user value equals old.
// Equivalent to a one-cell MCAS.
func (r *AREF[T]) CompareAndSwap(old, new T) bool {
	oldSlot := r.resolve()
	if Unbox[T](oldSlot) != old {
		return false
	}
	observed := r.CompareAndSwapRaw(oldSlot, Box(new))
	return observed == oldSlot
}

// resolve drains descriptors: while the raw slot holds a Descriptor,
// drive it to completion and re-read, until a value Slot is observed.
func (r *AREF[T]) resolve() Slot {
	for {
		s := *r.cell.Load()
		switch v := s.(type) {
		case valueSlot[T]:
			return v
		case Descriptor:
			v.Complete()
		default:
			panic("aref: slot holds neither a value of the expected type nor a Descriptor")
		}
	}
}

// CompareAndSwapRaw implements Ref.CompareAndSwapRaw.
func (r *AREF[T]) CompareAndSwapRaw(expected, new Slot) Slot {
	for {
		cur := r.cell.Load()
		if *cur != expected {
			return *cur
		}
		next := new
		if r.cell.CompareAndSwap(cur, &next) {
			return expected
		}
	}
}

// RawRead implements Ref.RawRead.
func (r *AREF[T]) RawRead() Slot {
	return *r.cell.Load()
}
