// Package list implements a lock-free doubly-linked list: every
// structural edit (prepend, remove, clear) is a single three-cell MCAS
// over a size counter and the two neighbour links it touches, which is
// exactly what makes it a first-class demonstration of package mcas.
// Value updates are a plain atomic write; only the structure -- not
// the payload -- is covered by the MCAS invariants.
package list

import (
	"github.com/pkg/errors"

	"github.com/aradzie/concurrency/aref"
	"github.com/aradzie/concurrency/backoff"
	"github.com/aradzie/concurrency/mcas"
	"github.com/aradzie/concurrency/metrics"
)

// ErrOutOfRange is returned for an index outside the valid range for
// the operation performed (see each method's doc).
var ErrOutOfRange = errors.New("list: index out of range")

// retryMin/retryMax bound the backoff applied between unbounded CASN
// retries on structural edits: retrying is unbounded until success or
// the precondition becomes impossible.
const (
	retryMin = 1
	retryMax = 1024
)

// List is a lock-free doubly-linked list of E. The zero value is not
// usable; construct with New. A List is safe for concurrent use by
// multiple goroutines.
type List[E comparable] struct {
	head     *node[E]
	size     *aref.AREF[int]
	recorder *metrics.Recorder
}

// New returns an empty List. recorder may be nil.
func New[E comparable](recorder *metrics.Recorder) *List[E] {
	l := &List[E]{recorder: recorder}
	l.head = &node[E]{}
	l.head.prev = aref.New(l.head)
	l.head.next = aref.New(l.head)
	l.size = aref.New(0)
	return l
}

// Size returns the number of elements currently in the list.
func (l *List[E]) Size() int {
	return l.size.Get()
}

// nodeAt resolves index i, for i in [0, Size()], to the node currently
// at that position by forward traversal from head.next; i == Size()
// resolves to the sentinel (a valid prepend target, i.e. append).
// Composite index-then-act operations built on nodeAt are not
// linearizable -- the structure may change between the traversal and
// the subsequent edit -- so every caller retries its whole operation on
// CASN failure rather than patching up a stale node.
func (l *List[E]) nodeAt(i int) (*node[E], error) {
	if i < 0 {
		return nil, errors.Wrapf(ErrOutOfRange, "negative index %d", i)
	}
	n := l.head.next.Get()
	for step := 0; step < i; step++ {
		if n == l.head {
			return nil, errors.Wrapf(ErrOutOfRange, "index %d exceeds size", i)
		}
		n = n.next.Get()
	}
	return n, nil
}

// elementAt is nodeAt restricted to a real element: i must be in
// [0, Size()).
func (l *List[E]) elementAt(i int) (*node[E], error) {
	n, err := l.nodeAt(i)
	if err != nil {
		return nil, err
	}
	if n == l.head {
		return nil, errors.Wrapf(ErrOutOfRange, "index %d exceeds size", i)
	}
	return n, nil
}

// Get returns the value at index i. i must be in [0, Size()).
func (l *List[E]) Get(i int) (E, error) {
	n, err := l.elementAt(i)
	if err != nil {
		var zero E
		return zero, err
	}
	return n.getValue(), nil
}

// Set installs v at index i, returning the value it replaced. i must
// be in [0, Size()). Set does not go through MCAS -- the structural
// invariants say nothing about element values.
func (l *List[E]) Set(i int, v E) (E, error) {
	n, err := l.elementAt(i)
	if err != nil {
		var zero E
		return zero, err
	}
	old := n.getValue()
	n.setValue(v)
	return old, nil
}

// Add appends v to the end of the list.
func (l *List[E]) Add(v E) {
	l.prependBefore(l.head, v)
}

// AddAt inserts v at index i, shifting the element currently at i (if
// any) and its successors back by one. i must be in [0, Size()].
func (l *List[E]) AddAt(i int, v E) error {
	n, err := l.nodeAt(i)
	if err != nil {
		return err
	}
	l.prependBefore(n, v)
	return nil
}

// prependBefore inserts a fresh node holding v immediately before n
// (prepend(N, e)), retrying the whole read-then-CASN
// operation with backoff until it commits.
func (l *List[E]) prependBefore(n *node[E], v E) {
	bo := backoff.New(retryMin, retryMax, l.recorder)
	for {
		p := n.prev.Get()
		s := l.size.Get()
		x := newNode(p, n, v)

		ok := mcas.CASN(mcas.Cell(l.size, s, s+1,
			mcas.Cell(p.next, n, x,
				mcas.Cell(n.prev, p, x))), l.recorder)
		if ok {
			return
		}
		bo.Wait()
	}
}

// RemoveAt removes and returns the element at index i. i must be in
// [0, Size()) at the moment it is resolved; concurrent structural
// changes may shift what "index i" means between resolution and
// removal, which is why the whole operation (resolve, then unlink)
// retries together on CASN failure rather than reusing a stale node.
func (l *List[E]) RemoveAt(i int) (E, error) {
	bo := backoff.New(retryMin, retryMax, l.recorder)
	for {
		n, err := l.elementAt(i)
		if err != nil {
			var zero E
			return zero, err
		}
		if l.unlink(n) {
			return n.getValue(), nil
		}
		bo.Wait()
	}
}

// RemoveValue removes the first element equal to v, if any, returning
// whether one was found and removed.
func (l *List[E]) RemoveValue(v E) bool {
	bo := backoff.New(retryMin, retryMax, l.recorder)
	for {
		n := l.findForward(v)
		if n == nil {
			return false
		}
		if l.unlink(n) {
			return true
		}
		bo.Wait()
	}
}

// unlink attempts the three-cell CASN that removes n (// remove(N)), returning whether it committed.
func (l *List[E]) unlink(n *node[E]) bool {
	p := n.prev.Get()
	q := n.next.Get()
	s := l.size.Get()
	return mcas.CASN(mcas.Cell(l.size, s, s-1,
		mcas.Cell(p.next, n, q,
			mcas.Cell(q.prev, n, p))), l.recorder)
}

// Contains reports whether v is present in the list.
func (l *List[E]) Contains(v E) bool {
	return l.findForward(v) != nil
}

// IndexOf returns the index of the first element equal to v, or -1.
func (l *List[E]) IndexOf(v E) int {
	i := 0
	for n := l.head.next.Get(); n != l.head; n = n.next.Get() {
		if n.getValue() == v {
			return i
		}
		i++
	}
	return -1
}

// LastIndexOf returns the index of the last element equal to v, or -1.
func (l *List[E]) LastIndexOf(v E) int {
	found := -1
	i := 0
	for n := l.head.next.Get(); n != l.head; n = n.next.Get() {
		if n.getValue() == v {
			found = i
		}
		i++
	}
	return found
}

func (l *List[E]) findForward(v E) *node[E] {
	for n := l.head.next.Get(); n != l.head; n = n.next.Get() {
		if n.getValue() == v {
			return n
		}
	}
	return nil
}

// Clear removes every element, resetting the list to empty in a single
// three-cell CASN (clear()).
func (l *List[E]) Clear() {
	bo := backoff.New(retryMin, retryMax, l.recorder)
	for {
		p := l.head.prev.Get()
		q := l.head.next.Get()
		s := l.size.Get()
		ok := mcas.CASN(mcas.Cell(l.size, s, 0,
			mcas.Cell(l.head.prev, p, l.head,
				mcas.Cell(l.head.next, q, l.head))), l.recorder)
		if ok {
			return
		}
		bo.Wait()
	}
}
