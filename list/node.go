package list

import (
	"sync/atomic"

	"github.com/aradzie/concurrency/aref"
)

// node is a list element: prev/next are resolved through MCAS-capable
// AREFs (every structural edit is a three-cell CASN over size and two
// neighbour links); value is a plain atomic slot because the
// structural invariants say nothing about it -- a bare write is
// sufficient and readers may observe either the old or new value with
// no further ordering guarantee.
type node[E any] struct {
	prev  *aref.AREF[*node[E]]
	next  *aref.AREF[*node[E]]
	value atomic.Pointer[E]
}

func newNode[E any](prev, next *node[E], v E) *node[E] {
	n := &node[E]{
		prev: aref.New(prev),
		next: aref.New(next),
	}
	n.value.Store(&v)
	return n
}

func (n *node[E]) getValue() E {
	return *n.value.Load()
}

func (n *node[E]) setValue(v E) {
	n.value.Store(&v)
}
