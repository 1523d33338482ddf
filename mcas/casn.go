// Package mcas implements a multi-word compare-and-swap (MCAS / CASN)
// register: CASN atomically transitions a set of aref.AREF cells from
// their expected old values to their new values, or leaves all of them
// unchanged, with lock-free progress and cooperative helping from any
// goroutine that encounters a foreign descriptor. RDCSS (rdcss.go) is
// the restricted double-compare single-swap sub-protocol CASN uses to
// install its descriptor conditionally on its own status.
package mcas

import (
	"github.com/aradzie/concurrency/aref"
	"github.com/aradzie/concurrency/metrics"
)

// CellList is an ordered, singly-linked list of cells: a cell names an
// AREF, the value it is expected to hold, and the value to install.
// The order of this chain is the order CASN processes cells in, and is
// the caller's responsibility to keep consistent across transactions
// that may race over overlapping AREFs (standard lock-ordering rule).
type CellList struct {
	Ref  aref.Ref
	Old  aref.Slot
	New  aref.Slot
	Next *CellList
}

// Cell builds a CellList node for ref transitioning from old to new,
// chained to an optional next node -- the right-associated chaining
// form from Cell(r1, o1, n1, Cell(r2, o2, n2, nil)) or,
// terminally, Cell(r3, o3, n3) with next omitted.
func Cell[T comparable](ref *aref.AREF[T], old, new T, next ...*CellList) *CellList {
	var n *CellList
	if len(next) > 0 {
		n = next[0]
	}
	return &CellList{Ref: ref, Old: aref.Box(old), New: aref.Box(new), Next: n}
}

// cellSnapshot is a cell with its Slot contents pre-boxed and its
// position in the chain flattened to a slice, which both phases of
// Descriptor.run iterate over repeatedly.
type cellSnapshot struct {
	ref aref.Ref
	old aref.Slot
	new aref.Slot
}

// Descriptor is an in-flight CASN transaction: an immutable ordered
// list of cells plus a status held in its own AREF. It implements
// aref.Descriptor, so any AREF touched during acquisition can hold it
// directly as a placeholder.
type Descriptor struct {
	cells     []cellSnapshot
	statusRef *aref.AREF[status]
	recorder  *metrics.Recorder
}

func (*Descriptor) isAREFSlot() {}

// Complete drives this transaction to a terminal state; it is what a
// helper calls on encountering this Descriptor in another AREF.
func (d *Descriptor) Complete() {
	d.run()
}

// CASN attempts to atomically transition every cell in head's chain
// from its old value to its new value. It returns true iff every cell
// held its expected old value at the decision point and now reads its
// new value; on false, no cell is permanently altered. recorder may be
// nil. CASN never returns an error -- naming the same AREF twice in
// one chain is an undefined precondition violation, and panics rather
// than silently corrupting state.
func CASN(head *CellList, recorder *metrics.Recorder) bool {
	recorder.IncCASNAttempt()

	d := &Descriptor{statusRef: aref.New(undecided), recorder: recorder}
	seen := make(map[aref.Ref]bool)
	for c := head; c != nil; c = c.Next {
		if seen[c.Ref] {
			panic(aref.ErrDuplicateRef)
		}
		seen[c.Ref] = true
		d.cells = append(d.cells, cellSnapshot{ref: c.Ref, old: c.Old, new: c.New})
	}

	ok := d.run()
	if ok {
		recorder.IncCASNSucceeded()
	} else {
		recorder.IncCASNFailed()
	}
	return ok
}

// run executes both phases of the protocol  and is safe to
// invoke repeatedly (by the owner and by any number of helpers): the
// status AREF transitions out of undecided at most once, and every
// Phase 2 write is a raw CAS conditional on this descriptor still being
// installed, so any interleaving of owner and helpers converges on the
// same final slot values.
func (d *Descriptor) run() bool {
	var self aref.Slot = d

acquire:
	for _, c := range d.cells {
		for {
			if aref.Unbox[status](d.statusRef.RawRead()) != undecided {
				break acquire
			}

			rd := &rdcssDescriptor{
				statusRef: d.statusRef,
				o1:        undecided,
				ref2:      c.ref,
				o2:        c.old,
				n2:        self,
			}
			observed := rdcssUpdate(rd)

			switch {
			case observed == c.old:
				// We installed; proceed to the next cell.
			case observed == self:
				// A helper already installed us here.
			default:
				if other, ok := observed.(*Descriptor); ok && other != d {
					other.run()
					d.recorder.IncCASNHelped()
					continue // retry this cell against the now-resolved blocker
				}
				d.statusRef.CompareAndSwap(undecided, failed)
				break acquire
			}
			break // this cell is acquired; advance to the next
		}
	}

	d.statusRef.CompareAndSwap(undecided, succeeded)

	decision := aref.Unbox[status](d.statusRef.RawRead())
	for _, c := range d.cells {
		if decision == succeeded {
			c.ref.CompareAndSwapRaw(self, c.new)
		} else {
			c.ref.CompareAndSwapRaw(self, c.old)
		}
	}
	return decision == succeeded
}
