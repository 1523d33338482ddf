package mcas

import "github.com/aradzie/concurrency/aref"

// rdcssDescriptor implements the restricted double-compare single-swap
// sub-protocol: atomically swap ref2 from o2 to n2 iff ref1's content
// is (identity-equal to) o1. Here ref1 is always an mcas transaction's
// status AREF and o1 is always undecided; rdcss is mcas's exclusive,
// unexported building block for installing its own descriptor
// conditionally.
type rdcssDescriptor struct {
	statusRef *aref.AREF[status]
	o1        status
	ref2      aref.Ref
	o2        aref.Slot
	n2        aref.Slot
}

func (*rdcssDescriptor) isAREFSlot() {}

// Complete swings ref2 to n2 if the condition held at some point during
// this descriptor's lifetime, otherwise back to o2. Idempotent: a
// racing helper may already have performed either swing.
func (d *rdcssDescriptor) Complete() {
	v := aref.Unbox[status](d.statusRef.RawRead())
	var self aref.Slot = d
	if v == d.o1 {
		d.ref2.CompareAndSwapRaw(self, d.n2)
	} else {
		d.ref2.CompareAndSwapRaw(self, d.o2)
	}
}

// rdcssUpdate installs d at d.ref2 conditional on d.ref2 currently
// holding d.o2, helping any other rdcssDescriptor it finds in the way,
// and returns the pre-existing contents it observed -- this is how the
// caller (mcas's Phase 1) learns which foreign descriptor, if any,
// blocked the install.
func rdcssUpdate(d *rdcssDescriptor) aref.Slot {
	var self aref.Slot = d
	for {
		observed := d.ref2.CompareAndSwapRaw(d.o2, self)
		if other, ok := observed.(*rdcssDescriptor); ok {
			other.Complete()
			continue
		}
		if observed == d.o2 {
			d.Complete()
		}
		return observed
	}
}
