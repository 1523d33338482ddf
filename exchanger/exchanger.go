// Package exchanger implements a non-blocking, timed single-slot
// rendez-vous between exactly two goroutines: each passes in a value
// and receives the other's.
package exchanger

import (
	"context"
	"sync/atomic"

	"github.com/pkg/errors"

	"github.com/aradzie/concurrency/metrics"
)

// ErrNilValue is returned when Exchange is called with a nil value --
// nil is reserved as the not-present/timeout sentinel, so a participant
// cannot also offer it.
var ErrNilValue = errors.New("exchanger: nil value not permitted")

// stamp is the state word of the exchanger's single cell.
type stamp int32

const (
	empty stamp = iota
	waiting
	busy
)

// slot is the atomic (value, stamp) pair a CAS swings between states.
// Go has no native double-word CAS over an arbitrary pointer+enum, so
// the pair is packed into one struct and swapped via
// atomic.Pointer[slot] -- the CAS is still a single machine word (the
// pointer to the struct), giving the same atomicity a double-word CAS
// over (value, stamp) would.
type slot struct {
	value any
	stamp stamp
}

// Exchanger is a single-slot, two-party exchange point. Construct one
// with New; the zero value is not usable.
type Exchanger struct {
	cell     atomic.Pointer[slot]
	recorder *metrics.Recorder
}

// New returns a ready Exchanger. recorder may be nil.
func New(recorder *metrics.Recorder) *Exchanger {
	e := &Exchanger{recorder: recorder}
	e.cell.Store(&slot{stamp: empty})
	return e
}

// doneOutcome translates a non-nil ctx.Err() into Exchange's two
// distinct done outcomes: a plain deadline is null-on-timeout, (nil,
// nil); any other reason (direct cancellation) is surfaced as an
// error.
func doneOutcome(err error) (any, error) {
	if errors.Is(err, context.DeadlineExceeded) {
		return nil, nil
	}
	return nil, err
}

// Exchange offers v and waits for a peer to also call Exchange, or for
// ctx to be done. On success it returns the peer's value. On ctx
// expiring before a peer arrives it returns (nil, nil), the
// null-on-timeout outcome. If ctx is already done, or becomes done
// while this goroutine still holds the waiting slot it published, for
// a reason other than a plain deadline, it returns that error, an
// interrupted outcome distinct from plain timeout.
func (e *Exchanger) Exchange(ctx context.Context, v any) (any, error) {
	if v == nil {
		return nil, ErrNilValue
	}

	for {
		if err := ctx.Err(); err != nil {
			return doneOutcome(err)
		}

		cur := e.cell.Load()
		switch cur.stamp {
		case empty:
			mine := &slot{value: v, stamp: waiting}
			if e.cell.CompareAndSwap(cur, mine) {
				peer, err := e.awaitBusy(ctx, mine)
				if err != nil {
					return nil, err
				}
				if peer == nil {
					e.recorder.IncExchangerTimeout()
				}
				return peer, nil
			}
		case waiting:
			mine := &slot{value: v, stamp: busy}
			if e.cell.CompareAndSwap(cur, mine) {
				return cur.value, nil
			}
		case busy:
			// Another pair is completing; retry after checking the
			// deadline on the next loop iteration.
		}
	}
}

// awaitBusy spin-waits for a peer to swing mine's stamp to busy, then
// reads the peer's value and resets the cell to empty. It returns
// (nil, nil) on ctx expiring with no peer, or (nil, err) if ctx is done
// for a reason other than a clean deadline -- Exchange's caller sees
// null on timeout either way, but a directly-cancelled context is
// surfaced as an error since it is not a timeout the caller scheduled.
func (e *Exchanger) awaitBusy(ctx context.Context, mine *slot) (any, error) {
	for {
		cur := e.cell.Load()
		if cur != mine {
			if cur.stamp == busy {
				peer := cur.value
				e.cell.CompareAndSwap(cur, &slot{stamp: empty})
				return peer, nil
			}
			// The cell moved on without us in a way the protocol does
			// not produce; nothing left for this call to exchange.
			return nil, nil
		}
		if err := ctx.Err(); err != nil {
			if e.cell.CompareAndSwap(mine, &slot{stamp: empty}) {
				return doneOutcome(err)
			}
			continue // a peer raced in between; the next load sees it
		}
	}
}
