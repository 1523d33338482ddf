// Copyright 2020 Nathan Taylor (nbtaylor@gmail.com)
//
// Permission is hereby granted, free of charge, to any person obtaining a copy of
// this software and associated documentation files (the "Software"), to deal in
// the Software without restriction, including without limitation the rights to
// use, copy, modify, merge, publish, distribute, sublicense, and/or sell copies
// of the Software, and to permit persons to whom the Software is furnished to do
// so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

// Package backoff implements a randomized exponential busy-wait, the
// contention-reduction primitive consulted by CAS retry loops elsewhere
// in this module (list, stack).
package backoff

import (
	"math/rand"
	"runtime"
	"time"

	"github.com/aradzie/concurrency/metrics"
)

// DefaultSpinScale is the number of no-op spin iterations a single unit
// of sampled delay expands to on a multiprocessor. Empirical; kept
// tunable per the source design notes rather than baked in as a magic
// constant.
const DefaultSpinScale = 10000

// Backoff is a per-call-site randomized exponential backoff over a step
// count, not wall-clock time: Wait samples a delay in [0, limit) steps,
// doubles limit up to max, then spins delay*DefaultSpinScale no-op
// iterations. It is not safe for concurrent use by multiple goroutines
// against the same instance; callers keep one Backoff per contended
// retry loop (a local variable).
type Backoff struct {
	min      int
	max      int
	limit    int
	rng      *rand.Rand
	recorder *metrics.Recorder
}

// New returns a Backoff whose step ceiling starts at min and doubles up
// to max on every Wait. recorder may be nil.
func New(min, max int, recorder *metrics.Recorder) *Backoff {
	if min < 1 {
		min = 1
	}
	if max < min {
		max = min
	}
	return &Backoff{
		min:      min,
		max:      max,
		limit:    min,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		recorder: recorder,
	}
}

// Wait samples a delay in [0, limit), doubles limit (capped at max),
// then either busy-spins (multiprocessor) or yields the scheduler
// (uniprocessor, where spinning only steals time from the goroutine
// that could make progress).
func (b *Backoff) Wait() {
	b.recorder.IncBackoff()

	delay := b.rng.Intn(b.limit)
	b.grow()

	if runtime.GOMAXPROCS(0) == 1 {
		runtime.Gosched()
		return
	}
	spin(delay * DefaultSpinScale)
}

func (b *Backoff) grow() {
	next := b.limit * 2
	if next > b.max {
		next = b.max
	}
	b.limit = next
}

// Reset restores the backoff ceiling to its initial minimum, for reuse
// across independent contention episodes.
func (b *Backoff) Reset() {
	b.limit = b.min
}

// spin busy-waits n no-op iterations. The volatile-ish dependency chain
// (each step reads the previous) keeps the compiler from folding the
// loop away.
func spin(n int) {
	acc := 1
	for i := 0; i < n; i++ {
		acc = acc*31 + i
	}
	runtime.KeepAlive(acc)
}
