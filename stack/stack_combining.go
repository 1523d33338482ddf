package stack

import (
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/aradzie/concurrency/metrics"
)

// DefaultCombineRounds is the number of passes a combiner makes over
// the request queue before yielding the combiner lock back. Empirical;
// kept tunable rather than baked in as a magic constant.
const DefaultCombineRounds = 20

type flatOpKind int32

const (
	flatOpPush flatOpKind = iota
	flatOpPop
	flatOpPeek
)

// flatOp is a single thread's request, linked into the combiner's
// lock-free request queue by prepend; ready is set exactly once, by
// whichever thread applies this op to the private stack.
type flatOp[T any] struct {
	kind   flatOpKind
	value  T
	result T
	found  bool
	ready  atomic.Bool
	next   atomic.Pointer[flatOp[T]]
}

// Combining is a flat-combining stack: threads publish an
// Op into a singleton lock-free request queue; one thread at a time
// becomes the combiner, applies up to DefaultCombineRounds passes over the queue to
// a private array-backed stack, and marks each op ready. Non-combiners
// spin on their own op's ready flag, yielding between checks.
type Combining[T any] struct {
	requests  atomic.Pointer[flatOp[T]]
	combining sync.Mutex
	data      []T
	rounds    int
	recorder  *metrics.Recorder
}

// NewCombining returns an empty Combining stack using
// DefaultCombineRounds. recorder may be nil.
func NewCombining[T any](recorder *metrics.Recorder) *Combining[T] {
	return &Combining[T]{rounds: DefaultCombineRounds, recorder: recorder}
}

func (s *Combining[T]) enqueue(op *flatOp[T]) {
	for {
		old := s.requests.Load()
		op.next.Store(old)
		if s.requests.CompareAndSwap(old, op) {
			return
		}
	}
}

// submit enqueues op and either drives combining rounds (if this
// goroutine wins the combiner lock) or spins on op.ready, yielding.
func (s *Combining[T]) submit(op *flatOp[T]) {
	s.enqueue(op)
	for !op.ready.Load() {
		if s.combining.TryLock() {
			s.combine()
			s.combining.Unlock()
			continue
		}
		runtime.Gosched()
	}
}

// combine runs up to s.rounds passes, each detaching the queue's
// current chain and applying every op on it to the private stack;
// it returns early once a pass finds nothing left to do.
func (s *Combining[T]) combine() {
	for round := 0; round < s.rounds; round++ {
		head := s.requests.Swap(nil)
		if head == nil {
			return
		}
		s.recorder.IncCombinerRound()
		for op := head; op != nil; {
			next := op.next.Load()
			s.apply(op)
			op.ready.Store(true)
			op = next
		}
	}
}

func (s *Combining[T]) apply(op *flatOp[T]) {
	switch op.kind {
	case flatOpPush:
		s.data = append(s.data, op.value)
	case flatOpPop:
		if n := len(s.data); n > 0 {
			op.result = s.data[n-1]
			s.data = s.data[:n-1]
			op.found = true
		}
	case flatOpPeek:
		if n := len(s.data); n > 0 {
			op.result = s.data[n-1]
			op.found = true
		}
	}
}

// Push adds v to the top of the stack.
func (s *Combining[T]) Push(v T) {
	if isNil(v) {
		panic(ErrNilValue)
	}
	op := &flatOp[T]{kind: flatOpPush, value: v}
	s.submit(op)
}

// Peek returns the current top value without removing it.
func (s *Combining[T]) Peek() (T, bool) {
	op := &flatOp[T]{kind: flatOpPeek}
	s.submit(op)
	return op.result, op.found
}

// Pop removes and returns the current top value.
func (s *Combining[T]) Pop() (T, bool) {
	op := &flatOp[T]{kind: flatOpPop}
	s.submit(op)
	return op.result, op.found
}
