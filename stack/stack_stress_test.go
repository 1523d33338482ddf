package stack_test

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/aradzie/concurrency/stack"
	"github.com/aradzie/concurrency/threadid"
)

// producerConsumerMultisetPreserved runs scenario S6 against s: one
// goroutine pushes n distinct strings while another pops until it has
// seen them all; the popped multiset must equal the pushed multiset.
func producerConsumerMultisetPreserved(t *testing.T, s stack.Stack[string], n int) {
	t.Helper()

	want := make([]string, n)
	for i := range want {
		want[i] = strconv.Itoa(i)
	}

	var mu sync.Mutex
	var got []string

	g, _ := errgroup.WithContext(context.Background())
	g.Go(func() error {
		for _, v := range want {
			s.Push(v)
		}
		return nil
	})
	g.Go(func() error {
		for {
			mu.Lock()
			done := len(got) >= n
			mu.Unlock()
			if done {
				return nil
			}
			v, ok := s.Pop()
			if !ok {
				continue
			}
			mu.Lock()
			got = append(got, v)
			mu.Unlock()
		}
	})
	require.NoError(t, g.Wait())

	sort.Strings(want)
	sort.Strings(got)
	assert.Equal(t, want, got)
}

// TestProducerConsumerMultisetPreserved is scenario S6 against the
// plain Treiber stack.
func TestProducerConsumerMultisetPreserved(t *testing.T) {
	if testing.Short() {
		t.Skip("stress test skipped in -short mode")
	}
	producerConsumerMultisetPreserved(t, stack.NewPlain[string](), 10000)
}

// TestEliminationProducerConsumerMultisetPreserved is scenario S6
// against the elimination-backoff stack specifically: a sustained
// single-producer/single-consumer run keeps push and pop racing on top,
// so every push that loses that race sends its value through the
// collision array, which is where a torn (state, value) handoff would
// silently drop one.
func TestEliminationProducerConsumerMultisetPreserved(t *testing.T) {
	if testing.Short() {
		t.Skip("stress test skipped in -short mode")
	}
	s := stack.NewElimination[string](1, 8, threadid.NewAllocator(2), nil)
	producerConsumerMultisetPreserved(t, s, 10000)
}

// TestEliminationConcurrentProducersConsumersMultisetPreserved drives
// several concurrent pushers and poppers against one elimination stack
// at once, maximizing collision-array contention rather than relying
// on just one producer/consumer pair to land on the same slot.
func TestEliminationConcurrentProducersConsumersMultisetPreserved(t *testing.T) {
	if testing.Short() {
		t.Skip("stress test skipped in -short mode")
	}

	const producers = 4
	const perProducer = 2500
	const n = producers * perProducer

	s := stack.NewElimination[string](1, 8, threadid.NewAllocator(producers+producers), nil)

	want := make([]string, 0, n)
	batches := make([][]string, producers)
	for p := 0; p < producers; p++ {
		batch := make([]string, perProducer)
		for i := range batch {
			batch[i] = strconv.Itoa(p*perProducer + i)
		}
		batches[p] = batch
		want = append(want, batch...)
	}

	var mu sync.Mutex
	got := make([]string, 0, n)

	g, _ := errgroup.WithContext(context.Background())
	for p := 0; p < producers; p++ {
		batch := batches[p]
		g.Go(func() error {
			for _, v := range batch {
				s.Push(v)
			}
			return nil
		})
	}
	for c := 0; c < producers; c++ {
		g.Go(func() error {
			for {
				mu.Lock()
				done := len(got) >= n
				mu.Unlock()
				if done {
					return nil
				}
				v, ok := s.Pop()
				if !ok {
					continue
				}
				mu.Lock()
				got = append(got, v)
				mu.Unlock()
			}
		})
	}
	require.NoError(t, g.Wait())

	sort.Strings(want)
	sort.Strings(got)
	assert.Equal(t, want, got)
}
