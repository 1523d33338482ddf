package exchanger_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aradzie/concurrency/exchanger"
)

func TestExchangeNilValueRejected(t *testing.T) {
	e := exchanger.New(nil)
	_, err := e.Exchange(context.Background(), nil)
	assert.ErrorIs(t, err, exchanger.ErrNilValue)
}

func TestExchangeTimesOutAlone(t *testing.T) {
	e := exchanger.New(nil)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	v, err := e.Exchange(ctx, "solo")
	assert.NoError(t, err)
	assert.Nil(t, v)
}

func TestExchangeTwoPartiesSwap(t *testing.T) {
	e := exchanger.New(nil)
	ctx := context.Background()

	type result struct {
		v   any
		err error
	}
	aCh := make(chan result, 1)
	bCh := make(chan result, 1)

	go func() {
		v, err := e.Exchange(ctx, "a-value")
		aCh <- result{v, err}
	}()
	go func() {
		v, err := e.Exchange(ctx, "b-value")
		bCh <- result{v, err}
	}()

	a := <-aCh
	b := <-bCh
	require.NoError(t, a.err)
	require.NoError(t, b.err)
	assert.Equal(t, "b-value", a.v)
	assert.Equal(t, "a-value", b.v)
}

func TestExchangeAlreadyCancelledContext(t *testing.T) {
	e := exchanger.New(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.Exchange(ctx, "v")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExchangeCancelWhileWaiting(t *testing.T) {
	e := exchanger.New(nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	var gotErr error
	go func() {
		_, gotErr = e.Exchange(ctx, "solo")
		close(done)
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case <-done:
		assert.ErrorIs(t, gotErr, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Exchange never returned after context cancellation")
	}
}
