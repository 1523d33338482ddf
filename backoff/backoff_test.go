package backoff_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aradzie/concurrency/backoff"
)

func TestNewClampsMinAndMax(t *testing.T) {
	b := backoff.New(0, -5, nil)
	assert.NotPanics(t, func() { b.Wait() })
}

func TestWaitDoesNotPanicWithNilRecorder(t *testing.T) {
	b := backoff.New(1, 8, nil)
	for i := 0; i < 10; i++ {
		b.Wait()
	}
}

func TestResetRestoresCeiling(t *testing.T) {
	b := backoff.New(1, 2, nil)
	b.Wait()
	b.Wait()
	b.Reset()
	// Reset should not panic and should allow further Wait calls.
	assert.NotPanics(t, func() { b.Wait() })
}
