package mcas_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aradzie/concurrency/aref"
	"github.com/aradzie/concurrency/mcas"
)

func TestCASNSingleCellCommits(t *testing.T) {
	a := aref.New(1)
	ok := mcas.CASN(mcas.Cell(a, 1, 2), nil)
	assert.True(t, ok)
	assert.Equal(t, 2, a.Get())
}

func TestCASNFailsOnStaleExpectation(t *testing.T) {
	a := aref.New(1)
	ok := mcas.CASN(mcas.Cell(a, 99, 2), nil)
	assert.False(t, ok)
	assert.Equal(t, 1, a.Get())
}

func TestCASNMultiCellAllOrNothing(t *testing.T) {
	a := aref.New(1)
	b := aref.New("x")
	c := aref.New(true)

	ok := mcas.CASN(mcas.Cell(a, 1, 2,
		mcas.Cell(b, "x", "y",
			mcas.Cell(c, true, false))), nil)
	require.True(t, ok)
	assert.Equal(t, 2, a.Get())
	assert.Equal(t, "y", b.Get())
	assert.Equal(t, false, c.Get())
}

func TestCASNMultiCellRollsBackEntirelyOnOneStaleCell(t *testing.T) {
	a := aref.New(1)
	b := aref.New("x")

	ok := mcas.CASN(mcas.Cell(a, 1, 2,
		mcas.Cell(b, "stale-expectation", "y")), nil)
	require.False(t, ok)
	assert.Equal(t, 1, a.Get())
	assert.Equal(t, "x", b.Get())
}

func TestCASNRepeatedWithSameExpectedValuesSecondCallFails(t *testing.T) {
	r1 := aref.New("v1")
	r2 := aref.New("v2")
	r3 := aref.New("v3")

	chain := func() *mcas.CellList {
		return mcas.Cell(r1, "v1", "v1'",
			mcas.Cell(r2, "v2", "v2'",
				mcas.Cell(r3, "v3", "v3'")))
	}

	require.True(t, mcas.CASN(chain(), nil))
	assert.False(t, mcas.CASN(chain(), nil))

	assert.Equal(t, "v1'", r1.Get())
	assert.Equal(t, "v2'", r2.Get())
	assert.Equal(t, "v3'", r3.Get())
}

func TestCASNDuplicateRefPanics(t *testing.T) {
	a := aref.New(1)
	assert.PanicsWithValue(t, aref.ErrDuplicateRef, func() {
		mcas.CASN(mcas.Cell(a, 1, 2, mcas.Cell(a, 1, 3)), nil)
	})
}

func TestCASNConcurrentTransactionsOnSharedCellsConverge(t *testing.T) {
	a := aref.New(0)
	b := aref.New(0)

	const rounds = 200
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		for i := 0; i < rounds; i++ {
			for {
				av, bv := a.Get(), b.Get()
				if mcas.CASN(mcas.Cell(a, av, av+1, mcas.Cell(b, bv, bv+1)), nil) {
					break
				}
			}
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < rounds; i++ {
			for {
				av, bv := a.Get(), b.Get()
				if mcas.CASN(mcas.Cell(b, bv, bv+1, mcas.Cell(a, av, av+1)), nil) {
					break
				}
			}
		}
	}()
	wg.Wait()

	assert.Equal(t, 2*rounds, a.Get())
	assert.Equal(t, 2*rounds, b.Get())
}
