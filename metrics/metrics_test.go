package metrics_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	dto "github.com/prometheus/client_model/go"

	"github.com/aradzie/concurrency/metrics"
)

func TestNilRecorderMethodsAreNoOps(t *testing.T) {
	var r *metrics.Recorder
	assert.NotPanics(t, func() {
		r.IncCASNAttempt()
		r.IncCASNSucceeded()
		r.IncCASNFailed()
		r.IncCASNHelped()
		r.IncBackoff()
		r.IncElimination()
		r.IncCombinerRound()
		r.IncExchangerTimeout()
		r.Collectors()
	})
	assert.Nil(t, r.Collectors())
}

func TestNewRecorderCountersIncrement(t *testing.T) {
	r := metrics.NewRecorder("test")
	r.IncCASNAttempt()
	r.IncCASNAttempt()

	var pb dto.Metric
	err := r.CASNAttempts.Write(&pb)
	assert.NoError(t, err)
	assert.Equal(t, float64(2), pb.GetCounter().GetValue())
}

func TestCollectorsIncludesEveryCounter(t *testing.T) {
	r := metrics.NewRecorder("test")
	assert.Len(t, r.Collectors(), 8)
}
