// Package metrics defines optional Prometheus instrumentation for the
// lock-free primitives in this module. Every producer (mcas, backoff,
// exchanger, stack) accepts a *Recorder; a nil Recorder is a valid, free no-op, so
// the library carries zero Prometheus cost until an embedding service
// opts in by constructing one and registering it.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Recorder bundles the collectors this module knows how to populate.
// Construct one with NewRecorder and register it with a
// prometheus.Registerer of the embedding service's choosing; this
// package never registers itself with the global default registry.
type Recorder struct {
	CASNAttempts        prometheus.Counter
	CASNSucceeded       prometheus.Counter
	CASNFailed          prometheus.Counter
	CASNHelped          prometheus.Counter
	BackoffInvocations  prometheus.Counter
	StackEliminations   prometheus.Counter
	StackCombinerRounds prometheus.Counter
	ExchangerTimeouts   prometheus.Counter
}

// NewRecorder builds a Recorder with the given namespace prefixed to
// every metric name, e.g. NewRecorder("myapp") yields
// myapp_concurrency_casn_attempts_total and friends.
func NewRecorder(namespace string) *Recorder {
	counter := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "concurrency",
			Name:      name,
			Help:      help,
		})
	}
	return &Recorder{
		CASNAttempts:        counter("casn_attempts_total", "MCAS transactions attempted."),
		CASNSucceeded:       counter("casn_succeeded_total", "MCAS transactions that committed."),
		CASNFailed:          counter("casn_failed_total", "MCAS transactions that rolled back."),
		CASNHelped:          counter("casn_helped_total", "Foreign MCAS descriptors helped to completion."),
		BackoffInvocations:  counter("backoff_invocations_total", "Backoff.Wait calls across all contended loops."),
		StackEliminations:   counter("stack_eliminations_total", "Push/pop pairs eliminated off the stack's elimination array."),
		StackCombinerRounds: counter("stack_combiner_rounds_total", "Flat-combining rounds executed by a combiner."),
		ExchangerTimeouts:   counter("exchanger_timeouts_total", "Exchange calls that returned on a deadline with no peer."),
	}
}

// Collectors returns every collector in the Recorder, for bulk
// registration: reg.MustRegister(r.Collectors()...).
func (r *Recorder) Collectors() []prometheus.Collector {
	if r == nil {
		return nil
	}
	return []prometheus.Collector{
		r.CASNAttempts, r.CASNSucceeded, r.CASNFailed, r.CASNHelped,
		r.BackoffInvocations, r.StackEliminations, r.StackCombinerRounds,
		r.ExchangerTimeouts,
	}
}

// The Inc* methods are the nil-safe entry points producer packages
// call directly; a nil *Recorder receiver is valid and does nothing.

func (r *Recorder) IncCASNAttempt() {
	if r != nil {
		r.CASNAttempts.Inc()
	}
}

func (r *Recorder) IncCASNSucceeded() {
	if r != nil {
		r.CASNSucceeded.Inc()
	}
}

func (r *Recorder) IncCASNFailed() {
	if r != nil {
		r.CASNFailed.Inc()
	}
}

func (r *Recorder) IncCASNHelped() {
	if r != nil {
		r.CASNHelped.Inc()
	}
}

func (r *Recorder) IncBackoff() {
	if r != nil {
		r.BackoffInvocations.Inc()
	}
}

func (r *Recorder) IncElimination() {
	if r != nil {
		r.StackEliminations.Inc()
	}
}

func (r *Recorder) IncCombinerRound() {
	if r != nil {
		r.StackCombinerRounds.Inc()
	}
}

func (r *Recorder) IncExchangerTimeout() {
	if r != nil {
		r.ExchangerTimeouts.Inc()
	}
}
