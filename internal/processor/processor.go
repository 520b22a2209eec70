// Package processor wraps the two downstream payment-processor services:
// the HTTP client for payment submission and health probes, and the shared
// mutable health state both the monitor and the dispatcher act on.
package processor

import (
	"sync/atomic"
	"time"

	"github.com/marlonbarreto-git/stratus-payment-gateway/internal/model"
)

// State holds the live health hint for one processor. The health monitor
// writes it on every probe; the dispatcher writes healthy=false on a failed
// send and reads both fields on every attempt. The fields are hints, not
// guarantees, so plain last-writer-wins atomics are enough: a stale read only
// affects pacing, never correctness.
type State struct {
	kind         model.ProcessorKind
	healthy      atomic.Bool
	minLatencyMS atomic.Int64
}

// NewState creates a State that starts healthy with zero known latency.
func NewState(kind model.ProcessorKind) *State {
	s := &State{kind: kind}
	s.healthy.Store(true)
	return s
}

// Kind returns which processor this state describes.
func (s *State) Kind() model.ProcessorKind {
	return s.kind
}

// Healthy reports whether the processor is believed to accept payments.
func (s *State) Healthy() bool {
	return s.healthy.Load()
}

// SetHealthy overwrites the health hint.
func (s *State) SetHealthy(healthy bool) {
	s.healthy.Store(healthy)
}

// MinLatency returns the processor's last reported minimum response time.
func (s *State) MinLatency() time.Duration {
	return time.Duration(s.minLatencyMS.Load()) * time.Millisecond
}

// SetMinLatencyMS overwrites the latency hint.
func (s *State) SetMinLatencyMS(ms int64) {
	s.minLatencyMS.Store(ms)
}
