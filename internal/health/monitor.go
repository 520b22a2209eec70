// Package health keeps each processor's live health hint up to date by
// polling its service-health endpoint on a fixed cadence.
package health

import (
	"context"
	"log/slog"
	"time"

	"github.com/marlonbarreto-git/stratus-payment-gateway/internal/config"
	"github.com/marlonbarreto-git/stratus-payment-gateway/internal/processor"
)

// Monitor polls one processor's health endpoint and writes the result into
// the processor's shared state. One Monitor runs per processor.
type Monitor struct {
	client   *processor.Client
	interval time.Duration
	timeout  time.Duration
}

// NewMonitor creates a monitor with the production cadence. The downstream
// rate-limits the health endpoint, so the interval must not be shortened.
func NewMonitor(client *processor.Client) *Monitor {
	return NewMonitorWithInterval(client, config.HealthProbeInterval, config.HealthProbeTimeout)
}

// NewMonitorWithInterval creates a monitor with custom timing for tests.
func NewMonitorWithInterval(client *processor.Client, interval, timeout time.Duration) *Monitor {
	return &Monitor{
		client:   client,
		interval: interval,
		timeout:  timeout,
	}
}

// Run probes on every tick until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			m.probe(ctx)
		}
	}
}

// probe performs a single health check. On success the processor's healthy
// flag and latency hint are overwritten; on any failure only the healthy flag
// is cleared, keeping the last known latency for pacing.
func (m *Monitor) probe(ctx context.Context) {
	probeCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	state := m.client.State()
	status, err := m.client.CheckHealth(probeCtx)
	if err != nil {
		state.SetHealthy(false)
		slog.Warn("probe_failed",
			"processor", state.Kind().String(),
			"error", err,
		)
		return
	}

	state.SetHealthy(!status.Failing)
	state.SetMinLatencyMS(status.MinResponseTime)

	slog.Debug("probe_ok",
		"processor", state.Kind().String(),
		"failing", status.Failing,
		"min_response_time_ms", status.MinResponseTime,
	)
}
