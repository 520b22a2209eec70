package health

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marlonbarreto-git/stratus-payment-gateway/internal/model"
	"github.com/marlonbarreto-git/stratus-payment-gateway/internal/processor"
)

func newTestMonitor(t *testing.T, handler http.HandlerFunc) (*Monitor, *processor.State) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client := processor.NewClient(model.ProcessorDefault, srv.URL)
	m := NewMonitorWithInterval(client, 10*time.Millisecond, time.Second)
	return m, client.State()
}

func TestMonitor_ProbeHealthy(t *testing.T) {
	m, state := newTestMonitor(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"failing":false,"minResponseTime":120}`))
	})

	state.SetHealthy(false)
	m.probe(context.Background())

	assert.True(t, state.Healthy())
	assert.Equal(t, 120*time.Millisecond, state.MinLatency())
}

func TestMonitor_ProbeFailingBody(t *testing.T) {
	m, state := newTestMonitor(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"failing":true,"minResponseTime":900}`))
	})

	m.probe(context.Background())

	assert.False(t, state.Healthy())
	// Latency is still updated from a well-formed response.
	assert.Equal(t, 900*time.Millisecond, state.MinLatency())
}

func TestMonitor_ProbeErrorsKeepLatency(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			"non-2xx status",
			func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
		},
		{
			"garbage body",
			func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"failing":`))
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, state := newTestMonitor(t, tt.handler)
			state.SetMinLatencyMS(250)

			m.probe(context.Background())

			assert.False(t, state.Healthy())
			assert.Equal(t, 250*time.Millisecond, state.MinLatency(),
				"latency hint must survive a failed probe")
		})
	}
}

func TestMonitor_ProbeTransportError(t *testing.T) {
	client := processor.NewClient(model.ProcessorFallback, "http://127.0.0.1:1")
	m := NewMonitorWithInterval(client, 10*time.Millisecond, 100*time.Millisecond)

	m.probe(context.Background())

	assert.False(t, client.State().Healthy())
}

func TestMonitor_RunProbesOnCadence(t *testing.T) {
	var probes atomic.Int64
	m, state := newTestMonitor(t, func(w http.ResponseWriter, r *http.Request) {
		probes.Add(1)
		w.Write([]byte(`{"failing":false,"minResponseTime":5}`))
	})
	state.SetHealthy(false)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	require.Eventually(t, func() bool {
		return probes.Load() >= 2 && state.Healthy()
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("monitor did not stop on cancellation")
	}
}

func TestMonitor_RecoveryAfterOutage(t *testing.T) {
	var failing atomic.Bool
	failing.Store(true)

	m, state := newTestMonitor(t, func(w http.ResponseWriter, r *http.Request) {
		if failing.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"failing":false,"minResponseTime":10}`))
	})

	m.probe(context.Background())
	require.False(t, state.Healthy())

	failing.Store(false)
	m.probe(context.Background())
	assert.True(t, state.Healthy())
	assert.Equal(t, 10*time.Millisecond, state.MinLatency())
}
