package config

import (
	"os"
	"path/filepath"
	"time"
)

const (
	// HealthProbeInterval is the cadence of the downstream health probes.
	// The processors rate-limit /payments/service-health; do not shorten it.
	HealthProbeInterval = 5 * time.Second

	// HealthProbeTimeout is the per-probe request deadline.
	HealthProbeTimeout = 10 * time.Second

	// SendTimeoutSlack is added to a processor's reported minimum latency to
	// form the deadline of each downstream payment POST.
	SendTimeoutSlack = 500 * time.Millisecond

	// IdleSleep is how long the dispatcher waits before re-checking processor
	// health while both processors are down. It does not dequeue in that
	// state, which preserves ordering and avoids head-of-line thrashing.
	IdleSleep = 10 * time.Millisecond

	// CommitRetries is the number of ledger commit attempts after a terminal
	// processor response. Re-posting to the processor instead would
	// double-count, so after the last attempt the payment is dropped.
	CommitRetries = 3

	// CommitRetryBackoff is the initial backoff between commit attempts; it
	// doubles on each retry.
	CommitRetryBackoff = 10 * time.Millisecond
)

// Config holds the per-replica runtime configuration, read from the
// environment with sensible defaults for local runs.
type Config struct {
	ListenAddr           string
	DefaultProcessorURL  string
	FallbackProcessorURL string

	// BackendID selects which ledger shard this replica writes to ("1" or
	// "2"). Both shards live on a shared volume so either replica can read
	// both when answering summaries.
	BackendID      string
	OwnLedgerPath  string
	PeerLedgerPath string

	// PeerURL, when set, makes summary queries ask the live peer replica for
	// its shard totals over HTTP instead of scanning the peer's file. The
	// file scan only works while the peer process is not holding its write
	// lock.
	PeerURL string
}

// FromEnv builds a Config from the environment.
func FromEnv() Config {
	backendID := getEnv("BACKEND_ID", "1")
	if backendID != "1" && backendID != "2" {
		backendID = "1"
	}

	dir := getEnv("LEDGER_DIR", "temp")
	shard1 := filepath.Join(dir, "app1.db")
	shard2 := filepath.Join(dir, "app2.db")

	own, peer := shard1, shard2
	if backendID == "2" {
		own, peer = shard2, shard1
	}
	if explicit := os.Getenv("LEDGER_DATABASE"); explicit != "" {
		own = explicit
	}

	return Config{
		ListenAddr:           ":" + getEnv("PORT", "9999"),
		DefaultProcessorURL:  getEnv("PAYMENT_PROCESSOR_URL_DEFAULT", "http://localhost:8001"),
		FallbackProcessorURL: getEnv("PAYMENT_PROCESSOR_URL_FALLBACK", "http://localhost:8002"),
		BackendID:            backendID,
		OwnLedgerPath:        own,
		PeerLedgerPath:       peer,
		PeerURL:              os.Getenv("PEER_URL"),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
