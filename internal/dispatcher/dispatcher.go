// Package dispatcher drains the intake queue and drives each payment to a
// terminal outcome on one of the downstream processors.
package dispatcher

import (
	"context"
	"log/slog"
	"time"

	"github.com/marlonbarreto-git/stratus-payment-gateway/internal/config"
	"github.com/marlonbarreto-git/stratus-payment-gateway/internal/ledger"
	"github.com/marlonbarreto-git/stratus-payment-gateway/internal/model"
	"github.com/marlonbarreto-git/stratus-payment-gateway/internal/processor"
	"github.com/marlonbarreto-git/stratus-payment-gateway/internal/queue"
)

// Dispatcher is the single consumer of the intake queue. Targets are held in
// fixed preference order: the default processor scores better, so it is
// always tried first even when the fallback looks healthier.
type Dispatcher struct {
	queue   *queue.Queue
	ledger  *ledger.Ledger
	targets []*processor.Client

	idleSleep     time.Duration
	commitRetries int
	commitBackoff time.Duration
}

// New creates a dispatcher over the given targets, which must be in
// preference order (default first).
func New(q *queue.Queue, l *ledger.Ledger, targets []*processor.Client) *Dispatcher {
	return &Dispatcher{
		queue:         q,
		ledger:        l,
		targets:       targets,
		idleSleep:     config.IdleSleep,
		commitRetries: config.CommitRetries,
		commitBackoff: config.CommitRetryBackoff,
	}
}

// Run consumes the queue until ctx is cancelled. While every target is
// unhealthy nothing is dequeued, so queued payments keep their order instead
// of churning through guaranteed failures.
func (d *Dispatcher) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		if !d.anyHealthy() {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(d.idleSleep):
			}
			continue
		}

		req, err := d.queue.Dequeue(ctx)
		if err != nil {
			return err
		}

		if !d.dispatch(ctx, req) {
			// Every attempt failed; back to the tail for a later pass.
			d.queue.Enqueue(req)
			slog.Debug("payment_requeued",
				"correlation_id", req.CorrelationID,
				"queue_len", d.queue.Len(),
			)
		}
	}
}

func (d *Dispatcher) anyHealthy() bool {
	for _, t := range d.targets {
		if t.State().Healthy() {
			return true
		}
	}
	return false
}

// dispatch tries the targets in preference order, skipping unhealthy ones.
// It returns true once a target settles the payment.
func (d *Dispatcher) dispatch(ctx context.Context, req model.PaymentRequest) bool {
	for _, target := range d.targets {
		if !target.State().Healthy() {
			continue
		}
		if d.sendAndRecord(ctx, target, req) {
			return true
		}
	}
	return false
}

// sendAndRecord performs one attempt against one processor: pace by the
// processor's reported latency, stamp the dispatch timestamp, submit, and on
// a terminal response commit the record to this replica's shard.
func (d *Dispatcher) sendAndRecord(ctx context.Context, target *processor.Client, req model.PaymentRequest) bool {
	state := target.State()

	// Soft pacing: a processor that just reported it is slow is not helped
	// by being hammered faster than its own floor.
	if pace := state.MinLatency(); pace > 0 {
		select {
		case <-ctx.Done():
			return false
		case <-time.After(pace):
		}
	}

	req.RequestedAtMS = time.Now().UTC().UnixMilli()

	sendCtx, cancel := context.WithTimeout(ctx, state.MinLatency()+config.SendTimeoutSlack)
	outcome := target.Submit(sendCtx, req)
	cancel()

	if !outcome.Terminal() {
		// Cheap negative signal until the monitor's next probe. A successful
		// send never flips this back; the monitor stays the source of truth.
		state.SetHealthy(false)
		slog.Warn("send_failed",
			"correlation_id", req.CorrelationID,
			"processor", target.Kind().String(),
		)
		return false
	}

	rec := model.PaymentRecord{
		CorrelationID: req.CorrelationID,
		Amount:        req.Amount,
		RequestedAtMS: req.RequestedAtMS,
		Processor:     target.Kind(),
	}
	if err := d.commit(ctx, rec); err != nil {
		// The processor has counted this payment; re-posting it would double
		// count, so the record is dropped after the retries.
		slog.Error("commit_dropped",
			"correlation_id", req.CorrelationID,
			"processor", target.Kind().String(),
			"error", err,
		)
		return true
	}

	slog.Info("payment_settled",
		"correlation_id", req.CorrelationID,
		"processor", target.Kind().String(),
		"outcome", outcome.String(),
	)
	return true
}

// commit writes the record with bounded retries and doubling backoff.
func (d *Dispatcher) commit(ctx context.Context, rec model.PaymentRecord) error {
	backoff := d.commitBackoff
	var err error
	for attempt := 0; attempt < d.commitRetries; attempt++ {
		if err = d.ledger.Insert(rec); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return err
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return err
}
