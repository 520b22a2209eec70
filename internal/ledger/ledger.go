package ledger

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/marlonbarreto-git/stratus-payment-gateway/internal/model"
)

// ErrNoShard is returned on writes when this replica's own shard failed to
// open at startup. The replica still serves summaries from the peer shard.
var ErrNoShard = errors.New("ledger: own shard unavailable")

// PeerReader produces the peer replica's shard totals for a summary query.
// Two implementations exist: FilePeer scans the peer's shard file directly
// (only possible while the peer process is not holding its write lock), and
// HTTPPeer asks the live peer replica over its internal summary endpoint.
type PeerReader interface {
	Summarize(ctx context.Context, fromMS, toMS int64) (model.SummaryResponse, error)
}

// Ledger is a replica's view of the two-shard payment ledger: exclusive
// writes to its own shard, reads of both.
type Ledger struct {
	own  *Shard
	peer PeerReader
}

// New builds a Ledger. own may be nil when the shard could not be created;
// inserts then fail with ErrNoShard and summaries cover the peer only.
func New(own *Shard, peer PeerReader) *Ledger {
	return &Ledger{own: own, peer: peer}
}

// Close releases the own shard, if any.
func (l *Ledger) Close() error {
	if l.own == nil {
		return nil
	}
	return l.own.Close()
}

// Insert commits a settled payment to this replica's shard.
func (l *Ledger) Insert(rec model.PaymentRecord) error {
	if l.own == nil {
		return ErrNoShard
	}
	return l.own.Insert(rec)
}

// Purge wipes this replica's shard. The peer shard is never touched; the
// harness purges each replica separately.
func (l *Ledger) Purge() error {
	if l.own == nil {
		return ErrNoShard
	}
	return l.own.Purge()
}

// OwnSummary aggregates only this replica's shard. It backs the internal
// endpoint the peer replica queries, so it must not recurse into the peer.
func (l *Ledger) OwnSummary(fromMS, toMS int64) model.SummaryResponse {
	if l.own == nil {
		return model.ZeroSummary()
	}
	sum, err := l.own.SummarizeRange(fromMS, toMS)
	if err != nil {
		slog.Error("own_shard_scan_failed", "path", l.own.Path(), "error", err)
		return model.ZeroSummary()
	}
	return sum
}

// Summary aggregates both shards over [fromMS, toMS], inclusive. A shard
// that is missing or unreachable contributes zeros; the query itself never
// fails.
func (l *Ledger) Summary(ctx context.Context, fromMS, toMS int64) model.SummaryResponse {
	ownSum := model.ZeroSummary()
	peerSum := model.ZeroSummary()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ownSum = l.OwnSummary(fromMS, toMS)
		return nil
	})
	g.Go(func() error {
		if l.peer == nil {
			return nil
		}
		sum, err := l.peer.Summarize(gctx, fromMS, toMS)
		if err != nil {
			slog.Debug("peer_shard_unreadable", "error", err)
			return nil
		}
		peerSum = sum
		return nil
	})
	g.Wait()

	return merge(ownSum, peerSum)
}

func merge(a, b model.SummaryResponse) model.SummaryResponse {
	return model.SummaryResponse{
		Default: model.ProcessorSummary{
			TotalRequests: a.Default.TotalRequests + b.Default.TotalRequests,
			TotalAmount:   a.Default.TotalAmount.Add(b.Default.TotalAmount),
		},
		Fallback: model.ProcessorSummary{
			TotalRequests: a.Fallback.TotalRequests + b.Fallback.TotalRequests,
			TotalAmount:   a.Fallback.TotalAmount.Add(b.Fallback.TotalAmount),
		},
	}
}
