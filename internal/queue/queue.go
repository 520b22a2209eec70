// Package queue provides the unbounded FIFO between the HTTP intake and the
// dispatcher. Producers are the POST /payments handlers; the dispatcher is
// the single consumer. Entries are not persisted: on shutdown anything still
// queued is lost, which is the accepted failure mode for accepted-but-not-yet
// dispatched payments.
package queue

import (
	"context"
	"sync"

	"github.com/marlonbarreto-git/stratus-payment-gateway/internal/model"
)

// Queue is an unbounded multi-producer FIFO with a single blocking consumer.
type Queue struct {
	mu    sync.Mutex
	items []model.PaymentRequest

	// wake has capacity 1: a pending signal means "items may be available".
	wake chan struct{}
}

// New creates an empty queue.
func New() *Queue {
	return &Queue{
		wake: make(chan struct{}, 1),
	}
}

// Enqueue appends a payment at the tail. It never blocks; intake latency must
// not depend on downstream availability. Requeueing a failed payment is the
// same tail append.
func (q *Queue) Enqueue(req model.PaymentRequest) {
	q.mu.Lock()
	q.items = append(q.items, req)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// Dequeue removes and returns the head, blocking until an item is available
// or ctx is cancelled. It must only be called from one goroutine.
func (q *Queue) Dequeue(ctx context.Context) (model.PaymentRequest, error) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			req := q.items[0]
			q.items = q.items[1:]
			if len(q.items) == 0 {
				// Let the backing array be reclaimed between bursts.
				q.items = nil
			}
			q.mu.Unlock()
			return req, nil
		}
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return model.PaymentRequest{}, ctx.Err()
		case <-q.wake:
		}
	}
}

// Len reports the number of queued payments.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
