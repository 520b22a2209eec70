package model

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Summary amounts go over the wire as JSON numbers, not strings.
	decimal.MarshalJSONWithoutQuotes = true
}

// ProcessorKind identifies one of the two downstream payment processors.
type ProcessorKind int

const (
	ProcessorDefault ProcessorKind = iota
	ProcessorFallback
)

func (k ProcessorKind) String() string {
	switch k {
	case ProcessorDefault:
		return "default"
	case ProcessorFallback:
		return "fallback"
	default:
		return "unknown"
	}
}

// RequestedAtLayout is the timestamp format the downstream processors expect:
// millisecond precision, UTC, zulu suffix, no offset.
const RequestedAtLayout = "2006-01-02T15:04:05.000Z"

// FormatRequestedAt renders a Unix-epoch-milliseconds timestamp in the
// downstream wire format.
func FormatRequestedAt(ms int64) string {
	return time.UnixMilli(ms).UTC().Format(RequestedAtLayout)
}

// PaymentRequest is an in-flight payment on the intake queue.
//
// RequestedAtMS is zero until the dispatcher stamps it immediately before the
// downstream POST. The timestamp that matters for summaries is the one the
// processor saw, not the one the caller hit our endpoint with.
type PaymentRequest struct {
	CorrelationID string          `json:"correlationId"`
	Amount        decimal.Decimal `json:"amount"`
	RequestedAtMS int64           `json:"-"`
}

// PaymentRecord is a committed row in a ledger shard. A record exists if and
// only if a processor returned a terminal response (2xx or 422) for exactly
// this (correlationId, amount, requestedAt) triple.
type PaymentRecord struct {
	CorrelationID string
	Amount        decimal.Decimal
	RequestedAtMS int64
	Processor     ProcessorKind
}

// ProcessorSummary aggregates the records attributed to one processor.
type ProcessorSummary struct {
	TotalRequests int64           `json:"totalRequests"`
	TotalAmount   decimal.Decimal `json:"totalAmount"`
}

// SummaryResponse is the payload of GET /payments-summary.
type SummaryResponse struct {
	Default  ProcessorSummary `json:"default"`
	Fallback ProcessorSummary `json:"fallback"`
}

// ZeroSummary returns a fully-populated all-zeros summary.
func ZeroSummary() SummaryResponse {
	return SummaryResponse{
		Default:  ProcessorSummary{TotalAmount: decimal.Zero},
		Fallback: ProcessorSummary{TotalAmount: decimal.Zero},
	}
}
