package processor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/marlonbarreto-git/stratus-payment-gateway/internal/model"
)

// SendOutcome classifies one payment submission attempt.
type SendOutcome int

const (
	// SendAccepted is a 2xx from the processor.
	SendAccepted SendOutcome = iota
	// SendRejected is the distinguished 422: the processor acknowledged the
	// payment as invalid and will never retry it. It has still counted it,
	// so the gateway records it like an acceptance.
	SendRejected
	// SendFailed is everything else: other statuses, transport errors,
	// timeouts. The payment may be retried on another processor or requeued.
	SendFailed
)

// Terminal reports whether the outcome settles the payment.
func (o SendOutcome) Terminal() bool {
	return o == SendAccepted || o == SendRejected
}

func (o SendOutcome) String() string {
	switch o {
	case SendAccepted:
		return "accepted"
	case SendRejected:
		return "rejected"
	default:
		return "failed"
	}
}

// HealthStatus is the body of GET /payments/service-health.
type HealthStatus struct {
	Failing         bool  `json:"failing"`
	MinResponseTime int64 `json:"minResponseTime"`
}

type paymentPayload struct {
	CorrelationID string          `json:"correlationId"`
	Amount        decimal.Decimal `json:"amount"`
	RequestedAt   string          `json:"requestedAt"`
}

// Client talks to one downstream processor.
type Client struct {
	baseURL    string
	state      *State
	httpClient *http.Client
}

// NewClient creates a client for the processor at baseURL. Request deadlines
// come from per-call contexts, not from the http.Client.
func NewClient(kind model.ProcessorKind, baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		state:   NewState(kind),
		httpClient: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        500,
				MaxIdleConnsPerHost: 100,
				IdleConnTimeout:     60 * time.Second,
				DisableCompression:  true,
			},
		},
	}
}

// Kind returns which processor this client targets.
func (c *Client) Kind() model.ProcessorKind {
	return c.state.kind
}

// State returns the shared health state for this processor.
func (c *Client) State() *State {
	return c.state
}

// Submit POSTs the payment and classifies the response. The request must
// already carry its dispatch timestamp.
func (c *Client) Submit(ctx context.Context, req model.PaymentRequest) SendOutcome {
	payload := paymentPayload{
		CorrelationID: req.CorrelationID,
		Amount:        req.Amount,
		RequestedAt:   model.FormatRequestedAt(req.RequestedAtMS),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return SendFailed
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/payments", bytes.NewReader(body))
	if err != nil {
		return SendFailed
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return SendFailed
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return SendAccepted
	case resp.StatusCode == http.StatusUnprocessableEntity:
		return SendRejected
	default:
		return SendFailed
	}
}

// CheckHealth probes the processor's health endpoint. Any transport error,
// non-2xx status, or undecodable body is returned as an error.
func (c *Client) CheckHealth(ctx context.Context) (HealthStatus, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/payments/service-health", nil)
	if err != nil {
		return HealthStatus{}, fmt.Errorf("build health request: %w", err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return HealthStatus{}, fmt.Errorf("health probe: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body)
		return HealthStatus{}, fmt.Errorf("health probe: unexpected status %d", resp.StatusCode)
	}

	var status HealthStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return HealthStatus{}, fmt.Errorf("decode health response: %w", err)
	}
	return status, nil
}
