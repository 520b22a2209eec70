// Package handler exposes the gateway's HTTP surface: payment intake, the
// merged summary, and the peer/harness endpoints around them.
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/marlonbarreto-git/stratus-payment-gateway/internal/ledger"
	"github.com/marlonbarreto-git/stratus-payment-gateway/internal/model"
	"github.com/marlonbarreto-git/stratus-payment-gateway/internal/queue"
)

// Handler holds HTTP handler dependencies.
type Handler struct {
	queue  *queue.Queue
	ledger *ledger.Ledger
}

// New creates a new Handler.
func New(q *queue.Queue, l *ledger.Ledger) *Handler {
	return &Handler{queue: q, ledger: l}
}

// RegisterRoutes registers all API routes on the given router.
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/payments", h.AcceptPayment).Methods(http.MethodPost)
	r.HandleFunc("/payments-summary", h.PaymentsSummary).Methods(http.MethodGet)
	r.HandleFunc("/purge-payments", h.PurgePayments).Methods(http.MethodPost)
	r.HandleFunc("/internal/payments-summary", h.OwnShardSummary).Methods(http.MethodGet)
	r.HandleFunc("/healthz", h.Healthz).Methods(http.MethodGet)
}

// AcceptPayment handles POST /payments. It validates, enqueues, and returns
// 202 immediately; the dispatcher settles the payment later.
func (h *Handler) AcceptPayment(w http.ResponseWriter, r *http.Request) {
	var req model.PaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	if strings.TrimSpace(req.CorrelationID) == "" {
		writeError(w, http.StatusBadRequest, "correlationId is required")
		return
	}
	if !req.Amount.IsPositive() {
		writeError(w, http.StatusBadRequest, "amount must be greater than 0")
		return
	}

	h.queue.Enqueue(req)
	w.WriteHeader(http.StatusAccepted)
}

// PaymentsSummary handles GET /payments-summary. Bounds are inclusive on
// both ends; a missing or unparsable bound yields an all-zero summary rather
// than an error, since the consistency checker compares totals, not statuses.
func (h *Handler) PaymentsSummary(w http.ResponseWriter, r *http.Request) {
	fromMS, okFrom := parseTimeParam(r.URL.Query().Get("from"))
	toMS, okTo := parseTimeParam(r.URL.Query().Get("to"))
	if !okFrom || !okTo {
		writeJSON(w, http.StatusOK, model.ZeroSummary())
		return
	}

	writeJSON(w, http.StatusOK, h.ledger.Summary(r.Context(), fromMS, toMS))
}

// OwnShardSummary handles GET /internal/payments-summary, the replica-to-
// replica path. Bounds arrive as epoch milliseconds, pre-parsed by the peer.
func (h *Handler) OwnShardSummary(w http.ResponseWriter, r *http.Request) {
	fromMS, errFrom := strconv.ParseInt(r.URL.Query().Get("from"), 10, 64)
	toMS, errTo := strconv.ParseInt(r.URL.Query().Get("to"), 10, 64)
	if errFrom != nil || errTo != nil {
		writeError(w, http.StatusBadRequest, "from and to must be epoch milliseconds")
		return
	}

	writeJSON(w, http.StatusOK, h.ledger.OwnSummary(fromMS, toMS))
}

// PurgePayments handles POST /purge-payments: the test harness calls it on
// every replica between runs, so each one wipes only its own shard.
func (h *Handler) PurgePayments(w http.ResponseWriter, r *http.Request) {
	if err := h.ledger.Purge(); err != nil {
		slog.Error("purge_failed", "error", err)
		writeError(w, http.StatusInternalServerError, "purge failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "payments purged"})
}

// Healthz handles GET /healthz for the load balancer.
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// parseTimeParam parses an RFC 3339 timestamp into epoch milliseconds. The
// second return reports whether the value was usable.
func parseTimeParam(raw string) (int64, bool) {
	if strings.TrimSpace(raw) == "" {
		return 0, false
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return 0, false
	}
	return t.UnixMilli(), true
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
