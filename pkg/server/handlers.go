package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"vantori-hq/tollgate/pkg/admission"
	"vantori-hq/tollgate/pkg/ledger"
	"vantori-hq/tollgate/pkg/subscription"
	"vantori-hq/tollgate/pkg/telemetry/logging"
	"vantori-hq/tollgate/pkg/tier"
)

// errorResponse is the JSON body for every error the server writes.
type errorResponse struct {
	Error          string `json:"error"`
	RetryAfter     int64  `json:"retry_after_seconds,omitempty"`
	LimitKind      string `json:"limit_kind,omitempty"`
	Limit          int    `json:"limit,omitempty"`
	ConcurrencyCap int    `json:"concurrency_cap,omitempty"`
	RequiredCents  int64  `json:"required_cents,omitempty"`
	AvailableCents int64  `json:"available_cents,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// WriteError maps an admission error onto an HTTP response. Rate and
// concurrency denials become 429 with Retry-After and X-RateLimit-*
// headers, insufficient funds becomes 402, and anything else becomes a
// 500 carrying no internal detail.
func WriteError(w http.ResponseWriter, err error) {
	var rateLimited *admission.RateLimitedError
	if errors.As(err, &rateLimited) {
		secs := rateLimited.RetryAfterSeconds()
		w.Header().Set("Retry-After", strconv.Itoa(secs))
		w.Header().Set("X-RateLimit-Kind", string(rateLimited.Kind))
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rateLimited.Limit))
		writeJSON(w, http.StatusTooManyRequests, errorResponse{
			Error:      rateLimited.Error(),
			RetryAfter: int64(secs),
			LimitKind:  string(rateLimited.Kind),
			Limit:      rateLimited.Limit,
		})
		return
	}

	var concurrencyLimited *admission.ConcurrencyLimitedError
	if errors.As(err, &concurrencyLimited) {
		w.Header().Set("Retry-After", "1")
		w.Header().Set("X-Concurrency-Limit", strconv.Itoa(concurrencyLimited.Cap))
		writeJSON(w, http.StatusTooManyRequests, errorResponse{
			Error:          concurrencyLimited.Error(),
			RetryAfter:     1,
			ConcurrencyCap: concurrencyLimited.Cap,
		})
		return
	}

	var insufficient *admission.InsufficientFundsError
	if errors.As(err, &insufficient) {
		writeJSON(w, http.StatusPaymentRequired, errorResponse{
			Error:          insufficient.Error(),
			RequiredCents:  insufficient.RequiredCents,
			AvailableCents: insufficient.AvailableCents,
		})
		return
	}

	writeJSON(w, http.StatusInternalServerError, errorResponse{
		Error: "internal error",
	})
}

// healthHandler answers liveness probes.
type healthHandler struct{}

func (h *healthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Unix(),
	})
}

// readyHandler answers readiness probes. The server is ready once a tier
// policy is loaded.
type readyHandler struct {
	tiers *tier.Registry
}

func (h *readyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var tierNames []string
	if h.tiers != nil {
		tierNames = h.tiers.TierNames()
	}

	status := "ready"
	statusCode := http.StatusOK
	if len(tierNames) == 0 {
		status = "not_ready"
		statusCode = http.StatusServiceUnavailable
	}

	writeJSON(w, statusCode, map[string]any{
		"status":    status,
		"tiers":     len(tierNames),
		"timestamp": time.Now().Unix(),
	})
}

// balanceHandler reports a subject's current balance.
//
// GET /v1/balance?subject=acct_1
type balanceHandler struct {
	ledger *ledger.Ledger
}

func (h *balanceHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	subject := r.URL.Query().Get("subject")
	if subject == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "subject query parameter is required"})
		return
	}

	balance, err := h.ledger.Balance(r.Context(), subject)
	if err != nil {
		WriteError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"subject":       subject,
		"balance_cents": balance,
	})
}

// subscriptionHandler reports a subject's current subscription with its
// billing period rolled forward if it had lapsed.
//
// GET /v1/subscriptions?subject=acct_1
type subscriptionHandler struct {
	tracker *subscription.Tracker
}

func (h *subscriptionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	subject := r.URL.Query().Get("subject")
	if subject == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "subject query parameter is required"})
		return
	}

	sub, err := h.tracker.Current(r.Context(), subject)
	if err != nil {
		WriteError(w, err)
		return
	}
	if sub == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "no subscription for subject"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"subject":             sub.Subject,
		"tier":                sub.Tier,
		"included_per_period": sub.IncludedPerPeriod,
		"executions_used":     sub.ExecutionsUsed,
		"remaining":           sub.Remaining(),
		"period_start":        sub.PeriodStart.Format(time.RFC3339),
		"period_end":          sub.PeriodEnd.Format(time.RFC3339),
	})
}

// creditRequest is the JSON body for top-ups.
type creditRequest struct {
	Subject     string `json:"subject"`
	AmountCents int64  `json:"amount_cents"`
	EventID     string `json:"event_id"`
	Description string `json:"description"`
}

// creditHandler records an external top-up. Replays of the same event_id
// return the original entry with 200 instead of 201.
//
// POST /v1/credits
type creditHandler struct {
	ledger *ledger.Ledger
	logger *logging.Logger
}

func (h *creditHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req creditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("invalid request body: %v", err)})
		return
	}
	if req.Subject == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "subject is required"})
		return
	}
	if req.AmountCents <= 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "amount_cents must be positive"})
		return
	}

	metadata := map[string]string{}
	if req.Description != "" {
		metadata["description"] = req.Description
	}

	before, err := h.ledger.Balance(r.Context(), req.Subject)
	if err != nil {
		WriteError(w, err)
		return
	}

	entry, err := h.ledger.Credit(r.Context(), req.Subject, req.AmountCents,
		ledger.CreditExternalTopup, req.EventID, metadata)
	if err != nil {
		WriteError(w, err)
		return
	}

	// A replayed event id returns the original entry, whose recorded
	// balance predates this request.
	status := http.StatusCreated
	if req.EventID != "" && entry.BalanceAfterCents != before+req.AmountCents {
		status = http.StatusOK
	}

	h.logger.InfoContext(r.Context(), "credit recorded",
		"subject", req.Subject,
		"amount_cents", req.AmountCents,
		"event_id", req.EventID,
		"replay", status == http.StatusOK,
	)

	writeJSON(w, status, map[string]any{
		"entry_id":      entry.ID,
		"subject":       entry.Subject,
		"amount_cents":  entry.AmountCents,
		"balance_cents": entry.BalanceAfterCents,
	})
}
