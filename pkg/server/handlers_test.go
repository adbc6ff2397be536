package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"vantori-hq/tollgate/pkg/admission"
	"vantori-hq/tollgate/pkg/admission/ratelimit"
	"vantori-hq/tollgate/pkg/config"
	"vantori-hq/tollgate/pkg/ledger"
	"vantori-hq/tollgate/pkg/ledger/storage"
	"vantori-hq/tollgate/pkg/subscription"
	"vantori-hq/tollgate/pkg/tier"
)

func newTestServer(t *testing.T, tiers *tier.Registry) (*Server, *ledger.Ledger) {
	t.Helper()

	cfg := &config.Config{}
	config.ApplyDefaults(cfg)

	led := ledger.New(storage.NewMemoryStorage(), nil)
	srv := NewServer(&cfg.Server, &cfg.Telemetry.Metrics, Dependencies{
		Ledger:   led,
		Tiers:    tiers,
		Gatherer: prometheus.NewRegistry(),
	})
	return srv, led
}

func testRegistry(t *testing.T) *tier.Registry {
	t.Helper()
	registry, err := tier.NewRegistry(&tier.Policy{
		DefaultTier: "free",
		Tiers: map[string]tier.Tier{
			"free": {
				Name:           "free",
				Multiplier:     1.0,
				ConcurrencyCap: 1,
				PeriodLength:   30 * 24 * time.Hour,
				Limits: map[ratelimit.LimitKind]int{
					ratelimit.KindRequestsPerMinute: 10,
				},
			},
		},
	})
	if err != nil {
		t.Fatalf("NewRegistry() error: %v", err)
	}
	return registry
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding response %q: %v", rec.Body.String(), err)
	}
	return body
}

func TestHealthEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, testRegistry(t))
	handler := srv.Handler()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if body := decodeBody(t, rec); body["status"] != "ok" {
		t.Errorf("status field = %v", body["status"])
	}
	if rec.Header().Get(RequestIDHeader) == "" {
		t.Error("missing request id header")
	}
}

func TestReadyEndpoint(t *testing.T) {
	t.Run("with tiers loaded", func(t *testing.T) {
		srv, _ := newTestServer(t, testRegistry(t))
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
	})

	t.Run("without tiers", func(t *testing.T) {
		srv, _ := newTestServer(t, nil)
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
		if rec.Code != http.StatusServiceUnavailable {
			t.Fatalf("status = %d, want 503", rec.Code)
		}
	})
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, testRegistry(t))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestBalanceEndpoint(t *testing.T) {
	srv, led := newTestServer(t, testRegistry(t))
	handler := srv.Handler()

	if _, err := led.Credit(context.Background(), "acct_1", 750, ledger.CreditExternalTopup, "", nil); err != nil {
		t.Fatalf("Credit() error: %v", err)
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/balance?subject=acct_1", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if body := decodeBody(t, rec); body["balance_cents"] != float64(750) {
		t.Errorf("balance = %v, want 750", body["balance_cents"])
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/balance", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status without subject = %d, want 400", rec.Code)
	}
}

func TestCreditEndpoint(t *testing.T) {
	srv, led := newTestServer(t, testRegistry(t))
	handler := srv.Handler()

	post := func(body string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/v1/credits", strings.NewReader(body))
		handler.ServeHTTP(rec, req)
		return rec
	}

	rec := post(`{"subject":"acct_1","amount_cents":500,"event_id":"stripe-evt-1"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}
	if body := decodeBody(t, rec); body["balance_cents"] != float64(500) {
		t.Errorf("balance = %v, want 500", body["balance_cents"])
	}

	// Replaying the same event id must not double-credit.
	rec = post(`{"subject":"acct_1","amount_cents":500,"event_id":"stripe-evt-1"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("replay status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	balance, err := led.Balance(context.Background(), "acct_1")
	if err != nil {
		t.Fatalf("Balance() error: %v", err)
	}
	if balance != 500 {
		t.Errorf("balance after replay = %d, want 500", balance)
	}

	if rec := post(`{"subject":"","amount_cents":500}`); rec.Code != http.StatusBadRequest {
		t.Errorf("empty subject status = %d, want 400", rec.Code)
	}
	if rec := post(`{"subject":"acct_1","amount_cents":-5}`); rec.Code != http.StatusBadRequest {
		t.Errorf("negative amount status = %d, want 400", rec.Code)
	}
	if rec := post(`not json`); rec.Code != http.StatusBadRequest {
		t.Errorf("malformed body status = %d, want 400", rec.Code)
	}
}

func TestSubscriptionEndpoint(t *testing.T) {
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)

	led := ledger.New(storage.NewMemoryStorage(), nil)
	tracker := subscription.NewTracker(subscription.NewMemoryStore(), nil)
	srv := NewServer(&cfg.Server, &cfg.Telemetry.Metrics, Dependencies{
		Ledger:   led,
		Tiers:    testRegistry(t),
		Tracker:  tracker,
		Gatherer: prometheus.NewRegistry(),
	})
	handler := srv.Handler()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/subscriptions?subject=acct_1", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status without subscription = %d, want 404", rec.Code)
	}

	if err := tracker.Subscribe(context.Background(), &subscription.Subscription{
		Subject:           "acct_1",
		Tier:              "free",
		IncludedPerPeriod: 10,
		PeriodLength:      30 * 24 * time.Hour,
	}); err != nil {
		t.Fatalf("Subscribe() error: %v", err)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/subscriptions?subject=acct_1", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["tier"] != "free" || body["remaining"] != float64(10) {
		t.Errorf("body = %v", body)
	}
}

func TestWriteError(t *testing.T) {
	t.Run("rate limited", func(t *testing.T) {
		rec := httptest.NewRecorder()
		WriteError(rec, &admission.RateLimitedError{
			Kind:       ratelimit.KindRequestsPerMinute,
			Limit:      60,
			RetryAfter: 42 * time.Second,
		})
		if rec.Code != http.StatusTooManyRequests {
			t.Fatalf("status = %d, want 429", rec.Code)
		}
		if got := rec.Header().Get("Retry-After"); got != "42" {
			t.Errorf("Retry-After = %q, want 42", got)
		}
		if got := rec.Header().Get("X-RateLimit-Limit"); got != "60" {
			t.Errorf("X-RateLimit-Limit = %q, want 60", got)
		}
		body := decodeBody(t, rec)
		if body["retry_after_seconds"] != float64(42) {
			t.Errorf("retry_after_seconds = %v, want 42", body["retry_after_seconds"])
		}
		if body["limit_kind"] != string(ratelimit.KindRequestsPerMinute) {
			t.Errorf("limit_kind = %v", body["limit_kind"])
		}
	})

	t.Run("concurrency limited", func(t *testing.T) {
		rec := httptest.NewRecorder()
		WriteError(rec, &admission.ConcurrencyLimitedError{Cap: 4})
		if rec.Code != http.StatusTooManyRequests {
			t.Fatalf("status = %d, want 429", rec.Code)
		}
		if got := rec.Header().Get("X-Concurrency-Limit"); got != "4" {
			t.Errorf("X-Concurrency-Limit = %q, want 4", got)
		}
	})

	t.Run("insufficient funds", func(t *testing.T) {
		rec := httptest.NewRecorder()
		WriteError(rec, &admission.InsufficientFundsError{
			RequiredCents:  100,
			AvailableCents: 40,
		})
		if rec.Code != http.StatusPaymentRequired {
			t.Fatalf("status = %d, want 402", rec.Code)
		}
		body := decodeBody(t, rec)
		if body["required_cents"] != float64(100) || body["available_cents"] != float64(40) {
			t.Errorf("amounts = %v/%v", body["required_cents"], body["available_cents"])
		}
	})

	t.Run("internal error hides detail", func(t *testing.T) {
		rec := httptest.NewRecorder()
		WriteError(rec, &admission.OperationFailedError{Cause: http.ErrAbortHandler})
		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("status = %d, want 500", rec.Code)
		}
		if strings.Contains(rec.Body.String(), "abort") {
			t.Error("internal detail leaked into response")
		}
	})
}

func TestRequestIDPassthrough(t *testing.T) {
	srv, _ := newTestServer(t, testRegistry(t))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(RequestIDHeader, "client-supplied-id")
	srv.Handler().ServeHTTP(rec, req)

	if got := rec.Header().Get(RequestIDHeader); got != "client-supplied-id" {
		t.Errorf("request id = %q, want client-supplied-id", got)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	srv, _ := newTestServer(t, testRegistry(t))
	handler := srv.Handler()

	for _, path := range []string{"/health", "/ready", "/v1/balance"} {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, path, nil))
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("POST %s status = %d, want 405", path, rec.Code)
		}
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/credits", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET /v1/credits status = %d, want 405", rec.Code)
	}
}
