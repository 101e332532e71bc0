package trading

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"pump-agent/internal/domain"
)

func quietLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func TestExecutor_Execute_Buy(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("api-key") != "key123" {
			t.Errorf("expected api key, got %q", r.URL.Query().Get("api-key"))
		}

		var req tradeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}

		if req.Action != "buy" {
			t.Errorf("expected buy, got %s", req.Action)
		}
		if req.Mint != "mint123" {
			t.Errorf("expected mint123, got %s", req.Mint)
		}
		if req.DenominatedInSol {
			t.Error("amount must be token-denominated")
		}
		if req.Slippage != 5.0 {
			t.Errorf("expected slippage 5, got %f", req.Slippage)
		}

		json.NewEncoder(w).Encode(tradeResponse{Signature: "tx789"})
	}))
	defer server.Close()

	x := NewExecutor(server.URL, "key123", WithLogger(quietLogger()))

	result, err := x.Execute(context.Background(), domain.TradeOrder{
		Mint:     "mint123",
		Side:     domain.SideBuy,
		Quantity: 2.0,
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if result.TxSignature != "tx789" {
		t.Errorf("expected tx789, got %s", result.TxSignature)
	}
	if result.Fee != 0.01 {
		t.Errorf("expected fee 0.01 for quantity 2.0, got %f", result.Fee)
	}
}

func TestExecutor_Execute_EndpointError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(tradeResponse{Errors: []string{"insufficient balance"}})
	}))
	defer server.Close()

	x := NewExecutor(server.URL, "key123", WithLogger(quietLogger()))

	result, err := x.Execute(context.Background(), domain.TradeOrder{
		Mint:     "mint123",
		Side:     domain.SideSell,
		Quantity: 2.0,
	})

	if !errors.Is(err, ErrSubmissionFailed) {
		t.Fatalf("expected ErrSubmissionFailed, got %v", err)
	}

	// The fee is reported on the failure path too
	if result == nil || result.Fee != 0.01 {
		t.Errorf("expected fee 0.01 on failure, got %+v", result)
	}
}

func TestExecutor_Execute_TransportErrorNotRetried(t *testing.T) {
	var calls atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	x := NewExecutor(server.URL, "", WithLogger(quietLogger()))

	_, err := x.Execute(context.Background(), domain.TradeOrder{
		Mint:     "mint123",
		Side:     domain.SideBuy,
		Quantity: 1.0,
	})
	if !errors.Is(err, ErrSubmissionFailed) {
		t.Fatalf("expected ErrSubmissionFailed, got %v", err)
	}

	// Trade submission is not idempotent; exactly one attempt
	if calls.Load() != 1 {
		t.Errorf("expected exactly 1 submission, got %d", calls.Load())
	}
}

func TestExecutor_Execute_EmptySignature(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(tradeResponse{})
	}))
	defer server.Close()

	x := NewExecutor(server.URL, "", WithLogger(quietLogger()))

	_, err := x.Execute(context.Background(), domain.TradeOrder{
		Mint:     "mint123",
		Side:     domain.SideBuy,
		Quantity: 1.0,
	})
	if !errors.Is(err, ErrSubmissionFailed) {
		t.Errorf("expected ErrSubmissionFailed for empty signature, got %v", err)
	}
}
