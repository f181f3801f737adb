package aggregator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	xerrors "SolSwap-Bot/internal/errors"
)

const testMint = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(Config{BaseURL: server.URL})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func TestGetOrder(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/order" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("amount") != "100000000" || q.Get("taker") != "TakerAddr" {
			t.Errorf("unexpected query: %s", r.URL.RawQuery)
		}
		_ = json.NewEncoder(w).Encode(map[string]string{
			"transaction": "dW5zaWduZWQ=",
			"requestId":   "req-1",
			"outAmount":   "2500000000",
			"outputMint":  testMint,
		})
	}))

	order, err := client.GetOrder(context.Background(), OrderParams{
		InputMint:      "So11111111111111111111111111111111111111112",
		OutputMint:     testMint,
		AmountLamports: 100_000_000,
		Taker:          "TakerAddr",
	})
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if order.RequestID != "req-1" || order.UnsignedTransaction != "dW5zaWduZWQ=" {
		t.Fatalf("unexpected order: %+v", order)
	}
	if order.OutAmount != 2_500_000_000 {
		t.Fatalf("unexpected out amount: %d", order.OutAmount)
	}
}

func TestSubmitOrderSuccess(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/execute" || r.Method != http.MethodPost {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["requestId"] != "req-1" {
			t.Errorf("unexpected request id: %s", body["requestId"])
		}
		_ = json.NewEncoder(w).Encode(map[string]string{
			"status":    "Success",
			"signature": "5txsig",
		})
	}))

	exec, err := client.SubmitOrder(context.Background(), "c2lnbmVk", "req-1")
	if err != nil {
		t.Fatalf("submit order: %v", err)
	}
	if exec.Signature != "5txsig" {
		t.Fatalf("unexpected signature: %s", exec.Signature)
	}
}

func TestSubmitOrderSlippage(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status": "Failed",
			"error":  "custom program error: 0x1771",
			"code":   0x1771,
		})
	}))

	_, err := client.SubmitOrder(context.Background(), "c2lnbmVk", "req-1")
	if err == nil {
		t.Fatal("expected error")
	}
	if xerrors.CodeOf(err) != CodeSlippageExceeded {
		t.Fatalf("unexpected code: %s", xerrors.CodeOf(err))
	}
	if xerrors.RetryableError(err) {
		t.Fatal("slippage errors must not be auto-retried")
	}
}

func TestVendorErrorCarriesText(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"error": "taker has insufficient funds for rent",
		})
	}))

	_, err := client.GetOrder(context.Background(), OrderParams{
		InputMint:      "So11111111111111111111111111111111111111112",
		OutputMint:     testMint,
		AmountLamports: 1,
		Taker:          "TakerAddr",
	})
	if err == nil {
		t.Fatal("expected error")
	}
	e, ok := xerrors.From(err)
	if !ok || e.Code() != CodeVendorError {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.Meta("vendor_error") != "taker has insufficient funds for rent" {
		t.Fatalf("vendor text not preserved: %v", e.Metadata())
	}
}

func TestTransportErrorIsRetryable(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))

	_, err := client.GetBalances(context.Background(), "TakerAddr")
	if err == nil {
		t.Fatal("expected error")
	}
	if xerrors.CodeOf(err) != CodeAggregatorFailure || !xerrors.RetryableError(err) {
		t.Fatalf("unexpected classification: %v", err)
	}
}

func TestGetBalances(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/balances/TakerAddr" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(map[string]Balance{
			"SOL":    {Amount: "50000000", UIAmount: 0.05},
			testMint: {Amount: "0", UIAmount: 0},
		})
	}))

	balances, err := client.GetBalances(context.Background(), "TakerAddr")
	if err != nil {
		t.Fatalf("get balances: %v", err)
	}
	if balances["SOL"].UIAmount != 0.05 {
		t.Fatalf("unexpected balances: %+v", balances)
	}
}
