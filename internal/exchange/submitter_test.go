package exchange

import (
	"context"
	"encoding/json"
	"log/slog"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"sniper/pkg/types"
)

func newTestSubmitter(t *testing.T, handler http.HandlerFunc) (*Submitter, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	signer, err := NewSigner(testPrivateKey)
	if err != nil {
		t.Fatal(err)
	}
	return NewSubmitter(srv.URL, "test-api-key", signer, slog.Default()), srv
}

func TestSubmitSignsAndPostsOrder(t *testing.T) {
	t.Parallel()

	var received []types.OrderPayload
	sub, srv := newTestSubmitter(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("POLY_API_KEY"); got != "test-api-key" {
			t.Errorf("POLY_API_KEY header = %q, want test-api-key", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(types.OrderResponse{Success: true, OrderID: "abc"})
	})
	defer srv.Close()

	order := types.Order{
		TokenID:     "999",
		MakerAmount: big.NewInt(1_000_000),
		TakerAmount: big.NewInt(2_000_000),
		Side:        types.BUY,
		Expiration:  0,
		Salt:        1,
	}

	resp, err := sub.Submit(context.Background(), order)
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if !resp.Success || resp.OrderID != "abc" {
		t.Errorf("resp = %+v, want success with order id abc", resp)
	}
	if len(received) != 1 {
		t.Fatalf("received %d payloads, want 1", len(received))
	}
	if received[0].Order.Signature == "" {
		t.Error("submitted order missing a signature")
	}
}

func TestSubmitNonceIncreasesAcrossCalls(t *testing.T) {
	t.Parallel()

	var nonces []uint64
	sub, srv := newTestSubmitter(t, func(w http.ResponseWriter, r *http.Request) {
		var payloads []types.OrderPayload
		json.NewDecoder(r.Body).Decode(&payloads)
		nonces = append(nonces, payloads[0].Order.Nonce)
		json.NewEncoder(w).Encode(types.OrderResponse{Success: true})
	})
	defer srv.Close()

	order := types.Order{TokenID: "1", MakerAmount: big.NewInt(1), TakerAmount: big.NewInt(1)}
	for i := 0; i < 3; i++ {
		if _, err := sub.Submit(context.Background(), order); err != nil {
			t.Fatal(err)
		}
	}

	if len(nonces) != 3 || nonces[0] != 0 || nonces[1] != 1 || nonces[2] != 2 {
		t.Errorf("nonces = %v, want [0 1 2]", nonces)
	}
}

func TestSubmitConcurrentNoncesFormPermutation(t *testing.T) {
	t.Parallel()

	const n = 10

	var mu sync.Mutex
	seen := make(map[uint64]bool)
	sub, srv := newTestSubmitter(t, func(w http.ResponseWriter, r *http.Request) {
		var payloads []types.OrderPayload
		json.NewDecoder(r.Body).Decode(&payloads)
		mu.Lock()
		seen[payloads[0].Order.Nonce] = true
		mu.Unlock()
		json.NewEncoder(w).Encode(types.OrderResponse{Success: true})
	})
	defer srv.Close()

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			order := types.Order{TokenID: "1", MakerAmount: big.NewInt(1), TakerAmount: big.NewInt(1)}
			if _, err := sub.Submit(context.Background(), order); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	if len(seen) != n {
		t.Fatalf("observed %d distinct nonces, want %d", len(seen), n)
	}
	for i := uint64(0); i < n; i++ {
		if !seen[i] {
			t.Errorf("nonce %d never observed on the wire", i)
		}
	}
}

func TestCancelResolvesByOrderID(t *testing.T) {
	t.Parallel()

	var gotMethod, gotID string
	sub, srv := newTestSubmitter(t, func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		gotID = body["orderID"]
		w.WriteHeader(http.StatusOK)
	})
	defer srv.Close()

	if err := sub.Cancel(context.Background(), "ord-7"); err != nil {
		t.Fatalf("Cancel() error = %v", err)
	}
	if gotMethod != http.MethodDelete {
		t.Errorf("method = %s, want DELETE", gotMethod)
	}
	if gotID != "ord-7" {
		t.Errorf("orderID = %q, want ord-7", gotID)
	}
}

func TestSubmitSurfacesRejection(t *testing.T) {
	t.Parallel()

	sub, srv := newTestSubmitter(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(types.OrderResponse{Success: false, ErrorMsg: "bad nonce"})
	})
	defer srv.Close()

	order := types.Order{TokenID: "1", MakerAmount: big.NewInt(1), TakerAmount: big.NewInt(1)}
	if _, err := sub.Submit(context.Background(), order); err == nil {
		t.Fatal("expected an error on a rejected order")
	}
}
