package coingecko

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/etnz/treasury"
)

func server(t *testing.T, status int, body string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if got := r.URL.Query().Get("ids"); got != "solana" {
			t.Errorf("ids = %q, want solana", got)
		}
		if got := r.URL.Query().Get("vs_currencies"); got != "usd" {
			t.Errorf("vs_currencies = %q, want usd", got)
		}
		w.WriteHeader(status)
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestOracle_Price(t *testing.T) {
	srv, _ := server(t, http.StatusOK, `{"solana":{"usd":171.235}}`)
	o := New("solana", "usd", WithEndpoint(srv.URL))

	got, err := o.Price(context.Background())
	if err != nil {
		t.Fatalf("Price() error = %v", err)
	}
	want := treasury.M(171.235, "USD")
	if !got.Equal(want) {
		t.Errorf("Price() = %v, want %v", got.Decimal(), want.Decimal())
	}
}

func TestOracle_PriceUnavailable(t *testing.T) {
	testCases := []struct {
		name   string
		status int
		body   string
	}{
		{"server error", http.StatusInternalServerError, `oops`},
		{"rate limited", http.StatusTooManyRequests, `{"status":{"error_code":429}}`},
		{"unknown coin", http.StatusOK, `{}`},
		{"no currency", http.StatusOK, `{"solana":{}}`},
		{"not a number", http.StatusOK, `{"solana":{"usd":"n/a"}}`},
		{"not json", http.StatusOK, `<html>`},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			srv, _ := server(t, tc.status, tc.body)
			o := New("solana", "USD", WithEndpoint(srv.URL))
			_, err := o.Price(context.Background())
			if !errors.Is(err, treasury.ErrPriceUnavailable) {
				t.Errorf("Price() error = %v, want %v", err, treasury.ErrPriceUnavailable)
			}
		})
	}
}

func TestOracle_Cache(t *testing.T) {
	srv, hits := server(t, http.StatusOK, `{"solana":{"usd":20}}`)

	cached := New("solana", "USD", WithEndpoint(srv.URL), WithTTL(time.Hour))
	for i := 0; i < 3; i++ {
		if _, err := cached.Price(context.Background()); err != nil {
			t.Fatal(err)
		}
	}
	if got := hits.Load(); got != 1 {
		t.Errorf("cached oracle hit the server %d times, want 1", got)
	}

	hits.Store(0)
	uncached := New("solana", "USD", WithEndpoint(srv.URL), WithTTL(0))
	for i := 0; i < 3; i++ {
		if _, err := uncached.Price(context.Background()); err != nil {
			t.Fatal(err)
		}
	}
	if got := hits.Load(); got != 3 {
		t.Errorf("uncached oracle hit the server %d times, want 3", got)
	}
}

func TestOracle_CustomPath(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		fmt.Fprint(w, `{"data":{"price":"12.5"}}`)
	}))
	defer srv.Close()

	o := New("solana", "USD", WithEndpoint(srv.URL), WithPath("$.data.price"))
	got, err := o.Price(context.Background())
	if err != nil {
		t.Fatalf("Price() error = %v", err)
	}
	if want := treasury.M(12.5, "USD"); !got.Equal(want) {
		t.Errorf("Price() = %v, want %v", got, want)
	}
}
