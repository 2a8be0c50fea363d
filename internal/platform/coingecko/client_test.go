package coingecko

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/sequencetheory/sequence-backend/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const marketsBody = `[
	{"id":"bitcoin","symbol":"btc","current_price":50000,"market_cap":1000000000000,"total_volume":30000000000,"price_change_percentage_24h":2.5},
	{"id":"mystery","symbol":"myst","current_price":1.5,"market_cap":1000000,"total_volume":50000,"price_change_percentage_24h":null}
]`

func TestTopMarkets(t *testing.T) {
	var gotKey atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey.Store(r.Header.Get("x-cg-demo-api-key"))
		if r.URL.Path != "/coins/markets" {
			t.Errorf("path = %q, want /coins/markets", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("vs_currency") != "usd" || q.Get("per_page") != "100" {
			t.Errorf("unexpected query: %v", q)
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, marketsBody)
	}))
	defer srv.Close()

	c := New(srv.URL, "demo-key", testLogger())
	snapshots, err := c.TopMarkets(context.Background())
	if err != nil {
		t.Fatalf("TopMarkets: %v", err)
	}
	if gotKey.Load() != "demo-key" {
		t.Errorf("api key header = %v, want demo-key", gotKey.Load())
	}
	if len(snapshots) != 2 {
		t.Fatalf("snapshots = %d, want 2", len(snapshots))
	}

	btc := snapshots[0]
	if btc.ID != "bitcoin" || btc.Price != 50000 || btc.Change24() != 2.5 {
		t.Errorf("unexpected snapshot: %+v", btc)
	}
	if snapshots[1].Change24Pct != nil {
		t.Errorf("null change should stay nil, got %v", *snapshots[1].Change24Pct)
	}
}

func TestTopMarketsRetriesServerErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, marketsBody)
	}))
	defer srv.Close()

	c := New(srv.URL, "", testLogger())
	snapshots, err := c.TopMarkets(context.Background())
	if err != nil {
		t.Fatalf("TopMarkets after retries: %v", err)
	}
	if len(snapshots) != 2 {
		t.Errorf("snapshots = %d, want 2", len(snapshots))
	}
	if hits.Load() != 3 {
		t.Errorf("requests = %d, want 3", hits.Load())
	}
}

func TestTopMarketsPermanentErrorNotRetried(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := New(srv.URL, "", testLogger())
	_, err := c.TopMarkets(context.Background())
	if !errors.Is(err, domain.ErrUpstreamUnavailable) {
		t.Fatalf("err = %v, want ErrUpstreamUnavailable", err)
	}
	if hits.Load() != 1 {
		t.Errorf("requests = %d, want 1 (4xx must not be retried)", hits.Load())
	}
}

func TestTopMarketsRateLimitSurfaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := New(srv.URL, "", testLogger())
	_, err := c.TopMarkets(context.Background())
	if !errors.Is(err, domain.ErrRateLimited) {
		t.Fatalf("err = %v, want ErrRateLimited in chain", err)
	}
	if !errors.Is(err, domain.ErrUpstreamUnavailable) {
		t.Fatalf("err = %v, want ErrUpstreamUnavailable in chain", err)
	}
}
