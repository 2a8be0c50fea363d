package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sequencetheory/sequence-backend/internal/domain"
	"github.com/sequencetheory/sequence-backend/internal/indices"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type stubIndicesService struct {
	gotPeriod string
	resp      *indices.Response
	err       error
}

func (s *stubIndicesService) GetIndices(ctx context.Context, timePeriod string) (*indices.Response, error) {
	s.gotPeriod = timePeriod
	if s.err != nil {
		return nil, s.err
	}
	return s.resp, nil
}

func TestGetCryptoIndices(t *testing.T) {
	svc := &stubIndicesService{resp: &indices.Response{
		Anchor5: indices.IndexPayload{Index: "Anchor5", CurrentValue: 123.45},
	}}
	h := NewIndicesHandler(svc, testLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/crypto-indices",
		strings.NewReader(`{"timePeriod":"month"}`))
	rr := httptest.NewRecorder()
	h.GetCryptoIndices(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if svc.gotPeriod != "month" {
		t.Errorf("period = %q, want month", svc.gotPeriod)
	}

	var body map[string]json.RawMessage
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}
	for _, key := range []string{"anchor5", "vibe20", "wave100", "lastUpdated"} {
		if _, ok := body[key]; !ok {
			t.Errorf("response missing key %q", key)
		}
	}
}

func TestGetCryptoIndicesDefaultsPeriod(t *testing.T) {
	svc := &stubIndicesService{resp: &indices.Response{}}
	h := NewIndicesHandler(svc, testLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/crypto-indices", strings.NewReader(""))
	rr := httptest.NewRecorder()
	h.GetCryptoIndices(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if svc.gotPeriod != "daily" {
		t.Errorf("period = %q, want daily default for empty body", svc.gotPeriod)
	}
}

func TestGetCryptoIndicesUpstreamDown(t *testing.T) {
	for _, err := range []error{
		domain.ErrUpstreamUnavailable,
		domain.ErrNoMarketData,
		domain.ErrRateLimited,
	} {
		svc := &stubIndicesService{err: err}
		h := NewIndicesHandler(svc, testLogger())

		req := httptest.NewRequest(http.MethodPost, "/api/crypto-indices",
			strings.NewReader(`{"timePeriod":"daily"}`))
		rr := httptest.NewRecorder()
		h.GetCryptoIndices(rr, req)

		if rr.Code != http.StatusServiceUnavailable {
			t.Errorf("%v: status = %d, want 503", err, rr.Code)
		}
	}
}

func TestGetTraditionalMarkets(t *testing.T) {
	h := NewMarketsHandler()
	req := httptest.NewRequest(http.MethodPost, "/api/traditional-markets", nil)
	rr := httptest.NewRecorder()
	h.GetTraditionalMarkets(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	var body map[string][]traditionalRow
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}
	if len(body["fallback"]) != 3 {
		t.Errorf("fallback rows = %d, want 3", len(body["fallback"]))
	}
}

func TestHealthCheck(t *testing.T) {
	h := NewHealthHandler(HealthStatus{TurnkeyConfigured: true, SupabaseConfigured: true})
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rr := httptest.NewRecorder()
	h.HealthCheck(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["status"] != "healthy" {
		t.Errorf("status field = %v", body["status"])
	}
	if body["turnkey_configured"] != true {
		t.Errorf("turnkey_configured = %v, want true", body["turnkey_configured"])
	}
	if body["coingecko_configured"] != false {
		t.Errorf("coingecko_configured = %v, want false", body["coingecko_configured"])
	}
}
