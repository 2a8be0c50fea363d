package indices

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/sequencetheory/sequence-backend/internal/cache/memory"
	"github.com/sequencetheory/sequence-backend/internal/domain"
)

type stubFetcher struct {
	mu        sync.Mutex
	calls     int
	snapshots []domain.MarketSnapshot
	err       error
}

func (f *stubFetcher) TopMarkets(ctx context.Context) ([]domain.MarketSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.snapshots, nil
}

func (f *stubFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type stubPublisher struct {
	mu    sync.Mutex
	ticks []IndexTick
}

func (p *stubPublisher) PublishIndexTick(summary IndexTick) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ticks = append(p.ticks, summary)
}

func newTestService(fetcher MarketFetcher, publisher TickPublisher) *Service {
	logger := testLogger()
	return NewService(fetcher, NewCalculator(logger), memory.New(logger), nil, publisher, nil, logger)
}

func TestGetIndicesServesFromCache(t *testing.T) {
	fetcher := &stubFetcher{snapshots: snapshotSet(120)}
	svc := newTestService(fetcher, nil)

	first, err := svc.GetIndices(context.Background(), "daily")
	if err != nil {
		t.Fatalf("GetIndices: %v", err)
	}
	second, err := svc.GetIndices(context.Background(), "daily")
	if err != nil {
		t.Fatalf("GetIndices: %v", err)
	}

	if fetcher.callCount() != 1 {
		t.Errorf("upstream calls = %d, want 1 (second request cached)", fetcher.callCount())
	}
	if first != second {
		t.Error("cached request returned a different payload pointer")
	}
}

func TestGetIndicesCandleCountsPerPeriod(t *testing.T) {
	cases := []struct {
		period  string
		candles int
	}{
		{"daily", 24},
		{"month", 30},
		{"year", 52},
		{"all", 48},
	}

	for _, tc := range cases {
		fetcher := &stubFetcher{snapshots: snapshotSet(120)}
		svc := newTestService(fetcher, nil)

		resp, err := svc.GetIndices(context.Background(), tc.period)
		if err != nil {
			t.Fatalf("GetIndices(%s): %v", tc.period, err)
		}
		for _, payload := range []IndexPayload{resp.Anchor5, resp.Vibe20, resp.Wave100} {
			if len(payload.Candles) != tc.candles {
				t.Errorf("%s %s: candles = %d, want %d", tc.period, payload.Index, len(payload.Candles), tc.candles)
			}
		}
	}
}

func TestGetIndicesValuesPeriodInvariant(t *testing.T) {
	fetcher := &stubFetcher{snapshots: snapshotSet(120)}
	svc := newTestService(fetcher, nil)

	daily, err := svc.GetIndices(context.Background(), "daily")
	if err != nil {
		t.Fatal(err)
	}
	year, err := svc.GetIndices(context.Background(), "year")
	if err != nil {
		t.Fatal(err)
	}

	if daily.Anchor5.CurrentValue != year.Anchor5.CurrentValue {
		t.Errorf("anchor value differs by period: %v vs %v", daily.Anchor5.CurrentValue, year.Anchor5.CurrentValue)
	}
	if daily.Wave100.CurrentValue != year.Wave100.CurrentValue {
		t.Errorf("wave value differs by period: %v vs %v", daily.Wave100.CurrentValue, year.Wave100.CurrentValue)
	}
}

func TestGetIndicesUnknownPeriodDefaultsToDaily(t *testing.T) {
	fetcher := &stubFetcher{snapshots: snapshotSet(120)}
	svc := newTestService(fetcher, nil)

	resp, err := svc.GetIndices(context.Background(), "fortnight")
	if err != nil {
		t.Fatalf("GetIndices: %v", err)
	}
	if len(resp.Anchor5.Candles) != 24 {
		t.Errorf("candles = %d, want 24 (daily default)", len(resp.Anchor5.Candles))
	}
	if resp.Anchor5.Timeframe != "1h" {
		t.Errorf("timeframe = %q, want 1h", resp.Anchor5.Timeframe)
	}
}

func TestGetIndicesPropagatesUpstreamFailure(t *testing.T) {
	fetcher := &stubFetcher{err: domain.ErrUpstreamUnavailable}
	svc := newTestService(fetcher, nil)

	_, err := svc.GetIndices(context.Background(), "daily")
	if !errors.Is(err, domain.ErrUpstreamUnavailable) {
		t.Fatalf("err = %v, want ErrUpstreamUnavailable", err)
	}
}

func TestGetIndicesPublishesTickOnFreshCompute(t *testing.T) {
	fetcher := &stubFetcher{snapshots: snapshotSet(120)}
	publisher := &stubPublisher{}
	svc := newTestService(fetcher, publisher)

	resp, err := svc.GetIndices(context.Background(), "daily")
	if err != nil {
		t.Fatal(err)
	}
	// Second request is served from cache and must not tick again.
	if _, err := svc.GetIndices(context.Background(), "daily"); err != nil {
		t.Fatal(err)
	}

	publisher.mu.Lock()
	defer publisher.mu.Unlock()
	if len(publisher.ticks) != 1 {
		t.Fatalf("ticks = %d, want 1", len(publisher.ticks))
	}
	if publisher.ticks[0].Anchor5 != resp.Anchor5.CurrentValue {
		t.Errorf("tick anchor = %v, want %v", publisher.ticks[0].Anchor5, resp.Anchor5.CurrentValue)
	}
}

func TestGetIndicesMetaShape(t *testing.T) {
	fetcher := &stubFetcher{snapshots: snapshotSet(120)}
	svc := newTestService(fetcher, nil)

	resp, err := svc.GetIndices(context.Background(), "daily")
	if err != nil {
		t.Fatal(err)
	}

	if got := len(resp.Wave100.Meta.Constituents); got != 20 {
		t.Errorf("wave meta constituents = %d, want capped at 20", got)
	}
	if resp.Anchor5.Meta.RebalanceFrequency != "weekly" {
		t.Errorf("anchor rebalance = %q, want weekly", resp.Anchor5.Meta.RebalanceFrequency)
	}
	if resp.Vibe20.Meta.RebalanceFrequency != "daily" {
		t.Errorf("vibe rebalance = %q, want daily", resp.Vibe20.Meta.RebalanceFrequency)
	}
	if resp.Anchor5.Meta.TZ != "UTC" {
		t.Errorf("tz = %q, want UTC", resp.Anchor5.Meta.TZ)
	}
	if resp.Anchor5.BaseValue != 1 {
		t.Errorf("base value = %v, want 1", resp.Anchor5.BaseValue)
	}
}
