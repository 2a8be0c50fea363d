package indices

import (
	"context"
	"fmt"
	"hash/fnv"
	"log/slog"
	"math"
	"time"

	"github.com/sequencetheory/sequence-backend/internal/cache/memory"
	"github.com/sequencetheory/sequence-backend/internal/domain"
)

// periodSpec maps a requested time period to its cache TTL and chart
// resolution. Index values are period-invariant; only candle count and
// interval differ.
type periodSpec struct {
	ttl       time.Duration
	periods   int
	interval  int64 // seconds per candle
	timeframe string
}

var periodTable = map[string]periodSpec{
	"daily": {ttl: 60 * time.Second, periods: 24, interval: 3600, timeframe: "1h"},
	"month": {ttl: 120 * time.Second, periods: 30, interval: 86400, timeframe: "1d"},
	"year":  {ttl: 300 * time.Second, periods: 52, interval: 604800, timeframe: "1w"},
	"all":   {ttl: 600 * time.Second, periods: 48, interval: 2592000, timeframe: "30d"},
}

var defaultPeriod = periodSpec{ttl: 120 * time.Second, periods: 24, interval: 3600, timeframe: "1h"}

// Cache key namespaces. Assembled payloads, raw upstream fetches, and the
// period-invariant scores are cached and aged independently.
const (
	payloadKeyPrefix = "indices:"
	marketsKey       = "markets:top100"
	scoresKey        = "indices:scores"

	marketsTTL = 60 * time.Second
	scoresTTL  = 60 * time.Second
)

// MarketFetcher is the upstream market-data dependency.
type MarketFetcher interface {
	TopMarkets(ctx context.Context) ([]domain.MarketSnapshot, error)
}

// TickPublisher receives the index summary after every fresh computation.
// The WebSocket hub implements it.
type TickPublisher interface {
	PublishIndexTick(summary IndexTick)
}

// SnapshotArchiver persists assembled payloads for offline analysis.
type SnapshotArchiver interface {
	ArchiveIndices(ctx context.Context, period string, payload *Response) error
}

// IndexTick is the compact summary broadcast to WebSocket subscribers.
type IndexTick struct {
	Anchor5     float64   `json:"anchor5"`
	Vibe20      float64   `json:"vibe20"`
	Wave100     float64   `json:"wave100"`
	LastUpdated time.Time `json:"lastUpdated"`
}

// Service runs the per-request fetch -> score -> chart pipeline with TTL
// caching at each stage. One instance is shared by all requests.
type Service struct {
	fetcher    MarketFetcher
	calculator *Calculator
	cache      *memory.Cache
	snapshots  domain.SnapshotCache // optional cross-instance tier
	publisher  TickPublisher        // optional
	archiver   SnapshotArchiver     // optional
	logger     *slog.Logger

	now func() time.Time
}

// NewService creates the pipeline service. snapshots, publisher, and
// archiver may be nil.
func NewService(
	fetcher MarketFetcher,
	calculator *Calculator,
	cache *memory.Cache,
	snapshots domain.SnapshotCache,
	publisher TickPublisher,
	archiver SnapshotArchiver,
	logger *slog.Logger,
) *Service {
	return &Service{
		fetcher:    fetcher,
		calculator: calculator,
		cache:      cache,
		snapshots:  snapshots,
		publisher:  publisher,
		archiver:   archiver,
		logger:     logger.With(slog.String("component", "indices.service")),
		now:        time.Now,
	}
}

// GetIndices returns the assembled three-index payload for the given time
// period, serving from cache inside the TTL window and degrading to stale
// data when the upstream is unavailable.
func (s *Service) GetIndices(ctx context.Context, timePeriod string) (*Response, error) {
	spec, ok := periodTable[timePeriod]
	if !ok {
		spec = defaultPeriod
		timePeriod = "daily"
	}

	v, err := s.cache.GetOrCompute(ctx, payloadKeyPrefix+timePeriod, spec.ttl, func(ctx context.Context) (any, error) {
		resp, err := s.buildResponse(ctx, timePeriod, spec)
		if err != nil {
			return nil, err
		}

		if s.publisher != nil {
			s.publisher.PublishIndexTick(IndexTick{
				Anchor5:     resp.Anchor5.CurrentValue,
				Vibe20:      resp.Vibe20.CurrentValue,
				Wave100:     resp.Wave100.CurrentValue,
				LastUpdated: resp.LastUpdated,
			})
		}
		if s.archiver != nil {
			if err := s.archiver.ArchiveIndices(ctx, timePeriod, resp); err != nil {
				s.logger.Warn("snapshot archive failed",
					slog.String("period", timePeriod),
					slog.String("error", err.Error()),
				)
			}
		}
		return resp, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Response), nil
}

// Scores returns the period-invariant index scores, computing them at most
// once per score-cache generation.
func (s *Service) Scores(ctx context.Context) (domain.IndexSet, error) {
	v, err := s.cache.GetOrCompute(ctx, scoresKey, scoresTTL, func(ctx context.Context) (any, error) {
		snapshots, err := s.topMarkets(ctx)
		if err != nil {
			return nil, err
		}
		set, err := s.calculator.ComputeScores(snapshots)
		if err != nil {
			return nil, err
		}
		return set, nil
	})
	if err != nil {
		return domain.IndexSet{}, err
	}
	return v.(domain.IndexSet), nil
}

func (s *Service) buildResponse(ctx context.Context, timePeriod string, spec periodSpec) (*Response, error) {
	set, err := s.Scores(ctx)
	if err != nil {
		return nil, fmt.Errorf("indices: build %s response: %w", timePeriod, err)
	}

	end := s.now()
	return &Response{
		Anchor5:     s.buildPayload(set.Anchor, spec, end),
		Vibe20:      s.buildPayload(set.Vibe, spec, end),
		Wave100:     s.buildPayload(set.Wave, spec, end),
		LastUpdated: end.UTC(),
	}, nil
}

// buildPayload renders one score into its chart payload. The chart seed is
// derived from the index name and the clock-hour bucket so repeated requests
// within the same hour draw the same path.
func (s *Service) buildPayload(score domain.IndexScore, spec periodSpec, end time.Time) IndexPayload {
	seed := chartSeed(score.Name, end)
	candles := GenerateCandles(CandleParams{
		CurrentValue: score.Value,
		Change24Pct:  score.Change24Pct,
		Volatility:   score.Volatility,
		Periods:      spec.periods,
		IntervalSec:  spec.interval,
		End:          end,
		Seed:         &seed,
	})

	constituents := score.Constituents
	if len(constituents) > maxConstituentsInMeta {
		constituents = constituents[:maxConstituentsInMeta]
	}

	return IndexPayload{
		Index:        score.Name,
		BaseValue:    1,
		Timeframe:    spec.timeframe,
		Candles:      candles,
		CurrentValue: round2(score.Value),
		Change24Pct:  round2(score.Change24Pct),
		Volatility:   score.Volatility,
		Meta: PayloadMeta{
			TZ:                 "UTC",
			Constituents:       constituents,
			RebalanceFrequency: rebalanceFrequency(score.Name),
			Methodology:        score.Methodology,
		},
	}
}

// topMarkets fetches the raw snapshot list through two cache tiers: the
// in-process TTL cache and, when configured, the shared Redis tier.
func (s *Service) topMarkets(ctx context.Context) ([]domain.MarketSnapshot, error) {
	v, err := s.cache.GetOrCompute(ctx, marketsKey, marketsTTL, func(ctx context.Context) (any, error) {
		if s.snapshots != nil {
			if cached, err := s.snapshots.Get(ctx); err == nil && len(cached) > 0 {
				return cached, nil
			}
		}

		snapshots, err := s.fetcher.TopMarkets(ctx)
		if err != nil {
			return nil, err
		}

		if s.snapshots != nil {
			if err := s.snapshots.Set(ctx, snapshots); err != nil {
				s.logger.Warn("shared snapshot cache write failed",
					slog.String("error", err.Error()),
				)
			}
		}
		return snapshots, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]domain.MarketSnapshot), nil
}

// chartSeed buckets to the clock hour so charts stay visually stable
// between cache refreshes inside the same hour.
func chartSeed(indexName string, now time.Time) int64 {
	h := fnv.New64a()
	h.Write([]byte(indexName))
	return int64(h.Sum64()) ^ now.UTC().Unix()/3600
}

func rebalanceFrequency(indexName string) string {
	if indexName == "Anchor5" {
		return "weekly"
	}
	return "daily"
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
