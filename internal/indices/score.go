// Package indices implements the crypto index engine: basket scoring over
// market snapshots, synthetic OHLC chart generation, and the cached
// fetch-compute pipeline behind the /api/crypto-indices endpoint.
package indices

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/sequencetheory/sequence-backend/internal/domain"
)

// Basket sizing and scaling constants. Earlier revisions of the index
// formulas only disagreed on these values, so they are named here rather
// than inlined.
const (
	anchorSize    = 5
	vibeSize      = 20
	waveSize      = 100
	anchorDivisor = 10.0 // anchor value = sum of prices / divisor
	vibeScale     = 0.05 // vibe value = sum of prices * scale
	waveScale     = 10.0 // wave value = sum of prices * scale
)

// stablecoins are excluded from every basket. Symbols are compared
// case-folded.
var stablecoins = map[string]bool{
	"usdt":  true,
	"usdc":  true,
	"busd":  true,
	"dai":   true,
	"tusd":  true,
	"fdusd": true,
	"usdd":  true,
}

// Calculator reduces a flat list of market snapshots to the three index
// scores. It holds no state beyond a logger; ComputeScores is deterministic
// for identical input.
type Calculator struct {
	logger *slog.Logger
}

// NewCalculator creates a Calculator.
func NewCalculator(logger *slog.Logger) *Calculator {
	return &Calculator{
		logger: logger.With(slog.String("component", "indices.calculator")),
	}
}

// ComputeScores partitions the snapshots into the anchor/vibe/wave baskets
// and reduces each to an index value and aggregate 24h change. It returns
// domain.ErrNoMarketData when no snapshot survives filtering.
func (c *Calculator) ComputeScores(snapshots []domain.MarketSnapshot) (domain.IndexSet, error) {
	coins := filterSnapshots(snapshots)
	if len(coins) == 0 {
		return domain.IndexSet{}, fmt.Errorf("indices: compute scores: %w", domain.ErrNoMarketData)
	}

	set := domain.IndexSet{
		Anchor: c.anchorScore(coins),
		Vibe:   c.vibeScore(coins),
		Wave:   c.waveScore(coins),
	}

	c.logger.Info("computed index scores",
		slog.Int("filtered_coins", len(coins)),
		slog.Float64("anchor_value", set.Anchor.Value),
		slog.Float64("vibe_value", set.Vibe.Value),
		slog.Float64("wave_value", set.Wave.Value),
	)

	return set, nil
}

// filterSnapshots drops stablecoins and rows with missing price or market
// cap. Input order is preserved so downstream stable sorts break ties by
// upstream rank.
func filterSnapshots(snapshots []domain.MarketSnapshot) []domain.MarketSnapshot {
	out := make([]domain.MarketSnapshot, 0, len(snapshots))
	for _, s := range snapshots {
		if stablecoins[strings.ToLower(s.Symbol)] {
			continue
		}
		if s.Price <= 0 || s.MarketCap <= 0 {
			continue
		}
		out = append(out, s)
	}
	return out
}

// anchorScore selects the top 5 by market cap. Value is the summed price
// over a fixed divisor (Dow style); change is the price-weighted average of
// the constituents' 24h moves.
func (c *Calculator) anchorScore(coins []domain.MarketSnapshot) domain.IndexScore {
	picked := topBy(coins, anchorSize, func(s domain.MarketSnapshot) float64 { return s.MarketCap })

	var sumPrice float64
	for _, s := range picked {
		sumPrice += s.Price
	}

	var change float64
	if sumPrice > 0 {
		for _, s := range picked {
			change += s.Change24() * (s.Price / sumPrice)
		}
	}

	return domain.IndexScore{
		Name:         "Anchor5",
		Value:        sumPrice / anchorDivisor,
		Change24Pct:  change,
		Volatility:   domain.VolatilityLow,
		Methodology:  "price-weighted top 5 by market cap",
		Constituents: equalWeightConstituents(picked),
	}
}

// vibeScore selects the top 20 by 24h volume. Change is volume-weighted,
// falling back to a simple average when the basket traded nothing.
func (c *Calculator) vibeScore(coins []domain.MarketSnapshot) domain.IndexScore {
	picked := topBy(coins, vibeSize, func(s domain.MarketSnapshot) float64 { return s.Volume24h })

	var sumPrice, sumVolume float64
	for _, s := range picked {
		sumPrice += s.Price
		sumVolume += s.Volume24h
	}

	var change float64
	if sumVolume > 0 {
		for _, s := range picked {
			change += s.Change24() * (s.Volume24h / sumVolume)
		}
	} else if len(picked) > 0 {
		for _, s := range picked {
			change += s.Change24()
		}
		change /= float64(len(picked))
	}

	return domain.IndexScore{
		Name:         "Vibe20",
		Value:        sumPrice * vibeScale,
		Change24Pct:  change,
		Volatility:   domain.VolatilityModerate,
		Methodology:  "volume-weighted top 20 by 24h volume",
		Constituents: equalWeightConstituents(picked),
	}
}

// waveScore ranks every coin that reported a 24h change by that change,
// best performers first, and takes exactly 100 constituents: coins without
// a reported change pad the tail in upstream order when fewer than 100
// qualify. Weight is a flat 1% per constituent regardless of count.
func (c *Calculator) waveScore(coins []domain.MarketSnapshot) domain.IndexScore {
	ranked := make([]domain.MarketSnapshot, 0, len(coins))
	pad := make([]domain.MarketSnapshot, 0)
	for _, s := range coins {
		if s.Change24Pct != nil {
			ranked = append(ranked, s)
		} else {
			pad = append(pad, s)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Change24() > ranked[j].Change24()
	})

	picked := ranked
	if len(picked) < waveSize {
		need := waveSize - len(picked)
		if need > len(pad) {
			need = len(pad)
		}
		picked = append(picked, pad[:need]...)
	}
	if len(picked) > waveSize {
		picked = picked[:waveSize]
	}

	var sumPrice, change float64
	for _, s := range picked {
		sumPrice += s.Price
		change += s.Change24()
	}
	if len(picked) > 0 {
		change /= float64(len(picked))
	}

	cons := make([]domain.Constituent, 0, len(picked))
	for _, s := range picked {
		cons = append(cons, toConstituent(s, 1.0))
	}

	return domain.IndexScore{
		Name:         "Wave100",
		Value:        sumPrice * waveScale,
		Change24Pct:  change,
		Volatility:   domain.VolatilityHigh,
		Methodology:  "equal-weighted top 100 by 24h momentum",
		Constituents: cons,
	}
}

// topBy returns the first n snapshots ordered descending by key. The sort is
// stable so ties keep upstream order.
func topBy(coins []domain.MarketSnapshot, n int, key func(domain.MarketSnapshot) float64) []domain.MarketSnapshot {
	sorted := make([]domain.MarketSnapshot, len(coins))
	copy(sorted, coins)
	sort.SliceStable(sorted, func(i, j int) bool {
		return key(sorted[i]) > key(sorted[j])
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

// equalWeightConstituents assigns each member an equal share of 100%.
func equalWeightConstituents(coins []domain.MarketSnapshot) []domain.Constituent {
	if len(coins) == 0 {
		return nil
	}
	weight := 100.0 / float64(len(coins))
	cons := make([]domain.Constituent, 0, len(coins))
	for _, s := range coins {
		cons = append(cons, toConstituent(s, weight))
	}
	return cons
}

func toConstituent(s domain.MarketSnapshot, weightPct float64) domain.Constituent {
	return domain.Constituent{
		ID:          s.ID,
		Symbol:      strings.ToUpper(s.Symbol),
		WeightPct:   weightPct,
		Price:       s.Price,
		MarketCap:   s.MarketCap,
		Volume24h:   s.Volume24h,
		Change24Pct: s.Change24(),
	}
}
