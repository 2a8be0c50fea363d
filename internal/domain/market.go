package domain

// MarketSnapshot is one tradable asset as observed at fetch time. Snapshots
// are immutable for the lifetime of a request cycle and are never persisted.
type MarketSnapshot struct {
	ID          string   `json:"id"`
	Symbol      string   `json:"symbol"`
	Price       float64  `json:"current_price"`
	MarketCap   float64  `json:"market_cap"`
	Volume24h   float64  `json:"total_volume"`
	Change24Pct *float64 `json:"price_change_percentage_24h"` // nil when the upstream omits it
}

// Change24 returns the 24h change percentage, or 0 when absent.
func (s MarketSnapshot) Change24() float64 {
	if s.Change24Pct == nil {
		return 0
	}
	return *s.Change24Pct
}

// VolatilityClass controls how aggressively the candle generator perturbs a
// synthetic price path.
type VolatilityClass string

const (
	VolatilityLow      VolatilityClass = "low"
	VolatilityModerate VolatilityClass = "moderate"
	VolatilityHigh     VolatilityClass = "high"
)

// Constituent is one member of an index basket together with its weight in
// percent of the basket.
type Constituent struct {
	ID          string  `json:"id"`
	Symbol      string  `json:"symbol"`
	WeightPct   float64 `json:"weight"`
	Price       float64 `json:"price"`
	MarketCap   float64 `json:"market_cap"`
	Volume24h   float64 `json:"total_volume"`
	Change24Pct float64 `json:"price_change_percentage_24h"`
}

// IndexScore is the reduced value of one basket: a scalar index level, the
// aggregate 24h change, a fixed volatility class consumed by the candle
// generator, and the ordered constituents that produced it.
type IndexScore struct {
	Name         string          `json:"index"`
	Value        float64         `json:"value"`
	Change24Pct  float64         `json:"change_24h_percentage"`
	Volatility   VolatilityClass `json:"volatility"`
	Methodology  string          `json:"methodology"`
	Constituents []Constituent   `json:"constituents"`
}

// IndexSet bundles the three index scores computed from one market snapshot
// generation. Values are period-invariant: only chart resolution varies.
type IndexSet struct {
	Anchor IndexScore `json:"anchor5"`
	Vibe   IndexScore `json:"vibe20"`
	Wave   IndexScore `json:"wave100"`
}

// Candle is one OHLC+volume bar of a synthetic chart series.
// Invariant: Low <= min(Open, Close) <= max(Open, Close) <= High.
type Candle struct {
	Time      int64   `json:"time"` // unix seconds, strictly increasing within a series
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	VolumeUSD float64 `json:"volumeUsd"`
}
