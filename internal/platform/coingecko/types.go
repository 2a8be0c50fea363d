package coingecko

import "github.com/sequencetheory/sequence-backend/internal/domain"

// marketRow mirrors one element of the /coins/markets response, restricted
// to the fields the index engine reads.
type marketRow struct {
	ID                       string   `json:"id"`
	Symbol                   string   `json:"symbol"`
	CurrentPrice             *float64 `json:"current_price"`
	MarketCap                *float64 `json:"market_cap"`
	TotalVolume              *float64 `json:"total_volume"`
	PriceChangePercentage24h *float64 `json:"price_change_percentage_24h"`
}

// toSnapshot converts an API row to the domain snapshot. Absent numeric
// fields become zero except the 24h change, whose absence is meaningful to
// the wave basket and is preserved as nil.
func (r *marketRow) toSnapshot() domain.MarketSnapshot {
	s := domain.MarketSnapshot{
		ID:          r.ID,
		Symbol:      r.Symbol,
		Change24Pct: r.PriceChangePercentage24h,
	}
	if r.CurrentPrice != nil {
		s.Price = *r.CurrentPrice
	}
	if r.MarketCap != nil {
		s.MarketCap = *r.MarketCap
	}
	if r.TotalVolume != nil {
		s.Volume24h = *r.TotalVolume
	}
	return s
}
