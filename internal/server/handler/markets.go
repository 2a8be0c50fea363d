package handler

import "net/http"

// MarketsHandler serves the traditional-markets comparison endpoint.
type MarketsHandler struct{}

// NewMarketsHandler creates a MarketsHandler.
func NewMarketsHandler() *MarketsHandler {
	return &MarketsHandler{}
}

// traditionalRow is one comparison row in the fallback dataset.
type traditionalRow struct {
	Symbol   string  `json:"symbol"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Change24 float64 `json:"change_24h"`
}

// GetTraditionalMarkets returns static comparison rows for traditional
// markets. Real quote feeds are out of scope; clients use these rows as a
// visual baseline next to the crypto indices.
// POST /api/traditional-markets
func (h *MarketsHandler) GetTraditionalMarkets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]traditionalRow{
		"fallback": {
			{Symbol: "SPY", Name: "S&P 500", Price: 450.0, Change24: 0.5},
			{Symbol: "QQQ", Name: "Nasdaq 100", Price: 380.0, Change24: 0.8},
			{Symbol: "GLD", Name: "Gold", Price: 180.0, Change24: -0.2},
		},
	})
}
