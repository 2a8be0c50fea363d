package indices

import (
	"time"

	"github.com/sequencetheory/sequence-backend/internal/domain"
)

// maxConstituentsInMeta caps the constituent list in response metadata. The
// wave basket holds 100 members but clients only render the top of the list.
const maxConstituentsInMeta = 20

// Response is the assembled /api/crypto-indices payload: one chart payload
// per index plus the generation timestamp.
type Response struct {
	Anchor5     IndexPayload `json:"anchor5"`
	Vibe20      IndexPayload `json:"vibe20"`
	Wave100     IndexPayload `json:"wave100"`
	LastUpdated time.Time    `json:"lastUpdated"`
}

// IndexPayload is one index rendered for the chart client.
type IndexPayload struct {
	Index        string                 `json:"index"`
	BaseValue    float64                `json:"baseValue"`
	Timeframe    string                 `json:"timeframe"`
	Candles      []domain.Candle        `json:"candles"`
	CurrentValue float64                `json:"currentValue"`
	Change24Pct  float64                `json:"change_24h_percentage"`
	Volatility   domain.VolatilityClass `json:"volatility"`
	Meta         PayloadMeta            `json:"meta"`
}

// PayloadMeta carries display metadata alongside the chart series.
type PayloadMeta struct {
	TZ                 string               `json:"tz"`
	Constituents       []domain.Constituent `json:"constituents"`
	RebalanceFrequency string               `json:"rebalanceFrequency"`
	Methodology        string               `json:"methodology"`
}
