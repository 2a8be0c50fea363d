package indices

import (
	"math"
	"math/rand"
	"time"

	"github.com/sequencetheory/sequence-backend/internal/domain"
)

const secondsPerYear = 365 * 24 * 3600

// Fallbacks for degenerate generator input. Chart data is decorative, so
// bad numbers are clamped instead of rejected.
const (
	defaultCurrentValue = 100.0
	defaultPeriods      = 24
	defaultIntervalSec  = 3600
)

// volParams tunes the random walk per volatility class.
type volParams struct {
	annualizedVol float64 // yearly standard deviation of log returns
	wickFactor    float64 // wick size relative to candle body
	trendStrength float64 // pull toward the interpolated target path
}

var volTable = map[domain.VolatilityClass]volParams{
	domain.VolatilityLow:      {annualizedVol: 0.15, wickFactor: 0.3, trendStrength: 0.8},
	domain.VolatilityModerate: {annualizedVol: 0.45, wickFactor: 0.5, trendStrength: 0.6},
	domain.VolatilityHigh:     {annualizedVol: 0.85, wickFactor: 0.8, trendStrength: 0.4},
}

// CandleParams describes one synthetic chart request.
type CandleParams struct {
	CurrentValue float64
	Change24Pct  float64
	Volatility   domain.VolatilityClass
	Periods      int
	IntervalSec  int64

	// End anchors the last candle's timestamp. Zero means time.Now().
	End time.Time

	// Seed makes the sequence reproducible when non-nil. The generator
	// always uses its own rand.Source, never the shared global one, so
	// concurrent calls cannot interfere.
	Seed *int64
}

// GenerateCandles fabricates a plausible OHLC+volume history that ends
// exactly at CurrentValue. The path is a mean-reverting multiplicative
// random walk whose per-candle volatility derives from the volatility class
// and the candle interval. Two calls with the same non-nil seed and
// identical parameters produce identical output.
func GenerateCandles(p CandleParams) []domain.Candle {
	current := p.CurrentValue
	if current <= 0 {
		current = defaultCurrentValue
	}
	periods := p.Periods
	if periods <= 0 {
		periods = defaultPeriods
	}
	interval := p.IntervalSec
	if interval <= 0 {
		interval = defaultIntervalSec
	}
	end := p.End
	if end.IsZero() {
		end = time.Now()
	}

	vp, ok := volTable[p.Volatility]
	if !ok {
		vp = volTable[domain.VolatilityModerate]
	}

	var rng *rand.Rand
	if p.Seed != nil {
		rng = rand.New(rand.NewSource(*p.Seed))
	} else {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	candleVol := vp.annualizedVol * math.Sqrt(float64(interval)/secondsPerYear)
	drift := (p.Change24Pct / 100) / float64(periods)

	start := current
	if denom := 1 + p.Change24Pct/100; denom > 0 {
		start = current / denom
	}

	endUnix := end.Unix()
	floor := current * 0.1

	candles := make([]domain.Candle, 0, periods)
	price := start
	prevClose := start

	for i := 0; i < periods; i++ {
		// Pull the walk toward a straight line from start to current so the
		// path trends the right way instead of wandering off.
		target := start + (current-start)*float64(i+1)/float64(periods)
		meanRev := (target - price) / price * vp.trendStrength * 0.1

		noise := rng.NormFloat64() * candleVol
		price *= math.Exp(drift + noise + meanRev)
		if price < floor {
			price = floor
		}
		if i == periods-1 {
			price = current // the chart must land exactly on the live value
		}

		open := prevClose
		close := price
		body := math.Abs(close - open)

		wick := math.Max(body*vp.wickFactor, close*candleVol*0.3)
		upper := wick * math.Abs(rng.NormFloat64())
		lower := wick * math.Abs(rng.NormFloat64())

		high := math.Max(open, close) + upper
		low := math.Min(open, close) - lower
		if min := close * 0.01; low < min {
			low = min
		}
		if low > math.Min(open, close) {
			low = math.Min(open, close)
		}

		candles = append(candles, domain.Candle{
			Time:      endUnix - int64(periods-1-i)*interval,
			Open:      open,
			High:      high,
			Low:       low,
			Close:     close,
			VolumeUSD: syntheticVolume(current, open, close, rng),
		})
		prevClose = close
	}

	return candles
}

// syntheticVolume is a cosmetic heuristic: bigger candle bodies attract more
// volume, scaled by a wide uniform jitter. It is not a traded-volume
// estimate.
func syntheticVolume(current, open, close float64, rng *rand.Rand) float64 {
	base := current * 50_000
	var move float64
	if close > 0 {
		move = math.Abs(close-open) / close
	}
	jitter := 0.5 + rng.Float64() // [0.5, 1.5)
	return base * (1 + move*20) * jitter
}
