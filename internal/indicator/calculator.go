package indicator

import (
	"math"

	"github.com/stock-track/pkg/models"
)

// Calculator computes indicator series from OHLCV bars. Output series are
// aligned with the input bars; warm-up positions hold NaN, which the wire
// layer serializes as null.
type Calculator struct {
	bars []models.Bar
}

// NewCalculator creates a calculator over one fetch of bars
func NewCalculator(bars []models.Bar) *Calculator {
	return &Calculator{bars: bars}
}

// Compute calculates all requested indicator series keyed by id. The macd
// id expands into macd, macd_signal and macd_hist series. Unknown ids and
// ids with insufficient data are skipped.
func (c *Calculator) Compute(ids []string) map[string][]float64 {
	out := make(map[string][]float64)

	for _, id := range ids {
		def, ok := Lookup(id)
		if !ok || len(c.bars) < def.MinBars {
			continue
		}

		switch id {
		case "sma20":
			out[id] = c.sma(closes(c.bars), 20)
		case "sma50":
			out[id] = c.sma(closes(c.bars), 50)
		case "sma200":
			out[id] = c.sma(closes(c.bars), 200)
		case "ema12":
			out[id] = c.ema(closes(c.bars), 12)
		case "ema26":
			out[id] = c.ema(closes(c.bars), 26)
		case "bb20":
			upper, middle, lower := c.bollinger(20, 2)
			out["bb20_upper"] = upper
			out["bb20"] = middle
			out["bb20_lower"] = lower
		case "rsi14":
			out[id] = c.rsi(14)
		case "macd":
			macd, signal, hist := c.macd(12, 26, 9)
			out["macd"] = macd
			out["macd_signal"] = signal
			out["macd_hist"] = hist
		case "atr14":
			out[id] = c.atr(14)
		case "stoch":
			k, d := c.stochastic(14, 3)
			out["stoch"] = k
			out["stoch_signal"] = d
		case "obv":
			out[id] = c.obv()
		case "volsma20":
			out[id] = c.sma(volumes(c.bars), 20)
		}
	}

	return out
}

// sma computes a simple moving average over the given values
func (c *Calculator) sma(values []float64, period int) []float64 {
	out := nanSeries(len(values))
	if period <= 0 || len(values) < period {
		return out
	}

	var sum float64
	for i, v := range values {
		sum += v
		if i >= period {
			sum -= values[i-period]
		}
		if i >= period-1 {
			out[i] = sum / float64(period)
		}
	}
	return out
}

// ema computes an exponential moving average seeded with the SMA of the
// first `period` values
func (c *Calculator) ema(values []float64, period int) []float64 {
	out := nanSeries(len(values))
	if period <= 0 || len(values) < period {
		return out
	}

	var seed float64
	for i := 0; i < period; i++ {
		seed += values[i]
	}
	seed /= float64(period)
	out[period-1] = seed

	multiplier := 2.0 / float64(period+1)
	prev := seed
	for i := period; i < len(values); i++ {
		prev = (values[i]-prev)*multiplier + prev
		out[i] = prev
	}
	return out
}

// rsi computes the Wilder-smoothed relative strength index
func (c *Calculator) rsi(period int) []float64 {
	values := closes(c.bars)
	out := nanSeries(len(values))
	if len(values) < period+1 {
		return out
	}

	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		change := values[i] - values[i-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss -= change
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)
	out[period] = rsiValue(avgGain, avgLoss)

	for i := period + 1; i < len(values); i++ {
		change := values[i] - values[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
		out[i] = rsiValue(avgGain, avgLoss)
	}
	return out
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100.0
	}
	rs := avgGain / avgLoss
	return 100.0 - 100.0/(1.0+rs)
}

// macd computes the MACD line, signal line and histogram
func (c *Calculator) macd(fast, slow, signalPeriod int) (macd, signal, hist []float64) {
	values := closes(c.bars)
	fastEMA := c.ema(values, fast)
	slowEMA := c.ema(values, slow)

	macd = nanSeries(len(values))
	for i := range values {
		if !math.IsNaN(fastEMA[i]) && !math.IsNaN(slowEMA[i]) {
			macd[i] = fastEMA[i] - slowEMA[i]
		}
	}

	// Signal line is an EMA over the defined stretch of the MACD line
	signal = nanSeries(len(values))
	hist = nanSeries(len(values))
	start := slow - 1
	if start >= len(values) {
		return macd, signal, hist
	}
	sub := c.ema(macd[start:], signalPeriod)
	for i, v := range sub {
		signal[start+i] = v
		if !math.IsNaN(v) && !math.IsNaN(macd[start+i]) {
			hist[start+i] = macd[start+i] - v
		}
	}
	return macd, signal, hist
}

// bollinger computes Bollinger Bands around a 20-period SMA
func (c *Calculator) bollinger(period int, stdDevs float64) (upper, middle, lower []float64) {
	values := closes(c.bars)
	middle = c.sma(values, period)
	upper = nanSeries(len(values))
	lower = nanSeries(len(values))

	for i := period - 1; i < len(values); i++ {
		mean := middle[i]
		var variance float64
		for j := i - period + 1; j <= i; j++ {
			d := values[j] - mean
			variance += d * d
		}
		sd := math.Sqrt(variance / float64(period))
		upper[i] = mean + stdDevs*sd
		lower[i] = mean - stdDevs*sd
	}
	return upper, middle, lower
}

// atr computes the Wilder-smoothed average true range
func (c *Calculator) atr(period int) []float64 {
	out := nanSeries(len(c.bars))
	if len(c.bars) < period+1 {
		return out
	}

	trs := make([]float64, len(c.bars))
	trs[0] = c.bars[0].High - c.bars[0].Low
	for i := 1; i < len(c.bars); i++ {
		highLow := c.bars[i].High - c.bars[i].Low
		highClose := math.Abs(c.bars[i].High - c.bars[i-1].Close)
		lowClose := math.Abs(c.bars[i].Low - c.bars[i-1].Close)
		trs[i] = math.Max(highLow, math.Max(highClose, lowClose))
	}

	var sum float64
	for i := 1; i <= period; i++ {
		sum += trs[i]
	}
	atr := sum / float64(period)
	out[period] = atr

	for i := period + 1; i < len(c.bars); i++ {
		atr = (atr*float64(period-1) + trs[i]) / float64(period)
		out[i] = atr
	}
	return out
}

// stochastic computes %K and its %D smoothing
func (c *Calculator) stochastic(period, smooth int) (k, d []float64) {
	k = nanSeries(len(c.bars))
	for i := period - 1; i < len(c.bars); i++ {
		high := c.bars[i].High
		low := c.bars[i].Low
		for j := i - period + 1; j <= i; j++ {
			high = math.Max(high, c.bars[j].High)
			low = math.Min(low, c.bars[j].Low)
		}
		if high == low {
			k[i] = 50.0
			continue
		}
		k[i] = (c.bars[i].Close - low) / (high - low) * 100
	}

	d = nanSeries(len(c.bars))
	for i := period + smooth - 2; i < len(c.bars); i++ {
		var sum float64
		for j := i - smooth + 1; j <= i; j++ {
			sum += k[j]
		}
		d[i] = sum / float64(smooth)
	}
	return k, d
}

// obv computes cumulative on-balance volume
func (c *Calculator) obv() []float64 {
	out := nanSeries(len(c.bars))
	if len(c.bars) == 0 {
		return out
	}

	out[0] = 0
	for i := 1; i < len(c.bars); i++ {
		obv := out[i-1]
		switch {
		case c.bars[i].Close > c.bars[i-1].Close:
			obv += c.bars[i].Volume
		case c.bars[i].Close < c.bars[i-1].Close:
			obv -= c.bars[i].Volume
		}
		out[i] = obv
	}
	return out
}

func closes(bars []models.Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}

func volumes(bars []models.Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Volume
	}
	return out
}

func nanSeries(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}
