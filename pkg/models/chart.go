package models

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"time"
)

// Series is a numeric indicator series aligned with the chart rows.
// Warm-up gaps are NaN in memory and null on the wire.
type Series []float64

// MarshalJSON writes NaN values as null
func (s Series) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, v := range s {
		if i > 0 {
			buf.WriteByte(',')
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			buf.WriteString("null")
			continue
		}
		buf.WriteString(strconv.FormatFloat(v, 'f', -1, 64))
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads null values back as NaN
func (s *Series) UnmarshalJSON(data []byte) error {
	var raw []*float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(Series, len(raw))
	for i, v := range raw {
		if v == nil {
			out[i] = math.NaN()
			continue
		}
		out[i] = *v
	}
	*s = out
	return nil
}

// ChartPoint is one OHLCV row in the chart wire format
type ChartPoint struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// ChartData is one full fetch of chart series for a symbol: price/volume
// rows plus the numeric series of every requested indicator, keyed by
// indicator id. A fetch is immutable; a symbol, period or view change
// replaces the whole thing.
type ChartData struct {
	Symbol     string            `json:"symbol"`
	Period     string            `json:"period"`
	View       string            `json:"view,omitempty"`
	Data       []ChartPoint      `json:"data"`
	Indicators map[string]Series `json:"indicators,omitempty"`
}

// ChartPointFromBar converts a stored bar into the chart wire format
func ChartPointFromBar(bar *Bar) ChartPoint {
	return ChartPoint{
		Date:   bar.Timestamp,
		Open:   bar.Open,
		High:   bar.High,
		Low:    bar.Low,
		Close:  bar.Close,
		Volume: bar.Volume,
	}
}

// Bars converts chart points back into bars for indicator computation
func (cd *ChartData) Bars() []Bar {
	bars := make([]Bar, len(cd.Data))
	for i, p := range cd.Data {
		bars[i] = Bar{
			Symbol:    cd.Symbol,
			Timestamp: p.Date,
			Open:      p.Open,
			High:      p.High,
			Low:       p.Low,
			Close:     p.Close,
			Volume:    p.Volume,
		}
	}
	return bars
}
