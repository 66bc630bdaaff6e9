package models

import (
	"time"
)

// Bar represents one OHLCV candlestick
type Bar struct {
	Symbol    string    `json:"symbol,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
}

// Quote represents the latest traded values for a symbol
type Quote struct {
	Symbol        string    `json:"symbol"`
	Price         float64   `json:"price"`
	Open          float64   `json:"open"`
	High          float64   `json:"high"`
	Low           float64   `json:"low"`
	Volume        float64   `json:"volume"`
	Change        float64   `json:"change"`
	ChangePercent float64   `json:"changePercent"`
	Timestamp     time.Time `json:"timestamp"`
}

// QuoteFromBars derives a quote from the last two daily bars.
// The previous bar supplies the reference close for the change fields.
func QuoteFromBars(current, previous *Bar) *Quote {
	q := &Quote{
		Symbol:    current.Symbol,
		Price:     current.Close,
		Open:      current.Open,
		High:      current.High,
		Low:       current.Low,
		Volume:    current.Volume,
		Timestamp: current.Timestamp,
	}

	if previous != nil && previous.Close != 0 {
		q.Change = current.Close - previous.Close
		q.ChangePercent = q.Change / previous.Close * 100
	}

	return q
}
