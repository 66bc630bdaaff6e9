package indicator

import (
	"math"
	"testing"
	"time"

	"github.com/stock-track/pkg/models"
)

func makeBars(closes []float64) []models.Bar {
	bars := make([]models.Bar, len(closes))
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, c := range closes {
		bars[i] = models.Bar{
			Symbol:    "TEST",
			Timestamp: start.AddDate(0, 0, i),
			Open:      c - 0.5,
			High:      c + 1,
			Low:       c - 1,
			Close:     c,
			Volume:    1000 + float64(i),
		}
	}
	return bars
}

func TestSMA_KnownValues(t *testing.T) {
	bars := makeBars([]float64{1, 2, 3, 4, 5, 6})
	calc := NewCalculator(bars)

	sma := calc.sma(closes(bars), 3)
	if !math.IsNaN(sma[0]) || !math.IsNaN(sma[1]) {
		t.Error("expected NaN during warm-up")
	}
	want := []float64{2, 3, 4, 5}
	for i, w := range want {
		if got := sma[i+2]; math.Abs(got-w) > 1e-9 {
			t.Errorf("sma[%d] = %v, want %v", i+2, got, w)
		}
	}
}

func TestRSI_AllGains(t *testing.T) {
	closes := make([]float64, 20)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	calc := NewCalculator(makeBars(closes))

	rsi := calc.rsi(14)
	last := rsi[len(rsi)-1]
	if last != 100.0 {
		t.Errorf("expected RSI 100 for monotonically rising closes, got %v", last)
	}
}

func TestRSI_InsufficientData(t *testing.T) {
	calc := NewCalculator(makeBars([]float64{1, 2, 3}))
	rsi := calc.rsi(14)
	for i, v := range rsi {
		if !math.IsNaN(v) {
			t.Errorf("rsi[%d] = %v, want NaN with insufficient data", i, v)
		}
	}
}

func TestEMA_SeededWithSMA(t *testing.T) {
	bars := makeBars([]float64{2, 4, 6, 8, 10})
	calc := NewCalculator(bars)

	ema := calc.ema(closes(bars), 4)
	if !math.IsNaN(ema[2]) {
		t.Error("expected NaN before seed position")
	}
	if math.Abs(ema[3]-5.0) > 1e-9 {
		t.Errorf("ema seed = %v, want 5.0", ema[3])
	}
	// next value: (10-5)*0.4 + 5 = 7
	if math.Abs(ema[4]-7.0) > 1e-9 {
		t.Errorf("ema[4] = %v, want 7.0", ema[4])
	}
}

func TestCompute_MACDExpandsSeries(t *testing.T) {
	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 100 + math.Sin(float64(i)/5)*10
	}
	calc := NewCalculator(makeBars(closes))

	out := calc.Compute([]string{"macd"})
	for _, key := range []string{"macd", "macd_signal", "macd_hist"} {
		series, ok := out[key]
		if !ok {
			t.Fatalf("missing %s series", key)
		}
		if len(series) != 60 {
			t.Errorf("%s length = %d, want 60", key, len(series))
		}
	}

	macd := out["macd"]
	signal := out["macd_signal"]
	hist := out["macd_hist"]
	last := len(macd) - 1
	if math.IsNaN(macd[last]) || math.IsNaN(signal[last]) {
		t.Fatal("expected defined MACD values at series end")
	}
	if math.Abs(hist[last]-(macd[last]-signal[last])) > 1e-9 {
		t.Error("histogram should equal macd minus signal")
	}
}

func TestCompute_SkipsUnknownAndShortSeries(t *testing.T) {
	calc := NewCalculator(makeBars([]float64{1, 2, 3}))

	out := calc.Compute([]string{"sma200", "nope", "obv"})
	if _, ok := out["sma200"]; ok {
		t.Error("sma200 should be skipped with 3 bars")
	}
	if _, ok := out["nope"]; ok {
		t.Error("unknown id should be skipped")
	}
	if _, ok := out["obv"]; !ok {
		t.Error("obv should be computed with 3 bars")
	}
}

func TestOBV_Direction(t *testing.T) {
	bars := makeBars([]float64{10, 11, 10, 10})
	calc := NewCalculator(bars)

	obv := calc.obv()
	if obv[1] <= 0 {
		t.Error("up close should add volume")
	}
	if obv[2] >= obv[1] {
		t.Error("down close should subtract volume")
	}
	if obv[3] != obv[2] {
		t.Error("flat close should leave OBV unchanged")
	}
}

func TestBollinger_BandsSurroundMiddle(t *testing.T) {
	closes := make([]float64, 30)
	for i := range closes {
		closes[i] = 50 + float64(i%5)
	}
	calc := NewCalculator(makeBars(closes))

	upper, middle, lower := calc.bollinger(20, 2)
	for i := 19; i < 30; i++ {
		if !(upper[i] >= middle[i] && middle[i] >= lower[i]) {
			t.Errorf("band ordering violated at %d: %v %v %v", i, upper[i], middle[i], lower[i])
		}
	}
}

func TestRegistry_Kinds(t *testing.T) {
	if !IsOscillator("rsi14") {
		t.Error("rsi14 should be an oscillator")
	}
	if IsOscillator("sma20") {
		t.Error("sma20 is an overlay, not an oscillator")
	}
	if IsOscillator("unknown") {
		t.Error("unknown ids are not oscillators")
	}
	if _, ok := Lookup("macd"); !ok {
		t.Error("macd should be registered")
	}
	if len(All()) != len(catalogOrder) {
		t.Errorf("catalog should list %d indicators", len(catalogOrder))
	}
}
