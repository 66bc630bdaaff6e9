package market

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/stock-track/internal/chart"
	"github.com/stock-track/pkg/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	log := logrus.New()
	log.SetOutput(io.Discard)

	return NewClient(&config.DataSourceConfig{
		BaseURL: srv.URL + "/api/v1/stocks",
		APIKey:  "test-key",
		Timeout: 5 * time.Second,
	}, log)
}

func TestClient_ChartData(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/stocks/AAPL/chart" {
			t.Errorf("path = %s, want /api/v1/stocks/AAPL/chart", r.URL.Path)
		}
		if got := r.URL.Query().Get("period"); got != "1y" {
			t.Errorf("period = %s, want 1y", got)
		}
		if got := r.URL.Query().Get("indicators"); got != "sma20,rsi14" {
			t.Errorf("indicators = %s, want sma20,rsi14", got)
		}
		if got := r.Header.Get("X-API-Key"); got != "test-key" {
			t.Errorf("api key header = %s, want test-key", got)
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"symbol": "AAPL",
			"period": "1y",
			"data": [{"date": "2025-01-06T00:00:00Z", "open": 10, "high": 12, "low": 9, "close": 11, "volume": 100}],
			"indicators": {"sma20": [null, 10.5]}
		}`))
	})

	data, err := client.ChartData(context.Background(), "AAPL", "1y", chart.ViewDaily, []string{"sma20", "rsi14"})
	if err != nil {
		t.Fatalf("ChartData() error = %v", err)
	}
	if data.Symbol != "AAPL" || len(data.Data) != 1 {
		t.Errorf("data = %s with %d rows, want AAPL with 1", data.Symbol, len(data.Data))
	}

	sma := data.Indicators["sma20"]
	if len(sma) != 2 {
		t.Fatalf("sma20 len = %d, want 2", len(sma))
	}
	// null decodes to NaN
	if sma[0] == sma[0] {
		t.Errorf("sma20[0] = %v, want NaN", sma[0])
	}
	if sma[1] != 10.5 {
		t.Errorf("sma20[1] = %v, want 10.5", sma[1])
	}
}

func TestClient_ChartData_UpstreamError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "symbol not found", http.StatusNotFound)
	})

	if _, err := client.ChartData(context.Background(), "NOPE", "1y", chart.ViewDaily, nil); err == nil {
		t.Error("ChartData() error = nil, want error on 404")
	}
}

func TestClient_History(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/stocks/MSFT/history" {
			t.Errorf("path = %s, want /api/v1/stocks/MSFT/history", r.URL.Path)
		}
		if got := r.URL.Query().Get("from"); got != "2025-01-01" {
			t.Errorf("from = %s, want 2025-01-01", got)
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"symbol": "MSFT",
			"bars": [
				{"timestamp": "2025-01-02T00:00:00Z", "open": 1, "high": 2, "low": 0.5, "close": 1.5, "volume": 10},
				{"timestamp": "2025-01-03T00:00:00Z", "open": 1.5, "high": 3, "low": 1, "close": 2.5, "volume": 20}
			]
		}`))
	})

	from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)

	bars, err := client.History(context.Background(), "MSFT", from, to)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(bars) != 2 {
		t.Fatalf("bars = %d, want 2", len(bars))
	}
	if bars[0].Symbol != "MSFT" {
		t.Errorf("bar symbol = %q, want MSFT", bars[0].Symbol)
	}
	if bars[1].Close != 2.5 {
		t.Errorf("last close = %v, want 2.5", bars[1].Close)
	}
}

func TestClient_Quote(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"symbol": "AAPL", "price": 201.5, "change": 1.5, "changePercent": 0.75}`))
	})

	quote, err := client.Quote(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("Quote() error = %v", err)
	}
	if quote.Price != 201.5 || quote.ChangePercent != 0.75 {
		t.Errorf("quote = %+v, want price 201.5 change%% 0.75", quote)
	}
}
