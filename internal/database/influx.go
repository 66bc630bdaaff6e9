package database

import (
	"context"
	"fmt"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/sirupsen/logrus"

	"github.com/stock-track/pkg/config"
	"github.com/stock-track/pkg/models"
)

// Daily bars live in one measurement tagged by symbol
const measurementDaily = "ohlcv_1d"

// InfluxClient handles the OHLCV time-series store
type InfluxClient struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	queryAPI api.QueryAPI
	logger   *logrus.Entry
	bucket   string
}

// NewInfluxClient creates a new InfluxDB client
func NewInfluxClient(cfg *config.InfluxConfig, logger *logrus.Logger) *InfluxClient {
	client := influxdb2.NewClientWithOptions(
		cfg.URL,
		cfg.Token,
		influxdb2.DefaultOptions().
			SetHTTPRequestTimeout(uint(cfg.Timeout.Seconds())).
			SetLogLevel(0),
	)

	return &InfluxClient{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		queryAPI: client.QueryAPI(cfg.Org),
		logger:   logger.WithField("component", "influxdb"),
		bucket:   cfg.Bucket,
	}
}

// Close closes the InfluxDB client
func (ic *InfluxClient) Close() {
	ic.client.Close()
}

// Health checks InfluxDB health
func (ic *InfluxClient) Health(ctx context.Context) error {
	health, err := ic.client.Health(ctx)
	if err != nil {
		return fmt.Errorf("failed to check health: %w", err)
	}

	if health.Status != "pass" {
		msg := ""
		if health.Message != nil {
			msg = *health.Message
		}
		return fmt.Errorf("influxdb health check failed: %s", msg)
	}

	return nil
}

// WriteBar writes one daily OHLCV bar
func (ic *InfluxClient) WriteBar(ctx context.Context, bar *models.Bar) error {
	if err := ic.writeAPI.WritePoint(ctx, barPoint(bar)); err != nil {
		return fmt.Errorf("failed to write bar: %w", err)
	}
	return nil
}

// WriteBars writes multiple daily bars in a single batch
func (ic *InfluxClient) WriteBars(ctx context.Context, bars []*models.Bar) error {
	if len(bars) == 0 {
		return nil
	}

	points := make([]*write.Point, 0, len(bars))
	for _, bar := range bars {
		points = append(points, barPoint(bar))
	}

	if err := ic.writeAPI.WritePoint(ctx, points...); err != nil {
		return fmt.Errorf("failed to write bars batch (%d points): %w", len(points), err)
	}

	return nil
}

func barPoint(bar *models.Bar) *write.Point {
	return influxdb2.NewPoint(
		measurementDaily,
		map[string]string{
			"symbol": bar.Symbol,
		},
		map[string]interface{}{
			"open":   bar.Open,
			"high":   bar.High,
			"low":    bar.Low,
			"close":  bar.Close,
			"volume": bar.Volume,
		},
		bar.Timestamp,
	)
}

// GetBars retrieves daily bars for a symbol in [from, to), oldest first
func (ic *InfluxClient) GetBars(ctx context.Context, symbol string, from, to time.Time) ([]*models.Bar, error) {
	query := fmt.Sprintf(`
		from(bucket: "%s")
			|> range(start: %s, stop: %s)
			|> filter(fn: (r) => r._measurement == "%s")
			|> filter(fn: (r) => r.symbol == "%s")
			|> filter(fn: (r) => r._field == "open" or r._field == "high" or r._field == "low" or r._field == "close" or r._field == "volume")
			|> pivot(rowKey:["_time"], columnKey: ["_field"], valueColumn: "_value")
			|> sort(columns: ["_time"])
	`, ic.bucket, from.Format(time.RFC3339), to.Format(time.RFC3339), measurementDaily, symbol)

	result, err := ic.queryAPI.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query bars: %w", err)
	}
	defer result.Close()

	bars := make([]*models.Bar, 0)
	for result.Next() {
		record := result.Record()

		bar := &models.Bar{
			Symbol:    symbol,
			Timestamp: record.Time(),
		}
		if v, ok := record.Values()["open"].(float64); ok {
			bar.Open = v
		}
		if v, ok := record.Values()["high"].(float64); ok {
			bar.High = v
		}
		if v, ok := record.Values()["low"].(float64); ok {
			bar.Low = v
		}
		if v, ok := record.Values()["close"].(float64); ok {
			bar.Close = v
		}
		if v, ok := record.Values()["volume"].(float64); ok {
			bar.Volume = v
		}

		bars = append(bars, bar)
	}

	if result.Err() != nil {
		return nil, fmt.Errorf("query error: %w", result.Err())
	}

	return bars, nil
}

// GetLatestBars retrieves the most recent n daily bars for a symbol,
// oldest first. Returns an empty slice when no data exists.
func (ic *InfluxClient) GetLatestBars(ctx context.Context, symbol string, n int) ([]*models.Bar, error) {
	query := fmt.Sprintf(`
		from(bucket: "%s")
			|> range(start: -10y)
			|> filter(fn: (r) => r._measurement == "%s")
			|> filter(fn: (r) => r.symbol == "%s")
			|> filter(fn: (r) => r._field == "open" or r._field == "high" or r._field == "low" or r._field == "close" or r._field == "volume")
			|> pivot(rowKey:["_time"], columnKey: ["_field"], valueColumn: "_value")
			|> sort(columns: ["_time"], desc: true)
			|> limit(n: %d)
			|> sort(columns: ["_time"])
	`, ic.bucket, measurementDaily, symbol, n)

	result, err := ic.queryAPI.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query latest bars: %w", err)
	}
	defer result.Close()

	bars := make([]*models.Bar, 0, n)
	for result.Next() {
		record := result.Record()

		bar := &models.Bar{
			Symbol:    symbol,
			Timestamp: record.Time(),
		}
		if v, ok := record.Values()["open"].(float64); ok {
			bar.Open = v
		}
		if v, ok := record.Values()["high"].(float64); ok {
			bar.High = v
		}
		if v, ok := record.Values()["low"].(float64); ok {
			bar.Low = v
		}
		if v, ok := record.Values()["close"].(float64); ok {
			bar.Close = v
		}
		if v, ok := record.Values()["volume"].(float64); ok {
			bar.Volume = v
		}

		bars = append(bars, bar)
	}

	if result.Err() != nil {
		return nil, fmt.Errorf("query error: %w", result.Err())
	}

	return bars, nil
}

// GetDataTimeRange retrieves the earliest and latest bar timestamps and
// the total bar count for a symbol
func (ic *InfluxClient) GetDataTimeRange(ctx context.Context, symbol string) (earliest, latest time.Time, count int64, err error) {
	earliestQuery := fmt.Sprintf(`
		from(bucket: "%s")
			|> range(start: -30y)
			|> filter(fn: (r) => r._measurement == "%s")
			|> filter(fn: (r) => r.symbol == "%s")
			|> filter(fn: (r) => r._field == "close")
			|> first()
	`, ic.bucket, measurementDaily, symbol)

	earliestResult, err := ic.queryAPI.Query(ctx, earliestQuery)
	if err != nil {
		return time.Time{}, time.Time{}, 0, fmt.Errorf("failed to query earliest: %w", err)
	}
	if earliestResult.Next() {
		earliest = earliestResult.Record().Time()
	}
	earliestResult.Close()

	latestQuery := fmt.Sprintf(`
		from(bucket: "%s")
			|> range(start: -30y)
			|> filter(fn: (r) => r._measurement == "%s")
			|> filter(fn: (r) => r.symbol == "%s")
			|> filter(fn: (r) => r._field == "close")
			|> last()
	`, ic.bucket, measurementDaily, symbol)

	latestResult, err := ic.queryAPI.Query(ctx, latestQuery)
	if err != nil {
		return earliest, time.Time{}, 0, fmt.Errorf("failed to query latest: %w", err)
	}
	if latestResult.Next() {
		latest = latestResult.Record().Time()
	}
	latestResult.Close()

	countQuery := fmt.Sprintf(`
		from(bucket: "%s")
			|> range(start: -30y)
			|> filter(fn: (r) => r._measurement == "%s")
			|> filter(fn: (r) => r.symbol == "%s")
			|> filter(fn: (r) => r._field == "close")
			|> count()
	`, ic.bucket, measurementDaily, symbol)

	countResult, err := ic.queryAPI.Query(ctx, countQuery)
	if err != nil {
		return earliest, latest, 0, fmt.Errorf("failed to query count: %w", err)
	}
	if countResult.Next() {
		if v, ok := countResult.Record().Value().(int64); ok {
			count = v
		}
	}
	countResult.Close()

	return earliest, latest, count, nil
}
