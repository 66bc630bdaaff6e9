package market

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/stock-track/internal/cache"
	"github.com/stock-track/internal/chart"
	"github.com/stock-track/internal/database"
	"github.com/stock-track/internal/indicator"
	"github.com/stock-track/pkg/models"
)

// Service assembles chart payloads from local storage: daily bars from
// InfluxDB, indicator series computed on the fly, results cached in
// Redis. It is the in-process chart.DataProvider.
type Service struct {
	influx *database.InfluxClient
	cache  *cache.RedisClient
	logger *logrus.Entry

	// now is swapped out by tests
	now func() time.Time
}

// NewService creates the market data service
func NewService(influx *database.InfluxClient, redis *cache.RedisClient, logger *logrus.Logger) *Service {
	return &Service{
		influx: influx,
		cache:  redis,
		logger: logger.WithField("component", "market"),
		now:    time.Now,
	}
}

// ChartData builds one full chart payload for a symbol. Cache failures
// are logged and ignored: Redis being down degrades to recomputing, not
// to an error.
func (s *Service) ChartData(ctx context.Context, symbol, period string, view chart.ViewType, indicators []string) (*models.ChartData, error) {
	if cached, err := s.cache.GetChartData(ctx, symbol, period, string(view), indicators); err != nil {
		s.logger.WithError(err).WithField("symbol", symbol).Warn("Chart cache read failed")
	} else if cached != nil {
		return cached, nil
	}

	from, to, err := PeriodRange(period, s.now())
	if err != nil {
		return nil, err
	}

	stored, err := s.influx.GetBars(ctx, symbol, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to load bars for %s: %w", symbol, err)
	}
	if len(stored) == 0 {
		return nil, fmt.Errorf("no data for symbol %s in period %s", symbol, period)
	}

	bars := make([]models.Bar, len(stored))
	for i, b := range stored {
		bars[i] = *b
	}

	if view == chart.ViewWeekly {
		bars = AggregateWeekly(bars)
	}

	data := &models.ChartData{
		Symbol:     symbol,
		Period:     period,
		View:       string(view),
		Data:       make([]models.ChartPoint, len(bars)),
		Indicators: make(map[string]models.Series),
	}
	for i := range bars {
		data.Data[i] = models.ChartPointFromBar(&bars[i])
	}

	for id, values := range indicator.NewCalculator(bars).Compute(indicators) {
		data.Indicators[id] = values
	}

	if err := s.cache.SetChartData(ctx, string(view), indicators, data); err != nil {
		s.logger.WithError(err).WithField("symbol", symbol).Warn("Chart cache write failed")
	}

	return data, nil
}

// Quote returns the latest quote for a symbol, derived from the last two
// daily bars
func (s *Service) Quote(ctx context.Context, symbol string) (*models.Quote, error) {
	if cached, err := s.cache.GetQuote(ctx, symbol); err != nil {
		s.logger.WithError(err).WithField("symbol", symbol).Warn("Quote cache read failed")
	} else if cached != nil {
		return cached, nil
	}

	bars, err := s.influx.GetLatestBars(ctx, symbol, 2)
	if err != nil {
		return nil, fmt.Errorf("failed to load latest bars for %s: %w", symbol, err)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("no data for symbol %s", symbol)
	}

	var previous *models.Bar
	if len(bars) > 1 {
		previous = bars[len(bars)-2]
	}
	quote := models.QuoteFromBars(bars[len(bars)-1], previous)

	if err := s.cache.SetQuote(ctx, quote); err != nil {
		s.logger.WithError(err).WithField("symbol", symbol).Warn("Quote cache write failed")
	}

	return quote, nil
}

// StoreBars writes fresh daily bars and invalidates cached charts for
// the symbol
func (s *Service) StoreBars(ctx context.Context, symbol string, bars []*models.Bar) error {
	if len(bars) == 0 {
		return nil
	}

	if err := s.influx.WriteBars(ctx, bars); err != nil {
		return err
	}

	if err := s.cache.InvalidateSymbol(ctx, symbol); err != nil {
		s.logger.WithError(err).WithField("symbol", symbol).Warn("Chart cache invalidation failed")
	}

	return nil
}
