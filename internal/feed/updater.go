package feed

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/stock-track/internal/database"
	"github.com/stock-track/internal/market"
	"github.com/stock-track/internal/messaging"
	"github.com/stock-track/pkg/config"
	"github.com/stock-track/pkg/models"
)

// Updater keeps local bar storage fresh: it polls the upstream provider
// for every active symbol, stores new daily bars, and publishes them so
// live chart sessions pick them up.
type Updater struct {
	cfg     *config.FeedConfig
	client  *market.Client
	service *market.Service
	mysql   *database.MySQLClient
	nats    *messaging.NATSClient
	logger  *logrus.Entry

	running bool
	done    chan struct{}
	wg      sync.WaitGroup
}

// NewUpdater creates the feed updater
func NewUpdater(
	cfg *config.FeedConfig,
	client *market.Client,
	service *market.Service,
	mysql *database.MySQLClient,
	nats *messaging.NATSClient,
	logger *logrus.Logger,
) *Updater {
	return &Updater{
		cfg:     cfg,
		client:  client,
		service: service,
		mysql:   mysql,
		nats:    nats,
		logger:  logger.WithField("component", "feed"),
		done:    make(chan struct{}),
	}
}

// Start begins the periodic update loop
func (u *Updater) Start(ctx context.Context) error {
	if u.running {
		return fmt.Errorf("feed updater already running")
	}
	if !u.cfg.Enabled {
		u.logger.Info("Feed updater disabled")
		return nil
	}

	u.running = true
	u.wg.Add(1)
	go u.loop(ctx)

	u.logger.WithField("interval", u.cfg.UpdateInterval).Info("Feed updater started")
	return nil
}

// Stop stops the update loop
func (u *Updater) Stop() error {
	if !u.running {
		return nil
	}

	close(u.done)
	u.running = false
	u.wg.Wait()

	u.logger.Info("Feed updater stopped")
	return nil
}

func (u *Updater) loop(ctx context.Context) {
	defer u.wg.Done()

	ticker := time.NewTicker(u.cfg.UpdateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-u.done:
			return
		case <-ticker.C:
			if err := u.updateAll(ctx); err != nil {
				u.logger.WithError(err).Error("Feed update cycle failed")
			}
		}
	}
}

// updateAll refreshes every active symbol in batches
func (u *Updater) updateAll(ctx context.Context) error {
	symbols, err := u.mysql.GetSymbols(ctx)
	if err != nil {
		return fmt.Errorf("failed to load symbols: %w", err)
	}

	updated := 0
	for i, symbol := range symbols {
		if i > 0 && u.cfg.BatchSize > 0 && i%u.cfg.BatchSize == 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-u.done:
				return nil
			case <-time.After(time.Second):
			}
		}

		if err := u.updateSymbol(ctx, symbol.Symbol); err != nil {
			u.logger.WithError(err).WithField("symbol", symbol.Symbol).Warn("Symbol update failed")
			continue
		}
		updated++
	}

	u.logger.WithFields(logrus.Fields{
		"symbols": len(symbols),
		"updated": updated,
	}).Debug("Feed update cycle complete")

	return nil
}

// updateSymbol pulls the most recent daily bars for one symbol, stores
// anything new, and publishes the latest bar and quote
func (u *Updater) updateSymbol(ctx context.Context, symbol string) error {
	now := time.Now().UTC()
	bars, err := u.client.History(ctx, symbol, now.AddDate(0, 0, -5), now.AddDate(0, 0, 1))
	if err != nil {
		return err
	}
	if len(bars) == 0 {
		return nil
	}

	if err := u.service.StoreBars(ctx, symbol, bars); err != nil {
		return err
	}

	latest := bars[len(bars)-1]
	if err := u.nats.PublishBar(latest); err != nil {
		u.logger.WithError(err).WithField("symbol", symbol).Warn("Failed to publish bar update")
	}

	var previous *models.Bar
	if len(bars) > 1 {
		previous = bars[len(bars)-2]
	}
	if err := u.nats.PublishQuote(models.QuoteFromBars(latest, previous)); err != nil {
		u.logger.WithError(err).WithField("symbol", symbol).Warn("Failed to publish quote update")
	}

	return nil
}

// Backfill loads the full daily history for a symbol from the provider
// and records progress in the catalog and on the SYNC subject
func (u *Updater) Backfill(ctx context.Context, symbol, period string) error {
	from, to, err := market.PeriodRange(period, time.Now().UTC())
	if err != nil {
		return err
	}

	u.setSyncStatus(ctx, &models.SyncStatus{Symbol: symbol, Status: models.SyncRunning})

	bars, err := u.client.History(ctx, symbol, from, to)
	if err != nil {
		u.setSyncStatus(ctx, &models.SyncStatus{Symbol: symbol, Status: models.SyncFailed, Error: err.Error()})
		return fmt.Errorf("failed to fetch history for %s: %w", symbol, err)
	}

	if err := u.service.StoreBars(ctx, symbol, bars); err != nil {
		u.setSyncStatus(ctx, &models.SyncStatus{Symbol: symbol, Status: models.SyncFailed, Error: err.Error()})
		return fmt.Errorf("failed to store history for %s: %w", symbol, err)
	}

	u.setSyncStatus(ctx, &models.SyncStatus{
		Symbol:    symbol,
		Status:    models.SyncCompleted,
		Progress:  100,
		TotalBars: len(bars),
	})

	u.logger.WithFields(logrus.Fields{
		"symbol": symbol,
		"bars":   len(bars),
		"period": period,
	}).Info("Backfill complete")

	return nil
}

func (u *Updater) setSyncStatus(ctx context.Context, status *models.SyncStatus) {
	status.UpdatedAt = time.Now()

	if err := u.mysql.SetSyncStatus(ctx, status); err != nil {
		u.logger.WithError(err).WithField("symbol", status.Symbol).Warn("Failed to record sync status")
	}
	if err := u.nats.PublishSyncStatus(status); err != nil {
		u.logger.WithError(err).WithField("symbol", status.Symbol).Warn("Failed to publish sync status")
	}
}
