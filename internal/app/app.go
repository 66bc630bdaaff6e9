package app

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/stock-track/internal/api"
	"github.com/stock-track/internal/cache"
	"github.com/stock-track/internal/database"
	"github.com/stock-track/internal/feed"
	"github.com/stock-track/internal/market"
	"github.com/stock-track/internal/messaging"
	"github.com/stock-track/internal/render"
	"github.com/stock-track/internal/session"
	"github.com/stock-track/internal/stream"
	"github.com/stock-track/internal/symbols"
	"github.com/stock-track/pkg/config"
)

// App wires and runs the whole service: storage clients, the market data
// service, the chart session registry, the feed updater, the stream hub
// and the HTTP API.
type App struct {
	cfg    *config.Config
	logger *logrus.Logger
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	influxDB   *database.InfluxClient
	mysqlDB    *database.MySQLClient
	redisCache *cache.RedisClient
	natsClient *messaging.NATSClient
	symbolsMgr *symbols.Manager

	marketSvc    *market.Service
	marketClient *market.Client
	hub          *stream.Hub
	sessions     *session.Registry
	feedUpdater  *feed.Updater
	apiServer    *api.Server
}

// New creates a new application instance
func New(cfg *config.Config, logger *logrus.Logger) *App {
	ctx, cancel := context.WithCancel(context.Background())

	return &App{
		cfg:    cfg,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Initialize connects every backend and builds the component graph
func (a *App) Initialize() error {
	if err := a.initializeDatabase(); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := a.initializeSymbols(); err != nil {
		return fmt.Errorf("failed to initialize symbols: %w", err)
	}

	if err := a.initializeCache(); err != nil {
		return fmt.Errorf("failed to initialize cache: %w", err)
	}

	if err := a.initializeMessaging(); err != nil {
		return fmt.Errorf("failed to initialize messaging: %w", err)
	}

	if err := a.initializeCharting(); err != nil {
		return fmt.Errorf("failed to initialize charting: %w", err)
	}

	a.initializeFeed()
	a.initializeAPIServer()

	return nil
}

// Start starts the application
func (a *App) Start() error {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.hub.Run(a.ctx)
	}()

	if err := a.sessions.Start(a.ctx); err != nil {
		return fmt.Errorf("failed to start session registry: %w", err)
	}

	if err := a.feedUpdater.Start(a.ctx); err != nil {
		return fmt.Errorf("failed to start feed updater: %w", err)
	}

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := a.apiServer.Start(); err != nil && err != http.ErrServerClosed {
			a.logger.WithError(err).Error("API server error")
		}
	}()

	return nil
}

// Stop gracefully stops the application
func (a *App) Stop() error {
	a.logger.Info("Stopping application...")

	if a.apiServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := a.apiServer.Stop(ctx); err != nil {
			a.logger.WithError(err).Error("Error stopping API server")
		}
		cancel()
	}

	if a.feedUpdater != nil {
		if err := a.feedUpdater.Stop(); err != nil {
			a.logger.WithError(err).Error("Error stopping feed updater")
		}
	}

	if a.sessions != nil {
		if err := a.sessions.Stop(); err != nil {
			a.logger.WithError(err).Error("Error stopping session registry")
		}
	}

	if a.hub != nil {
		a.hub.Stop()
	}

	a.cancel()

	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		a.logger.Warn("Timeout waiting for goroutines to finish")
	}

	if err := a.closeConnections(); err != nil {
		a.logger.WithError(err).Error("Error closing connections")
	}

	a.logger.Info("Application stopped")
	return nil
}

// GetContext returns the application context
func (a *App) GetContext() context.Context {
	return a.ctx
}

// GetConfig returns the application configuration
func (a *App) GetConfig() *config.Config {
	return a.cfg
}

// GetLogger returns the application logger
func (a *App) GetLogger() *logrus.Logger {
	return a.logger
}

// GetSymbolsManager returns the symbols manager
func (a *App) GetSymbolsManager() *symbols.Manager {
	return a.symbolsMgr
}

// GetFeedUpdater returns the feed updater
func (a *App) GetFeedUpdater() *feed.Updater {
	return a.feedUpdater
}

// GetMySQL returns the catalog database client
func (a *App) GetMySQL() *database.MySQLClient {
	return a.mysqlDB
}

// Private initialization methods

func (a *App) initializeDatabase() error {
	mysqlClient, err := database.NewMySQLClient(&a.cfg.MySQL, a.logger)
	if err != nil {
		return fmt.Errorf("failed to connect to MySQL: %w", err)
	}
	a.mysqlDB = mysqlClient

	a.influxDB = database.NewInfluxClient(&a.cfg.InfluxDB, a.logger)
	if err := a.influxDB.Health(a.ctx); err != nil {
		return fmt.Errorf("failed to connect to InfluxDB: %w", err)
	}

	return nil
}

func (a *App) initializeSymbols() error {
	a.symbolsMgr = symbols.NewManager(a.mysqlDB, a.logger)

	if err := a.symbolsMgr.Initialize(a.ctx); err != nil {
		return fmt.Errorf("failed to initialize symbols manager: %w", err)
	}

	return nil
}

func (a *App) initializeCache() error {
	redisClient, err := cache.NewRedisClient(&a.cfg.Redis, a.logger)
	if err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}
	a.redisCache = redisClient

	return nil
}

func (a *App) initializeMessaging() error {
	natsClient, err := messaging.NewNATSClient(&a.cfg.NATS, a.logger)
	if err != nil {
		return fmt.Errorf("failed to connect to NATS: %w", err)
	}
	a.natsClient = natsClient

	return nil
}

// initializeCharting builds the chart pipeline: the market data service
// behind every chart, the stream hub the frames go out on, the engine
// factory that binds the two, and the session registry on top.
func (a *App) initializeCharting() error {
	a.marketSvc = market.NewService(a.influxDB, a.redisCache, a.logger)
	a.hub = stream.NewHub(&a.cfg.WebSocket, a.logger)

	err := render.InitDefault(func(sessionID string) render.Engine {
		return render.NewStreamEngine(sessionID, a.hub, a.logger)
	})
	if err != nil {
		return fmt.Errorf("failed to install engine factory: %w", err)
	}

	a.sessions = session.NewRegistry(&a.cfg.Chart, a.marketSvc, a.redisCache, a.natsClient, a.logger)

	return nil
}

func (a *App) initializeFeed() {
	a.marketClient = market.NewClient(&a.cfg.DataSource, a.logger)
	a.feedUpdater = feed.NewUpdater(&a.cfg.Feed, a.marketClient, a.marketSvc, a.mysqlDB, a.natsClient, a.logger)
}

func (a *App) initializeAPIServer() {
	a.apiServer = api.NewServer(
		a.cfg,
		a.logger,
		a.influxDB,
		a.mysqlDB,
		a.redisCache,
		a.natsClient,
		a.marketSvc,
		a.symbolsMgr,
		a.sessions,
		a.hub,
	)
}

func (a *App) closeConnections() error {
	var errs []error

	if a.mysqlDB != nil {
		if err := a.mysqlDB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close MySQL: %w", err))
		}
	}

	if a.influxDB != nil {
		a.influxDB.Close()
	}

	if a.redisCache != nil {
		if err := a.redisCache.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close Redis: %w", err))
		}
	}

	if a.natsClient != nil {
		if err := a.natsClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close NATS: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors closing connections: %v", errs)
	}

	return nil
}
