package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/stock-track/internal/cache"
	"github.com/stock-track/internal/database"
	"github.com/stock-track/internal/feed"
	"github.com/stock-track/internal/market"
	"github.com/stock-track/internal/messaging"
	"github.com/stock-track/pkg/config"
	"github.com/stock-track/pkg/logger"
)

var (
	backfillSymbol string
	backfillPeriod string
	backfillAll    bool
)

var backfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Backfill historical daily bars",
	Long: `Backfill historical daily bars from the upstream data source into
InfluxDB. Progress is recorded in the sync status table and published
on the sync subject.

Examples:
  # Backfill one year of daily bars for AAPL
  stock-track backfill --symbol AAPL --period 1y

  # Backfill the full available history for MSFT
  stock-track backfill --symbol MSFT --period max

  # Backfill five years for every active symbol
  stock-track backfill --all --period 5y`,
	RunE: runBackfill,
}

func init() {
	backfillCmd.Flags().StringVar(&backfillSymbol, "symbol", "", "Symbol to backfill (e.g., AAPL)")
	backfillCmd.Flags().StringVar(&backfillPeriod, "period", "max", "Lookback period (1m, 3m, 6m, 1y, 2y, 5y, max)")
	backfillCmd.Flags().BoolVar(&backfillAll, "all", false, "Backfill all active symbols")

	rootCmd.AddCommand(backfillCmd)
}

func runBackfill(cmd *cobra.Command, args []string) error {
	if !backfillAll && backfillSymbol == "" {
		return fmt.Errorf("either --symbol or --all must be specified")
	}
	if backfillAll && backfillSymbol != "" {
		return fmt.Errorf("cannot specify both --symbol and --all")
	}

	valid := false
	for _, p := range market.Periods() {
		if p == backfillPeriod {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("invalid period: %s. Valid periods: %s", backfillPeriod, strings.Join(market.Periods(), ", "))
	}

	config.LoadDotEnv()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.New(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	mysqlClient, err := database.NewMySQLClient(&cfg.MySQL, log)
	if err != nil {
		return fmt.Errorf("failed to create MySQL client: %w", err)
	}
	defer mysqlClient.Close()

	influxClient := database.NewInfluxClient(&cfg.InfluxDB, log)
	defer influxClient.Close()

	redisClient, err := cache.NewRedisClient(&cfg.Redis, log)
	if err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}
	defer redisClient.Close()

	natsClient, err := messaging.NewNATSClient(&cfg.NATS, log)
	if err != nil {
		return fmt.Errorf("failed to connect to NATS: %w", err)
	}
	defer natsClient.Close()

	service := market.NewService(influxClient, redisClient, log)
	client := market.NewClient(&cfg.DataSource, log)
	updater := feed.NewUpdater(&cfg.Feed, client, service, mysqlClient, natsClient, log)

	ctx := context.Background()

	if !backfillAll {
		if err := updater.Backfill(ctx, backfillSymbol, backfillPeriod); err != nil {
			return fmt.Errorf("backfill failed: %w", err)
		}
		return nil
	}

	symbols, err := mysqlClient.GetSymbols(ctx)
	if err != nil {
		return fmt.Errorf("failed to load symbols: %w", err)
	}

	failed := 0
	for _, info := range symbols {
		if !info.IsActive {
			continue
		}
		if err := updater.Backfill(ctx, info.Symbol, backfillPeriod); err != nil {
			log.WithError(err).WithField("symbol", info.Symbol).Error("Backfill failed")
			failed++
		}
	}

	if failed > 0 {
		return fmt.Errorf("backfill failed for %d symbols", failed)
	}

	log.Info("Backfill completed for all active symbols")
	return nil
}
