package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/stock-track/internal/database"
	"github.com/stock-track/pkg/config"
	"github.com/stock-track/pkg/logger"
	"github.com/stock-track/pkg/models"
)

// migrateCmd represents the migrate command
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the catalog database schema",
	Long: `Create or update the MySQL schema for the symbol catalog and sync
status tracking. The migration is idempotent: running it against an
up-to-date database changes nothing.

Examples:
  stock-track migrate        # Apply the schema
  stock-track migrate seed   # Apply the schema and seed default symbols`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMigrate(false)
	},
}

var migrateSeedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Apply the schema and seed default symbols",
	Long:  "Applies the schema, then inserts a starter set of well-known tickers",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMigrate(true)
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateSeedCmd)
}

// defaultSymbols is the starter catalog seeded by `migrate seed`
var defaultSymbols = []struct {
	ticker   string
	name     string
	exchange string
	sector   string
}{
	{"AAPL", "Apple Inc.", "NASDAQ", "Technology"},
	{"MSFT", "Microsoft Corporation", "NASDAQ", "Technology"},
	{"GOOGL", "Alphabet Inc.", "NASDAQ", "Communication Services"},
	{"AMZN", "Amazon.com, Inc.", "NASDAQ", "Consumer Cyclical"},
	{"NVDA", "NVIDIA Corporation", "NASDAQ", "Technology"},
	{"META", "Meta Platforms, Inc.", "NASDAQ", "Communication Services"},
	{"TSLA", "Tesla, Inc.", "NASDAQ", "Consumer Cyclical"},
	{"JPM", "JPMorgan Chase & Co.", "NYSE", "Financial Services"},
	{"V", "Visa Inc.", "NYSE", "Financial Services"},
	{"JNJ", "Johnson & Johnson", "NYSE", "Healthcare"},
}

func runMigrate(seed bool) error {
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
		return fmt.Errorf("failed to connect to MySQL: %w", err)
	}
	defer mysqlClient.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := mysqlClient.Migrate(ctx); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	fmt.Println("✅ Schema is up to date")

	if !seed {
		return nil
	}

	seeded := 0
	for _, entry := range defaultSymbols {
		err := mysqlClient.UpsertSymbol(ctx, &models.SymbolInfo{
			Symbol:   entry.ticker,
			FullName: entry.name,
			Exchange: entry.exchange,
			Sector:   entry.sector,
			Currency: "USD",
			IsActive: true,
		})
		if err != nil {
			return fmt.Errorf("failed to seed %s: %w", entry.ticker, err)
		}
		seeded++
	}
	fmt.Printf("✅ Seeded %d symbols\n", seeded)

	return nil
}
