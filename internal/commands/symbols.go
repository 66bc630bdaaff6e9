package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/stock-track/internal/database"
	"github.com/stock-track/internal/symbols"
	"github.com/stock-track/pkg/config"
	"github.com/stock-track/pkg/logger"
	"github.com/stock-track/pkg/models"
)

var symbolsCmd = &cobra.Command{
	Use:   "symbols",
	Short: "Manage the tracked symbol catalog",
	Long:  "Commands for managing and viewing the tracked stock catalog",
}

// catalogManager wires up a symbols manager against the configured MySQL
// database. The caller closes the returned client.
func catalogManager() (*symbols.Manager, *database.MySQLClient, error) {
	config.LoadDotEnv()

	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.New(&cfg.Logging)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	mysqlClient, err := database.NewMySQLClient(&cfg.MySQL, log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to MySQL: %w", err)
	}

	mgr := symbols.NewManager(mysqlClient, log)
	if err := mgr.Initialize(context.Background()); err != nil {
		mysqlClient.Close()
		return nil, nil, fmt.Errorf("failed to initialize symbols: %w", err)
	}

	return mgr, mysqlClient, nil
}

var listSymbolsCmd = &cobra.Command{
	Use:   "list",
	Short: "List active symbols",
	Long:  "List all active symbols in the catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, db, err := catalogManager()
		if err != nil {
			return err
		}
		defer db.Close()

		exchange, _ := cmd.Flags().GetString("exchange")
		limit, _ := cmd.Flags().GetInt("limit")

		fmt.Printf("%-10s %-35s %-10s %-25s %-8s\n",
			"Symbol", "Name", "Exchange", "Sector", "Active")
		fmt.Println(strings.Repeat("-", 92))

		count := 0
		for _, info := range mgr.GetActiveSymbolsInfo() {
			if exchange != "" && info.Exchange != exchange {
				continue
			}
			if limit > 0 && count >= limit {
				break
			}

			fmt.Printf("%-10s %-35s %-10s %-25s %-8v\n",
				info.Symbol, info.FullName, info.Exchange, info.Sector, info.IsActive)
			count++
		}

		fmt.Printf("\nTotal: %d symbols\n", count)
		return nil
	},
}

var searchSymbolsCmd = &cobra.Command{
	Use:   "search [pattern]",
	Short: "Search for symbols",
	Long:  "Search the catalog by ticker or company name",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, db, err := catalogManager()
		if err != nil {
			return err
		}
		defer db.Close()

		pattern := args[0]
		results := mgr.SearchSymbols(pattern)

		fmt.Printf("Found %d symbols matching '%s'\n", len(results), pattern)
		fmt.Println(strings.Repeat("-", 70))

		for _, info := range results {
			fmt.Printf("%-10s %-35s %-10s Active: %-5v\n",
				info.Symbol, info.FullName, info.Exchange, info.IsActive)
		}

		return nil
	},
}

var addSymbolCmd = &cobra.Command{
	Use:   "add [ticker]",
	Short: "Add a symbol to the catalog",
	Long:  "Add a symbol to the catalog, or update it if it already exists",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, db, err := catalogManager()
		if err != nil {
			return err
		}
		defer db.Close()

		name, _ := cmd.Flags().GetString("name")
		exchange, _ := cmd.Flags().GetString("exchange")
		sector, _ := cmd.Flags().GetString("sector")
		currency, _ := cmd.Flags().GetString("currency")

		ticker := strings.ToUpper(args[0])
		err = mgr.AddOrUpdateSymbol(context.Background(), &models.SymbolInfo{
			Symbol:   ticker,
			FullName: name,
			Exchange: exchange,
			Sector:   sector,
			Currency: currency,
			IsActive: true,
		})
		if err != nil {
			return err
		}

		fmt.Printf("✅ Added %s\n", ticker)
		return nil
	},
}

var enableSymbolCmd = &cobra.Command{
	Use:   "enable [ticker]",
	Short: "Activate a symbol",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setSymbolActive(strings.ToUpper(args[0]), true)
	},
}

var disableSymbolCmd = &cobra.Command{
	Use:   "disable [ticker]",
	Short: "Deactivate a symbol",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setSymbolActive(strings.ToUpper(args[0]), false)
	},
}

func setSymbolActive(ticker string, active bool) error {
	mgr, db, err := catalogManager()
	if err != nil {
		return err
	}
	defer db.Close()

	if err := mgr.SetSymbolActive(context.Background(), ticker, active); err != nil {
		return err
	}

	state := "enabled"
	if !active {
		state = "disabled"
	}
	fmt.Printf("✅ %s %s\n", ticker, state)
	return nil
}

func init() {
	rootCmd.AddCommand(symbolsCmd)

	symbolsCmd.AddCommand(listSymbolsCmd)
	symbolsCmd.AddCommand(searchSymbolsCmd)
	symbolsCmd.AddCommand(addSymbolCmd)
	symbolsCmd.AddCommand(enableSymbolCmd)
	symbolsCmd.AddCommand(disableSymbolCmd)

	listSymbolsCmd.Flags().StringP("exchange", "e", "", "Filter by exchange")
	listSymbolsCmd.Flags().IntP("limit", "l", 0, "Limit number of results")

	addSymbolCmd.Flags().StringP("name", "n", "", "Company name")
	addSymbolCmd.Flags().StringP("exchange", "e", "", "Listing exchange")
	addSymbolCmd.Flags().StringP("sector", "s", "", "Sector")
	addSymbolCmd.Flags().StringP("currency", "c", "USD", "Trading currency")
}
