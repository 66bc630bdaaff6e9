package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/sirupsen/logrus"

	"github.com/stock-track/pkg/config"
	"github.com/stock-track/pkg/models"
)

// MySQLClient handles the symbol catalog database
type MySQLClient struct {
	db     *sql.DB
	logger *logrus.Entry
}

// NewMySQLClient creates a new MySQL client
func NewMySQLClient(cfg *config.MySQLConfig, logger *logrus.Logger) (*MySQLClient, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&multiStatements=true",
		cfg.User,
		cfg.Password,
		cfg.Host,
		cfg.Port,
		cfg.Database,
	)

	logger.WithField("dsn", fmt.Sprintf("%s:***@tcp(%s:%d)/%s", cfg.User, cfg.Host, cfg.Port, cfg.Database)).Debug("Connecting to MySQL")

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL connection: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping MySQL: %w", err)
	}

	return &MySQLClient{
		db:     db,
		logger: logger.WithField("component", "mysql"),
	}, nil
}

// Close closes the database connection
func (mc *MySQLClient) Close() error {
	return mc.db.Close()
}

// Health checks database health
func (mc *MySQLClient) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	return mc.db.PingContext(ctx)
}

// Migrate creates the catalog tables if they do not exist
func (mc *MySQLClient) Migrate(ctx context.Context) error {
	schema := `
		CREATE TABLE IF NOT EXISTS symbols (
			id INT AUTO_INCREMENT PRIMARY KEY,
			exchange VARCHAR(32) NOT NULL DEFAULT '',
			symbol VARCHAR(16) NOT NULL,
			full_name VARCHAR(255) NOT NULL DEFAULT '',
			sector VARCHAR(64) NOT NULL DEFAULT '',
			currency VARCHAR(8) NOT NULL DEFAULT 'USD',
			is_active TINYINT(1) NOT NULL DEFAULT 1,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
			UNIQUE KEY uq_symbol (symbol)
		);

		CREATE TABLE IF NOT EXISTS sync_status (
			symbol VARCHAR(16) PRIMARY KEY,
			status VARCHAR(16) NOT NULL DEFAULT 'pending',
			progress INT NOT NULL DEFAULT 0,
			total_bars INT NOT NULL DEFAULT 0,
			error TEXT,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
		);
	`

	if _, err := mc.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	mc.logger.Info("Database schema up to date")
	return nil
}

// Symbol operations

// GetSymbols retrieves all active symbols ordered by ticker
func (mc *MySQLClient) GetSymbols(ctx context.Context) ([]*models.SymbolInfo, error) {
	query := `
		SELECT id, exchange, symbol, full_name, sector, currency, is_active, created_at, updated_at
		FROM symbols
		WHERE is_active = 1
		ORDER BY symbol
	`

	rows, err := mc.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query symbols: %w", err)
	}
	defer rows.Close()

	var symbols []*models.SymbolInfo
	for rows.Next() {
		symbol := &models.SymbolInfo{}
		err := rows.Scan(
			&symbol.ID,
			&symbol.Exchange,
			&symbol.Symbol,
			&symbol.FullName,
			&symbol.Sector,
			&symbol.Currency,
			&symbol.IsActive,
			&symbol.CreatedAt,
			&symbol.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan symbol: %w", err)
		}
		symbols = append(symbols, symbol)
	}

	return symbols, rows.Err()
}

// GetSymbol retrieves a single symbol by ticker. Returns nil when the
// ticker is not in the catalog.
func (mc *MySQLClient) GetSymbol(ctx context.Context, ticker string) (*models.SymbolInfo, error) {
	query := `
		SELECT id, exchange, symbol, full_name, sector, currency, is_active, created_at, updated_at
		FROM symbols
		WHERE symbol = ?
	`

	symbol := &models.SymbolInfo{}
	err := mc.db.QueryRowContext(ctx, query, ticker).Scan(
		&symbol.ID,
		&symbol.Exchange,
		&symbol.Symbol,
		&symbol.FullName,
		&symbol.Sector,
		&symbol.Currency,
		&symbol.IsActive,
		&symbol.CreatedAt,
		&symbol.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get symbol: %w", err)
	}

	return symbol, nil
}

// UpsertSymbol inserts or updates a catalog entry keyed by ticker
func (mc *MySQLClient) UpsertSymbol(ctx context.Context, symbol *models.SymbolInfo) error {
	query := `
		INSERT INTO symbols (exchange, symbol, full_name, sector, currency, is_active)
		VALUES (?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			exchange = VALUES(exchange),
			full_name = VALUES(full_name),
			sector = VALUES(sector),
			currency = VALUES(currency),
			is_active = VALUES(is_active),
			updated_at = CURRENT_TIMESTAMP
	`

	result, err := mc.db.ExecContext(ctx, query,
		symbol.Exchange,
		symbol.Symbol,
		symbol.FullName,
		symbol.Sector,
		symbol.Currency,
		symbol.IsActive,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert symbol: %w", err)
	}

	if symbol.ID == 0 {
		if id, err := result.LastInsertId(); err == nil {
			symbol.ID = int(id)
		}
	}

	return nil
}

// SetSymbolActive flips the active flag for a ticker
func (mc *MySQLClient) SetSymbolActive(ctx context.Context, ticker string, active bool) error {
	query := `UPDATE symbols SET is_active = ?, updated_at = CURRENT_TIMESTAMP WHERE symbol = ?`

	result, err := mc.db.ExecContext(ctx, query, active, ticker)
	if err != nil {
		return fmt.Errorf("failed to update symbol: %w", err)
	}

	rows, err := result.RowsAffected()
	if err == nil && rows == 0 {
		return fmt.Errorf("symbol %s not found", ticker)
	}

	return nil
}

// Sync status operations

// GetSyncStatus retrieves the backfill state for a ticker. Returns nil
// when no backfill has been recorded.
func (mc *MySQLClient) GetSyncStatus(ctx context.Context, ticker string) (*models.SyncStatus, error) {
	query := `
		SELECT symbol, status, progress, total_bars, COALESCE(error, ''), updated_at
		FROM sync_status
		WHERE symbol = ?
	`

	status := &models.SyncStatus{}
	err := mc.db.QueryRowContext(ctx, query, ticker).Scan(
		&status.Symbol,
		&status.Status,
		&status.Progress,
		&status.TotalBars,
		&status.Error,
		&status.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sync status: %w", err)
	}

	return status, nil
}

// SetSyncStatus records backfill progress for a ticker
func (mc *MySQLClient) SetSyncStatus(ctx context.Context, status *models.SyncStatus) error {
	query := `
		INSERT INTO sync_status (symbol, status, progress, total_bars, error)
		VALUES (?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			status = VALUES(status),
			progress = VALUES(progress),
			total_bars = VALUES(total_bars),
			error = VALUES(error),
			updated_at = CURRENT_TIMESTAMP
	`

	_, err := mc.db.ExecContext(ctx, query,
		status.Symbol,
		status.Status,
		status.Progress,
		status.TotalBars,
		status.Error,
	)
	if err != nil {
		return fmt.Errorf("failed to set sync status: %w", err)
	}

	return nil
}

// ExecTx executes a function within a transaction
func (mc *MySQLClient) ExecTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := mc.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("tx err: %v, rb err: %v", err, rbErr)
		}
		return err
	}

	return tx.Commit()
}
