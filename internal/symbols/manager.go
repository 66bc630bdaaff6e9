package symbols

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/stock-track/pkg/models"
)

// Store is the catalog's persistence backend, satisfied by
// database.MySQLClient
type Store interface {
	GetSymbols(ctx context.Context) ([]*models.SymbolInfo, error)
	UpsertSymbol(ctx context.Context, symbol *models.SymbolInfo) error
	SetSymbolActive(ctx context.Context, ticker string, active bool) error
}

// Manager is the in-memory view of the tracked stock catalog, refreshed
// from MySQL
type Manager struct {
	symbols       map[string]*models.SymbolInfo
	activeSymbols []string

	store  Store
	logger *logrus.Entry

	mu              sync.RWMutex
	lastRefresh     time.Time
	refreshInterval time.Duration
}

// NewManager creates a new symbols manager
func NewManager(store Store, logger *logrus.Logger) *Manager {
	return &Manager{
		symbols:         make(map[string]*models.SymbolInfo),
		activeSymbols:   make([]string, 0),
		store:           store,
		logger:          logger.WithField("component", "symbols"),
		refreshInterval: 5 * time.Minute,
	}
}

// Initialize loads the catalog from the database
func (m *Manager) Initialize(ctx context.Context) error {
	if err := m.LoadSymbols(ctx); err != nil {
		return fmt.Errorf("failed to load symbols: %w", err)
	}
	return nil
}

// LoadSymbols reloads the catalog from the database
func (m *Manager) LoadSymbols(ctx context.Context) error {
	symbols, err := m.store.GetSymbols(ctx)
	if err != nil {
		return fmt.Errorf("failed to get symbols from database: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.symbols = make(map[string]*models.SymbolInfo)
	m.activeSymbols = make([]string, 0, len(symbols))

	for _, symbol := range symbols {
		m.symbols[symbol.Symbol] = symbol
		if symbol.IsActive {
			m.activeSymbols = append(m.activeSymbols, symbol.Symbol)
		}
	}
	sort.Strings(m.activeSymbols)

	m.lastRefresh = time.Now()

	m.logger.WithFields(logrus.Fields{
		"total":  len(m.symbols),
		"active": len(m.activeSymbols),
	}).Info("Symbol catalog loaded")

	return nil
}

// RefreshIfNeeded reloads the catalog once the refresh interval passes
func (m *Manager) RefreshIfNeeded(ctx context.Context) error {
	m.mu.RLock()
	needsRefresh := time.Since(m.lastRefresh) > m.refreshInterval
	m.mu.RUnlock()

	if needsRefresh {
		return m.LoadSymbols(ctx)
	}
	return nil
}

// GetSymbol returns catalog info for a ticker
func (m *Manager) GetSymbol(ticker string) (*models.SymbolInfo, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	info, exists := m.symbols[ticker]
	return info, exists
}

// GetActiveSymbols returns the active tickers in sorted order
func (m *Manager) GetActiveSymbols() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]string, len(m.activeSymbols))
	copy(result, m.activeSymbols)
	return result
}

// GetActiveSymbolsInfo returns catalog info for every active ticker
func (m *Manager) GetActiveSymbolsInfo() []*models.SymbolInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*models.SymbolInfo, 0, len(m.activeSymbols))
	for _, ticker := range m.activeSymbols {
		if info, exists := m.symbols[ticker]; exists {
			result = append(result, info)
		}
	}
	return result
}

// IsActive checks whether a ticker is tracked and active
func (m *Manager) IsActive(ticker string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if info, exists := m.symbols[ticker]; exists {
		return info.IsActive
	}
	return false
}

// Count returns the total number of catalog entries
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.symbols)
}

// AddOrUpdateSymbol upserts a catalog entry and refreshes the in-memory
// view
func (m *Manager) AddOrUpdateSymbol(ctx context.Context, symbol *models.SymbolInfo) error {
	if err := m.store.UpsertSymbol(ctx, symbol); err != nil {
		return fmt.Errorf("failed to save symbol: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.symbols[symbol.Symbol] = symbol
	m.rebuildActiveList()

	return nil
}

// SetSymbolActive flips the active flag for a ticker
func (m *Manager) SetSymbolActive(ctx context.Context, ticker string, active bool) error {
	if err := m.store.SetSymbolActive(ctx, ticker, active); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if info, exists := m.symbols[ticker]; exists {
		info.IsActive = active
	}
	m.rebuildActiveList()

	return nil
}

// SearchSymbols finds catalog entries whose ticker or name contains the
// query, case-insensitive
func (m *Manager) SearchSymbols(query string) []*models.SymbolInfo {
	query = strings.ToLower(query)

	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*models.SymbolInfo, 0)
	for _, info := range m.symbols {
		if strings.Contains(strings.ToLower(info.Symbol), query) ||
			strings.Contains(strings.ToLower(info.FullName), query) {
			result = append(result, info)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Symbol < result[j].Symbol
	})
	return result
}

// rebuildActiveList rebuilds the active ticker list; callers hold the lock
func (m *Manager) rebuildActiveList() {
	m.activeSymbols = m.activeSymbols[:0]
	for ticker, info := range m.symbols {
		if info.IsActive {
			m.activeSymbols = append(m.activeSymbols, ticker)
		}
	}
	sort.Strings(m.activeSymbols)
}
