package symbols

import (
	"context"
	"io"
	"reflect"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/stock-track/pkg/models"
)

type fakeStore struct {
	symbols []*models.SymbolInfo
}

func (f *fakeStore) GetSymbols(_ context.Context) ([]*models.SymbolInfo, error) {
	return f.symbols, nil
}

func (f *fakeStore) UpsertSymbol(_ context.Context, symbol *models.SymbolInfo) error {
	for i, existing := range f.symbols {
		if existing.Symbol == symbol.Symbol {
			f.symbols[i] = symbol
			return nil
		}
	}
	f.symbols = append(f.symbols, symbol)
	return nil
}

func (f *fakeStore) SetSymbolActive(_ context.Context, ticker string, active bool) error {
	for _, existing := range f.symbols {
		if existing.Symbol == ticker {
			existing.IsActive = active
		}
	}
	return nil
}

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func newTestManager(t *testing.T) (*Manager, *fakeStore) {
	t.Helper()

	store := &fakeStore{symbols: []*models.SymbolInfo{
		{Symbol: "AAPL", FullName: "Apple Inc.", Exchange: "NASDAQ", IsActive: true},
		{Symbol: "MSFT", FullName: "Microsoft Corporation", Exchange: "NASDAQ", IsActive: true},
		{Symbol: "ENRN", FullName: "Enron Corp.", Exchange: "NYSE", IsActive: false},
	}}

	m := NewManager(store, testLogger())
	if err := m.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	return m, store
}

func TestLoadSymbols(t *testing.T) {
	m, _ := newTestManager(t)

	if got := m.Count(); got != 3 {
		t.Fatalf("Count() = %d, want 3", got)
	}
	if got := m.GetActiveSymbols(); !reflect.DeepEqual(got, []string{"AAPL", "MSFT"}) {
		t.Errorf("GetActiveSymbols() = %v, want [AAPL MSFT]", got)
	}
	if !m.IsActive("AAPL") {
		t.Error("IsActive(AAPL) = false, want true")
	}
	if m.IsActive("ENRN") {
		t.Error("IsActive(ENRN) = true, want false")
	}
	if m.IsActive("ZZZZ") {
		t.Error("IsActive(ZZZZ) = true, want false")
	}
}

func TestGetSymbol(t *testing.T) {
	m, _ := newTestManager(t)

	info, ok := m.GetSymbol("MSFT")
	if !ok {
		t.Fatal("GetSymbol(MSFT) not found")
	}
	if info.FullName != "Microsoft Corporation" {
		t.Errorf("FullName = %q", info.FullName)
	}

	if _, ok := m.GetSymbol("ZZZZ"); ok {
		t.Error("GetSymbol(ZZZZ) found, want missing")
	}
}

func TestAddOrUpdateSymbol(t *testing.T) {
	m, store := newTestManager(t)

	err := m.AddOrUpdateSymbol(context.Background(), &models.SymbolInfo{
		Symbol: "GOOG", FullName: "Alphabet Inc.", IsActive: true,
	})
	if err != nil {
		t.Fatalf("AddOrUpdateSymbol() error = %v", err)
	}

	if len(store.symbols) != 4 {
		t.Errorf("store has %d symbols, want 4", len(store.symbols))
	}
	if got := m.GetActiveSymbols(); !reflect.DeepEqual(got, []string{"AAPL", "GOOG", "MSFT"}) {
		t.Errorf("GetActiveSymbols() = %v, want [AAPL GOOG MSFT]", got)
	}
}

func TestSetSymbolActive(t *testing.T) {
	m, _ := newTestManager(t)

	if err := m.SetSymbolActive(context.Background(), "MSFT", false); err != nil {
		t.Fatalf("SetSymbolActive() error = %v", err)
	}

	if m.IsActive("MSFT") {
		t.Error("IsActive(MSFT) = true after deactivation")
	}
	if got := m.GetActiveSymbols(); !reflect.DeepEqual(got, []string{"AAPL"}) {
		t.Errorf("GetActiveSymbols() = %v, want [AAPL]", got)
	}
}

func TestSearchSymbols(t *testing.T) {
	m, _ := newTestManager(t)

	got := m.SearchSymbols("micro")
	if len(got) != 1 || got[0].Symbol != "MSFT" {
		t.Fatalf("SearchSymbols(micro) = %v, want [MSFT]", got)
	}

	// Matches ticker and name across active and inactive entries
	if got := m.SearchSymbols("corp"); len(got) != 2 {
		t.Errorf("SearchSymbols(corp) returned %d entries, want 2", len(got))
	}

	if got := m.SearchSymbols("xyzzy"); len(got) != 0 {
		t.Errorf("SearchSymbols(xyzzy) returned %d entries, want 0", len(got))
	}
}
