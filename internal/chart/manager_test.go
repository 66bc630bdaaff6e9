package chart

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/stock-track/internal/render"
	"github.com/stock-track/pkg/models"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

type stubProvider struct {
	fetch func(symbol, period string, view ViewType, indicators []string) (*models.ChartData, error)
}

func (p *stubProvider) ChartData(_ context.Context, symbol, period string, view ViewType, indicators []string) (*models.ChartData, error) {
	return p.fetch(symbol, period, view, indicators)
}

func sampleData(symbol string, indicators []string) *models.ChartData {
	data := &models.ChartData{
		Symbol:     symbol,
		Period:     "1y",
		Indicators: make(map[string]models.Series),
	}
	base := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 30; i++ {
		c := 100 + float64(i)
		data.Data = append(data.Data, models.ChartPoint{
			Date: base.AddDate(0, 0, i), Open: c - 1, High: c + 1, Low: c - 2, Close: c, Volume: 1000,
		})
	}
	for _, id := range indicators {
		data.Indicators[id] = make(models.Series, len(data.Data))
	}
	return data
}

func newTestManager(t *testing.T, cfg Config) (*Manager, *render.Recorder) {
	t.Helper()

	provider := &stubProvider{
		fetch: func(symbol, period string, _ ViewType, indicators []string) (*models.ChartData, error) {
			return sampleData(symbol, indicators), nil
		},
	}
	m := NewManager(provider, testLogger())
	rec := render.NewRecorder()
	if err := m.Initialize(rec, cfg); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	return m, rec
}

func frameOps(f *render.Frame) []string {
	if f == nil {
		return nil
	}
	ops := make([]string, len(f.Mutations))
	for i, mut := range f.Mutations {
		ops[i] = mut.Op
	}
	return ops
}

func findMutation(f *render.Frame, op string) *render.Mutation {
	if f == nil {
		return nil
	}
	for i := range f.Mutations {
		if f.Mutations[i].Op == op {
			return &f.Mutations[i]
		}
	}
	return nil
}

func TestInitialize_ActivatesModulesAndDrawsOnce(t *testing.T) {
	m, rec := newTestManager(t, Config{Symbol: "AAPL", Period: "1y", ChartType: "candlestick", Theme: "light"})

	if m.State() != StateReady {
		t.Errorf("state = %v, want ready", m.State())
	}
	if len(rec.Activated) != len(DefaultCapabilities) {
		t.Errorf("activated %d modules, want %d", len(rec.Activated), len(DefaultCapabilities))
	}
	if rec.Activated[0] != render.ModuleCore {
		t.Errorf("first activated module = %q, want %q", rec.Activated[0], render.ModuleCore)
	}
	if rec.FrameCount() != 1 {
		t.Errorf("frames = %d, want exactly 1", rec.FrameCount())
	}
}

func TestInitialize_Twice(t *testing.T) {
	m, _ := newTestManager(t, Config{Symbol: "AAPL"})

	err := m.Initialize(render.NewRecorder(), Config{Symbol: "AAPL"})
	if !errors.Is(err, ErrAlreadyInitialized) {
		t.Errorf("second Initialize() error = %v, want ErrAlreadyInitialized", err)
	}
}

func TestInitialize_RequiredModuleFailureDegrades(t *testing.T) {
	m := NewManager(&stubProvider{}, testLogger())
	rec := render.NewRecorder()
	rec.FailModules[render.ModuleCore] = true

	err := m.Initialize(rec, Config{Symbol: "AAPL"})

	var initErr *RenderInitError
	if !errors.As(err, &initErr) {
		t.Fatalf("Initialize() error = %v, want RenderInitError", err)
	}
	if initErr.Module != render.ModuleCore {
		t.Errorf("failed module = %q, want %q", initErr.Module, render.ModuleCore)
	}
	if m.State() != StateDegraded {
		t.Errorf("state = %v, want degraded", m.State())
	}
	if rec.FrameCount() != 0 {
		t.Errorf("degraded chart drew %d frames, want 0", rec.FrameCount())
	}
}

func TestInitialize_OptionalModuleFailureSucceeds(t *testing.T) {
	m := NewManager(&stubProvider{}, testLogger())
	rec := render.NewRecorder()
	rec.FailModules[render.ModuleExportData] = true

	if err := m.Initialize(rec, Config{Symbol: "AAPL"}); err != nil {
		t.Fatalf("Initialize() error = %v, want nil", err)
	}
	if m.State() != StateReady {
		t.Errorf("state = %v, want ready", m.State())
	}
}

func TestInitialize_AllModulesFail(t *testing.T) {
	caps := []Capability{
		{Name: render.ModuleIndicators},
		{Name: render.ModuleRangeSelector},
	}
	m := NewManager(&stubProvider{}, testLogger(), WithCapabilities(caps))
	rec := render.NewRecorder()
	rec.FailModules[render.ModuleIndicators] = true
	rec.FailModules[render.ModuleRangeSelector] = true

	err := m.Initialize(rec, Config{Symbol: "AAPL"})

	var initErr *RenderInitError
	if !errors.As(err, &initErr) {
		t.Fatalf("Initialize() error = %v, want RenderInitError", err)
	}
	if m.State() != StateDegraded {
		t.Errorf("state = %v, want degraded", m.State())
	}
}

func TestAddIndicator_OscillatorOpensPane(t *testing.T) {
	m, rec := newTestManager(t, Config{Symbol: "AAPL"})

	if err := m.AddIndicator("rsi14"); err != nil {
		t.Fatalf("AddIndicator() error = %v", err)
	}

	if rec.FrameCount() != 2 {
		t.Fatalf("frames = %d, want 2 (init + add)", rec.FrameCount())
	}

	frame := rec.LastFrame()
	add := findMutation(frame, render.OpAddSeries)
	if add == nil {
		t.Fatalf("no add_series in frame ops %v", frameOps(frame))
	}
	if add.SeriesID != "rsi14" || *add.Pane != 0 {
		t.Errorf("add_series = %q pane %d, want rsi14 pane 0", add.SeriesID, *add.Pane)
	}

	nav := findMutation(frame, render.OpNavigator)
	wantNav := PricePaneHeight + (OscillatorHeight + PaneGutter) + NavigatorClearance
	if nav == nil || *nav.Top != wantNav {
		t.Errorf("navigator mutation = %+v, want top %d", nav, wantNav)
	}
}

func TestAddIndicator_Idempotent(t *testing.T) {
	m, rec := newTestManager(t, Config{Symbol: "AAPL"})

	if err := m.AddIndicator("rsi14"); err != nil {
		t.Fatalf("first AddIndicator() error = %v", err)
	}
	frames := rec.FrameCount()

	if err := m.AddIndicator("rsi14"); err != nil {
		t.Errorf("repeat AddIndicator() error = %v, want nil", err)
	}
	if rec.FrameCount() != frames {
		t.Errorf("repeat add drew a frame: %d, want %d", rec.FrameCount(), frames)
	}
	if got := len(m.Slots()); got != 1 {
		t.Errorf("slots = %d, want 1", got)
	}
}

func TestAddIndicator_Unknown(t *testing.T) {
	m, rec := newTestManager(t, Config{Symbol: "AAPL"})
	frames := rec.FrameCount()

	if err := m.AddIndicator("vortex9000"); !errors.Is(err, ErrUnknownIndicator) {
		t.Errorf("AddIndicator() error = %v, want ErrUnknownIndicator", err)
	}
	if rec.FrameCount() != frames {
		t.Errorf("unknown add drew a frame")
	}
}

func TestAddIndicator_OverlayKeepsNavigator(t *testing.T) {
	m, rec := newTestManager(t, Config{Symbol: "AAPL"})

	if err := m.AddIndicator("sma20"); err != nil {
		t.Fatalf("AddIndicator() error = %v", err)
	}

	frame := rec.LastFrame()
	add := findMutation(frame, render.OpAddSeries)
	if add == nil || *add.Pane != -1 {
		t.Fatalf("overlay add_series = %+v, want pane -1", add)
	}

	nav := findMutation(frame, render.OpNavigator)
	wantNav := PricePaneHeight + NavigatorClearance
	if nav == nil || *nav.Top != wantNav {
		t.Errorf("overlay moved navigator: %+v, want top %d", nav, wantNav)
	}
}

func TestRemoveIndicator_ClosesPaneGap(t *testing.T) {
	m, rec := newTestManager(t, Config{Symbol: "AAPL"})

	for _, id := range []string{"rsi14", "macd", "stoch"} {
		if err := m.AddIndicator(id); err != nil {
			t.Fatalf("AddIndicator(%s) error = %v", id, err)
		}
	}

	if err := m.RemoveIndicator("macd"); err != nil {
		t.Fatalf("RemoveIndicator() error = %v", err)
	}

	want := map[string]int{"rsi14": 0, "stoch": 1}
	for _, slot := range m.Slots() {
		if slot.PaneIndex != want[slot.ID] {
			t.Errorf("slot %s pane = %d, want %d", slot.ID, slot.PaneIndex, want[slot.ID])
		}
	}

	frame := rec.LastFrame()
	rm := findMutation(frame, render.OpRemovePane)
	if rm == nil || *rm.Pane != 1 {
		t.Errorf("remove_pane = %+v, want pane 1", rm)
	}

	nav := findMutation(frame, render.OpNavigator)
	wantNav := PricePaneHeight + 2*(OscillatorHeight+PaneGutter) + NavigatorClearance
	if nav == nil || *nav.Top != wantNav {
		t.Errorf("navigator = %+v, want top %d", nav, wantNav)
	}
}

func TestRemoveIndicator_InactiveNoOp(t *testing.T) {
	m, rec := newTestManager(t, Config{Symbol: "AAPL"})
	frames := rec.FrameCount()

	if err := m.RemoveIndicator("rsi14"); err != nil {
		t.Errorf("RemoveIndicator() error = %v, want nil", err)
	}
	if rec.FrameCount() != frames {
		t.Errorf("inactive remove drew a frame")
	}
}

func TestIndicatorScenario_VolumeIsFixedLayout(t *testing.T) {
	m, rec := newTestManager(t, Config{Symbol: "AAPL", Indicators: []string{"volume", "sma20"}})

	layout := m.Layout()
	if layout.VolumePane == nil {
		t.Fatal("volume pane missing from initial layout")
	}
	base := PricePaneHeight + VolumePaneHeight
	if layout.NavigatorTop != base+NavigatorClearance {
		t.Errorf("navigator top = %d, want %d", layout.NavigatorTop, base+NavigatorClearance)
	}

	if err := m.AddIndicator("rsi14"); err != nil {
		t.Fatalf("AddIndicator(rsi14) error = %v", err)
	}
	layout = m.Layout()
	if len(layout.OscillatorPanes) != 1 {
		t.Fatalf("oscillator panes = %d, want 1", len(layout.OscillatorPanes))
	}
	if layout.OscillatorPanes[0].Top != base+PaneGutter {
		t.Errorf("rsi pane top = %d, want %d", layout.OscillatorPanes[0].Top, base+PaneGutter)
	}
	wantNav := base + (OscillatorHeight + PaneGutter) + NavigatorClearance
	if layout.NavigatorTop != wantNav {
		t.Errorf("navigator top = %d, want %d", layout.NavigatorTop, wantNav)
	}

	// Removing the overlay must not move panes or the navigator
	if err := m.RemoveIndicator("sma20"); err != nil {
		t.Fatalf("RemoveIndicator(sma20) error = %v", err)
	}
	frame := rec.LastFrame()
	if findMutation(frame, render.OpRemoveSeries) == nil {
		t.Errorf("no remove_series in frame ops %v", frameOps(frame))
	}
	if findMutation(frame, render.OpRemovePane) != nil {
		t.Errorf("overlay removal closed a pane")
	}
	if got := m.Layout().NavigatorTop; got != wantNav {
		t.Errorf("navigator moved to %d after overlay removal, want %d", got, wantNav)
	}
}

func TestLoadData_ReplacesSeries(t *testing.T) {
	m, rec := newTestManager(t, Config{Symbol: "AAPL", Indicators: []string{"sma20", "rsi14"}})

	if err := m.LoadData(context.Background(), "MSFT", "6m", ViewDaily); err != nil {
		t.Fatalf("LoadData() error = %v", err)
	}

	frame := rec.LastFrame()
	set := findMutation(frame, render.OpSetSeries)
	if set == nil || set.Series.Symbol != "MSFT" {
		t.Fatalf("set_series = %+v, want MSFT data", set)
	}

	adds := 0
	for _, mut := range frame.Mutations {
		if mut.Op == render.OpAddSeries {
			adds++
		}
	}
	if adds != 2 {
		t.Errorf("re-added %d indicator series, want 2", adds)
	}

	cfg := m.Config()
	if cfg.Symbol != "MSFT" || cfg.Period != "6m" {
		t.Errorf("config = %s/%s, want MSFT/6m", cfg.Symbol, cfg.Period)
	}
}

func TestLoadData_FetchErrorKeepsState(t *testing.T) {
	provider := &stubProvider{}
	provider.fetch = func(symbol, period string, _ ViewType, indicators []string) (*models.ChartData, error) {
		if symbol == "FAIL" {
			return nil, fmt.Errorf("upstream 502")
		}
		return sampleData(symbol, indicators), nil
	}

	m := NewManager(provider, testLogger())
	rec := render.NewRecorder()
	if err := m.Initialize(rec, Config{Symbol: "AAPL"}); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if err := m.LoadData(context.Background(), "AAPL", "1y", ViewDaily); err != nil {
		t.Fatalf("LoadData(AAPL) error = %v", err)
	}
	frames := rec.FrameCount()

	err := m.LoadData(context.Background(), "FAIL", "1y", ViewDaily)

	var fetchErr *DataFetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("LoadData(FAIL) error = %v, want DataFetchError", err)
	}
	if fetchErr.Symbol != "FAIL" {
		t.Errorf("error symbol = %q, want FAIL", fetchErr.Symbol)
	}
	if m.State() != StateReady {
		t.Errorf("state = %v, want ready after fetch error", m.State())
	}
	if rec.FrameCount() != frames {
		t.Errorf("failed fetch drew a frame")
	}
	if cfg := m.Config(); cfg.Symbol != "AAPL" {
		t.Errorf("config symbol = %q, want previous AAPL", cfg.Symbol)
	}
}

func TestLoadData_StaleResponseDiscarded(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})

	provider := &stubProvider{}
	provider.fetch = func(symbol, period string, _ ViewType, indicators []string) (*models.ChartData, error) {
		if symbol == "SLOW" {
			close(entered)
			<-release
		}
		return sampleData(symbol, indicators), nil
	}

	m := NewManager(provider, testLogger())
	rec := render.NewRecorder()
	if err := m.Initialize(rec, Config{Symbol: "SLOW"}); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	done := make(chan error, 1)
	go func() {
		done <- m.LoadData(context.Background(), "SLOW", "1y", ViewDaily)
	}()
	<-entered

	// A newer request lands while the first is still in flight
	if err := m.LoadData(context.Background(), "FAST", "1y", ViewDaily); err != nil {
		t.Fatalf("LoadData(FAST) error = %v", err)
	}
	frames := rec.FrameCount()

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("stale LoadData() error = %v, want nil", err)
	}

	if rec.FrameCount() != frames {
		t.Errorf("stale response drew a frame")
	}
	if cfg := m.Config(); cfg.Symbol != "FAST" {
		t.Errorf("config symbol = %q, want FAST", cfg.Symbol)
	}
	if set := findMutation(rec.LastFrame(), render.OpSetSeries); set == nil || set.Series.Symbol != "FAST" {
		t.Errorf("last set_series = %+v, want FAST", set)
	}
}

func TestLoadData_AfterDisposeDropped(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})

	provider := &stubProvider{}
	provider.fetch = func(symbol, period string, _ ViewType, indicators []string) (*models.ChartData, error) {
		close(entered)
		<-release
		return sampleData(symbol, indicators), nil
	}

	m := NewManager(provider, testLogger())
	rec := render.NewRecorder()
	if err := m.Initialize(rec, Config{Symbol: "AAPL"}); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	frames := rec.FrameCount()

	done := make(chan error, 1)
	go func() {
		done <- m.LoadData(context.Background(), "AAPL", "1y", ViewDaily)
	}()
	<-entered

	m.Dispose()
	close(release)

	if err := <-done; err != nil {
		t.Fatalf("LoadData() after dispose error = %v, want nil", err)
	}
	if rec.FrameCount() != frames {
		t.Errorf("disposed chart drew a frame")
	}
	if !rec.Destroyed {
		t.Errorf("engine not destroyed")
	}
}

func TestDispose_Idempotent(t *testing.T) {
	m, rec := newTestManager(t, Config{Symbol: "AAPL"})

	m.Dispose()
	m.Dispose()

	if m.State() != StateDisposed {
		t.Errorf("state = %v, want disposed", m.State())
	}
	frames := rec.FrameCount()

	// Everything after dispose is a silent no-op
	if err := m.AddIndicator("rsi14"); err != nil {
		t.Errorf("AddIndicator() after dispose = %v, want nil", err)
	}
	if err := m.RemoveIndicator("rsi14"); err != nil {
		t.Errorf("RemoveIndicator() after dispose = %v, want nil", err)
	}
	if err := m.SetChartType("line"); err != nil {
		t.Errorf("SetChartType() after dispose = %v, want nil", err)
	}
	m.ApplyBar(&models.Bar{Symbol: "AAPL"})

	if rec.FrameCount() != frames {
		t.Errorf("disposed chart drew frames")
	}
}

func TestOperations_BeforeInitialize(t *testing.T) {
	m := NewManager(&stubProvider{}, testLogger())

	if err := m.AddIndicator("rsi14"); !errors.Is(err, ErrNotReady) {
		t.Errorf("AddIndicator() = %v, want ErrNotReady", err)
	}
	if err := m.LoadData(context.Background(), "AAPL", "1y", ViewDaily); !errors.Is(err, ErrNotReady) {
		t.Errorf("LoadData() = %v, want ErrNotReady", err)
	}
}

func TestSetChartTypeAndTheme(t *testing.T) {
	m, rec := newTestManager(t, Config{Symbol: "AAPL", ChartType: "candlestick", Theme: "light"})

	if err := m.SetChartType("line"); err != nil {
		t.Fatalf("SetChartType() error = %v", err)
	}
	opts := findMutation(rec.LastFrame(), render.OpOptions)
	if opts == nil || opts.ChartType != "line" || opts.Theme != "light" {
		t.Errorf("options = %+v, want line/light", opts)
	}

	if err := m.SetTheme("dark"); err != nil {
		t.Fatalf("SetTheme() error = %v", err)
	}
	opts = findMutation(rec.LastFrame(), render.OpOptions)
	if opts == nil || opts.ChartType != "line" || opts.Theme != "dark" {
		t.Errorf("options = %+v, want line/dark", opts)
	}
}

func TestApplyBar(t *testing.T) {
	m, rec := newTestManager(t, Config{Symbol: "AAPL"})
	frames := rec.FrameCount()

	m.ApplyBar(&models.Bar{Symbol: "MSFT", Close: 1})
	if rec.FrameCount() != frames {
		t.Errorf("bar for another symbol drew a frame")
	}

	m.ApplyBar(&models.Bar{Symbol: "AAPL", Close: 199.5})
	if rec.FrameCount() != frames+1 {
		t.Fatalf("frames = %d, want %d", rec.FrameCount(), frames+1)
	}
	bar := findMutation(rec.LastFrame(), render.OpLastBar)
	if bar == nil || bar.Bar.Close != 199.5 {
		t.Errorf("last_bar = %+v, want close 199.5", bar)
	}
}
