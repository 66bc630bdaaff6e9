package chart

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/stock-track/internal/indicator"
	"github.com/stock-track/internal/render"
	"github.com/stock-track/pkg/models"
)

// ViewType selects the bar interval of a fetch
type ViewType string

const (
	ViewDaily  ViewType = "daily"
	ViewWeekly ViewType = "weekly"
)

// State is the lifecycle state of the managed chart instance
type State int

const (
	StateUninitialized State = iota
	StateReady
	StateDegraded
	StateDisposed
)

func (s State) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StateDegraded:
		return "degraded"
	case StateDisposed:
		return "disposed"
	default:
		return "uninitialized"
	}
}

// DataProvider fetches one full set of chart series. Implemented by the
// local market service and by the remote chart-data client.
type DataProvider interface {
	ChartData(ctx context.Context, symbol, period string, view ViewType, indicators []string) (*models.ChartData, error)
}

// Config is the initial chart configuration for one mount
type Config struct {
	Symbol     string   `json:"symbol"`
	Period     string   `json:"period"`
	View       ViewType `json:"view"`
	ChartType  string   `json:"chart_type"`
	Theme      string   `json:"theme"`
	Indicators []string `json:"indicators"`
}

// instance is the handle to one live engine binding. Operations capture
// the pointer before releasing the lock; comparing it afterwards detects
// a dispose or re-initialize that raced with them.
type instance struct {
	engine   render.Engine
	disposed bool
}

// Manager owns the lifecycle of one rendered chart: the live engine
// instance, the active indicator slots and the derived layout. All
// engine mutations funnel through it so the batching and staleness rules
// hold at every call site.
type Manager struct {
	mu       sync.Mutex
	logger   *logrus.Entry
	provider DataProvider
	caps     []Capability

	state         State
	inst          *instance
	slots         slotSet
	volumeVisible bool
	series        *models.ChartData
	cfg           Config
	loadSeq       uint64
}

// Option configures a Manager
type Option func(*Manager)

// WithCapabilities overrides the engine modules activated at Initialize
func WithCapabilities(caps []Capability) Option {
	return func(m *Manager) {
		m.caps = caps
	}
}

// NewManager creates a manager that fetches series through the provider
func NewManager(provider DataProvider, log *logrus.Logger, opts ...Option) *Manager {
	m := &Manager{
		logger:   log.WithField("component", "chart-manager"),
		provider: provider,
		caps:     DefaultCapabilities,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Initialize binds the manager to a rendering engine and draws the
// initial empty chart. On a module activation failure the manager moves
// to Degraded and the host keeps running without a chart; a fresh
// Initialize call is required to retry. Passing a nil engine uses the
// process-wide default factory.
func (m *Manager) Initialize(engine render.Engine, cfg Config) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == StateReady {
		return ErrAlreadyInitialized
	}

	if engine == nil {
		factory, err := render.Default()
		if err != nil {
			m.state = StateDegraded
			return &RenderInitError{Err: err}
		}
		engine = factory(cfg.Symbol)
	}

	if err := activateCapabilities(engine, m.caps, m.logger); err != nil {
		m.state = StateDegraded
		m.logger.WithError(err).Error("Chart degraded: engine modules unavailable")
		return err
	}

	m.inst = &instance{engine: engine}
	m.slots = slotSet{}
	m.volumeVisible = false
	m.series = nil
	m.cfg = cfg

	for _, id := range cfg.Indicators {
		if id == VolumeID {
			m.volumeVisible = true
			continue
		}
		def, ok := indicator.Lookup(id)
		if !ok {
			m.logger.WithField("indicator", id).Warn("Skipping unknown indicator in initial config")
			continue
		}
		m.slots.add(def)
	}

	engine.UpdateOptions(cfg.ChartType, cfg.Theme)
	m.applyLayoutLocked(engine)
	engine.Redraw()

	m.state = StateReady
	m.logger.WithFields(logrus.Fields{
		"symbol":     cfg.Symbol,
		"indicators": len(m.slots.slots),
	}).Info("Chart initialized")

	return nil
}

// LoadData fetches a fresh series for the symbol/period/view and replaces
// the chart's full contents. It is the only operation allowed to reset
// the time axis. Concurrent calls are resolved by a sequence number: only
// the most recently issued request may mutate visible state, stale
// responses are discarded. On a fetch error the previous series stays
// visible.
func (m *Manager) LoadData(ctx context.Context, symbol, period string, view ViewType) error {
	m.mu.Lock()
	if m.state != StateReady {
		m.mu.Unlock()
		return ErrNotReady
	}

	inst := m.inst
	m.loadSeq++
	seq := m.loadSeq
	ids := m.slots.ids()
	m.mu.Unlock()

	data, err := m.provider.ChartData(ctx, symbol, period, view, ids)

	m.mu.Lock()
	defer m.mu.Unlock()

	if err != nil {
		return &DataFetchError{Symbol: symbol, Period: period, Err: err}
	}

	if inst != m.inst || inst.disposed {
		m.logger.WithField("symbol", symbol).Debug("Dropping load result for disposed chart instance")
		return nil
	}
	if seq != m.loadSeq {
		m.logger.WithFields(logrus.Fields{"symbol": symbol, "seq": seq}).Debug("Discarding stale load response")
		return nil
	}

	m.series = data
	m.cfg.Symbol = symbol
	m.cfg.Period = period
	m.cfg.View = view

	engine := inst.engine
	engine.SetSeries(data)
	for _, slot := range m.slots.all() {
		engine.AddSeries(slot.ID, string(slot.Kind), slot.PaneIndex, slot.Color, data.Indicators[slot.ID])
	}
	m.applyLayoutLocked(engine)
	engine.Redraw()

	return nil
}

// AddIndicator activates an indicator. Oscillators open a new pane at
// the bottom of the stack; overlays draw on the price pane and leave the
// layout untouched. Re-adding an active id is a no-op. If the backend
// has not computed the series yet it is drawn empty and filled by the
// next LoadData.
func (m *Manager) AddIndicator(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.staleLocked() {
		return nil
	}
	if m.state != StateReady {
		return ErrNotReady
	}

	if id == VolumeID {
		if m.volumeVisible {
			return nil
		}
		m.volumeVisible = true
		engine := m.inst.engine
		m.applyLayoutLocked(engine)
		engine.Redraw()
		return nil
	}

	def, ok := indicator.Lookup(id)
	if !ok {
		return ErrUnknownIndicator
	}
	if !m.slots.add(def) {
		return nil
	}

	var values models.Series
	if m.series != nil {
		values = m.series.Indicators[id]
	}

	engine := m.inst.engine
	slot := m.slots.slots[len(m.slots.slots)-1]
	engine.AddSeries(slot.ID, string(slot.Kind), slot.PaneIndex, slot.Color, values)
	m.applyLayoutLocked(engine)
	engine.Redraw()

	return nil
}

// RemoveIndicator deactivates an indicator. Removing an oscillator closes
// its pane and shifts every lower pane up a slot; removing an overlay
// never changes pane count or navigator position. Unknown or inactive
// ids are a no-op, as is a remove racing a dispose.
func (m *Manager) RemoveIndicator(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.staleLocked() {
		return nil
	}
	if m.state != StateReady {
		return ErrNotReady
	}

	if id == VolumeID {
		if !m.volumeVisible {
			return nil
		}
		m.volumeVisible = false
		engine := m.inst.engine
		m.applyLayoutLocked(engine)
		engine.Redraw()
		return nil
	}

	removed, ok := m.slots.remove(id)
	if !ok {
		return nil
	}

	engine := m.inst.engine
	engine.RemoveSeries(id)
	if removed.Kind == indicator.KindOscillator {
		engine.RemovePane(removed.PaneIndex)
	}
	m.applyLayoutLocked(engine)
	engine.Redraw()

	return nil
}

// SetChartType switches candlestick/line/area in place without touching
// indicator state or zoom
func (m *Manager) SetChartType(chartType string) error {
	return m.updateOptions(chartType, "")
}

// SetTheme switches the theme in place
func (m *Manager) SetTheme(theme string) error {
	return m.updateOptions("", theme)
}

func (m *Manager) updateOptions(chartType, theme string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.staleLocked() {
		return nil
	}
	if m.state != StateReady {
		return ErrNotReady
	}

	if chartType != "" {
		m.cfg.ChartType = chartType
	}
	if theme != "" {
		m.cfg.Theme = theme
	}

	engine := m.inst.engine
	engine.UpdateOptions(m.cfg.ChartType, m.cfg.Theme)
	engine.Redraw()

	return nil
}

// ApplyBar pushes a live bar update onto the chart. Bars for other
// symbols and bars arriving after dispose are dropped.
func (m *Manager) ApplyBar(bar *models.Bar) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.staleLocked() || m.state != StateReady {
		return
	}
	if bar.Symbol != m.cfg.Symbol {
		return
	}

	engine := m.inst.engine
	engine.UpdateLastBar(bar)
	engine.Redraw()
}

// Dispose releases the engine instance. Idempotent; every later
// operation on the manager becomes a silent no-op.
func (m *Manager) Dispose() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.inst != nil && !m.inst.disposed {
		m.inst.disposed = true
		m.inst.engine.Destroy()
	}
	m.state = StateDisposed
}

// State returns the lifecycle state
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Slots returns the active indicator slots in insertion order
func (m *Manager) Slots() []Slot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.slots.all()
}

// Layout returns the derived geometry for the current indicator set
func (m *Manager) Layout() Layout {
	m.mu.Lock()
	defer m.mu.Unlock()
	return ComputeLayout(m.volumeVisible, m.slots.oscillatorCount())
}

// Config returns the current chart configuration
func (m *Manager) Config() Config {
	m.mu.Lock()
	defer m.mu.Unlock()

	cfg := m.cfg
	cfg.Indicators = m.slots.ids()
	if m.volumeVisible {
		cfg.Indicators = append([]string{VolumeID}, cfg.Indicators...)
	}
	return cfg
}

// staleLocked reports whether the instance handle is gone. Mutations
// hitting a stale handle are dropped silently: an unmount racing an
// in-flight toggle is expected, not an error.
func (m *Manager) staleLocked() bool {
	return m.state == StateDisposed || (m.inst != nil && m.inst.disposed)
}

// applyLayoutLocked queues the full geometry onto the engine: total size,
// every oscillator pane position, then the navigator. The caller issues
// the single Redraw after all mutations are queued.
func (m *Manager) applyLayoutLocked(engine render.Engine) {
	layout := ComputeLayout(m.volumeVisible, m.slots.oscillatorCount())

	engine.SetSize(layout.TotalHeight)
	for i, pane := range layout.OscillatorPanes {
		engine.UpdatePane(i, pane.Top, pane.Height)
	}
	engine.UpdateNavigator(layout.NavigatorTop)
}
