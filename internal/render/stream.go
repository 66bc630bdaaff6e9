package render

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/stock-track/pkg/models"
)

// Broadcaster delivers a serialized frame to every client attached to a
// chart session. Implemented by the stream hub.
type Broadcaster interface {
	Broadcast(sessionID string, payload []byte)
}

// StreamEngine translates chart mutations into JSON frames pushed to the
// session's WebSocket subscribers. The browser applies each frame to the
// charting library in one repaint.
type StreamEngine struct {
	mu        sync.Mutex
	sessionID string
	out       Broadcaster
	logger    *logrus.Entry

	pending   []Mutation
	seq       uint64
	modules   map[string]bool
	destroyed bool
}

// streamModules are the capability modules this engine knows how to serve
var streamModules = map[string]bool{
	ModuleCore:          true,
	ModuleIndicators:    true,
	ModuleRangeSelector: true,
	ModuleExportData:    true,
}

// NewStreamEngine creates an engine bound to one chart session
func NewStreamEngine(sessionID string, out Broadcaster, log *logrus.Logger) *StreamEngine {
	return &StreamEngine{
		sessionID: sessionID,
		out:       out,
		logger:    log.WithField("component", "stream-engine").WithField("session", sessionID),
		modules:   make(map[string]bool),
	}
}

// Activate enables a capability module
func (e *StreamEngine) Activate(module string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.destroyed {
		return fmt.Errorf("engine destroyed")
	}
	if !streamModules[module] {
		return fmt.Errorf("unknown engine module %q", module)
	}
	e.modules[module] = true
	return nil
}

func (e *StreamEngine) queue(m Mutation) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.destroyed {
		return
	}
	e.pending = append(e.pending, m)
}

// SetSeries replaces the full chart series
func (e *StreamEngine) SetSeries(data *models.ChartData) {
	e.queue(Mutation{Op: OpSetSeries, Series: data})
}

// AddSeries adds one indicator series
func (e *StreamEngine) AddSeries(id, kind string, pane int, color string, values models.Series) {
	e.queue(Mutation{Op: OpAddSeries, SeriesID: id, Kind: kind, Pane: intPtr(pane), Color: color, Values: values})
}

// RemoveSeries removes one indicator series
func (e *StreamEngine) RemoveSeries(id string) {
	e.queue(Mutation{Op: OpRemoveSeries, SeriesID: id})
}

// UpdateLastBar replaces or appends the most recent bar
func (e *StreamEngine) UpdateLastBar(bar *models.Bar) {
	e.queue(Mutation{Op: OpLastBar, Bar: bar})
}

// SetSize updates the total chart height
func (e *StreamEngine) SetSize(height int) {
	e.queue(Mutation{Op: OpSetSize, Height: intPtr(height)})
}

// UpdatePane repositions one oscillator pane
func (e *StreamEngine) UpdatePane(pane, top, height int) {
	e.queue(Mutation{Op: OpUpdatePane, Pane: intPtr(pane), Top: intPtr(top), Height: intPtr(height)})
}

// RemovePane closes one oscillator pane
func (e *StreamEngine) RemovePane(pane int) {
	e.queue(Mutation{Op: OpRemovePane, Pane: intPtr(pane)})
}

// UpdateNavigator repositions the navigator
func (e *StreamEngine) UpdateNavigator(top int) {
	e.queue(Mutation{Op: OpNavigator, Top: intPtr(top)})
}

// UpdateOptions applies chart type and theme in place
func (e *StreamEngine) UpdateOptions(chartType, theme string) {
	e.queue(Mutation{Op: OpOptions, ChartType: chartType, Theme: theme})
}

// Redraw flushes pending mutations as one frame to all subscribers
func (e *StreamEngine) Redraw() {
	e.mu.Lock()
	if e.destroyed || len(e.pending) == 0 {
		e.mu.Unlock()
		return
	}
	e.seq++
	frame := Frame{Seq: e.seq, Mutations: e.pending}
	e.pending = nil
	e.mu.Unlock()

	payload, err := json.Marshal(frame)
	if err != nil {
		e.logger.WithError(err).Error("Failed to marshal frame")
		return
	}

	e.out.Broadcast(e.sessionID, payload)
}

// Destroy drops the engine; all later calls are no-ops
func (e *StreamEngine) Destroy() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.destroyed = true
	e.pending = nil
}
