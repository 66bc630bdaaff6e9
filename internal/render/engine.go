package render

import (
	"github.com/stock-track/pkg/models"
)

// Capability modules the engine must activate before the matching UI
// controls work. Core is the chart itself; the rest are optional features.
const (
	ModuleCore          = "stock"
	ModuleIndicators    = "indicators"
	ModuleRangeSelector = "range-selector"
	ModuleExportData    = "export-data"
)

// Mutation is one queued change to the rendered chart. Mutations accumulate
// between Redraw calls; a Redraw flushes them as a single frame so the
// client repaints once per operation instead of once per change.
type Mutation struct {
	Op        string            `json:"op"`
	SeriesID  string            `json:"series_id,omitempty"`
	Kind      string            `json:"kind,omitempty"`
	Pane      *int              `json:"pane,omitempty"`
	Top       *int              `json:"top,omitempty"`
	Height    *int              `json:"height,omitempty"`
	Color     string            `json:"color,omitempty"`
	ChartType string            `json:"chart_type,omitempty"`
	Theme     string            `json:"theme,omitempty"`
	Series    *models.ChartData `json:"series,omitempty"`
	Values    models.Series     `json:"values,omitempty"`
	Bar       *models.Bar       `json:"bar,omitempty"`
}

// Mutation ops
const (
	OpSetSeries    = "set_series"
	OpAddSeries    = "add_series"
	OpRemoveSeries = "remove_series"
	OpSetSize      = "set_size"
	OpUpdatePane   = "update_pane"
	OpRemovePane   = "remove_pane"
	OpNavigator    = "navigator"
	OpOptions      = "options"
	OpLastBar      = "last_bar"
)

// Frame is one redraw batch pushed to the client
type Frame struct {
	Seq       uint64     `json:"seq"`
	Mutations []Mutation `json:"mutations"`
}

// Engine is the imperative rendering surface a chart manager mutates.
// Implementations must treat every call after Destroy as a no-op.
type Engine interface {
	// Activate enables a capability module; it must be called before the
	// module's controls are used and may fail for unknown modules.
	Activate(module string) error

	SetSeries(data *models.ChartData)
	AddSeries(id, kind string, pane int, color string, values models.Series)
	RemoveSeries(id string)
	UpdateLastBar(bar *models.Bar)

	SetSize(height int)
	UpdatePane(pane, top, height int)
	RemovePane(pane int)
	UpdateNavigator(top int)
	UpdateOptions(chartType, theme string)

	// Redraw flushes all queued mutations as one frame
	Redraw()
	Destroy()
}

func intPtr(v int) *int { return &v }
