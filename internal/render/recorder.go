package render

import (
	"fmt"
	"sync"

	"github.com/stock-track/pkg/models"
)

// Recorder is an in-memory Engine that records frames instead of pushing
// them anywhere, so tests can inspect what a chart session would draw.
type Recorder struct {
	mu      sync.Mutex
	pending []Mutation

	Frames      []Frame
	Activated   []string
	FailModules map[string]bool
	Destroyed   bool

	seq uint64
}

// NewRecorder creates a recording engine
func NewRecorder() *Recorder {
	return &Recorder{FailModules: make(map[string]bool)}
}

// Activate records the attempt and fails for modules listed in FailModules
func (r *Recorder) Activate(module string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.FailModules[module] {
		return fmt.Errorf("module %q failed to load", module)
	}
	r.Activated = append(r.Activated, module)
	return nil
}

func (r *Recorder) queue(m Mutation) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.Destroyed {
		return
	}
	r.pending = append(r.pending, m)
}

func (r *Recorder) SetSeries(data *models.ChartData) {
	r.queue(Mutation{Op: OpSetSeries, Series: data})
}

func (r *Recorder) AddSeries(id, kind string, pane int, color string, values models.Series) {
	r.queue(Mutation{Op: OpAddSeries, SeriesID: id, Kind: kind, Pane: intPtr(pane), Color: color, Values: values})
}

func (r *Recorder) RemoveSeries(id string) {
	r.queue(Mutation{Op: OpRemoveSeries, SeriesID: id})
}

func (r *Recorder) UpdateLastBar(bar *models.Bar) {
	r.queue(Mutation{Op: OpLastBar, Bar: bar})
}

func (r *Recorder) SetSize(height int) {
	r.queue(Mutation{Op: OpSetSize, Height: intPtr(height)})
}

func (r *Recorder) UpdatePane(pane, top, height int) {
	r.queue(Mutation{Op: OpUpdatePane, Pane: intPtr(pane), Top: intPtr(top), Height: intPtr(height)})
}

func (r *Recorder) RemovePane(pane int) {
	r.queue(Mutation{Op: OpRemovePane, Pane: intPtr(pane)})
}

func (r *Recorder) UpdateNavigator(top int) {
	r.queue(Mutation{Op: OpNavigator, Top: intPtr(top)})
}

func (r *Recorder) UpdateOptions(chartType, theme string) {
	r.queue(Mutation{Op: OpOptions, ChartType: chartType, Theme: theme})
}

// Redraw moves pending mutations into a recorded frame
func (r *Recorder) Redraw() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.Destroyed || len(r.pending) == 0 {
		return
	}
	r.seq++
	r.Frames = append(r.Frames, Frame{Seq: r.seq, Mutations: r.pending})
	r.pending = nil
}

// Destroy marks the engine dead; later mutations are dropped
func (r *Recorder) Destroy() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.Destroyed = true
	r.pending = nil
}

// LastFrame returns the most recent recorded frame, or nil
func (r *Recorder) LastFrame() *Frame {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.Frames) == 0 {
		return nil
	}
	return &r.Frames[len(r.Frames)-1]
}

// FrameCount returns how many frames have been flushed
func (r *Recorder) FrameCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.Frames)
}
