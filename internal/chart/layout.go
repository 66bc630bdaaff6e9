package chart

// Pixel constants for the vertical chart layout. The price pane always
// sits on top, the volume pane (when active) directly below it, then the
// oscillator panes in insertion order, then the navigator. The clearance
// keeps the navigator from colliding with the lowest oscillator pane.
const (
	PricePaneHeight    = 420
	VolumePaneHeight   = 100
	OscillatorHeight   = 120
	PaneGutter         = 8
	NavigatorClearance = 24
	NavigatorHeight    = 40
)

// PaneBox is the vertical placement of one pane
type PaneBox struct {
	Top    int `json:"top"`
	Height int `json:"height"`
}

// Layout is the derived geometry for the current indicator set. It is
// recomputed from scratch on every change, never stored.
type Layout struct {
	TotalHeight     int       `json:"total_height"`
	PricePane       PaneBox   `json:"price_pane"`
	VolumePane      *PaneBox  `json:"volume_pane,omitempty"`
	OscillatorPanes []PaneBox `json:"oscillator_panes"`
	NavigatorTop    int       `json:"navigator_top"`
}

// ComputeLayout derives pane geometry for the given pane configuration.
// Oscillator pane i occupies base + gutter + i*(height+gutter); the
// navigator lands below the lowest pane plus the clearance margin.
func ComputeLayout(volumeActive bool, oscillators int) Layout {
	layout := Layout{
		PricePane:       PaneBox{Top: 0, Height: PricePaneHeight},
		OscillatorPanes: make([]PaneBox, 0, oscillators),
	}

	base := PricePaneHeight
	if volumeActive {
		layout.VolumePane = &PaneBox{Top: PricePaneHeight, Height: VolumePaneHeight}
		base += VolumePaneHeight
	}

	for i := 0; i < oscillators; i++ {
		layout.OscillatorPanes = append(layout.OscillatorPanes, PaneBox{
			Top:    base + PaneGutter + i*(OscillatorHeight+PaneGutter),
			Height: OscillatorHeight,
		})
	}

	layout.NavigatorTop = base + oscillators*(OscillatorHeight+PaneGutter) + NavigatorClearance
	layout.TotalHeight = layout.NavigatorTop + NavigatorHeight

	return layout
}
