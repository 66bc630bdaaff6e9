package chart

import (
	"testing"
)

func TestComputeLayout_NoPanes(t *testing.T) {
	layout := ComputeLayout(false, 0)

	if layout.PricePane.Top != 0 || layout.PricePane.Height != PricePaneHeight {
		t.Errorf("price pane = %+v, want top 0 height %d", layout.PricePane, PricePaneHeight)
	}
	if layout.VolumePane != nil {
		t.Errorf("volume pane present, want nil")
	}
	if len(layout.OscillatorPanes) != 0 {
		t.Errorf("oscillator panes = %d, want 0", len(layout.OscillatorPanes))
	}

	wantNav := PricePaneHeight + NavigatorClearance
	if layout.NavigatorTop != wantNav {
		t.Errorf("navigator top = %d, want %d", layout.NavigatorTop, wantNav)
	}
	if layout.TotalHeight != wantNav+NavigatorHeight {
		t.Errorf("total height = %d, want %d", layout.TotalHeight, wantNav+NavigatorHeight)
	}
}

func TestComputeLayout_VolumeShiftsEverything(t *testing.T) {
	layout := ComputeLayout(true, 1)

	if layout.VolumePane == nil {
		t.Fatal("volume pane missing")
	}
	if layout.VolumePane.Top != PricePaneHeight {
		t.Errorf("volume top = %d, want %d", layout.VolumePane.Top, PricePaneHeight)
	}

	base := PricePaneHeight + VolumePaneHeight
	wantOscTop := base + PaneGutter
	if layout.OscillatorPanes[0].Top != wantOscTop {
		t.Errorf("oscillator top = %d, want %d", layout.OscillatorPanes[0].Top, wantOscTop)
	}

	wantNav := base + (OscillatorHeight + PaneGutter) + NavigatorClearance
	if layout.NavigatorTop != wantNav {
		t.Errorf("navigator top = %d, want %d", layout.NavigatorTop, wantNav)
	}
}

func TestComputeLayout_NavigatorFormula(t *testing.T) {
	for n := 0; n <= 4; n++ {
		layout := ComputeLayout(false, n)

		want := PricePaneHeight + n*(OscillatorHeight+PaneGutter) + NavigatorClearance
		if layout.NavigatorTop != want {
			t.Errorf("n=%d: navigator top = %d, want %d", n, layout.NavigatorTop, want)
		}
	}
}

func TestComputeLayout_PanesStackWithoutOverlap(t *testing.T) {
	layout := ComputeLayout(true, 4)

	prevBottom := layout.PricePane.Top + layout.PricePane.Height
	if layout.VolumePane.Top < prevBottom {
		t.Errorf("volume pane overlaps price pane")
	}
	prevBottom = layout.VolumePane.Top + layout.VolumePane.Height

	for i, pane := range layout.OscillatorPanes {
		if pane.Top < prevBottom {
			t.Errorf("oscillator pane %d top %d overlaps previous bottom %d", i, pane.Top, prevBottom)
		}
		if pane.Height != OscillatorHeight {
			t.Errorf("oscillator pane %d height = %d, want %d", i, pane.Height, OscillatorHeight)
		}
		prevBottom = pane.Top + pane.Height
	}

	if layout.NavigatorTop < prevBottom {
		t.Errorf("navigator top %d overlaps lowest pane bottom %d", layout.NavigatorTop, prevBottom)
	}
	if layout.TotalHeight != layout.NavigatorTop+NavigatorHeight {
		t.Errorf("total height = %d, want %d", layout.TotalHeight, layout.NavigatorTop+NavigatorHeight)
	}
}
