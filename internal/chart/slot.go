package chart

import (
	"github.com/stock-track/internal/indicator"
)

// VolumeID is the pseudo-indicator id for the volume pane. Volume is part
// of the fixed layout, not an oscillator slot: toggling it never shifts
// oscillator panes relative to each other.
const VolumeID = "volume"

// Slot is one active indicator on the chart. Overlays draw on the price
// pane and keep PaneIndex at -1; oscillators own the pane at PaneIndex.
type Slot struct {
	ID        string         `json:"id"`
	Kind      indicator.Kind `json:"kind"`
	PaneIndex int            `json:"pane_index"`
	Color     string         `json:"color"`
	Visible   bool           `json:"visible"`
}

// slotSet keeps slots in insertion order, which fixes oscillator stacking
type slotSet struct {
	slots []Slot
}

// contains reports whether the id is active
func (s *slotSet) contains(id string) bool {
	for _, slot := range s.slots {
		if slot.ID == id {
			return true
		}
	}
	return false
}

// add appends a slot for the definition, assigning the next pane index to
// oscillators. Returns false if the id is already active.
func (s *slotSet) add(def indicator.Definition) bool {
	if s.contains(def.ID) {
		return false
	}

	slot := Slot{
		ID:        def.ID,
		Kind:      def.Kind,
		PaneIndex: -1,
		Color:     def.Color,
		Visible:   true,
	}
	if def.Kind == indicator.KindOscillator {
		slot.PaneIndex = s.oscillatorCount()
	}

	s.slots = append(s.slots, slot)
	return true
}

// remove drops the slot and closes the pane gap: every oscillator that
// stacked below the removed one shifts up a slot. Returns the removed
// slot and false if the id was not active.
func (s *slotSet) remove(id string) (Slot, bool) {
	idx := -1
	for i, slot := range s.slots {
		if slot.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return Slot{}, false
	}

	removed := s.slots[idx]
	s.slots = append(s.slots[:idx], s.slots[idx+1:]...)

	if removed.Kind == indicator.KindOscillator {
		for i := range s.slots {
			if s.slots[i].Kind == indicator.KindOscillator && s.slots[i].PaneIndex > removed.PaneIndex {
				s.slots[i].PaneIndex--
			}
		}
	}

	return removed, true
}

// oscillatorCount returns the number of active oscillator panes
func (s *slotSet) oscillatorCount() int {
	n := 0
	for _, slot := range s.slots {
		if slot.Kind == indicator.KindOscillator {
			n++
		}
	}
	return n
}

// ids returns the active indicator ids in insertion order
func (s *slotSet) ids() []string {
	out := make([]string, 0, len(s.slots))
	for _, slot := range s.slots {
		out = append(out, slot.ID)
	}
	return out
}

// all returns a copy of the slots in insertion order
func (s *slotSet) all() []Slot {
	out := make([]Slot, len(s.slots))
	copy(out, s.slots)
	return out
}
