// Package gap classifies the idle time between consecutive pins.
package gap

import (
	"fmt"
	"time"

	"github.com/leadscout/scout/pkg/pin"
)

// Gap rule thresholds. Boundaries are strict: a gap of exactly 30 minutes
// is still normal.
const (
	LongGapCutoff     = 30 * time.Minute
	VeryLongGapCutoff = 120 * time.Minute
	ShortPinCutoff    = 30 * time.Second
	SlowPinCutoff     = 5 * time.Minute
)

// Kind classifies the gap between a pin and its predecessor.
type Kind int

const (
	// Normal working time between doors.
	Normal Kind = iota
	// Inspection time: the previous pin opened an inspection.
	Inspection
	// LongGap is idle time excluded by rule 1 (>30 min, not inspection).
	LongGap
	// VeryLongGap is idle time excluded by rule 2 (>120 min, always).
	VeryLongGap
)

// Gap is the elapsed time between a pin and the rep's previous pin.
// Defined is false for a rep's first pin of the dataset.
type Gap struct {
	Duration time.Duration
	Defined  bool
	Kind     Kind

	// Informational flags, independent of the exclusion rules.
	ShortPin          bool // under 30 seconds at a door
	SlowNonInspection bool // over 5 minutes, not explained by an inspection
}

// Excluded reports whether the gap's duration is removed from time in field.
func (g Gap) Excluded() bool {
	return g.Kind == LongGap || g.Kind == VeryLongGap
}

// Classified pairs a pin with its classified gap.
type Classified struct {
	Event pin.Event
	Gap   Gap
}

// Classify computes and classifies a single pin's gap. Rule 2 outranks
// everything; inspection time outranks rule 1. Whether a gap "is an
// inspection" is determined by the pin that opened it, so a long drive to
// an inspection pin is still excluded idle.
func Classify(e *pin.Event) Gap {
	if e.Prev == nil {
		return Gap{}
	}
	d := e.Time.Sub(e.Prev.Time)
	g := Gap{Duration: d, Defined: true}

	fromInspection := e.Prev.IsInspection()
	switch {
	case d > VeryLongGapCutoff:
		g.Kind = VeryLongGap
	case fromInspection:
		g.Kind = Inspection
	case d > LongGapCutoff:
		g.Kind = LongGap
	default:
		g.Kind = Normal
	}

	g.ShortPin = d < ShortPinCutoff
	g.SlowNonInspection = d > SlowPinCutoff && !fromInspection
	return g
}

// ClassifyAll classifies every pin and collects removal notes. Notes are an
// explicit return value, never package state, so runs stay independent.
// Events must already be normalized (per-rep chronological order).
func ClassifyAll(events []pin.Event) ([]Classified, *Notes) {
	classified := make([]Classified, 0, len(events))
	notes := NewNotes()
	for i := range events {
		e := &events[i]
		g := Classify(e)
		if g.Excluded() {
			notes.add(Key{Rep: e.Rep, Day: e.Day}, removalNote(e, g))
		}
		classified = append(classified, Classified{Event: *e, Gap: g})
	}
	return classified, notes
}

func removalNote(e *pin.Event, g Gap) string {
	reason := "Rule 1: >30 min, not inspection"
	if g.Kind == VeryLongGap {
		reason = "Rule 2: >120 min"
	}
	h := int(g.Duration.Hours())
	m := int(g.Duration.Minutes()) % 60
	return fmt.Sprintf("Removed %dh %dm gap between '%s' and '%s' (%s)",
		h, m, noteAddress(e.Prev.Address), noteAddress(e.Address), reason)
}

func noteAddress(addr string) string {
	if addr == "" {
		return "Unknown"
	}
	return addr
}
