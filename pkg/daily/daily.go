// Package daily groups classified pins into one summary row per (rep, day).
package daily

import (
	"sort"
	"time"

	"github.com/leadscout/scout/pkg/gap"
)

// Summary is one (rep, day) row of raw counts and durations, before any
// derived metrics are attached.
type Summary struct {
	Rep    string
	Day    string
	Start  time.Time
	Finish time.Time

	TotalPins            int
	Conversations        int
	Inspections          int
	InspectionsScheduled int
	InspectedNoDamage    int
	InspectedDamage      int
	ClaimsFiled          int
	ShortPins            int
	SlowPins             int

	// LongGapTime is excluded idle (rules 1 and 2 combined); InspectionTime
	// is time actively inspecting. Both are gap sums attributed to this day.
	LongGapTime    time.Duration
	InspectionTime time.Duration

	// Notes lists the removed gaps for the day, newline-joined.
	Notes string
}

// Aggregate folds classified pins into per-(rep, day) summaries, sorted by
// rep then day. A day with a single pin has Start == Finish and no gap
// contributions.
func Aggregate(classified []gap.Classified, notes *gap.Notes) []Summary {
	byDay := make(map[gap.Key]*Summary)
	var order []gap.Key

	for i := range classified {
		c := &classified[i]
		e := &c.Event
		key := gap.Key{Rep: e.Rep, Day: e.Day}
		s, ok := byDay[key]
		if !ok {
			s = &Summary{Rep: e.Rep, Day: e.Day, Start: e.Time, Finish: e.Time}
			byDay[key] = s
			order = append(order, key)
		}

		if e.Time.Before(s.Start) {
			s.Start = e.Time
		}
		if e.Time.After(s.Finish) {
			s.Finish = e.Time
		}

		s.TotalPins++
		if e.IsConversation() {
			s.Conversations++
		}
		if e.IsInspection() {
			s.Inspections++
		}
		if e.IsInspectionScheduled() {
			s.InspectionsScheduled++
		}
		if e.IsInspectedNoDamage() {
			s.InspectedNoDamage++
		}
		if e.IsInspectedDamage() {
			s.InspectedDamage++
		}
		if e.IsClaimFiled() {
			s.ClaimsFiled++
		}

		if !c.Gap.Defined {
			continue
		}
		if c.Gap.ShortPin {
			s.ShortPins++
		}
		if c.Gap.SlowNonInspection {
			s.SlowPins++
		}
		switch c.Gap.Kind {
		case gap.LongGap, gap.VeryLongGap:
			s.LongGapTime += c.Gap.Duration
		case gap.Inspection:
			s.InspectionTime += c.Gap.Duration
		case gap.Normal:
		}
	}

	out := make([]Summary, 0, len(order))
	for _, key := range order {
		s := byDay[key]
		if notes != nil {
			s.Notes = notes.Joined(s.Rep, s.Day)
		}
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Rep != out[j].Rep {
			return out[i].Rep < out[j].Rep
		}
		return out[i].Day < out[j].Day
	})
	return out
}
