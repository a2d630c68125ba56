// Package metrics derives the per-day productivity metrics from daily
// summaries, with explicit handling of every degenerate denominator.
package metrics

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/leadscout/scout/pkg/daily"
)

// Rate is an optional ratio. A zero denominator or a non-finite result
// leaves it invalid, which renders blank, never as 0 — a real 0.00 means
// "tried and converted nothing", which is a different fact.
type Rate struct {
	Value float64
	Valid bool
}

// Ratio builds a Rate from num/den, rounded to two decimals.
func Ratio(num, den float64) Rate {
	if den == 0 {
		return Rate{}
	}
	v := num / den
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Rate{}
	}
	return Rate{Value: math.Round(v*100) / 100, Valid: true}
}

// String renders the rate with two decimals, or empty when undefined.
func (r Rate) String() string {
	if !r.Valid {
		return ""
	}
	return strconv.FormatFloat(r.Value, 'f', 2, 64)
}

// MarshalJSON encodes undefined rates as null.
func (r Rate) MarshalJSON() ([]byte, error) {
	if !r.Valid {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatFloat(r.Value, 'f', 2, 64)), nil
}

// Row is the terminal per-(rep, day) artifact handed to the table, chart
// and map layers. Durations keep their raw values alongside the formatted
// labels so consumers don't re-parse strings.
type Row struct {
	daily.Summary

	TimeInField          time.Duration
	AdjTimeInField       time.Duration
	FieldLessInspections time.Duration

	TimeInFieldLabel          string
	AdjTimeInFieldLabel       string
	FieldLessInspectionsLabel string

	ConvoRate           Rate // conversations / total pins
	InspectionsPerDoor  Rate // inspections / total pins
	InspectionsPerConvo Rate // inspections / conversations
	DoorsPerHour        Rate // total pins / time-in-field hours
	ClosingRate         Rate // claims filed / inspected with damage
	TrueDoorsPerHour    Rate // total pins / field-less-inspections hours

	TrueAvgTimePerDoor string // "{m}m {s}s", "0m 0s" when undefined

	// BeforeSunset is filled by the daylight annotator; blank when the
	// sunset lookup failed for the day.
	BeforeSunset string
}

// FormatHoursMinutes renders a duration as "{H}h {M}m", truncating the
// minutes. Non-positive and undefined durations are exactly "0h 0m".
func FormatHoursMinutes(d time.Duration) string {
	if d <= 0 {
		return "0h 0m"
	}
	return fmt.Sprintf("%dh %dm", int(d.Hours()), int(d.Minutes())%60)
}

// FormatMinutesSeconds renders a duration as "{m}m {s}s", truncating.
func FormatMinutesSeconds(d time.Duration) string {
	if d <= 0 {
		return "0m 0s"
	}
	return fmt.Sprintf("%dm %ds", int(d.Minutes()), int(d.Seconds())%60)
}

// Derive computes every derived metric for one summary row.
func Derive(s daily.Summary) Row {
	row := Row{Summary: s}

	row.TimeInField = s.Finish.Sub(s.Start)
	if row.TimeInField < 0 {
		row.TimeInField = 0
	}

	// Adjusted time floors at zero: a day that absorbed an overnight gap
	// can carry more excluded idle than its own span.
	row.AdjTimeInField = row.TimeInField - s.LongGapTime
	if row.AdjTimeInField < 0 {
		row.AdjTimeInField = 0
	}
	row.FieldLessInspections = row.AdjTimeInField - s.InspectionTime
	if row.FieldLessInspections < 0 {
		row.FieldLessInspections = 0
	}

	row.TimeInFieldLabel = FormatHoursMinutes(row.TimeInField)
	row.AdjTimeInFieldLabel = FormatHoursMinutes(row.AdjTimeInField)
	row.FieldLessInspectionsLabel = FormatHoursMinutes(row.FieldLessInspections)

	total := float64(s.TotalPins)
	// A day with zero conversations shows no conversion rate, not 0.00.
	if s.Conversations > 0 {
		row.ConvoRate = Ratio(float64(s.Conversations), total)
	}
	row.InspectionsPerDoor = Ratio(float64(s.Inspections), total)
	row.InspectionsPerConvo = Ratio(float64(s.Inspections), float64(s.Conversations))
	row.DoorsPerHour = Ratio(total, row.TimeInField.Hours())
	row.ClosingRate = Ratio(float64(s.ClaimsFiled), float64(s.InspectedDamage))
	row.TrueDoorsPerHour = Ratio(total, row.FieldLessInspections.Hours())

	row.TrueAvgTimePerDoor = "0m 0s"
	if s.TotalPins > 0 {
		perDoor := row.FieldLessInspections / time.Duration(s.TotalPins)
		row.TrueAvgTimePerDoor = FormatMinutesSeconds(perDoor)
	}
	return row
}

// DeriveAll derives metrics for every summary, preserving order.
func DeriveAll(sums []daily.Summary) []Row {
	rows := make([]Row, 0, len(sums))
	for _, s := range sums {
		rows = append(rows, Derive(s))
	}
	return rows
}
