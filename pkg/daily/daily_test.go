package daily

import (
	"strings"
	"testing"
	"time"

	"github.com/leadscout/scout/pkg/gap"
	"github.com/leadscout/scout/pkg/pin"
)

func events(rep string, base time.Time, statuses []string, offsets []int) []pin.Event {
	out := make([]pin.Event, len(statuses))
	for i := range statuses {
		ts := base.Add(time.Duration(offsets[i]) * time.Second)
		out[i] = pin.Event{
			Rep:    rep,
			Time:   ts,
			Day:    ts.Format("2006-01-02"),
			Status: statuses[i],
			Folded: strings.ToLower(statuses[i]),
		}
	}
	for i := 1; i < len(out); i++ {
		out[i].Prev = &out[i-1]
	}
	return out
}

func TestAggregateCountsAndSpan(t *testing.T) {
	base := time.Date(2024, 6, 3, 9, 0, 0, 0, time.Local)
	evs := events("Alice", base,
		[]string{
			"Not Home",
			"Interested - Follow Up",
			"Inspection Scheduled",
			"Inspected - No Damage",
			"Inspected - Damage Found",
			"Claim Filed",
		},
		[]int{0, 300, 600, 900, 1200, 1500})

	classified, notes := gap.ClassifyAll(evs)
	sums := Aggregate(classified, notes)
	if len(sums) != 1 {
		t.Fatalf("got %d summaries, want 1", len(sums))
	}

	s := sums[0]
	if s.Rep != "Alice" || s.Day != "2024-06-03" {
		t.Errorf("key = (%q, %q)", s.Rep, s.Day)
	}
	if s.TotalPins != 6 {
		t.Errorf("TotalPins = %d, want 6", s.TotalPins)
	}
	if s.Conversations != 2 {
		t.Errorf("Conversations = %d, want 2", s.Conversations)
	}
	if s.Inspections != 2 {
		t.Errorf("Inspections = %d, want 2", s.Inspections)
	}
	if s.InspectionsScheduled != 1 {
		t.Errorf("InspectionsScheduled = %d, want 1", s.InspectionsScheduled)
	}
	if s.InspectedNoDamage != 1 {
		t.Errorf("InspectedNoDamage = %d, want 1", s.InspectedNoDamage)
	}
	if s.InspectedDamage != 1 {
		t.Errorf("InspectedDamage = %d, want 1", s.InspectedDamage)
	}
	if s.ClaimsFiled != 1 {
		t.Errorf("ClaimsFiled = %d, want 1", s.ClaimsFiled)
	}
	if !s.Start.Equal(base) || !s.Finish.Equal(base.Add(1500*time.Second)) {
		t.Errorf("span = %v..%v", s.Start, s.Finish)
	}
}

func TestAggregateGapDurations(t *testing.T) {
	base := time.Date(2024, 6, 3, 9, 0, 0, 0, time.Local)
	// Gaps: 10 min normal, 40 min long (rule 1), 20 min inspection time.
	evs := events("Alice", base,
		[]string{"Not Home", "Not Home", "Inspected - No Damage", "Not Home"},
		[]int{0, 600, 600 + 2400, 600 + 2400 + 1200})

	classified, notes := gap.ClassifyAll(evs)
	sums := Aggregate(classified, notes)
	s := sums[0]

	if s.LongGapTime != 40*time.Minute {
		t.Errorf("LongGapTime = %v, want 40m", s.LongGapTime)
	}
	if s.InspectionTime != 20*time.Minute {
		t.Errorf("InspectionTime = %v, want 20m", s.InspectionTime)
	}
	if !strings.Contains(s.Notes, "Removed 0h 40m gap") {
		t.Errorf("Notes = %q, want the rule-1 removal note", s.Notes)
	}
}

func TestAggregateSinglePinDay(t *testing.T) {
	base := time.Date(2024, 6, 3, 14, 0, 0, 0, time.Local)
	evs := events("Alice", base, []string{"Not Home"}, []int{0})

	classified, notes := gap.ClassifyAll(evs)
	sums := Aggregate(classified, notes)
	s := sums[0]
	if !s.Start.Equal(s.Finish) {
		t.Errorf("single-pin day span = %v..%v, want Start == Finish", s.Start, s.Finish)
	}
	if s.LongGapTime != 0 || s.InspectionTime != 0 {
		t.Error("single-pin day must carry no gap durations")
	}
}

func TestAggregateOvernightGapLandsOnSecondDay(t *testing.T) {
	base := time.Date(2024, 6, 3, 18, 0, 0, 0, time.Local)
	// Last pin at 18:00, next pin 8:00 the following morning: a 14-hour
	// rule-2 gap attributed to the morning pin's day.
	evs := events("Alice", base,
		[]string{"Not Home", "Not Home"},
		[]int{0, 14 * 3600})

	classified, notes := gap.ClassifyAll(evs)
	sums := Aggregate(classified, notes)
	if len(sums) != 2 {
		t.Fatalf("got %d summaries, want 2", len(sums))
	}

	dayOne, dayTwo := sums[0], sums[1]
	if dayOne.LongGapTime != 0 {
		t.Errorf("day one LongGapTime = %v, want 0", dayOne.LongGapTime)
	}
	if dayTwo.LongGapTime != 14*time.Hour {
		t.Errorf("day two LongGapTime = %v, want 14h", dayTwo.LongGapTime)
	}
	if dayOne.Notes != "" {
		t.Errorf("day one Notes = %q, want empty", dayOne.Notes)
	}
	if !strings.Contains(dayTwo.Notes, "Removed 14h 0m gap") {
		t.Errorf("day two Notes = %q, want the overnight removal", dayTwo.Notes)
	}
}

func TestAggregateSortsByRepThenDay(t *testing.T) {
	base := time.Date(2024, 6, 4, 9, 0, 0, 0, time.Local)
	evs := append(
		events("Bob", base, []string{"Not Home"}, []int{0}),
		events("Alice", base.AddDate(0, 0, 1), []string{"Not Home"}, []int{0})...)
	evs = append(evs, events("Alice", base, []string{"Not Home"}, []int{0})...)

	classified, notes := gap.ClassifyAll(evs)
	sums := Aggregate(classified, notes)
	if len(sums) != 3 {
		t.Fatalf("got %d summaries, want 3", len(sums))
	}
	wantKeys := []string{"Alice/2024-06-04", "Alice/2024-06-05", "Bob/2024-06-04"}
	for i, want := range wantKeys {
		got := sums[i].Rep + "/" + sums[i].Day
		if got != want {
			t.Errorf("summary %d = %s, want %s", i, got, want)
		}
	}
}
