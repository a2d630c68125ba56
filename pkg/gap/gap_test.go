package gap

import (
	"strings"
	"testing"
	"time"

	"github.com/leadscout/scout/pkg/pin"
)

var baseTime = time.Date(2024, 6, 3, 9, 0, 0, 0, time.Local)

// chain builds normalized events at the given second offsets, all for one
// rep, with Prev links wired the way pin.Normalize does.
func chain(statuses []string, offsets []int) []pin.Event {
	events := make([]pin.Event, len(statuses))
	for i := range statuses {
		ts := baseTime.Add(time.Duration(offsets[i]) * time.Second)
		events[i] = pin.Event{
			Rep:    "Alice",
			Time:   ts,
			Day:    ts.Format("2006-01-02"),
			Status: statuses[i],
			Folded: strings.ToLower(statuses[i]),
		}
	}
	for i := 1; i < len(events); i++ {
		events[i].Prev = &events[i-1]
	}
	return events
}

func TestClassifyFirstPinHasNoGap(t *testing.T) {
	events := chain([]string{"Not Home"}, []int{0})
	g := Classify(&events[0])
	if g.Defined {
		t.Error("a rep's first pin must have an undefined gap")
	}
	if g.Excluded() {
		t.Error("an undefined gap must not be excluded")
	}
}

func TestClassifyBoundaries(t *testing.T) {
	tests := []struct {
		name     string
		prev     string
		seconds  int
		wantKind Kind
	}{
		{"exactly 30 min is normal", "Not Home", 1800, Normal},
		{"one second over 30 min is a long gap", "Not Home", 1801, LongGap},
		{"exactly 120 min from inspection is inspection time", "Inspected - No Damage", 7200, Inspection},
		{"over 120 min is excluded even from an inspection", "Inspected - No Damage", 7201, VeryLongGap},
		{"over 30 min from an inspection is inspection time", "Inspected - No Damage", 3600, Inspection},
		{"over 120 min from a normal pin", "Not Home", 7300, VeryLongGap},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events := chain([]string{tt.prev, "Not Home"}, []int{0, tt.seconds})
			g := Classify(&events[1])
			if !g.Defined {
				t.Fatal("gap should be defined")
			}
			if g.Kind != tt.wantKind {
				t.Errorf("Kind = %v, want %v", g.Kind, tt.wantKind)
			}
		})
	}
}

func TestClassifyLongDriveToInspectionIsStillExcluded(t *testing.T) {
	// Inspection-ness comes from the pin that opened the gap. A 100-minute
	// gap arriving AT an inspection pin is still rule-1 idle.
	events := chain([]string{"Not Home", "Inspected - Damage Found"}, []int{0, 6000})
	g := Classify(&events[1])
	if g.Kind != LongGap {
		t.Errorf("Kind = %v, want LongGap", g.Kind)
	}
}

func TestClassifyFlags(t *testing.T) {
	events := chain([]string{"Not Home", "Not Home", "Inspected", "Not Home", "Not Home"},
		[]int{0, 20, 80, 480, 900})

	if g := Classify(&events[1]); !g.ShortPin {
		t.Error("a 20-second gap should flag a short pin")
	}
	if g := Classify(&events[2]); g.ShortPin || g.SlowNonInspection {
		t.Error("a 60-second gap carries no flags")
	}
	// 400s gap out of an inspection: slow, but the inspection explains it.
	if g := Classify(&events[3]); g.SlowNonInspection {
		t.Error("a slow gap out of an inspection must not be flagged")
	}
	if g := Classify(&events[4]); !g.SlowNonInspection {
		t.Error("a 420-second gap out of a normal pin should be flagged slow")
	}
}

func TestClassifyAllCollectsNotes(t *testing.T) {
	events := chain([]string{"Not Home", "Not Home", "Not Home"}, []int{0, 2400, 2400 + 8100})
	events[0].Address = "123 Oak St, Plymouth, MN"
	events[1].Address = ""
	events[2].Address = "500 Elm Ave, Plymouth, MN"

	classified, notes := ClassifyAll(events)
	if len(classified) != 3 {
		t.Fatalf("got %d classified pins, want 3", len(classified))
	}
	if classified[1].Gap.Kind != LongGap {
		t.Errorf("second gap Kind = %v, want LongGap", classified[1].Gap.Kind)
	}
	if classified[2].Gap.Kind != VeryLongGap {
		t.Errorf("third gap Kind = %v, want VeryLongGap", classified[2].Gap.Kind)
	}

	joined := notes.Joined("Alice", "2024-06-03")
	lines := strings.Split(joined, "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d note lines, want 2: %q", len(lines), joined)
	}
	want1 := "Removed 0h 40m gap between '123 Oak St, Plymouth, MN' and 'Unknown' (Rule 1: >30 min, not inspection)"
	if lines[0] != want1 {
		t.Errorf("note 1 = %q\nwant     %q", lines[0], want1)
	}
	want2 := "Removed 2h 15m gap between 'Unknown' and '500 Elm Ave, Plymouth, MN' (Rule 2: >120 min)"
	if lines[1] != want2 {
		t.Errorf("note 2 = %q\nwant     %q", lines[1], want2)
	}
}

func TestNotesScopedPerRepDay(t *testing.T) {
	notes := NewNotes()
	notes.add(Key{Rep: "Alice", Day: "2024-06-03"}, "first")
	notes.add(Key{Rep: "Alice", Day: "2024-06-03"}, "second")
	notes.add(Key{Rep: "Bob", Day: "2024-06-03"}, "other")

	if got := notes.Joined("Alice", "2024-06-03"); got != "first\nsecond" {
		t.Errorf("Joined = %q", got)
	}
	if got := notes.Joined("Alice", "2024-06-04"); got != "" {
		t.Errorf("Joined for a clean day = %q, want empty", got)
	}
	if notes.Len() != 2 {
		t.Errorf("Len = %d, want 2", notes.Len())
	}
}
