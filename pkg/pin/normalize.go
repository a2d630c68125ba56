package pin

import (
	"log/slog"
	"sort"
	"strings"
	"time"
)

// timestampFormats are tried in order. Lead Scout exports use the first;
// the rest cover hand-edited and re-exported files.
var timestampFormats = []string{
	"1/2/2006 3:04:05 PM",
	"1/2/2006 3:04 PM",
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
	time.RFC3339,
	"2006-01-02 15:04:05",
}

// parseTimestamp parses a status-change timestamp in local time.
func parseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampFormats {
		if layout == time.RFC3339 {
			if t, err := time.Parse(layout, s); err == nil {
				return t, true
			}
			continue
		}
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Normalize turns raw rows into per-rep chronologically ordered events.
// Rows with unparseable timestamps are dropped, by policy silently; the
// drop is only visible at debug level. The sort is stable so that rows
// sharing a timestamp keep their export order, which determines which pin
// is "previous" for gap computation.
func Normalize(rows []Raw, logger *slog.Logger) []Event {
	if logger == nil {
		logger = slog.Default()
	}

	events := make([]Event, 0, len(rows))
	for _, row := range rows {
		t, ok := parseTimestamp(row.Timestamp)
		if !ok {
			logger.Debug("dropping row with unparseable timestamp",
				"line", row.Line, "timestamp", row.Timestamp, "rep", row.Rep)
			continue
		}
		events = append(events, Event{
			Rep:     strings.TrimSpace(row.Rep),
			Time:    t,
			Day:     t.Format("2006-01-02"),
			Status:  strings.TrimSpace(row.Status),
			Folded:  strings.ToLower(strings.TrimSpace(row.Status)),
			Tags:    splitTags(row.Tags),
			Address: strings.TrimSpace(row.Address),
		})
	}

	sort.SliceStable(events, func(i, j int) bool {
		if events[i].Rep != events[j].Rep {
			return events[i].Rep < events[j].Rep
		}
		return events[i].Time.Before(events[j].Time)
	})

	// Link each pin to the rep's previous pin across the whole dataset,
	// day boundaries included. Overnight gaps are real gaps.
	for i := 1; i < len(events); i++ {
		if events[i].Rep == events[i-1].Rep {
			events[i].Prev = &events[i-1]
		}
	}

	logger.Debug("normalized activity rows", "in", len(rows), "out", len(events))
	return events
}
