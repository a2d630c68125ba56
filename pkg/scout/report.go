package scout

import (
	"context"
	"errors"
	"time"

	"github.com/codeGROOVE-dev/retry"
	"github.com/google/uuid"

	"github.com/leadscout/scout/pkg/daily"
	"github.com/leadscout/scout/pkg/gap"
	"github.com/leadscout/scout/pkg/metrics"
	"github.com/leadscout/scout/pkg/pin"
)

// MapPoint is one geocoded pin for the map layer.
type MapPoint struct {
	Rep       string    `json:"rep"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Status    string    `json:"status"`
	Time      time.Time `json:"time"`
}

// Report is the finished artifact for one run.
type Report struct {
	RunID    string
	Rows     []metrics.Row
	Points   []MapPoint
	Warnings []string
}

// Report runs the full pipeline over raw rows. Warnings from ingestion
// are carried through and extended with any feature degradations.
func (r *Reporter) Report(ctx context.Context, rows []pin.Raw, warnings []string) (*Report, error) {
	events := pin.Normalize(rows, r.logger)
	if len(events) == 0 {
		return nil, errors.New("no rows with parseable timestamps in input")
	}

	classified, notes := gap.ClassifyAll(events)
	summaries := daily.Aggregate(classified, notes)
	metricRows := metrics.DeriveAll(summaries)

	report := &Report{
		RunID:    uuid.NewString(),
		Rows:     metricRows,
		Warnings: warnings,
	}
	r.logger.Info("pipeline complete", "run_id", report.RunID,
		"events", len(events), "rep_days", len(metricRows), "removed_gap_days", notes.Len())

	r.annotateDaylight(ctx, report)
	r.geocodePins(ctx, events, report)
	return report, nil
}

// Summarize produces the optional AI briefing for a finished report.
func (r *Reporter) Summarize(ctx context.Context, report *Report) (string, error) {
	if r.summarizer == nil {
		return "", errors.New("gemini API key not configured")
	}
	return r.summarizer.Brief(ctx, report.Rows)
}

// annotateDaylight fills BeforeSunset per row. One lookup per distinct
// day; a failed day stays blank and the rest of the batch continues.
func (r *Reporter) annotateDaylight(ctx context.Context, report *Report) {
	if !r.hasCoords {
		report.Warnings = append(report.Warnings,
			"no deployment coordinates configured; Before Sunset is disabled")
		return
	}

	days := make([]string, 0)
	seen := make(map[string]bool)
	for i := range report.Rows {
		if day := report.Rows[i].Day; !seen[day] {
			seen[day] = true
			days = append(days, day)
		}
	}

	sunsets := make(map[string]time.Time, len(days))
	for i, day := range days {
		r.throttle()
		var sunset time.Time
		err := retry.Do(
			func() error {
				var err error
				sunset, err = r.daylight.Sunset(ctx, day, r.latitude, r.longitude)
				return err
			},
			retry.Context(ctx),
			retry.Attempts(3),
			retry.Delay(200*time.Millisecond),
			retry.MaxDelay(2*time.Second),
			retry.DelayType(retry.CombineDelay(retry.BackOffDelay, retry.RandomDelay)),
			retry.MaxJitter(100*time.Millisecond),
			retry.LastErrorOnly(true),
		)
		if err != nil {
			r.logger.Warn("sunset lookup failed; day left blank", "day", day, "error", err)
		} else {
			sunsets[day] = sunset
		}
		r.reportProgress("sunset", i+1, len(days))
	}

	for i := range report.Rows {
		row := &report.Rows[i]
		sunset, ok := sunsets[row.Day]
		if !ok {
			continue
		}
		remaining := sunset.Sub(row.Finish)
		row.BeforeSunset = metrics.FormatHoursMinutes(remaining)
	}
}

// geocodePins resolves each distinct address once and emits a point per
// pin whose address resolved. Per-address failures are skipped.
func (r *Reporter) geocodePins(ctx context.Context, events []pin.Event, report *Report) {
	addresses := make([]string, 0)
	seen := make(map[string]bool)
	for i := range events {
		if addr := events[i].Address; addr != "" && !seen[addr] {
			seen[addr] = true
			addresses = append(addresses, addr)
		}
	}
	if len(addresses) == 0 {
		return
	}
	if r.geocoder == nil {
		report.Warnings = append(report.Warnings,
			"no geocoding API key configured; map rendering is disabled")
		return
	}

	located := make(map[string][2]float64, len(addresses))
	for i, addr := range addresses {
		r.throttle()
		loc, err := r.geocoder.Geocode(ctx, addr)
		if err != nil {
			r.logger.Debug("geocoding failed; pin left off the map", "address", addr, "error", err)
		} else {
			located[addr] = [2]float64{loc.Latitude, loc.Longitude}
		}
		r.reportProgress("geocode", i+1, len(addresses))
	}

	for i := range events {
		e := &events[i]
		coords, ok := located[e.Address]
		if !ok {
			continue
		}
		report.Points = append(report.Points, MapPoint{
			Rep:       e.Rep,
			Latitude:  coords[0],
			Longitude: coords[1],
			Status:    e.Status,
			Time:      e.Time,
		})
	}
}
