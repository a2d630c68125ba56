package scout

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"testing"
	"time"

	"github.com/leadscout/scout/pkg/metrics"
	"github.com/leadscout/scout/pkg/pin"
)

// fakeCollaborators answers sunset and geocoding requests offline. Days
// listed in failDays answer with an API-level error.
type fakeCollaborators struct {
	sunsets  map[string]string // day -> RFC3339 sunset
	failDays map[string]bool
	calls    int
}

func (f *fakeCollaborators) Do(req *http.Request) (*http.Response, error) {
	f.calls++
	var body string
	switch req.URL.Host {
	case "api.sunrise-sunset.org":
		day := req.URL.Query().Get("date")
		if f.failDays[day] {
			body = `{"results": {}, "status": "UNKNOWN_ERROR"}`
		} else {
			body = fmt.Sprintf(`{"results": {"sunset": %q}, "status": "OK"}`, f.sunsets[day])
		}
	case "maps.googleapis.com":
		body = `{"results": [{"geometry": {"location": {"lat": 45.01, "lng": -93.44}}}], "status": "OK"}`
	default:
		body = `{"status": "NOT_FOUND"}`
	}
	return &http.Response{
		StatusCode: http.StatusOK,
		Body:       io.NopCloser(bytes.NewBufferString(body)),
		Header:     make(http.Header),
		Request:    req,
	}, nil
}

func testReporter(fake *fakeCollaborators, opts ...Option) *Reporter {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	base := []Option{
		WithNoCache(),
		WithHTTPClient(fake),
		WithCoordinates(44.9778, -93.2650),
		WithCallInterval(-1),
	}
	return NewWithLogger(context.Background(), logger, append(base, opts...)...)
}

func rawRows() []pin.Raw {
	return []pin.Raw{
		{Rep: "Alice", Timestamp: "6/3/2024 9:00:00 AM", Status: "Not Interested", Address: "100 Oak St, Plymouth, MN", Line: 2},
		{Rep: "Alice", Timestamp: "6/3/2024 9:10:00 AM", Status: "Interested - Follow Up", Address: "102 Oak St, Plymouth, MN", Line: 3},
		{Rep: "Alice", Timestamp: "6/3/2024 10:50:00 AM", Status: "Inspected - No Damage", Address: "200 Elm Ave, Plymouth, MN", Line: 4},
	}
}

func TestReportPipeline(t *testing.T) {
	fake := &fakeCollaborators{
		sunsets: map[string]string{"2024-06-03": "2024-06-04T01:55:12+00:00"},
	}
	r := testReporter(fake, WithMapsAPIKey("test-key"))
	defer r.Close() //nolint:errcheck // no cache configured

	report, err := r.Report(context.Background(), rawRows(), nil)
	if err != nil {
		t.Fatalf("Report failed: %v", err)
	}
	if report.RunID == "" {
		t.Error("report should carry a run ID")
	}
	if len(report.Rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(report.Rows))
	}

	row := report.Rows[0]
	if row.TotalPins != 3 || row.Conversations != 1 || row.Inspections != 1 {
		t.Errorf("counts = pins %d, convos %d, inspections %d",
			row.TotalPins, row.Conversations, row.Inspections)
	}
	if row.TimeInFieldLabel != "1h 50m" {
		t.Errorf("TimeInFieldLabel = %q, want \"1h 50m\"", row.TimeInFieldLabel)
	}
	if row.AdjTimeInFieldLabel != "0h 10m" {
		t.Errorf("AdjTimeInFieldLabel = %q, want \"0h 10m\"", row.AdjTimeInFieldLabel)
	}

	sunset, _ := time.Parse(time.RFC3339, "2024-06-04T01:55:12+00:00")
	want := metrics.FormatHoursMinutes(sunset.Sub(row.Finish))
	if row.BeforeSunset != want {
		t.Errorf("BeforeSunset = %q, want %q", row.BeforeSunset, want)
	}

	// Three pins, all with resolvable addresses.
	if len(report.Points) != 3 {
		t.Errorf("got %d map points, want 3", len(report.Points))
	}
	for _, p := range report.Points {
		if p.Latitude != 45.01 || p.Longitude != -93.44 {
			t.Errorf("point = %+v", p)
		}
	}
}

func TestReportNoParseableRows(t *testing.T) {
	r := testReporter(&fakeCollaborators{})
	defer r.Close() //nolint:errcheck // no cache configured

	rows := []pin.Raw{{Rep: "Alice", Timestamp: "garbage", Status: "Not Home"}}
	if _, err := r.Report(context.Background(), rows, nil); err == nil {
		t.Error("an entirely unparseable input should fail the run")
	}
}

func TestReportSunsetFailureLeavesOnlyThatDayBlank(t *testing.T) {
	fake := &fakeCollaborators{
		sunsets: map[string]string{
			"2024-06-03": "2024-06-04T01:54:00+00:00",
			"2024-06-05": "2024-06-06T01:56:00+00:00",
		},
		failDays: map[string]bool{"2024-06-04": true},
	}
	r := testReporter(fake)
	defer r.Close() //nolint:errcheck // no cache configured

	rows := []pin.Raw{
		{Rep: "Alice", Timestamp: "6/3/2024 9:00:00 AM", Status: "Not Home"},
		{Rep: "Alice", Timestamp: "6/4/2024 9:00:00 AM", Status: "Not Home"},
		{Rep: "Alice", Timestamp: "6/5/2024 9:00:00 AM", Status: "Not Home"},
	}
	report, err := r.Report(context.Background(), rows, nil)
	if err != nil {
		t.Fatalf("Report failed: %v", err)
	}
	if len(report.Rows) != 3 {
		t.Fatalf("got %d rows, want 3", len(report.Rows))
	}

	byDay := make(map[string]string)
	for _, row := range report.Rows {
		byDay[row.Day] = row.BeforeSunset
	}
	if byDay["2024-06-03"] == "" {
		t.Error("day one should be annotated")
	}
	if byDay["2024-06-04"] != "" {
		t.Errorf("failed day should stay blank, got %q", byDay["2024-06-04"])
	}
	if byDay["2024-06-05"] == "" {
		t.Error("day three should be annotated")
	}
}

func TestReportWithoutCoordinatesWarns(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := NewWithLogger(context.Background(), logger,
		WithNoCache(), WithHTTPClient(&fakeCollaborators{}), WithCallInterval(-1))
	defer r.Close() //nolint:errcheck // no cache configured

	report, err := r.Report(context.Background(), rawRows(), nil)
	if err != nil {
		t.Fatalf("Report failed: %v", err)
	}
	var sawSunsetWarning, sawMapWarning bool
	for _, w := range report.Warnings {
		if w == "no deployment coordinates configured; Before Sunset is disabled" {
			sawSunsetWarning = true
		}
		if w == "no geocoding API key configured; map rendering is disabled" {
			sawMapWarning = true
		}
	}
	if !sawSunsetWarning {
		t.Errorf("missing coordinates warning, got %v", report.Warnings)
	}
	if !sawMapWarning {
		t.Errorf("missing geocoding warning, got %v", report.Warnings)
	}
	if len(report.Points) != 0 {
		t.Errorf("got %d points without a geocoder, want 0", len(report.Points))
	}
}

func TestReportIsIdempotent(t *testing.T) {
	fake := &fakeCollaborators{
		sunsets: map[string]string{"2024-06-03": "2024-06-04T01:55:12+00:00"},
	}
	r := testReporter(fake, WithMapsAPIKey("test-key"))
	defer r.Close() //nolint:errcheck // no cache configured

	first, err := r.Report(context.Background(), rawRows(), nil)
	if err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	second, err := r.Report(context.Background(), rawRows(), nil)
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}
	if !reflect.DeepEqual(first.Rows, second.Rows) {
		t.Error("reprocessing the same input must yield identical metric rows")
	}
	if first.RunID == second.RunID {
		t.Error("each run gets its own ID")
	}
}

func TestReportProgressCallback(t *testing.T) {
	fake := &fakeCollaborators{
		sunsets: map[string]string{"2024-06-03": "2024-06-04T01:55:12+00:00"},
	}
	var stages []string
	r := testReporter(fake, WithMapsAPIKey("test-key"),
		WithProgress(func(stage string, _, _ int) { stages = append(stages, stage) }))
	defer r.Close() //nolint:errcheck // no cache configured

	if _, err := r.Report(context.Background(), rawRows(), nil); err != nil {
		t.Fatalf("Report failed: %v", err)
	}

	var sunsetCalls, geocodeCalls int
	for _, s := range stages {
		switch s {
		case "sunset":
			sunsetCalls++
		case "geocode":
			geocodeCalls++
		}
	}
	if sunsetCalls != 1 {
		t.Errorf("sunset progress reported %d times, want 1", sunsetCalls)
	}
	if geocodeCalls != 3 {
		t.Errorf("geocode progress reported %d times, want 3", geocodeCalls)
	}
}
