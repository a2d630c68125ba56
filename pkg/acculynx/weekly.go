// Package acculynx aggregates AccuLynx lead-pipeline exports into weekly
// lead/prospect/approval counts and approved revenue.
package acculynx

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// dateLayout matches the export's M/D/YY dates.
const dateLayout = "1/2/06"

// Job is one row of the lead export. Zero time values mean the milestone
// was never reached.
type Job struct {
	LeadDate      time.Time
	ProspectDate  time.Time
	ApprovedDate  time.Time
	MilestoneDate time.Time
	Status        string
	Milestone     string
	JobValue      float64
}

// Week is one aggregated output row, keyed by the Monday that starts it.
type Week struct {
	Start              time.Time
	Leads              int
	Prospects          int
	Approved           int
	ApprovedValue      float64
	ApprovedValueLabel string
}

// Columns the export must carry, matching the scheduled report layout.
var neededColumns = []string{
	"Lead Date", "Prospect Date", "Approved Date", "Current Status",
	"Current Milestone", "Current Milestone Date", "Job Value",
}

// ReadCSV reads a lead export. Dates that fail to parse are coerced to
// absent, matching how the report treats never-reached milestones.
func ReadCSV(r io.Reader) ([]Job, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header row: %w", err)
	}
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.TrimSpace(h)] = i
	}
	for _, col := range neededColumns {
		if _, ok := idx[col]; !ok {
			return nil, fmt.Errorf("lead export is missing column %q", col)
		}
	}

	var jobs []Job
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading lead export row: %w", err)
		}
		get := func(col string) string {
			i := idx[col]
			if i >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[i])
		}
		jobs = append(jobs, Job{
			LeadDate:      parseDate(get("Lead Date")),
			ProspectDate:  parseDate(get("Prospect Date")),
			ApprovedDate:  parseDate(get("Approved Date")),
			MilestoneDate: parseDate(get("Current Milestone Date")),
			Status:        get("Current Status"),
			Milestone:     get("Current Milestone"),
			JobValue:      parseMoney(get("Job Value")),
		})
	}
	if len(jobs) == 0 {
		return nil, errors.New("lead export contains no data rows")
	}
	return jobs, nil
}

func parseDate(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func parseMoney(s string) float64 {
	s = strings.NewReplacer("$", "", ",", "", " ", "").Replace(s)
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

// WeekStart returns the Monday starting the week that contains t.
func WeekStart(t time.Time) time.Time {
	weekday := int(t.Weekday())
	// time.Weekday counts Sunday as 0; the report weeks start Monday.
	offset := (weekday + 6) % 7
	return t.AddDate(0, 0, -offset)
}

// Summarize computes one row per unique week seen across the lead,
// prospect and approved date columns, ordered chronologically.
func Summarize(jobs []Job) []Week {
	byWeek := make(map[time.Time]*Week)
	week := func(t time.Time) *Week {
		start := WeekStart(t)
		w, ok := byWeek[start]
		if !ok {
			w = &Week{Start: start}
			byWeek[start] = w
		}
		return w
	}

	for _, j := range jobs {
		if !j.LeadDate.IsZero() {
			week(j.LeadDate).Leads++
		}
		if !j.ProspectDate.IsZero() {
			week(j.ProspectDate).Prospects++
		}
		if !j.ApprovedDate.IsZero() {
			w := week(j.ApprovedDate)
			w.Approved++
			w.ApprovedValue += j.JobValue
		}
	}

	out := make([]Week, 0, len(byWeek))
	printer := message.NewPrinter(language.AmericanEnglish)
	for _, w := range byWeek {
		w.ApprovedValueLabel = printer.Sprintf("$%.2f", w.ApprovedValue)
		out = append(out, *w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out
}
