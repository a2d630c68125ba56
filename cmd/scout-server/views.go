package main

import (
	"encoding/json"
	"html/template"

	"github.com/leadscout/scout/pkg/acculynx"
	"github.com/leadscout/scout/pkg/scout"
)

// reportView is the data handed to report.html. Chart and map payloads
// are pre-marshaled so the template stays dumb.
type reportView struct {
	Report     *scout.Report
	ChartJSON  template.JS
	PointsJSON template.JS
	HasMap     bool
}

func newReportView(report *scout.Report) *reportView {
	labels := make([]string, 0, len(report.Rows))
	type series struct {
		Label  string    `json:"label"`
		Values []float64 `json:"values"`
	}
	type rateSeries struct {
		Label  string            `json:"label"`
		Values []json.RawMessage `json:"values"`
	}

	pins := series{Label: "Total Pins"}
	conversations := series{Label: "Conversations"}
	inspections := series{Label: "Inspections"}
	convoRate := rateSeries{Label: "Convo %"}
	doorsPerHour := rateSeries{Label: "DPH"}
	trueDoorsPerHour := rateSeries{Label: "True DPH"}

	for i := range report.Rows {
		r := &report.Rows[i]
		labels = append(labels, r.Rep+" "+r.Day)
		pins.Values = append(pins.Values, float64(r.TotalPins))
		conversations.Values = append(conversations.Values, float64(r.Conversations))
		inspections.Values = append(inspections.Values, float64(r.Inspections))
		for _, pair := range []struct {
			dst  *rateSeries
			rate json.Marshaler
		}{
			{&convoRate, r.ConvoRate},
			{&doorsPerHour, r.DoorsPerHour},
			{&trueDoorsPerHour, r.TrueDoorsPerHour},
		} {
			raw, _ := pair.rate.MarshalJSON()
			pair.dst.Values = append(pair.dst.Values, raw)
		}
	}

	chart, _ := json.Marshal(map[string]any{
		"labels": labels,
		"counts": []series{pins, conversations, inspections},
		"rates":  []rateSeries{convoRate, doorsPerHour, trueDoorsPerHour},
	})
	points, _ := json.Marshal(report.Points)

	return &reportView{
		Report:     report,
		ChartJSON:  template.JS(chart),  //nolint:gosec // marshaled from our own structs
		PointsJSON: template.JS(points), //nolint:gosec // marshaled from our own structs
		HasMap:     len(report.Points) > 0,
	}
}

// acculynxView is the data handed to acculynx.html.
type acculynxView struct {
	Weeks     []acculynx.Week
	ChartJSON template.JS
}

func newAcculynxView(weeks []acculynx.Week) *acculynxView {
	labels := make([]string, 0, len(weeks))
	leads := make([]int, 0, len(weeks))
	prospects := make([]int, 0, len(weeks))
	approved := make([]int, 0, len(weeks))
	for _, w := range weeks {
		labels = append(labels, w.Start.Format("2006-01-02"))
		leads = append(leads, w.Leads)
		prospects = append(prospects, w.Prospects)
		approved = append(approved, w.Approved)
	}
	chart, _ := json.Marshal(map[string]any{
		"labels":    labels,
		"leads":     leads,
		"prospects": prospects,
		"approved":  approved,
	})
	return &acculynxView{
		Weeks:     weeks,
		ChartJSON: template.JS(chart), //nolint:gosec // marshaled from our own structs
	}
}
