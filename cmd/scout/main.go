// Package main implements the scout CLI for field-sales activity reports.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/fatih/color"

	"github.com/leadscout/scout/pkg/acculynx"
	"github.com/leadscout/scout/pkg/metrics"
	"github.com/leadscout/scout/pkg/pin"
	"github.com/leadscout/scout/pkg/scout"
)

var (
	mapsAPIKey   = flag.String("maps-key", "", "Google Maps API key for geocoding (or set GOOGLE_MAPS_API_KEY)")
	geminiAPIKey = flag.String("gemini-key", "", "Gemini API key for the AI summary (or set GEMINI_API_KEY)")
	geminiModel  = flag.String("gemini-model", "gemini-2.5-flash-lite", "Gemini model to use (or set GEMINI_MODEL)")
	latitude     = flag.Float64("lat", 44.9778, "Deployment latitude for sunset lookups")
	longitude    = flag.Float64("lng", -93.2650, "Deployment longitude for sunset lookups")
	cacheDir     = flag.String("cache-dir", "", "Cache directory (or set CACHE_DIR)")
	noCache      = flag.Bool("no-cache", false, "Disable caching")
	callInterval = flag.Duration("call-interval", 250*time.Millisecond, "Minimum delay between external service calls")
	aiSummary    = flag.Bool("summary", false, "Generate an AI summary of the report (needs -gemini-key)")
	leadExport   = flag.Bool("acculynx", false, "Treat the input as an AccuLynx lead export and print weekly totals")
	verbose      = flag.Bool("verbose", false, "Enable verbose logging")
	version      = flag.Bool("version", false, "Show version")
)

func main() {
	flag.Parse()

	if *version {
		fmt.Println("scout CLI v1.3.0")
		return
	}

	args := flag.Args()
	if len(args) != 1 {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] <export.csv>\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(1)
	}
	path := args[0]

	level := slog.LevelError
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if *mapsAPIKey == "" {
		*mapsAPIKey = os.Getenv("GOOGLE_MAPS_API_KEY")
	}
	if *geminiAPIKey == "" {
		*geminiAPIKey = os.Getenv("GEMINI_API_KEY")
	}
	if os.Getenv("GEMINI_MODEL") != "" && *geminiModel == "gemini-2.5-flash-lite" {
		*geminiModel = os.Getenv("GEMINI_MODEL")
	}
	if *cacheDir == "" {
		*cacheDir = os.Getenv("CACHE_DIR")
	}

	file, err := os.Open(path)
	if err != nil {
		logger.Error("cannot open input", "path", path, "error", err)
		os.Exit(1)
	}
	defer file.Close() //nolint:errcheck // read-only file

	if *leadExport {
		if err := runAcculynx(file); err != nil {
			logger.Error("lead export processing failed", "error", err)
			os.Exit(1)
		}
		return
	}

	rows, warnings, err := pin.ReadCSV(file)
	if err != nil {
		logger.Error("cannot read activity export", "error", err)
		os.Exit(1)
	}

	reporterOpts := []scout.Option{
		scout.WithMapsAPIKey(*mapsAPIKey),
		scout.WithGeminiAPIKey(*geminiAPIKey),
		scout.WithGeminiModel(*geminiModel),
		scout.WithCoordinates(*latitude, *longitude),
		scout.WithCallInterval(*callInterval),
		scout.WithProgress(func(stage string, done, total int) {
			fmt.Fprintf(os.Stderr, "\r%s %d/%d", stage, done, total)
			if done == total {
				fmt.Fprintln(os.Stderr)
			}
		}),
	}
	if *noCache {
		reporterOpts = append(reporterOpts, scout.WithNoCache())
	} else if *cacheDir != "" {
		reporterOpts = append(reporterOpts, scout.WithCacheDir(*cacheDir))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	reporter := scout.NewWithLogger(ctx, logger, reporterOpts...)
	defer func() {
		if err := reporter.Close(); err != nil {
			logger.Error("failed to close reporter", "error", err)
		}
	}()

	report, err := reporter.Report(ctx, rows, warnings)
	if err != nil {
		cancel()
		logger.Error("report failed", "error", err)
		os.Exit(1)
	}

	printReport(report)

	if *aiSummary {
		text, err := reporter.Summarize(ctx, report)
		if err != nil {
			logger.Error("AI summary failed", "error", err)
		} else {
			fmt.Printf("\n%s\n%s\n", color.New(color.Bold).Sprint("Summary"), text)
		}
	}
}

func printReport(report *scout.Report) {
	header := color.New(color.Bold, color.FgWhite)
	rate := color.New(color.FgCyan)
	dim := color.New(color.FgHiBlack)
	note := color.New(color.FgYellow)
	warn := color.New(color.FgRed)

	for _, w := range report.Warnings {
		warn.Fprintf(os.Stderr, "warning: %s\n", w)
	}

	for i := range report.Rows {
		r := &report.Rows[i]
		fmt.Println()
		header.Printf("%s — %s\n", r.Rep, r.Day)
		fmt.Printf("  Pins %d   Conversations %d   Inspections %d (sched %d, no dmg %d, dmg %d)   Claims %d\n",
			r.TotalPins, r.Conversations, r.Inspections,
			r.InspectionsScheduled, r.InspectedNoDamage, r.InspectedDamage, r.ClaimsFiled)
		fmt.Printf("  Time in Field %s   Adj %s   Less Inspections %s   Inspecting %s\n",
			r.TimeInFieldLabel, r.AdjTimeInFieldLabel, r.FieldLessInspectionsLabel,
			metrics.FormatHoursMinutes(r.InspectionTime))
		fmt.Printf("  Convo %% %s   Insp/Door %s   Insp/Convo %s   DPH %s   Closing %% %s   True DPH %s\n",
			rateLabel(r.ConvoRate, rate, dim), rateLabel(r.InspectionsPerDoor, rate, dim),
			rateLabel(r.InspectionsPerConvo, rate, dim), rateLabel(r.DoorsPerHour, rate, dim),
			rateLabel(r.ClosingRate, rate, dim), rateLabel(r.TrueDoorsPerHour, rate, dim))
		fmt.Printf("  Avg Time/Door %s   Short Pins %d   Slow Pins %d   Before Sunset %s\n",
			r.TrueAvgTimePerDoor, r.ShortPins, r.SlowPins, blankLabel(r.BeforeSunset, dim))
		if r.Notes != "" {
			note.Printf("  %s\n", r.Notes)
		}
	}

	if len(report.Points) > 0 {
		fmt.Println()
		dim.Printf("%d pins geocoded for mapping\n", len(report.Points))
	}
}

func rateLabel(r metrics.Rate, ok, dim *color.Color) string {
	if !r.Valid {
		return dim.Sprint("N/A")
	}
	return ok.Sprint(r.String())
}

func blankLabel(s string, dim *color.Color) string {
	if s == "" {
		return dim.Sprint("N/A")
	}
	return s
}

func runAcculynx(file *os.File) error {
	jobs, err := acculynx.ReadCSV(file)
	if err != nil {
		return err
	}
	weeks := acculynx.Summarize(jobs)

	header := color.New(color.Bold, color.FgWhite)
	header.Printf("%-12s %8s %10s %9s %18s\n", "Week", "Leads", "Prospects", "Approved", "Approved Value")
	for _, w := range weeks {
		fmt.Printf("%-12s %8d %10d %9d %18s\n",
			w.Start.Format("2006-01-02"), w.Leads, w.Prospects, w.Approved, w.ApprovedValueLabel)
	}
	return nil
}
