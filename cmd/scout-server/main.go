// Package main implements the scout web server: CSV upload in, metrics
// table, bar-chart dashboard and pin map out.
package main

import (
	"context"
	"embed"
	"flag"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/leadscout/scout/pkg/acculynx"
	"github.com/leadscout/scout/pkg/config"
	"github.com/leadscout/scout/pkg/pin"
	"github.com/leadscout/scout/pkg/scout"
)

//go:embed templates/*.html
var templateFiles embed.FS

var (
	configPath = flag.String("config", "", "Path to YAML config file (or set SCOUT_CONFIG)")
	version    = flag.Bool("version", false, "Show version")
)

const maxUploadBytes = 32 << 20

type rateLimiter struct {
	requests map[string][]time.Time
	perMin   int
	mu       sync.Mutex
}

func newRateLimiter(perMin int) *rateLimiter {
	return &rateLimiter{requests: make(map[string][]time.Time), perMin: perMin}
}

func (rl *rateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-time.Minute)

	var valid []time.Time
	for _, t := range rl.requests[ip] {
		if t.After(cutoff) {
			valid = append(valid, t)
		}
	}
	if len(valid) >= rl.perMin {
		rl.requests[ip] = valid
		return false
	}
	rl.requests[ip] = append(valid, now)
	return true
}

type server struct {
	reporter  *scout.Reporter
	limiter   *rateLimiter
	logger    *slog.Logger
	templates *template.Template
	metrics   *serverMetrics
}

func main() {
	flag.Parse()

	if *version {
		fmt.Println("scout-server v1.3.0")
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	level := slog.LevelInfo
	switch strings.ToLower(cfg.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	logger.Info("server configuration",
		"addr", cfg.Addr,
		"cache_dir", cfg.CacheDir,
		"coords", fmt.Sprintf("%.4f,%.4f", cfg.Latitude, cfg.Longitude),
		"has_maps_key", cfg.MapsAPIKey != "",
		"has_gemini_key", cfg.GeminiAPIKey != "")

	reporterOpts := []scout.Option{
		scout.WithMapsAPIKey(cfg.MapsAPIKey),
		scout.WithGeminiAPIKey(cfg.GeminiAPIKey),
		scout.WithGeminiModel(cfg.GeminiModel),
		scout.WithCoordinates(cfg.Latitude, cfg.Longitude),
		scout.WithCallInterval(time.Duration(cfg.CallIntervalMS) * time.Millisecond),
	}
	if cfg.CacheDir != "" {
		reporterOpts = append(reporterOpts, scout.WithCacheDir(cfg.CacheDir))
	} else {
		reporterOpts = append(reporterOpts, scout.WithMemoryCache())
	}

	reporter := scout.NewWithLogger(context.Background(), logger, reporterOpts...)
	defer func() {
		if err := reporter.Close(); err != nil {
			logger.Error("failed to close reporter", "error", err)
		}
	}()

	templates, err := template.ParseFS(templateFiles, "templates/*.html")
	if err != nil {
		logger.Error("failed to parse templates", "error", err)
		os.Exit(1)
	}

	srv := &server{
		reporter:  reporter,
		limiter:   newRateLimiter(cfg.RateLimitPerMinute),
		logger:    logger,
		templates: templates,
		metrics:   newServerMetrics(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /", srv.handleHome)
	mux.HandleFunc("POST /report", srv.handleReport)
	mux.HandleFunc("POST /acculynx", srv.handleAcculynx)
	mux.HandleFunc("GET /healthz", srv.handleHealthz)
	mux.Handle("GET /metrics", srv.metrics.handler())

	httpSrv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv.wrap(mux),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      5 * time.Minute, // a run geocoding many addresses is slow
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		logger.Info("server starting", "addr", cfg.Addr)
		if err := httpSrv.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(ctx); err != nil {
		logger.Error("shutdown failed", "error", err)
	}
	logger.Info("server stopped")
}

func (s *server) wrap(handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.NewString()
		w.Header().Set("X-Request-ID", requestID)

		defer func() {
			if err := recover(); err != nil {
				s.logger.Error("request handler crashed",
					"error", err, "path", r.URL.Path, "method", r.Method, "request_id", requestID)
				http.Error(w, "Internal server error", http.StatusInternalServerError)
			}
		}()

		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Content-Security-Policy",
			"default-src 'self'; "+
				"script-src 'self' 'unsafe-inline' https://unpkg.com https://cdn.jsdelivr.net; "+
				"style-src 'self' 'unsafe-inline' https://unpkg.com; "+
				"img-src 'self' data: https:; "+
				"connect-src 'self'")

		handler.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	return strings.Split(r.RemoteAddr, ":")[0]
}

func (s *server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "ok")
}

func (s *server) handleHome(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	s.render(w, "home.html", nil)
}

func (s *server) handleReport(w http.ResponseWriter, r *http.Request) {
	if !s.limiter.allow(clientIP(r)) {
		http.Error(w, "Too many uploads, slow down", http.StatusTooManyRequests)
		return
	}

	file, err := s.uploadedFile(w, r)
	if err != nil {
		return
	}
	defer file.Close() //nolint:errcheck // read-only upload

	rows, warnings, err := pin.ReadCSV(file)
	if err != nil {
		s.metrics.uploadErrors.Inc()
		http.Error(w, "Unusable activity export: "+err.Error(), http.StatusUnprocessableEntity)
		return
	}

	start := time.Now()
	report, err := s.reporter.Report(r.Context(), rows, warnings)
	if err != nil {
		s.metrics.uploadErrors.Inc()
		http.Error(w, "Report failed: "+err.Error(), http.StatusUnprocessableEntity)
		return
	}
	s.metrics.runsTotal.Inc()
	s.metrics.rowsTotal.Add(float64(len(report.Rows)))
	s.metrics.runDuration.Observe(time.Since(start).Seconds())
	s.logger.Info("report rendered", "run_id", report.RunID,
		"rep_days", len(report.Rows), "points", len(report.Points),
		"duration", time.Since(start))

	s.render(w, "report.html", newReportView(report))
}

func (s *server) handleAcculynx(w http.ResponseWriter, r *http.Request) {
	if !s.limiter.allow(clientIP(r)) {
		http.Error(w, "Too many uploads, slow down", http.StatusTooManyRequests)
		return
	}

	file, err := s.uploadedFile(w, r)
	if err != nil {
		return
	}
	defer file.Close() //nolint:errcheck // read-only upload

	jobs, err := acculynx.ReadCSV(file)
	if err != nil {
		s.metrics.uploadErrors.Inc()
		http.Error(w, "Unusable lead export: "+err.Error(), http.StatusUnprocessableEntity)
		return
	}
	weeks := acculynx.Summarize(jobs)
	s.metrics.runsTotal.Inc()

	s.render(w, "acculynx.html", newAcculynxView(weeks))
}

// uploadedFile extracts the "file" part of a multipart upload, writing the
// HTTP error itself when the upload is unusable.
func (s *server) uploadedFile(w http.ResponseWriter, r *http.Request) (f interface {
	Read([]byte) (int, error)
	Close() error
}, err error,
) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		s.metrics.uploadErrors.Inc()
		http.Error(w, "Upload too large or malformed", http.StatusBadRequest)
		return nil, err
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		s.metrics.uploadErrors.Inc()
		http.Error(w, "Missing file upload", http.StatusBadRequest)
		return nil, err
	}
	return file, nil
}

func (s *server) render(w http.ResponseWriter, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		s.logger.Error("template render failed", "template", name, "error", err)
	}
}
