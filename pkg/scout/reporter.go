// Package scout runs the activity-report pipeline end to end: normalize,
// classify gaps, aggregate, derive metrics, annotate daylight, geocode.
package scout

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/leadscout/scout/pkg/daylight"
	"github.com/leadscout/scout/pkg/geocode"
	"github.com/leadscout/scout/pkg/httpcache"
	"github.com/leadscout/scout/pkg/summary"
)

// Reporter turns raw activity rows into a finished report. One Reporter
// serves many runs; per-run state (notes, progress) never outlives Report.
type Reporter struct {
	logger       *slog.Logger
	httpClient   httpcache.HTTPClient
	cache        *httpcache.Cache
	geocoder     *geocode.Client
	daylight     *daylight.Client
	summarizer   *summary.Client
	latitude     float64
	longitude    float64
	hasCoords    bool
	callInterval time.Duration
	progress     ProgressFunc
	lastCall     time.Time
}

// NewWithLogger creates a Reporter with a custom logger.
func NewWithLogger(ctx context.Context, logger *slog.Logger, opts ...Option) *Reporter {
	optHolder := &OptionHolder{}
	for _, opt := range opts {
		opt(optHolder)
	}

	var cache *httpcache.Cache
	switch {
	case optHolder.noCache:
		logger.Info("response caching disabled")
	case optHolder.memoryCache:
		var err error
		cache, err = httpcache.NewMemory(12*time.Hour, logger)
		if err != nil {
			logger.Warn("memory cache initialization failed", "error", err)
		}
	default:
		cacheDir := optHolder.cacheDir
		if cacheDir == "" {
			if userCacheDir, err := os.UserCacheDir(); err == nil {
				cacheDir = filepath.Join(userCacheDir, "scout")
			} else {
				logger.Debug("could not determine user cache directory", "error", err)
			}
		}
		if cacheDir != "" {
			var err error
			// Geocodes are stable and sunsets repeat yearly; a long TTL is safe.
			cache, err = httpcache.New(ctx, cacheDir, 30*24*time.Hour, logger)
			if err != nil {
				logger.Warn("cache initialization failed", "error", err, "cache_dir", cacheDir)
				cache = nil
			}
		}
	}

	httpClient := optHolder.httpClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}
	cached := httpcache.NewCachedClient(cache, httpClient, logger)

	callInterval := optHolder.callInterval
	if callInterval == 0 {
		callInterval = 250 * time.Millisecond
	}

	r := &Reporter{
		logger:       logger,
		httpClient:   cached,
		cache:        cache,
		daylight:     daylight.NewClient(cached, logger),
		latitude:     optHolder.latitude,
		longitude:    optHolder.longitude,
		hasCoords:    optHolder.hasCoords,
		callInterval: callInterval,
		progress:     optHolder.progress,
	}
	if optHolder.mapsAPIKey != "" {
		r.geocoder = geocode.NewClient(optHolder.mapsAPIKey, cached, logger)
	}
	if optHolder.geminiAPIKey != "" {
		r.summarizer = summary.NewClient(optHolder.geminiAPIKey, optHolder.geminiModel, logger)
	}
	return r
}

// Close flushes and releases the response cache.
func (r *Reporter) Close() error {
	if r.cache != nil {
		return r.cache.Close()
	}
	return nil
}

// throttle enforces the minimum interval between external calls. Cache
// hits pay it too; that keeps the policy trivially correct and the cost
// is one short sleep per distinct key.
func (r *Reporter) throttle() {
	if r.callInterval <= 0 {
		return
	}
	if wait := r.callInterval - time.Since(r.lastCall); wait > 0 {
		time.Sleep(wait)
	}
	r.lastCall = time.Now()
}

func (r *Reporter) reportProgress(stage string, done, total int) {
	if r.progress != nil {
		r.progress(stage, done, total)
	}
}
