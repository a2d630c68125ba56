package scout

import (
	"time"

	"github.com/leadscout/scout/pkg/httpcache"
)

// Option configures a Reporter.
type Option func(*OptionHolder)

// OptionHolder holds configuration options.
type OptionHolder struct {
	mapsAPIKey   string
	geminiAPIKey string
	geminiModel  string
	cacheDir     string
	noCache      bool
	memoryCache  bool
	latitude     float64
	longitude    float64
	hasCoords    bool
	callInterval time.Duration
	progress     ProgressFunc
	httpClient   httpcache.HTTPClient
}

// ProgressFunc receives incremental progress during external lookups.
type ProgressFunc func(stage string, done, total int)

// WithMapsAPIKey sets the Google Maps API key used for geocoding pins.
func WithMapsAPIKey(key string) Option {
	return func(o *OptionHolder) {
		o.mapsAPIKey = key
	}
}

// WithGeminiAPIKey sets the Gemini API key for AI report summaries.
func WithGeminiAPIKey(key string) Option {
	return func(o *OptionHolder) {
		o.geminiAPIKey = key
	}
}

// WithGeminiModel sets the Gemini model to use for summaries.
func WithGeminiModel(model string) Option {
	return func(o *OptionHolder) {
		o.geminiModel = model
	}
}

// WithCoordinates fixes the deployment's coordinates for sunset lookups.
func WithCoordinates(lat, lng float64) Option {
	return func(o *OptionHolder) {
		o.latitude = lat
		o.longitude = lng
		o.hasCoords = true
	}
}

// WithCacheDir sets the cache directory for collaborator responses.
func WithCacheDir(dir string) Option {
	return func(o *OptionHolder) {
		o.cacheDir = dir
	}
}

// WithNoCache disables response caching entirely.
func WithNoCache() Option {
	return func(o *OptionHolder) {
		o.noCache = true
	}
}

// WithMemoryCache uses a memory-only cache (for the web server).
func WithMemoryCache() Option {
	return func(o *OptionHolder) {
		o.memoryCache = true
	}
}

// WithCallInterval sets the minimum delay between external service calls.
func WithCallInterval(d time.Duration) Option {
	return func(o *OptionHolder) {
		o.callInterval = d
	}
}

// WithProgress registers a callback for incremental lookup progress.
func WithProgress(fn ProgressFunc) Option {
	return func(o *OptionHolder) {
		o.progress = fn
	}
}

// WithHTTPClient overrides the HTTP client used for collaborator calls.
func WithHTTPClient(client httpcache.HTTPClient) Option {
	return func(o *OptionHolder) {
		o.httpClient = client
	}
}
