// Package httpcache caches collaborator responses so repeated addresses
// and dates cost one network call, within and across runs.
package httpcache

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/maypok86/otter/v2"
)

// Entry is one cached response body.
type Entry struct {
	ExpiresAt time.Time `json:"expires_at"`
	Data      []byte    `json:"data"`
}

// Cache is an otter-backed response cache, optionally persisted to disk as
// a gob snapshot. The CLI uses the disk-backed form; the server keeps it
// memory-only.
type Cache struct {
	cache      otter.Cache[string, Entry]
	logger     *slog.Logger
	saveCancel context.CancelFunc
	dir        string
	saveWg     sync.WaitGroup
	ttl        time.Duration
	mu         sync.Mutex
}

// New creates a disk-backed cache under dir.
func New(ctx context.Context, dir string, ttl time.Duration, logger *slog.Logger) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}

	c := newCache(dir, ttl, logger)
	if err := c.loadFromDisk(); err != nil {
		logger.Warn("failed to load cache from disk", "error", err)
	}
	logger.Info("cache initialized", "dir", dir, "entries_loaded", c.cache.EstimatedSize())

	c.startPeriodicSave(ctx)
	return c, nil
}

// NewMemory creates a memory-only cache.
func NewMemory(ttl time.Duration, logger *slog.Logger) (*Cache, error) {
	logger.Info("memory-only cache initialized", "ttl", ttl)
	return newCache("", ttl, logger), nil
}

func newCache(dir string, ttl time.Duration, logger *slog.Logger) *Cache {
	cache := otter.Must(&otter.Options[string, Entry]{
		MaximumSize:      50_000,
		InitialCapacity:  1_000,
		ExpiryCalculator: otter.ExpiryWriting[string, Entry](ttl),
	})
	return &Cache{
		cache:  *cache,
		dir:    dir,
		ttl:    ttl,
		logger: logger,
	}
}

func cacheKey(url string) string {
	h := sha256.New()
	h.Write([]byte(url))
	return hex.EncodeToString(h.Sum(nil))
}

// Get returns the cached body for a URL, if present and fresh.
func (c *Cache) Get(url string) ([]byte, bool) {
	entry, found := c.cache.GetIfPresent(cacheKey(url))
	if !found {
		c.logger.Debug("cache miss", "url", url, "reason", "not_found")
		return nil, false
	}
	// Otter expires on its own; double-check for entries loaded from disk.
	if time.Now().After(entry.ExpiresAt) {
		c.logger.Debug("cache miss", "url", url, "reason", "expired", "expired_at", entry.ExpiresAt)
		c.cache.Invalidate(cacheKey(url))
		return nil, false
	}
	return entry.Data, true
}

// Set stores a response body for a URL.
func (c *Cache) Set(url string, data []byte) {
	c.cache.Set(cacheKey(url), Entry{
		Data:      data,
		ExpiresAt: time.Now().Add(c.ttl),
	})
	c.logger.Debug("cache set", "url", url, "size", len(data))
}

func (c *Cache) snapshotPath() string {
	return filepath.Join(c.dir, "scout-cache.gob")
}

func (c *Cache) loadFromDisk() error {
	file, err := os.Open(c.snapshotPath())
	if err != nil {
		if os.IsNotExist(err) {
			c.logger.Info("no existing cache file found", "path", c.snapshotPath())
			return nil
		}
		return fmt.Errorf("opening cache file: %w", err)
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			c.logger.Debug("failed to close cache file", "error", closeErr)
		}
	}()

	var entries map[string]Entry
	if err := gob.NewDecoder(file).Decode(&entries); err != nil {
		return fmt.Errorf("decoding cache file: %w", err)
	}

	now := time.Now()
	valid := 0
	for key, entry := range entries {
		if now.Before(entry.ExpiresAt) {
			c.cache.Set(key, entry)
			valid++
		}
	}
	c.logger.Info("loaded cache from disk", "path", c.snapshotPath(),
		"total_entries", len(entries), "valid_entries", valid)
	return nil
}

func (c *Cache) saveToDisk() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	tempPath := c.snapshotPath() + ".tmp"
	file, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("creating temp cache file: %w", err)
	}
	defer func() {
		if removeErr := os.Remove(tempPath); removeErr != nil && !os.IsNotExist(removeErr) {
			c.logger.Debug("failed to remove temp file", "error", removeErr)
		}
	}()

	entries := make(map[string]Entry)
	now := time.Now()
	c.cache.All()(func(key string, entry Entry) bool {
		if now.Before(entry.ExpiresAt) {
			entries[key] = entry
		}
		return true
	})

	if err := gob.NewEncoder(file).Encode(entries); err != nil {
		return fmt.Errorf("encoding cache to file: %w", err)
	}
	if err := file.Sync(); err != nil {
		return fmt.Errorf("syncing cache file: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("closing cache file: %w", err)
	}
	if err := os.Rename(tempPath, c.snapshotPath()); err != nil {
		return fmt.Errorf("replacing cache file: %w", err)
	}

	c.logger.Info("cache saved to disk", "entries", len(entries), "path", c.snapshotPath())
	return nil
}

func (c *Cache) startPeriodicSave(ctx context.Context) {
	saveCtx, cancel := context.WithCancel(ctx)
	c.saveCancel = cancel

	c.saveWg.Add(1)
	go func() {
		defer c.saveWg.Done()
		ticker := time.NewTicker(15 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-saveCtx.Done():
				return
			case <-ticker.C:
				if err := c.saveToDisk(); err != nil {
					c.logger.Error("periodic cache save failed", "error", err)
				}
			}
		}
	}()
}

// Close stops the periodic save and flushes a final snapshot.
func (c *Cache) Close() error {
	if c.saveCancel != nil {
		c.saveCancel()
	}
	c.saveWg.Wait()

	if c.dir == "" {
		return nil
	}
	if err := c.saveToDisk(); err != nil {
		c.logger.Error("final cache save failed", "error", err)
		return err
	}
	c.logger.Info("cache closed and saved to disk")
	return nil
}

// HTTPClient interface for making HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// CachedClient wraps an HTTP client, serving successful GETs from cache.
// Both collaborators (geocoding, sunset) are GET-only, keyed fully by URL.
type CachedClient struct {
	cache      *Cache
	httpClient HTTPClient
	logger     *slog.Logger
}

// NewCachedClient creates a caching HTTP client. A nil cache falls through
// to the underlying client.
func NewCachedClient(cache *Cache, httpClient HTTPClient, logger *slog.Logger) *CachedClient {
	return &CachedClient{cache: cache, httpClient: httpClient, logger: logger}
}

// Do performs an HTTP request, consulting the cache for GETs.
func (c *CachedClient) Do(req *http.Request) (*http.Response, error) {
	if c.cache == nil || req.Method != http.MethodGet {
		return c.httpClient.Do(req)
	}

	url := req.URL.String()
	if data, found := c.cache.Get(url); found {
		resp := &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(bytes.NewReader(data)),
			Header:     make(http.Header),
			Request:    req,
		}
		resp.Header.Set("X-From-Cache", "true")
		return resp, nil
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusOK {
		body, err := io.ReadAll(resp.Body)
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.logger.Debug("failed to close response body", "error", closeErr)
		}
		if err != nil {
			return nil, err
		}
		c.cache.Set(url, body)
		resp.Body = io.NopCloser(bytes.NewReader(body))
	}
	return resp, nil
}
