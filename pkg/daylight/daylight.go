// Package daylight looks up sunset times via the sunrise-sunset.org API.
package daylight

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

// HTTPClient interface for making HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client queries api.sunrise-sunset.org. No API key is required; callers
// are expected to rate-limit and cache.
type Client struct {
	httpClient HTTPClient
	logger     *slog.Logger
}

// NewClient creates a sunset lookup client.
func NewClient(httpClient HTTPClient, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{httpClient: httpClient, logger: logger}
}

// Sunset returns the sunset instant for a calendar day ("2006-01-02") at
// the given coordinates. The API answers in UTC (formatted=0 gives RFC
// 3339); comparisons against local finish times work directly.
func (c *Client) Sunset(ctx context.Context, date string, lat, lng float64) (time.Time, error) {
	params := url.Values{}
	params.Set("lat", fmt.Sprintf("%f", lat))
	params.Set("lng", fmt.Sprintf("%f", lng))
	params.Set("date", date)
	params.Set("formatted", "0")
	apiURL := "https://api.sunrise-sunset.org/json?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, http.NoBody)
	if err != nil {
		return time.Time{}, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return time.Time{}, err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.Debug("failed to close response body", "error", err)
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return time.Time{}, err
	}

	var result struct {
		Results struct {
			Sunrise string `json:"sunrise"`
			Sunset  string `json:"sunset"`
		} `json:"results"`
		Status string `json:"status"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		c.logger.Debug("sunset JSON parse error", "date", date, "error", err)
		return time.Time{}, fmt.Errorf("failed to parse sunset response: %w", err)
	}
	if result.Status != "OK" {
		return time.Time{}, fmt.Errorf("sunset lookup failed for %s: %s", date, result.Status)
	}

	sunset, err := time.Parse(time.RFC3339, result.Results.Sunset)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse sunset instant %q: %w", result.Results.Sunset, err)
	}
	return sunset, nil
}
