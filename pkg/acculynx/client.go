package acculynx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/codeGROOVE-dev/retry"
)

const baseURL = "https://api.acculynx.com/api/v2"

// HTTPClient interface for making HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client calls the AccuLynx REST API. Each morning a scheduled report run
// becomes available; LatestReportRun fetches its metadata so the export
// can be downloaded without waiting for the email copy.
type Client struct {
	apiKey     string
	httpClient HTTPClient
	logger     *slog.Logger
}

// NewClient creates an AccuLynx API client.
func NewClient(apiKey string, httpClient HTTPClient, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{apiKey: apiKey, httpClient: httpClient, logger: logger}
}

// ReportRun describes one run of a scheduled report.
type ReportRun struct {
	ID          string    `json:"id"`
	Status      string    `json:"status"`
	DownloadURL string    `json:"downloadUrl"`
	CreatedDate time.Time `json:"createdDate"`
}

// LatestReportRun fetches the most recent run of a scheduled report.
func (c *Client) LatestReportRun(ctx context.Context, reportID string) (*ReportRun, error) {
	if c.apiKey == "" {
		return nil, errors.New("acculynx API key not configured")
	}
	url := fmt.Sprintf("%s/reports/scheduled-reports/%s/runs/latest", baseURL, reportID)

	var run ReportRun
	err := retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
			if err != nil {
				return retry.Unrecoverable(err)
			}
			req.Header.Set("Accept", "application/json")
			req.Header.Set("Authorization", "Bearer "+c.apiKey)

			resp, err := c.httpClient.Do(req)
			if err != nil {
				return err
			}
			defer func() {
				if err := resp.Body.Close(); err != nil {
					c.logger.Debug("failed to close response body", "error", err)
				}
			}()

			switch {
			case resp.StatusCode == http.StatusOK:
			case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
				return fmt.Errorf("acculynx API returned %d", resp.StatusCode)
			default:
				body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
				return retry.Unrecoverable(fmt.Errorf("acculynx API returned %d: %s", resp.StatusCode, body))
			}

			if err := json.NewDecoder(resp.Body).Decode(&run); err != nil {
				return retry.Unrecoverable(fmt.Errorf("failed to parse report run: %w", err))
			}
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(3),
		retry.Delay(200*time.Millisecond),
		retry.MaxDelay(2*time.Second),
		retry.DelayType(retry.CombineDelay(retry.BackOffDelay, retry.RandomDelay)),
		retry.MaxJitter(100*time.Millisecond),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			c.logger.Debug("retrying acculynx API call", "attempt", n+1, "error", err)
		}),
	)
	if err != nil {
		return nil, err
	}
	return &run, nil
}
