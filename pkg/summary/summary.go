// Package summary generates an optional natural-language briefing of a
// day's field metrics using Gemini.
package summary

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/leadscout/scout/pkg/metrics"
)

const defaultModel = "gemini-2.5-flash-lite"

// Client wraps the Gemini API for report summarization.
type Client struct {
	apiKey string
	model  string
	logger *slog.Logger
}

// NewClient creates a summary client. The model falls back to a fast,
// cheap default when empty.
func NewClient(apiKey, model string, logger *slog.Logger) *Client {
	if model == "" {
		model = defaultModel
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{apiKey: apiKey, model: model, logger: logger}
}

// Brief produces a short plain-text coaching summary of the metric rows.
func (c *Client) Brief(ctx context.Context, rows []metrics.Row) (string, error) {
	if c.apiKey == "" {
		return "", errors.New("gemini API key not configured")
	}
	if len(rows) == 0 {
		return "", errors.New("no metric rows to summarize")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		Backend: genai.BackendGeminiAPI,
		APIKey:  c.apiKey,
	})
	if err != nil {
		return "", fmt.Errorf("failed to create genai client: %w", err)
	}

	contents := []*genai.Content{
		{
			Role:  "user",
			Parts: []*genai.Part{{Text: buildPrompt(rows)}},
		},
	}
	temperature := float32(0.2)
	config := &genai.GenerateContentConfig{
		Temperature:     &temperature,
		MaxOutputTokens: 800,
	}

	resp, err := c.generateWithRetry(ctx, client, contents, config)
	if err != nil {
		return "", err
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return "", errors.New("empty response from Gemini API")
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", errors.New("no content in Gemini response")
	}
	text := strings.TrimSpace(candidate.Content.Parts[0].Text)
	if text == "" {
		return "", errors.New("empty text in Gemini response")
	}
	return text, nil
}

func buildPrompt(rows []metrics.Row) string {
	var b strings.Builder
	b.WriteString("You are reviewing daily door-knocking performance for a storm-restoration sales team.\n")
	b.WriteString("Write a brief plain-text summary (under 150 words): call out the strongest and weakest rep-days,\n")
	b.WriteString("notable conversation or closing rates, and excessive removed idle time. No markdown.\n\n")
	for i := range rows {
		r := &rows[i]
		fmt.Fprintf(&b, "%s %s: pins=%d conversations=%d inspections=%d claims=%d",
			r.Rep, r.Day, r.TotalPins, r.Conversations, r.Inspections, r.ClaimsFiled)
		fmt.Fprintf(&b, " time_in_field=%s adj_time=%s", r.TimeInFieldLabel, r.AdjTimeInFieldLabel)
		if r.ConvoRate.Valid {
			fmt.Fprintf(&b, " convo_rate=%s", r.ConvoRate)
		}
		if r.ClosingRate.Valid {
			fmt.Fprintf(&b, " closing_rate=%s", r.ClosingRate)
		}
		if r.LongGapTime > 0 {
			fmt.Fprintf(&b, " removed_idle=%s", metrics.FormatHoursMinutes(r.LongGapTime))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// generateWithRetry retries transient API failures with backoff and jitter.
func (c *Client) generateWithRetry(ctx context.Context, client *genai.Client, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	const maxRetries = 3
	baseDelay := 200 * time.Millisecond
	jitter := 100 * time.Millisecond

	for attempt := 0; ; attempt++ {
		resp, err := client.Models.GenerateContent(ctx, c.model, contents, config)
		if err == nil {
			return resp, nil
		}
		if attempt == maxRetries {
			return nil, fmt.Errorf("gemini API call failed after %d attempts: %w", maxRetries+1, err)
		}
		if !isTransientError(err) {
			return nil, fmt.Errorf("non-transient gemini API error: %w", err)
		}

		delay := baseDelay*time.Duration(1<<uint(attempt)) + time.Duration(rand.Int64N(int64(jitter)))
		c.logger.Debug("retrying Gemini API call", "attempt", attempt+1,
			"delay_ms", delay.Milliseconds(), "error", err.Error())
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
}

func isTransientError(err error) bool {
	errStr := strings.ToLower(err.Error())
	for _, indicator := range []string{
		"rate limit", "quota", "timeout", "deadline", "unavailable",
		"internal server error", "502", "503", "504",
	} {
		if strings.Contains(errStr, indicator) {
			return true
		}
	}
	return false
}
