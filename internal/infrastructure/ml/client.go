package ml

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"PortfolioMonitor/internal/ports"
	"PortfolioMonitor/internal/sentiment"
)

// Client talks to an external sentiment service: POST {endpoint}/sentiment {"text": ...} -> {"score": ...}.
type Client struct {
	endpoint string
	apiKey   string
	http     *http.Client
}

var _ ports.SentimentScorer = (*Client)(nil)

// NewClient creates a reusable HTTP client.
func NewClient(endpoint, apiKey string) *Client {
	return &Client{
		endpoint: strings.TrimSuffix(endpoint, "/"),
		apiKey:   apiKey,
		http:     &http.Client{Timeout: 15 * time.Second},
	}
}

// Score requests a polarity for text; the result is clamped to [-1,1].
func (c *Client) Score(ctx context.Context, text string) (float64, error) {
	if c.endpoint == "" {
		return 0, fmt.Errorf("sentiment service endpoint is not configured")
	}

	var resp struct {
		Score *float64 `json:"score"`
	}
	if err := c.post(ctx, "/sentiment", map[string]any{"text": text}, &resp); err != nil {
		return 0, err
	}
	if resp.Score == nil {
		return 0, fmt.Errorf("sentiment service returned no score")
	}

	return sentiment.Clamp(*resp.Score), nil
}

func (c *Client) post(ctx context.Context, path string, payload any, v any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		closeErr := resp.Body.Close()
		if closeErr != nil {
			return fmt.Errorf("unexpected status %s, close body: %v", resp.Status, closeErr)
		}
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		_ = resp.Body.Close()
		return fmt.Errorf("decode response: %w", err)
	}

	if err := resp.Body.Close(); err != nil {
		return fmt.Errorf("close response body: %w", err)
	}

	return nil
}
