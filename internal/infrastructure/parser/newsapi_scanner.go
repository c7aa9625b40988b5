package parser

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"PortfolioMonitor/internal/domain"
	"PortfolioMonitor/internal/scanner"
)

const newsAPIBaseURL = "https://newsapi.org"

// NewsAPIScanner queries the NewsAPI "everything" endpoint.
type NewsAPIScanner struct {
	client  *http.Client
	baseURL string
	apiKey  string
}

var _ scanner.Scanner = (*NewsAPIScanner)(nil)

// NewNewsAPIScanner wires an HTTP client. Without an API key every search is skipped.
func NewNewsAPIScanner(client *http.Client, baseURL, apiKey string) *NewsAPIScanner {
	if baseURL == "" {
		baseURL = newsAPIBaseURL
	}
	return &NewsAPIScanner{
		client:  defaultClient(client),
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
	}
}

// Name identifies the strategy inside the registry.
func (n *NewsAPIScanner) Name() string {
	return "newsapi"
}

type newsAPIResponse struct {
	Status   string `json:"status"`
	Message  string `json:"message"`
	Articles []struct {
		Source struct {
			Name string `json:"name"`
		} `json:"source"`
		Title       string `json:"title"`
		Description string `json:"description"`
		URL         string `json:"url"`
		PublishedAt string `json:"publishedAt"`
	} `json:"articles"`
}

// Search returns articles for the quoted keyword since req.Since.
func (n *NewsAPIScanner) Search(ctx context.Context, req scanner.Request) ([]domain.Candidate, error) {
	if n.apiKey == "" {
		return nil, nil
	}
	if strings.TrimSpace(req.Keyword) == "" {
		return nil, fmt.Errorf("empty keyword")
	}

	q := url.Values{}
	q.Set("q", strconv.Quote(req.Keyword))
	q.Set("sortBy", "publishedAt")
	q.Set("language", "en")
	q.Set("apiKey", n.apiKey)
	if !req.Since.IsZero() {
		q.Set("from", req.Since.UTC().Format("2006-01-02"))
	}
	if req.Limit > 0 {
		q.Set("pageSize", strconv.Itoa(req.Limit))
	}

	var payload newsAPIResponse
	err := get(ctx, n.client, n.baseURL+"/v2/everything?"+q.Encode(), "", func(body io.Reader) error {
		if err := json.NewDecoder(body).Decode(&payload); err != nil {
			return fmt.Errorf("decode newsapi: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if payload.Status != "" && payload.Status != "ok" {
		return nil, fmt.Errorf("newsapi status %s: %s", payload.Status, payload.Message)
	}

	results := make([]domain.Candidate, 0, len(payload.Articles))
	for _, art := range payload.Articles {
		if req.Limit > 0 && len(results) >= req.Limit {
			break
		}
		if strings.TrimSpace(art.Title) == "" {
			continue
		}
		name := art.Source.Name
		if name == "" {
			name = "Unknown"
		}
		results = append(results, domain.Candidate{
			Title:        art.Title,
			Snippet:      art.Description,
			Link:         art.URL,
			Source:       "NewsAPI - " + name,
			PublishedRaw: art.PublishedAt,
			PublishedAt:  domain.ParsePublished(art.PublishedAt),
		})
	}

	return results, nil
}
