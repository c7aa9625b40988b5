package parser

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/mmcdole/gofeed"

	"PortfolioMonitor/internal/domain"
	"PortfolioMonitor/internal/scanner"
)

const googleNewsBaseURL = "https://news.google.com"

// GoogleNewsScanner searches the Google News RSS endpoint.
type GoogleNewsScanner struct {
	client  *http.Client
	baseURL string
}

var _ scanner.Scanner = (*GoogleNewsScanner)(nil)

// NewGoogleNewsScanner wires an HTTP client; an empty baseURL targets news.google.com.
func NewGoogleNewsScanner(client *http.Client, baseURL string) *GoogleNewsScanner {
	if baseURL == "" {
		baseURL = googleNewsBaseURL
	}
	return &GoogleNewsScanner{client: defaultClient(client), baseURL: strings.TrimSuffix(baseURL, "/")}
}

// Name identifies the strategy inside the registry.
func (g *GoogleNewsScanner) Name() string {
	return "googlenews"
}

// Search returns feed items for the keyword published after req.Since.
func (g *GoogleNewsScanner) Search(ctx context.Context, req scanner.Request) ([]domain.Candidate, error) {
	if strings.TrimSpace(req.Keyword) == "" {
		return nil, fmt.Errorf("empty keyword")
	}

	var feed *gofeed.Feed
	err := get(ctx, g.client, g.searchURL(req.Keyword), "", func(body io.Reader) error {
		parsed, err := gofeed.NewParser().Parse(body)
		if err != nil {
			return fmt.Errorf("parse feed: %w", err)
		}
		feed = parsed
		return nil
	})
	if err != nil {
		return nil, err
	}

	results := make([]domain.Candidate, 0, len(feed.Items))
	for _, item := range feed.Items {
		if req.Limit > 0 && len(results) >= req.Limit {
			break
		}
		if item == nil || strings.TrimSpace(item.Title) == "" {
			continue
		}

		cand := domain.Candidate{
			Title:        strings.TrimSpace(item.Title),
			Snippet:      plainText(item.Description),
			Link:         strings.TrimSpace(item.Link),
			Source:       "Google News - " + publisher(item.Title),
			PublishedRaw: item.Published,
		}
		if item.PublishedParsed != nil {
			cand.PublishedAt = item.PublishedParsed.UTC()
			if !req.Since.IsZero() && cand.PublishedAt.Before(req.Since) {
				continue
			}
		}
		results = append(results, cand)
	}

	return results, nil
}

func (g *GoogleNewsScanner) searchURL(keyword string) string {
	q := url.Values{}
	q.Set("q", keyword)
	q.Set("hl", "en-US")
	q.Set("gl", "US")
	q.Set("ceid", "US:en")
	return g.baseURL + "/rss/search?" + q.Encode()
}

// publisher extracts the outlet from Google News titles shaped "Headline - Outlet".
func publisher(title string) string {
	idx := strings.LastIndex(title, " - ")
	if idx < 0 {
		return "Unknown"
	}
	name := strings.TrimSpace(title[idx+3:])
	if name == "" {
		return "Unknown"
	}
	return name
}
