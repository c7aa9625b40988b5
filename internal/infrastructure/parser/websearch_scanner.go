package parser

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"PortfolioMonitor/internal/domain"
	"PortfolioMonitor/internal/scanner"
)

const webSearchBaseURL = "https://www.google.com"

// WebSearchScanner scrapes a search results page restricted to one site (LinkedIn by default).
type WebSearchScanner struct {
	client  *http.Client
	baseURL string
	site    string
	label   string
}

var _ scanner.Scanner = (*WebSearchScanner)(nil)

// NewWebSearchScanner wires an HTTP client. site defaults to linkedin.com, label to "LinkedIn".
func NewWebSearchScanner(client *http.Client, baseURL, site, label string) *WebSearchScanner {
	if baseURL == "" {
		baseURL = webSearchBaseURL
	}
	if site == "" {
		site = "linkedin.com"
	}
	if label == "" {
		label = "LinkedIn"
	}
	return &WebSearchScanner{
		client:  defaultClient(client),
		baseURL: strings.TrimSuffix(baseURL, "/"),
		site:    site,
		label:   label,
	}
}

// Name identifies the strategy inside the registry.
func (w *WebSearchScanner) Name() string {
	return "websearch"
}

// Search runs `site:<site> "<keyword>"` and keeps results that link into the site.
func (w *WebSearchScanner) Search(ctx context.Context, req scanner.Request) ([]domain.Candidate, error) {
	if strings.TrimSpace(req.Keyword) == "" {
		return nil, fmt.Errorf("empty keyword")
	}

	q := url.Values{}
	q.Set("q", fmt.Sprintf("site:%s %s", w.site, strconv.Quote(req.Keyword)))
	q.Set("num", "10")
	q.Set("tbm", "nws")

	var doc *goquery.Document
	err := get(ctx, w.client, w.baseURL+"/search?"+q.Encode(), "", func(body io.Reader) error {
		parsed, err := goquery.NewDocumentFromReader(body)
		if err != nil {
			return fmt.Errorf("parse document: %w", err)
		}
		doc = parsed
		return nil
	})
	if err != nil {
		return nil, err
	}

	return w.extract(doc, req.Limit), nil
}

func (w *WebSearchScanner) extract(doc *goquery.Document, limit int) []domain.Candidate {
	var results []domain.Candidate

	doc.Find("div.g").EachWithBreak(func(_ int, block *goquery.Selection) bool {
		if limit > 0 && len(results) >= limit {
			return false
		}

		title := strings.TrimSpace(block.Find("h3").First().Text())
		if title == "" {
			return true
		}
		href, ok := block.Find("a[href]").First().Attr("href")
		if !ok || !strings.Contains(href, w.site) {
			return true
		}

		snippet := block.Find("span.st").First().Text()
		if strings.TrimSpace(snippet) == "" {
			snippet = block.Find("div.VwiC3b").First().Text()
		}

		cite := strings.TrimSpace(block.Find("cite").First().Text())
		if cite == "" {
			cite = w.label
		}

		results = append(results, domain.Candidate{
			Title:   title,
			Snippet: strings.Join(strings.Fields(snippet), " "),
			Link:    href,
			Source:  fmt.Sprintf("%s - %s", w.label, cite),
		})
		return true
	})

	return results
}
