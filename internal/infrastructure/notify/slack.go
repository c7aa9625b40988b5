package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"PortfolioMonitor/internal/domain"
	"PortfolioMonitor/internal/ports"
)

const (
	slackPerEntity  = 3
	slackTitleLimit = 80
)

// Slack posts Block Kit messages to an incoming webhook.
type Slack struct {
	webhookURL string
	client     *http.Client
	now        func() time.Time
}

var _ ports.Notifier = (*Slack)(nil)

// NewSlack builds the webhook notifier; a nil client gets a 10s timeout.
func NewSlack(webhookURL string, client *http.Client) *Slack {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Slack{webhookURL: webhookURL, client: client, now: time.Now}
}

// Channel implements ports.Notifier.
func (s *Slack) Channel() string { return "slack" }

type slackText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type slackBlock struct {
	Type     string      `json:"type"`
	Text     *slackText  `json:"text,omitempty"`
	Elements []slackText `json:"elements,omitempty"`
}

type slackPayload struct {
	Text   string       `json:"text"`
	Blocks []slackBlock `json:"blocks"`
}

// Notify sends one message for the whole batch.
func (s *Slack) Notify(ctx context.Context, mentions []domain.Mention) error {
	if s.webhookURL == "" {
		return fmt.Errorf("slack notifier misconfigured")
	}
	if len(mentions) == 0 {
		return nil
	}

	body, err := json.Marshal(s.payload(mentions))
	if err != nil {
		return fmt.Errorf("encode slack payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("slack error: %s: %s", resp.Status, bytes.TrimSpace(snippet))
	}
	return nil
}

func (s *Slack) payload(mentions []domain.Mention) slackPayload {
	groups := GroupByEntity(mentions)
	section := func(text string) slackBlock {
		return slackBlock{Type: "section", Text: &slackText{Type: "mrkdwn", Text: text}}
	}

	blocks := []slackBlock{
		{Type: "header", Text: &slackText{Type: "plain_text", Text: "🚀 Portfolio Alert"}},
		section(fmt.Sprintf("Found *%d* new mentions across *%d* companies", len(mentions), len(groups))),
		{Type: "divider"},
	}

	for _, g := range groups {
		blocks = append(blocks, section(fmt.Sprintf("*📊 %s* (%d mentions)", g.Entity, len(g.Mentions))))
		for i, m := range g.Mentions {
			if i == slackPerEntity {
				blocks = append(blocks, section(fmt.Sprintf("  _... and %d more mentions_", len(g.Mentions)-slackPerEntity)))
				break
			}
			line := fmt.Sprintf("• *%s* %s", Truncate(m.Title, slackTitleLimit), Emoji(m.Sentiment))
			if m.Link != "" {
				line += fmt.Sprintf("\n  <%s|Read more>", m.Link)
			}
			line += fmt.Sprintf("\n  _%s_", m.Source)
			blocks = append(blocks, section(line))
		}
		blocks = append(blocks, slackBlock{Type: "divider"})
	}

	blocks = append(blocks, slackBlock{
		Type:     "context",
		Elements: []slackText{{Type: "mrkdwn", Text: fmt.Sprintf("🕐 %s | Portfolio Monitor", s.now().Format(time.DateTime))}},
	})

	return slackPayload{
		Text:   fmt.Sprintf("🚀 Portfolio Alert - %d new mentions found!", len(mentions)),
		Blocks: blocks,
	}
}
