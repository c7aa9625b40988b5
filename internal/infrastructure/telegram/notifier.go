package telegram

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"PortfolioMonitor/internal/domain"
	"PortfolioMonitor/internal/infrastructure/notify"
	"PortfolioMonitor/internal/ports"
)

const (
	defaultAPIBase = "https://api.telegram.org"
	// Telegram rejects messages above 4096 characters.
	maxMessageLen = 4000
)

var markdownEscaper = strings.NewReplacer("_", "\\_", "*", "\\*", "`", "\\`", "[", "\\[")

// Notifier sends digests to a Telegram chat via bot API.
type Notifier struct {
	botToken string
	chatID   string
	apiBase  string
	client   *http.Client
}

var _ ports.Notifier = (*Notifier)(nil)

// NewNotifier registers bot token and chat identifier.
func NewNotifier(botToken, chatID string) *Notifier {
	return &Notifier{
		botToken: botToken,
		chatID:   chatID,
		apiBase:  defaultAPIBase,
		client:   &http.Client{Timeout: 5 * time.Second},
	}
}

// WithAPIBase points the notifier at another Bot API host.
func (n *Notifier) WithAPIBase(base string) *Notifier {
	n.apiBase = strings.TrimRight(base, "/")
	return n
}

// Channel implements ports.Notifier.
func (n *Notifier) Channel() string { return "telegram" }

// Notify renders the batch as Markdown and posts it, split over several messages when long.
func (n *Notifier) Notify(ctx context.Context, mentions []domain.Mention) error {
	if len(mentions) == 0 {
		return nil
	}
	for _, msg := range split(Digest(mentions), maxMessageLen) {
		if err := n.PublishDigest(ctx, msg); err != nil {
			return err
		}
	}
	return nil
}

// Digest formats mentions as a Telegram Markdown message.
func Digest(mentions []domain.Mention) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🚀 *Portfolio Alert*: %d new mentions\n", len(mentions))
	for _, g := range notify.GroupByEntity(mentions) {
		fmt.Fprintf(&b, "\n*📊 %s* (%d)\n", markdownEscaper.Replace(g.Entity), len(g.Mentions))
		for _, m := range g.Mentions {
			title := markdownEscaper.Replace(notify.Truncate(m.Title, 120))
			if m.Link != "" {
				fmt.Fprintf(&b, "• [%s](%s) %s\n", title, m.Link, notify.Emoji(m.Sentiment))
			} else {
				fmt.Fprintf(&b, "• %s %s\n", title, notify.Emoji(m.Sentiment))
			}
			if m.Source != "" {
				fmt.Fprintf(&b, "  _%s_\n", markdownEscaper.Replace(m.Source))
			}
		}
	}
	return b.String()
}

// PublishDigest posts a Markdown message to Telegram.
func (n *Notifier) PublishDigest(ctx context.Context, digest string) error {
	if n.botToken == "" || n.chatID == "" || n.client == nil {
		return fmt.Errorf("telegram notifier misconfigured")
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", n.apiBase, n.botToken)
	form := url.Values{}
	form.Set("chat_id", n.chatID)
	form.Set("text", digest)
	form.Set("parse_mode", "Markdown")
	form.Set("disable_web_page_preview", "true")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram error: %s", resp.Status)
	}

	return nil
}

// split cuts text on line boundaries into chunks of at most limit bytes.
func split(text string, limit int) []string {
	if len(text) <= limit {
		return []string{text}
	}
	var (
		chunks []string
		cur    strings.Builder
	)
	for _, line := range strings.SplitAfter(text, "\n") {
		if cur.Len()+len(line) > limit && cur.Len() > 0 {
			chunks = append(chunks, cur.String())
			cur.Reset()
		}
		cur.WriteString(line)
	}
	if cur.Len() > 0 {
		chunks = append(chunks, cur.String())
	}
	return chunks
}
