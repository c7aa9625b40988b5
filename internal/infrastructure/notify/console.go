package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"

	"PortfolioMonitor/internal/domain"
	"PortfolioMonitor/internal/ports"
)

const consoleContentLimit = 150

// Console prints a human readable alert block.
type Console struct {
	mu     sync.Mutex
	out    io.Writer
	now    func() time.Time
	header *color.Color
	entity *color.Color
	dim    *color.Color
}

var _ ports.Notifier = (*Console)(nil)

// NewConsole writes to out (stdout when nil). Colors are dropped when noColor is set.
func NewConsole(out io.Writer, noColor bool) *Console {
	if out == nil {
		out = os.Stdout
	}
	c := &Console{
		out:    out,
		now:    time.Now,
		header: color.New(color.FgCyan, color.Bold),
		entity: color.New(color.FgGreen, color.Bold),
		dim:    color.New(color.Faint),
	}
	if noColor {
		c.header.DisableColor()
		c.entity.DisableColor()
		c.dim.DisableColor()
	}
	return c
}

// Channel implements ports.Notifier.
func (c *Console) Channel() string { return "console" }

// Notify prints mentions grouped by entity.
func (c *Console) Notify(_ context.Context, mentions []domain.Mention) error {
	if len(mentions) == 0 {
		return nil
	}

	var b strings.Builder
	rule := strings.Repeat("=", 80)
	b.WriteString("\n" + rule + "\n")
	b.WriteString(c.header.Sprint("🚀 PORTFOLIO ALERT") + "\n")
	b.WriteString(rule + "\n")
	fmt.Fprintf(&b, "📅 Generated: %s\n", c.now().Format(time.DateTime))
	fmt.Fprintf(&b, "📊 Total New Mentions: %d\n", len(mentions))
	b.WriteString(rule + "\n")

	for _, g := range GroupByEntity(mentions) {
		fmt.Fprintf(&b, "\n%s\n", c.entity.Sprintf("📈 %s (%d mentions)", strings.ToUpper(g.Entity), len(g.Mentions)))
		b.WriteString(strings.Repeat("-", 50) + "\n")
		for i, m := range g.Mentions {
			fmt.Fprintf(&b, "\n%d. %s %s\n", i+1, m.Title, Emoji(m.Sentiment))
			if m.Content != "" {
				fmt.Fprintf(&b, "   📝 %s\n", Truncate(m.Content, consoleContentLimit))
			}
			if m.Link != "" {
				fmt.Fprintf(&b, "   🔗 %s\n", m.Link)
			}
			fmt.Fprintf(&b, "   📰 Source: %s\n", m.Source)
			fmt.Fprintf(&b, "   📊 Sentiment: %s\n", Score(m.Sentiment))
			if !m.PublishedAt.IsZero() {
				b.WriteString(c.dim.Sprintf("   📅 Published: %s", m.PublishedAt.Format(time.DateTime)) + "\n")
			}
		}
	}
	b.WriteString("\n" + rule + "\n")

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := io.WriteString(c.out, b.String()); err != nil {
		return fmt.Errorf("write console alert: %w", err)
	}
	return nil
}
