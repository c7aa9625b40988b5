// Package notify holds the console and Slack alert channels plus the digest helpers they share with Telegram.
package notify

import (
	"fmt"
	"unicode/utf8"

	"PortfolioMonitor/internal/domain"
)

// Group is the slice of a batch that belongs to one entity.
type Group struct {
	Entity   string
	Mentions []domain.Mention
}

// GroupByEntity splits mentions per entity, keeping first-seen order.
func GroupByEntity(mentions []domain.Mention) []Group {
	index := make(map[string]int)
	var groups []Group
	for _, m := range mentions {
		i, ok := index[m.Entity]
		if !ok {
			i = len(groups)
			index[m.Entity] = i
			groups = append(groups, Group{Entity: m.Entity})
		}
		groups[i].Mentions = append(groups[i].Mentions, m)
	}
	return groups
}

// Emoji renders the sentiment band of a score; unscored mentions are neutral.
func Emoji(score *float64) string {
	if score == nil {
		return "😐"
	}
	switch domain.SentimentLabel(*score) {
	case "positive":
		return "😊"
	case "negative":
		return "😟"
	default:
		return "😐"
	}
}

// Score formats a sentiment score for display.
func Score(score *float64) string {
	if score == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", *score)
}

// Truncate shortens s to at most n runes, ending with "..." when cut.
func Truncate(s string, n int) string {
	if n <= 3 || utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n-3]) + "..."
}
