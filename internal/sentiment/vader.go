package sentiment

import (
	"context"
	"regexp"
	"strings"
	"sync"

	"github.com/jonreiter/govader"

	"PortfolioMonitor/internal/ports"
)

var (
	markdownLink = regexp.MustCompile(`\[(.*?)\]\((https?://[^\s)]+)\)`)
	bareURL      = regexp.MustCompile(`https?://\S+|www\.\S+`)
)

// VaderScorer scores text with the VADER lexicon; the compound score is already in [-1,1].
type VaderScorer struct {
	once     sync.Once
	analyzer *govader.SentimentIntensityAnalyzer
}

var _ ports.SentimentScorer = (*VaderScorer)(nil)

// NewVaderScorer builds a scorer; the lexicon loads lazily on first use.
func NewVaderScorer() *VaderScorer {
	return &VaderScorer{}
}

// Score returns the compound polarity of text.
func (v *VaderScorer) Score(_ context.Context, text string) (float64, error) {
	v.once.Do(func() {
		v.analyzer = govader.NewSentimentIntensityAnalyzer()
	})

	plain := RemoveLinks(text)
	if strings.TrimSpace(plain) == "" {
		return 0, nil
	}
	return v.analyzer.PolarityScores(plain).Compound, nil
}

// RemoveLinks keeps link text and drops raw URLs, which only add noise to the lexicon.
func RemoveLinks(input string) string {
	input = markdownLink.ReplaceAllString(input, "$1")
	input = bareURL.ReplaceAllString(input, "")
	return strings.Join(strings.Fields(input), " ")
}

// Clamp bounds a score reported by an external scorer.
func Clamp(score float64) float64 {
	switch {
	case score > 1:
		return 1
	case score < -1:
		return -1
	default:
		return score
	}
}
