package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"PortfolioMonitor/internal/domain"
)

func ptr(v float64) *float64 { return &v }

func TestEmojiBands(t *testing.T) {
	t.Parallel()

	cases := map[string]*float64{
		"😊": ptr(0.31),
		"😟": ptr(-0.31),
		"😐": ptr(0.3),
	}
	for want, score := range cases {
		if got := Emoji(score); got != want {
			t.Fatalf("Emoji(%v) = %s, want %s", *score, got, want)
		}
	}
	if Emoji(nil) != "😐" || Score(nil) != "n/a" || Score(ptr(0.456)) != "0.46" {
		t.Fatalf("unexpected rendering of unscored mention")
	}
}

func TestTruncate(t *testing.T) {
	t.Parallel()

	if got := Truncate("héllo wörld", 8); got != "héllo..." {
		t.Fatalf("got %q", got)
	}
	if got := Truncate("short", 10); got != "short" {
		t.Fatalf("got %q", got)
	}
}

func TestConsoleGroupsByEntity(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	c := NewConsole(&buf, true)
	c.now = func() time.Time { return time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC) }

	err := c.Notify(context.Background(), []domain.Mention{
		{Entity: "Finch", Title: "Finch ships", Content: strings.Repeat("a", 200), Link: "https://x/1", Source: "NewsAPI - Wire", Sentiment: ptr(0.9)},
		{Entity: "Coqui", Title: "Coqui TTS", Source: "Google News - Blog"},
	})
	if err != nil {
		t.Fatalf("notify: %v", err)
	}

	out := buf.String()
	for _, want := range []string{
		"Generated: 2024-05-01 09:00:00",
		"Total New Mentions: 2",
		"FINCH (1 mentions)",
		"1. Finch ships 😊",
		strings.Repeat("a", 147) + "...",
		"Sentiment: 0.90",
		"COQUI (1 mentions)",
		"Sentiment: n/a",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "\x1b[") {
		t.Fatalf("noColor output must not contain escape codes")
	}
}

func TestSlackPayload(t *testing.T) {
	t.Parallel()

	var got slackPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("unexpected content type %q", r.Header.Get("Content-Type"))
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	var mentions []domain.Mention
	for i := 0; i < 5; i++ {
		mentions = append(mentions, domain.Mention{Entity: "Finch", Title: strings.Repeat("t", 100), Link: "https://x", Source: "s"})
	}
	if err := NewSlack(srv.URL, srv.Client()).Notify(context.Background(), mentions); err != nil {
		t.Fatalf("notify: %v", err)
	}

	if !strings.Contains(got.Text, "5 new mentions") {
		t.Fatalf("unexpected fallback text %q", got.Text)
	}
	var items, more int
	for _, b := range got.Blocks {
		if b.Text == nil {
			continue
		}
		if strings.HasPrefix(b.Text.Text, "• ") {
			items++
			if !strings.Contains(b.Text.Text, strings.Repeat("t", 77)+"...") {
				t.Fatalf("title not truncated: %q", b.Text.Text)
			}
		}
		if strings.Contains(b.Text.Text, "and 2 more mentions") {
			more++
		}
	}
	if items != 3 || more != 1 {
		t.Fatalf("expected 3 items and an overflow line, got %d/%d", items, more)
	}
	if last := got.Blocks[len(got.Blocks)-1]; last.Type != "context" {
		t.Fatalf("expected footer block, got %s", last.Type)
	}
}

func TestSlackErrors(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid_payload", http.StatusBadRequest)
	}))
	defer srv.Close()

	err := NewSlack(srv.URL, nil).Notify(context.Background(), []domain.Mention{{Entity: "A", Title: "x"}})
	if err == nil || !strings.Contains(err.Error(), "invalid_payload") {
		t.Fatalf("expected webhook error with body, got %v", err)
	}
	if err := NewSlack("", nil).Notify(context.Background(), nil); err == nil {
		t.Fatalf("expected misconfiguration error")
	}
}

func TestGroupByEntityKeepsOrder(t *testing.T) {
	t.Parallel()

	groups := GroupByEntity([]domain.Mention{{Entity: "B"}, {Entity: "A"}, {Entity: "B"}})
	if len(groups) != 2 || groups[0].Entity != "B" || len(groups[0].Mentions) != 2 || groups[1].Entity != "A" {
		t.Fatalf("unexpected groups %+v", groups)
	}
}
