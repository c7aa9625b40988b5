package domain

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestFingerprintKnownValue(t *testing.T) {
	t.Parallel()

	if got := Fingerprint("a", "b", "c"); got != "2e077b3ec5932ac3cf914ebdf242b4ee" {
		t.Fatalf("unexpected fingerprint %s", got)
	}
}

func TestProperty_FingerprintDeterminism(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("same inputs yield the same fingerprint", prop.ForAll(
		func(title, link, entity string) bool {
			return Fingerprint(title, link, entity) == Fingerprint(title, link, entity)
		},
		gen.AnyString(), gen.AnyString(), gen.AlphaString(),
	))

	properties.Property("different titles yield different fingerprints", prop.ForAll(
		func(title, link, entity string) bool {
			return Fingerprint(title, link, entity) != Fingerprint(title+"x", link, entity)
		},
		gen.AlphaString(), gen.AlphaString(), gen.AlphaString(),
	))

	properties.Property("entity participates in the fingerprint", prop.ForAll(
		func(title, link string) bool {
			return Fingerprint(title, link, "Finch") != Fingerprint(title, link, "Cerebra")
		},
		gen.AlphaString(), gen.AlphaString(),
	))

	properties.TestingRun(t)
}

func TestNewMentionDerivesFingerprint(t *testing.T) {
	t.Parallel()

	c := Candidate{
		Title:        " Vectroid raises funding ",
		Snippet:      "seed round",
		Link:         "https://example.com/a",
		Source:       "Google News - example.com",
		PublishedRaw: "Mon, 02 Jan 2006 15:04:05 GMT",
	}
	m := NewMention(c, "Vectroid", nil)

	if m.Title != "Vectroid raises funding" {
		t.Fatalf("title not trimmed: %q", m.Title)
	}
	if m.Fingerprint != Fingerprint("Vectroid raises funding", "https://example.com/a", "Vectroid") {
		t.Fatalf("fingerprint mismatch")
	}
	want := time.Date(2006, time.January, 2, 15, 4, 5, 0, time.UTC)
	if !m.PublishedAt.Equal(want) {
		t.Fatalf("unexpected published date %v", m.PublishedAt)
	}
}

func TestParsePublished(t *testing.T) {
	t.Parallel()

	cases := []struct {
		raw  string
		want time.Time
	}{
		{"2025-11-08T10:00:00Z", time.Date(2025, 11, 8, 10, 0, 0, 0, time.UTC)},
		{"2025-11-08 10:00:00", time.Date(2025, 11, 8, 10, 0, 0, 0, time.UTC)},
		{"2025-11-08", time.Date(2025, 11, 8, 0, 0, 0, 0, time.UTC)},
		{"Sat, 08 Nov 2025 10:00:00 +0000", time.Date(2025, 11, 8, 10, 0, 0, 0, time.UTC)},
		{"yesterday", time.Time{}},
		{"", time.Time{}},
	}
	for _, tc := range cases {
		if got := ParsePublished(tc.raw); !got.Equal(tc.want) {
			t.Errorf("ParsePublished(%q) = %v, want %v", tc.raw, got, tc.want)
		}
	}
}

func TestSentimentLabel(t *testing.T) {
	t.Parallel()

	if SentimentLabel(0.8) != "positive" || SentimentLabel(-0.5) != "negative" || SentimentLabel(0.3) != "neutral" {
		t.Fatalf("unexpected sentiment buckets")
	}
}
