package domain

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
	"time"
)

// Fingerprint identifies a mention by (title, link, entity). Existing stores hash with MD5, keep it.
func Fingerprint(title, link, entity string) string {
	sum := md5.Sum([]byte(title + "|" + link + "|" + entity))
	return hex.EncodeToString(sum[:])
}

var publishedLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	time.RFC3339,
	time.RFC3339Nano,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 MST",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParsePublished normalizes a source date string to UTC. Unknown formats yield the zero time.
func ParsePublished(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}
	}
	for _, layout := range publishedLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
