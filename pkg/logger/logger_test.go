package logger

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestNewForwardsToSlog(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	base := slog.New(slog.NewTextHandler(&buf, nil))

	New(base, "http", slog.LevelWarn).Print("tls handshake error")

	out := buf.String()
	if !strings.Contains(out, "level=WARN") || !strings.Contains(out, "component=http") || !strings.Contains(out, "tls handshake error") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestPrintfAdapter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	base := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	p := NewPrintf(base, "cron")

	p.Printf("scheduled %d jobs\n", 2)
	p.Error(errors.New("boom"), "job panicked", "entry", 1)

	out := buf.String()
	if !strings.Contains(out, `msg="scheduled 2 jobs"`) {
		t.Fatalf("printf line missing: %q", out)
	}
	if !strings.Contains(out, "error=boom") || !strings.Contains(out, "entry=1") || !strings.Contains(out, "component=cron") {
		t.Fatalf("error line missing fields: %q", out)
	}
}
