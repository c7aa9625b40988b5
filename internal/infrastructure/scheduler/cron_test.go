package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestCronSchedulerRejectsBadSpec(t *testing.T) {
	t.Parallel()

	s := NewCronScheduler("not a spec")
	if err := s.Start(context.Background(), func(time.Time) {}); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestCronSchedulerRunOnStartAndStop(t *testing.T) {
	t.Parallel()

	var runs atomic.Int32
	fired := make(chan struct{}, 1)
	s := NewCronScheduler("@every 1h", WithRunOnStart(true), WithLocation(time.UTC))

	if err := s.Start(context.Background(), func(time.Time) {
		runs.Add(1)
		select {
		case fired <- struct{}{}:
		default:
		}
	}); err != nil {
		t.Fatalf("start: %v", err)
	}

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatalf("job did not run on start")
	}

	if next := s.Next(); next.IsZero() || time.Until(next) < 50*time.Minute {
		t.Fatalf("unexpected next trigger %v", next)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if !s.Next().IsZero() {
		t.Fatalf("stopped scheduler has no next trigger")
	}
	if runs.Load() != 1 {
		t.Fatalf("expected exactly one run, got %d", runs.Load())
	}
}

func TestCronSchedulerStopsWithContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	s := NewCronScheduler("@every 1h")
	if err := s.Start(ctx, func(time.Time) {}); err != nil {
		t.Fatalf("start: %v", err)
	}
	cancel()

	deadline := time.Now().Add(2 * time.Second)
	for !s.Next().IsZero() {
		if time.Now().After(deadline) {
			t.Fatalf("scheduler still running after context cancel")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
