package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func waitFor(t *testing.T, within time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(within)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s", within)
}

func TestOnceRunsAndRecoversPanics(t *testing.T) {
	s := New()
	s.Start()
	defer s.Shutdown(context.Background())

	var ran atomic.Int32
	if _, err := s.Once("boom", 10*time.Millisecond, func(context.Context) error { panic("boom") }); err != nil {
		t.Fatalf("Once: %v", err)
	}
	if _, err := s.Once("ok", 20*time.Millisecond, func(context.Context) error {
		ran.Add(1)
		return nil
	}); err != nil {
		t.Fatalf("Once: %v", err)
	}
	waitFor(t, 2*time.Second, func() bool { return ran.Load() == 1 })
	waitFor(t, time.Second, func() bool { return len(s.Jobs()) == 0 })
}

func TestCancelOnce(t *testing.T) {
	s := New()
	defer s.Shutdown(context.Background())

	var ran atomic.Int32
	id, err := s.Once("later", 50*time.Millisecond, func(context.Context) error {
		ran.Add(1)
		return nil
	})
	if err != nil {
		t.Fatalf("Once: %v", err)
	}
	if err := s.Cancel(id); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if err := s.Cancel(id); !errors.Is(err, ErrJobNotFound) {
		t.Errorf("second Cancel = %v", err)
	}
	time.Sleep(100 * time.Millisecond)
	if ran.Load() != 0 {
		t.Error("cancelled job ran")
	}
}

func TestEveryAndCronRegistration(t *testing.T) {
	s := New()
	s.Start()
	defer s.Shutdown(context.Background())

	var ticks atomic.Int32
	everyID, err := s.Every("tick", time.Second, func(context.Context) error {
		ticks.Add(1)
		return nil
	})
	if err != nil {
		t.Fatalf("Every: %v", err)
	}
	if _, err := s.Cron("nightly", "0 3 * * *", func(context.Context) error { return nil }); err != nil {
		t.Fatalf("Cron: %v", err)
	}
	if _, err := s.Cron("bad", "not a spec", func(context.Context) error { return nil }); err == nil {
		t.Error("invalid spec accepted")
	}
	if _, err := s.Every("fast", time.Millisecond, func(context.Context) error { return nil }); err == nil {
		t.Error("sub-second interval accepted")
	}

	jobs := s.Jobs()
	if len(jobs) != 2 || jobs[0].Name != "nightly" || jobs[1].Name != "tick" {
		t.Fatalf("jobs = %+v", jobs)
	}
	if jobs[0].Next.IsZero() || jobs[0].Next.Hour() != 3 {
		t.Errorf("nightly next = %s", jobs[0].Next)
	}

	waitFor(t, 3*time.Second, func() bool { return ticks.Load() >= 1 })
	if err := s.Cancel(everyID); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
}

func TestShutdownCancelsJobContext(t *testing.T) {
	s := New()
	started := make(chan struct{})
	if _, err := s.Once("long", 0, func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	}); err != nil {
		t.Fatalf("Once: %v", err)
	}
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if _, err := s.Once("after", time.Second, func(context.Context) error { return nil }); !errors.Is(err, ErrStopped) {
		t.Errorf("Once after Shutdown = %v", err)
	}
}
