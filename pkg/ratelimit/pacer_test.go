package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestPacer_FirstRequestImmediate(t *testing.T) {
	pacer := NewPacer(100 * time.Millisecond)

	start := time.Now()
	if err := pacer.Wait(context.Background()); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Errorf("first Wait took %v, should be immediate", elapsed)
	}
}

func TestPacer_SpacesRequests(t *testing.T) {
	interval := 50 * time.Millisecond
	pacer := NewPacer(interval)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := pacer.Wait(ctx); err != nil {
			t.Fatalf("Wait %d: %v", i, err)
		}
	}
	elapsed := time.Since(start)

	// First passes immediately, the next two wait an interval each.
	if min := 2 * interval * 8 / 10; elapsed < min {
		t.Errorf("3 Waits took %v, want at least %v", elapsed, min)
	}
}

func TestPacer_ContextCancellation(t *testing.T) {
	pacer := NewPacer(time.Hour)
	ctx, cancel := context.WithCancel(context.Background())

	// Consume the initial token so the next Wait must sleep.
	if err := pacer.Wait(ctx); err != nil {
		t.Fatalf("Wait: %v", err)
	}

	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	if err := pacer.Wait(ctx); err == nil {
		t.Errorf("Wait should fail when the context is cancelled")
	}
}

func TestNewPacer_DefaultInterval(t *testing.T) {
	pacer := NewPacer(0)
	if pacer == nil {
		t.Fatal("NewPacer returned nil")
	}
	// Zero interval falls back to the default rather than unbounded rate.
	if err := pacer.Wait(context.Background()); err != nil {
		t.Fatalf("Wait: %v", err)
	}
}
