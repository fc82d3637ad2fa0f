package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestWaitConsumesBurst(t *testing.T) {
	l := New(5)
	ctx := context.Background()

	// Full bucket at start: five takes must not block
	done := make(chan struct{})
	go func() {
		for i := 0; i < 5; i++ {
			if err := l.Wait(ctx); err != nil {
				t.Errorf("wait %d: %v", i, err)
			}
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("initial burst should not block")
	}
}

func TestWaitHonorsCancellation(t *testing.T) {
	l := New(0.001) // effectively never refills
	l.tokens = 0

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := l.Wait(ctx); err != context.Canceled {
		t.Errorf("got %v, want context.Canceled", err)
	}
}

func TestNewClampsRate(t *testing.T) {
	l := New(-3)
	if l.rate != 1.0 {
		t.Errorf("rate: got %f, want 1", l.rate)
	}
}
