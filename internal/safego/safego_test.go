package safego

import (
	"context"
	"testing"
	"time"
)

type ctxKey struct{}

func waitOrFail(t *testing.T, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("goroutine did not complete within timeout")
	}
}

func TestGo_RunsFunction(t *testing.T) {
	done := make(chan struct{})
	Go("run", func() { close(done) })
	waitOrFail(t, done)
}

func TestGo_RecoversPanic(t *testing.T) {
	done := make(chan struct{})
	// The panic must be recovered or the test binary dies.
	Go("panicky", func() {
		defer close(done)
		panic("intentional panic in test")
	})
	waitOrFail(t, done)
}

func TestGoTimeout_SurvivesParentCancel(t *testing.T) {
	parent, cancel := context.WithCancel(context.WithValue(context.Background(), ctxKey{}, "req-1"))
	cancel()

	done := make(chan struct{})
	var gotErr error
	var gotVal any
	GoTimeout(parent, "notify", time.Second, func(ctx context.Context) {
		defer close(done)
		gotErr = ctx.Err()
		gotVal = ctx.Value(ctxKey{})
	})
	waitOrFail(t, done)

	if gotErr != nil {
		t.Errorf("ctx.Err() = %v, want nil", gotErr)
	}
	if gotVal != "req-1" {
		t.Errorf("ctx value = %v, want req-1", gotVal)
	}
}

func TestGoTimeout_AppliesDeadline(t *testing.T) {
	done := make(chan struct{})
	var hasDeadline bool
	GoTimeout(context.Background(), "notify", 50*time.Millisecond, func(ctx context.Context) {
		defer close(done)
		_, hasDeadline = ctx.Deadline()
		<-ctx.Done()
	})
	waitOrFail(t, done)

	if !hasDeadline {
		t.Error("expected a deadline on the task context")
	}
}

func TestGoTimeout_RecoversPanic(t *testing.T) {
	done := make(chan struct{})
	GoTimeout(context.Background(), "panicky", 0, func(context.Context) {
		defer close(done)
		panic("boom")
	})
	waitOrFail(t, done)
}
