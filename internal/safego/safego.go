// Package safego launches background work that must never take the process down.
package safego

import (
	"context"
	"log/slog"
	"time"
)

// Go runs fn in a new goroutine. A panic in fn is recovered and logged with
// the task name.
func Go(task string, fn func()) {
	go func() {
		defer recoverTask(task)
		fn()
	}()
}

// GoTimeout runs fn in a new goroutine with a context that keeps the values
// of parent but not its cancellation, bounded by timeout. Request-scoped
// work can therefore outlive the request that started it.
func GoTimeout(parent context.Context, task string, timeout time.Duration, fn func(ctx context.Context)) {
	ctx := context.WithoutCancel(parent)
	go func() {
		defer recoverTask(task)
		var cancel context.CancelFunc = func() {}
		if timeout > 0 {
			ctx, cancel = context.WithTimeout(ctx, timeout)
		}
		defer cancel()
		fn(ctx)
	}()
}

func recoverTask(task string) {
	if r := recover(); r != nil {
		slog.Error("recovered panic in background task", "task", task, "panic", r)
	}
}
