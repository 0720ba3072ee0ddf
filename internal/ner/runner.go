package ner

import (
	"context"
	"errors"
	"time"
)

// runWithDeadline executes work on its own goroutine and blocks the
// caller until the work finishes or timeout elapses, whichever is first.
// On timeout the caller receives a TIMEOUT error immediately; the worker
// is not forcibly stopped. It observes the expired context at its next
// read boundary, but a worker blocked inside a stream read unblocks only
// when the producer writes, closes, or errors — the stream's lifecycle
// stays with the caller. The result channel is buffered so an abandoned
// worker never leaks on send.
func runWithDeadline(ctx context.Context, timeout time.Duration, work func(context.Context) (Result, Stats, error)) (Result, Stats, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		res   Result
		stats Stats
		err   error
	}
	done := make(chan outcome, 1)

	go func() {
		res, stats, err := work(ctx)
		done <- outcome{res, stats, err}
	}()

	select {
	case out := <-done:
		// Work that propagates the expired deadline reports it the same
		// way as the runner noticing first.
		if errors.Is(out.err, context.DeadlineExceeded) && CodeOf(out.err) == "" {
			return nil, Stats{}, wrapError(CodeTimeout, out.err, "recognition did not complete within "+timeout.String())
		}
		return out.res, out.stats, out.err
	case <-ctx.Done():
		if ctx.Err() == context.DeadlineExceeded {
			return nil, Stats{}, newError(CodeTimeout, "recognition did not complete within %s", timeout)
		}
		return nil, Stats{}, ctx.Err()
	}
}
