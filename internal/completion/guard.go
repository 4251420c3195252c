// Package completion holds the decorators shared by every completion backend.
package completion

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"helperbot/internal/domain"
)

// Guard bounds every completion call with a timeout and reports any failure
// as domain.ErrCompletionUnavailable. A call is attempted exactly once.
type Guard struct {
	next    domain.FunctionCompleter
	timeout time.Duration
	logger  *zap.Logger
}

var _ domain.FunctionCompleter = (*Guard)(nil)

// NewGuard wraps next. A non-positive timeout disables the deadline.
func NewGuard(next domain.FunctionCompleter, timeout time.Duration, logger *zap.Logger) *Guard {
	return &Guard{next: next, timeout: timeout, logger: logger}
}

func (g *Guard) Complete(ctx context.Context, turns []domain.Turn) (string, error) {
	return run(ctx, g, "complete", func(ctx context.Context) (string, error) {
		return g.next.Complete(ctx, turns)
	})
}

func (g *Guard) CompleteWithFunctions(ctx context.Context, turns []domain.Turn, functions []domain.FunctionDescriptor) (domain.Completion, error) {
	return run(ctx, g, "complete_with_functions", func(ctx context.Context) (domain.Completion, error) {
		return g.next.CompleteWithFunctions(ctx, turns, functions)
	})
}

type outcome[T any] struct {
	val T
	err error
}

// run executes call on its own goroutine so a backend that ignores ctx
// cannot hold the turn past the deadline.
func run[T any](ctx context.Context, g *Guard, op string, call func(context.Context) (T, error)) (T, error) {
	var zero T
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	start := time.Now()
	done := make(chan outcome[T], 1)
	go func() {
		v, err := call(ctx)
		done <- outcome[T]{val: v, err: err}
	}()

	select {
	case <-ctx.Done():
		g.logger.Warn("completion timed out",
			zap.String("op", op),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(ctx.Err()),
		)
		return zero, fmt.Errorf("%w: %s: %w", domain.ErrCompletionUnavailable, op, ctx.Err())
	case out := <-done:
		if out.err != nil {
			g.logger.Warn("completion failed", zap.String("op", op), zap.Error(out.err))
			return zero, fmt.Errorf("%w: %s: %w", domain.ErrCompletionUnavailable, op, out.err)
		}
		g.logger.Debug("completion done", zap.String("op", op), zap.Duration("elapsed", time.Since(start)))
		return out.val, nil
	}
}
