package middleware

import (
	"context"
	"errors"
	"time"

	"grabit/internal/app/commands"
	"grabit/internal/app/outbox"
	"grabit/internal/app/uow"
)

type TxOptionsProvider func(cmd commands.Command) uow.TxOptions

// RetryPolicy replays a command after uow.ErrConcurrentUpdate, waiting
// Backoff[i] before retry i+1. An empty policy never retries.
type RetryPolicy struct {
	Backoff []time.Duration
}

// Transaction runs every command inside its own unit of work. Events recorded
// by the handler are promoted to the caller's collector only after Commit.
func Transaction(factory uow.UoWFactory, optsProvider TxOptionsProvider, retry RetryPolicy) CommandMiddleware {
	if factory == nil {
		panic("middleware: uow factory required")
	}
	return func(next commands.Bus) commands.Bus {
		nextFn := wrapCommand(next)
		runOnce := func(ctx context.Context, cmd commands.Command) (any, error) {
			opts := uow.TxOptions{}
			if optsProvider != nil {
				opts = optsProvider(cmd)
			}
			unit, err := factory.Begin(ctx, opts)
			if err != nil {
				return nil, err
			}
			execCtx := uow.Bind(ctx, unit)
			execCtx, staged := outbox.WithCollector(execCtx)
			committed := false
			defer func() {
				if !committed {
					_ = unit.Rollback(execCtx)
				}
			}()

			res, err := nextFn(execCtx, cmd)
			if err != nil {
				return nil, err
			}
			if err := unit.Commit(execCtx); err != nil {
				return nil, err
			}
			committed = true
			if parent, ok := outbox.CollectorFrom(ctx); ok {
				parent.Add(staged.Drain()...)
			}
			return res, nil
		}

		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			for attempt := 0; ; attempt++ {
				res, err := runOnce(ctx, cmd)
				if err == nil || !errors.Is(err, uow.ErrConcurrentUpdate) || attempt >= len(retry.Backoff) {
					return res, err
				}
				if delay := retry.Backoff[attempt]; delay > 0 {
					timer := time.NewTimer(delay)
					select {
					case <-ctx.Done():
						timer.Stop()
						return nil, errors.Join(err, ctx.Err())
					case <-timer.C:
					}
				}
			}
		})
	}
}
