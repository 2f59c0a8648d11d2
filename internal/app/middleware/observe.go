package middleware

import (
	"context"
	"time"

	"grabit/internal/app/commands"
	"grabit/internal/app/queries"
)

// Observer receives one call per dispatched message.
type Observer interface {
	ObserveMessage(ctx context.Context, kind, key string, elapsed time.Duration, err error)
}

func ObserveCommands(o Observer) CommandMiddleware {
	if o == nil {
		panic("middleware: observer required")
	}
	return func(next commands.Bus) commands.Bus {
		nextFn := wrapCommand(next)
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			started := time.Now()
			res, err := nextFn(ctx, cmd)
			o.ObserveMessage(ctx, "command", cmd.Key(), time.Since(started), err)
			return res, err
		})
	}
}

func ObserveQueries(o Observer) QueryMiddleware {
	if o == nil {
		panic("middleware: observer required")
	}
	return func(next queries.Bus) queries.Bus {
		nextFn := wrapQuery(next)
		return queryFunc(func(ctx context.Context, q queries.Query) (any, error) {
			started := time.Now()
			res, err := nextFn(ctx, q)
			o.ObserveMessage(ctx, "query", q.Key(), time.Since(started), err)
			return res, err
		})
	}
}
