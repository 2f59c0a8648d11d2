package middleware

import (
	"context"
	"errors"
	"strings"

	"grabit/internal/app/commands"
	"grabit/internal/app/queries"
)

var ErrUnauthenticated = errors.New("middleware: actor is not authenticated")

type Authorizer interface {
	Authorize(ctx context.Context, message any) error
}

// ActorMessage is implemented by commands and queries issued on behalf of a user.
type ActorMessage interface {
	ActorID() string
}

// ActorRequired rejects actor-bound messages that carry no identity.
type ActorRequired struct{}

func (ActorRequired) Authorize(_ context.Context, message any) error {
	m, ok := message.(ActorMessage)
	if !ok {
		return nil
	}
	if strings.TrimSpace(m.ActorID()) == "" {
		return ErrUnauthenticated
	}
	return nil
}

func Authorization(a Authorizer) CommandMiddleware {
	if a == nil {
		panic("middleware: authorizer required")
	}
	return func(next commands.Bus) commands.Bus {
		nextFn := wrapCommand(next)
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			if err := a.Authorize(ctx, cmd); err != nil {
				return nil, err
			}
			return nextFn(ctx, cmd)
		})
	}
}

func QueryAuthorization(a Authorizer) QueryMiddleware {
	if a == nil {
		panic("middleware: authorizer required")
	}
	return func(next queries.Bus) queries.Bus {
		nextFn := wrapQuery(next)
		return queryFunc(func(ctx context.Context, q queries.Query) (any, error) {
			if err := a.Authorize(ctx, q); err != nil {
				return nil, err
			}
			return nextFn(ctx, q)
		})
	}
}
