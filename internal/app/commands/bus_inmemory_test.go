package commands

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingCommand struct{ Name string }

func (pingCommand) Key() string { return "test.ping" }

type otherCommand struct{}

func (otherCommand) Key() string { return "test.other" }

func TestDispatchTypedHandler(t *testing.T) {
	bus := NewInMemoryBus()
	RegisterHandler[pingCommand, string](bus, "test.ping", HandlerFunc[pingCommand, string](
		func(_ context.Context, cmd pingCommand) (string, error) { return "pong " + cmd.Name, nil },
	))

	got, err := Dispatch[pingCommand, string](context.Background(), bus, pingCommand{Name: "a"})
	require.NoError(t, err)
	assert.Equal(t, "pong a", got)
	assert.Equal(t, []string{"test.ping"}, bus.Keys())
}

func TestDispatchErrors(t *testing.T) {
	bus := NewInMemoryBus()
	_, err := bus.Dispatch(context.Background(), otherCommand{})
	assert.ErrorIs(t, err, ErrHandlerNotFound)

	_, err = Dispatch[pingCommand, string](context.Background(), nil, pingCommand{})
	assert.ErrorIs(t, err, ErrNilBus)

	RegisterHandler[pingCommand, int](bus, "test.ping", HandlerFunc[pingCommand, int](
		func(context.Context, pingCommand) (int, error) { return 1, nil },
	))
	_, err = Dispatch[pingCommand, string](context.Background(), bus, pingCommand{})
	assert.ErrorIs(t, err, ErrResultType)
}

func TestDuplicateRegistrationPanics(t *testing.T) {
	bus := NewInMemoryBus()
	h := HandlerFunc[pingCommand, string](func(context.Context, pingCommand) (string, error) { return "", nil })
	RegisterHandler[pingCommand, string](bus, "test.ping", h)
	assert.Panics(t, func() { RegisterHandler[pingCommand, string](bus, "test.ping", h) })
}
