package middleware

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grabit/internal/app/commands"
	"grabit/internal/app/outbox"
	"grabit/internal/app/policies"
	"grabit/internal/app/uow"
	domainbooking "grabit/internal/domain/booking"
	domainlistings "grabit/internal/domain/listings"
)

type fakeUnit struct {
	committed  bool
	rolledBack bool
	commitErr  error
}

func (u *fakeUnit) Bookings() domainbooking.Repository { return nil }
func (u *fakeUnit) LockListing(context.Context, domainlistings.Ref) error {
	return nil
}
func (u *fakeUnit) Commit(context.Context) error {
	if u.commitErr != nil {
		return u.commitErr
	}
	u.committed = true
	return nil
}
func (u *fakeUnit) Rollback(context.Context) error {
	u.rolledBack = true
	return nil
}

type fakeFactory struct {
	units     []*fakeUnit
	commitErr []error
}

func (f *fakeFactory) Begin(context.Context, uow.TxOptions) (uow.UnitOfWork, error) {
	u := &fakeUnit{}
	if n := len(f.units); n < len(f.commitErr) {
		u.commitErr = f.commitErr[n]
	}
	f.units = append(f.units, u)
	return u, nil
}

type testCommand struct {
	Actor   string `validate:"notblank"`
	IdemKey string
}

func (testCommand) Key() string              { return "test.command" }
func (c testCommand) ActorID() string        { return c.Actor }
func (c testCommand) IdempotencyKey() string { return c.IdemKey }
func (testCommand) ResultPrototype() any     { return &testResult{} }

type testResult struct {
	Value string `json:"value"`
}

func busWith(fn func(ctx context.Context, cmd testCommand) (*testResult, error)) *commands.InMemoryBus {
	bus := commands.NewInMemoryBus()
	commands.RegisterHandler[testCommand, *testResult](bus, "test.command", commands.HandlerFunc[testCommand, *testResult](fn))
	return bus
}

func statusEvent(id string) domainbooking.BookingStatusChanged {
	return domainbooking.BookingStatusChanged{BookingID: domainbooking.BookingID(id), Status: domainbooking.StatusConfirmed, At: time.Now()}
}

func TestTransactionCommitsAndRollsBack(t *testing.T) {
	factory := &fakeFactory{}
	bus := ChainCommands(busWith(func(ctx context.Context, cmd testCommand) (*testResult, error) {
		_, ok := uow.FromContext(ctx)
		require.True(t, ok)
		if cmd.Actor == "boom" {
			return nil, errors.New("boom")
		}
		return &testResult{Value: "ok"}, nil
	}), Transaction(factory, nil, RetryPolicy{}))

	_, err := bus.Dispatch(context.Background(), testCommand{Actor: "a"})
	require.NoError(t, err)
	_, err = bus.Dispatch(context.Background(), testCommand{Actor: "boom"})
	require.Error(t, err)

	require.Len(t, factory.units, 2)
	assert.True(t, factory.units[0].committed)
	assert.False(t, factory.units[0].rolledBack)
	assert.False(t, factory.units[1].committed)
	assert.True(t, factory.units[1].rolledBack)
}

func TestTransactionRetriesConcurrentUpdates(t *testing.T) {
	factory := &fakeFactory{commitErr: []error{uow.ErrConcurrentUpdate}}
	calls := 0
	bus := ChainCommands(busWith(func(context.Context, testCommand) (*testResult, error) {
		calls++
		return &testResult{Value: "ok"}, nil
	}), Transaction(factory, nil, RetryPolicy{Backoff: []time.Duration{time.Millisecond, time.Millisecond}}))

	res, err := commands.Dispatch[testCommand, *testResult](context.Background(), bus, testCommand{Actor: "a"})
	require.NoError(t, err)
	assert.Equal(t, "ok", res.Value)
	assert.Equal(t, 2, calls)
	assert.True(t, factory.units[0].rolledBack)
	assert.True(t, factory.units[1].committed)
}

func TestTransactionGivesUpAfterAttempts(t *testing.T) {
	factory := &fakeFactory{commitErr: []error{uow.ErrConcurrentUpdate, uow.ErrConcurrentUpdate}}
	bus := ChainCommands(busWith(func(context.Context, testCommand) (*testResult, error) {
		return &testResult{}, nil
	}), Transaction(factory, nil, RetryPolicy{Backoff: []time.Duration{0}}))

	_, err := bus.Dispatch(context.Background(), testCommand{Actor: "a"})
	assert.ErrorIs(t, err, uow.ErrConcurrentUpdate)
	assert.Len(t, factory.units, 2)
}

func TestEventsPublishedOnlyAfterCommit(t *testing.T) {
	var published []domainbooking.BookingStatusChanged
	notifier := policies.NotifierFunc(func(_ context.Context, ev domainbooking.BookingStatusChanged) error {
		published = append(published, ev)
		return nil
	})
	factory := &fakeFactory{commitErr: []error{errors.New("disk full")}}
	bus := ChainCommands(busWith(func(ctx context.Context, cmd testCommand) (*testResult, error) {
		outbox.Record(ctx, statusEvent(cmd.Actor))
		return &testResult{}, nil
	}), EventDispatch(notifier, nil), Transaction(factory, nil, RetryPolicy{}))

	_, err := bus.Dispatch(context.Background(), testCommand{Actor: "b-1"})
	require.Error(t, err)
	assert.Empty(t, published)

	_, err = bus.Dispatch(context.Background(), testCommand{Actor: "b-2"})
	require.NoError(t, err)
	require.Len(t, published, 1)
	assert.Equal(t, domainbooking.BookingID("b-2"), published[0].BookingID)
}

func TestEventsNotDuplicatedAcrossRetries(t *testing.T) {
	count := 0
	notifier := policies.NotifierFunc(func(context.Context, domainbooking.BookingStatusChanged) error {
		count++
		return nil
	})
	factory := &fakeFactory{commitErr: []error{uow.ErrConcurrentUpdate}}
	bus := ChainCommands(busWith(func(ctx context.Context, cmd testCommand) (*testResult, error) {
		outbox.Record(ctx, statusEvent(cmd.Actor))
		return &testResult{}, nil
	}), EventDispatch(notifier, nil), Transaction(factory, nil, RetryPolicy{Backoff: []time.Duration{0}}))

	_, err := bus.Dispatch(context.Background(), testCommand{Actor: "b-1"})
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestEventDispatchSwallowsSinkErrors(t *testing.T) {
	notifier := policies.NotifierFunc(func(context.Context, domainbooking.BookingStatusChanged) error {
		return errors.New("broker down")
	})
	bus := ChainCommands(busWith(func(ctx context.Context, cmd testCommand) (*testResult, error) {
		outbox.Record(ctx, statusEvent(cmd.Actor))
		return &testResult{Value: "done"}, nil
	}), EventDispatch(notifier, nil))

	res, err := commands.Dispatch[testCommand, *testResult](context.Background(), bus, testCommand{Actor: "b-1"})
	require.NoError(t, err)
	assert.Equal(t, "done", res.Value)
}

type mapStore struct {
	records map[string]IdempotencyRecord
}

func (s *mapStore) Get(_ context.Context, key string) (IdempotencyRecord, bool, error) {
	rec, ok := s.records[key]
	return rec, ok, nil
}

func (s *mapStore) Save(_ context.Context, rec IdempotencyRecord) error {
	s.records[rec.Key] = rec
	return nil
}

func TestIdempotencyReplaysSuccess(t *testing.T) {
	store := &mapStore{records: map[string]IdempotencyRecord{}}
	calls := 0
	bus := ChainCommands(busWith(func(context.Context, testCommand) (*testResult, error) {
		calls++
		return &testResult{Value: "first"}, nil
	}), Idempotency(store, nil))

	cmd := testCommand{Actor: "a", IdemKey: "k-1"}
	first, err := commands.Dispatch[testCommand, *testResult](context.Background(), bus, cmd)
	require.NoError(t, err)
	second, err := commands.Dispatch[testCommand, *testResult](context.Background(), bus, cmd)
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
	assert.Equal(t, first.Value, second.Value)
}

func TestIdempotencyDoesNotStoreFailures(t *testing.T) {
	store := &mapStore{records: map[string]IdempotencyRecord{}}
	bus := ChainCommands(busWith(func(context.Context, testCommand) (*testResult, error) {
		return nil, domainbooking.ErrConflict
	}), Idempotency(store, nil))

	_, err := bus.Dispatch(context.Background(), testCommand{Actor: "a", IdemKey: "k-2"})
	assert.ErrorIs(t, err, domainbooking.ErrConflict)
	assert.Empty(t, store.records)
}

func TestStructValidatorWrapsMissing(t *testing.T) {
	v := NewStructValidator(domainbooking.ErrMissingParameter)

	err := v.Validate(context.Background(), testCommand{Actor: "  "})
	assert.ErrorIs(t, err, domainbooking.ErrMissingParameter)
	assert.ErrorContains(t, err, "Actor")

	assert.NoError(t, v.Validate(context.Background(), testCommand{Actor: "a"}))
	assert.NoError(t, v.Validate(context.Background(), "not a struct"))
}

func TestActorRequired(t *testing.T) {
	bus := ChainCommands(busWith(func(context.Context, testCommand) (*testResult, error) {
		return &testResult{}, nil
	}), Authorization(ActorRequired{}))

	_, err := bus.Dispatch(context.Background(), testCommand{})
	assert.ErrorIs(t, err, ErrUnauthenticated)
	_, err = bus.Dispatch(context.Background(), testCommand{Actor: "a"})
	assert.NoError(t, err)
}
