package notify

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainbooking "grabit/internal/domain/booking"
)

var confirmedEvent = domainbooking.BookingStatusChanged{
	BookingID: "b-1",
	Status:    domainbooking.StatusConfirmed,
	At:        time.Date(2024, 5, 20, 9, 0, 0, 0, time.UTC),
}

func TestKafkaNotifierSendsCloudEvent(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		if msg.Topic != "dev.booking.events.v1" {
			return errors.New("unexpected topic " + msg.Topic)
		}
		key, err := msg.Key.Encode()
		if err != nil {
			return err
		}
		if string(key) != "b-1" {
			return errors.New("unexpected key " + string(key))
		}
		value, err := msg.Value.Encode()
		if err != nil {
			return err
		}
		var evt map[string]any
		if err := json.Unmarshal(value, &evt); err != nil {
			return err
		}
		if evt["type"] != "booking.status_changed.v1" || evt["specversion"] != "1.0" {
			return errors.New("not a cloud event")
		}
		data, _ := evt["data"].(map[string]any)
		if data["status"] != "confirmed" {
			return errors.New("missing status")
		}
		return nil
	})

	n := NewKafkaNotifierWithProducer(producer, "dev.")
	require.NoError(t, n.Publish(context.Background(), confirmedEvent))
	require.NoError(t, n.Close())
}

func TestKafkaNotifierWrapsSendError(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	n := NewKafkaNotifierWithProducer(producer, "")
	err := n.Publish(context.Background(), confirmedEvent)
	assert.ErrorIs(t, err, sarama.ErrOutOfBrokers)
	require.NoError(t, n.Close())
}

func TestRedisNotifierPublishesOnChannel(t *testing.T) {
	db, mock := redismock.NewClientMock()
	mock.ExpectPublish("booking_updates",
		`{"type":"booking.status_changed","booking_id":"b-1","status":"confirmed","occurred_at":"2024-05-20T09:00:00Z"}`).
		SetVal(1)

	n := NewRedisNotifier(db, "")
	require.NoError(t, n.Publish(context.Background(), confirmedEvent))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisNotifierError(t *testing.T) {
	db, mock := redismock.NewClientMock()
	mock.Regexp().ExpectPublish("updates", `.*`).SetErr(assert.AnError)

	n := NewRedisNotifier(db, "updates")
	assert.ErrorIs(t, n.Publish(context.Background(), confirmedEvent), assert.AnError)
	assert.NoError(t, mock.ExpectationsWereMet())
}

type stubSink struct {
	mu      sync.Mutex
	got     []domainbooking.BookingStatusChanged
	err     error
	release chan struct{}
}

func (s *stubSink) Publish(_ context.Context, ev domainbooking.BookingStatusChanged) error {
	if s.release != nil {
		<-s.release
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.got = append(s.got, ev)
	return s.err
}

type stubRecorder struct {
	mu       sync.Mutex
	outcomes []error
	dropped  int
}

func (r *stubRecorder) ObserveNotification(_ string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, err)
}

func (r *stubRecorder) NotificationDropped() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dropped++
}

func TestAsyncDeliversAndRecords(t *testing.T) {
	sink := &stubSink{err: errors.New("broker down")}
	rec := &stubRecorder{}
	a := NewAsync(sink, AsyncOptions{Sink: "test", Size: 4, Recorder: rec})
	a.Start(context.Background())

	require.NoError(t, a.Publish(context.Background(), confirmedEvent))
	require.NoError(t, a.Publish(context.Background(), confirmedEvent))
	a.Stop()

	assert.Len(t, sink.got, 2)
	require.Len(t, rec.outcomes, 2)
	assert.Error(t, rec.outcomes[0])
	assert.ErrorIs(t, a.Publish(context.Background(), confirmedEvent), ErrQueueClosed)
}

func TestAsyncDropsWhenFull(t *testing.T) {
	sink := &stubSink{release: make(chan struct{})}
	rec := &stubRecorder{}
	a := NewAsync(sink, AsyncOptions{Sink: "test", Size: 1, Recorder: rec})

	// no worker yet: the first event fills the queue
	require.NoError(t, a.Publish(context.Background(), confirmedEvent))
	require.NoError(t, a.Publish(context.Background(), confirmedEvent))
	assert.Equal(t, 1, rec.dropped)

	a.Start(context.Background())
	close(sink.release)
	a.Stop()
	assert.Len(t, sink.got, 1)
}

func TestLogNotifierNeverFails(t *testing.T) {
	assert.NoError(t, LogNotifier{}.Publish(context.Background(), confirmedEvent))
}
