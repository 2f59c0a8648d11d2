package notify

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"grabit/internal/app/policies"
	domainbooking "grabit/internal/domain/booking"
)

var ErrQueueClosed = errors.New("notify: queue closed")

// Recorder receives delivery outcomes. *obs.Metrics satisfies it.
type Recorder interface {
	ObserveNotification(sink string, err error)
	NotificationDropped()
}

// Async decouples request handling from the sink. Publish never blocks: when
// the queue is full the event is dropped and counted.
type Async struct {
	next     policies.Notifier
	sink     string
	logger   *slog.Logger
	recorder Recorder
	timeout  time.Duration

	mu     sync.RWMutex
	queue  chan domainbooking.BookingStatusChanged
	closed bool
	wg     sync.WaitGroup
}

type AsyncOptions struct {
	Sink     string
	Size     int
	Timeout  time.Duration
	Logger   *slog.Logger
	Recorder Recorder
}

func NewAsync(next policies.Notifier, opts AsyncOptions) *Async {
	size := opts.Size
	if size <= 0 {
		size = 256
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Async{
		next:     next,
		sink:     opts.Sink,
		logger:   logger,
		recorder: opts.Recorder,
		timeout:  timeout,
		queue:    make(chan domainbooking.BookingStatusChanged, size),
	}
}

func (a *Async) Publish(ctx context.Context, ev domainbooking.BookingStatusChanged) error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return ErrQueueClosed
	}
	select {
	case a.queue <- ev:
		return nil
	default:
		if a.recorder != nil {
			a.recorder.NotificationDropped()
		}
		a.logger.WarnContext(ctx, "notification queue full, event dropped",
			"sink", a.sink, "booking_id", ev.BookingID, "status", ev.Status)
		return nil
	}
}

// Start launches the delivery worker. Stop drains what is queued.
func (a *Async) Start(ctx context.Context) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		for ev := range a.queue {
			a.deliver(context.WithoutCancel(ctx), ev)
		}
	}()
}

func (a *Async) Stop() {
	a.mu.Lock()
	if !a.closed {
		a.closed = true
		close(a.queue)
	}
	a.mu.Unlock()
	a.wg.Wait()
}

func (a *Async) deliver(ctx context.Context, ev domainbooking.BookingStatusChanged) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	err := a.next.Publish(ctx, ev)
	if a.recorder != nil {
		a.recorder.ObserveNotification(a.sink, err)
	}
	if err != nil {
		a.logger.ErrorContext(ctx, "notification delivery failed",
			"sink", a.sink, "booking_id", ev.BookingID, "error", err)
	}
}

var _ policies.Notifier = (*Async)(nil)
