package outbox

import (
	"context"
	"sync"

	"grabit/internal/domain/shared/events"
)

// Collector buffers domain events raised while one command is dispatched.
// Events only leave the collector after the surrounding transaction commits.
type Collector struct {
	mu     sync.Mutex
	events []events.DomainEvent
}

type collectorKey struct{}

// WithCollector attaches a fresh collector to ctx.
func WithCollector(ctx context.Context) (context.Context, *Collector) {
	c := &Collector{}
	return context.WithValue(ctx, collectorKey{}, c), c
}

func CollectorFrom(ctx context.Context) (*Collector, bool) {
	c, ok := ctx.Value(collectorKey{}).(*Collector)
	return c, ok && c != nil
}

// Record stores evs in the collector bound to ctx. Without a collector the
// events are discarded.
func Record(ctx context.Context, evs ...events.DomainEvent) {
	if c, ok := CollectorFrom(ctx); ok {
		c.Add(evs...)
	}
}

func (c *Collector) Add(evs ...events.DomainEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, ev := range evs {
		if ev != nil {
			c.events = append(c.events, ev)
		}
	}
}

// Drain returns buffered events and empties the collector.
func (c *Collector) Drain() []events.DomainEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.events
	c.events = nil
	return out
}

func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}
