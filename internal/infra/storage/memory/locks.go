package memory

import (
	"context"
	"sync"
)

type lockSlot struct {
	ch   chan struct{}
	refs int
}

// keyedLocks is a set of context-aware mutexes addressed by string.
// A slot lives only while some unit holds or waits for it.
type keyedLocks struct {
	mu    sync.Mutex
	slots map[string]*lockSlot
}

func newKeyedLocks() *keyedLocks {
	return &keyedLocks{slots: make(map[string]*lockSlot)}
}

func (k *keyedLocks) ref(key string) *lockSlot {
	k.mu.Lock()
	defer k.mu.Unlock()
	s, ok := k.slots[key]
	if !ok {
		s = &lockSlot{ch: make(chan struct{}, 1)}
		k.slots[key] = s
	}
	s.refs++
	return s
}

func (k *keyedLocks) unref(key string, s *lockSlot) {
	s.refs--
	if s.refs == 0 {
		delete(k.slots, key)
	}
}

func (k *keyedLocks) acquire(ctx context.Context, key string) error {
	s := k.ref(key)
	select {
	case s.ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		k.mu.Lock()
		k.unref(key, s)
		k.mu.Unlock()
		return ctx.Err()
	}
}

func (k *keyedLocks) release(key string) {
	k.mu.Lock()
	defer k.mu.Unlock()
	s, ok := k.slots[key]
	if !ok {
		return
	}
	select {
	case <-s.ch:
		k.unref(key, s)
	default:
	}
}
