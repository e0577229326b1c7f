package store

import (
	"context"
	"sync"

	"ciphercomms/internal/domain"
)

type subscriber[V any] struct {
	ch   chan V
	view func(V) V
}

// hub fans snapshots out to subscribers keyed by K. Each subscriber holds
// at most one pending snapshot; a newer one replaces it, so slow readers
// skip intermediate states but always see the latest.
type hub[K comparable, V any] struct {
	mu   sync.Mutex
	next uint64
	subs map[K]map[uint64]subscriber[V]
}

func newHub[K comparable, V any]() *hub[K, V] {
	return &hub[K, V]{subs: make(map[K]map[uint64]subscriber[V])}
}

// subscribe registers a listener and queues initial for it. view, when
// non-nil, shapes each snapshot for this subscriber.
func (h *hub[K, V]) subscribe(ctx context.Context, key K, initial V, view func(V) V) (<-chan V, domain.Unsubscribe) {
	if view == nil {
		view = func(v V) V { return v }
	}
	sub := subscriber[V]{ch: make(chan V, 1), view: view}

	h.mu.Lock()
	id := h.next
	h.next++
	if h.subs[key] == nil {
		h.subs[key] = make(map[uint64]subscriber[V])
	}
	h.subs[key][id] = sub
	sub.ch <- view(initial)
	h.mu.Unlock()

	done := make(chan struct{})
	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			close(done)
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subs[key], id)
			if len(h.subs[key]) == 0 {
				delete(h.subs, key)
			}
			close(sub.ch)
		})
	}
	go func() {
		select {
		case <-ctx.Done():
			unsubscribe()
		case <-done:
		}
	}()
	return sub.ch, unsubscribe
}

// publish delivers v to every subscriber of key without blocking.
func (h *hub[K, V]) publish(key K, v V) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, sub := range h.subs[key] {
		snap := sub.view(v)
		select {
		case sub.ch <- snap:
			continue
		default:
		}
		select {
		case <-sub.ch:
		default:
		}
		select {
		case sub.ch <- snap:
		default:
		}
	}
}

// count returns the number of live subscribers for key.
func (h *hub[K, V]) count(key K) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[key])
}
