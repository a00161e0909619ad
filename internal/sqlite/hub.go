package sqlite

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mesh-intelligence/nutrihub/pkg/types"
)

// changeHub fans committed-write notifications out to table subscribers.
type changeHub struct {
	mu   sync.RWMutex
	subs map[*subscriber]struct{}
}

// subscriber receives events for a set of tables. A nil table set matches
// every table.
type subscriber struct {
	tables map[string]bool
	ch     chan types.ChangeEvent
	done   chan struct{}
	once   sync.Once
}

func newChangeHub() *changeHub {
	return &changeHub{subs: make(map[*subscriber]struct{})}
}

// subscribe registers a subscriber for tables.
func (h *changeHub) subscribe(tables []string) *subscriber {
	s := &subscriber{
		ch:   make(chan types.ChangeEvent, 1),
		done: make(chan struct{}),
	}
	if len(tables) > 0 {
		s.tables = make(map[string]bool, len(tables))
		for _, t := range tables {
			s.tables[t] = true
		}
	}

	h.mu.Lock()
	h.subs[s] = struct{}{}
	h.mu.Unlock()
	return s
}

// unsubscribe removes s and closes its channel. Safe to call more than once.
func (h *changeHub) unsubscribe(s *subscriber) {
	h.mu.Lock()
	delete(h.subs, s)
	h.mu.Unlock()
	s.close()
}

// publish delivers ev to every subscriber interested in one of its tables.
// A subscriber whose buffer is full already has a pending event and is
// skipped.
func (h *changeHub) publish(ev types.ChangeEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for s := range h.subs {
		if !s.wants(ev.Tables) {
			continue
		}
		select {
		case s.ch <- ev:
		default:
		}
	}
}

// closeAll removes and closes every subscriber.
func (h *changeHub) closeAll() {
	h.mu.Lock()
	subs := h.subs
	h.subs = make(map[*subscriber]struct{})
	h.mu.Unlock()

	for s := range subs {
		s.close()
	}
}

func (s *subscriber) wants(tables []string) bool {
	if s.tables == nil {
		return true
	}
	for _, t := range tables {
		if s.tables[t] {
			return true
		}
	}
	return false
}

// close is guarded by the hub lock in publish: a subscriber is removed from
// the map before its channel closes, so publish never sends on a closed
// channel.
func (s *subscriber) close() {
	s.once.Do(func() {
		close(s.done)
		close(s.ch)
	})
}

// newChangeEvent stamps a change event for tables.
func newChangeEvent(tables []string) types.ChangeEvent {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return types.ChangeEvent{
		ID:     id.String(),
		Tables: tables,
		At:     time.Now().UTC(),
	}
}
