// Package changefeed fans accepted writes out to change feed subscribers.
package changefeed

import (
	"log/slog"
	"sync"

	"github.com/iudanet/repsync/internal/models"
)

// DefaultBuffer размер почтового ящика подписчика по умолчанию
const DefaultBuffer = 256

// Hub delivers committed changes to live subscribers. A subscriber that
// falls behind by more than its buffer is dropped and has to resubscribe
// from its last seen seq.
type Hub struct {
	logger *slog.Logger
	subs   map[*Subscriber]struct{}
	mu     sync.Mutex
}

// Subscriber receives changes of one topic
type Subscriber struct {
	hub     *Hub
	ch      chan models.Change
	done    chan struct{}
	topic   string
	once    sync.Once
	overrun bool
}

// NewHub creates an empty hub
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		logger: logger,
		subs:   make(map[*Subscriber]struct{}),
	}
}

// Subscribe registers a subscriber for topic (empty = all entity types).
// buffer <= 0 uses DefaultBuffer.
func (h *Hub) Subscribe(topic string, buffer int) *Subscriber {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	s := &Subscriber{
		hub:   h,
		ch:    make(chan models.Change, buffer),
		done:  make(chan struct{}),
		topic: topic,
	}

	h.mu.Lock()
	h.subs[s] = struct{}{}
	h.mu.Unlock()

	return s
}

// Publish delivers a change to every matching subscriber without blocking
func (h *Hub) Publish(change models.Change) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for s := range h.subs {
		if s.topic != "" && s.topic != change.Entity.Type {
			continue
		}
		select {
		case s.ch <- models.Change{Seq: change.Seq, Entity: change.Entity.Clone()}:
		default:
			// подписчик отстал: отключаем, он продолжит с курсора
			h.logger.Warn("Change feed subscriber overrun", "topic", s.topic, "seq", change.Seq)
			s.overrun = true
			h.removeLocked(s)
		}
	}
}

// Len returns the number of live subscribers
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

func (h *Hub) removeLocked(s *Subscriber) {
	if _, ok := h.subs[s]; !ok {
		return
	}
	delete(h.subs, s)
	s.once.Do(func() {
		close(s.done)
	})
}

// C returns the channel of live changes
func (s *Subscriber) C() <-chan models.Change {
	return s.ch
}

// Done is closed when the subscriber was removed from the hub
func (s *Subscriber) Done() <-chan struct{} {
	return s.done
}

// Overrun reports whether the subscriber was dropped for falling behind
func (s *Subscriber) Overrun() bool {
	s.hub.mu.Lock()
	defer s.hub.mu.Unlock()
	return s.overrun
}

// Close unregisters the subscriber
func (s *Subscriber) Close() {
	s.hub.mu.Lock()
	defer s.hub.mu.Unlock()
	s.hub.removeLocked(s)
}
