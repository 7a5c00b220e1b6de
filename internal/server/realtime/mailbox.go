package realtime

import (
	"sync"

	"github.com/iudanet/repsync/internal/models"
)

// Listener receives the events of one subscription, one at a time
type Listener func(models.SessionEvent)

// mailbox упорядоченная неограниченная очередь одного подписчика.
// push никогда не блокирует публикующего, доставка идет в своей горутине.
type mailbox struct {
	listener    Listener
	wake        chan struct{}
	done        chan struct{}
	participant string
	queue       []models.SessionEvent
	mu          sync.Mutex
	closed      bool
	discard     bool
}

func newMailbox(participant string, listener Listener) *mailbox {
	m := &mailbox{
		listener:    listener,
		participant: participant,
		wake:        make(chan struct{}, 1),
		done:        make(chan struct{}),
	}
	go m.run()
	return m
}

func (m *mailbox) push(e models.SessionEvent) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.queue = append(m.queue, e)
	m.mu.Unlock()

	m.signal()
}

// close stops the mailbox. With flush the queued events are still delivered.
func (m *mailbox) close(flush bool) {
	m.mu.Lock()
	m.closed = true
	if !flush {
		m.discard = true
		m.queue = nil
	}
	m.mu.Unlock()

	m.signal()
}

func (m *mailbox) signal() {
	select {
	case m.wake <- struct{}{}:
	default:
	}
}

func (m *mailbox) run() {
	defer close(m.done)

	for {
		m.mu.Lock()
		batch := m.queue
		m.queue = nil
		closed, discard := m.closed, m.discard
		m.mu.Unlock()

		if discard {
			return
		}

		for _, e := range batch {
			m.listener(e)

			// unsubscribe во время доставки прекращает ее
			m.mu.Lock()
			discard = m.discard
			m.mu.Unlock()
			if discard {
				return
			}
		}

		if len(batch) > 0 {
			continue
		}
		if closed {
			return
		}
		<-m.wake
	}
}
