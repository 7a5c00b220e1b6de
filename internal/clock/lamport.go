// Package clock provides the logical clock that orders local mutations.
package clock

import (
	"sync"

	"github.com/google/uuid"
)

// Lamport логические часы устройства.
// Каждая поставленная в очередь мутация получает Tick(), поэтому порядок
// очереди не зависит от системного времени и переживает его переводы.
type Lamport struct {
	nodeID  string     // идентификатор устройства, записывается как origin
	counter int64      // последнее выданное значение
	mu      sync.Mutex // защищает counter
}

// New creates a clock for a freshly generated node id.
func New() *Lamport {
	return &Lamport{nodeID: uuid.NewString()}
}

// NewWithNodeID creates a clock for a known node id, e.g. one restored from
// local metadata.
func NewWithNodeID(nodeID string) *Lamport {
	return &Lamport{nodeID: nodeID}
}

// Tick advances the clock and returns the new value.
func (l *Lamport) Tick() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.counter++
	return l.counter
}

// Witness moves the clock forward to ts if ts is ahead.
// Используется при загрузке очереди: counter = max(counter, ts).
func (l *Lamport) Witness(ts int64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if ts > l.counter {
		l.counter = ts
	}
}

// Now returns the last issued value without advancing the clock.
func (l *Lamport) Now() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.counter
}

// NodeID returns the node id the clock belongs to.
func (l *Lamport) NodeID() string {
	return l.nodeID
}
