// Package connectivity tracks whether the device is online and whether the
// remote store answers.
package connectivity

import (
	"context"
	"log/slog"
	"net"
	"sync"
	"time"
)

// Status is the connectivity snapshot
type Status struct {
	Online           bool `json:"online"`            // есть активный сетевой интерфейс
	BackendReachable bool `json:"backend_reachable"` // удаленное хранилище ответило на probe
}

// Prober performs one round trip to the remote store
type Prober interface {
	Health(ctx context.Context) error
}

// NetworkChecker reports whether any network is available
type NetworkChecker func() bool

// Listener receives status changes
type Listener func(Status)

// Monitor периодически проверяет сеть и доступность сервера и уведомляет
// подписчиков только при изменении статуса.
type Monitor struct {
	prober    Prober
	network   NetworkChecker
	logger    *slog.Logger
	listeners map[int]Listener
	status    Status
	interval  time.Duration
	timeout   time.Duration
	nextID    int
	mu        sync.Mutex
	probeMu   sync.Mutex // одна активная проверка за раз
}

// Option configures a Monitor
type Option func(*Monitor)

// WithInterval sets the period of Run
func WithInterval(d time.Duration) Option {
	return func(m *Monitor) { m.interval = d }
}

// WithTimeout bounds one probe
func WithTimeout(d time.Duration) Option {
	return func(m *Monitor) { m.timeout = d }
}

// WithNetworkChecker replaces the interface based network check
func WithNetworkChecker(c NetworkChecker) Option {
	return func(m *Monitor) { m.network = c }
}

// NewMonitor creates a monitor. The initial status is offline until the
// first probe.
func NewMonitor(prober Prober, logger *slog.Logger, opts ...Option) *Monitor {
	m := &Monitor{
		prober:    prober,
		network:   InterfacesUp,
		logger:    logger,
		listeners: make(map[int]Listener),
		interval:  5 * time.Second,
		timeout:   2 * time.Second,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Status returns the last known status
func (m *Monitor) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.status
}

// Subscribe registers a listener and returns a function removing it
func (m *Monitor) Subscribe(l Listener) func() {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextID
	m.nextID++
	m.listeners[id] = l

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.listeners, id)
	}
}

// CheckNow runs an active probe and returns the fresh status.
// Probe failures only ever produce BackendReachable=false.
func (m *Monitor) CheckNow(ctx context.Context) Status {
	m.probeMu.Lock()
	defer m.probeMu.Unlock()

	next := Status{Online: m.network()}
	if next.Online {
		probeCtx, cancel := context.WithTimeout(ctx, m.timeout)
		err := m.prober.Health(probeCtx)
		cancel()
		if err != nil {
			m.logger.Debug("Backend probe failed", "error", err)
		}
		next.BackendReachable = err == nil
	}

	m.set(next)
	return next
}

// Run probes on the configured interval until ctx is done
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.CheckNow(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.CheckNow(ctx)
		}
	}
}

func (m *Monitor) set(next Status) {
	m.mu.Lock()
	if next == m.status {
		m.mu.Unlock()
		return
	}
	prev := m.status
	m.status = next
	listeners := make([]Listener, 0, len(m.listeners))
	for _, l := range m.listeners {
		listeners = append(listeners, l)
	}
	m.mu.Unlock()

	m.logger.Info("Connectivity changed",
		"online", next.Online,
		"backend_reachable", next.BackendReachable,
		"was_online", prev.Online,
		"was_backend_reachable", prev.BackendReachable)

	for _, l := range listeners {
		l(next)
	}
}

// InterfacesUp reports whether any non-loopback interface is up
func InterfacesUp() bool {
	ifaces, err := net.Interfaces()
	if err != nil {
		return false
	}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp != 0 && iface.Flags&net.FlagLoopback == 0 {
			return true
		}
	}
	return false
}
