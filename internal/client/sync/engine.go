// Package sync drains the local mutation queue into the remote store.
//
// The Engine applies every submitted operation to the optimistic cache right
// after it was durably queued and sends queued mutations one at a time, in
// queue order, while the backend is reachable. Server answers are reconciled
// into the cache; version conflicts go through the conflict resolver.
package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	stdsync "sync"
	"time"

	"github.com/google/uuid"

	"github.com/iudanet/repsync/internal/client/api"
	"github.com/iudanet/repsync/internal/client/cache"
	"github.com/iudanet/repsync/internal/client/conflict"
	"github.com/iudanet/repsync/internal/client/connectivity"
	"github.com/iudanet/repsync/internal/client/queue"
	"github.com/iudanet/repsync/internal/models"
	"github.com/iudanet/repsync/internal/validation"
)

var (
	// ErrInvalidOperation is returned by Submit for malformed operations
	ErrInvalidOperation = errors.New("invalid operation")

	// ErrAlreadyRunning is returned by Start when the drain loop runs
	ErrAlreadyRunning = errors.New("sync engine already running")

	// ErrMutationBusy is returned by Discard for the mutation being sent
	ErrMutationBusy = errors.New("mutation is being sent")
)

// maxPendingPublishes ограничивает очередь событий сессии, ожидающих отправки
const maxPendingPublishes = 256

// State состояние цикла отправки
type State string

const (
	StateIdle     State = "idle"
	StateDraining State = "draining"
	StateBackoff  State = "backoff"
	StateDisabled State = "disabled"
)

// ConnectivitySource gates the drain loop
type ConnectivitySource interface {
	Status() connectivity.Status
	Subscribe(l connectivity.Listener) func()
}

//go:generate moq -out sessionpublisher_mock.go . SessionPublisher

// SessionPublisher forwards acknowledged session-scoped mutations to the
// other participants of a live session.
type SessionPublisher interface {
	PublishMutation(ctx context.Context, sessionID string, m *models.Mutation, entity *models.Entity) error
}

// Operation is a change requested by the user
type Operation struct {
	Payload    map[string]any
	EntityType string
	EntityID   string // пустой ID для create генерируется
	SessionID  string // мутация живой сессии, пересылается участникам после записи
	Kind       models.Operation
}

// OptimisticResult is returned by Submit before the network is touched
type OptimisticResult struct {
	Entity     *models.Entity        `json:"entity,omitempty"` // оптимистичное представление, nil для delete
	MutationID string                `json:"mutation_id"`
	Status     models.MutationStatus `json:"status"`
}

// Config настройки движка
type Config struct {
	Backoff        BackoffPolicy
	RequestTimeout time.Duration
	MaxRetries     int
}

// DefaultConfig returns the configuration used for zero fields
func DefaultConfig() Config {
	return Config{
		Backoff:        DefaultBackoff,
		RequestTimeout: 10 * time.Second,
		MaxRetries:     8,
	}
}

// Engine owns the mutation queue of the device
type Engine struct {
	remote    api.RemoteStore
	monitor   ConnectivitySource
	publisher SessionPublisher
	queue     *queue.Queue
	cache     *cache.Cache
	resolver  *conflict.Resolver
	logger    *slog.Logger
	now       func() time.Time
	listeners map[int]func(*Outcome)
	wake      chan struct{}
	cancel    context.CancelFunc
	done      chan struct{}
	origin    string
	sending   string // ID мутации, ожидающей ответа сервера
	state     State
	cfg       Config
	nextID    int

	pubQueue   []publishJob
	publishing bool
	pubWG      stdsync.WaitGroup

	viewMu    stdsync.Mutex // сериализует изменения очереди и кэша
	drainMu   stdsync.Mutex // одна отправка в полете
	resolveMu stdsync.Mutex // одно решение по конфликту за раз
	pubMu     stdsync.Mutex // pubQueue, publishing
	runMu     stdsync.Mutex
	mu        stdsync.Mutex // state, sending, listeners
}

// publishJob подтвержденная мутация сессии, ожидающая пересылки участникам
type publishJob struct {
	m      *models.Mutation
	entity *models.Entity
}

// NewEngine wires the engine. origin is the node id written with every
// mutation. monitor may be nil, in which case the backend is assumed
// reachable.
func NewEngine(
	q *queue.Queue,
	c *cache.Cache,
	resolver *conflict.Resolver,
	remote api.RemoteStore,
	monitor ConnectivitySource,
	origin string,
	cfg Config,
	logger *slog.Logger,
) *Engine {
	def := DefaultConfig()
	if cfg.Backoff.Base <= 0 {
		cfg.Backoff = def.Backoff
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = def.RequestTimeout
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = def.MaxRetries
	}

	return &Engine{
		queue:     q,
		cache:     c,
		resolver:  resolver,
		remote:    remote,
		monitor:   monitor,
		origin:    origin,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
		listeners: make(map[int]func(*Outcome)),
		wake:      make(chan struct{}, 1),
		state:     StateIdle,
	}
}

// SetSessionPublisher enables forwarding of session-scoped mutations
func (e *Engine) SetSessionPublisher(p SessionPublisher) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.publisher = p
}

// Submit validates op, durably queues the resulting mutation and applies it
// to the optimistic cache. It never waits for the network. If the queue
// write fails nothing is applied.
func (e *Engine) Submit(ctx context.Context, op Operation) (*OptimisticResult, error) {
	if op.Kind == models.OperationCreate && op.EntityID == "" {
		op.EntityID = uuid.NewString()
	}
	if err := validation.ValidateWrite(op.EntityType, op.EntityID, op.Kind, op.Payload); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidOperation, err)
	}

	e.viewMu.Lock()
	defer e.viewMu.Unlock()

	key := models.EntityKey{Type: op.EntityType, ID: op.EntityID}
	view := e.cache.Get(key)

	var baseVersion int64
	switch op.Kind {
	case models.OperationCreate:
		if view != nil {
			return nil, fmt.Errorf("%w: %s already exists", ErrInvalidOperation, key)
		}
	default:
		if view == nil {
			return nil, fmt.Errorf("%w: %s is unknown", ErrInvalidOperation, key)
		}
		if base := e.cache.Base(key); base != nil {
			baseVersion = base.Version
		}
	}

	return e.enqueueLocked(ctx, &models.Mutation{
		EntityType:  op.EntityType,
		EntityID:    op.EntityID,
		Operation:   op.Kind,
		Payload:     op.Payload,
		BaseVersion: baseVersion,
		SessionID:   op.SessionID,
	})
}

// enqueueLocked ставит мутацию в очередь и только затем применяет ее к кэшу.
// Требует e.viewMu.
func (e *Engine) enqueueLocked(ctx context.Context, m *models.Mutation) (*OptimisticResult, error) {
	m.ID = uuid.NewString()
	m.CreatedAt = e.now()

	id, err := e.queue.Enqueue(ctx, m)
	if err != nil {
		return nil, fmt.Errorf("failed to enqueue mutation: %w", err)
	}
	m.ID = id

	view := e.cache.ApplyOptimistic(m)

	e.logger.Debug("Operation submitted",
		"mutation_id", id,
		"entity_type", m.EntityType,
		"entity_id", m.EntityID,
		"operation", m.Operation,
		"base_version", m.BaseVersion)

	e.Wake()

	return &OptimisticResult{
		MutationID: id,
		Entity:     view,
		Status:     models.StatusPending,
	}, nil
}

// Start launches the drain loop. The loop drains while the monitor reports
// the backend reachable and sleeps until a submit, a connectivity change or
// the end of a backoff window otherwise.
func (e *Engine) Start(ctx context.Context) error {
	e.runMu.Lock()
	defer e.runMu.Unlock()

	if e.cancel != nil {
		return ErrAlreadyRunning
	}

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	e.cancel = cancel
	e.done = done

	unsubscribe := func() {}
	if e.monitor != nil {
		unsubscribe = e.monitor.Subscribe(func(connectivity.Status) { e.Wake() })
	}

	e.setState(StateIdle)

	go func() {
		defer close(done)
		defer unsubscribe()
		e.run(runCtx)
	}()

	e.logger.Info("Sync engine started", "origin", e.origin, "queued", e.queue.Len())
	return nil
}

// Stop stops the drain loop and waits for it to exit and for queued session
// events to be handed to the publisher. A mutation that was being sent stays
// in-flight and is re-sent with the same idempotency key by the next drain.
func (e *Engine) Stop() {
	e.runMu.Lock()
	cancel, done := e.cancel, e.done
	e.cancel, e.done = nil, nil
	e.runMu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	e.pubWG.Wait()

	e.setState(StateDisabled)
	e.logger.Info("Sync engine stopped", "queued", e.queue.Len())
}

// Wake asks the drain loop to look at the queue again
func (e *Engine) Wake() {
	select {
	case e.wake <- struct{}{}:
	default:
	}
}

func (e *Engine) run(ctx context.Context) {
	for {
		var pause time.Duration = -1

		if e.online() {
			if _, err := e.Drain(ctx); err != nil {
				if ctx.Err() != nil {
					return
				}
				e.logger.Error("Drain failed", "error", err)
				pause = e.cfg.Backoff.Base
			}
		}

		if pause < 0 {
			if next, ok := e.queue.NextRetryAt(); ok && e.online() {
				e.setState(StateBackoff)
				pause = max(next.Sub(e.now()), 0)
			} else {
				e.setState(StateIdle)
			}
		}

		var timer *time.Timer
		var fire <-chan time.Time
		if pause >= 0 {
			timer = time.NewTimer(pause)
			fire = timer.C
		}

		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return
		case <-e.wake:
		case <-fire:
		}
		if timer != nil {
			timer.Stop()
		}
	}
}

// Drain sends eligible mutations until the queue has nothing eligible, the
// backend becomes unreachable, or a transient failure puts the head of the
// queue into backoff. Errors are local: storage failures and ctx
// cancellation. Remote failures are reported through the stats and
// OnOutcome.
func (e *Engine) Drain(ctx context.Context) (DrainStats, error) {
	e.drainMu.Lock()
	defer e.drainMu.Unlock()
	defer e.leaveDraining()

	var stats DrainStats
	for {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		if !e.online() {
			return stats, nil
		}

		m, err := e.claimNext(ctx)
		if err != nil {
			return stats, err
		}
		if m == nil {
			return stats, nil
		}

		e.setState(StateDraining)

		out, err := e.send(ctx, m)
		if err != nil {
			return stats, err
		}
		stats.add(out)
		e.emit(out)

		if out.Kind == OutcomeRetrying {
			return stats, nil
		}
	}
}

// claimNext забирает голову очереди и помечает ее отправляемой под
// e.viewMu: Discard видит мутацию либо еще в очереди, либо уже занятой.
func (e *Engine) claimNext(ctx context.Context) (*models.Mutation, error) {
	e.viewMu.Lock()
	defer e.viewMu.Unlock()

	m := e.queue.DequeueNext(e.now())
	if m == nil {
		return nil, nil
	}
	if err := e.queue.MarkInFlight(context.WithoutCancel(ctx), m.ID); err != nil {
		return nil, fmt.Errorf("failed to mark mutation in flight: %w", err)
	}
	e.setSending(m.ID)
	return m, nil
}

// send отправляет занятую claimNext мутацию и обрабатывает ответ
func (e *Engine) send(ctx context.Context, m *models.Mutation) (*Outcome, error) {
	defer e.setSending("")

	// Учет в очереди и кэше не прерывается остановкой движка
	bk := context.WithoutCancel(ctx)

	reqCtx, cancel := context.WithTimeout(ctx, e.cfg.RequestTimeout)
	result, err := e.remote.Write(reqCtx, api.WriteRequest{
		IdempotencyKey: m.ID,
		EntityType:     m.EntityType,
		EntityID:       m.EntityID,
		Operation:      m.Operation,
		Payload:        m.Payload,
		BaseVersion:    m.BaseVersion,
		Origin:         e.origin,
	})
	cancel()

	if err != nil && ctx.Err() != nil {
		// Остановка посреди запроса: мутация остается in-flight
		return nil, ctx.Err()
	}

	switch ce, isConflict := api.IsConflict(err); {
	case err == nil:
		return e.onApplied(bk, m, result)
	case isConflict:
		return e.onConflict(bk, m, ce)
	case errors.Is(err, api.ErrNotFound):
		if m.Operation == models.OperationDelete {
			// Цель удаления уже достигнута
			return e.onGone(bk, m)
		}
		return e.onConflict(bk, m, &api.ConflictError{BaseVersion: m.BaseVersion})
	case errors.Is(err, api.ErrValidation):
		return e.onRejected(bk, m, err)
	default:
		// сюда же ErrForbidden: запись сущностей без тикета, 401/403 отдает прокси
		return e.onTransient(bk, m, err)
	}
}

func (e *Engine) onApplied(ctx context.Context, m *models.Mutation, result *api.WriteResult) (*Outcome, error) {
	entity := e.resolver.Reconcile(m, result)
	key := m.Key()

	e.viewMu.Lock()
	pending := without(e.queue.PendingFor(key), m.ID)
	if entity != nil {
		if err := e.confirmLocked(ctx, entity, pending); err != nil {
			e.viewMu.Unlock()
			return nil, err
		}
		if err := e.queue.AdvanceBase(ctx, key, entity.Version); err != nil {
			e.viewMu.Unlock()
			return nil, fmt.Errorf("failed to advance queued mutations: %w", err)
		}
	}
	if err := e.queue.MarkApplied(ctx, m.ID); err != nil {
		e.viewMu.Unlock()
		return nil, fmt.Errorf("failed to mark mutation applied: %w", err)
	}
	view := e.cache.Get(key)
	e.viewMu.Unlock()

	attrs := []any{
		"mutation_id", m.ID,
		"entity_type", m.EntityType,
		"entity_id", m.EntityID,
		"operation", m.Operation,
		"replayed", result.Replayed,
	}
	if entity != nil {
		attrs = append(attrs, "version", entity.Version)
	}
	e.logger.Info("Mutation applied", attrs...)

	if m.SessionID != "" {
		e.publish(m, entity)
	}

	return &Outcome{Kind: OutcomeApplied, MutationID: m.ID, EntityKey: key, Entity: view}, nil
}

func (e *Engine) onConflict(ctx context.Context, m *models.Mutation, ce *api.ConflictError) (*Outcome, error) {
	key := m.Key()

	res, err := e.resolver.Resolve(ctx, m, ce, e.cache.Base(key))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve conflict: %w", err)
	}

	e.viewMu.Lock()
	if res.Kind == models.ResolutionMerged {
		// Мутация переносится на версию сервера и отправляется снова
		if err := e.queue.Rebase(ctx, m.ID, res.Entity.Version); err != nil {
			e.viewMu.Unlock()
			return nil, fmt.Errorf("failed to rebase mutation: %w", err)
		}
		err = e.confirmLocked(ctx, res.Entity, e.queue.PendingFor(key))
	} else {
		if err := e.queue.Remove(ctx, m.ID); err != nil {
			e.viewMu.Unlock()
			return nil, fmt.Errorf("failed to drop conflicting mutation: %w", err)
		}
		pending := e.queue.PendingFor(key)
		if res.Entity != nil {
			err = e.confirmLocked(ctx, res.Entity, pending)
		} else {
			err = e.cache.Forget(ctx, key, pending)
		}
	}
	view := e.cache.Get(key)
	e.viewMu.Unlock()

	if err != nil {
		return nil, err
	}

	return &Outcome{
		Kind:       OutcomeConflict,
		MutationID: m.ID,
		EntityKey:  key,
		Entity:     view,
		Conflict:   res.Record,
	}, nil
}

func (e *Engine) onGone(ctx context.Context, m *models.Mutation) (*Outcome, error) {
	key := m.Key()

	e.viewMu.Lock()
	if err := e.queue.MarkApplied(ctx, m.ID); err != nil {
		e.viewMu.Unlock()
		return nil, fmt.Errorf("failed to mark mutation applied: %w", err)
	}
	err := e.cache.Forget(ctx, key, e.queue.PendingFor(key))
	view := e.cache.Get(key)
	e.viewMu.Unlock()

	if err != nil {
		return nil, err
	}

	e.logger.Info("Deleted entity was already gone",
		"mutation_id", m.ID,
		"entity_type", m.EntityType,
		"entity_id", m.EntityID)

	return &Outcome{Kind: OutcomeApplied, MutationID: m.ID, EntityKey: key, Entity: view}, nil
}

func (e *Engine) onRejected(ctx context.Context, m *models.Mutation, cause error) (*Outcome, error) {
	key := m.Key()

	e.viewMu.Lock()
	if err := e.queue.Remove(ctx, m.ID); err != nil {
		e.viewMu.Unlock()
		return nil, fmt.Errorf("failed to drop rejected mutation: %w", err)
	}
	// Откат оптимистичного изменения
	e.cache.Rebuild(key, e.queue.PendingFor(key))
	view := e.cache.Get(key)
	e.viewMu.Unlock()

	e.logger.Warn("Mutation rejected",
		"mutation_id", m.ID,
		"entity_type", m.EntityType,
		"entity_id", m.EntityID,
		"operation", m.Operation,
		"error", cause)

	return &Outcome{Kind: OutcomeRejected, MutationID: m.ID, EntityKey: key, Entity: view, Err: cause}, nil
}

func (e *Engine) onTransient(ctx context.Context, m *models.Mutation, cause error) (*Outcome, error) {
	attempt := m.RetryCount + 1
	exhausted := attempt >= e.cfg.MaxRetries
	next := e.now().Add(e.cfg.Backoff.Delay(attempt))

	if err := e.queue.MarkFailed(ctx, m.ID, cause.Error(), next, exhausted); err != nil {
		return nil, fmt.Errorf("failed to mark mutation failed: %w", err)
	}

	out := &Outcome{
		Kind:        OutcomeRetrying,
		MutationID:  m.ID,
		EntityKey:   m.Key(),
		Entity:      e.cache.Get(m.Key()),
		Err:         cause,
		NextRetryAt: next,
	}

	if exhausted {
		out.Kind = OutcomeFailed
		out.NextRetryAt = time.Time{}
		e.logger.Error("Mutation exhausted retries",
			"mutation_id", m.ID,
			"entity_type", m.EntityType,
			"entity_id", m.EntityID,
			"attempts", attempt,
			"error", cause)
		return out, nil
	}

	e.logger.Warn("Mutation failed, will retry",
		"mutation_id", m.ID,
		"attempt", attempt,
		"next_retry_at", next,
		"error", cause)
	return out, nil
}

// confirmLocked делает снимок сервера базой и пересобирает представление,
// даже если снимок уже был известен. Требует e.viewMu.
func (e *Engine) confirmLocked(ctx context.Context, entity *models.Entity, pending []*models.Mutation) error {
	changed, err := e.cache.SetBase(ctx, entity, pending)
	if err != nil {
		return err
	}
	if !changed {
		e.cache.Rebuild(entity.Key(), pending)
	}
	return nil
}

// publish ставит событие сессии в очередь отдельной горутины, чтобы
// медленный сервер сессий не задерживал отправку очереди мутаций.
// События пересылаются в порядке подтверждения.
func (e *Engine) publish(m *models.Mutation, entity *models.Entity) {
	e.mu.Lock()
	p := e.publisher
	e.mu.Unlock()

	if p == nil {
		return
	}

	e.pubMu.Lock()
	if len(e.pubQueue) >= maxPendingPublishes {
		dropped := e.pubQueue[0]
		e.pubQueue = e.pubQueue[1:]
		e.logger.Warn("Session event queue is full, dropping oldest event",
			"session_id", dropped.m.SessionID,
			"mutation_id", dropped.m.ID)
	}
	e.pubQueue = append(e.pubQueue, publishJob{m: m, entity: entity})
	if e.publishing {
		e.pubMu.Unlock()
		return
	}
	e.publishing = true
	e.pubWG.Add(1)
	e.pubMu.Unlock()

	go e.publishLoop(p)
}

func (e *Engine) publishLoop(p SessionPublisher) {
	defer e.pubWG.Done()

	for {
		e.pubMu.Lock()
		if len(e.pubQueue) == 0 {
			e.publishing = false
			e.pubMu.Unlock()
			return
		}
		job := e.pubQueue[0]
		e.pubQueue = e.pubQueue[1:]
		e.pubMu.Unlock()

		e.publishOne(p, job.m, job.entity)
	}
}

func (e *Engine) publishOne(p SessionPublisher, m *models.Mutation, entity *models.Entity) {
	ctx, cancel := context.WithTimeout(context.Background(), e.cfg.RequestTimeout)
	defer cancel()

	if err := p.PublishMutation(ctx, m.SessionID, m, entity); err != nil {
		// События сессии не долговечны: ошибка только логируется
		e.logger.Warn("Failed to publish session event",
			"session_id", m.SessionID,
			"mutation_id", m.ID,
			"error", err)
	}
}

// HandleRemoteChange applies a change feed entry. A snapshot newer than the
// known base becomes the base and queued mutations are replayed on top of
// it. It returns whether the base changed.
func (e *Engine) HandleRemoteChange(ctx context.Context, change models.Change) (bool, error) {
	if change.Entity == nil {
		return false, nil
	}
	key := change.Entity.Key()

	e.viewMu.Lock()
	defer e.viewMu.Unlock()

	changed, err := e.cache.SetBase(ctx, change.Entity, e.queue.PendingFor(key))
	if err != nil {
		return false, err
	}

	if changed {
		e.logger.Debug("Remote change applied",
			"entity_type", key.Type,
			"entity_id", key.ID,
			"version", change.Entity.Version,
			"origin", change.Entity.Origin,
			"own", change.Entity.Origin == e.origin,
			"seq", change.Seq)
	}
	return changed, nil
}

// Fetch reads the current server snapshot of an entity into the cache and
// returns the optimistic view.
func (e *Engine) Fetch(ctx context.Context, entityType, id string) (*models.Entity, error) {
	key := models.EntityKey{Type: entityType, ID: id}

	reqCtx, cancel := context.WithTimeout(ctx, e.cfg.RequestTimeout)
	remote, err := e.remote.Read(reqCtx, entityType, id)
	cancel()

	e.viewMu.Lock()
	defer e.viewMu.Unlock()

	switch {
	case errors.Is(err, api.ErrNotFound):
		if err := e.cache.Forget(ctx, key, e.queue.PendingFor(key)); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	default:
		if _, err := e.cache.SetBase(ctx, remote, e.queue.PendingFor(key)); err != nil {
			return nil, err
		}
	}

	return e.cache.Get(key), nil
}

// Retry gives an exhausted or failed mutation a fresh retry budget
func (e *Engine) Retry(ctx context.Context, id string) error {
	if err := e.queue.ResetRetries(ctx, id); err != nil {
		return fmt.Errorf("failed to reset retries: %w", err)
	}
	e.logger.Info("Mutation scheduled for retry", "mutation_id", id)
	e.Wake()
	return nil
}

// Discard drops a queued mutation and reverts its optimistic change. The
// mutation being sent cannot be discarded and ErrMutationBusy is returned.
func (e *Engine) Discard(ctx context.Context, id string) error {
	e.viewMu.Lock()
	defer e.viewMu.Unlock()

	// claimNext занимает мутацию под тем же e.viewMu
	e.mu.Lock()
	busy := e.sending == id
	e.mu.Unlock()
	if busy {
		return ErrMutationBusy
	}

	m, ok := e.queue.Get(id)
	if !ok {
		return nil
	}
	if err := e.queue.Remove(ctx, id); err != nil {
		return fmt.Errorf("failed to discard mutation: %w", err)
	}
	e.cache.Rebuild(m.Key(), e.queue.PendingFor(m.Key()))

	e.logger.Info("Mutation discarded",
		"mutation_id", id,
		"entity_type", m.EntityType,
		"entity_id", m.EntityID)

	// Следующая мутация той же сущности больше не заблокирована
	e.Wake()
	return nil
}

// ResolveConflict settles a pending conflict. kept-local and merged queue a
// follow-up update based on the remote version seen at conflict time.
// Resolving an already resolved conflict returns it and queues nothing, also
// when two decisions race. If the decision cannot be saved the follow-up is
// withdrawn and the conflict stays pending.
func (e *Engine) ResolveConflict(ctx context.Context, id string, decision models.Resolution, value map[string]any) (*models.ConflictRecord, *OptimisticResult, error) {
	e.resolveMu.Lock()
	defer e.resolveMu.Unlock()

	rec, err := e.resolver.Get(ctx, id)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get conflict: %w", err)
	}
	if rec.Resolved() {
		return rec, nil, nil
	}

	var fields map[string]any
	switch decision {
	case models.ResolutionKeptRemote:
	case models.ResolutionKeptLocal:
		fields = rec.LocalValue
	case models.ResolutionMerged:
		if len(value) == 0 {
			return nil, nil, fmt.Errorf("%w: merged requires a value", conflict.ErrInvalidDecision)
		}
		fields = value
	default:
		return nil, nil, fmt.Errorf("%w: %q", conflict.ErrInvalidDecision, decision)
	}

	var result *OptimisticResult
	if fields != nil {
		if result, err = e.followUp(ctx, rec, fields); err != nil {
			return nil, nil, err
		}
	} else {
		// kept-remote: представление уже равно снимку сервера
		e.viewMu.Lock()
		e.cache.Rebuild(rec.Key(), e.queue.PendingFor(rec.Key()))
		e.viewMu.Unlock()
	}

	settled, _, err := e.resolver.Settle(ctx, id, decision, value)
	if err != nil {
		if result != nil {
			e.withdraw(ctx, rec.Key(), result.MutationID)
		}
		return nil, nil, err
	}
	return settled, result, nil
}

// withdraw убирает еще не отправленную мутацию решения конфликта
func (e *Engine) withdraw(ctx context.Context, key models.EntityKey, id string) {
	e.viewMu.Lock()
	defer e.viewMu.Unlock()

	e.mu.Lock()
	busy := e.sending == id
	e.mu.Unlock()
	if busy {
		return
	}

	if err := e.queue.Remove(context.WithoutCancel(ctx), id); err != nil {
		e.logger.Error("Failed to withdraw conflict follow-up",
			"mutation_id", id,
			"error", err)
		return
	}
	e.cache.Rebuild(key, e.queue.PendingFor(key))
}

// followUp ставит в очередь запись, реализующую решение по конфликту
func (e *Engine) followUp(ctx context.Context, rec *models.ConflictRecord, fields map[string]any) (*OptimisticResult, error) {
	m := &models.Mutation{
		EntityType: rec.EntityType,
		EntityID:   rec.EntityID,
		Operation:  models.OperationUpdate,
		Payload:    models.CloneFields(fields),
	}
	if rec.RemoteDeleted || rec.RemoteVersion == 0 {
		// Сущность удалена на сервере: решение восстанавливает ее
		m.Operation = models.OperationCreate
		m.Payload = models.ApplyFields(models.CloneFields(rec.RemoteValue), fields)
	} else {
		m.BaseVersion = rec.RemoteVersion
	}

	if err := validation.ValidateWrite(m.EntityType, m.EntityID, m.Operation, m.Payload); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidOperation, err)
	}

	e.viewMu.Lock()
	defer e.viewMu.Unlock()

	return e.enqueueLocked(ctx, m)
}

// OnOutcome registers a listener for send outcomes. Listeners run on the
// drain goroutine and must not block.
func (e *Engine) OnOutcome(l func(*Outcome)) func() {
	e.mu.Lock()
	defer e.mu.Unlock()

	id := e.nextID
	e.nextID++
	e.listeners[id] = l

	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		delete(e.listeners, id)
	}
}

func (e *Engine) emit(out *Outcome) {
	e.mu.Lock()
	ls := make([]func(*Outcome), 0, len(e.listeners))
	for _, l := range e.listeners {
		ls = append(ls, l)
	}
	e.mu.Unlock()

	for _, l := range ls {
		l(out)
	}
}

// Entity returns the optimistic view of one entity, nil if unknown or deleted
func (e *Engine) Entity(entityType, id string) *models.Entity {
	return e.cache.Get(models.EntityKey{Type: entityType, ID: id})
}

// Entities returns the optimistic views of one type, all types for ""
func (e *Engine) Entities(entityType string) []*models.Entity {
	return e.cache.List(entityType)
}

// Pending returns the queued mutations in queue order
func (e *Engine) Pending() []*models.Mutation {
	return e.queue.Snapshot()
}

// Conflicts returns the conflicts waiting for a decision
func (e *Engine) Conflicts(ctx context.Context) ([]*models.ConflictRecord, error) {
	return e.resolver.Unresolved(ctx)
}

// State returns the drain loop state
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.state
}

func (e *Engine) setState(s State) {
	e.mu.Lock()
	prev := e.state
	e.state = s
	e.mu.Unlock()

	if prev != s {
		e.logger.Debug("Sync engine state changed", "from", prev, "to", s)
	}
}

func (e *Engine) leaveDraining() {
	if e.State() == StateDraining {
		e.setState(StateIdle)
	}
}

func (e *Engine) setSending(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.sending = id
}

func (e *Engine) online() bool {
	return e.monitor == nil || e.monitor.Status().BackendReachable
}

// without возвращает мутации без указанной
func without(ms []*models.Mutation, id string) []*models.Mutation {
	out := ms[:0]
	for _, m := range ms {
		if m.ID != id {
			out = append(out, m)
		}
	}
	return out
}
