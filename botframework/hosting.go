// Copyright (c) Microsoft. All rights reserved.

package botframework

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultShutdownTimeout bounds both the shutdown-barrier acquisition and the
// in-flight drain during Stop.
const DefaultShutdownTimeout = 60 * time.Second

// ServiceState is the lifecycle state of a hosted service.
type ServiceState int32

const (
	StateStarting ServiceState = iota
	StateRunning
	StateStopping
	StateStopped
)

func (s ServiceState) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	}
	return "unknown"
}

// shutdownBarrier is a one-way valve from "accepting work" to "draining".
// Shared acquisition brackets the registration of new work; exclusive
// acquisition is taken once at shutdown and never released, permanently
// refusing further shared acquisitions.
type shutdownBarrier struct {
	mu       sync.Mutex
	draining bool
	holders  int
	idle     chan struct{}
}

// acquireShared succeeds unless draining has begun. The draining transition
// is irreversible, so there is nothing to wait for on failure.
func (b *shutdownBarrier) acquireShared() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.draining {
		return false
	}
	b.holders++
	return true
}

// beginDraining closes the valve without waiting for holders: subsequent
// shared acquisitions fail immediately. Exclusive acquisition still waits for
// the holders that got in before the transition.
func (b *shutdownBarrier) beginDraining() {
	b.mu.Lock()
	b.draining = true
	b.mu.Unlock()
}

func (b *shutdownBarrier) releaseShared() {
	b.mu.Lock()
	b.holders--
	if b.draining && b.holders == 0 && b.idle != nil {
		close(b.idle)
		b.idle = nil
	}
	b.mu.Unlock()
}

// acquireExclusive marks the barrier draining and waits, bounded by timeout,
// for current shared holders to release. It returns false if holders remain
// when the timeout elapses; draining stays set either way.
func (b *shutdownBarrier) acquireExclusive(timeout time.Duration) bool {
	b.mu.Lock()
	b.draining = true
	if b.holders == 0 {
		b.mu.Unlock()
		return true
	}
	idle := make(chan struct{})
	b.idle = idle
	b.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-idle:
		return true
	case <-timer.C:
		return false
	}
}

// inflightRegistry tracks processing tasks from spawn to completion. Its live
// entries are exactly the set of activities currently being processed.
type inflightRegistry struct {
	seq   atomic.Uint64
	tasks sync.Map // uint64 → chan struct{}, closed on completion
}

func (r *inflightRegistry) add() (uint64, chan struct{}) {
	id := r.seq.Add(1)
	done := make(chan struct{})
	r.tasks.Store(id, done)
	return id, done
}

// complete marks the task finished and sweeps every completed entry out of
// the registry. Concurrent sweeps are safe: sync.Map.Delete of an
// already-removed key is a no-op, so each entry is removed exactly once.
func (r *inflightRegistry) complete(id uint64, done chan struct{}) {
	close(done)
	r.sweep()
}

func (r *inflightRegistry) sweep() {
	r.tasks.Range(func(key, value any) bool {
		if taskDone(value.(chan struct{})) {
			r.tasks.Delete(key)
		}
		return true
	})
}

func taskDone(ch chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}

func (r *inflightRegistry) size() int {
	n := 0
	r.tasks.Range(func(any, any) bool { n++; return true })
	return n
}

// drain waits, bounded by timeout, for every currently registered task to
// complete. It returns false when the timeout elapses with tasks remaining.
func (r *inflightRegistry) drain(timeout time.Duration) bool {
	var pending []chan struct{}
	r.tasks.Range(func(_, value any) bool {
		pending = append(pending, value.(chan struct{}))
		return true
	})

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	for _, ch := range pending {
		select {
		case <-ch:
		case <-timer.C:
			return false
		}
	}
	return true
}

// ActivityProcessor is the adapter capability the hosted service dispatches
// to. Both [CloudAdapter] and [AsyncCloudAdapter] satisfy it.
type ActivityProcessor interface {
	ProcessActivity(ctx context.Context, identity *ClaimsIdentity, activity *Activity, handler TurnHandler) (*InvokeResponse, error)
}

type hostingConfig struct {
	logger          *slog.Logger
	metrics         *Metrics
	shutdownTimeout time.Duration
}

// HostingOption configures a [HostedActivityService] or [HostedTaskService].
type HostingOption func(*hostingConfig)

// WithHostingLogger sets the service's logger. Defaults to slog.Default().
func WithHostingLogger(logger *slog.Logger) HostingOption {
	return func(c *hostingConfig) { c.logger = logger }
}

// WithHostingMetrics attaches Prometheus instrumentation.
func WithHostingMetrics(m *Metrics) HostingOption {
	return func(c *hostingConfig) { c.metrics = m }
}

// WithShutdownTimeout bounds the shutdown-barrier acquisition and in-flight
// drain during Stop. Defaults to [DefaultShutdownTimeout].
func WithShutdownTimeout(d time.Duration) HostingOption {
	return func(c *hostingConfig) { c.shutdownTimeout = d }
}

func newHostingConfig(opts []HostingOption) *hostingConfig {
	cfg := &hostingConfig{
		logger:          slog.Default(),
		shutdownTimeout: DefaultShutdownTimeout,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}
	return cfg
}

// HostedActivityService is the background worker for the asynchronous
// dispatch path. It dequeues envelopes from an [ActivityQueue] and runs each
// bot turn on its own goroutine, tracking in-flight turns so Stop can drain
// them before the process exits.
//
// Turns are not capacity-limited here; load shedding belongs to the HTTP
// layer and platform autoscaling. In-flight turns may complete out of order,
// including turns for the same conversation.
type HostedActivityService struct {
	queue     *ActivityQueue
	processor ActivityProcessor
	bot       Bot
	logger    *slog.Logger
	metrics   *Metrics

	shutdownTimeout time.Duration
	barrier         shutdownBarrier
	registry        inflightRegistry

	state    atomic.Int32
	cancel   context.CancelFunc
	loopDone chan struct{}
}

// NewHostedActivityService creates the worker. The queue must be the same
// instance the [AsyncCloudAdapter] enqueues onto.
func NewHostedActivityService(queue *ActivityQueue, processor ActivityProcessor, bot Bot, opts ...HostingOption) *HostedActivityService {
	cfg := newHostingConfig(opts)
	return &HostedActivityService{
		queue:           queue,
		processor:       processor,
		bot:             bot,
		logger:          cfg.logger,
		metrics:         cfg.metrics,
		shutdownTimeout: cfg.shutdownTimeout,
		loopDone:        make(chan struct{}),
	}
}

// State returns the service's lifecycle state.
func (s *HostedActivityService) State() ServiceState {
	return ServiceState(s.state.Load())
}

// Start launches the dispatch loop and returns immediately. ctx bounds the
// loop's lifetime: cancelling it stops dequeuing, but already-spawned turns
// keep running until Stop drains them.
func (s *HostedActivityService) Start(ctx context.Context) error {
	if !s.state.CompareAndSwap(int32(StateStarting), int32(StateRunning)) {
		return fmt.Errorf("%w: service already started", ErrHosting)
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.logger.InfoContext(ctx, "hosted activity service started")
	go s.run(ctx)
	return nil
}

func (s *HostedActivityService) run(ctx context.Context) {
	defer close(s.loopDone)
	for {
		item, err := s.queue.WaitAndDequeue(ctx)
		if err != nil {
			s.logger.InfoContext(ctx, "activity dispatch loop stopping", "reason", err)
			return
		}
		if item == nil {
			// Lost a wakeup race; try again.
			continue
		}
		s.metrics.observeQueueDepth(s.queue.Len())
		s.dispatch(ctx, item)
	}
}

// dispatch spawns a processing goroutine for item, or drops it when the
// shutdown fence has already closed. Reports whether the item was accepted.
func (s *HostedActivityService) dispatch(ctx context.Context, item *ActivityWithClaims) bool {
	if !s.barrier.acquireShared() {
		// Deliberate data-loss point: the async path is at-most-once
		// under shutdown.
		s.metrics.activityDropped()
		s.logger.ErrorContext(ctx, "activity dropped, shutdown in progress",
			"activity_type", item.Activity.Type,
			"conversation_id", conversationID(item.Activity),
		)
		return false
	}
	id, done := s.registry.add()
	go s.processActivity(ctx, item, id, done)
	// Registration, not execution, is the critical section.
	s.barrier.releaseShared()
	return true
}

func (s *HostedActivityService) processActivity(ctx context.Context, item *ActivityWithClaims, id uint64, done chan struct{}) {
	defer s.registry.complete(id, done)
	defer s.metrics.inflightDec()
	defer func() {
		if r := recover(); r != nil {
			s.logger.ErrorContext(ctx, "panic during background activity processing", "panic", r)
		}
	}()
	s.metrics.inflightInc()

	if _, err := s.processor.ProcessActivity(ctx, item.ClaimsIdentity, item.Activity, s.bot.OnTurn); err != nil {
		// The HTTP caller already got its 200; failures are logged only.
		s.logger.ErrorContext(ctx, "background activity processing failed",
			"error", err,
			"activity_type", item.Activity.Type,
			"conversation_id", conversationID(item.Activity),
		)
		return
	}
	s.metrics.activityProcessed()
}

// Stop fences out new work, halts dequeuing, and waits for in-flight turns
// to complete, each phase bounded by the shutdown timeout. Envelopes the loop
// dequeues after the fence closes are dropped and counted. Work remaining
// after the grace period is abandoned with a log; Stop never blocks the host
// indefinitely.
func (s *HostedActivityService) Stop(ctx context.Context) error {
	if !s.state.CompareAndSwap(int32(StateRunning), int32(StateStopping)) {
		return nil
	}
	s.logger.InfoContext(ctx, "hosted activity service stopping")
	// Close the valve before stopping the loop: anything dequeued from here
	// on hits the drop path instead of spawning a new turn.
	s.barrier.beginDraining()
	s.cancel()

	loopTimer := time.NewTimer(s.shutdownTimeout)
	defer loopTimer.Stop()
	select {
	case <-s.loopDone:
	case <-loopTimer.C:
		s.logger.ErrorContext(ctx, "timed out waiting for dispatch loop to exit")
	case <-ctx.Done():
		return ctx.Err()
	}

	if !s.barrier.acquireExclusive(s.shutdownTimeout) {
		s.logger.ErrorContext(ctx, "timed out acquiring shutdown barrier")
	}
	if !s.registry.drain(s.shutdownTimeout) {
		s.logger.WarnContext(ctx, "shutdown grace period elapsed with activities still in flight",
			"remaining", s.registry.size(),
		)
	}

	s.state.Store(int32(StateStopped))
	s.logger.InfoContext(ctx, "hosted activity service stopped")
	return nil
}

// HostedTaskService is the sibling worker for generic deferred closures
// queued on a [BackgroundQueue]. Same lifecycle as [HostedActivityService],
// without per-item claims or activity bookkeeping.
type HostedTaskService struct {
	queue   *BackgroundQueue
	logger  *slog.Logger
	metrics *Metrics

	shutdownTimeout time.Duration
	barrier         shutdownBarrier
	registry        inflightRegistry

	state    atomic.Int32
	cancel   context.CancelFunc
	loopDone chan struct{}
}

// NewHostedTaskService creates the worker over queue.
func NewHostedTaskService(queue *BackgroundQueue, opts ...HostingOption) *HostedTaskService {
	cfg := newHostingConfig(opts)
	return &HostedTaskService{
		queue:           queue,
		logger:          cfg.logger,
		metrics:         cfg.metrics,
		shutdownTimeout: cfg.shutdownTimeout,
		loopDone:        make(chan struct{}),
	}
}

// State returns the service's lifecycle state.
func (s *HostedTaskService) State() ServiceState {
	return ServiceState(s.state.Load())
}

// Start launches the dispatch loop and returns immediately.
func (s *HostedTaskService) Start(ctx context.Context) error {
	if !s.state.CompareAndSwap(int32(StateStarting), int32(StateRunning)) {
		return fmt.Errorf("%w: service already started", ErrHosting)
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.logger.InfoContext(ctx, "hosted task service started")
	go s.run(ctx)
	return nil
}

func (s *HostedTaskService) run(ctx context.Context) {
	defer close(s.loopDone)
	for {
		work, err := s.queue.WaitAndDequeue(ctx)
		if err != nil {
			s.logger.InfoContext(ctx, "task dispatch loop stopping", "reason", err)
			return
		}
		if work == nil {
			continue
		}
		s.dispatch(ctx, work)
	}
}

// dispatch spawns a goroutine for work, or drops it when the shutdown fence
// has already closed. Reports whether the task was accepted.
func (s *HostedTaskService) dispatch(ctx context.Context, work Task) bool {
	if !s.barrier.acquireShared() {
		s.logger.ErrorContext(ctx, "background task dropped, shutdown in progress")
		return false
	}
	id, done := s.registry.add()
	go s.runTask(ctx, work, id, done)
	s.barrier.releaseShared()
	return true
}

func (s *HostedTaskService) runTask(ctx context.Context, work Task, id uint64, done chan struct{}) {
	defer s.registry.complete(id, done)
	defer func() {
		if r := recover(); r != nil {
			s.logger.ErrorContext(ctx, "panic during background task", "panic", r)
		}
	}()
	if err := work(ctx); err != nil {
		s.logger.ErrorContext(ctx, "background task failed", "error", err)
	}
}

// Stop halts dequeuing and drains outstanding tasks, bounded by the shutdown
// timeout.
func (s *HostedTaskService) Stop(ctx context.Context) error {
	if !s.state.CompareAndSwap(int32(StateRunning), int32(StateStopping)) {
		return nil
	}
	s.logger.InfoContext(ctx, "hosted task service stopping")
	s.barrier.beginDraining()
	s.cancel()

	loopTimer := time.NewTimer(s.shutdownTimeout)
	defer loopTimer.Stop()
	select {
	case <-s.loopDone:
	case <-loopTimer.C:
		s.logger.ErrorContext(ctx, "timed out waiting for dispatch loop to exit")
	case <-ctx.Done():
		return ctx.Err()
	}

	if !s.barrier.acquireExclusive(s.shutdownTimeout) {
		s.logger.ErrorContext(ctx, "timed out acquiring shutdown barrier")
	}
	if !s.registry.drain(s.shutdownTimeout) {
		s.logger.WarnContext(ctx, "shutdown grace period elapsed with tasks still in flight",
			"remaining", s.registry.size(),
		)
	}

	s.state.Store(int32(StateStopped))
	s.logger.InfoContext(ctx, "hosted task service stopped")
	return nil
}
