package worker

import (
	"context"
	"log/slog"

	audit "mintgate/pkg/platform/audit"
)

// Gate decides whether a write should be attempted and learns from the
// outcome. The publisher's circuit breaker satisfies it.
type Gate interface {
	Allow() bool
	RecordSuccess()
	RecordFailure()
}

// Hooks receives per-event outcomes. All methods must be safe to call from
// the worker goroutine.
type Hooks interface {
	IncPersisted()
	IncPersistFailures()
	IncBreakerDropped()
}

// Worker consumes audit events from a channel and persists them until the
// channel is closed. Persistence failures are logged and the worker keeps
// going: audit is best effort and never stalls the caller.
type Worker struct {
	store  audit.Store
	inbox  <-chan audit.Event
	logger *slog.Logger
	gate   Gate
	hooks  Hooks
}

type Option func(*Worker)

func WithLogger(logger *slog.Logger) Option {
	return func(w *Worker) {
		w.logger = logger
	}
}

func WithGate(gate Gate) Option {
	return func(w *Worker) {
		w.gate = gate
	}
}

func WithHooks(hooks Hooks) Option {
	return func(w *Worker) {
		w.hooks = hooks
	}
}

func NewWorker(store audit.Store, inbox <-chan audit.Event, opts ...Option) *Worker {
	w := &Worker{store: store, inbox: inbox, logger: slog.Default()}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run drains the inbox. It returns once the inbox is closed and empty; ctx
// is only used for the store writes so that in-flight events still land
// during shutdown.
func (w *Worker) Run(ctx context.Context) error {
	for event := range w.inbox {
		w.Handle(ctx, event)
	}
	return nil
}

// Handle persists a single event.
func (w *Worker) Handle(ctx context.Context, event audit.Event) {
	if w.gate != nil && !w.gate.Allow() {
		if w.hooks != nil {
			w.hooks.IncBreakerDropped()
		}
		return
	}
	if err := w.store.Append(ctx, event); err != nil {
		if w.gate != nil {
			w.gate.RecordFailure()
		}
		if w.hooks != nil {
			w.hooks.IncPersistFailures()
		}
		w.logger.WarnContext(ctx, "failed to persist audit event",
			"action", event.Action,
			"subject", event.Subject,
			"error", err,
		)
		return
	}
	if w.gate != nil {
		w.gate.RecordSuccess()
	}
	if w.hooks != nil {
		w.hooks.IncPersisted()
	}
}
