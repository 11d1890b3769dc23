package publisher

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	audit "mintgate/pkg/platform/audit"
	"mintgate/pkg/platform/audit/worker"
)

var (
	// ErrBufferFull is returned by Emit in async mode when the event could
	// not be queued. The event is dropped.
	ErrBufferFull = errors.New("audit buffer full")
	// ErrClosed is returned by Emit after Close.
	ErrClosed = errors.New("audit publisher closed")
	// ErrListUnsupported is returned by List when the store cannot be read.
	ErrListUnsupported = errors.New("audit store does not support listing")
)

// Publisher stamps and forwards audit events to a Store. In sync mode Emit
// writes through; in async mode events are queued on a bounded buffer and a
// single worker persists them in order.
type Publisher struct {
	store   audit.Store
	logger  *slog.Logger
	metrics *Metrics
	breaker *CircuitBreaker
	now     func() time.Time

	bufferSize int
	queue      chan audit.Event
	done       chan struct{}

	mu     sync.RWMutex
	closed bool
}

type Option func(*Publisher)

// WithAsyncBuffer enables async mode with a buffer of n events.
func WithAsyncBuffer(n int) Option {
	return func(p *Publisher) {
		p.bufferSize = n
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

func WithMetrics(m *Metrics) Option {
	return func(p *Publisher) {
		p.metrics = m
	}
}

// WithCircuitBreaker guards async persistence with cb.
func WithCircuitBreaker(cb *CircuitBreaker) Option {
	return func(p *Publisher) {
		p.breaker = cb
	}
}

func WithClock(now func() time.Time) Option {
	return func(p *Publisher) {
		p.now = now
	}
}

func NewPublisher(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{
		store:  store,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.bufferSize > 0 {
		p.queue = make(chan audit.Event, p.bufferSize)
		p.done = make(chan struct{})
		wopts := []worker.Option{worker.WithLogger(p.logger), worker.WithHooks(p.metrics)}
		if p.breaker != nil {
			wopts = append(wopts, worker.WithGate(p.breaker))
		}
		w := worker.NewWorker(store, p.queue, wopts...)
		go func() {
			defer close(p.done)
			_ = w.Run(context.Background())
		}()
	}
	return p
}

// Emit stamps the event (timestamp, category) and persists or queues it.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = p.now()
	}
	if event.Category == "" {
		event.Category = audit.AuditEvent(event.Action).Category()
	}

	if p.queue == nil {
		if err := p.store.Append(ctx, event); err != nil {
			p.metrics.IncPersistFailures()
			return err
		}
		p.metrics.IncPersisted()
		return nil
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}
	select {
	case p.queue <- event:
		return nil
	default:
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	p.metrics.IncBufferDropped()
	p.logger.WarnContext(ctx, "audit buffer full, dropping event",
		"action", event.Action,
		"subject", event.Subject,
	)
	return ErrBufferFull
}

// List returns the events recorded for subject when the store supports
// reads.
func (p *Publisher) List(ctx context.Context, subject string) ([]audit.Event, error) {
	reader, ok := p.store.(audit.Reader)
	if !ok {
		return nil, ErrListUnsupported
	}
	return reader.ListBySubject(ctx, subject)
}

// Close stops accepting events and waits for queued events to be written.
// It is safe to call more than once.
func (p *Publisher) Close() {
	if p.queue == nil {
		return
	}
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		<-p.done
		return
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()
	<-p.done
}
