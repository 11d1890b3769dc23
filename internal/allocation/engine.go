// Package allocation implements the mint-slot allocation engine: three
// quota-bound channels (whitelist, public, admin), a per-participant cap, a
// sale flag that switches between whitelist and public windows, and a global
// pause flag.
//
// The engine, including its access registry, is one aggregate guarded by one
// RWMutex. Every check and the commit that follows it run under the write
// lock, so concurrent callers observe allocations as if run one at a time.
package allocation

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"mintgate/internal/access"
	"mintgate/internal/allocation/models"
	"mintgate/internal/platform/metrics"
	"mintgate/internal/ports"
	id "mintgate/pkg/domain"
	dErrors "mintgate/pkg/domain-errors"
)

const tracerName = "mintgate/internal/allocation"

// Type aliases for shared interfaces.
type (
	Ledger         = ports.Ledger
	AuditPublisher = ports.AuditPublisher
)

type Engine struct {
	mu sync.RWMutex

	registry *access.Registry
	ledger   Ledger

	quotas         models.Quotas
	counters       models.Counters
	minted         map[id.Principal]int
	records        map[id.TokenID]models.Record
	saleActive     bool
	paused         bool
	metadataPrefix string

	strictQuotas bool

	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *metrics.Metrics
	tracer         trace.Tracer
}

type Option func(*Engine)

// HolderCounter reports how many identifiers a ledger already holds.
type HolderCounter interface {
	Count(ctx context.Context) (int, error)
}

// RequireEmptyLedger fails with ErrLedgerNotEmpty when l already holds
// identifiers. Counters, per-participant counts and records live only in
// engine memory, so an engine started over a populated ledger would count
// from zero and could allocate past the total cap.
func RequireEmptyLedger(ctx context.Context, l HolderCounter) error {
	n, err := l.Count(ctx)
	if err != nil {
		return fmt.Errorf("count ledger holders: %w", err)
	}
	if n > 0 {
		return dErrors.Wrap(fmt.Errorf("%d identifiers already held", n), models.CodeLedgerNotEmpty,
			"ledger already holds allocations the engine cannot restore")
	}
	return nil
}

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(e *Engine) {
		e.auditPublisher = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(e *Engine) {
		e.tracer = tracer
	}
}

// WithStrictQuotas makes SetQuotas reject negative values and reserved
// channels that exceed the total with InvalidQuotas. Without it the
// arithmetic is unguarded and a negative public quota closes the public
// channel.
func WithStrictQuotas() Option {
	return func(e *Engine) {
		e.strictQuotas = true
	}
}

// WithQuotas seeds the quota set at construction without emitting an event.
func WithQuotas(total, whitelist, admin int64) Option {
	return func(e *Engine) {
		e.quotas = models.NewQuotas(total, whitelist, admin)
	}
}

// New creates an engine owned by owner that records allocations in ledger.
// All quotas start at zero, so every channel is closed until configured.
func New(owner id.Principal, ledger Ledger, opts ...Option) (*Engine, error) {
	if ledger == nil {
		return nil, fmt.Errorf("ledger is required")
	}

	e := &Engine{
		ledger:  ledger,
		minted:  make(map[id.Principal]int),
		records: make(map[id.TokenID]models.Record),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.tracer == nil {
		e.tracer = otel.Tracer(tracerName)
	}
	if e.strictQuotas {
		if err := e.quotas.Validate(); err != nil {
			return nil, err
		}
	}

	// The registry reads the pause flag while the engine lock is held by the
	// calling operation, so the closure must not lock.
	registry, err := access.New(owner, func() bool { return e.paused },
		access.WithLogger(e.logger),
		access.WithAuditPublisher(e.auditPublisher),
	)
	if err != nil {
		return nil, err
	}
	e.registry = registry
	return e, nil
}

// =============================================================================
// Query surface
// =============================================================================

func (e *Engine) Owner() id.Principal {
	return e.registry.Owner()
}

func (e *Engine) Quotas() models.Quotas {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.quotas
}

func (e *Engine) Counters() models.Counters {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.counters
}

func (e *Engine) SaleActive() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.saleActive
}

func (e *Engine) Paused() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.paused
}

func (e *Engine) BaseMetadataPrefix() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.metadataPrefix
}

// MintedBy returns how many allocations are attributed to p.
func (e *Engine) MintedBy(p id.Principal) int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.minted[p]
}

func (e *Engine) IsPrivileged(p id.Principal) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.registry.IsPrivileged(p)
}

func (e *Engine) IsPreApproved(p id.Principal) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.registry.IsPreApproved(p)
}

// Participant returns the per-principal view in one consistent read.
func (e *Engine) Participant(p id.Principal) models.Participant {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return models.Participant{
		Principal:   p,
		Minted:      e.minted[p],
		Privileged:  e.registry.IsPrivileged(p),
		PreApproved: e.registry.IsPreApproved(p),
	}
}

// Record returns the allocation record for tokenID.
//
// Errors: UnknownIdentifier if the engine never allocated tokenID.
func (e *Engine) Record(tokenID id.TokenID) (models.Record, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	rec, ok := e.records[tokenID]
	if !ok {
		return models.Record{}, models.ErrUnknownIdentifier
	}
	return rec, nil
}

// TokenURI resolves the full metadata URI through the ledger. The engine lock
// is released before the ledger call.
func (e *Engine) TokenURI(ctx context.Context, tokenID id.TokenID) (string, error) {
	if _, err := e.Record(tokenID); err != nil {
		return "", err
	}
	uri, err := e.ledger.ResolveURI(ctx, tokenID)
	if err != nil {
		return "", translateLedgerError(err)
	}
	return uri, nil
}

// Status returns a consistent snapshot of every flag, bound and counter
// together with the derived open/closed state of each channel.
func (e *Engine) Status() models.Status {
	e.mu.RLock()
	defer e.mu.RUnlock()

	open := make(map[models.Channel]bool, len(models.Channels))
	for _, c := range models.Channels {
		open[c] = c.Open(e.quotas, e.counters, e.saleActive, e.paused)
	}
	return models.Status{
		Owner:              e.registry.Owner(),
		Quotas:             e.quotas,
		Counters:           e.counters,
		SaleActive:         e.saleActive,
		Paused:             e.paused,
		BaseMetadataPrefix: e.metadataPrefix,
		MaxPerParticipant:  models.MaxPerParticipant,
		Open:               open,
	}
}

// Privileged lists privileged principals in sorted order.
func (e *Engine) Privileged() []id.Principal {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.registry.Privileged()
}

// PreApproved lists pre-approved principals in sorted order.
func (e *Engine) PreApproved() []id.Principal {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.registry.PreApproved()
}

// BeforeTransfer lets the ledger consult the pause flag. It takes the read
// lock, so the ledger must never call it from inside an engine operation.
func (e *Engine) BeforeTransfer(_ context.Context, _, _ id.Principal, _ id.TokenID) error {
	if e.Paused() {
		return models.ErrSystemPaused
	}
	return nil
}
