package outbox

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"mintgate/pkg/platform/audit/store/kafka"
	"mintgate/pkg/platform/audit/store/postgres"
)

// Outbox is the slice of the postgres store the relay drives.
type Outbox interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
	Pending(ctx context.Context, limit int) ([]postgres.Entry, error)
	MarkPublished(ctx context.Context, ids []uuid.UUID) error
}

// Relay forwards unpublished outbox rows to Kafka. A batch is locked,
// produced and marked inside one transaction, so a crash between produce
// and commit re-sends the batch (at-least-once).
type Relay struct {
	outbox   Outbox
	producer kafka.Producer
	topic    string
	batch    int
	interval time.Duration
	logger   *slog.Logger
}

type Option func(*Relay)

func WithBatchSize(n int) Option {
	return func(r *Relay) {
		if n > 0 {
			r.batch = n
		}
	}
}

func WithInterval(d time.Duration) Option {
	return func(r *Relay) {
		if d > 0 {
			r.interval = d
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(r *Relay) {
		r.logger = logger
	}
}

func NewRelay(outbox Outbox, producer kafka.Producer, topic string, opts ...Option) *Relay {
	r := &Relay{
		outbox:   outbox,
		producer: producer,
		topic:    topic,
		batch:    100,
		interval: time.Second,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run polls until ctx is cancelled. Failed batches are logged and retried on
// the next tick.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			for {
				n, err := r.RunOnce(ctx)
				if err != nil {
					if ctx.Err() == nil {
						r.logger.WarnContext(ctx, "outbox relay batch failed", "error", err)
					}
					break
				}
				if n < r.batch {
					break
				}
			}
		}
	}
}

// RunOnce publishes at most one batch and returns how many rows it sent.
func (r *Relay) RunOnce(ctx context.Context) (int, error) {
	sent := 0
	err := r.outbox.WithinTx(ctx, func(ctx context.Context) error {
		entries, err := r.outbox.Pending(ctx, r.batch)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			return nil
		}
		ids := make([]uuid.UUID, 0, len(entries))
		for _, e := range entries {
			rec := kafka.NewRecord(r.topic, e.ID.String(), e.Subject, e.EventType, e.Payload)
			if err := r.producer.ProduceSync(ctx, rec).FirstErr(); err != nil {
				return fmt.Errorf("produce outbox entry %s: %w", e.ID, err)
			}
			ids = append(ids, e.ID)
		}
		if err := r.outbox.MarkPublished(ctx, ids); err != nil {
			return err
		}
		sent = len(ids)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return sent, nil
}
