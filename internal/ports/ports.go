// Package ports defines the interfaces the allocation core consumes from
// the outside world. Interfaces live here because both the access registry
// and the allocation engine depend on them.
package ports

import (
	"context"
	"log/slog"

	id "mintgate/pkg/domain"
	"mintgate/pkg/attrs"
	"mintgate/pkg/platform/audit"
	"mintgate/pkg/requestcontext"
)

// AuditPublisher emits audit events for state-changing operations.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Ledger is the asset registry the engine records approved allocations in.
type Ledger interface {
	// Mint registers ownership of a fresh identifier. Fails if id already
	// exists or the recipient is invalid.
	Mint(ctx context.Context, recipient id.Principal, tokenID id.TokenID) error

	// SetURIResolutionData associates a content reference with id. Overwrites.
	SetURIResolutionData(ctx context.Context, tokenID id.TokenID, metadataRef string) error

	// SetBaseURI replaces the shared prefix used by ResolveURI.
	SetBaseURI(ctx context.Context, prefix string) error

	// ResolveURI returns prefix + metadataRef for a minted identifier.
	ResolveURI(ctx context.Context, tokenID id.TokenID) (string, error)

	// Burn removes a freshly minted identifier. The engine only calls it to
	// undo a mint whose URI registration failed.
	Burn(ctx context.Context, tokenID id.TokenID) error
}

// LogAudit logs an audit event and forwards it to the publisher if one is
// configured. Publishing is best effort: a failure is logged, never returned.
func LogAudit(ctx context.Context, logger *slog.Logger, publisher AuditPublisher, event audit.AuditEvent, actor id.Principal, subject string, attrList ...any) {
	requestID := requestcontext.RequestID(ctx)

	args := append([]any{}, attrList...)
	args = append(args, "actor", actor.String())
	if subject != "" {
		args = append(args, "subject", subject)
	}
	if requestID != "" {
		args = append(args, "request_id", requestID)
	}
	args = append(args, "event", string(event), "log_type", "audit")

	if logger != nil {
		logger.InfoContext(ctx, string(event), args...)
	}

	if publisher == nil {
		return
	}
	err := publisher.Emit(ctx, audit.Event{
		Category:   event.Category(),
		Timestamp:  requestcontext.Now(ctx),
		Actor:      actor,
		Subject:    subject,
		Action:     string(event),
		RequestID:  requestID,
		Attributes: attrs.ToStringMap(attrList),
	})
	if err != nil && logger != nil {
		logger.WarnContext(ctx, "failed to emit audit event", "event", string(event), "error", err)
	}
}
