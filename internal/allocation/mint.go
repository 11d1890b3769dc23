package allocation

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"mintgate/internal/allocation/models"
	"mintgate/internal/ports"
	id "mintgate/pkg/domain"
	"mintgate/pkg/platform/audit"
	"mintgate/pkg/requestcontext"
)

// MintWhitelist allocates req.ID to caller through the whitelist channel.
//
// Errors, first failing check wins: SystemPaused, TotalMintLimitExceeded,
// PerAddressLimitExceeded, SaleActiveCannotWhitelist, WhitelistLimitExceeded,
// NotPreApproved, then any ledger error.
func (e *Engine) MintWhitelist(ctx context.Context, caller id.Principal, req models.MintRequest) (models.Record, error) {
	return e.mint(ctx, models.ChannelWhitelist, caller, req)
}

// MintPublic allocates req.ID to caller through the public channel.
//
// Errors, first failing check wins: SystemPaused, TotalMintLimitExceeded,
// PerAddressLimitExceeded, PublicLimitExceeded, SaleNotActive, then any
// ledger error.
func (e *Engine) MintPublic(ctx context.Context, caller id.Principal, req models.MintRequest) (models.Record, error) {
	return e.mint(ctx, models.ChannelPublic, caller, req)
}

// MintAdmin allocates req.ID to caller through the admin channel.
//
// Errors, first failing check wins: SystemPaused, TotalMintLimitExceeded,
// PerAddressLimitExceeded, AdminLimitExceeded, NotPrivileged, then any
// ledger error.
func (e *Engine) MintAdmin(ctx context.Context, caller id.Principal, req models.MintRequest) (models.Record, error) {
	return e.mint(ctx, models.ChannelAdmin, caller, req)
}

// Mint dispatches to the channel entry point named by ch.
func (e *Engine) Mint(ctx context.Context, ch models.Channel, caller id.Principal, req models.MintRequest) (models.Record, error) {
	if !ch.IsValid() {
		_, err := models.ParseChannel(string(ch))
		return models.Record{}, err
	}
	return e.mint(ctx, ch, caller, req)
}

func (e *Engine) mint(ctx context.Context, ch models.Channel, caller id.Principal, req models.MintRequest) (rec models.Record, err error) {
	ctx, span := e.startSpan(ctx, "allocation.Mint",
		attribute.String("mintgate.channel", ch.String()),
		attribute.String("mintgate.caller", caller.String()),
		attribute.String("mintgate.token_id", req.ID.String()),
	)
	start := time.Now()
	defer func() {
		e.metrics.ObserveAllocationDuration(ch.String(), time.Since(start))
		e.endSpan(span, err)
	}()

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.checkChannel(ch, caller); err != nil {
		e.reject(ctx, ch, caller, req.ID, err)
		return models.Record{}, err
	}
	rec, err = e.allocate(ctx, ch, caller, req)
	if err != nil {
		e.reject(ctx, ch, caller, req.ID, err)
		return models.Record{}, err
	}
	e.metrics.IncAllocation(ch.String())
	e.metrics.SetTokensMinted(e.counters.TotalMinted)
	return rec, nil
}

// checkChannel runs the shared caps and then the channel's own checks in
// the order that decides which error is reported when several apply.
// Caller must hold e.mu.
func (e *Engine) checkChannel(ch models.Channel, caller id.Principal) error {
	if e.paused {
		return models.ErrSystemPaused
	}
	if err := e.checkSharedCaps(caller); err != nil {
		return err
	}

	switch ch {
	case models.ChannelWhitelist:
		if e.saleActive {
			return models.ErrSaleActiveCannotWhitelist
		}
		if e.counters.WhitelistMinted >= e.quotas.Whitelist {
			return models.ErrWhitelistLimitExceeded
		}
		if !e.registry.IsPreApproved(caller) {
			return models.ErrNotPreApproved
		}
	case models.ChannelPublic:
		if e.counters.PublicMinted >= e.quotas.Public {
			return models.ErrPublicLimitExceeded
		}
		if !e.saleActive {
			return models.ErrSaleNotActive
		}
	case models.ChannelAdmin:
		if e.counters.AdminMinted >= e.quotas.Admin {
			return models.ErrAdminLimitExceeded
		}
		if !e.registry.IsPrivileged(caller) {
			return models.ErrNotPrivileged
		}
	}
	return nil
}

// checkSharedCaps checks the total cap before the per-participant cap.
// Caller must hold e.mu.
func (e *Engine) checkSharedCaps(recipient id.Principal) error {
	if e.counters.TotalMinted >= e.quotas.Total {
		return models.ErrTotalMintLimitExceeded
	}
	if e.minted[recipient] >= models.MaxPerParticipant {
		return models.ErrPerAddressLimitExceeded
	}
	return nil
}

// allocate is the commit point shared by every channel. Ledger calls happen
// first; engine state changes only once all of them succeeded. A mint whose
// URI registration fails is burned again before returning.
// Caller must hold e.mu.
func (e *Engine) allocate(ctx context.Context, ch models.Channel, recipient id.Principal, req models.MintRequest) (models.Record, error) {
	if err := e.checkSharedCaps(recipient); err != nil {
		return models.Record{}, err
	}

	if err := e.ledger.Mint(ctx, recipient, req.ID); err != nil {
		return models.Record{}, translateLedgerError(err)
	}
	if err := e.ledger.SetURIResolutionData(ctx, req.ID, req.MetadataRef); err != nil {
		if burnErr := e.ledger.Burn(ctx, req.ID); burnErr != nil {
			e.logger.ErrorContext(ctx, "failed to burn token after uri registration failure",
				"token_id", req.ID.String(),
				"error", burnErr,
			)
			err = errors.Join(err, burnErr)
		}
		return models.Record{}, translateLedgerError(err)
	}

	rec := models.Record{
		ID:          req.ID,
		Name:        req.Name,
		MetadataRef: req.MetadataRef,
		Channel:     ch,
		Owner:       recipient,
		MintedAt:    requestcontext.Now(ctx),
	}
	e.records[req.ID] = rec
	e.counters = e.counters.Increment(ch)
	e.minted[recipient]++

	ports.LogAudit(ctx, e.logger, e.auditPublisher, audit.EventTokenAllocated, recipient, req.ID.String(),
		"channel", ch.String(),
		"token_id", req.ID.String(),
		"recipient", recipient.String(),
		"name", req.Name,
		"metadata_ref", req.MetadataRef,
	)
	return rec, nil
}

func (e *Engine) reject(ctx context.Context, ch models.Channel, caller id.Principal, tokenID id.TokenID, err error) {
	code := codeOf(err)
	e.metrics.IncRejection(ch.String(), string(code))
	e.logger.DebugContext(ctx, "allocation rejected",
		"channel", ch.String(),
		"caller", caller.String(),
		"token_id", tokenID.String(),
		"code", string(code),
	)
}
