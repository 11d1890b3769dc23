package allocation

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"mintgate/internal/allocation/models"
	"mintgate/internal/ports"
	id "mintgate/pkg/domain"
	"mintgate/pkg/platform/audit"
)

// SetPrivileged grants or revokes the privileged role.
//
// Errors: NotOwner, SystemPaused, CodeInvalidInput.
func (e *Engine) SetPrivileged(ctx context.Context, caller, p id.Principal, status bool) (err error) {
	ctx, span := e.startSpan(ctx, "allocation.SetPrivileged",
		attribute.String("mintgate.principal", p.String()),
		attribute.Bool("mintgate.status", status),
	)
	defer func() { e.endSpan(span, err) }()

	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.registry.SetPrivileged(ctx, caller, p, status); err != nil {
		return err
	}
	e.metrics.IncConfigChange("set_privileged")
	return nil
}

// SetPreApproved grants or revokes whitelist pre-approval.
//
// Errors: NotOwner, SystemPaused, CodeInvalidInput.
func (e *Engine) SetPreApproved(ctx context.Context, caller, p id.Principal, status bool) (err error) {
	ctx, span := e.startSpan(ctx, "allocation.SetPreApproved",
		attribute.String("mintgate.principal", p.String()),
		attribute.Bool("mintgate.status", status),
	)
	defer func() { e.endSpan(span, err) }()

	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.registry.SetPreApproved(ctx, caller, p, status); err != nil {
		return err
	}
	e.metrics.IncConfigChange("set_pre_approved")
	return nil
}

// SetSaleActive opens (true) the public window and closes the whitelist
// window, or the reverse.
//
// Errors: NotOwner, SystemPaused.
func (e *Engine) SetSaleActive(ctx context.Context, caller id.Principal, active bool) (err error) {
	ctx, span := e.startSpan(ctx, "allocation.SetSaleActive", attribute.Bool("mintgate.active", active))
	defer func() { e.endSpan(span, err) }()

	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireOwnerUnpaused(caller); err != nil {
		return err
	}
	e.saleActive = active

	e.metrics.IncConfigChange("set_sale_active")
	ports.LogAudit(ctx, e.logger, e.auditPublisher, audit.EventSaleStateChanged, caller, "",
		"active", active,
	)
	return nil
}

// SetQuotas overwrites the quota set and derives the public quota. The
// returned Quotas carry all four resolved values.
//
// Errors: NotOwner, SystemPaused, InvalidQuotas (strict mode only).
func (e *Engine) SetQuotas(ctx context.Context, caller id.Principal, total, whitelist, admin int64) (q models.Quotas, err error) {
	ctx, span := e.startSpan(ctx, "allocation.SetQuotas",
		attribute.Int64("mintgate.quota.total", total),
		attribute.Int64("mintgate.quota.whitelist", whitelist),
		attribute.Int64("mintgate.quota.admin", admin),
	)
	defer func() { e.endSpan(span, err) }()

	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireOwnerUnpaused(caller); err != nil {
		return models.Quotas{}, err
	}
	q = models.NewQuotas(total, whitelist, admin)
	if e.strictQuotas {
		if err := q.Validate(); err != nil {
			return models.Quotas{}, err
		}
	}
	if models.ReservedOverflows(whitelist, admin) {
		e.logger.WarnContext(ctx, "whitelist and admin quotas overflow; derived public quota is wrapped",
			"total", q.Total,
			"whitelist", q.Whitelist,
			"admin", q.Admin,
			"public", q.Public,
		)
	} else if q.Public < 0 {
		e.logger.WarnContext(ctx, "public quota is negative; public channel stays closed",
			"total", q.Total,
			"whitelist", q.Whitelist,
			"admin", q.Admin,
			"public", q.Public,
		)
	}
	e.quotas = q

	e.metrics.IncConfigChange("set_quotas")
	ports.LogAudit(ctx, e.logger, e.auditPublisher, audit.EventQuotasChanged, caller, "",
		"total", q.Total,
		"whitelist", q.Whitelist,
		"admin", q.Admin,
		"public", q.Public,
	)
	return q, nil
}

// SetBaseMetadataPrefix replaces the URI prefix the ledger resolves with.
// Open to the owner and to any privileged principal.
//
// Errors: NotPrivileged, SystemPaused, then any ledger error.
func (e *Engine) SetBaseMetadataPrefix(ctx context.Context, caller id.Principal, prefix string) (err error) {
	ctx, span := e.startSpan(ctx, "allocation.SetBaseMetadataPrefix")
	defer func() { e.endSpan(span, err) }()

	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.registry.IsOwner(caller) && !e.registry.IsPrivileged(caller) {
		return models.ErrNotPrivileged
	}
	if e.paused {
		return models.ErrSystemPaused
	}
	if err := e.ledger.SetBaseURI(ctx, prefix); err != nil {
		return translateLedgerError(err)
	}
	e.metadataPrefix = prefix

	e.metrics.IncConfigChange("set_base_metadata_prefix")
	ports.LogAudit(ctx, e.logger, e.auditPublisher, audit.EventMetadataPrefixChanged, caller, "",
		"prefix", prefix,
	)
	return nil
}

// Pause sets the global kill-switch. Pausing a paused engine succeeds and
// changes nothing.
//
// Errors: NotOwner.
func (e *Engine) Pause(ctx context.Context, caller id.Principal) error {
	return e.setPaused(ctx, caller, true)
}

// Unpause clears the global kill-switch. Unpausing a running engine succeeds
// and changes nothing.
//
// Errors: NotOwner.
func (e *Engine) Unpause(ctx context.Context, caller id.Principal) error {
	return e.setPaused(ctx, caller, false)
}

func (e *Engine) setPaused(ctx context.Context, caller id.Principal, paused bool) (err error) {
	name := "allocation.Unpause"
	event := audit.EventUnpaused
	if paused {
		name = "allocation.Pause"
		event = audit.EventPaused
	}
	ctx, span := e.startSpan(ctx, name)
	defer func() { e.endSpan(span, err) }()

	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.registry.IsOwner(caller) {
		return models.ErrNotOwner
	}
	if e.paused == paused {
		return nil
	}
	e.paused = paused

	e.metrics.IncConfigChange(string(event))
	e.metrics.SetPaused(paused)
	ports.LogAudit(ctx, e.logger, e.auditPublisher, event, caller, "")
	return nil
}

// requireOwnerUnpaused applies the gating shared by owner-only configuration.
// Caller must hold e.mu.
func (e *Engine) requireOwnerUnpaused(caller id.Principal) error {
	if !e.registry.IsOwner(caller) {
		return models.ErrNotOwner
	}
	if e.paused {
		return models.ErrSystemPaused
	}
	return nil
}
