// Package access holds the owner identity and the two role sets that gate
// privileged operations: privileged operators and pre-approved participants.
//
// A Registry does no locking of its own. It lives inside the allocation
// engine's aggregate and every call is serialized by the engine's lock.
package access

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"mintgate/internal/allocation/models"
	"mintgate/internal/ports"
	id "mintgate/pkg/domain"
	dErrors "mintgate/pkg/domain-errors"
	"mintgate/pkg/platform/audit"
)

type AuditPublisher = ports.AuditPublisher

type Registry struct {
	owner       id.Principal
	privileged  map[id.Principal]struct{}
	preApproved map[id.Principal]struct{}
	paused      func() bool

	logger         *slog.Logger
	auditPublisher AuditPublisher
}

type Option func(*Registry)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(r *Registry) {
		r.auditPublisher = publisher
	}
}

// New creates a registry owned by owner. paused reports the global pause
// flag; nil means never paused.
func New(owner id.Principal, paused func() bool, opts ...Option) (*Registry, error) {
	if owner.IsNil() {
		return nil, fmt.Errorf("owner is required")
	}
	if paused == nil {
		paused = func() bool { return false }
	}
	r := &Registry{
		owner:       owner,
		privileged:  make(map[id.Principal]struct{}),
		preApproved: make(map[id.Principal]struct{}),
		paused:      paused,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

func (r *Registry) Owner() id.Principal {
	return r.owner
}

// IsOwner reports whether p is the owner.
func (r *Registry) IsOwner(p id.Principal) bool {
	return p == r.owner
}

func (r *Registry) IsPrivileged(p id.Principal) bool {
	_, ok := r.privileged[p]
	return ok
}

func (r *Registry) IsPreApproved(p id.Principal) bool {
	_, ok := r.preApproved[p]
	return ok
}

// Privileged lists privileged principals in sorted order.
func (r *Registry) Privileged() []id.Principal {
	return sortedKeys(r.privileged)
}

// PreApproved lists pre-approved principals in sorted order.
func (r *Registry) PreApproved() []id.Principal {
	return sortedKeys(r.preApproved)
}

// SetPrivileged grants or revokes the privileged role.
//
// Errors: NotOwner, SystemPaused, CodeInvalidInput for an empty principal.
func (r *Registry) SetPrivileged(ctx context.Context, caller, p id.Principal, status bool) error {
	if err := r.authorize(caller, p); err != nil {
		return err
	}
	setMembership(r.privileged, p, status)

	ports.LogAudit(ctx, r.logger, r.auditPublisher, audit.EventRoleChanged, caller, p.String(),
		"principal", p.String(),
		"status", status,
	)
	return nil
}

// SetPreApproved grants or revokes pre-approval for the whitelist channel.
//
// Errors: NotOwner, SystemPaused, CodeInvalidInput for an empty principal.
func (r *Registry) SetPreApproved(ctx context.Context, caller, p id.Principal, status bool) error {
	if err := r.authorize(caller, p); err != nil {
		return err
	}
	setMembership(r.preApproved, p, status)

	ports.LogAudit(ctx, r.logger, r.auditPublisher, audit.EventWhitelistChanged, caller, p.String(),
		"caller", caller.String(),
		"principal", p.String(),
		"status", status,
	)
	return nil
}

func (r *Registry) authorize(caller, p id.Principal) error {
	if !r.IsOwner(caller) {
		return models.ErrNotOwner
	}
	if r.paused() {
		return models.ErrSystemPaused
	}
	if p.IsNil() {
		return dErrors.New(dErrors.CodeInvalidInput, "principal is required")
	}
	return nil
}

func setMembership(set map[id.Principal]struct{}, p id.Principal, status bool) {
	if status {
		set[p] = struct{}{}
		return
	}
	delete(set, p)
}

func sortedKeys(set map[id.Principal]struct{}) []id.Principal {
	out := make([]id.Principal, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
