// Package ledger provides reference implementations of the asset registry
// the allocation engine mints into. They implement only what the engine's
// port needs plus holder-to-holder transfer, which consults the engine's
// pause flag through a PauseGuard.
package ledger

import (
	"context"
	"errors"
	"fmt"

	id "mintgate/pkg/domain"
	"mintgate/pkg/platform/sentinel"
)

var (
	ErrDuplicateIdentifier = fmt.Errorf("token identifier already exists: %w", sentinel.ErrConflict)
	ErrInvalidRecipient    = errors.New("invalid recipient")
	ErrUnknownIdentifier   = fmt.Errorf("unknown token identifier: %w", sentinel.ErrNotFound)
	ErrNotHolder           = fmt.Errorf("sender does not hold the token: %w", sentinel.ErrInvalidState)
	ErrWriterClaimed       = fmt.Errorf("ledger is claimed by another engine: %w", sentinel.ErrConflict)
)

// PauseGuard is consulted before every transfer. A non-nil error aborts the
// transfer and is returned unchanged.
type PauseGuard interface {
	BeforeTransfer(ctx context.Context, from, to id.Principal, tokenID id.TokenID) error
}

// PauseGuardFunc adapts a function to PauseGuard.
type PauseGuardFunc func(ctx context.Context, from, to id.Principal, tokenID id.TokenID) error

func (f PauseGuardFunc) BeforeTransfer(ctx context.Context, from, to id.Principal, tokenID id.TokenID) error {
	return f(ctx, from, to, tokenID)
}
