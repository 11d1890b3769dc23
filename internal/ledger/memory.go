package ledger

import (
	"context"
	"sync"

	id "mintgate/pkg/domain"
)

// InMemoryLedger keeps holders and URI data in maps. Safe for concurrent use.
type InMemoryLedger struct {
	mu      sync.RWMutex
	holders map[id.TokenID]id.Principal
	refs    map[id.TokenID]string
	baseURI string
	guard   PauseGuard
}

func NewInMemoryLedger() *InMemoryLedger {
	return &InMemoryLedger{
		holders: make(map[id.TokenID]id.Principal),
		refs:    make(map[id.TokenID]string),
	}
}

// SetPauseGuard installs the guard consulted by Transfer. The engine is
// usually constructed after its ledger, hence a setter instead of an option.
func (l *InMemoryLedger) SetPauseGuard(g PauseGuard) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.guard = g
}

func (l *InMemoryLedger) Mint(_ context.Context, recipient id.Principal, tokenID id.TokenID) error {
	if recipient.IsNil() {
		return ErrInvalidRecipient
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.holders[tokenID]; ok {
		return ErrDuplicateIdentifier
	}
	l.holders[tokenID] = recipient
	return nil
}

func (l *InMemoryLedger) SetURIResolutionData(_ context.Context, tokenID id.TokenID, metadataRef string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.holders[tokenID]; !ok {
		return ErrUnknownIdentifier
	}
	l.refs[tokenID] = metadataRef
	return nil
}

func (l *InMemoryLedger) SetBaseURI(_ context.Context, prefix string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.baseURI = prefix
	return nil
}

func (l *InMemoryLedger) ResolveURI(_ context.Context, tokenID id.TokenID) (string, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if _, ok := l.holders[tokenID]; !ok {
		return "", ErrUnknownIdentifier
	}
	return l.baseURI + l.refs[tokenID], nil
}

func (l *InMemoryLedger) Burn(_ context.Context, tokenID id.TokenID) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.holders[tokenID]; !ok {
		return ErrUnknownIdentifier
	}
	delete(l.holders, tokenID)
	delete(l.refs, tokenID)
	return nil
}

// HolderOf returns the current holder of tokenID.
func (l *InMemoryLedger) HolderOf(_ context.Context, tokenID id.TokenID) (id.Principal, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	holder, ok := l.holders[tokenID]
	if !ok {
		return "", ErrUnknownIdentifier
	}
	return holder, nil
}

// Count returns how many identifiers currently have a holder.
func (l *InMemoryLedger) Count(_ context.Context) (int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.holders), nil
}

// Transfer moves tokenID from its holder to a new recipient after the pause
// guard agrees. The guard is called without the ledger lock held.
func (l *InMemoryLedger) Transfer(ctx context.Context, from, to id.Principal, tokenID id.TokenID) error {
	l.mu.RLock()
	guard := l.guard
	l.mu.RUnlock()
	if guard != nil {
		if err := guard.BeforeTransfer(ctx, from, to, tokenID); err != nil {
			return err
		}
	}
	if to.IsNil() {
		return ErrInvalidRecipient
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	holder, ok := l.holders[tokenID]
	if !ok {
		return ErrUnknownIdentifier
	}
	if holder != from {
		return ErrNotHolder
	}
	l.holders[tokenID] = to
	return nil
}
