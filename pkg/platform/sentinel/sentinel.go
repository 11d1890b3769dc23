package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Ledger adapters and audit stores
// return these (optionally wrapped) so services can translate them into coded
// domain errors.
//
//   - ErrNotFound: record does not exist in the backing store
//   - ErrConflict: a unique key is already taken
//   - ErrInvalidState: record is in the wrong state for the requested change
//   - ErrUnavailable: backend temporarily unreachable
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
