package models

import (
	dErrors "mintgate/pkg/domain-errors"
)

// Rejection codes. Every failed operation carries exactly one of these (or a
// generic dErrors code for malformed input) so transports can map them
// without reading messages.
const (
	CodeNotOwner       dErrors.Code = "not_owner"
	CodeNotPrivileged  dErrors.Code = "not_privileged"
	CodeNotPreApproved dErrors.Code = "not_pre_approved"

	CodePerAddressLimitExceeded dErrors.Code = "per_address_limit_exceeded"
	CodeTotalMintLimitExceeded  dErrors.Code = "total_mint_limit_exceeded"
	CodeWhitelistLimitExceeded  dErrors.Code = "whitelist_limit_exceeded"
	CodePublicLimitExceeded     dErrors.Code = "public_limit_exceeded"
	CodeAdminLimitExceeded      dErrors.Code = "admin_limit_exceeded"

	CodeSystemPaused              dErrors.Code = "system_paused"
	CodeSaleActiveCannotWhitelist dErrors.Code = "sale_active_cannot_whitelist"
	CodeSaleNotActive             dErrors.Code = "sale_not_active"

	CodeDuplicateIdentifier dErrors.Code = "duplicate_identifier"
	CodeInvalidRecipient    dErrors.Code = "invalid_recipient"
	CodeUnknownIdentifier   dErrors.Code = "unknown_identifier"

	CodeInvalidQuotas dErrors.Code = "invalid_quotas"

	CodeLedgerNotEmpty dErrors.Code = "ledger_not_empty"
)

// Sentinel rejections. Compare with errors.Is; matching is by code, so a
// wrapped or re-messaged error with the same code still matches.
var (
	ErrNotOwner       = dErrors.New(CodeNotOwner, "caller is not the owner")
	ErrNotPrivileged  = dErrors.New(CodeNotPrivileged, "caller is not a privileged operator")
	ErrNotPreApproved = dErrors.New(CodeNotPreApproved, "caller is not pre-approved")

	ErrPerAddressLimitExceeded = dErrors.New(CodePerAddressLimitExceeded, "per-participant allocation limit reached")
	ErrTotalMintLimitExceeded  = dErrors.New(CodeTotalMintLimitExceeded, "total allocation limit reached")
	ErrWhitelistLimitExceeded  = dErrors.New(CodeWhitelistLimitExceeded, "whitelist quota exhausted")
	ErrPublicLimitExceeded     = dErrors.New(CodePublicLimitExceeded, "public quota exhausted")
	ErrAdminLimitExceeded      = dErrors.New(CodeAdminLimitExceeded, "admin quota exhausted")

	ErrSystemPaused              = dErrors.New(CodeSystemPaused, "system is paused")
	ErrSaleActiveCannotWhitelist = dErrors.New(CodeSaleActiveCannotWhitelist, "whitelist allocation is closed while the public sale is active")
	ErrSaleNotActive             = dErrors.New(CodeSaleNotActive, "public sale is not active")

	ErrDuplicateIdentifier = dErrors.New(CodeDuplicateIdentifier, "identifier already allocated")
	ErrInvalidRecipient    = dErrors.New(CodeInvalidRecipient, "invalid recipient")
	ErrUnknownIdentifier   = dErrors.New(CodeUnknownIdentifier, "unknown identifier")

	ErrInvalidQuotas = dErrors.New(CodeInvalidQuotas, "quotas must be non-negative and whitelist + admin must not exceed total")

	ErrLedgerNotEmpty = dErrors.New(CodeLedgerNotEmpty, "ledger already holds allocations the engine cannot restore")
)
