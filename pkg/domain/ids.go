package domain

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	dErrors "mintgate/pkg/domain-errors"
)

// MaxPrincipalLength bounds principal identifiers accepted at trust boundaries.
const MaxPrincipalLength = 128

// Principal is the opaque identity of a caller as attested by the host.
// Invariant: non-empty, valid UTF-8, no whitespace or control characters.
//
// Usage: construct via ParsePrincipal at trust boundaries; direct casting
// bypasses validation and is reserved for tests and trusted configuration.
type Principal string

// ParsePrincipal validates external input and returns a Principal.
//
// Errors: CodeInvalidInput when the value is empty, too long, not UTF-8, or
// contains whitespace/control characters.
func ParsePrincipal(s string) (Principal, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "principal cannot be empty")
	}
	if len(s) > MaxPrincipalLength {
		return "", dErrors.New(dErrors.CodeInvalidInput, "principal is too long")
	}
	if !utf8.ValidString(s) {
		return "", dErrors.New(dErrors.CodeInvalidInput, "principal must be valid UTF-8")
	}
	if strings.IndexFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsControl(r)
	}) >= 0 {
		return "", dErrors.New(dErrors.CodeInvalidInput, "principal must not contain whitespace or control characters")
	}
	return Principal(s), nil
}

// String returns the string representation of the principal.
func (p Principal) String() string {
	return string(p)
}

// IsNil returns true if the principal is empty.
func (p Principal) IsNil() bool {
	return p == ""
}

// TokenID identifies a mint slot. Identifiers are supplied by the caller; the
// ledger is the authority on uniqueness.
type TokenID uint64

// ParseTokenID parses a base-10 identifier from external input.
//
// Errors: CodeInvalidInput when the value is empty or not an unsigned integer.
func ParseTokenID(s string) (TokenID, error) {
	if s == "" {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "token id cannot be empty")
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "token id must be an unsigned integer")
	}
	return TokenID(v), nil
}

// String returns the base-10 representation of the identifier.
func (t TokenID) String() string {
	return strconv.FormatUint(uint64(t), 10)
}
