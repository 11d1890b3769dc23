package handler

import (
	"strings"
	"unicode/utf8"

	"mintgate/internal/allocation/models"
	id "mintgate/pkg/domain"
	dErrors "mintgate/pkg/domain-errors"
)

const (
	maxNameLength        = 256
	maxMetadataRefLength = 2048
	maxPrefixLength      = 2048
)

// MintRequest is the HTTP request body for POST /v1/mint/{channel}.
type MintRequest struct {
	ID          *uint64 `json:"id"`
	Name        string  `json:"name"`
	MetadataRef string  `json:"metadata_ref"`
}

// Validate validates and normalizes the request.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *MintRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if r.ID == nil {
		return dErrors.New(dErrors.CodeValidation, "id is required")
	}
	if len(r.Name) > maxNameLength || !utf8.ValidString(r.Name) {
		return dErrors.New(dErrors.CodeValidation, "name must be valid UTF-8 of at most 256 bytes")
	}
	r.MetadataRef = strings.TrimSpace(r.MetadataRef)
	if len(r.MetadataRef) > maxMetadataRefLength {
		return dErrors.New(dErrors.CodeValidation, "metadata_ref is too long")
	}
	return nil
}

// ToModel converts the validated request into the engine's input.
func (r *MintRequest) ToModel() models.MintRequest {
	return models.MintRequest{
		ID:          id.TokenID(*r.ID),
		Name:        r.Name,
		MetadataRef: r.MetadataRef,
	}
}

// RoleRequest is the body for PUT /v1/admin/privileged/{principal} and
// PUT /v1/admin/pre-approved/{principal}.
type RoleRequest struct {
	Status *bool `json:"status"`
}

func (r *RoleRequest) Validate() error {
	if r == nil || r.Status == nil {
		return dErrors.New(dErrors.CodeValidation, "status is required")
	}
	return nil
}

// SaleRequest is the body for PUT /v1/admin/sale.
type SaleRequest struct {
	Active *bool `json:"active"`
}

func (r *SaleRequest) Validate() error {
	if r == nil || r.Active == nil {
		return dErrors.New(dErrors.CodeValidation, "active is required")
	}
	return nil
}

// QuotasRequest is the body for PUT /v1/admin/quotas. Every field is
// required; the public quota is derived and cannot be supplied.
type QuotasRequest struct {
	Total     *int64 `json:"total"`
	Whitelist *int64 `json:"whitelist"`
	Admin     *int64 `json:"admin"`
}

func (r *QuotasRequest) Validate() error {
	if r == nil || r.Total == nil || r.Whitelist == nil || r.Admin == nil {
		return dErrors.New(dErrors.CodeValidation, "total, whitelist and admin are required")
	}
	return nil
}

// PrefixRequest is the body for PUT /v1/admin/metadata-prefix. An empty
// prefix is allowed.
type PrefixRequest struct {
	Prefix *string `json:"prefix"`
}

func (r *PrefixRequest) Validate() error {
	if r == nil || r.Prefix == nil {
		return dErrors.New(dErrors.CodeValidation, "prefix is required")
	}
	if len(*r.Prefix) > maxPrefixLength {
		return dErrors.New(dErrors.CodeValidation, "prefix is too long")
	}
	return nil
}
