package handler

import (
	"net/http"

	"mintgate/internal/allocation/models"
	dErrors "mintgate/pkg/domain-errors"
	"mintgate/pkg/platform/httputil"
)

// statusFor maps allocation rejection codes to HTTP statuses and falls back
// to the generic mapping for everything else.
func statusFor(err error) int {
	switch code := dErrors.CodeOf(err); code {
	case models.CodeNotOwner, models.CodeNotPrivileged, models.CodeNotPreApproved:
		return http.StatusForbidden
	case models.CodePerAddressLimitExceeded, models.CodeTotalMintLimitExceeded,
		models.CodeWhitelistLimitExceeded, models.CodePublicLimitExceeded, models.CodeAdminLimitExceeded:
		return http.StatusConflict
	case models.CodeSystemPaused:
		return http.StatusServiceUnavailable
	case models.CodeSaleActiveCannotWhitelist, models.CodeSaleNotActive:
		return http.StatusConflict
	case models.CodeDuplicateIdentifier:
		return http.StatusConflict
	case models.CodeInvalidRecipient, models.CodeInvalidQuotas:
		return http.StatusBadRequest
	case models.CodeUnknownIdentifier:
		return http.StatusNotFound
	default:
		return httputil.StatusFor(code)
	}
}
