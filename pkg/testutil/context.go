package testutil

import (
	"net/http"

	id "mintgate/pkg/domain"
	"mintgate/pkg/requestcontext"
)

// WithPrincipal attaches an attested caller to the request context, as the
// auth middleware would. Invalid principals are silently ignored so tests can
// exercise the unauthenticated path with the same helper.
func WithPrincipal(req *http.Request, principal string) *http.Request {
	p, err := id.ParsePrincipal(principal)
	if err != nil {
		return req
	}
	return req.WithContext(requestcontext.WithPrincipal(req.Context(), p))
}
