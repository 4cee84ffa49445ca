package auth

import (
	"fmt"
	"net/http"
)

// FailFunc writes the response for a rejected request.
type FailFunc func(w http.ResponseWriter, r *http.Request, err error)

// Middleware rejects requests without a valid, unrevoked session token and
// stores the claims of accepted ones in the request context. rev may be nil.
func Middleware(iss *Issuer, rev Revoker, fail FailFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := iss.Parse(TokenFromRequest(r))
			if err != nil {
				fail(w, r, err)
				return
			}
			if rev != nil {
				revoked, err := rev.IsRevoked(r.Context(), claims.ID)
				if err != nil {
					fail(w, r, fmt.Errorf("check revocation: %w", err))
					return
				}
				if revoked {
					fail(w, r, ErrRevokedToken)
					return
				}
			}
			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}
