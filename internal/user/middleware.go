package user

import (
	"errors"
	"net/http"
	"strings"

	"collectrium-auth/internal/web"
)

// Authenticate verifies the bearer access token and reloads the account
// record before handing the request on. Reloading keeps the block flag and
// role current even while an older access token is still in flight.
func Authenticate(tokens *TokenManager, store Store, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := strings.TrimSpace(r.Header.Get("Authorization"))
		if header == "" {
			web.Error(w, http.StatusUnauthorized, "missing authorization token")
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			web.Error(w, http.StatusUnauthorized, "invalid authorization format")
			return
		}

		claims, err := tokens.VerifyAccess(strings.TrimSpace(parts[1]))
		if err != nil {
			web.Error(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}

		u, err := store.FindByID(r.Context(), claims.Subject)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				web.Error(w, http.StatusUnauthorized, "unknown user")
				return
			}
			web.Error(w, http.StatusInternalServerError, "failed to load user")
			return
		}

		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), u.Identity())))
	})
}

// RequireRole gates a protected operation on the authenticated identity.
// The block flag is checked before the role so a blocked admin gets the
// blocked response, not a role mismatch.
func RequireRole(role Role, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := IdentityFrom(r.Context())
		if !ok {
			web.Error(w, http.StatusUnauthorized, "missing authorization token")
			return
		}

		if identity.Blocked {
			web.Error(w, HTTPStatus(ErrBlocked), ErrBlocked.Error())
			return
		}
		if identity.Role != role {
			web.Error(w, HTTPStatus(ErrForbidden), ErrForbidden.Error())
			return
		}

		next.ServeHTTP(w, r)
	})
}
