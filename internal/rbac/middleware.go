// Package rbac guards HTTP routes by the role stored in the session.
package rbac

import (
	"log/slog"
	"net/http"

	"github.com/aspire-solar/billdesk/internal/platform/httpx"
	"github.com/aspire-solar/billdesk/internal/shared"
)

// Middleware wires role checks for HTTP handlers.
type Middleware struct {
	Logger *slog.Logger
}

// RequireAuthenticated rejects anonymous requests.
func (m Middleware) RequireAuthenticated() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if shared.CurrentUserID(r.Context()) == "" {
				httpx.RespondError(w, httpx.ErrUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireRoles allows only users holding one of roles.
func (m Middleware) RequireRoles(roles ...shared.Role) func(http.Handler) http.Handler {
	allowed := make(map[shared.Role]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if shared.CurrentUserID(r.Context()) == "" {
				httpx.RespondError(w, httpx.ErrUnauthorized)
				return
			}
			role := shared.CurrentRole(r.Context())
			if _, ok := allowed[role]; !ok {
				if m.Logger != nil {
					m.Logger.Warn("rbac denied", slog.String("role", string(role)), slog.String("path", r.URL.Path))
				}
				httpx.RespondError(w, httpx.ErrForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Allowed reports whether role may act on behalf of any of roles.
func Allowed(role shared.Role, roles ...shared.Role) bool {
	for _, candidate := range roles {
		if role == candidate {
			return true
		}
	}
	return false
}
