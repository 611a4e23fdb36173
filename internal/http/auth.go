package httpapi

import (
	"context"
	"net/http"
	"strings"

	"fluxao-backend-go/internal/identity"
	"fluxao-backend-go/internal/models"
)

type contextKey string

const ctxIdentity contextKey = "identity"

func WithAuth(resolver identity.Resolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := resolver.FromBearer(r.Header.Get("Authorization"))
			if err != nil {
				WriteError(w, http.StatusUnauthorized, "Authentication failed")
				return
			}
			ctx := context.WithValue(r.Context(), ctxIdentity, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// CurrentIdentity is the caller resolved by WithAuth. The zero Identity means
// the route is not authenticated.
func CurrentIdentity(r *http.Request) models.Identity {
	if value, ok := r.Context().Value(ctxIdentity).(models.Identity); ok {
		return value
	}
	return models.Identity{}
}

func RequireRole(role string) func(http.Handler) http.Handler {
	return RequireAnyRole(role)
}

func RequireAnyRole(roles ...string) func(http.Handler) http.Handler {
	allowed := map[models.Role]bool{}
	for _, role := range roles {
		allowed[models.Role(strings.ToUpper(role))] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := CurrentIdentity(r)
			if id.ID != "" && allowed[id.Role] {
				next.ServeHTTP(w, r)
				return
			}
			WriteError(w, http.StatusForbidden, "Not allowed")
		})
	}
}
