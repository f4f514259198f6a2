package auth

import (
	"context"
	"net/http"
	"strings"

	"codegaming-service/internal/domain"
)

type contextKey struct{}

var identityKey contextKey

// OptionalIdentity attaches the authenticated user identity to the request
// context when a valid Bearer token is present. Requests without a token pass
// through untouched, so guests can use the same routes; a malformed or
// invalid token is rejected outright.
func (s *Service) OptionalIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			next.ServeHTTP(w, r)
			return
		}

		parts := strings.Split(header, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			http.Error(w, "invalid token format", http.StatusUnauthorized)
			return
		}
		userID, username, err := s.ParseToken(parts[1])
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}

		identity := domain.NewUserIdentity(userID, username)
		ctx := context.WithValue(r.Context(), identityKey, identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// IdentityFromContext returns the authenticated identity, if any.
func IdentityFromContext(ctx context.Context) (domain.Identity, bool) {
	identity, ok := ctx.Value(identityKey).(domain.Identity)
	return identity, ok
}
