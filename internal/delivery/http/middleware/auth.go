package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/werent/review-platform/internal/delivery/http/response"
	"github.com/werent/review-platform/internal/domain"
	"github.com/werent/review-platform/internal/pkg/logger"
)

type contextKey string

const userIDKey contextKey = "user_id"

// Authenticate resolves the bearer token through the identity store and puts
// the caller's user ID in the request context. Requests without a resolvable
// identity are rejected before any handler runs.
func Authenticate(identity domain.IdentityStore, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)

			userID, err := identity.Resolve(r.Context(), token)
			if err != nil {
				if errors.Is(err, domain.ErrUnauthenticated) {
					response.Error(w, http.StatusUnauthorized, "Unauthenticated")
					return
				}
				log.Error("Identity resolution failed", err)
				response.Error(w, http.StatusInternalServerError, "Internal server error")
				return
			}

			ctx := context.WithValue(r.Context(), userIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserID returns the authenticated caller's user ID from the context
func UserID(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(userIDKey).(uuid.UUID)
	return id, ok
}

// WithUserID returns a context carrying the given user ID, as if the request
// had passed Authenticate
func WithUserID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, userIDKey, id)
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return ""
}
