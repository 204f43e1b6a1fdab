package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"sitekit/internal/security"
	"sitekit/internal/services"
	"sitekit/pkg/contracts/domain"
)

type userContextKey struct{}
type sessionContextKey struct{}

// CurrentUser resolves the session cookie into a user and stashes
// both on the request context. Requests without a valid session pass
// through anonymous; expired or tampered cookies just log at debug.
func CurrentUser(codec *security.Codec, users *services.UserService, logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session, err := codec.FromRequest(r)
			if err != nil {
				if !errors.Is(err, security.ErrNoSession) {
					logger.DebugContext(r.Context(), "session rejected",
						slog.String("error", err.Error()))
				}
				next.ServeHTTP(w, r)
				return
			}

			user, err := users.Get(r.Context(), session.UserID)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), userContextKey{}, &user)
			ctx = context.WithValue(ctx, sessionContextKey{}, &session)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserFromContext returns the authenticated user, or nil.
func UserFromContext(ctx context.Context) *domain.User {
	if u, ok := ctx.Value(userContextKey{}).(*domain.User); ok {
		return u
	}
	return nil
}

// SessionFromContext returns the resolved session, or nil.
func SessionFromContext(ctx context.Context) *security.Session {
	if s, ok := ctx.Value(sessionContextKey{}).(*security.Session); ok {
		return s
	}
	return nil
}
