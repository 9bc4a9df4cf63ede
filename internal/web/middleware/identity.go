package middleware

import (
	"context"
	"log/slog"
	"net/http"
)

type contextKey string

const (
	userIDKey     contextKey = "user_id"
	businessIDKey contextKey = "business_id"
)

// RequireIdentity rejects requests that do not carry the caller's identity.
// The gateway in front of this service authenticates the user and forwards
// X-User-ID and X-Business-ID; here they are only extracted and propagated.
func RequireIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := r.Header.Get("X-User-ID")
		if userID == "" {
			slog.Warn("identity: missing X-User-ID",
				"path", r.URL.Path,
				"method", r.Method,
				"remote_addr", r.RemoteAddr,
			)
			http.Error(w, `{"error":"missing X-User-ID header","code":"AUTH_MISSING_USER"}`, http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, userID)
		if businessID := r.Header.Get("X-Business-ID"); businessID != "" {
			ctx = context.WithValue(ctx, businessIDKey, businessID)
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// UserID returns the authenticated user id from the request context.
func UserID(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}

// BusinessID returns the caller's business id from the request context, if
// the X-Business-ID header was present.
func BusinessID(ctx context.Context) string {
	id, _ := ctx.Value(businessIDKey).(string)
	return id
}
