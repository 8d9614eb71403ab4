package auth

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/honeynil/spriteshop/internal/infrastructure/redis"
)

// SessionCookie carries the signed session token.
const SessionCookie = "session"

type contextKey string

const userIDKey contextKey = "user_id"

// UserID returns the authenticated principal recorded by SessionMiddleware.
func UserID(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(userIDKey).(int64)
	return id, ok
}

// WithUserID is exported for handler tests.
func WithUserID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, userIDKey, id)
}

// SessionMiddleware resolves the principal from the session cookie. An absent
// or invalid session is not an error: the request is redirected to the login
// flow. The token must also match the one stored in Redis, so logout revokes
// it immediately.
func SessionMiddleware(sessions redis.RedisClient, jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookie)
			if err != nil || cookie.Value == "" {
				http.Redirect(w, r, "/login", http.StatusSeeOther)
				return
			}

			claims, err := ParseSessionToken(cookie.Value, jwtSecret)
			if err != nil {
				http.Redirect(w, r, "/login", http.StatusSeeOther)
				return
			}

			sessionKey := fmt.Sprintf("user:%d:session", claims.UserID)
			storedToken, err := sessions.Get(r.Context(), sessionKey)
			if err != nil || storedToken != cookie.Value {
				slog.Warn("session token not active", "user_id", claims.UserID, "error", err)
				http.Redirect(w, r, "/login", http.StatusSeeOther)
				return
			}

			ctx := context.WithValue(r.Context(), userIDKey, claims.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
