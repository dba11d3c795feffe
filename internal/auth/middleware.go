package auth

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/odyssey-erp/backoffice/internal/platform/httpx"
	"github.com/odyssey-erp/backoffice/internal/shared"
)

// Authenticate attaches the bearer token's actor to the request context.
// Requests without a token pass through anonymously; invalid tokens get 401.
func Authenticate(tokens *TokenIssuer, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" || tokens == nil {
				next.ServeHTTP(w, r)
				return
			}
			raw, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || strings.TrimSpace(raw) == "" {
				httpx.Error(w, http.StatusUnauthorized, "Unauthorized")
				return
			}
			claims, err := tokens.Parse(strings.TrimSpace(raw))
			if err != nil {
				logger.Warn("rejected access token", slog.String("path", r.URL.Path), slog.Any("error", err))
				httpx.Error(w, http.StatusUnauthorized, "Unauthorized")
				return
			}
			ctx := shared.ContextWithActor(r.Context(), shared.Actor{ID: claims.Subject, Username: claims.Username, Role: claims.Role})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireActor rejects anonymous requests.
func RequireActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := shared.ActorFromContext(r.Context()); !ok {
			httpx.Error(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Passthrough is the no-op guard used when authentication is optional.
func Passthrough(next http.Handler) http.Handler {
	return next
}
