package auth

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/fletero-erp/fletero-erp/internal/platform/httpx"
	"github.com/fletero-erp/fletero-erp/internal/shared"
)

// Middleware resolves bearer tokens into an authenticated user id.
type Middleware struct {
	Service *Service
	Logger  *slog.Logger
}

// RequireUser rejects requests without a valid bearer token.
func (m Middleware) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		userID, err := m.Service.ResolveToken(r.Context(), token)
		if err != nil {
			if m.Logger != nil {
				m.Logger.Warn("auth rejected", slog.String("path", r.URL.Path))
			}
			httpx.RespondError(w, httpx.ErrUnauthorized)
			return
		}
		ctx := shared.ContextWithUserID(r.Context(), userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
