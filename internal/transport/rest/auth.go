package rest

import (
	"context"
	"net/http"
	"strings"

	"github.com/sabowaryan/sabowaryantech/internal/platform/web"
	"github.com/sabowaryan/sabowaryantech/internal/session"
)

type claimsKey struct{}

// RequireAccessToken verifies the Bearer access token in the Authorization header
// and adds its claims to the request context.
// A missing, malformed or expired token is answered with 401.
func (h *Handler) RequireAccessToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mLogger := h.loggerWithReqID(r)
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			web.RespondError(w, mLogger, http.StatusUnauthorized, "Authorization header is required")
			return
		}
		token := strings.TrimPrefix(authHeader, "Bearer ")
		if token == authHeader {
			web.RespondError(w, mLogger, http.StatusUnauthorized, "Bearer token is required")
			return
		}
		claims, err := h.Tokens.Verify(token)
		if err != nil {
			mLogger.WarnContext(r.Context(), "Access token rejected", "error", err)
			if session.IsExpired(err) {
				web.RespondError(w, mLogger, http.StatusUnauthorized, "Token expired")
				return
			}
			web.RespondError(w, mLogger, http.StatusUnauthorized, "Invalid token")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey{}, claims)))
	})
}

// tokenClaims returns the claims stored by RequireAccessToken.
func tokenClaims(ctx context.Context) (*session.Claims, bool) {
	claims, ok := ctx.Value(claimsKey{}).(*session.Claims)
	return claims, ok
}
