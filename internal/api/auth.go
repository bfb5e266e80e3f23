package api

import (
	"net/http"
	"strings"

	"github.com/atelierforma/configurator/internal/auth"
	"github.com/atelierforma/configurator/internal/middleware"
)

// AuthMiddleware validates Bearer tokens and attaches the user ID to the
// request context for downstream handlers and logging.
type AuthMiddleware struct {
	jwt *auth.JWTService
}

// NewAuthMiddleware creates a new AuthMiddleware instance.
func NewAuthMiddleware(jwt *auth.JWTService) *AuthMiddleware {
	return &AuthMiddleware{jwt: jwt}
}

// bearerToken extracts the token from an Authorization header.
// Returns empty string if the header is missing or malformed.
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

// RequireAuth wraps a handler and rejects requests without a valid access token.
// On success the user ID is stored in the request context via middleware.SetUserID.
func (a *AuthMiddleware) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeAuthFailed)
			WriteError(w, ctx, http.StatusUnauthorized, ErrCodeAuthFailed, "Missing or malformed Authorization header")
			return
		}

		claims, err := a.jwt.ValidateToken(token)
		if err != nil {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeAuthFailed)
			WriteError(w, ctx, http.StatusUnauthorized, ErrCodeAuthFailed, "Invalid or expired token")
			return
		}

		// Refresh tokens must not be used to access API resources
		if claims.Type != "access" {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeAuthFailed)
			WriteError(w, ctx, http.StatusUnauthorized, ErrCodeAuthFailed, "Invalid token type")
			return
		}

		ctx := middleware.SetUserID(r.Context(), claims.Subject)
		next(w, r.WithContext(ctx))
	}
}

// RequireAdmin wraps a handler and rejects requests unless the access token
// carries the admin role.
func (a *AuthMiddleware) RequireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeAuthFailed)
			WriteError(w, ctx, http.StatusUnauthorized, ErrCodeAuthFailed, "Missing or malformed Authorization header")
			return
		}

		claims, err := a.jwt.ValidateToken(token)
		if err != nil {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeAuthFailed)
			WriteError(w, ctx, http.StatusUnauthorized, ErrCodeAuthFailed, "Invalid or expired token")
			return
		}

		if !claims.IsAdmin() {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeForbidden)
			WriteError(w, ctx, http.StatusForbidden, ErrCodeForbidden, "Admin role required")
			return
		}

		ctx := middleware.SetUserID(r.Context(), claims.Subject)
		next(w, r.WithContext(ctx))
	}
}
