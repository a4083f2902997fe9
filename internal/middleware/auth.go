package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/windfall/drill_service/pkg/response"
)

type contextKey string

// CallerIDKey holds the caller fingerprint in the request context.
const CallerIDKey contextKey = "caller_id"

// TokenHeader is the header the clients send their token in.
const TokenHeader = "authtoken"

// TokenValidator is satisfied by service.AuthService.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) error
}

// Auth rejects requests without a valid token before any handler runs.
// The token is read from the authtoken header, falling back to a Bearer
// Authorization header.
func Auth(validator TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := TokenFromRequest(r)
			if token == "" {
				response.Unauthorized(w, "missing auth token")
				return
			}

			if err := validator.ValidateToken(r.Context(), token); err != nil {
				response.FromError(w, err)
				return
			}

			ctx := context.WithValue(r.Context(), CallerIDKey, CallerID(token))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// TokenFromRequest extracts the caller token, or "".
func TokenFromRequest(r *http.Request) string {
	if token := strings.TrimSpace(r.Header.Get(TokenHeader)); token != "" {
		return token
	}
	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}

// CallerID is a stable, non-reversible fingerprint of token used to tag
// logs and the generation history.
func CallerID(token string) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(token))
}

// GetCallerID extracts the caller fingerprint from the request context.
func GetCallerID(ctx context.Context) string {
	if id, ok := ctx.Value(CallerIDKey).(string); ok {
		return id
	}
	return ""
}
