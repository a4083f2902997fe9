package service

import (
	"context"
	"crypto/subtle"
	"strings"

	"github.com/rs/zerolog"

	"github.com/windfall/drill_service/internal/errors"
)

// TokenVerifier checks a caller token with the auth backend.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (bool, error)
}

// AuthService validates caller tokens against the auth backend.
type AuthService struct {
	verifier    TokenVerifier
	bypassToken string
	log         zerolog.Logger
}

// NewAuthService creates an AuthService. An empty bypassToken disables the
// bypass.
func NewAuthService(verifier TokenVerifier, bypassToken string, log zerolog.Logger) *AuthService {
	return &AuthService{
		verifier:    verifier,
		bypassToken: bypassToken,
		log:         log.With().Str("service", "auth").Logger(),
	}
}

// BypassEnabled reports whether a bypass token is configured.
func (s *AuthService) BypassEnabled() bool {
	return s.bypassToken != ""
}

// ValidateToken returns nil when token is accepted. Backend failures are
// reported as unauthorized so no work runs for an unverified caller.
func (s *AuthService) ValidateToken(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return errors.Unauthorized("missing auth token")
	}
	if s.bypassToken != "" && subtle.ConstantTimeCompare([]byte(token), []byte(s.bypassToken)) == 1 {
		s.log.Debug().Msg("Bypass token accepted")
		return nil
	}
	if s.verifier == nil {
		return errors.Unauthorized("auth backend not configured")
	}

	valid, err := s.verifier.Verify(ctx, token)
	if err != nil {
		s.log.Error().Err(err).Msg("Token verification failed")
		return errors.Unauthorized("could not verify token")
	}
	if !valid {
		return errors.Unauthorized("invalid token")
	}
	return nil
}
