package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/windfall/drill_service/internal/errors"
)

const verifyTokenPath = "/api/v1/auth/verify/user-token"

// AuthClient asks the user backend whether a caller token is valid.
type AuthClient struct {
	baseURL string
	client  *http.Client
}

// NewAuthClient creates a verifier for the backend at baseURL.
func NewAuthClient(baseURL string, timeout time.Duration) *AuthClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &AuthClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// Verify reports whether token is accepted. A non-200 reply is a rejection;
// transport and decode failures are errors.
func (c *AuthClient) Verify(ctx context.Context, token string) (bool, error) {
	if c.baseURL == "" {
		return false, errors.New(errors.ErrAuthService, "auth backend not configured")
	}

	body, err := json.Marshal(map[string]string{"token": token})
	if err != nil {
		return false, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+verifyTokenPath, bytes.NewReader(body))
	if err != nil {
		return false, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return false, errors.Wrap(errors.ErrAuthService, "auth backend unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, nil
	}

	var result struct {
		Valid bool `json:"valid"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return false, errors.Wrap(errors.ErrAuthService, "invalid auth backend reply", err)
	}
	return result.Valid, nil
}
