// Package api is the JSON client for the marketplace backend: items,
// rentals, reviews, payments, chat rooms, and the caller's own identity.
// Credentials come from an injected session store, never from ambient state.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/rentmate/rentmate-go/internal/store"
)

// refreshLeeway is how close to expiry an access token may get before the
// client refreshes it ahead of an authenticated call.
const refreshLeeway = 30 * time.Second

type Client struct {
	baseURL string
	http    *http.Client
	store   store.SessionStore
	now     func() time.Time
}

// New returns a client for the backend at baseURL. A nil httpClient uses a
// default with a 15s timeout, matching the server's own read/write budget.
func New(baseURL string, sessions store.SessionStore, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		store:   sessions,
		now:     time.Now,
	}
}

// do performs one JSON request. Authenticated requests get a bearer token
// from the session store, refreshed first when it is about to expire. A nil
// out discards the response body.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any, authed bool) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var buf *bytes.Buffer
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		buf = bytes.NewBuffer(data)
	} else {
		buf = &bytes.Buffer{}
	}

	req, err := http.NewRequestWithContext(ctx, method, u, buf)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	if authed {
		token, err := c.accessToken(ctx)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return responseError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// accessToken returns the stored access token, refreshing it through the
// refresh token when it expires within refreshLeeway. The exp claim is read
// without signature verification; the server remains the authority and will
// still reject a forged token.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	token := c.store.Get(store.KeyAccessToken)
	if token == "" {
		return "", fmt.Errorf("%w: not logged in", ErrUnauthorized)
	}

	if !c.tokenFresh(token) {
		refreshed, err := c.refresh(ctx)
		if err != nil {
			slog.Warn("token refresh failed", "error", err)
			return "", fmt.Errorf("%w: session expired", ErrUnauthorized)
		}
		token = refreshed
	}
	return token, nil
}

func (c *Client) tokenFresh(token string) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		// No exp claim: assume the server issued a non-expiring token.
		return err == nil
	}
	return c.now().Add(refreshLeeway).Before(exp.Time)
}

func (c *Client) refresh(ctx context.Context) (string, error) {
	refreshToken := c.store.Get(store.KeyRefreshToken)
	if refreshToken == "" {
		return "", fmt.Errorf("no refresh token")
	}

	var resp tokenPair
	err := c.do(ctx, http.MethodPost, "/api/auth/refresh", nil,
		map[string]string{"refreshToken": refreshToken}, &resp, false)
	if err != nil {
		return "", err
	}

	if err := c.store.Set(store.KeyAccessToken, resp.AccessToken); err != nil {
		return "", fmt.Errorf("failed to persist access token: %w", err)
	}
	if resp.RefreshToken != "" {
		if err := c.store.Set(store.KeyRefreshToken, resp.RefreshToken); err != nil {
			return "", fmt.Errorf("failed to persist refresh token: %w", err)
		}
	}
	return resp.AccessToken, nil
}
