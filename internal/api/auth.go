package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rentmate/rentmate-go/internal/models"
	"github.com/rentmate/rentmate-go/internal/store"
)

type tokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type loginResponse struct {
	tokenPair
	User models.User `json:"user"`
}

// Login exchanges credentials for a token pair and caches tokens plus
// profile fields in the session store.
func (c *Client) Login(ctx context.Context, email, password string) (*models.User, error) {
	var resp loginResponse
	err := c.do(ctx, http.MethodPost, "/api/auth/login", nil,
		map[string]string{"email": email, "password": password}, &resp, false)
	if err != nil {
		return nil, err
	}

	for key, value := range map[string]string{
		store.KeyAccessToken:  resp.AccessToken,
		store.KeyRefreshToken: resp.RefreshToken,
		store.KeyUserID:       resp.User.ID,
		store.KeyNickname:     resp.User.Nickname,
	} {
		if err := c.store.Set(key, value); err != nil {
			return nil, fmt.Errorf("failed to persist session: %w", err)
		}
	}
	return &resp.User, nil
}

// Register creates an account and logs it in.
func (c *Client) Register(ctx context.Context, nickname, email, password string) (*models.User, error) {
	var resp loginResponse
	err := c.do(ctx, http.MethodPost, "/api/auth/register", nil,
		map[string]string{"nickname": nickname, "email": email, "password": password}, &resp, false)
	if err != nil {
		return nil, err
	}

	for key, value := range map[string]string{
		store.KeyAccessToken:  resp.AccessToken,
		store.KeyRefreshToken: resp.RefreshToken,
		store.KeyUserID:       resp.User.ID,
		store.KeyNickname:     resp.User.Nickname,
	} {
		if err := c.store.Set(key, value); err != nil {
			return nil, fmt.Errorf("failed to persist session: %w", err)
		}
	}
	return &resp.User, nil
}

// Me returns the caller's own identity. Chat message classification depends
// on this lookup completing before any live subscription opens.
func (c *Client) Me(ctx context.Context) (*models.User, error) {
	var user models.User
	if err := c.do(ctx, http.MethodGet, "/api/users/me", nil, nil, &user, true); err != nil {
		return nil, err
	}
	return &user, nil
}

// Logout drops the local session. The backend keeps no server-side session
// state beyond token validity, so this is purely a local clear.
func (c *Client) Logout() error {
	return c.store.Clear()
}
