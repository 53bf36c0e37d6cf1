package auth

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/prts-dev/pipesync/internal/api"
	"github.com/prts-dev/pipesync/internal/domain"
)

// TokenResponse holds the tokens returned by the login and refresh endpoints.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

// PasswordFlow implements the backend's OAuth2 password grant.
type PasswordFlow struct {
	client *api.Client
}

// NewPasswordFlow creates a PasswordFlow that talks through client.
func NewPasswordFlow(client *api.Client) *PasswordFlow {
	return &PasswordFlow{client: client}
}

// Login exchanges a username and password for a token pair.
// The endpoint expects a form body, not JSON.
func (f *PasswordFlow) Login(ctx context.Context, username, password string) (TokenResponse, error) {
	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)

	var resp TokenResponse
	if err := f.client.PostForm(ctx, "auth/login", form, &resp); err != nil {
		return TokenResponse{}, fmt.Errorf("logging in: %w", err)
	}
	if resp.AccessToken == "" {
		return TokenResponse{}, fmt.Errorf("logging in: %w", api.ErrInvalidResponse)
	}
	return resp, nil
}

// Refresh exchanges a refresh token for a new token pair.
func (f *PasswordFlow) Refresh(ctx context.Context, refreshToken string) (TokenResponse, error) {
	body := map[string]string{"refresh_token": refreshToken}
	resp, err := api.Request[TokenResponse](ctx, f.client, http.MethodPost, "auth/refresh", body)
	if err != nil {
		return TokenResponse{}, fmt.Errorf("refreshing token: %w", err)
	}
	if resp.AccessToken == "" {
		return TokenResponse{}, fmt.Errorf("refreshing token: %w", api.ErrInvalidResponse)
	}
	return resp, nil
}

// Logout tells the backend to end the session and clears the client token
// regardless of the outcome.
func (f *PasswordFlow) Logout(ctx context.Context) error {
	defer f.client.ClearAuthToken()
	if err := f.client.Do(ctx, http.MethodPost, "auth/logout", nil, &api.EmptyResponse{}); err != nil {
		return fmt.Errorf("logging out: %w", err)
	}
	return nil
}

// CurrentUser returns the user the current token belongs to.
func (f *PasswordFlow) CurrentUser(ctx context.Context) (domain.User, error) {
	return api.Request[domain.User](ctx, f.client, http.MethodGet, "auth/me", nil)
}
