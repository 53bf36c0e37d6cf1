package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/prts-dev/pipesync/internal/api"
	"github.com/prts-dev/pipesync/internal/config"
)

// ErrNoRefreshToken is returned by Refresh when no refresh token is stored.
var ErrNoRefreshToken = errors.New("no refresh token available")

// TokenManager owns the session tokens: it keeps the API client's bearer token,
// the in-memory config and the config file in step.
type TokenManager struct {
	cfg        *config.Config
	configPath string
	client     *api.Client
	flow       *PasswordFlow
	mu         sync.Mutex
}

// NewTokenManager creates a TokenManager.
// Pass an empty configPath to keep tokens in memory only.
func NewTokenManager(cfg *config.Config, configPath string, client *api.Client) *TokenManager {
	return &TokenManager{
		cfg:        cfg,
		configPath: configPath,
		client:     client,
		flow:       NewPasswordFlow(client),
	}
}

// Restore applies the stored access token to the client, if any.
// It reports whether a token was applied.
func (tm *TokenManager) Restore() bool {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	if tm.cfg.API.Token == "" {
		return false
	}
	tm.client.SetAuthToken(tm.cfg.API.Token)
	return true
}

// Login authenticates with a username and password and persists the new tokens.
func (tm *TokenManager) Login(ctx context.Context, username, password string) error {
	resp, err := tm.flow.Login(ctx, username, password)
	if err != nil {
		return err
	}

	tm.mu.Lock()
	defer tm.mu.Unlock()
	tm.cfg.API.Token = resp.AccessToken
	tm.cfg.API.RefreshToken = resp.RefreshToken
	tm.cfg.API.Username = username
	tm.client.SetAuthToken(resp.AccessToken)
	return tm.save()
}

// Refresh obtains a new access token with the stored refresh token.
// On success it updates the config in memory and persists it to disk.
// Returns the new access token or an error.
func (tm *TokenManager) Refresh(ctx context.Context) (string, error) {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	if tm.cfg.API.RefreshToken == "" {
		return "", ErrNoRefreshToken
	}

	resp, err := tm.flow.Refresh(ctx, tm.cfg.API.RefreshToken)
	if err != nil {
		return "", err
	}

	tm.cfg.API.Token = resp.AccessToken
	if resp.RefreshToken != "" {
		tm.cfg.API.RefreshToken = resp.RefreshToken
	}

	if saveErr := tm.save(); saveErr != nil {
		// Token refreshed in memory but save failed -- still return it
		// since the token is usable for this session
		return resp.AccessToken, fmt.Errorf("token refreshed but failed to save config: %w", saveErr)
	}
	return resp.AccessToken, nil
}

// Logout ends the backend session and forgets the stored tokens.
// Local state is cleared even when the backend call fails.
func (tm *TokenManager) Logout(ctx context.Context) error {
	logoutErr := tm.flow.Logout(ctx)

	tm.mu.Lock()
	defer tm.mu.Unlock()
	tm.cfg.API.Token = ""
	tm.cfg.API.RefreshToken = ""
	if err := tm.save(); err != nil {
		return err
	}
	return logoutErr
}

// Flow returns the underlying password flow.
func (tm *TokenManager) Flow() *PasswordFlow {
	return tm.flow
}

// Config returns the current config pointer.
func (tm *TokenManager) Config() *config.Config {
	return tm.cfg
}

func (tm *TokenManager) save() error {
	if tm.configPath == "" {
		return nil
	}
	return config.Save(tm.configPath, *tm.cfg)
}
