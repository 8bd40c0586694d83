package auth

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/trackguess/internal/credentials"
	"github.com/desertthunder/trackguess/internal/models"
	"github.com/desertthunder/trackguess/internal/shared"
)

// Manager owns the credential lifecycle: initial exchange, reactive refresh and logout.
type Manager struct {
	mu        sync.Mutex
	store     credentials.Store
	exchanger Exchanger
	logger    *log.Logger
	now       func() time.Time
}

// NewManager creates a [Manager] backed by store. Session-scoped and persistent keys are
// routed by the store, typically a [credentials.Vault].
func NewManager(store credentials.Store, exchanger Exchanger, logger *log.Logger) *Manager {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Manager{
		store:     store,
		exchanger: exchanger,
		logger:    logger,
		now:       time.Now,
	}
}

// GetAccessToken returns the current access token or [shared.ErrCredentialMissing].
func (m *Manager) GetAccessToken() (string, error) {
	token, ok := m.store.Get(credentials.KeyAccessToken)
	if !ok || token == "" {
		return "", shared.ErrCredentialMissing
	}
	return token, nil
}

// Credential returns a snapshot of the stored credential.
func (m *Manager) Credential() (models.Credential, error) {
	access, err := m.GetAccessToken()
	if err != nil {
		return models.Credential{}, err
	}

	c := models.Credential{AccessToken: access}
	c.RefreshToken, _ = m.store.Get(credentials.KeyRefreshToken)
	if raw, ok := m.store.Get(credentials.KeyExpiresAt); ok {
		if ms, err := strconv.ParseInt(raw, 10, 64); err == nil && ms > 0 {
			c.ExpiresAt = time.UnixMilli(ms)
		}
	}
	return c, nil
}

// Exchange trades a verified authorization code for the initial credential.
func (m *Manager) Exchange(ctx context.Context, code, redirectURI string) (models.Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	resp, err := m.exchanger.ExchangeCode(ctx, code, redirectURI)
	if err != nil {
		return models.Credential{}, fmt.Errorf("%w: %v", shared.ErrAuthFailed, err)
	}
	if resp.RefreshToken == "" {
		return models.Credential{}, fmt.Errorf("%w: no refresh token issued", shared.ErrAuthFailed)
	}

	c, err := m.apply(resp)
	if err != nil {
		return models.Credential{}, fmt.Errorf("%w: %v", shared.ErrAuthFailed, err)
	}
	m.logger.Info("credential stored", "expires_at", c.ExpiresAt.Format(time.RFC3339))
	return c, nil
}

// Refresh exchanges the stored refresh token for a new access token.
//
// On failure the previous credential is left in place and the error wraps
// [shared.ErrRefreshFailed].
func (m *Manager) Refresh(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.refresh(ctx)
}

// RefreshStale refreshes only if stale is still the stored access token.
//
// Callers that saw a 401 with stale use this so concurrent failures trigger a single
// exchange. When another caller already refreshed, the current token is returned.
func (m *Manager) RefreshStale(ctx context.Context, stale string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if current, ok := m.store.Get(credentials.KeyAccessToken); ok && current != "" && current != stale {
		return current, nil
	}
	return m.refresh(ctx)
}

func (m *Manager) refresh(ctx context.Context) (string, error) {
	refreshToken, ok := m.store.Get(credentials.KeyRefreshToken)
	if !ok || refreshToken == "" {
		return "", fmt.Errorf("%w: %v", shared.ErrRefreshFailed, shared.ErrCredentialMissing)
	}

	resp, err := m.exchanger.RefreshToken(ctx, refreshToken)
	if err != nil {
		m.logger.Warn("token refresh failed", "err", err)
		return "", fmt.Errorf("%w: %v", shared.ErrRefreshFailed, err)
	}

	c, err := m.apply(resp)
	if err != nil {
		return "", fmt.Errorf("%w: %v", shared.ErrRefreshFailed, err)
	}
	m.logger.Debug("access token refreshed", "rotated", resp.RefreshToken != "")
	return c.AccessToken, nil
}

// apply stores the response, restoring the previous values if any write fails.
func (m *Manager) apply(resp *TokenResponse) (models.Credential, error) {
	c := models.Credential{AccessToken: resp.AccessToken, RefreshToken: resp.RefreshToken}
	if resp.ExpiresIn > 0 {
		c.ExpiresAt = m.now().Add(time.Duration(resp.ExpiresIn) * time.Second)
	}

	writes := map[string]string{
		credentials.KeyAccessToken: c.AccessToken,
		credentials.KeyExpiresAt:   strconv.FormatInt(c.ExpiresAtEpochMs(), 10),
	}
	if c.RefreshToken != "" {
		writes[credentials.KeyRefreshToken] = c.RefreshToken
	} else {
		c.RefreshToken, _ = m.store.Get(credentials.KeyRefreshToken)
	}

	type previous struct {
		value string
		ok    bool
	}
	saved := make(map[string]previous, len(writes))
	for key := range writes {
		v, ok := m.store.Get(key)
		saved[key] = previous{v, ok}
	}

	for key, value := range writes {
		if err := m.store.Set(key, value); err != nil {
			for k, p := range saved {
				if p.ok {
					m.store.Set(k, p.value)
				} else {
					m.store.Remove(k)
				}
			}
			return models.Credential{}, fmt.Errorf("failed to store %s: %w", key, err)
		}
	}
	return c, nil
}

// BeginSession creates and stores a pending session identifier used as the OAuth state.
func (m *Manager) BeginSession() (string, error) {
	state := shared.GenerateID()
	if err := m.store.Set(credentials.KeyPendingSession, state); err != nil {
		return "", fmt.Errorf("failed to store pending session: %w", err)
	}
	return state, nil
}

// PendingSession returns the stored pending session identifier.
func (m *Manager) PendingSession() (string, bool) {
	return m.store.Get(credentials.KeyPendingSession)
}

// VerifySession checks state against the pending session and consumes it on success.
func (m *Manager) VerifySession(state string) error {
	pending, ok := m.store.Get(credentials.KeyPendingSession)
	if !ok || pending == "" || state != pending {
		return shared.ErrSessionMismatch
	}
	return m.store.Remove(credentials.KeyPendingSession)
}

// PlayerID returns the cached player id.
func (m *Manager) PlayerID() (string, bool) {
	id, ok := m.store.Get(credentials.KeyPlayerID)
	return id, ok && id != ""
}

// SetPlayerID caches the player id alongside the refresh token.
func (m *Manager) SetPlayerID(id string) error {
	return m.store.Set(credentials.KeyPlayerID, id)
}

// Logout removes every stored credential.
func (m *Manager) Logout() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, key := range []string{
		credentials.KeyAccessToken,
		credentials.KeyExpiresAt,
		credentials.KeyRefreshToken,
		credentials.KeyPendingSession,
		credentials.KeyPlayerID,
	} {
		if err := m.store.Remove(key); err != nil {
			return fmt.Errorf("failed to remove %s: %w", key, err)
		}
	}
	return nil
}
