package credentials

import "fmt"

// Keys understood by [Vault].
const (
	KeyAccessToken    = "access_token"
	KeyExpiresAt      = "expires_at_ms"
	KeyRefreshToken   = "refresh_token"
	KeyPendingSession = "pending_session"
	KeyPlayerID       = "player_id"
)

// Store is a string key/value port for credentials.
type Store interface {
	Get(key string) (string, bool)
	Set(key, value string) error
	Remove(key string) error
}

// Vault routes session-scoped keys to one [Store] and long-lived keys to another.
type Vault struct {
	session    Store
	persistent Store
}

// NewVault pairs a session tier with a persistent tier.
func NewVault(session, persistent Store) *Vault {
	return &Vault{session: session, persistent: persistent}
}

func (v *Vault) tier(key string) (Store, error) {
	switch key {
	case KeyAccessToken, KeyExpiresAt:
		return v.session, nil
	case KeyRefreshToken, KeyPendingSession, KeyPlayerID:
		return v.persistent, nil
	default:
		return nil, fmt.Errorf("unknown credential key %q", key)
	}
}

// Get returns the value stored under key.
func (v *Vault) Get(key string) (string, bool) {
	s, err := v.tier(key)
	if err != nil {
		return "", false
	}
	return s.Get(key)
}

// Set stores value under key in the key's tier.
func (v *Vault) Set(key, value string) error {
	s, err := v.tier(key)
	if err != nil {
		return err
	}
	return s.Set(key, value)
}

// Remove deletes key from its tier.
func (v *Vault) Remove(key string) error {
	s, err := v.tier(key)
	if err != nil {
		return err
	}
	return s.Remove(key)
}

// Clear removes every known key from both tiers.
func (v *Vault) Clear() error {
	for _, key := range []string{KeyAccessToken, KeyExpiresAt, KeyRefreshToken, KeyPendingSession, KeyPlayerID} {
		if err := v.Remove(key); err != nil {
			return err
		}
	}
	return nil
}

var _ Store = (*Vault)(nil)
