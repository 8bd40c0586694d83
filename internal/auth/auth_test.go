package auth

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/trackguess/internal/credentials"
	"github.com/desertthunder/trackguess/internal/shared"
)

type fakeExchanger struct {
	mu          sync.Mutex
	codeResp    *TokenResponse
	refreshResp *TokenResponse
	err         error
	refreshes   int
	lastRefresh string
}

func (f *fakeExchanger) ExchangeCode(ctx context.Context, code, redirectURI string) (*TokenResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.codeResp, nil
}

func (f *fakeExchanger) RefreshToken(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshes++
	f.lastRefresh = refreshToken
	if f.err != nil {
		return nil, f.err
	}
	return f.refreshResp, nil
}

// failingStore rejects writes for one key.
type failingStore struct {
	*credentials.MemoryStore
	failKey string
}

func (f *failingStore) Set(key, value string) error {
	if key == f.failKey {
		return errors.New("disk full")
	}
	return f.MemoryStore.Set(key, value)
}

func newTestManager(store credentials.Store, ex Exchanger) *Manager {
	m := NewManager(store, ex, log.New(io.Discard))
	m.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }
	return m
}

func newVault() *credentials.Vault {
	return credentials.NewVault(credentials.NewMemoryStore(), credentials.NewMemoryStore())
}

func TestManager(t *testing.T) {
	t.Run("GetAccessToken Missing", func(t *testing.T) {
		m := newTestManager(newVault(), &fakeExchanger{})
		if _, err := m.GetAccessToken(); !errors.Is(err, shared.ErrCredentialMissing) {
			t.Errorf("expected ErrCredentialMissing, got %v", err)
		}
	})

	t.Run("Exchange Stores Credential", func(t *testing.T) {
		ex := &fakeExchanger{codeResp: &TokenResponse{AccessToken: "a1", RefreshToken: "r1", ExpiresIn: 3600}}
		m := newTestManager(newVault(), ex)

		c, err := m.Exchange(context.Background(), "code", "http://127.0.0.1/callback")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		want := time.Date(2025, 6, 1, 13, 0, 0, 0, time.UTC)
		if !c.ExpiresAt.Equal(want) {
			t.Errorf("expected expiry %v, got %v", want, c.ExpiresAt)
		}

		stored, err := m.Credential()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if stored.AccessToken != "a1" || stored.RefreshToken != "r1" {
			t.Errorf("unexpected stored credential %+v", stored)
		}
		if stored.ExpiresAtEpochMs() != want.UnixMilli() {
			t.Errorf("expected expiry ms %d, got %d", want.UnixMilli(), stored.ExpiresAtEpochMs())
		}
	})

	t.Run("Exchange Without Refresh Token", func(t *testing.T) {
		ex := &fakeExchanger{codeResp: &TokenResponse{AccessToken: "a1", ExpiresIn: 3600}}
		m := newTestManager(newVault(), ex)

		if _, err := m.Exchange(context.Background(), "code", ""); !errors.Is(err, shared.ErrAuthFailed) {
			t.Errorf("expected ErrAuthFailed, got %v", err)
		}
	})

	t.Run("Refresh Replaces Access Token", func(t *testing.T) {
		vault := newVault()
		vault.Set(credentials.KeyAccessToken, "old")
		vault.Set(credentials.KeyRefreshToken, "r1")
		ex := &fakeExchanger{refreshResp: &TokenResponse{AccessToken: "new", ExpiresIn: 3600}}
		m := newTestManager(vault, ex)

		token, err := m.Refresh(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if token != "new" {
			t.Errorf("expected new token, got %s", token)
		}
		if ex.lastRefresh != "r1" {
			t.Errorf("expected refresh with r1, got %s", ex.lastRefresh)
		}
		if rt, _ := vault.Get(credentials.KeyRefreshToken); rt != "r1" {
			t.Errorf("refresh token should be kept when none is issued, got %s", rt)
		}
	})

	t.Run("Refresh Rotates Refresh Token", func(t *testing.T) {
		vault := newVault()
		vault.Set(credentials.KeyAccessToken, "old")
		vault.Set(credentials.KeyRefreshToken, "r1")
		ex := &fakeExchanger{refreshResp: &TokenResponse{AccessToken: "new", RefreshToken: "r2", ExpiresIn: 60}}
		m := newTestManager(vault, ex)

		if _, err := m.Refresh(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if rt, _ := vault.Get(credentials.KeyRefreshToken); rt != "r2" {
			t.Errorf("expected rotated refresh token r2, got %s", rt)
		}
	})

	t.Run("Refresh Failure Keeps Prior Credentials", func(t *testing.T) {
		vault := newVault()
		vault.Set(credentials.KeyAccessToken, "old")
		vault.Set(credentials.KeyRefreshToken, "r1")
		m := newTestManager(vault, &fakeExchanger{err: errors.New("invalid_grant")})

		_, err := m.Refresh(context.Background())
		if !errors.Is(err, shared.ErrRefreshFailed) {
			t.Fatalf("expected ErrRefreshFailed, got %v", err)
		}
		if token, _ := m.GetAccessToken(); token != "old" {
			t.Errorf("prior access token should remain, got %s", token)
		}
		if rt, _ := vault.Get(credentials.KeyRefreshToken); rt != "r1" {
			t.Errorf("prior refresh token should remain, got %s", rt)
		}
	})

	t.Run("Refresh Without Refresh Token", func(t *testing.T) {
		ex := &fakeExchanger{}
		m := newTestManager(newVault(), ex)

		if _, err := m.Refresh(context.Background()); !errors.Is(err, shared.ErrRefreshFailed) {
			t.Errorf("expected ErrRefreshFailed, got %v", err)
		}
		if ex.refreshes != 0 {
			t.Error("exchanger should not be called without a refresh token")
		}
	})

	t.Run("Refresh Store Failure Rolls Back", func(t *testing.T) {
		persistent := &failingStore{MemoryStore: credentials.NewMemoryStore(), failKey: credentials.KeyRefreshToken}
		persistent.MemoryStore.Set(credentials.KeyRefreshToken, "r1")
		vault := credentials.NewVault(credentials.NewMemoryStore(), persistent)
		vault.Set(credentials.KeyAccessToken, "old")

		ex := &fakeExchanger{refreshResp: &TokenResponse{AccessToken: "new", RefreshToken: "r2", ExpiresIn: 60}}
		m := newTestManager(vault, ex)

		if _, err := m.Refresh(context.Background()); !errors.Is(err, shared.ErrRefreshFailed) {
			t.Fatalf("expected ErrRefreshFailed, got %v", err)
		}
		if token, _ := m.GetAccessToken(); token != "old" {
			t.Errorf("access token should be restored, got %s", token)
		}
	})

	t.Run("RefreshStale Deduplicates", func(t *testing.T) {
		vault := newVault()
		vault.Set(credentials.KeyAccessToken, "old")
		vault.Set(credentials.KeyRefreshToken, "r1")
		ex := &fakeExchanger{refreshResp: &TokenResponse{AccessToken: "new", ExpiresIn: 60}}
		m := newTestManager(vault, ex)

		var wg sync.WaitGroup
		for range 5 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if token, err := m.RefreshStale(context.Background(), "old"); err != nil || token != "new" {
					t.Errorf("unexpected result %s, %v", token, err)
				}
			}()
		}
		wg.Wait()

		if ex.refreshes != 1 {
			t.Errorf("expected a single exchange, got %d", ex.refreshes)
		}
	})

	t.Run("Pending Session", func(t *testing.T) {
		m := newTestManager(newVault(), &fakeExchanger{})

		state, err := m.BeginSession()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := m.VerifySession("forged"); !errors.Is(err, shared.ErrSessionMismatch) {
			t.Errorf("expected ErrSessionMismatch, got %v", err)
		}
		if err := m.VerifySession(state); err != nil {
			t.Errorf("expected matching state to verify: %v", err)
		}
		if _, ok := m.PendingSession(); ok {
			t.Error("pending session should be consumed")
		}
	})

	t.Run("Logout", func(t *testing.T) {
		vault := newVault()
		vault.Set(credentials.KeyAccessToken, "a")
		vault.Set(credentials.KeyRefreshToken, "r")
		m := newTestManager(vault, &fakeExchanger{})
		m.SetPlayerID("player-1")

		if err := m.Logout(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, err := m.GetAccessToken(); !errors.Is(err, shared.ErrCredentialMissing) {
			t.Error("access token should be removed")
		}
		if _, ok := m.PlayerID(); ok {
			t.Error("player id should be removed")
		}
	})
}

func TestHTTPExchanger(t *testing.T) {
	t.Run("ExchangeCode", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				t.Errorf("expected POST, got %s", r.Method)
			}
			var req ExchangeRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Errorf("failed to decode request: %v", err)
			}
			if req.Code != "abc" || req.RedirectURI != "http://127.0.0.1:3000/callback" {
				t.Errorf("unexpected request %+v", req)
			}
			json.NewEncoder(w).Encode(TokenResponse{AccessToken: "a", RefreshToken: "r", ExpiresIn: 3600, TokenType: "Bearer"})
		}))
		defer srv.Close()

		resp, err := NewHTTPExchanger(srv.URL, srv.Client()).ExchangeCode(context.Background(), "abc", "http://127.0.0.1:3000/callback")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if resp.AccessToken != "a" || resp.RefreshToken != "r" || resp.ExpiresIn != 3600 {
			t.Errorf("unexpected response %+v", resp)
		}
	})

	t.Run("RefreshToken Error Body", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
			json.NewEncoder(w).Encode(ErrorResponse{Error: "invalid_grant"})
		}))
		defer srv.Close()

		_, err := NewHTTPExchanger(srv.URL, nil).RefreshToken(context.Background(), "r")
		if err == nil {
			t.Fatal("expected error")
		}
		if want := "exchange endpoint returned 502: invalid_grant"; err.Error() != want {
			t.Errorf("expected %q, got %q", want, err.Error())
		}
	})

	t.Run("Missing Arguments", func(t *testing.T) {
		ex := NewHTTPExchanger("http://127.0.0.1:0", nil)
		if _, err := ex.ExchangeCode(context.Background(), "", ""); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
		if _, err := ex.RefreshToken(context.Background(), ""); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("Missing Access Token", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"expiresIn": 10}`))
		}))
		defer srv.Close()

		if _, err := NewHTTPExchanger(srv.URL, nil).RefreshToken(context.Background(), "r"); err == nil {
			t.Error("expected error for response without access token")
		}
	})
}
