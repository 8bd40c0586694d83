package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/desertthunder/trackguess/internal/credentials"
	"github.com/desertthunder/trackguess/internal/server"
	"github.com/desertthunder/trackguess/internal/shared"
	"github.com/urfave/cli/v3"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
)

const defaultLoginTimeout = 2 * time.Minute

// AuthLogin runs the authorization code flow for the player.
//
// Starts a local HTTP server for the redirect, opens the browser, exchanges the verified code through
// the exchange endpoint and caches the player's Spotify user ID.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	spotifyConf := r.config.Credentials.Spotify
	if spotifyConf.ClientID == "" {
		return fmt.Errorf("%w: credentials.spotify.client_id must be set", shared.ErrMissingCredentials)
	}

	redirect, err := url.Parse(spotifyConf.RedirectURI)
	if err != nil || redirect.Host == "" {
		return fmt.Errorf("%w: invalid redirect_uri %q", shared.ErrInvalidConfig, spotifyConf.RedirectURI)
	}

	state, err := r.tokens.BeginSession()
	if err != nil {
		return err
	}

	authenticator := spotifyauth.New(
		spotifyauth.WithClientID(spotifyConf.ClientID),
		spotifyauth.WithRedirectURL(spotifyConf.RedirectURI),
		spotifyauth.WithScopes(spotifyConf.Scopes...),
	)

	code, err := r.doOAuth(ctx, redirect, authenticator.AuthURL(state), cmd.Duration("timeout"), !cmd.Bool("no-browser"))
	if err != nil {
		return err
	}

	cred, err := r.tokens.Exchange(ctx, code, spotifyConf.RedirectURI)
	if err != nil {
		return err
	}

	user, err := r.tracks.CurrentUser(ctx)
	if err != nil {
		return fmt.Errorf("failed to load Spotify profile: %w", err)
	}
	if err := r.tokens.SetPlayerID(user.ID); err != nil {
		return fmt.Errorf("failed to store player id: %w", err)
	}

	r.writePlainln("✓ Signed in as %s", displayName(user.DisplayName, user.ID))
	r.writePlain("  Access token expires %s\n", cred.ExpiresAt.Local().Format(time.Kitchen))
	return r.writePlain("\nYou can now use: trackguess answers list\n")
}

func (r *Runner) doOAuth(ctx context.Context, redirect *url.URL, authURL string, timeout time.Duration, openBrowser bool) (string, error) {
	oauthHandler := server.NewOAuthHandler(r.tokens.VerifySession)
	router := server.NewBasicRouter()
	router.Use(server.DefaultMiddleware(r.logger)...)
	router.Handler(oauthHandler)

	if redirect.Path != "/callback" {
		r.logger.Warn("redirect_uri path differs from the local callback route", "path", redirect.Path)
	}

	httpServer := &http.Server{
		Addr:              redirect.Host,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		r.logger.Infof("starting OAuth callback server at %v", redirect.Host)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
	}()

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			r.logger.Warn("error shutting down server", "error", err)
		}
	}()

	if openBrowser {
		r.writePlain("→ Opening browser for Spotify sign-in...\n")
		if err := shared.OpenBrowser(authURL); err != nil {
			r.logger.Warnf("failed to open browser automatically %v", err)
			r.writePlainln("⚠ Could not open browser automatically.")
			openBrowser = false
		}
	}
	if !openBrowser {
		r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
	}

	r.writePlain("→ Waiting for authorization (%s timeout)...\n", timeout)

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var result server.OAuthResult
	select {
	case result = <-oauthHandler.Result():
	case err := <-serverErrors:
		return "", fmt.Errorf("server error: %w", err)
	case <-timer.C:
		return "", fmt.Errorf("%w: authorization timed out after %s", shared.ErrTimeout, timeout)
	case <-ctx.Done():
		return "", ctx.Err()
	}

	if err := result.Error(); err != nil {
		return "", fmt.Errorf("%w: %v", shared.ErrAuthFailed, err)
	}
	return result.Code, nil
}

// AuthLogout removes the stored credential, pending session and player id.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	if err := r.tokens.Logout(); err != nil {
		return err
	}
	r.logger.Info("credentials removed")
	return r.writePlain("✓ Signed out\n")
}

type authStatus struct {
	SignedIn       bool       `json:"signedIn"`
	PlayerID       string     `json:"playerId,omitempty"`
	ExpiresAt      *time.Time `json:"expiresAt,omitempty"`
	Expired        bool       `json:"expired"`
	CanRefresh     bool       `json:"canRefresh"`
	PendingSignIn  bool       `json:"pendingSignIn"`
	ExchangeURL    string     `json:"exchangeUrl"`
	CredentialsDir string     `json:"credentialsDir"`
}

// AuthStatus reports the stored credential without contacting any service.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	status := authStatus{
		ExchangeURL:    r.config.Auth.ExchangeURL,
		CredentialsDir: shared.ExpandHome(r.config.Auth.CredentialsDir),
	}
	status.PlayerID, _ = r.tokens.PlayerID()
	_, status.PendingSignIn = r.tokens.PendingSession()

	cred, err := r.tokens.Credential()
	switch {
	case err == nil:
		status.SignedIn = true
		status.CanRefresh = cred.RefreshToken != ""
		if !cred.ExpiresAt.IsZero() {
			expires := cred.ExpiresAt
			status.ExpiresAt = &expires
			status.Expired = !r.now().Before(expires)
		}
	case errors.Is(err, shared.ErrCredentialMissing):
		_, status.CanRefresh = r.credentialsRefreshToken()
	default:
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(status, true)
	}

	if status.SignedIn {
		r.writePlain("✓ Signed in\n")
	} else {
		r.writePlain("✗ No access token for this session\n")
	}
	if status.PlayerID != "" {
		r.writePlain("Player: %s\n", status.PlayerID)
	}
	if status.ExpiresAt != nil {
		state := "valid"
		if status.Expired {
			state = "expired"
		}
		r.writePlain("Access token: %s until %s\n", state, status.ExpiresAt.Local().Format(time.RFC1123))
	}
	if status.CanRefresh {
		r.writePlain("Refresh token: stored\n")
	} else {
		r.writePlain("Refresh token: none (run 'trackguess auth login')\n")
	}
	if status.PendingSignIn {
		r.writePlain("Sign-in in progress\n")
	}
	return nil
}

// AuthRefresh forces a token refresh through the exchange endpoint.
func (r *Runner) AuthRefresh(ctx context.Context, cmd *cli.Command) error {
	if _, err := r.tokens.Refresh(ctx); err != nil {
		return err
	}
	cred, err := r.tokens.Credential()
	if err != nil {
		return err
	}
	return r.writePlain("✓ Access token refreshed, expires %s\n", cred.ExpiresAt.Local().Format(time.Kitchen))
}

func (r *Runner) credentialsRefreshToken() (string, bool) {
	token, ok := r.credentials.Get(credentials.KeyRefreshToken)
	return token, ok && token != ""
}

func displayName(name, id string) string {
	if name == "" {
		return id
	}
	return fmt.Sprintf("%s (%s)", name, id)
}
