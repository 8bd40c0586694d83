package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/desertthunder/trackguess/internal/server"
	"github.com/desertthunder/trackguess/internal/shared"
	"github.com/urfave/cli/v3"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"
)

// oauthConfig is the provider configuration used by the exchange endpoint, including the client secret.
func (r *Runner) oauthConfig() *oauth2.Config {
	spotifyConf := r.config.Credentials.Spotify
	return &oauth2.Config{
		ClientID:     spotifyConf.ClientID,
		ClientSecret: spotifyConf.ClientSecret,
		RedirectURL:  spotifyConf.RedirectURI,
		Scopes:       spotifyConf.Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:   spotifyauth.AuthURL,
			TokenURL:  spotifyauth.TokenURL,
			AuthStyle: oauth2.AuthStyleInHeader,
		},
	}
}

// newServeRouter mounts the token exchange endpoint and a health check.
func (r *Runner) newServeRouter(config *oauth2.Config) *server.BasicRouter {
	logger := shared.WithLogger(r.logger, "component", "exchange")

	router := server.NewBasicRouter()
	router.Use(server.DefaultMiddleware(logger)...)
	router.Handler(server.NewTokenHandler(config, r.httpClient, logger))
	router.Handle(http.MethodGet, "/health", http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	}))
	return router
}

// Serve runs the token exchange endpoint until interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	config := r.oauthConfig()
	if config.ClientID == "" || config.ClientSecret == "" {
		return fmt.Errorf("%w: credentials.spotify.client_id and client_secret must be set", shared.ErrMissingCredentials)
	}

	addr := cmd.String("addr")
	if addr == "" {
		addr = r.config.Server.Addr()
	}

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           r.newServeRouter(config),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	serverErrors := make(chan error, 1)
	go func() {
		r.logger.Info("token exchange listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
		close(serverErrors)
	}()

	select {
	case err := <-serverErrors:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	r.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
