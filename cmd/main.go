package main

import (
	"context"
	"errors"
	"os"

	"github.com/desertthunder/trackguess/internal/answers"
	"github.com/desertthunder/trackguess/internal/formatter"
	"github.com/desertthunder/trackguess/internal/shared"
	"github.com/urfave/cli/v3"
)

func main() {
	logger := shared.NewLogger(nil)

	if err := shared.LoadEnv(".env"); err != nil {
		logger.Warn("failed to load .env", "error", err)
	}

	configPath := os.Getenv("TRACKGUESS_CONFIG")
	if configPath == "" {
		configPath = "config.toml"
	}

	config := shared.DefaultConfig()
	if _, err := os.Stat(configPath); err == nil {
		loaded, err := shared.LoadConfig(configPath)
		if err != nil {
			logger.Fatalf("failed to load %s: %v", configPath, err)
		}
		config = loaded
	} else {
		config.ApplyEnv()
	}
	logger = shared.NewConfiguredLogger(config.Log)

	vault, err := OpenCredentials(config.Auth.CredentialsDir)
	if err != nil {
		logger.Fatalf("failed to open credentials: %v", err)
	}

	palette := formatter.DefaultPalette
	if os.Getenv("NO_COLOR") != "" {
		palette = formatter.PlainPalette()
	}

	runner := NewRunner(RunnerOpts{
		Config:      config,
		ConfigPath:  configPath,
		Logger:      logger,
		Credentials: vault,
		Palette:     palette,
	})

	app := &cli.Command{
		Name:     "trackguess",
		Usage:    "Pick the songs your friends will have to guess",
		Version:  "0.1.0",
		Commands: runner.register(),
	}

	err = app.Run(context.Background(), os.Args)
	runner.Close()
	if err == nil {
		return
	}

	switch {
	case errors.Is(err, shared.ErrCredentialMissing), errors.Is(err, shared.ErrRefreshFailed):
		logger.Error("not signed in", "error", err)
		logger.Info("run 'trackguess auth login' to sign in with Spotify")
	case errors.Is(err, shared.ErrRateLimited), errors.Is(err, shared.ErrUnavailable):
		logger.Error("Spotify is unavailable, try again shortly", "error", err)
	case answers.IsSlotError(err):
		logger.Error("answer not saved", "error", err)
	default:
		logger.Fatalf("application error: %v", err)
	}
	os.Exit(1)
}
