package shared

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.Database.Path != "./trackguess.db" {
			t.Errorf("expected database path ./trackguess.db, got %s", config.Database.Path)
		}

		if config.Server.Port != 3000 {
			t.Errorf("expected server port 3000, got %d", config.Server.Port)
		}

		if config.Credentials.Spotify.ClientID != "your_spotify_client_id" {
			t.Errorf("expected spotify client_id your_spotify_client_id, got %s", config.Credentials.Spotify.ClientID)
		}

		if config.Client.BaseDelay != 500*time.Millisecond {
			t.Errorf("expected base delay 500ms, got %v", config.Client.BaseDelay)
		}

		if config.Client.MaxRetries != 3 {
			t.Errorf("expected 3 retries, got %d", config.Client.MaxRetries)
		}

		if config.Game.EligibilityWindow != 365*24*time.Hour {
			t.Errorf("expected eligibility window of one year, got %v", config.Game.EligibilityWindow)
		}

		if err := config.Validate(); err != nil {
			t.Errorf("default config should be valid: %v", err)
		}
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "nested", "config.toml")

		if err := CreateConfigFile(configPath); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load created config: %v", err)
		}

		if config.Database.Path != DefaultConfig().Database.Path {
			t.Errorf("created config database path doesn't match default")
		}

		if err := CreateConfigFile(configPath); err == nil {
			t.Error("creating config file again should fail")
		}
	})

	t.Run("LoadConfig", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		testConfig := `[database]
driver = "postgres"
url = "postgres://localhost/trackguess"

[server]
host = "0.0.0.0"
port = 8080

[client]
base_delay = "2s"

[game]
minimum_answers = 3

[credentials.spotify]
client_id = "test_client_id"
client_secret = "test_secret"
redirect_uri = "http://localhost:3000/callback"
`
		if err := os.WriteFile(configPath, []byte(testConfig), 0o644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}

		if config.Database.Driver != "postgres" {
			t.Errorf("expected postgres driver, got %s", config.Database.Driver)
		}

		if config.Server.Port != 8080 {
			t.Errorf("expected server port 8080, got %d", config.Server.Port)
		}

		if config.Client.BaseDelay != 2*time.Second {
			t.Errorf("expected base delay 2s, got %v", config.Client.BaseDelay)
		}

		if config.Game.MinimumAnswers != 3 {
			t.Errorf("expected minimum 3, got %d", config.Game.MinimumAnswers)
		}

		if config.Client.MaxRetries != 3 {
			t.Errorf("unset values should keep defaults, got max_retries %d", config.Client.MaxRetries)
		}
	})

	t.Run("LoadConfig Rejects Invalid Values", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")
		if err := os.WriteFile(configPath, []byte("[database]\ndriver = \"mysql\"\n"), 0o644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		_, err := LoadConfig(configPath)
		if !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})

	t.Run("ApplyEnv", func(t *testing.T) {
		t.Setenv("TRACKGUESS_SPOTIFY_CLIENT_SECRET", "from-env")
		t.Setenv("TRACKGUESS_DATABASE_URL", "")

		config := DefaultConfig()
		config.Database.URL = "postgres://kept"
		config.ApplyEnv()

		if config.Credentials.Spotify.ClientSecret != "from-env" {
			t.Errorf("expected secret from env, got %s", config.Credentials.Spotify.ClientSecret)
		}
		if config.Database.URL != "postgres://kept" {
			t.Errorf("empty env values should not override, got %s", config.Database.URL)
		}
	})

	t.Run("LoadEnv", func(t *testing.T) {
		dir := t.TempDir()
		if err := LoadEnv(filepath.Join(dir, "missing.env")); err != nil {
			t.Errorf("missing env file should be ignored: %v", err)
		}

		envPath := filepath.Join(dir, ".env")
		if err := os.WriteFile(envPath, []byte("TRACKGUESS_TEST_LOAD_ENV=loaded\n"), 0o600); err != nil {
			t.Fatalf("failed to write env file: %v", err)
		}
		t.Cleanup(func() { os.Unsetenv("TRACKGUESS_TEST_LOAD_ENV") })

		if err := LoadEnv(envPath); err != nil {
			t.Fatalf("failed to load env file: %v", err)
		}
		if got := os.Getenv("TRACKGUESS_TEST_LOAD_ENV"); got != "loaded" {
			t.Errorf("expected loaded, got %q", got)
		}
	})

	t.Run("ExpandHome", func(t *testing.T) {
		home, err := os.UserHomeDir()
		if err != nil {
			t.Skip("no home directory")
		}

		if got := ExpandHome("~/.trackguess"); got != filepath.Join(home, ".trackguess") {
			t.Errorf("unexpected expansion %s", got)
		}
		if got := ExpandHome("/abs/path"); got != "/abs/path" {
			t.Errorf("absolute paths should be unchanged, got %s", got)
		}
	})
}
