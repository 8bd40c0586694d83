package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/trackguess/internal/auth"
	"github.com/desertthunder/trackguess/internal/credentials"
	"github.com/desertthunder/trackguess/internal/repositories"
	"github.com/desertthunder/trackguess/internal/shared"
	tu "github.com/desertthunder/trackguess/internal/testing"
	"github.com/urfave/cli/v3"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

const testPlayer = "player-1"

// fakeSpotify serves the catalog endpoints and only accepts the given bearer token.
func fakeSpotify(t *testing.T, token *atomic.Value) *httptest.Server {
	t.Helper()
	track := func(id, name, released string) map[string]any {
		return map[string]any{
			"id":            id,
			"name":          name,
			"artists":       []map[string]any{{"name": "Artist"}},
			"album":         map[string]any{"name": name + " LP", "release_date": released},
			"external_urls": map[string]string{"spotify": "https://open.example/track/" + id},
		}
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+token.Load().(string) {
			w.WriteHeader(http.StatusUnauthorized)
			io.WriteString(w, `{"error":{"status":401,"message":"The access token expired"}}`)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/tracks/t-new":
			json.NewEncoder(w).Encode(track("t-new", "Fresh", "2025-03-10"))
		case "/tracks/t-old":
			json.NewEncoder(w).Encode(track("t-old", "Classic", "2019-01-01"))
		case "/search":
			json.NewEncoder(w).Encode(map[string]any{
				"tracks": map[string]any{"items": []any{track("t-new", "Fresh", "2025-03-10"), track("t-old", "Classic", "2019-01-01")}},
			})
		case "/me":
			io.WriteString(w, `{"id":"player-1","display_name":"Player One"}`)
		default:
			w.WriteHeader(http.StatusNotFound)
			io.WriteString(w, `{"error":{"status":404,"message":"non existing id"}}`)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

// fakeExchange answers refresh requests with access-2.
func fakeExchange(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req auth.ExchangeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken != "refresh-1" {
			w.WriteHeader(http.StatusBadGateway)
			json.NewEncoder(w).Encode(auth.ErrorResponse{Error: "invalid_grant"})
			return
		}
		json.NewEncoder(w).Encode(auth.TokenResponse{AccessToken: "access-2", ExpiresIn: 3600})
	}))
	t.Cleanup(srv.Close)
	return srv
}

type harness struct {
	runner *Runner
	output *bytes.Buffer
	vault  *credentials.Vault
	store  *repositories.Store
	token  *atomic.Value
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	token := &atomic.Value{}
	token.Store("access-1")
	api := fakeSpotify(t, token)
	exchange := fakeExchange(t)

	config := shared.DefaultConfig()
	config.Client.BaseURL = api.URL
	config.Client.BaseDelay = time.Millisecond
	config.Client.RequestsPerSecond = 0
	config.Auth.ExchangeURL = exchange.URL
	config.Game.MinimumAnswers = 3

	db, err := shared.OpenDatabase(shared.DatabaseConfig{Driver: "sqlite", Path: ":memory:"})
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		t.Fatalf("failed to enable foreign keys: %v", err)
	}
	store := repositories.NewStore(db, config.Game.MinimumAnswers)

	vault := credentials.NewVault(credentials.NewMemoryStore(), credentials.NewMemoryStore())
	vault.Set(credentials.KeyAccessToken, "access-1")
	vault.Set(credentials.KeyRefreshToken, "refresh-1")
	vault.Set(credentials.KeyPlayerID, testPlayer)

	output := &bytes.Buffer{}
	runner := NewRunner(RunnerOpts{
		Config:      config,
		Logger:      log.New(io.Discard),
		Output:      output,
		HTTPClient:  api.Client(),
		Credentials: vault,
		Store:       store,
		Now:         func() time.Time { return testNow },
	})
	return &harness{runner: runner, output: output, vault: vault, store: store, token: token}
}

func (h *harness) run(t *testing.T, args ...string) error {
	t.Helper()
	h.output.Reset()
	app := &cli.Command{Name: "trackguess", Commands: h.runner.register()}
	return app.Run(context.Background(), append([]string{"trackguess"}, args...))
}

func (h *harness) answered(t *testing.T) map[string]string {
	t.Helper()
	stored, err := h.store.Answers.ForPlayer(context.Background(), testPlayer)
	if err != nil {
		t.Fatalf("failed to read answers: %v", err)
	}
	out := make(map[string]string, len(stored))
	for _, a := range stored {
		out[a.QuestionID] = a.Track.ID
	}
	return out
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}
			httpClient := &http.Client{}
			vault := credentials.NewVault(credentials.NewMemoryStore(), credentials.NewMemoryStore())

			runner := NewRunner(RunnerOpts{
				Config:      config,
				Logger:      logger,
				Output:      output,
				HTTPClient:  httpClient,
				Credentials: vault,
			})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
			if runner.httpClient != httpClient {
				t.Error("expected httpClient to be set")
			}
			if runner.credentials != vault {
				t.Error("expected credentials to be set")
			}
			if runner.tokens == nil || runner.tracks == nil {
				t.Error("expected token manager and track service to be built")
			}
		})

		t.Run("with nil options uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			if runner.config == nil {
				t.Error("expected default config to be set")
			}
			if runner.logger == nil {
				t.Error("expected default logger to be set")
			}
			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
			if runner.httpClient == nil || runner.httpClient.Timeout != runner.config.Client.Timeout {
				t.Error("expected httpClient with the configured timeout")
			}
			if runner.configPath != "config.toml" {
				t.Errorf("expected default config path, got %s", runner.configPath)
			}
			if runner.store != nil {
				t.Error("expected store to be opened lazily")
			}
		})
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("writes formatted JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, true); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if !strings.Contains(result, `"key": "value"`) {
				t.Errorf("expected formatted JSON, got %s", result)
			}
			if !strings.HasSuffix(result, "\n") {
				t.Error("expected output to end with newline")
			}
		})

		t.Run("writes compact JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, false); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			expected := `{"key":"value"}` + "\n"
			if output.String() != expected {
				t.Errorf("expected %q, got %q", expected, output.String())
			}
		})

		t.Run("handles marshal error with non-serializable data", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})

			err := runner.writeJSON(make(chan int), false)
			if err == nil || !strings.Contains(err.Error(), "failed to marshal JSON") {
				t.Errorf("expected marshal error, got %v", err)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil || !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})
	})

	t.Run("writePlain", func(t *testing.T) {
		t.Run("writes plain text successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writePlain("hello %s", "world"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if output.String() != "hello world" {
				t.Errorf("expected 'hello world', got %q", output.String())
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			if err := runner.writePlain("test"); err == nil {
				t.Fatal("expected error from failing writer")
			}
		})
	})

	t.Run("register", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})
		names := map[string]bool{}
		for i, cmd := range runner.register() {
			if cmd == nil {
				t.Fatalf("command at index %d is nil", i)
			}
			names[cmd.Name] = true
		}
		for _, want := range []string{"setup", "auth", "serve", "questions", "search", "answers", "status"} {
			if !names[want] {
				t.Errorf("expected %s command", want)
			}
		}
	})
}

func TestOpenCredentials(t *testing.T) {
	dir := t.TempDir()

	vault, err := OpenCredentials(dir)
	if err != nil {
		t.Fatalf("OpenCredentials failed: %v", err)
	}
	if err := vault.Set(credentials.KeyAccessToken, "access"); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if err := vault.Set(credentials.KeyRefreshToken, "refresh"); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	tu.AssertFileExists(t, filepath.Join(dir, "session.json"))
	if content := tu.MustReadFile(t, filepath.Join(dir, "credentials.json")); strings.Contains(content, "access") {
		t.Errorf("access token leaked into the persistent tier: %s", content)
	}

	reopened, err := OpenCredentials(dir)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	if v, _ := reopened.Get(credentials.KeyRefreshToken); v != "refresh" {
		t.Errorf("expected refresh token to persist, got %q", v)
	}
}

func TestAnswersCommands(t *testing.T) {
	t.Run("List Assigns Questions", func(t *testing.T) {
		h := newHarness(t)
		if err := h.run(t, "answers", "list"); err != nil {
			t.Fatalf("list failed: %v", err)
		}
		out := h.output.String()
		for _, want := range []string{
			"*0. The song that defined your year [empty]",
			"*2. Your best new discovery [empty]",
			"0/3 answers - 3 more needed",
		} {
			if !strings.Contains(out, want) {
				t.Errorf("output missing %q:\n%s", want, out)
			}
		}
	})

	t.Run("Select Saves Answer", func(t *testing.T) {
		h := newHarness(t)
		if err := h.run(t, "answers", "select", "0", "t-new"); err != nil {
			t.Fatalf("select failed: %v", err)
		}
		if !strings.Contains(h.output.String(), "Slot 0 answered with Artist - Fresh") {
			t.Errorf("unexpected output:\n%s", h.output.String())
		}
		if got := h.answered(t); got["q-anthem"] != "t-new" {
			t.Errorf("expected q-anthem answered with t-new, got %v", got)
		}
	})

	t.Run("Select Rejects Old Track", func(t *testing.T) {
		h := newHarness(t)
		err := h.run(t, "answers", "select", "1", "t-old")
		if !errors.Is(err, shared.ErrTrackNotEligible) {
			t.Fatalf("expected ErrTrackNotEligible, got %v", err)
		}
		if len(h.answered(t)) != 0 {
			t.Error("ineligible track should not be stored")
		}

		if err := h.run(t, "answers", "select", "--override", "1", "t-old"); err != nil {
			t.Fatalf("override select failed: %v", err)
		}
		if got := h.answered(t); got["q-repeat"] != "t-old" {
			t.Errorf("expected override to store t-old, got %v", got)
		}
	})

	t.Run("Select Unknown Track", func(t *testing.T) {
		h := newHarness(t)
		if err := h.run(t, "answers", "select", "0", "missing"); !errors.Is(err, shared.ErrTrackNotFound) {
			t.Errorf("expected ErrTrackNotFound, got %v", err)
		}
	})

	t.Run("Select Bad Slot", func(t *testing.T) {
		h := newHarness(t)
		if err := h.run(t, "answers", "select", "x", "t-new"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
		if err := h.run(t, "answers", "select", "9", "t-new"); !errors.Is(err, shared.ErrSlotNotFound) {
			t.Errorf("expected ErrSlotNotFound, got %v", err)
		}
	})

	t.Run("Change Moves Answer", func(t *testing.T) {
		h := newHarness(t)
		if err := h.run(t, "answers", "select", "0", "t-new"); err != nil {
			t.Fatalf("select failed: %v", err)
		}
		if err := h.run(t, "answers", "change", "0", "q-dance"); err != nil {
			t.Fatalf("change failed: %v", err)
		}

		got := h.answered(t)
		if got["q-dance"] != "t-new" {
			t.Errorf("expected answer moved to q-dance, got %v", got)
		}
		if _, ok := got["q-anthem"]; ok {
			t.Error("expected old answer removed")
		}
	})

	t.Run("Change To Taken Question", func(t *testing.T) {
		h := newHarness(t)
		if err := h.run(t, "answers", "change", "0", "q-repeat"); !errors.Is(err, shared.ErrDuplicateQuestion) {
			t.Fatalf("expected ErrDuplicateQuestion, got %v", err)
		}
		if !strings.Contains(h.output.String(), "question already assigned") {
			t.Errorf("expected slot error in output:\n%s", h.output.String())
		}
	})

	t.Run("Add Slot With Answer", func(t *testing.T) {
		h := newHarness(t)
		if err := h.run(t, "answers", "add-slot", "--question", "q-cry", "--track", "t-new"); err != nil {
			t.Fatalf("add-slot failed: %v", err)
		}
		if !strings.Contains(h.output.String(), "Added slot 3") {
			t.Errorf("unexpected output:\n%s", h.output.String())
		}
		if got := h.answered(t); got["q-cry"] != "t-new" {
			t.Errorf("expected q-cry answered, got %v", got)
		}

		if err := h.run(t, "answers", "remove", "0"); !errors.Is(err, shared.ErrPermanentSlot) {
			t.Errorf("expected ErrPermanentSlot, got %v", err)
		}

		// The stored extra answer loads first, ahead of the padded permanent slots.
		if err := h.run(t, "answers", "list", "--json"); err != nil {
			t.Fatalf("list failed: %v", err)
		}
		var report struct {
			Slots []struct {
				Index      int    `json:"index"`
				QuestionID string `json:"questionId"`
			} `json:"slots"`
		}
		if err := json.Unmarshal(h.output.Bytes(), &report); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if len(report.Slots) != 3 || report.Slots[0].QuestionID != "q-cry" {
			t.Fatalf("unexpected slots %+v", report.Slots)
		}
	})

	t.Run("Add Slot Track Without Question", func(t *testing.T) {
		h := newHarness(t)
		if err := h.run(t, "answers", "add-slot", "--track", "t-new"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("Remove Extra Slot", func(t *testing.T) {
		h := newHarness(t)
		for _, args := range [][]string{
			{"answers", "select", "0", "t-new"},
			{"answers", "select", "1", "t-new"},
			{"answers", "select", "2", "t-new"},
			{"answers", "add-slot", "--question", "q-cry", "--track", "t-new"},
		} {
			if err := h.run(t, args...); err != nil {
				t.Fatalf("%v failed: %v", args, err)
			}
		}
		if err := h.run(t, "answers", "remove", "3"); err != nil {
			t.Fatalf("remove failed: %v", err)
		}
		if got := h.answered(t); len(got) != 3 {
			t.Errorf("expected 3 answers after removal, got %v", got)
		}
	})

	t.Run("Export CSV", func(t *testing.T) {
		h := newHarness(t)
		if err := h.run(t, "answers", "select", "0", "t-new"); err != nil {
			t.Fatalf("select failed: %v", err)
		}

		path := filepath.Join(t.TempDir(), "answers.csv")
		if err := h.run(t, "answers", "export", "--format", "csv", "--output", path); err != nil {
			t.Fatalf("export failed: %v", err)
		}
		content := tu.MustReadFile(t, path)
		if !strings.Contains(content, "The song that defined your year,t-new,Fresh") {
			t.Errorf("unexpected CSV:\n%s", content)
		}
	})

	t.Run("Not Logged In", func(t *testing.T) {
		h := newHarness(t)
		h.vault.Remove(credentials.KeyPlayerID)
		if err := h.run(t, "answers", "list"); !errors.Is(err, shared.ErrCredentialMissing) {
			t.Errorf("expected ErrCredentialMissing, got %v", err)
		}
		if err := h.run(t, "answers", "list", "--player", "someone"); err != nil {
			t.Errorf("expected --player to work without login, got %v", err)
		}
	})
}

func TestStatusCommand(t *testing.T) {
	h := newHarness(t)
	for _, slot := range []string{"0", "1", "2"} {
		if err := h.run(t, "answers", "select", slot, "t-new"); err != nil {
			t.Fatalf("select %s failed: %v", slot, err)
		}
	}

	if err := h.run(t, "status", "--json"); err != nil {
		t.Fatalf("status failed: %v", err)
	}
	var status readinessStatus
	if err := json.Unmarshal(h.output.Bytes(), &status); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if !status.Readiness.IsReady || !status.RemoteReady || status.Readiness.FilledCount != 3 {
		t.Errorf("expected ready status, got %+v", status)
	}

	if err := h.run(t, "status"); err != nil {
		t.Fatalf("status failed: %v", err)
	}
	if !strings.Contains(h.output.String(), "3/3 answers - ready") {
		t.Errorf("unexpected output:\n%s", h.output.String())
	}
}

func TestQuestionsCommands(t *testing.T) {
	h := newHarness(t)

	if err := h.run(t, "questions", "add", "A song for a road trip"); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if !strings.Contains(h.output.String(), "Added question 9") {
		t.Errorf("unexpected output:\n%s", h.output.String())
	}

	if err := h.run(t, "questions", "add", "--inactive", "Hidden question"); err != nil {
		t.Fatalf("add failed: %v", err)
	}

	if err := h.run(t, "questions", "list"); err != nil {
		t.Fatalf("list failed: %v", err)
	}
	out := h.output.String()
	if !strings.Contains(out, " 9. A song for a road trip") || strings.Contains(out, "Hidden question") {
		t.Errorf("unexpected active list:\n%s", out)
	}

	if err := h.run(t, "questions", "list", "--all"); err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if !strings.Contains(h.output.String(), "Hidden question") {
		t.Errorf("expected inactive question with --all:\n%s", h.output.String())
	}

	if err := h.run(t, "questions", "add", "  "); !errors.Is(err, shared.ErrMissingArgument) {
		t.Errorf("expected ErrMissingArgument, got %v", err)
	}
}

func TestSearchCommand(t *testing.T) {
	t.Run("Marks Eligibility", func(t *testing.T) {
		h := newHarness(t)
		if err := h.run(t, "search", "fresh"); err != nil {
			t.Fatalf("search failed: %v", err)
		}
		out := h.output.String()
		if !strings.Contains(out, "ID: t-new  eligible") || !strings.Contains(out, "ID: t-old  not eligible") {
			t.Errorf("unexpected output:\n%s", out)
		}
	})

	t.Run("Refreshes Expired Token", func(t *testing.T) {
		h := newHarness(t)
		h.token.Store("access-2")

		if err := h.run(t, "search", "--json", "fresh"); err != nil {
			t.Fatalf("search failed: %v", err)
		}
		if v, _ := h.vault.Get(credentials.KeyAccessToken); v != "access-2" {
			t.Errorf("expected refreshed token stored, got %q", v)
		}
		if v, _ := h.vault.Get(credentials.KeyRefreshToken); v != "refresh-1" {
			t.Errorf("expected refresh token kept, got %q", v)
		}
	})

	t.Run("Failed Refresh Keeps Credential", func(t *testing.T) {
		h := newHarness(t)
		h.token.Store("access-2")
		h.vault.Set(credentials.KeyRefreshToken, "revoked")

		if err := h.run(t, "search", "fresh"); !errors.Is(err, shared.ErrRefreshFailed) {
			t.Fatalf("expected ErrRefreshFailed, got %v", err)
		}
		if v, _ := h.vault.Get(credentials.KeyAccessToken); v != "access-1" {
			t.Errorf("expected old access token kept, got %q", v)
		}
	})

	t.Run("Missing Query", func(t *testing.T) {
		h := newHarness(t)
		if err := h.run(t, "search"); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})
}

func TestAuthCommands(t *testing.T) {
	t.Run("Status", func(t *testing.T) {
		h := newHarness(t)
		if err := h.run(t, "auth", "status", "--json"); err != nil {
			t.Fatalf("status failed: %v", err)
		}
		var status authStatus
		if err := json.Unmarshal(h.output.Bytes(), &status); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if !status.SignedIn || status.PlayerID != testPlayer || !status.CanRefresh {
			t.Errorf("unexpected status %+v", status)
		}
	})

	t.Run("Refresh", func(t *testing.T) {
		h := newHarness(t)
		if err := h.run(t, "auth", "refresh"); err != nil {
			t.Fatalf("refresh failed: %v", err)
		}
		if v, _ := h.vault.Get(credentials.KeyAccessToken); v != "access-2" {
			t.Errorf("expected access-2, got %q", v)
		}
	})

	t.Run("Logout", func(t *testing.T) {
		h := newHarness(t)
		if err := h.run(t, "auth", "logout"); err != nil {
			t.Fatalf("logout failed: %v", err)
		}
		for _, key := range []string{credentials.KeyAccessToken, credentials.KeyRefreshToken, credentials.KeyPlayerID} {
			if _, ok := h.vault.Get(key); ok {
				t.Errorf("expected %s removed", key)
			}
		}

		if err := h.run(t, "auth", "status"); err != nil {
			t.Fatalf("status failed: %v", err)
		}
		if !strings.Contains(h.output.String(), "No access token") {
			t.Errorf("unexpected output:\n%s", h.output.String())
		}
		if err := h.run(t, "auth", "refresh"); !errors.Is(err, shared.ErrRefreshFailed) {
			t.Errorf("expected ErrRefreshFailed, got %v", err)
		}
	})

	t.Run("Login Requires Client ID", func(t *testing.T) {
		h := newHarness(t)
		h.runner.config.Credentials.Spotify.ClientID = ""
		if err := h.run(t, "auth", "login", "--no-browser"); !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
	})
}

func TestServeRouter(t *testing.T) {
	h := newHarness(t)
	srv := httptest.NewServer(h.runner.newServeRouter(h.runner.oauthConfig()))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}

	resp, err = http.Get(srv.URL + "/api/token")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("expected 405 for GET /api/token, got %d", resp.StatusCode)
	}

	t.Run("Serve Requires Secret", func(t *testing.T) {
		h := newHarness(t)
		h.runner.config.Credentials.Spotify.ClientSecret = ""
		if err := h.run(t, "serve"); !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
	})
}

func TestSetupCommand(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.toml")

	h := newHarness(t)
	h.runner.config.Database.Path = filepath.Join(dir, "trackguess.db")

	if err := h.run(t, "setup", "--config", configPath); err != nil {
		t.Fatalf("setup failed: %v", err)
	}
	tu.AssertFileExists(t, configPath)

	out := h.output.String()
	if !strings.Contains(out, "Created "+configPath) || !strings.Contains(out, "schema version 1") {
		t.Errorf("unexpected output:\n%s", out)
	}
}
