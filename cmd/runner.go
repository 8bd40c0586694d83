package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/trackguess/internal/answers"
	"github.com/desertthunder/trackguess/internal/auth"
	"github.com/desertthunder/trackguess/internal/credentials"
	"github.com/desertthunder/trackguess/internal/formatter"
	"github.com/desertthunder/trackguess/internal/models"
	"github.com/desertthunder/trackguess/internal/repositories"
	"github.com/desertthunder/trackguess/internal/services"
	"github.com/desertthunder/trackguess/internal/shared"
	"github.com/urfave/cli/v3"
)

// AnswerStore is the remote answer store plus the question administration used by the CLI.
type AnswerStore interface {
	answers.Store
	ListQuestions(ctx context.Context) ([]models.Question, error)
	CreateQuestion(ctx context.Context, q *models.Question) error
}

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
	formatter  *formatter.Formatter
	now        func() time.Time

	credentials credentials.Store
	tokens      *auth.Manager
	tracks      *services.SpotifyService

	store      AnswerStore
	closeStore func()
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
	// Credentials defaults to an in-memory vault.
	Credentials credentials.Store
	// Store is opened from the database config on first use when nil.
	Store   AnswerStore
	Palette *formatter.Palette
	Now     func() time.Time
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.ConfigPath == "" {
		opts.ConfigPath = "config.toml"
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: opts.Config.Client.Timeout}
	}
	if opts.Credentials == nil {
		opts.Credentials = credentials.NewVault(credentials.NewMemoryStore(), credentials.NewMemoryStore())
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	tokens := auth.NewManager(
		opts.Credentials,
		auth.NewHTTPExchanger(opts.Config.Auth.ExchangeURL, opts.HTTPClient),
		shared.WithLogger(opts.Logger, "component", "auth"),
	)
	client := services.NewClient(services.ClientOpts{
		HTTPClient:        opts.HTTPClient,
		Tokens:            tokens,
		Logger:            shared.WithLogger(opts.Logger, "component", "client"),
		BaseDelay:         opts.Config.Client.BaseDelay,
		MaxRetries:        opts.Config.Client.MaxRetries,
		RequestsPerSecond: opts.Config.Client.RequestsPerSecond,
	})

	return &Runner{
		config:      opts.Config,
		configPath:  opts.ConfigPath,
		httpClient:  opts.HTTPClient,
		logger:      opts.Logger,
		output:      opts.Output,
		formatter:   formatter.New(opts.Palette, 30),
		now:         opts.Now,
		credentials: opts.Credentials,
		tokens:      tokens,
		tracks:      services.NewSpotifyService(client, opts.Config.Client.BaseURL),
		store:       opts.Store,
	}
}

// OpenCredentials opens the two-tier credential vault under dir.
func OpenCredentials(dir string) (*credentials.Vault, error) {
	dir = shared.ExpandHome(dir)
	session, err := credentials.OpenFileStore(filepath.Join(dir, "session.json"))
	if err != nil {
		return nil, err
	}
	persistent, err := credentials.OpenFileStore(filepath.Join(dir, "credentials.json"))
	if err != nil {
		return nil, err
	}
	return credentials.NewVault(session, persistent), nil
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, serveCommand, questionsCommand, searchCommand, answersCommand, statusCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// answerStore opens the configured store on first use.
func (r *Runner) answerStore(ctx context.Context) (AnswerStore, error) {
	if r.store != nil {
		return r.store, nil
	}

	cfg := r.config.Database
	switch cfg.Driver {
	case "postgres":
		if cfg.URL == "" {
			return nil, fmt.Errorf("%w: database.url is required for postgres", shared.ErrMissingConfig)
		}
		pg, err := repositories.NewPostgresStore(ctx, cfg.URL, cfg.MaxOpenConns, r.config.Game.MinimumAnswers)
		if err != nil {
			return nil, err
		}
		if err := pg.EnsureSchema(ctx); err != nil {
			pg.Close()
			return nil, err
		}
		r.store, r.closeStore = pg, pg.Close
	default:
		db, err := shared.OpenDatabase(cfg)
		if err != nil {
			return nil, err
		}
		r.store = repositories.NewStore(db, r.config.Game.MinimumAnswers)
		r.closeStore = func() { db.Close() }
	}

	r.logger.Debug("answer store opened", "driver", cfg.Driver)
	return r.store, nil
}

// Close releases the answer store when the runner opened it.
func (r *Runner) Close() {
	if r.closeStore != nil {
		r.closeStore()
		r.closeStore = nil
	}
}

// playerID resolves the player from --player or the cached login identity.
func (r *Runner) playerID(cmd *cli.Command) (string, error) {
	if id := cmd.String("player"); id != "" {
		return id, nil
	}
	if id, ok := r.tokens.PlayerID(); ok {
		return id, nil
	}
	return "", fmt.Errorf("%w: not logged in and no --player given", shared.ErrCredentialMissing)
}

// newEngine builds and hydrates the answer engine for the current player.
//
// The returned stop func closes the engine and waits for the event logger to drain.
func (r *Runner) newEngine(ctx context.Context, cmd *cli.Command) (*answers.Engine, func(), error) {
	playerID, err := r.playerID(cmd)
	if err != nil {
		return nil, nil, err
	}
	store, err := r.answerStore(ctx)
	if err != nil {
		return nil, nil, err
	}

	logger := shared.WithLogger(r.logger, "player", playerID)
	events := make(chan answers.Event, 32)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range events {
			logger.Debug("slot update", "event", ev.Kind, "slot", ev.Index, "state", ev.Slot.State, "filled", ev.Readiness.FilledCount)
		}
	}()

	engine, err := answers.NewEngine(answers.Options{
		PlayerID:          playerID,
		Store:             store,
		Tracks:            r.tracks,
		Minimum:           r.config.Game.MinimumAnswers,
		EligibilityWindow: r.config.Game.EligibilityWindow,
		QuestionTTL:       r.config.Game.QuestionTTL,
		Logger:            logger,
		Events:            events,
		Now:               r.now,
	})
	if err != nil {
		close(events)
		<-done
		return nil, nil, err
	}

	stop := func() {
		engine.Close()
		close(events)
		<-done
	}
	if err := engine.Load(ctx); err != nil {
		stop()
		return nil, nil, err
	}
	return engine, stop, nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
