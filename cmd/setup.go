package main

import (
	"context"
	"fmt"
	"os"

	"github.com/desertthunder/trackguess/internal/shared"
	"github.com/urfave/cli/v3"
)

// Setup creates the config file when missing, then prepares the configured database.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	config := r.config
	if _, err := os.Stat(configPath); err == nil {
		if config, err = shared.LoadConfig(configPath); err != nil {
			return err
		}
	} else {
		r.logger.Info("config file not found, creating from template", "path", configPath)
		if err := shared.CreateConfigFile(configPath); err != nil {
			return err
		}
		r.writePlain("✓ Created %s\n", configPath)
		r.writePlain("  Set credentials.spotify.client_id and client_secret before running 'trackguess serve'\n")
	}
	r.config = config

	if config.Database.Driver == "postgres" {
		r.logger.Info("preparing postgres schema")
		if _, err := r.answerStore(ctx); err != nil {
			return fmt.Errorf("failed to prepare postgres: %w", err)
		}
		return r.writePlain("✓ Postgres schema ready\n")
	}

	r.logger.Info("initializing database", "path", config.Database.Path)

	db, err := shared.NewDatabase(shared.ExpandHome(config.Database.Path))
	if err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}
	defer db.Close()

	shared.ConfigureDatabase(db, config.Database.MaxOpenConns, config.Database.MaxIdleConns)

	if cmd.Bool("rollback") {
		r.logger.Info("rolling back last migration")
		if err := shared.RollbackMigration(db); err != nil {
			return fmt.Errorf("failed to roll back migration: %w", err)
		}
	} else {
		r.logger.Info("running database migrations")
		if err := shared.RunMigrations(db); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	version, applied, err := shared.CurrentVersion(db)
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	if !applied {
		return r.writePlain("✓ Database %s has no migrations applied\n", config.Database.Path)
	}
	return r.writePlain("✓ Database %s at schema version %d\n", config.Database.Path, version)
}
