package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/trackguess/internal/answers"
	"github.com/desertthunder/trackguess/internal/models"
	"github.com/desertthunder/trackguess/internal/shared"
	"github.com/urfave/cli/v3"
)

// QuestionsList prints active questions, or every question with --all.
func (r *Runner) QuestionsList(ctx context.Context, cmd *cli.Command) error {
	store, err := r.answerStore(ctx)
	if err != nil {
		return err
	}

	var questions []models.Question
	if cmd.Bool("all") {
		questions, err = store.ListQuestions(ctx)
	} else {
		questions, err = store.GetActiveQuestions(ctx)
	}
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(questions, true)
	}
	if len(questions) == 0 {
		return r.writePlain("No questions yet. Add one with 'trackguess questions add'\n")
	}
	return r.writePlain("%s", r.formatter.Questions(questions))
}

// QuestionsAdd creates a question.
func (r *Runner) QuestionsAdd(ctx context.Context, cmd *cli.Command) error {
	text := strings.TrimSpace(cmd.StringArg("text"))
	if text == "" {
		return fmt.Errorf("%w: question text", shared.ErrMissingArgument)
	}
	order := cmd.Int("order")
	if order < 0 {
		return fmt.Errorf("%w: --order must not be negative", shared.ErrInvalidArgument)
	}

	store, err := r.answerStore(ctx)
	if err != nil {
		return err
	}

	q := &models.Question{Text: text, DisplayOrder: order, Active: !cmd.Bool("inactive")}
	if err := store.CreateQuestion(ctx, q); err != nil {
		return err
	}

	r.logger.Info("question created", "id", q.ID, "order", q.DisplayOrder)
	return r.writePlain("✓ Added question %d: %s\n  ID: %s\n", q.DisplayOrder, q.Text, q.ID)
}

// Search queries the catalog and marks which results can be picked.
func (r *Runner) Search(ctx context.Context, cmd *cli.Command) error {
	query := strings.TrimSpace(cmd.StringArg("query"))
	if query == "" {
		return fmt.Errorf("%w: search query", shared.ErrMissingArgument)
	}

	r.logger.Debugf("searching spotify for %q", query)
	tracks, err := r.tracks.Search(ctx, query, cmd.Int("limit"))
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(tracks, true)
	}
	window := r.config.Game.EligibilityWindow
	if window <= 0 {
		window = answers.DefaultEligibilityWindow
	}
	return r.writePlain("%s", r.formatter.Tracks(tracks, r.now(), window))
}
