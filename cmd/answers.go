package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/desertthunder/trackguess/internal/answers"
	"github.com/desertthunder/trackguess/internal/formatter"
	"github.com/desertthunder/trackguess/internal/shared"
	"github.com/urfave/cli/v3"
)

func slotArg(cmd *cli.Command) (int, error) {
	raw := cmd.StringArg("slot")
	if raw == "" {
		return 0, fmt.Errorf("%w: slot", shared.ErrMissingArgument)
	}
	index, err := strconv.Atoi(raw)
	if err != nil || index < 0 {
		return 0, fmt.Errorf("%w: slot must be a non-negative number, got %q", shared.ErrInvalidArgument, raw)
	}
	return index, nil
}

func (r *Runner) report(ctx context.Context, engine *answers.Engine, playerID string) (formatter.Report, error) {
	questions, err := engine.Questions(ctx)
	if err != nil {
		return formatter.Report{}, err
	}
	return formatter.NewReport(playerID, engine.Slots(), questions, engine.Readiness()), nil
}

func (r *Runner) printSlots(ctx context.Context, cmd *cli.Command, engine *answers.Engine) error {
	playerID, _ := r.playerID(cmd)
	report, err := r.report(ctx, engine, playerID)
	if err != nil {
		return err
	}
	if cmd.Bool("json") {
		return r.writeJSON(report, true)
	}
	return r.writePlain("%s", r.formatter.Slots(report))
}

// AnswersList prints every slot with its question, track and readiness.
func (r *Runner) AnswersList(ctx context.Context, cmd *cli.Command) error {
	engine, stop, err := r.newEngine(ctx, cmd)
	if err != nil {
		return err
	}
	defer stop()
	return r.printSlots(ctx, cmd, engine)
}

// AnswersSelect answers a slot with a catalog track.
func (r *Runner) AnswersSelect(ctx context.Context, cmd *cli.Command) error {
	index, err := slotArg(cmd)
	if err != nil {
		return err
	}
	trackID := strings.TrimSpace(cmd.StringArg("track"))
	if trackID == "" {
		return fmt.Errorf("%w: track id", shared.ErrMissingArgument)
	}

	engine, stop, err := r.newEngine(ctx, cmd)
	if err != nil {
		return err
	}
	defer stop()

	if err := engine.SelectTrackByID(ctx, index, trackID, cmd.Bool("override")); err != nil {
		return r.slotFailure(ctx, cmd, engine, err)
	}

	slot, err := engine.Slot(index)
	if err != nil {
		return err
	}
	r.writePlain("✓ Slot %d answered with %s\n\n", index, slot.Track.String())
	return r.printSlots(ctx, cmd, engine)
}

// AnswersChange assigns a different question to a slot, moving its answer.
func (r *Runner) AnswersChange(ctx context.Context, cmd *cli.Command) error {
	index, err := slotArg(cmd)
	if err != nil {
		return err
	}
	questionID := strings.TrimSpace(cmd.StringArg("question"))
	if questionID == "" {
		return fmt.Errorf("%w: question id", shared.ErrMissingArgument)
	}

	engine, stop, err := r.newEngine(ctx, cmd)
	if err != nil {
		return err
	}
	defer stop()

	if err := engine.ChangeQuestion(ctx, index, questionID); err != nil {
		return r.slotFailure(ctx, cmd, engine, err)
	}
	r.writePlain("✓ Slot %d now answers %s\n\n", index, questionID)
	return r.printSlots(ctx, cmd, engine)
}

// AnswersRemove removes an extra slot and deletes its answer.
func (r *Runner) AnswersRemove(ctx context.Context, cmd *cli.Command) error {
	index, err := slotArg(cmd)
	if err != nil {
		return err
	}

	engine, stop, err := r.newEngine(ctx, cmd)
	if err != nil {
		return err
	}
	defer stop()

	if err := engine.RemoveSlot(ctx, index); err != nil {
		return r.slotFailure(ctx, cmd, engine, err)
	}
	r.writePlain("✓ Removed slot %d\n\n", index)
	return r.printSlots(ctx, cmd, engine)
}

// AnswersAddSlot appends an extra slot. With --question and --track the new slot is answered
// in the same session, since unanswered extra slots are not stored.
func (r *Runner) AnswersAddSlot(ctx context.Context, cmd *cli.Command) error {
	questionID := strings.TrimSpace(cmd.String("question"))
	trackID := strings.TrimSpace(cmd.String("track"))
	if trackID != "" && questionID == "" {
		return fmt.Errorf("%w: --track requires --question", shared.ErrInvalidArgument)
	}

	engine, stop, err := r.newEngine(ctx, cmd)
	if err != nil {
		return err
	}
	defer stop()

	index, err := engine.AddSlot()
	if err != nil {
		return err
	}
	r.writePlain("✓ Added slot %d\n", index)

	if questionID != "" {
		if err := engine.ChangeQuestion(ctx, index, questionID); err != nil {
			return r.slotFailure(ctx, cmd, engine, err)
		}
	}
	if trackID != "" {
		if err := engine.SelectTrackByID(ctx, index, trackID, cmd.Bool("override")); err != nil {
			return r.slotFailure(ctx, cmd, engine, err)
		}
	} else {
		r.writePlain("  The slot is kept only once it has an answer\n")
	}

	r.writePlain("\n")
	return r.printSlots(ctx, cmd, engine)
}

// AnswersExport writes the player's answers in the requested format.
func (r *Runner) AnswersExport(ctx context.Context, cmd *cli.Command) error {
	format := cmd.String("format")
	outputPath := cmd.String("output")

	engine, stop, err := r.newEngine(ctx, cmd)
	if err != nil {
		return err
	}
	defer stop()

	playerID, _ := r.playerID(cmd)
	report, err := r.report(ctx, engine, playerID)
	if err != nil {
		return err
	}

	data, err := formatter.Export(format, report)
	if err != nil {
		return err
	}

	if outputPath == "" {
		_, err := r.output.Write(data)
		return err
	}
	if err := os.WriteFile(outputPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	r.logger.Info("answers exported", "format", format, "path", outputPath)
	return r.writePlain("✓ Exported %d answers to %s\n", report.Readiness.FilledCount, outputPath)
}

type readinessStatus struct {
	PlayerID    string         `json:"playerId"`
	Readiness   answers.Status `json:"readiness"`
	RemoteReady bool           `json:"remoteReady"`
}

// Status reports local readiness and the store's readiness check.
func (r *Runner) Status(ctx context.Context, cmd *cli.Command) error {
	engine, stop, err := r.newEngine(ctx, cmd)
	if err != nil {
		return err
	}
	defer stop()

	playerID, _ := r.playerID(cmd)
	status := readinessStatus{PlayerID: playerID, Readiness: engine.Readiness()}
	if status.RemoteReady, err = engine.RemoteReady(ctx); err != nil {
		return err
	}
	if status.RemoteReady != status.Readiness.IsReady {
		r.logger.Warn("local and stored readiness disagree", "local", status.Readiness.IsReady, "stored", status.RemoteReady)
	}

	if cmd.Bool("json") {
		return r.writeJSON(status, true)
	}
	r.writePlain("Player: %s\n", playerID)
	return r.writePlain("%s\n", r.formatter.Readiness(status.Readiness))
}

// slotFailure prints the slot list, which carries the per-slot error, then returns err.
func (r *Runner) slotFailure(ctx context.Context, cmd *cli.Command, engine *answers.Engine, err error) error {
	if answers.IsSlotError(err) {
		r.printSlots(ctx, cmd, engine)
	}
	return err
}
