package formatter

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/trackguess/internal/answers"
	"github.com/desertthunder/trackguess/internal/models"
	"github.com/desertthunder/trackguess/internal/shared"
)

func testReport() Report {
	recent := &models.Track{
		ID:            "t1",
		Title:         "Song One",
		Artists:       []string{"Artist One", "Guest"},
		AlbumName:     "Album One",
		AlbumImageURL: "https://img.example/one.jpg",
		ReleaseDate:   "2025-03-10",
		ExternalURL:   "https://open.example/track/t1",
	}
	slots := []models.Slot{
		{Index: 0, QuestionID: "q1", Track: recent, State: models.SlotFilled, Permanent: true},
		{Index: 1, QuestionID: "q2", State: models.SlotEmpty, Permanent: true, Err: "store write failed: timeout"},
		{Index: 2, State: models.SlotEmpty},
	}
	questions := []models.Question{
		{ID: "q1", Text: "The song that defined your year", DisplayOrder: 1, Active: true},
		{ID: "q2", Text: "Your best new discovery", DisplayOrder: 2, Active: true},
	}
	return NewReport("p1", slots, questions, answers.Readiness(slots, 2))
}

func TestNewReport(t *testing.T) {
	r := testReport()
	if len(r.Rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(r.Rows))
	}
	if r.Rows[0].Question != "The song that defined your year" || r.Rows[0].State != "filled" {
		t.Errorf("unexpected first row %+v", r.Rows[0])
	}
	if r.Rows[2].Question != "" || r.Rows[2].QuestionID != "" {
		t.Errorf("expected unassigned row, got %+v", r.Rows[2])
	}
}

func TestFormatter(t *testing.T) {
	f := New(nil, 20)

	t.Run("Slots", func(t *testing.T) {
		out := f.Slots(testReport())
		for _, want := range []string{
			"*0. The song that defined your year [filled]",
			"Artist One, Guest - Song One (2025-03-10)",
			"*1. Your best new discovery [empty]",
			"! store write failed: timeout",
			" 2. (no question assigned) [empty]",
			"1/2 answers - 1 more needed",
		} {
			if !strings.Contains(out, want) {
				t.Errorf("output missing %q:\n%s", want, out)
			}
		}
	})

	t.Run("Readiness Ready", func(t *testing.T) {
		out := f.Readiness(answers.Status{FilledCount: 5, Minimum: 5, IsReady: true, Fraction: 1})
		if !strings.Contains(out, "5/5 answers - ready") {
			t.Errorf("unexpected readiness line %q", out)
		}
	})

	t.Run("Questions", func(t *testing.T) {
		out := f.Questions([]models.Question{
			{ID: "q1", Text: "First", DisplayOrder: 1, Active: true},
			{ID: "q2", Text: "Hidden", DisplayOrder: 2},
		})
		if !strings.Contains(out, " 1. First  q1") || !strings.Contains(out, "Hidden  q2 (inactive)") {
			t.Errorf("unexpected questions output:\n%s", out)
		}
	})

	t.Run("Tracks", func(t *testing.T) {
		now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
		out := f.Tracks([]models.Track{
			{ID: "new", Title: "New", Artists: []string{"A"}, AlbumName: "X", ReleaseDate: "2025-01-01"},
			{ID: "old", Title: "Old", Artists: []string{"B"}, ReleaseDate: "2019"},
		}, now, answers.DefaultEligibilityWindow)

		if !strings.Contains(out, "ID: new  eligible") || !strings.Contains(out, "ID: old  not eligible") {
			t.Errorf("unexpected tracks output:\n%s", out)
		}
		if !strings.Contains(out, "Album: X (2025-01-01)") {
			t.Errorf("expected album line:\n%s", out)
		}
	})

	t.Run("No Tracks", func(t *testing.T) {
		if out := f.Tracks(nil, time.Now(), time.Hour); !strings.Contains(out, "No tracks found") {
			t.Errorf("unexpected output %q", out)
		}
	})
}

func TestExporters(t *testing.T) {
	report := testReport()

	t.Run("ExportToCSV", func(t *testing.T) {
		data, err := ExportToCSV(report)
		if err != nil {
			t.Fatalf("ExportToCSV failed: %v", err)
		}
		lines := strings.Split(strings.TrimSpace(string(data)), "\n")
		if len(lines) != 2 {
			t.Fatalf("expected header and one answer, got %d lines", len(lines))
		}
		if lines[0] != "Slot,Question,Track ID,Title,Artists,Album,Released,URL" {
			t.Errorf("unexpected header %q", lines[0])
		}
		if !strings.Contains(lines[1], `t1,Song One,"Artist One, Guest",Album One,2025-03-10`) {
			t.Errorf("unexpected record %q", lines[1])
		}
	})

	t.Run("ExportToMarkdown", func(t *testing.T) {
		out := string(ExportToMarkdown(report))
		for _, want := range []string{
			"# Answers",
			"**Answered**: 1 of 2 required",
			"## The song that defined your year",
			"![Album One](https://img.example/one.jpg)",
			"[Artist One, Guest - Song One](https://open.example/track/t1)",
		} {
			if !strings.Contains(out, want) {
				t.Errorf("markdown missing %q", want)
			}
		}
		if strings.Contains(out, "Your best new discovery") {
			t.Error("unanswered questions should be skipped")
		}
	})

	t.Run("ExportToText", func(t *testing.T) {
		out := string(ExportToText(report))
		if !strings.HasPrefix(out, "Answers: 1/2") || !strings.Contains(out, "  Artist One, Guest - Song One") {
			t.Errorf("unexpected text export:\n%s", out)
		}
	})

	t.Run("Export JSON", func(t *testing.T) {
		data, err := Export(FormatJSON, report)
		if err != nil {
			t.Fatalf("Export failed: %v", err)
		}
		var decoded map[string]any
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if decoded["playerId"] != "p1" {
			t.Errorf("unexpected player %v", decoded["playerId"])
		}
		readiness, _ := decoded["readiness"].(map[string]any)
		if readiness["filledCount"] != float64(1) || readiness["isReady"] != false {
			t.Errorf("unexpected readiness %v", readiness)
		}
	})

	t.Run("Unknown Format", func(t *testing.T) {
		if _, err := Export("yaml", report); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})
}
