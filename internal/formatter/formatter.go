// package formatter renders answers, questions and tracks for the terminal and exports answers
// to CSV, Markdown, plain text or JSON
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/desertthunder/trackguess/internal/answers"
	"github.com/desertthunder/trackguess/internal/models"
	"github.com/desertthunder/trackguess/internal/shared"
)

// Supported export formats.
const (
	FormatText     = "text"
	FormatMarkdown = "markdown"
	FormatCSV      = "csv"
	FormatJSON     = "json"
)

// Row is one slot joined with its question text.
type Row struct {
	Index      int           `json:"index"`
	Question   string        `json:"question,omitempty"`
	QuestionID string        `json:"questionId,omitempty"`
	Track      *models.Track `json:"track,omitempty"`
	State      string        `json:"state"`
	Permanent  bool          `json:"permanent"`
	Error      string        `json:"error,omitempty"`
}

// Report is a player's answer sheet.
type Report struct {
	PlayerID  string         `json:"playerId"`
	Rows      []Row          `json:"slots"`
	Readiness answers.Status `json:"readiness"`
}

// NewReport joins slots with the question texts.
func NewReport(playerID string, slots []models.Slot, questions []models.Question, st answers.Status) Report {
	text := make(map[string]string, len(questions))
	for _, q := range questions {
		text[q.ID] = q.Text
	}

	rows := make([]Row, 0, len(slots))
	for _, s := range slots {
		rows = append(rows, Row{
			Index:      s.Index,
			Question:   text[s.QuestionID],
			QuestionID: s.QuestionID,
			Track:      s.Track,
			State:      s.State.String(),
			Permanent:  s.Permanent,
			Error:      s.Err,
		})
	}
	return Report{PlayerID: playerID, Rows: rows, Readiness: st}
}

// Formatter renders terminal output.
type Formatter struct {
	palette *Palette
	width   int
}

// New creates a [Formatter]. A nil palette renders plain text and width sets the progress bar width.
func New(palette *Palette, width int) *Formatter {
	if palette == nil {
		palette = PlainPalette()
	}
	if width <= 0 {
		width = 30
	}
	return &Formatter{palette: palette, width: width}
}

// Readiness renders a progress bar followed by the filled count.
func (f *Formatter) Readiness(st answers.Status) string {
	opts := []progress.Option{progress.WithWidth(f.width), progress.WithoutPercentage()}
	if f.palette.fill != "" {
		opts = append(opts, progress.WithSolidFill(f.palette.fill))
	}
	bar := progress.New(opts...)

	label := fmt.Sprintf("%d/%d answers", st.FilledCount, st.Minimum)
	if st.IsReady {
		label = f.palette.OK(label + " - ready")
	} else {
		label = f.palette.Warn(fmt.Sprintf("%s - %d more needed", label, st.Minimum-st.FilledCount))
	}
	return bar.ViewAs(st.Fraction) + " " + label
}

// Slots renders the answer sheet with a readiness line.
func (f *Formatter) Slots(report Report) string {
	var buf strings.Builder
	buf.WriteString(f.palette.Title("Your answers") + "\n\n")

	for _, r := range report.Rows {
		marker := " "
		if r.Permanent {
			marker = "*"
		}

		question := r.Question
		switch {
		case r.QuestionID == "":
			question = f.palette.Help("(no question assigned)")
		case question == "":
			question = r.QuestionID
		}

		fmt.Fprintf(&buf, "%s%d. %s [%s]\n", marker, r.Index, question, f.palette.State(parseState(r.State)))
		if r.Track != nil {
			fmt.Fprintf(&buf, "   %s", r.Track.String())
			if r.Track.ReleaseDate != "" {
				fmt.Fprintf(&buf, " (%s)", r.Track.ReleaseDate)
			}
			buf.WriteString("\n")
		}
		if r.Error != "" {
			fmt.Fprintf(&buf, "   %s\n", f.palette.Err("! "+r.Error))
		}
	}

	buf.WriteString("\n" + f.Readiness(report.Readiness) + "\n")
	buf.WriteString(f.palette.Help("* permanent slot") + "\n")
	return buf.String()
}

// Questions renders questions in display order.
func (f *Formatter) Questions(qs []models.Question) string {
	var buf strings.Builder
	for _, q := range qs {
		line := fmt.Sprintf("%2d. %s  %s", q.DisplayOrder, q.Text, f.palette.Help(q.ID))
		if !q.Active {
			line += " " + f.palette.Warn("(inactive)")
		}
		buf.WriteString(line + "\n")
	}
	return buf.String()
}

// Tracks renders search results and marks tracks released outside the eligibility window.
func (f *Formatter) Tracks(tracks []models.Track, now time.Time, window time.Duration) string {
	if len(tracks) == 0 {
		return f.palette.Help("No tracks found") + "\n"
	}

	var buf strings.Builder
	for i, t := range tracks {
		fmt.Fprintf(&buf, "%d. %s\n", i+1, t.String())
		if t.AlbumName != "" {
			fmt.Fprintf(&buf, "   Album: %s (%s)\n", t.AlbumName, t.ReleaseDate)
		}
		fmt.Fprintf(&buf, "   ID: %s", t.ID)
		if err := answers.CheckEligibility(t, now, window); err != nil {
			buf.WriteString("  " + f.palette.Warn("not eligible"))
		} else {
			buf.WriteString("  " + f.palette.OK("eligible"))
		}
		buf.WriteString("\n")
	}
	return buf.String()
}

// Export encodes report in the given format.
func Export(format string, report Report) ([]byte, error) {
	switch format {
	case FormatCSV:
		return ExportToCSV(report)
	case FormatMarkdown:
		return ExportToMarkdown(report), nil
	case FormatText, "":
		return ExportToText(report), nil
	case FormatJSON:
		return json.MarshalIndent(report, "", "  ")
	default:
		return nil, fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, format)
	}
}

// ExportToCSV converts a report to CSV with columns: Slot, Question, Track ID, Title, Artists, Album, Released, URL
func ExportToCSV(report Report) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Slot", "Question", "Track ID", "Title", "Artists", "Album", "Released", "URL"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, r := range report.Rows {
		if r.Track == nil {
			continue
		}
		record := []string{
			strconv.Itoa(r.Index),
			r.Question,
			r.Track.ID,
			r.Track.Title,
			r.Track.ArtistLine(),
			r.Track.AlbumName,
			r.Track.ReleaseDate,
			r.Track.ExternalURL,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}
	return buf.Bytes(), nil
}

// ExportToMarkdown converts a report to Markdown with album covers where available
func ExportToMarkdown(report Report) []byte {
	var buf bytes.Buffer

	buf.WriteString("# Answers\n\n")
	fmt.Fprintf(&buf, "**Answered**: %d of %d required\n\n", report.Readiness.FilledCount, report.Readiness.Minimum)

	for _, r := range report.Rows {
		if r.Track == nil {
			continue
		}
		fmt.Fprintf(&buf, "## %s\n\n", r.Question)
		if r.Track.AlbumImageURL != "" {
			fmt.Fprintf(&buf, "![%s](%s)\n\n", r.Track.AlbumName, r.Track.AlbumImageURL)
		}
		if r.Track.ExternalURL != "" {
			fmt.Fprintf(&buf, "[%s](%s)", r.Track.String(), r.Track.ExternalURL)
		} else {
			buf.WriteString(r.Track.String())
		}
		if r.Track.AlbumName != "" {
			fmt.Fprintf(&buf, " (%s, %s)", r.Track.AlbumName, r.Track.ReleaseDate)
		}
		buf.WriteString("\n\n")
	}
	return buf.Bytes()
}

// ExportToText converts a report to plain text
func ExportToText(report Report) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "Answers: %d/%d\n\n", report.Readiness.FilledCount, report.Readiness.Minimum)
	for _, r := range report.Rows {
		if r.Track == nil {
			continue
		}
		fmt.Fprintf(&buf, "%s\n  %s\n", r.Question, r.Track.String())
	}
	return buf.Bytes()
}

func parseState(s string) models.SlotState {
	switch s {
	case models.SlotFilled.String():
		return models.SlotFilled
	case models.SlotPending.String():
		return models.SlotPending
	default:
		return models.SlotEmpty
	}
}
