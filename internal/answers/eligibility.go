package answers

import (
	"fmt"
	"time"

	"github.com/desertthunder/trackguess/internal/models"
	"github.com/desertthunder/trackguess/internal/shared"
)

// DefaultEligibilityWindow is how far back a release may be. It is measured as one
// calendar year, so leap days are counted.
const DefaultEligibilityWindow = 365 * 24 * time.Hour

// CheckEligibility returns nil when the track's release falls within window before now.
//
// A partial date is eligible when any part of its period falls inside the window, so a
// release dated "2024" counts as long as the end of 2024 is inside it.
func CheckEligibility(track models.Track, now time.Time, window time.Duration) error {
	rd, err := models.ParseReleaseDate(track.ReleaseDate)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrTrackNotEligible, err)
	}

	var end time.Time
	switch rd.Precision {
	case models.PrecisionYear:
		end = rd.Time.AddDate(1, 0, 0)
	case models.PrecisionMonth:
		end = rd.Time.AddDate(0, 1, 0)
	default:
		end = rd.Time.AddDate(0, 0, 1)
	}

	cutoff := eligibilityCutoff(now, window)
	if !end.After(cutoff) {
		return fmt.Errorf("%w: released %s, before %s", shared.ErrTrackNotEligible, rd, cutoff.Format("2006-01-02"))
	}
	return nil
}

func eligibilityCutoff(now time.Time, window time.Duration) time.Time {
	if window == DefaultEligibilityWindow {
		return now.AddDate(-1, 0, 0)
	}
	return now.Add(-window)
}
