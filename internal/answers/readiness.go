package answers

import "github.com/desertthunder/trackguess/internal/models"

// Status is the readiness summary of a slot list.
type Status struct {
	FilledCount int     `json:"filledCount"`
	Minimum     int     `json:"minimum"`
	IsReady     bool    `json:"isReady"`
	Fraction    float64 `json:"fraction"`
}

// Readiness counts slots holding a track and compares the count with minimum.
func Readiness(slots []models.Slot, minimum int) Status {
	filled := 0
	for _, s := range slots {
		if s.Filled() {
			filled++
		}
	}

	st := Status{FilledCount: filled, Minimum: minimum, IsReady: filled >= minimum, Fraction: 1}
	if minimum > 0 && filled < minimum {
		st.Fraction = float64(filled) / float64(minimum)
	}
	return st
}
