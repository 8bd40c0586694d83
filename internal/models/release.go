package models

import (
	"fmt"
	"time"
)

// Precision is the granularity of a [ReleaseDate].
type Precision string

const (
	PrecisionYear  Precision = "year"
	PrecisionMonth Precision = "month"
	PrecisionDay   Precision = "day"
)

// ReleaseDate is a release date known to year, month or day precision.
// Time is the first instant of the period in UTC.
type ReleaseDate struct {
	Time      time.Time
	Precision Precision
}

var releaseLayouts = []struct {
	layout    string
	precision Precision
}{
	{"2006-01-02", PrecisionDay},
	{"2006-01", PrecisionMonth},
	{"2006", PrecisionYear},
}

// ParseReleaseDate parses "YYYY", "YYYY-MM" or "YYYY-MM-DD".
func ParseReleaseDate(s string) (ReleaseDate, error) {
	for _, l := range releaseLayouts {
		if len(s) != len(l.layout) {
			continue
		}
		if t, err := time.Parse(l.layout, s); err == nil {
			return ReleaseDate{Time: t, Precision: l.precision}, nil
		}
	}
	return ReleaseDate{}, fmt.Errorf("unrecognized release date %q", s)
}

func (r ReleaseDate) String() string {
	switch r.Precision {
	case PrecisionYear:
		return r.Time.Format("2006")
	case PrecisionMonth:
		return r.Time.Format("2006-01")
	default:
		return r.Time.Format("2006-01-02")
	}
}
