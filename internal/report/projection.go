package report

import (
	"math"
	"time"

	"github.com/doridoridoriand/regionwatch/internal/state"
)

const minutesPerDay = 24 * 60

// Projection scales the observed incident rate to a day. It is a linear
// extrapolation of what was seen in the window, not a forecast.
type Projection struct {
	TotalIncidents int     `json:"total_incidents"`
	WindowMinutes  float64 `json:"window_minutes"`
	RatePerMinute  float64 `json:"rate_per_minute"`
	Projected24h   int     `json:"projected_24h"`
}

// Project computes the projection for total incidents observed since
// earliest. A zero earliest, or one less than a minute ago, gives a
// one-minute window.
func Project(total int, earliest, now time.Time) Projection {
	window := 1.0
	if !earliest.IsZero() {
		if m := now.Sub(earliest).Minutes(); m > window {
			window = m
		}
	}
	rate := float64(total) / window
	return Projection{
		TotalIncidents: total,
		WindowMinutes:  window,
		RatePerMinute:  rate,
		Projected24h:   int(math.Round(rate * minutesPerDay)),
	}
}

// EarliestPoint returns the oldest history timestamp across snapshots.
func EarliestPoint(snapshots []state.EndpointSnapshot) time.Time {
	var earliest time.Time
	for _, snap := range snapshots {
		for _, p := range snap.History {
			if earliest.IsZero() || p.Timestamp.Before(earliest) {
				earliest = p.Timestamp
			}
		}
	}
	return earliest
}
