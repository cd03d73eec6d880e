package report

import (
	"sort"
	"time"

	"github.com/doridoridoriand/regionwatch/internal/state"
)

// Incident is a maximal run of same-severity down points for one endpoint.
// End is the last down point observed; Ongoing is set when no up point
// closed the run.
type Incident struct {
	Address string       `json:"address"`
	Group   string       `json:"group"`
	Start   time.Time    `json:"start"`
	End     time.Time    `json:"end"`
	Ongoing bool         `json:"ongoing"`
	Status  state.Status `json:"status"`
}

// ExtractIncidents scans one endpoint's history once. Caution and
// Unreachable count as down; a change between them closes the open
// incident and opens another, so each severity is its own record.
func ExtractIncidents(history []state.HistoryPoint) []Incident {
	points := append([]state.HistoryPoint(nil), history...)
	sort.SliceStable(points, func(i, j int) bool {
		return points[i].Timestamp.Before(points[j].Timestamp)
	})

	var (
		out  []Incident
		open *Incident
	)
	for _, p := range points {
		if !p.Status.IsDown() {
			if open != nil {
				out = append(out, *open)
				open = nil
			}
			continue
		}
		switch {
		case open == nil:
			open = &Incident{Start: p.Timestamp, End: p.Timestamp, Status: p.Status}
		case open.Status == p.Status:
			open.End = p.Timestamp
		default:
			out = append(out, *open)
			open = &Incident{Start: p.Timestamp, End: p.Timestamp, Status: p.Status}
		}
	}
	if open != nil {
		open.Ongoing = true
		out = append(out, *open)
	}
	return out
}

// EndpointIncidents extracts incidents for every snapshot and tags them with
// address and group, ordered by start then address.
func EndpointIncidents(snapshots []state.EndpointSnapshot) []Incident {
	var all []Incident
	for _, snap := range snapshots {
		for _, inc := range ExtractIncidents(snap.History) {
			inc.Address = snap.Address
			inc.Group = snap.Group
			all = append(all, inc)
		}
	}
	sort.SliceStable(all, func(i, j int) bool {
		if !all[i].Start.Equal(all[j].Start) {
			return all[i].Start.Before(all[j].Start)
		}
		return all[i].Address < all[j].Address
	})
	return all
}
