package report

import (
	"fmt"
	"time"

	"github.com/doridoridoriand/regionwatch/internal/state"
)

// StatusRow is one endpoint line of the current-status table.
type StatusRow struct {
	Region  string       `json:"region"`
	Address string       `json:"address"`
	Status  state.Status `json:"status"`
	Latency string       `json:"latency"`
}

// RegionRow is one group line of the regional performance table.
type RegionRow struct {
	Region       string       `json:"region"`
	Status       state.Status `json:"status"`
	AvgLatencyMs *int64       `json:"avg_latency_ms"`
	AvgLatency   string       `json:"avg_latency"`
	Reporting    int          `json:"reporting"`
	Total        int          `json:"total"`
	DataPoints   string       `json:"data_points"`
}

// Report is everything a renderer needs.
type Report struct {
	GeneratedAt time.Time   `json:"generated_at"`
	StatusRows  []StatusRow `json:"status"`
	RegionRows  []RegionRow `json:"regions"`
	Incidents   []Incident  `json:"incidents"`
	Projection  Projection  `json:"projection"`
}

// Build assembles the report from group rollups and endpoint snapshots.
// Region averages cover every endpoint that has a latency, whatever its
// current status.
func Build(groups []state.GroupSnapshot, snapshots []state.EndpointSnapshot, now time.Time) Report {
	byGroup := make(map[string][]state.EndpointSnapshot, len(groups))
	for _, snap := range snapshots {
		byGroup[snap.Group] = append(byGroup[snap.Group], snap)
	}

	r := Report{GeneratedAt: now}
	for _, g := range groups {
		members := byGroup[g.Name]
		var sum, n int64
		for _, snap := range members {
			r.StatusRows = append(r.StatusRows, StatusRow{
				Region:  g.Name,
				Address: snap.Address,
				Status:  snap.Status,
				Latency: formatLatency(snap.LatencyMs),
			})
			if snap.LatencyMs != nil {
				sum += *snap.LatencyMs
				n++
			}
		}

		row := RegionRow{
			Region:     g.Name,
			Status:     g.Status,
			AvgLatency: "N/A",
			Reporting:  int(n),
			Total:      len(members),
		}
		if n > 0 {
			avg := (sum + n/2) / n
			row.AvgLatencyMs = &avg
			row.AvgLatency = fmt.Sprintf("%dms", avg)
		}
		row.DataPoints = fmt.Sprintf("%d/%d Reporting", row.Reporting, row.Total)
		r.RegionRows = append(r.RegionRows, row)
	}

	r.Incidents = EndpointIncidents(snapshots)
	r.Projection = Project(len(r.Incidents), EarliestPoint(snapshots), now)
	return r
}

func formatLatency(ms *int64) string {
	if ms == nil || *ms == 0 {
		return "-"
	}
	return fmt.Sprintf("%dms", *ms)
}
