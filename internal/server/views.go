package server

import (
	"time"

	"github.com/doridoridoriand/regionwatch/internal/eventlog"
	"github.com/doridoridoriand/regionwatch/internal/registry"
	"github.com/doridoridoriand/regionwatch/internal/scheduler"
	"github.com/doridoridoriand/regionwatch/internal/state"
)

type endpointView struct {
	Address             string               `json:"address"`
	Label               string               `json:"label,omitempty"`
	IsRange             bool                 `json:"is_range"`
	Group               string               `json:"group"`
	Status              state.Status         `json:"status"`
	LatencyMs           *int64               `json:"latency_ms"`
	ConsecutiveFailures int                  `json:"consecutive_failures"`
	LastProbeAt         *time.Time           `json:"last_probe_at"`
	LastError           string               `json:"last_error,omitempty"`
	Stale               bool                 `json:"stale"`
	UptimePercent       *float64             `json:"uptime_percent"`
	History             []state.HistoryPoint `json:"history"`
}

type groupView struct {
	Name          string                `json:"name"`
	Coordinates   *registry.Coordinates `json:"coordinates,omitempty"`
	Status        state.Status          `json:"status"`
	AvgLatencyMs  *int64                `json:"avg_latency_ms"`
	Reporting     int                   `json:"reporting"`
	Total         int                   `json:"total"`
	LastCheckedAt *time.Time            `json:"last_checked_at"`
}

type stateView struct {
	GeneratedAt time.Time            `json:"generated_at"`
	InProgress  bool                 `json:"in_progress"`
	LastCycle   scheduler.CycleStats `json:"last_cycle"`
	Groups      []groupView          `json:"groups"`
	Endpoints   []endpointView       `json:"endpoints"`
	Logs        []eventlog.Entry     `json:"logs"`
}

func newEndpointView(snap state.EndpointSnapshot, now time.Time, period time.Duration) endpointView {
	v := endpointView{
		Address:             snap.Address,
		Label:               snap.Label,
		IsRange:             snap.IsRange,
		Group:               snap.Group,
		Status:              snap.Status,
		LatencyMs:           snap.LatencyMs,
		ConsecutiveFailures: snap.ConsecutiveFailures,
		LastProbeAt:         optionalTime(snap.LastProbeAt),
		LastError:           snap.LastError,
		Stale:               snap.Stale(now, period),
		History:             snap.History,
	}
	if v.History == nil {
		v.History = []state.HistoryPoint{}
	}
	if pct, ok := snap.Uptime(); ok {
		v.UptimePercent = &pct
	}
	return v
}

func newGroupView(g state.GroupSnapshot) groupView {
	return groupView{
		Name:          g.Name,
		Coordinates:   g.Coordinates,
		Status:        g.Status,
		AvgLatencyMs:  g.AvgLatencyMs,
		Reporting:     g.Reporting,
		Total:         g.Total,
		LastCheckedAt: optionalTime(g.LastCheckedAt),
	}
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
