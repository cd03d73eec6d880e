package state

import (
	"fmt"
	"strings"
	"time"

	"github.com/doridoridoriand/regionwatch/internal/ping"
	"github.com/doridoridoriand/regionwatch/internal/registry"
)

// Status represents endpoint or group health.
type Status int

const (
	StatusUnknown Status = iota
	StatusChecking
	StatusOperational
	StatusUnreachable
	StatusCaution
)

var statusNames = [...]string{
	StatusUnknown:     "Unknown",
	StatusChecking:    "Checking",
	StatusOperational: "Operational",
	StatusUnreachable: "Unreachable",
	StatusCaution:     "Caution",
}

func (s Status) String() string {
	if s < 0 || int(s) >= len(statusNames) {
		return fmt.Sprintf("Status(%d)", int(s))
	}
	return statusNames[s]
}

// Severity ranks statuses for display ordering, most severe highest:
// Unreachable > Caution > Checking > Operational > Unknown.
func (s Status) Severity() int {
	switch s {
	case StatusUnreachable:
		return 4
	case StatusCaution:
		return 3
	case StatusChecking:
		return 2
	case StatusOperational:
		return 1
	default:
		return 0
	}
}

// IsDown reports whether s counts as an outage for incident extraction.
func (s Status) IsDown() bool {
	return s == StatusCaution || s == StatusUnreachable
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(text []byte) error {
	parsed, ok := ParseStatus(string(text))
	if !ok {
		return fmt.Errorf("unknown status %q", string(text))
	}
	*s = parsed
	return nil
}

// ParseStatus is the inverse of String, case-insensitive.
func ParseStatus(name string) (Status, bool) {
	for i, n := range statusNames {
		if strings.EqualFold(n, name) {
			return Status(i), true
		}
	}
	return StatusUnknown, false
}

// AllStatuses lists every status in declaration order.
func AllStatuses() []Status {
	return []Status{StatusUnknown, StatusChecking, StatusOperational, StatusUnreachable, StatusCaution}
}

// HistoryPoint records the status reached after one probe.
type HistoryPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Status    Status    `json:"status"`
}

// EndpointSnapshot is an immutable copy of one endpoint's monitor state.
type EndpointSnapshot struct {
	Address             string
	Label               string
	IsRange             bool
	Group               string
	Status              Status
	ConsecutiveFailures int
	LatencyMs           *int64
	LastProbeAt         time.Time
	LastError           string
	History             []HistoryPoint
	TotalProbes         int
	TotalFailures       int
}

// Stale reports whether the endpoint has no fresh data: it never completed a
// probe or its last probe is older than two periods.
func (e EndpointSnapshot) Stale(now time.Time, period time.Duration) bool {
	if e.Status == StatusChecking || e.LastProbeAt.IsZero() {
		return true
	}
	return period > 0 && now.Sub(e.LastProbeAt) > 2*period
}

// Uptime returns the share of Operational points in history, in percent.
// ok is false when there is no history yet.
func (e EndpointSnapshot) Uptime() (percent float64, ok bool) {
	if len(e.History) == 0 {
		return 0, false
	}
	up := 0
	for _, p := range e.History {
		if p.Status == StatusOperational {
			up++
		}
	}
	return float64(up) / float64(len(e.History)) * 100, true
}

// GroupSnapshot is the rolled-up view of one group.
type GroupSnapshot struct {
	Name          string
	Coordinates   *registry.Coordinates
	Status        Status
	AvgLatencyMs  *int64
	Reporting     int
	Total         int
	LastCheckedAt time.Time
}

// Store defines operations for tracking endpoint state.
type Store interface {
	Apply(address string, result ping.Result, at time.Time) (EndpointSnapshot, *Notice, error)
	Snapshot() []EndpointSnapshot
	Endpoint(address string) (EndpointSnapshot, bool)
	GroupStatuses() []GroupSnapshot
}
