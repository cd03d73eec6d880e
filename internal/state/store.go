package state

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/doridoridoriand/regionwatch/internal/ping"
	"github.com/doridoridoriand/regionwatch/internal/registry"
)

// ErrUnknownEndpoint is returned when a result arrives for an address that
// is not in the registry.
var ErrUnknownEndpoint = errors.New("unknown endpoint")

type endpointRecord struct {
	endpoint      registry.Endpoint
	group         string
	status        Status
	failures      int
	latency       *int64
	lastProbeAt   time.Time
	lastError     string
	history       *HistoryRing
	totalProbes   int
	totalFailures int
}

type groupRecord struct {
	name        string
	coordinates *registry.Coordinates
	addresses   []string
}

// StoreImpl is the single owner of all endpoint monitor state. Every
// endpoint starts in Checking until its first result is applied.
type StoreImpl struct {
	mu          sync.RWMutex
	endpoints   map[string]*endpointRecord
	order       []string
	groups      []groupRecord
	historySize int
}

// NewStore creates a store for every endpoint in reg.
func NewStore(reg *registry.Registry, historySize int) *StoreImpl {
	if historySize <= 0 {
		historySize = DefaultHistorySize
	}
	store := &StoreImpl{
		endpoints:   make(map[string]*endpointRecord),
		historySize: historySize,
	}
	for _, g := range reg.Groups() {
		group := groupRecord{name: g.Name, coordinates: g.Coordinates}
		for _, ep := range g.Endpoints {
			store.endpoints[ep.Address] = &endpointRecord{
				endpoint: ep,
				group:    g.Name,
				status:   StatusChecking,
				history:  NewHistoryRing(historySize),
			}
			store.order = append(store.order, ep.Address)
			group.addresses = append(group.addresses, ep.Address)
		}
		store.groups = append(store.groups, group)
	}
	return store
}

// Apply folds one probe result into the endpoint's state and returns the new
// snapshot together with the transition notice, if any. Points older than
// the newest history point are recorded at the newest timestamp so history
// stays chronological.
func (s *StoreImpl) Apply(address string, result ping.Result, at time.Time) (EndpointSnapshot, *Notice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.endpoints[address]
	if !ok {
		return EndpointSnapshot{}, nil, fmt.Errorf("%w: %s", ErrUnknownEndpoint, address)
	}

	next, kind := Transition(Hysteresis{Status: rec.status, ConsecutiveFailures: rec.failures}, result.Reachable)
	rec.status = next.Status
	rec.failures = next.ConsecutiveFailures
	rec.totalProbes++

	if result.Reachable {
		sample := result.Latency.Round(time.Millisecond).Milliseconds()
		smoothed := SmoothLatency(rec.latency, sample)
		rec.latency = &smoothed
		rec.lastError = ""
	} else {
		rec.totalFailures++
		if result.Error != nil {
			rec.lastError = result.Error.Error()
		} else {
			rec.lastError = "unreachable"
		}
	}

	if last, ok := rec.history.Last(); ok && at.Before(last.Timestamp) {
		at = last.Timestamp
	}
	rec.lastProbeAt = at
	rec.history.Push(HistoryPoint{Timestamp: at, Status: rec.status})

	return copyRecord(address, rec), newNotice(kind, address, rec.group), nil
}

// Snapshot returns copies of all endpoints in registry order.
func (s *StoreImpl) Snapshot() []EndpointSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]EndpointSnapshot, 0, len(s.order))
	for _, addr := range s.order {
		result = append(result, copyRecord(addr, s.endpoints[addr]))
	}
	return result
}

// Endpoint returns a copy of a single endpoint.
func (s *StoreImpl) Endpoint(address string) (EndpointSnapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.endpoints[address]
	if !ok {
		return EndpointSnapshot{}, false
	}
	return copyRecord(address, rec), true
}

// GroupStatuses rolls every group up with Aggregate. The average latency
// covers Operational endpoints with a positive latency; Reporting counts
// endpoints that have a latency at all.
func (s *StoreImpl) GroupStatuses() []GroupSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]GroupSnapshot, 0, len(s.groups))
	for _, g := range s.groups {
		snap := GroupSnapshot{Name: g.name, Total: len(g.addresses)}
		if g.coordinates != nil {
			c := *g.coordinates
			snap.Coordinates = &c
		}
		statuses := make([]Status, 0, len(g.addresses))
		var sum, n int64
		for _, addr := range g.addresses {
			rec := s.endpoints[addr]
			statuses = append(statuses, rec.status)
			if rec.latency != nil {
				snap.Reporting++
				if rec.status == StatusOperational && *rec.latency > 0 {
					sum += *rec.latency
					n++
				}
			}
			if rec.lastProbeAt.After(snap.LastCheckedAt) {
				snap.LastCheckedAt = rec.lastProbeAt
			}
		}
		snap.Status = Aggregate(statuses)
		if n > 0 {
			avg := (sum + n/2) / n
			snap.AvgLatencyMs = &avg
		}
		result = append(result, snap)
	}
	return result
}

func copyRecord(address string, rec *endpointRecord) EndpointSnapshot {
	snap := EndpointSnapshot{
		Address:             address,
		Label:               rec.endpoint.Label,
		IsRange:             rec.endpoint.IsRange,
		Group:               rec.group,
		Status:              rec.status,
		ConsecutiveFailures: rec.failures,
		LastProbeAt:         rec.lastProbeAt,
		LastError:           rec.lastError,
		History:             rec.history.Points(),
		TotalProbes:         rec.totalProbes,
		TotalFailures:       rec.totalFailures,
	}
	if rec.latency != nil {
		v := *rec.latency
		snap.LatencyMs = &v
	}
	return snap
}
