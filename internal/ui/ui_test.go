package ui

import (
	"strings"
	"testing"
	"time"

	"github.com/doridoridoriand/regionwatch/internal/eventlog"
	"github.com/doridoridoriand/regionwatch/internal/registry"
	"github.com/doridoridoriand/regionwatch/internal/scheduler"
	"github.com/doridoridoriand/regionwatch/internal/state"
	"github.com/gdamore/tcell/v2"
)

var now = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

type stubEngine struct {
	busy      bool
	triggered int
	last      scheduler.CycleStats
}

func (e *stubEngine) TriggerCycle() bool {
	if e.busy {
		return false
	}
	e.triggered++
	return true
}

func (e *stubEngine) InProgress() bool                { return e.busy }
func (e *stubEngine) LastCycle() scheduler.CycleStats { return e.last }

type stubSource struct {
	endpoints []state.EndpointSnapshot
	groups    []state.GroupSnapshot
}

func (s stubSource) Snapshot() []state.EndpointSnapshot   { return s.endpoints }
func (s stubSource) GroupStatuses() []state.GroupSnapshot { return s.groups }

func newTestUI(engine *stubEngine) *UI {
	return New(stubSource{}, engine, eventlog.New(), Options{
		Period:  time.Minute,
		Timeout: 5 * time.Second,
		Now:     func() time.Time { return now },
	})
}

func lineText(parts []styledRune) string {
	var b strings.Builder
	for _, p := range parts {
		b.WriteString(string(p.r))
	}
	return b.String()
}

func int64p(v int64) *int64 { return &v }

func TestFormatEndpointLineShowsStatusLatencyAndUptime(t *testing.T) {
	u := newTestUI(&stubEngine{})
	snap := state.EndpointSnapshot{
		Address:     "192.0.2.1",
		Group:       "tokyo",
		Status:      state.StatusOperational,
		LatencyMs:   int64p(42),
		LastProbeAt: now.Add(-10 * time.Second),
		History: []state.HistoryPoint{
			{Timestamp: now.Add(-2 * time.Minute), Status: state.StatusCaution},
			{Timestamp: now.Add(-time.Minute), Status: state.StatusOperational},
			{Timestamp: now.Add(-10 * time.Second), Status: state.StatusOperational},
		},
	}

	line := lineText(u.formatEndpointLine(120, snap, now))
	for _, want := range []string{"192.0.2.1", "Operational", "LAT:42ms", "UP:67%", "▄▇▇"} {
		if !strings.Contains(line, want) {
			t.Fatalf("expected %q in line, got %q", want, line)
		}
	}
	if strings.Contains(line, "STALE") {
		t.Fatalf("expected fresh endpoint, got %q", line)
	}
	if got := len([]rune(line)); got > 120 {
		t.Fatalf("expected line within width, got %d runes", got)
	}
}

func TestFormatEndpointLineMarksStaleAndRange(t *testing.T) {
	u := newTestUI(&stubEngine{})
	snap := state.EndpointSnapshot{
		Address:     "198.51.100.0/24",
		IsRange:     true,
		Status:      state.StatusUnreachable,
		LastProbeAt: now.Add(-5 * time.Minute),
		History:     []state.HistoryPoint{{Timestamp: now.Add(-5 * time.Minute), Status: state.StatusUnreachable}},
	}

	line := lineText(u.formatEndpointLine(120, snap, now))
	if !strings.Contains(line, "STALE") {
		t.Fatalf("expected stale marker, got %q", line)
	}
	if !strings.Contains(line, "198.51.100.0/24 *") {
		t.Fatalf("expected range marker, got %q", line)
	}
	if !strings.Contains(line, "LAT:-") {
		t.Fatalf("expected missing latency placeholder, got %q", line)
	}
}

func TestFormatEndpointLineKeepsCheckingLabel(t *testing.T) {
	u := newTestUI(&stubEngine{})
	line := lineText(u.formatEndpointLine(80, state.EndpointSnapshot{Address: "192.0.2.9", Status: state.StatusChecking}, now))
	if !strings.Contains(line, "Checking") || strings.Contains(line, "STALE") {
		t.Fatalf("expected Checking label, got %q", line)
	}
	if !strings.Contains(line, "UP:-") {
		t.Fatalf("expected empty uptime, got %q", line)
	}
}

func TestHistoryStripPadsAndTrims(t *testing.T) {
	history := []state.HistoryPoint{
		{Status: state.StatusOperational},
		{Status: state.StatusUnreachable},
	}
	if got := lineText(historyStrip(history, 5)); got != "···▇▁" {
		t.Fatalf("expected padded strip, got %q", got)
	}
	if got := lineText(historyStrip(history, 1)); got != "▁" {
		t.Fatalf("expected newest point only, got %q", got)
	}
	if got := historyStrip(history, 0); got != nil {
		t.Fatalf("expected nil strip, got %v", got)
	}
}

func TestGroupTitle(t *testing.T) {
	title := groupTitle(state.GroupSnapshot{
		Name:         "tokyo",
		Coordinates:  &registry.Coordinates{Lat: 35.6762, Lng: 139.6503},
		AvgLatencyMs: int64p(16),
		Reporting:    2,
		Total:        3,
	})
	if title != " tokyo (35.68, 139.65)  avg 16ms  2/3 reporting" {
		t.Fatalf("unexpected title %q", title)
	}

	bare := groupTitle(state.GroupSnapshot{Name: "frankfurt", Total: 1})
	if bare != " frankfurt  0/1 reporting" {
		t.Fatalf("unexpected title %q", bare)
	}
}

func TestHandleKey(t *testing.T) {
	engine := &stubEngine{}
	u := newTestUI(engine)

	if !u.handleKey(tcell.KeyCtrlC, 0) {
		t.Fatalf("expected ctrl-c to quit")
	}
	if !u.handleKey(tcell.KeyRune, 'q') {
		t.Fatalf("expected q to quit")
	}

	if u.handleKey(tcell.KeyRune, 'r') {
		t.Fatalf("expected r not to quit")
	}
	if engine.triggered != 1 {
		t.Fatalf("expected one trigger, got %d", engine.triggered)
	}
	if _, flash := u.currentFilter(); flash != "cycle triggered" {
		t.Fatalf("expected trigger flash, got %q", flash)
	}

	engine.busy = true
	u.handleKey(tcell.KeyRune, 'r')
	if _, flash := u.currentFilter(); flash != "cycle already running" {
		t.Fatalf("expected busy flash, got %q", flash)
	}
}

func TestFilterKeyCycles(t *testing.T) {
	u := newTestUI(&stubEngine{})
	want := []eventlog.Severity{
		eventlog.SeverityInfo,
		eventlog.SeveritySuccess,
		eventlog.SeverityWarning,
		eventlog.SeverityError,
		"",
	}
	for i, sev := range want {
		u.handleKey(tcell.KeyRune, 'f')
		if got, _ := u.currentFilter(); got != sev {
			t.Fatalf("step %d: expected filter %q, got %q", i, sev, got)
		}
	}
}

func TestHeaderLine(t *testing.T) {
	engine := &stubEngine{busy: true}
	u := newTestUI(engine)
	if got := u.headerLine(now, ""); !strings.Contains(got, "checking...") {
		t.Fatalf("expected checking indicator, got %q", got)
	}

	engine.busy = false
	engine.last = scheduler.CycleStats{FinishedAt: now.Add(-30 * time.Second)}
	got := u.headerLine(now, "cycle triggered")
	if !strings.Contains(got, "last cycle 30 seconds ago") {
		t.Fatalf("expected last cycle age, got %q", got)
	}
	if !strings.Contains(got, "[cycle triggered]") {
		t.Fatalf("expected flash, got %q", got)
	}
}

func TestConfigLine(t *testing.T) {
	u := newTestUI(&stubEngine{})
	if got := u.configLine(); got != " interval=1.0m  timeout=5.0s  prober=auto" {
		t.Fatalf("unexpected config line %q", got)
	}
}

func TestFormatLogLine(t *testing.T) {
	e := eventlog.Entry{
		Timestamp: now.Add(-2 * time.Minute),
		Severity:  eventlog.SeverityError,
		Message:   "Connection lost to 192.0.2.1 (tokyo)",
	}
	want := "11:58:00 [error]  Connection lost to 192.0.2.1 (tokyo) (2 minutes ago)"
	if got := formatLogLine(e, now); got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestFormatDuration(t *testing.T) {
	cases := []struct {
		in   time.Duration
		want string
	}{
		{500 * time.Microsecond, "500us"},
		{250 * time.Millisecond, "250ms"},
		{1500 * time.Millisecond, "1.5s"},
		{90 * time.Second, "1.5m"},
	}
	for _, tc := range cases {
		if got := formatDuration(tc.in); got != tc.want {
			t.Fatalf("formatDuration(%s): expected %q, got %q", tc.in, tc.want, got)
		}
	}
}
