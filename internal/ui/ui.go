package ui

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/doridoridoriand/regionwatch/internal/eventlog"
	"github.com/doridoridoriand/regionwatch/internal/scheduler"
	"github.com/doridoridoriand/regionwatch/internal/state"
	"github.com/dustin/go-humanize"
	"github.com/gdamore/tcell/v2"
)

const (
	uiRefreshInterval = 500 * time.Millisecond
	minBoxHeight      = 4
	logPaneHeight     = 8
	historySlots      = state.DefaultHistorySize
)

// Source is the read side of the state store.
type Source interface {
	Snapshot() []state.EndpointSnapshot
	GroupStatuses() []state.GroupSnapshot
}

// Engine is the command side of the scheduler.
type Engine interface {
	TriggerCycle() bool
	InProgress() bool
	LastCycle() scheduler.CycleStats
}

// Options carries display settings.
type Options struct {
	Period  time.Duration
	Timeout time.Duration
	Prober  string
	Now     func() time.Time
}

// UI renders a TUI view of region status.
type UI struct {
	source Source
	engine Engine
	events *eventlog.Log
	opts   Options

	mu     sync.Mutex
	filter int
	flash  string
}

// New returns a UI instance.
func New(source Source, engine Engine, events *eventlog.Log, opts Options) *UI {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Period <= 0 {
		opts.Period = scheduler.DefaultPeriod
	}
	return &UI{source: source, engine: engine, events: events, opts: opts}
}

// filters is the order the f key steps through; "" shows everything.
var filters = append([]eventlog.Severity{""}, eventlog.Severities()...)

// Run blocks until the context is cancelled or the user quits.
func (u *UI) Run(ctx context.Context) error {
	screen, err := tcell.NewScreen()
	if err != nil {
		return err
	}
	if err := screen.Init(); err != nil {
		return err
	}
	screen.HideCursor()
	defer screen.Fini()

	eventCh := make(chan tcell.Event, 1)
	go func() {
		for {
			ev := screen.PollEvent()
			if ev == nil {
				return
			}
			select {
			case eventCh <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	ticker := time.NewTicker(uiRefreshInterval)
	defer ticker.Stop()

	u.render(screen)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-eventCh:
			switch ev := ev.(type) {
			case *tcell.EventKey:
				if u.handleKey(ev.Key(), ev.Rune()) {
					return context.Canceled
				}
				u.render(screen)
			case *tcell.EventResize:
				screen.Sync()
			}
		case <-ticker.C:
			u.render(screen)
		}
	}
}

// handleKey applies a key press and reports whether the UI should quit.
func (u *UI) handleKey(key tcell.Key, r rune) bool {
	if key == tcell.KeyCtrlC {
		return true
	}
	if key != tcell.KeyRune {
		return false
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	switch r {
	case 'q':
		return true
	case 'r':
		if u.engine.TriggerCycle() {
			u.flash = "cycle triggered"
		} else {
			u.flash = "cycle already running"
		}
	case 'f':
		u.filter = (u.filter + 1) % len(filters)
		u.flash = ""
	}
	return false
}

func (u *UI) currentFilter() (eventlog.Severity, string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	return filters[u.filter], u.flash
}

func (u *UI) render(screen tcell.Screen) {
	screen.Clear()
	width, height := screen.Size()
	if width < 20 || height < 5 {
		screen.Show()
		return
	}

	now := u.opts.Now()
	filter, flash := u.currentFilter()

	drawText(screen, 0, 0, width, u.headerLine(now, flash), tcell.StyleDefault.Bold(true))
	drawText(screen, 0, 1, width, u.configLine(), tcell.StyleDefault.Foreground(tcell.ColorGray))

	snapshots := u.source.Snapshot()
	byGroup := make(map[string][]state.EndpointSnapshot)
	for _, snap := range snapshots {
		byGroup[snap.Group] = append(byGroup[snap.Group], snap)
	}

	bottom := height - logPaneHeight
	if bottom < 2+minBoxHeight {
		bottom = height
	}

	y := 2
	for _, group := range u.source.GroupStatuses() {
		if bottom-y < minBoxHeight {
			break
		}
		members := byGroup[group.Name]
		boxHeight := len(members) + 2
		if boxHeight > bottom-y {
			boxHeight = bottom - y
		}
		u.drawGroupBox(screen, 0, y, width, boxHeight, group, members, now)
		y += boxHeight
	}

	if bottom < height {
		u.drawLogPane(screen, 0, bottom, width, height-bottom, filter, now)
	}

	screen.Show()
}

func (u *UI) headerLine(now time.Time, flash string) string {
	line := fmt.Sprintf(" regionwatch  %s  (q quit, r refresh, f filter)", now.Format("2006-01-02 15:04:05"))
	if u.engine.InProgress() {
		line += "  checking..."
	} else if last := u.engine.LastCycle(); !last.FinishedAt.IsZero() {
		line += fmt.Sprintf("  last cycle %s", humanize.RelTime(last.FinishedAt, now, "ago", "from now"))
	}
	if flash != "" {
		line += "  [" + flash + "]"
	}
	return line
}

func (u *UI) configLine() string {
	prober := u.opts.Prober
	if prober == "" {
		prober = "auto"
	}
	return fmt.Sprintf(" interval=%s  timeout=%s  prober=%s",
		formatDuration(u.opts.Period), formatDuration(u.opts.Timeout), prober)
}

func (u *UI) drawGroupBox(screen tcell.Screen, x, y, width, height int, group state.GroupSnapshot, members []state.EndpointSnapshot, now time.Time) {
	drawBox(screen, x, y, width, height)

	title := groupTitle(group)
	drawStyledText(screen, x+2, y, minInt(width-4, len([]rune(title))+len(group.Status.String())+3), []styledRune{
		{r: []rune(title), style: tcell.StyleDefault.Bold(true)},
		{r: []rune(" [" + group.Status.String() + "] "), style: statusStyle(group.Status).Bold(true)},
	})

	maxRows := height - 2
	for i := 0; i < len(members) && i < maxRows; i++ {
		line := u.formatEndpointLine(width-2, members[i], now)
		drawStyledText(screen, x+1, y+1+i, width-2, line)
	}
}

func groupTitle(group state.GroupSnapshot) string {
	title := " " + group.Name
	if group.Coordinates != nil {
		title += fmt.Sprintf(" (%.2f, %.2f)", group.Coordinates.Lat, group.Coordinates.Lng)
	}
	if group.AvgLatencyMs != nil {
		title += fmt.Sprintf("  avg %dms", *group.AvgLatencyMs)
	}
	title += fmt.Sprintf("  %d/%d reporting", group.Reporting, group.Total)
	return title
}

func (u *UI) formatEndpointLine(width int, snap state.EndpointSnapshot, now time.Time) []styledRune {
	style := statusStyle(snap.Status)
	addr := snap.Address
	if snap.IsRange {
		addr += " *"
	}
	addr = padOrTrim(addr, minInt(20, width))

	statusText := snap.Status.String()
	if snap.Stale(now, u.opts.Period) && snap.Status != state.StatusChecking {
		statusText = "STALE"
		style = tcell.StyleDefault.Foreground(tcell.ColorFuchsia).Bold(true)
	}
	status := padOrTrim(statusText, 11)

	latency := padOrTrim("LAT:"+formatLatency(snap.LatencyMs), 10)
	uptime := "UP:-"
	if pct, ok := snap.Uptime(); ok {
		uptime = fmt.Sprintf("UP:%.0f%%", pct)
	}
	uptime = padOrTrim(uptime, 8)

	parts := []styledText{
		{text: addr, style: tcell.StyleDefault},
		{text: " ", style: tcell.StyleDefault},
		{text: status, style: style},
		{text: " ", style: tcell.StyleDefault},
		{text: latency, style: tcell.StyleDefault},
		{text: " ", style: tcell.StyleDefault},
		{text: uptime, style: tcell.StyleDefault},
		{text: " ", style: tcell.StyleDefault},
	}

	line := flattenStyledText(parts, width)
	used := 0
	for _, p := range line {
		used += len(p.r)
	}
	if slots := minInt(historySlots, width-used); slots > 0 {
		line = append(line, historyStrip(snap.History, slots)...)
	}
	return line
}

// historyStrip renders the newest points right-aligned in slots cells.
func historyStrip(history []state.HistoryPoint, slots int) []styledRune {
	if slots <= 0 {
		return nil
	}
	if len(history) > slots {
		history = history[len(history)-slots:]
	}
	out := make([]styledRune, 0, slots)
	if pad := slots - len(history); pad > 0 {
		out = append(out, styledRune{r: []rune(strings.Repeat("·", pad)), style: tcell.StyleDefault.Foreground(tcell.ColorDarkGray)})
	}
	for _, p := range history {
		out = append(out, styledRune{r: []rune{historyRune(p.Status)}, style: statusStyle(p.Status)})
	}
	return out
}

func historyRune(status state.Status) rune {
	switch status {
	case state.StatusOperational:
		return '▇'
	case state.StatusCaution:
		return '▄'
	case state.StatusUnreachable:
		return '▁'
	default:
		return '?'
	}
}

func (u *UI) drawLogPane(screen tcell.Screen, x, y, width, height int, filter eventlog.Severity, now time.Time) {
	drawBox(screen, x, y, width, height)
	label := "all"
	if filter != "" {
		label = string(filter)
	}
	drawText(screen, x+2, y, minInt(width-4, 24), fmt.Sprintf(" log [%s] ", label), tcell.StyleDefault.Bold(true))

	entries := u.events.Filter(filter)
	for i := 0; i < len(entries) && i < height-2; i++ {
		drawText(screen, x+1, y+1+i, width-2, formatLogLine(entries[i], now), severityStyle(entries[i].Severity))
	}
}

func formatLogLine(e eventlog.Entry, now time.Time) string {
	return fmt.Sprintf("%s %-8s %s (%s)",
		e.Timestamp.Format("15:04:05"),
		"["+string(e.Severity)+"]",
		e.Message,
		humanize.RelTime(e.Timestamp, now, "ago", "from now"),
	)
}

func formatLatency(ms *int64) string {
	if ms == nil {
		return "-"
	}
	return fmt.Sprintf("%dms", *ms)
}

func drawBox(screen tcell.Screen, x, y, width, height int) {
	if width < 2 || height < 2 {
		return
	}
	right := x + width - 1
	bottom := y + height - 1

	setCell(screen, x, y, '+', tcell.StyleDefault)
	setCell(screen, right, y, '+', tcell.StyleDefault)
	setCell(screen, x, bottom, '+', tcell.StyleDefault)
	setCell(screen, right, bottom, '+', tcell.StyleDefault)

	for col := x + 1; col < right; col++ {
		setCell(screen, col, y, '-', tcell.StyleDefault)
		setCell(screen, col, bottom, '-', tcell.StyleDefault)
	}
	for row := y + 1; row < bottom; row++ {
		setCell(screen, x, row, '|', tcell.StyleDefault)
		setCell(screen, right, row, '|', tcell.StyleDefault)
	}
}

func drawText(screen tcell.Screen, x, y, width int, text string, style tcell.Style) {
	drawStyledText(screen, x, y, width, []styledRune{{r: []rune(text), style: style}})
}

type styledText struct {
	text  string
	style tcell.Style
}

type styledRune struct {
	r     []rune
	style tcell.Style
}

func drawStyledText(screen tcell.Screen, x, y, width int, parts []styledRune) {
	if width <= 0 {
		return
	}
	col := x
	for _, part := range parts {
		for _, r := range part.r {
			if col >= x+width {
				return
			}
			setCell(screen, col, y, r, part.style)
			col++
		}
	}
	for col < x+width {
		setCell(screen, col, y, ' ', tcell.StyleDefault)
		col++
	}
}

func flattenStyledText(parts []styledText, width int) []styledRune {
	result := make([]styledRune, 0, len(parts))
	used := 0
	for _, part := range parts {
		runes := []rune(part.text)
		if used+len(runes) > width {
			runes = runes[:maxInt(0, width-used)]
		}
		result = append(result, styledRune{r: runes, style: part.style})
		used += len(runes)
		if used >= width {
			break
		}
	}
	return result
}

func setCell(screen tcell.Screen, x, y int, r rune, style tcell.Style) {
	screen.SetContent(x, y, r, nil, style)
}

func padOrTrim(value string, width int) string {
	if width <= 0 {
		return ""
	}
	runes := []rune(value)
	if len(runes) > width {
		return string(runes[:width])
	}
	if len(runes) < width {
		return value + strings.Repeat(" ", width-len(runes))
	}
	return value
}

func statusStyle(status state.Status) tcell.Style {
	switch status {
	case state.StatusOperational:
		return tcell.StyleDefault.Foreground(tcell.ColorGreen)
	case state.StatusCaution:
		return tcell.StyleDefault.Foreground(tcell.ColorYellow)
	case state.StatusUnreachable:
		return tcell.StyleDefault.Foreground(tcell.ColorRed)
	case state.StatusChecking:
		return tcell.StyleDefault.Foreground(tcell.ColorBlue)
	default:
		return tcell.StyleDefault.Foreground(tcell.ColorGray)
	}
}

func severityStyle(severity eventlog.Severity) tcell.Style {
	switch severity {
	case eventlog.SeveritySuccess:
		return tcell.StyleDefault.Foreground(tcell.ColorGreen)
	case eventlog.SeverityWarning:
		return tcell.StyleDefault.Foreground(tcell.ColorYellow)
	case eventlog.SeverityError:
		return tcell.StyleDefault.Foreground(tcell.ColorRed)
	default:
		return tcell.StyleDefault
	}
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func formatDuration(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%dus", d.Microseconds())
	}
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return fmt.Sprintf("%.1fm", d.Minutes())
}
