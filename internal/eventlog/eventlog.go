package eventlog

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultCapacity is the number of entries kept before the oldest is dropped.
const DefaultCapacity = 50

// Severity classifies a log entry.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// ParseSeverity validates a severity name. The empty string and "all" mean
// no filter and are reported with ok == true and an empty severity.
func ParseSeverity(name string) (Severity, bool) {
	switch s := Severity(strings.ToLower(strings.TrimSpace(name))); s {
	case SeverityInfo, SeveritySuccess, SeverityWarning, SeverityError:
		return s, true
	case "", "all":
		return "", true
	default:
		return "", false
	}
}

// Severities lists every severity in display order.
func Severities() []Severity {
	return []Severity{SeverityInfo, SeveritySuccess, SeverityWarning, SeverityError}
}

// Entry is one line of the event log.
type Entry struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
	Severity  Severity  `json:"severity"`
}

// Log is a bounded, newest-first event log safe for concurrent use.
type Log struct {
	mu          sync.RWMutex
	entries     []Entry
	capacity    int
	newID       func() string
	subscribers map[int]chan Entry
	nextSub     int
}

// Option configures a Log.
type Option func(*Log)

// WithCapacity overrides DefaultCapacity.
func WithCapacity(n int) Option {
	return func(l *Log) {
		if n > 0 {
			l.capacity = n
		}
	}
}

// WithIDGenerator replaces the random UUID generator.
func WithIDGenerator(fn func() string) Option {
	return func(l *Log) {
		if fn != nil {
			l.newID = fn
		}
	}
}

// New creates an empty log.
func New(opts ...Option) *Log {
	l := &Log{
		capacity:    DefaultCapacity,
		newID:       func() string { return uuid.NewString() },
		subscribers: make(map[int]chan Entry),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Append prepends a new entry, dropping the oldest past capacity.
func (l *Log) Append(severity Severity, message string, at time.Time) Entry {
	entry := Entry{ID: l.newID(), Timestamp: at, Message: message, Severity: severity}

	l.mu.Lock()
	l.entries = append(l.entries, Entry{})
	copy(l.entries[1:], l.entries)
	l.entries[0] = entry
	if len(l.entries) > l.capacity {
		l.entries = l.entries[:l.capacity]
	}
	for _, ch := range l.subscribers {
		select {
		case ch <- entry:
		default:
		}
	}
	l.mu.Unlock()
	return entry
}

// Appendf is Append with formatting.
func (l *Log) Appendf(severity Severity, at time.Time, format string, args ...interface{}) Entry {
	return l.Append(severity, fmt.Sprintf(format, args...), at)
}

// Entries returns a copy of the log, newest first.
func (l *Log) Entries() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]Entry(nil), l.entries...)
}

// Filter returns entries with the given severity, newest first. An empty
// severity returns everything.
func (l *Log) Filter(severity Severity) []Entry {
	entries := l.Entries()
	if severity == "" {
		return entries
	}
	out := entries[:0]
	for _, e := range entries {
		if e.Severity == severity {
			out = append(out, e)
		}
	}
	return out
}

// Sorted returns a filtered copy ordered by timestamp. Entries with equal
// timestamps keep their insertion order.
func (l *Log) Sorted(severity Severity, ascending bool) []Entry {
	entries := l.Filter(severity)
	// entries are newest first; reverse so a stable sort sees insertion order
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp.Before(entries[j].Timestamp)
	})
	if !ascending {
		for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
			entries[i], entries[j] = entries[j], entries[i]
		}
	}
	return entries
}

// Len reports the number of entries held.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Subscribe returns a channel receiving every new entry and a cancel func.
// Slow subscribers miss entries rather than block Append.
func (l *Log) Subscribe(buffer int) (<-chan Entry, func()) {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan Entry, buffer)

	l.mu.Lock()
	id := l.nextSub
	l.nextSub++
	l.subscribers[id] = ch
	l.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.subscribers, id)
			l.mu.Unlock()
			close(ch)
		})
	}
}
