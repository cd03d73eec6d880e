package state

import (
	"fmt"
	"math"

	"github.com/doridoridoriand/regionwatch/internal/eventlog"
)

// confirmFailures is the number of consecutive raw failures that turns a
// Caution into a confirmed Unreachable.
const confirmFailures = 2

// NoticeKind identifies a transition worth logging.
type NoticeKind int

const (
	NoticeNone NoticeKind = iota
	NoticeSuspect
	NoticeLost
	NoticeRestored
)

// Notice is a transition message produced by Transition.
type Notice struct {
	Kind     NoticeKind
	Address  string
	Group    string
	Severity eventlog.Severity
	Message  string
}

func newNotice(kind NoticeKind, address, group string) *Notice {
	n := &Notice{Kind: kind, Address: address, Group: group}
	switch kind {
	case NoticeSuspect:
		n.Severity = eventlog.SeverityWarning
		n.Message = fmt.Sprintf("Potential issue detected on %s (%s)", address, group)
	case NoticeLost:
		n.Severity = eventlog.SeverityError
		n.Message = fmt.Sprintf("Connection lost to %s (%s)", address, group)
	case NoticeRestored:
		n.Severity = eventlog.SeveritySuccess
		n.Message = fmt.Sprintf("Connection restored to %s (%s)", address, group)
	default:
		return nil
	}
	return n
}

// Hysteresis is the part of endpoint state driven by raw verdicts.
type Hysteresis struct {
	Status              Status
	ConsecutiveFailures int
}

// Transition applies one raw verdict. A single failure only raises Caution;
// the second consecutive failure confirms Unreachable. Further failures stay
// Unreachable without another notice.
func Transition(cur Hysteresis, reachable bool) (Hysteresis, NoticeKind) {
	if !reachable {
		failures := cur.ConsecutiveFailures + 1
		switch {
		case failures < confirmFailures:
			return Hysteresis{Status: StatusCaution, ConsecutiveFailures: failures}, NoticeSuspect
		case failures == confirmFailures:
			return Hysteresis{Status: StatusUnreachable, ConsecutiveFailures: failures}, NoticeLost
		default:
			return Hysteresis{Status: StatusUnreachable, ConsecutiveFailures: failures}, NoticeNone
		}
	}

	kind := NoticeNone
	if cur.ConsecutiveFailures >= confirmFailures {
		kind = NoticeRestored
	}
	return Hysteresis{Status: StatusOperational, ConsecutiveFailures: 0}, kind
}

// SmoothLatency folds a new sample into the moving average with weights
// 0.6 (history) and 0.4 (sample). A nil previous value takes the sample.
func SmoothLatency(prev *int64, sampleMs int64) int64 {
	if prev == nil {
		return sampleMs
	}
	return int64(math.Round(float64(*prev)*0.6 + float64(sampleMs)*0.4))
}
