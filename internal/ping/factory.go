package ping

import (
	"fmt"
	"time"
)

// Kind names a prober implementation; values match config.ProberKind.
type Kind string

const (
	KindAuto      Kind = "auto"
	KindICMP      Kind = "icmp"
	KindExternal  Kind = "external"
	KindParallel  Kind = "parallel"
	KindTCP       Kind = "tcp"
	KindSimulated Kind = "simulated"
)

// New builds the prober for kind. Auto means raw ICMP with the system ping
// command as fallback when raw sockets are not permitted.
func New(kind Kind, tcpPort int) (Prober, error) {
	switch kind {
	case KindAuto, "":
		return NewFallbackPinger(NewICMPPinger(), NewExternalPinger()), nil
	case KindICMP:
		return NewICMPPinger(), nil
	case KindExternal:
		return NewExternalPinger(), nil
	case KindParallel:
		return NewParallelPinger(defaultParallelPackets), nil
	case KindTCP:
		return NewTCPProber(tcpPort), nil
	case KindSimulated:
		return NewSimulatedProber(time.Now().UnixNano(), true), nil
	default:
		return nil, fmt.Errorf("unknown prober kind %q", kind)
	}
}
