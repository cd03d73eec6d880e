package ping

import (
	"context"
	"errors"
	"net"
	"strconv"
	"syscall"
	"time"
)

// TCPProber measures connect latency to a fixed port. A refused connection
// still proves the host answered, so it counts as reachable.
type TCPProber struct {
	Port int
}

// NewTCPProber returns a prober dialing port on each address.
func NewTCPProber(port int) *TCPProber {
	if port <= 0 {
		port = 443
	}
	return &TCPProber{Port: port}
}

// Probe dials addr:Port once.
func (p *TCPProber) Probe(ctx context.Context, addr string, timeout time.Duration) Result {
	ctx, cancel := context.WithDeadline(ctx, effectiveDeadline(ctx, timeout))
	defer cancel()

	var dialer net.Dialer
	start := time.Now()
	conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(addr, strconv.Itoa(p.Port)))
	latency := time.Since(start)

	if err == nil {
		_ = conn.Close()
		return Result{Reachable: true, Latency: latency}
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return Result{Reachable: true, Latency: latency, Error: err}
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) && !dnsErr.IsTimeout {
		return Failure(errors.Join(ErrProbeInfrastructure, err))
	}
	return Failure(err)
}
