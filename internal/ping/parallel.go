package ping

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	pinger "github.com/macrat/go-parallel-pinger"
)

const (
	defaultParallelPackets = 3
	defaultPacketInterval  = 200 * time.Millisecond
)

// echoListener is the part of pinger.Pinger used here.
type echoListener interface {
	Start(ctx context.Context) error
	SetPrivileged(b bool) error
	Ping(ctx context.Context, target *net.IPAddr, count int, interval time.Duration) (pinger.Result, error)
}

// ParallelPinger shares one IPv4 and one IPv6 listener across all probes, so
// a full cycle does not open a raw socket per endpoint. Each family starts on
// its own: a host without IPv6 still probes IPv4 endpoints.
type ParallelPinger struct {
	packets  int
	interval time.Duration
	newV4    func() echoListener
	newV6    func() echoListener

	mu      sync.Mutex
	v4      echoListener
	v6      echoListener
	v4Err   error
	v6Err   error
	stop    context.CancelFunc
	started bool
}

// NewParallelPinger returns a prober sending packets echo requests per probe.
func NewParallelPinger(packets int) *ParallelPinger {
	if packets <= 0 {
		packets = defaultParallelPackets
	}
	return &ParallelPinger{
		packets:  packets,
		interval: defaultPacketInterval,
		newV4:    func() echoListener { return pinger.NewIPv4() },
		newV6:    func() echoListener { return pinger.NewIPv6() },
	}
}

func (p *ParallelPinger) start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	v4, v4Err := startListener(ctx, p.newV4())
	v6, v6Err := startListener(ctx, p.newV6())
	if v4Err != nil && v6Err != nil {
		cancel()
		return fmt.Errorf("ipv4: %w; ipv6: %w", v4Err, v6Err)
	}

	p.v4, p.v6, p.v4Err, p.v6Err = v4, v6, v4Err, v6Err
	p.stop, p.started = cancel, true
	return nil
}

// startListener starts l, retrying once with the opposite socket mode.
func startListener(ctx context.Context, l echoListener) (echoListener, error) {
	if err := l.Start(ctx); err != nil {
		_ = l.SetPrivileged(!pinger.DEFAULT_PRIVILEGED)
		if err := l.Start(ctx); err != nil {
			return nil, err
		}
	}
	return l, nil
}

// Close stops the shared listeners.
func (p *ParallelPinger) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stop != nil {
		p.stop()
	}
	p.v4, p.v6, p.v4Err, p.v6Err = nil, nil, nil, nil
	p.stop, p.started = nil, false
}

// Probe sends the configured packet burst and reports the average RTT.
func (p *ParallelPinger) Probe(ctx context.Context, addr string, timeout time.Duration) Result {
	if err := p.start(); err != nil {
		return Failure(fmt.Errorf("%w: start pinger: %w", ErrProbeInfrastructure, err))
	}

	target, err := net.ResolveIPAddr("ip", addr)
	if err != nil {
		return Failure(fmt.Errorf("%w: %v", ErrProbeInfrastructure, err))
	}

	p.mu.Lock()
	family, pg, startErr := "ipv6", p.v6, p.v6Err
	if target.IP.To4() != nil {
		family, pg, startErr = "ipv4", p.v4, p.v4Err
	}
	started := p.started
	p.mu.Unlock()
	if pg == nil {
		if !started {
			return Failure(fmt.Errorf("%w: pinger closed", ErrProbeInfrastructure))
		}
		return Failure(fmt.Errorf("%w: %s pinger unavailable: %w", ErrProbeInfrastructure, family, startErr))
	}

	ctx, cancel := context.WithDeadline(ctx, effectiveDeadline(ctx, timeout))
	defer cancel()

	result, err := pg.Ping(ctx, target, p.packets, p.interval)
	if err != nil {
		return Failure(err)
	}
	return fromParallelResult(result, ctx.Err())
}

func fromParallelResult(result pinger.Result, ctxErr error) Result {
	if result.Recv > 0 {
		return Result{Reachable: true, Latency: result.AvgRTT}
	}
	if ctxErr != nil {
		return Failure(ctxErr)
	}
	return Result{Reachable: false, Error: fmt.Errorf("all %d packets dropped", result.Sent)}
}
