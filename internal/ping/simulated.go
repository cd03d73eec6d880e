package ping

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"
)

// SimulatedProber stands in for a real network check: latency is drawn from
// [20ms, 150ms) and 95% of probes succeed. The source is seeded so a run can
// be reproduced.
type SimulatedProber struct {
	mu          sync.Mutex
	rng         *rand.Rand
	successRate float64
	sleep       bool
}

// NewSimulatedProber returns a simulated prober. When sleep is false the
// latency is reported without waiting for it.
func NewSimulatedProber(seed int64, sleep bool) *SimulatedProber {
	return &SimulatedProber{
		rng:         rand.New(rand.NewSource(seed)),
		successRate: 0.95,
		sleep:       sleep,
	}
}

// Probe draws one verdict.
func (p *SimulatedProber) Probe(ctx context.Context, addr string, timeout time.Duration) Result {
	p.mu.Lock()
	latency := time.Duration(p.rng.Intn(130)+20) * time.Millisecond
	up := p.rng.Float64() < p.successRate
	p.mu.Unlock()

	if p.sleep {
		if latency > timeout {
			latency = timeout
		}
		timer := time.NewTimer(latency)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return Failure(ctx.Err())
		case <-timer.C:
		}
	}

	if !up {
		return Result{Reachable: false, Latency: latency, Error: fmt.Errorf("simulated loss for %s", addr)}
	}
	return Result{Reachable: true, Latency: latency}
}

// ScriptedProber replays a fixed sequence of verdicts per address. Once a
// script is exhausted the last verdict repeats; unknown addresses fail.
type ScriptedProber struct {
	mu      sync.Mutex
	scripts map[string][]Result
	calls   map[string]int
}

// NewScriptedProber copies scripts.
func NewScriptedProber(scripts map[string][]Result) *ScriptedProber {
	copied := make(map[string][]Result, len(scripts))
	for addr, seq := range scripts {
		copied[addr] = append([]Result(nil), seq...)
	}
	return &ScriptedProber{scripts: copied, calls: make(map[string]int)}
}

// Probe returns the next scripted verdict for addr.
func (p *ScriptedProber) Probe(ctx context.Context, addr string, timeout time.Duration) Result {
	if err := ctx.Err(); err != nil {
		return Failure(err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	seq := p.scripts[addr]
	if len(seq) == 0 {
		return Failure(fmt.Errorf("%w: no script for %s", ErrProbeInfrastructure, addr))
	}
	i := p.calls[addr]
	p.calls[addr] = i + 1
	if i >= len(seq) {
		i = len(seq) - 1
	}
	return seq[i]
}

// Calls reports how often addr was probed.
func (p *ScriptedProber) Calls(addr string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[addr]
}
