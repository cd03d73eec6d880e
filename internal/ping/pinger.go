package ping

import (
	"context"
	"errors"
	"net"
	"time"
)

var (
	// ErrProbeTimeout marks a probe that did not answer within its deadline.
	ErrProbeTimeout = errors.New("probe timed out")
	// ErrProbeInfrastructure marks a probe that could not be carried out at all.
	ErrProbeInfrastructure = errors.New("probe infrastructure error")
)

// Result captures a single probe outcome. An unreachable endpoint is a valid
// outcome: Error only carries detail for logs.
type Result struct {
	Reachable bool
	Latency   time.Duration
	Error     error
}

// Prober performs one health check against one address. Implementations must
// return within timeout (or when ctx is done) and never panic for a down host.
type Prober interface {
	Probe(ctx context.Context, addr string, timeout time.Duration) Result
}

// ProberFunc adapts a function to the Prober interface.
type ProberFunc func(ctx context.Context, addr string, timeout time.Duration) Result

func (f ProberFunc) Probe(ctx context.Context, addr string, timeout time.Duration) Result {
	return f(ctx, addr, timeout)
}

// Failure builds an unreachable result wrapping err.
func Failure(err error) Result {
	return Result{Reachable: false, Error: Classify(err)}
}

// Classify tags deadline and network timeout errors with ErrProbeTimeout.
// Other errors are returned unchanged.
func Classify(err error) error {
	if err == nil || errors.Is(err, ErrProbeTimeout) || errors.Is(err, ErrProbeInfrastructure) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return errors.Join(ErrProbeTimeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return errors.Join(ErrProbeTimeout, err)
	}
	return err
}

// IsTimeout reports whether a result failed on its deadline.
func (r Result) IsTimeout() bool {
	return errors.Is(r.Error, ErrProbeTimeout)
}

func effectiveDeadline(ctx context.Context, timeout time.Duration) time.Time {
	deadline := time.Now().Add(timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		return ctxDeadline
	}
	return deadline
}
