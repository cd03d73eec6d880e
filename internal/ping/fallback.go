package ping

import (
	"context"
	"errors"
	"os"
	"strings"
	"syscall"
	"time"
)

// FallbackPinger delegates to primary, then secondary when permission errors occur.
type FallbackPinger struct {
	primary   Prober
	secondary Prober
}

// NewFallbackPinger wraps primary with a secondary fallback.
func NewFallbackPinger(primary, secondary Prober) *FallbackPinger {
	return &FallbackPinger{primary: primary, secondary: secondary}
}

// Probe uses the primary prober and falls back on permission-related errors.
func (p *FallbackPinger) Probe(ctx context.Context, addr string, timeout time.Duration) Result {
	result := p.primary.Probe(ctx, addr, timeout)
	if result.Reachable || !isPermissionError(result.Error) {
		return result
	}
	return p.secondary.Probe(ctx, addr, timeout)
}

func isPermissionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, os.ErrPermission) || errors.Is(err, syscall.EPERM) || errors.Is(err, syscall.EACCES) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "operation not permitted") || strings.Contains(msg, "permission denied")
}
