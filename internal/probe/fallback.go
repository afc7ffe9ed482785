package probe

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync/atomic"
	"syscall"
	"time"
)

// FallbackProber tries a primary prober and switches to a secondary when the
// primary fails with a permission error (typically ICMP without privileges).
// The downgrade is sticky: privileges never appear mid-process, so after the
// first permission failure every probe goes straight to the secondary.
type FallbackProber struct {
	primary    Prober
	secondary  Prober
	downgraded atomic.Bool
}

// NewFallbackProber wraps primary with secondary as the permission fallback.
func NewFallbackProber(primary, secondary Prober) *FallbackProber {
	return &FallbackProber{primary: primary, secondary: secondary}
}

// Probe delegates to the primary, retrying on the secondary for permission
// failures only.
func (p *FallbackProber) Probe(ctx context.Context, addr string, timeout time.Duration) Result {
	if p.downgraded.Load() {
		return p.secondary.Probe(ctx, addr, timeout)
	}
	result := p.primary.Probe(ctx, addr, timeout)
	if result.Success || !permissionDenied(result.Err) {
		return result
	}
	p.downgraded.Store(true)
	return p.secondary.Probe(ctx, addr, timeout)
}

func permissionDenied(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, os.ErrPermission) || errors.Is(err, syscall.EPERM) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "operation not permitted") || strings.Contains(msg, "permission denied")
}
