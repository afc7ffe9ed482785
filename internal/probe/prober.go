package probe

import (
	"context"
	"time"
)

// Result captures the outcome of a single echo probe. Elapsed is the
// wall-clock time around the attempt and is measured even on failure.
type Result struct {
	Success bool
	Elapsed time.Duration
	Err     error
}

// Prober sends exactly one echo request per call. Implementations never
// retry internally and never panic; all transport failures come back as
// Success=false with the cause in Err.
type Prober interface {
	Probe(ctx context.Context, addr string, timeout time.Duration) Result
}
