package probe

import (
	"context"
	"time"
)

// Verdict is the per-cycle reduction of several probe samples against one
// address. AvgLatency is the mean over successful samples only and is
// meaningful iff SuccessCount > 0.
type Verdict struct {
	Online       bool
	SuccessCount int
	AvgLatency   time.Duration
}

// HasLatency reports whether AvgLatency carries a measurement.
func (v Verdict) HasLatency() bool {
	return v.SuccessCount > 0
}

// Offline is the synthetic verdict used for unresolved addresses and failed
// dispatches: no samples, no latency.
func Offline() Verdict {
	return Verdict{Online: false, SuccessCount: 0}
}

// Aggregator turns N independent probe samples into one Verdict using a
// quorum rule: the address is online when at least Quorum samples succeed.
type Aggregator struct {
	Prober  Prober
	Samples int
	Quorum  int
	Timeout time.Duration
}

// Aggregate issues Samples sequential probes and reduces them. Failed
// samples count against the quorum and never contribute to the latency
// average. Zero successes always yield offline, whatever the quorum.
func (a Aggregator) Aggregate(ctx context.Context, addr string) Verdict {
	samples := a.Samples
	if samples < 1 {
		samples = 1
	}
	quorum := a.Quorum
	if quorum < 1 {
		quorum = 1
	}

	var successes int
	var total time.Duration
	for i := 0; i < samples; i++ {
		result := a.Prober.Probe(ctx, addr, a.Timeout)
		if !result.Success {
			continue
		}
		successes++
		total += result.Elapsed
	}

	verdict := Verdict{SuccessCount: successes}
	if successes > 0 {
		verdict.AvgLatency = total / time.Duration(successes)
		verdict.Online = successes >= quorum
	}
	return verdict
}
