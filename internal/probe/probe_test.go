package probe

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"
)

func TestParseRTT(t *testing.T) {
	tests := []struct {
		name   string
		output string
		want   time.Duration
	}{
		{"linux style", "64 bytes from 192.0.2.1: icmp_seq=1 ttl=64 time=12.4 ms", 12400 * time.Microsecond},
		{"windows style", "Reply from 192.0.2.1: bytes=32 time=8ms TTL=64", 8 * time.Millisecond},
		{"sub-millisecond", "Reply from 192.0.2.1: bytes=32 time<1ms TTL=64", time.Millisecond},
		{"no match", "Request timed out.", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parseRTT([]byte(tt.output)); got != tt.want {
				t.Fatalf("parseRTT(%q) = %s, want %s", tt.output, got, tt.want)
			}
		})
	}
}

func TestICMPProbeInvalidAddressFailsClosed(t *testing.T) {
	p := NewICMPProber()
	result := p.Probe(context.Background(), "not an address", 50*time.Millisecond)
	if result.Success {
		t.Fatalf("expected failure for invalid address")
	}
	if result.Err == nil {
		t.Fatalf("expected error recorded on failure")
	}
	if result.Elapsed < 0 {
		t.Fatalf("elapsed must be measured even on failure")
	}
}

func TestICMPProbeCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := NewICMPProber()
	result := p.Probe(ctx, "127.0.0.1", time.Second)
	if result.Success {
		t.Fatalf("expected failure with cancelled context")
	}
}

type stubProber struct {
	result Result
	calls  int
}

func (p *stubProber) Probe(ctx context.Context, addr string, timeout time.Duration) Result {
	p.calls++
	return p.result
}

func TestFallbackOnPermissionError(t *testing.T) {
	primary := &stubProber{result: Result{Success: false, Err: os.ErrPermission}}
	secondary := &stubProber{result: Result{Success: true, Elapsed: time.Millisecond}}
	p := NewFallbackProber(primary, secondary)

	result := p.Probe(context.Background(), "192.0.2.1", time.Second)
	if !result.Success {
		t.Fatalf("expected secondary to answer, got %+v", result)
	}
	if primary.calls != 1 || secondary.calls != 1 {
		t.Fatalf("expected one call each, got primary=%d secondary=%d", primary.calls, secondary.calls)
	}
}

func TestFallbackDowngradeIsSticky(t *testing.T) {
	primary := &stubProber{result: Result{Success: false, Err: os.ErrPermission}}
	secondary := &stubProber{result: Result{Success: true, Elapsed: time.Millisecond}}
	p := NewFallbackProber(primary, secondary)

	p.Probe(context.Background(), "192.0.2.1", time.Second)
	p.Probe(context.Background(), "192.0.2.1", time.Second)
	p.Probe(context.Background(), "192.0.2.2", time.Second)

	if primary.calls != 1 {
		t.Fatalf("primary must not be retried after a permission failure, got %d calls", primary.calls)
	}
	if secondary.calls != 3 {
		t.Fatalf("expected every probe on the secondary after downgrade, got %d", secondary.calls)
	}
}

func TestFallbackSkipsSecondaryOnOrdinaryFailure(t *testing.T) {
	primary := &stubProber{result: Result{Success: false, Err: errors.New("echo timeout")}}
	secondary := &stubProber{result: Result{Success: true}}
	p := NewFallbackProber(primary, secondary)

	result := p.Probe(context.Background(), "192.0.2.1", time.Second)
	if result.Success {
		t.Fatalf("ordinary failure must not fall back")
	}
	if secondary.calls != 0 {
		t.Fatalf("secondary should not be consulted, got %d calls", secondary.calls)
	}
}

func TestFallbackSkipsSecondaryOnSuccess(t *testing.T) {
	primary := &stubProber{result: Result{Success: true, Elapsed: 2 * time.Millisecond}}
	secondary := &stubProber{}
	p := NewFallbackProber(primary, secondary)

	result := p.Probe(context.Background(), "192.0.2.1", time.Second)
	if !result.Success || secondary.calls != 0 {
		t.Fatalf("primary success must short-circuit, result=%+v secondary=%d", result, secondary.calls)
	}
}
