package probe

import (
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"runtime"
	"strconv"
	"time"
)

var rttPattern = regexp.MustCompile(`time[=<]([0-9.]+)\s*ms`)

// ExternalProber shells out to the system ping command. Used when raw
// sockets are unavailable (unprivileged processes).
type ExternalProber struct{}

// NewExternalProber returns a prober backed by the ping binary.
func NewExternalProber() *ExternalProber {
	return &ExternalProber{}
}

// Probe runs one ping and parses the round-trip time from its output.
func (p *ExternalProber) Probe(ctx context.Context, addr string, timeout time.Duration) Result {
	start := time.Now()

	cmd := exec.CommandContext(ctx, "ping", externalArgs(addr, timeout)...)
	out, err := cmd.CombinedOutput()
	elapsed := time.Since(start)
	if err != nil {
		return Result{Success: false, Elapsed: elapsed, Err: fmt.Errorf("external ping: %w", err)}
	}

	if rtt := parseRTT(out); rtt > 0 {
		elapsed = rtt
	}
	return Result{Success: true, Elapsed: elapsed}
}

func externalArgs(addr string, timeout time.Duration) []string {
	switch runtime.GOOS {
	case "windows":
		ms := max(100, int(timeout.Milliseconds()))
		return []string{"-n", "1", "-w", strconv.Itoa(ms), addr}
	case "darwin":
		ms := max(100, int(timeout.Milliseconds()))
		return []string{"-n", "-c", "1", "-W", strconv.Itoa(ms), addr}
	default:
		sec := max(1, int(timeout.Seconds()+0.5))
		return []string{"-n", "-c", "1", "-W", strconv.Itoa(sec), addr}
	}
}

func parseRTT(output []byte) time.Duration {
	m := rttPattern.FindSubmatch(output)
	if len(m) < 2 {
		return 0
	}
	ms, err := strconv.ParseFloat(string(m[1]), 64)
	if err != nil {
		return 0
	}
	return time.Duration(ms * float64(time.Millisecond))
}
