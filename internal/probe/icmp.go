package probe

import (
	"context"
	"fmt"
	"net"
	"os"
	"sync/atomic"
	"time"

	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"
	"golang.org/x/net/ipv6"
)

const echoPayload = "storewatch"

// ICMPProber sends ICMP echo requests over a raw socket. Requires elevated
// privileges on most platforms; pair with FallbackProber otherwise.
type ICMPProber struct {
	id  int
	seq uint32
}

// NewICMPProber returns a prober keyed to this process.
func NewICMPProber() *ICMPProber {
	return &ICMPProber{id: os.Getpid() & 0xffff}
}

// Probe sends one echo request and waits for the matching reply.
func (p *ICMPProber) Probe(ctx context.Context, addr string, timeout time.Duration) Result {
	start := time.Now()
	fail := func(err error) Result {
		return Result{Success: false, Elapsed: time.Since(start), Err: err}
	}

	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	dst, err := net.ResolveIPAddr("ip", addr)
	if err != nil {
		return fail(err)
	}
	if dst.IP == nil {
		return fail(fmt.Errorf("invalid address: %s", addr))
	}

	network, proto, reqType, replyType := echoSettings(dst.IP)
	conn, err := icmp.ListenPacket(network, "")
	if err != nil {
		return fail(err)
	}
	defer conn.Close()

	seq := int(atomic.AddUint32(&p.seq, 1)) & 0xffff
	msg := icmp.Message{
		Type: reqType,
		Code: 0,
		Body: &icmp.Echo{ID: p.id, Seq: seq, Data: []byte(echoPayload)},
	}
	wire, err := msg.Marshal(nil)
	if err != nil {
		return fail(err)
	}

	if err := conn.SetDeadline(probeDeadline(ctx, start, timeout)); err != nil {
		return fail(err)
	}
	if _, err := conn.WriteTo(wire, dst); err != nil {
		return fail(err)
	}

	buf := make([]byte, 1500)
	for {
		if err := ctx.Err(); err != nil {
			return fail(err)
		}
		n, peer, err := conn.ReadFrom(buf)
		if err != nil {
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				return fail(fmt.Errorf("echo timeout: %w", err))
			}
			return fail(err)
		}
		if peer == nil {
			continue
		}
		reply, err := icmp.ParseMessage(proto, buf[:n])
		if err != nil || reply.Type != replyType {
			continue
		}
		body, ok := reply.Body.(*icmp.Echo)
		if !ok || body.ID != p.id || body.Seq != seq {
			continue
		}
		return Result{Success: true, Elapsed: time.Since(start)}
	}
}

func echoSettings(ip net.IP) (network string, proto int, req icmp.Type, reply icmp.Type) {
	if ip.To4() != nil {
		return "ip4:icmp", ipv4.ICMPTypeEcho.Protocol(), ipv4.ICMPTypeEcho, ipv4.ICMPTypeEchoReply
	}
	return "ip6:ipv6-icmp", ipv6.ICMPTypeEchoRequest.Protocol(), ipv6.ICMPTypeEchoRequest, ipv6.ICMPTypeEchoReply
}

// probeDeadline bounds the read by the per-sample timeout or the context
// deadline, whichever comes first.
func probeDeadline(ctx context.Context, start time.Time, timeout time.Duration) time.Time {
	deadline := start.Add(timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		return ctxDeadline
	}
	return deadline
}
