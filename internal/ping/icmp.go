package ping

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

const echoData = "regionwatch"

// ICMPPinger sends ICMP echo requests using raw sockets.
type ICMPPinger struct {
	id  int
	seq uint32
}

// NewICMPPinger initializes a pinger with a process-scoped identifier.
func NewICMPPinger() *ICMPPinger {
	return &ICMPPinger{id: os.Getpid() & 0xffff}
}

// Probe sends one ICMP echo request and waits for the matching reply.
func (p *ICMPPinger) Probe(ctx context.Context, addr string, timeout time.Duration) Result {
	if err := ctx.Err(); err != nil {
		return Failure(err)
	}

	dst, err := resolveIP(addr)
	if err != nil {
		return Failure(fmt.Errorf("%w: %v", ErrProbeInfrastructure, err))
	}

	network, protocol, requestType, replyType := icmpSettings(dst.IP)
	conn, err := icmp.ListenPacket(network, "")
	if err != nil {
		return Failure(fmt.Errorf("%w: %w", ErrProbeInfrastructure, err))
	}
	defer conn.Close()

	seq := int(atomic.AddUint32(&p.seq, 1) & 0xffff)
	msg := icmp.Message{
		Type: requestType,
		Code: 0,
		Body: &icmp.Echo{
			ID:   p.id,
			Seq:  seq,
			Data: []byte(echoData),
		},
	}

	payload, err := msg.Marshal(nil)
	if err != nil {
		return Failure(fmt.Errorf("%w: %v", ErrProbeInfrastructure, err))
	}

	if err := conn.SetDeadline(effectiveDeadline(ctx, timeout)); err != nil {
		return Failure(fmt.Errorf("%w: %v", ErrProbeInfrastructure, err))
	}

	start := time.Now()
	if _, err := conn.WriteTo(payload, dst); err != nil {
		return Failure(err)
	}

	buf := make([]byte, 1500)
	for {
		if err := ctx.Err(); err != nil {
			return Failure(err)
		}

		n, peer, err := conn.ReadFrom(buf)
		if err != nil {
			return Failure(err)
		}
		if peer == nil {
			continue
		}

		reply, err := icmp.ParseMessage(protocol, buf[:n])
		if err != nil {
			continue
		}
		if reply.Type != replyType {
			continue
		}
		body, ok := reply.Body.(*icmp.Echo)
		if !ok {
			continue
		}
		if body.ID != p.id || body.Seq != seq {
			continue
		}

		return Result{Reachable: true, Latency: time.Since(start)}
	}
}

func resolveIP(addr string) (*net.IPAddr, error) {
	ipAddr, err := net.ResolveIPAddr("ip", addr)
	if err != nil {
		return nil, err
	}
	if ipAddr.IP == nil {
		return nil, fmt.Errorf("invalid IP address: %s", addr)
	}
	return ipAddr, nil
}

func icmpSettings(ip net.IP) (network string, protocol int, requestType icmp.Type, replyType icmp.Type) {
	if ip.To4() != nil {
		return "ip4:icmp", ipv4.ICMPTypeEcho.Protocol(), ipv4.ICMPTypeEcho, ipv4.ICMPTypeEchoReply
	}
	return "ip6:ipv6-icmp", ipv6.ICMPTypeEchoRequest.Protocol(), ipv6.ICMPTypeEchoRequest, ipv6.ICMPTypeEchoReply
}
