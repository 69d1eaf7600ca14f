// ABOUTME: Receiver socket setup
// ABOUTME: Binds the broadcast port with address reuse and optionally joins a multicast group
package transport

import (
	"context"
	"fmt"
	"log"
	"net"
	"strconv"

	"golang.org/x/net/ipv4"
)

// ListenConfig describes the receive socket
type ListenConfig struct {
	// Address is the local bind host; empty binds all interfaces
	Address string
	Port    int
	// Group is an optional IPv4 multicast group to join
	Group string
	// Interface restricts the multicast join; empty lets the kernel choose
	Interface string
	// ReadBuffer sets SO_RCVBUF when positive
	ReadBuffer int
}

// Listen opens the receive socket. Address reuse is enabled so several
// receivers on one host can share the port.
func Listen(ctx context.Context, cfg ListenConfig) (net.PacketConn, error) {
	lc := net.ListenConfig{Control: reuseControl}

	bind := net.JoinHostPort(cfg.Address, strconv.Itoa(cfg.Port))
	conn, err := lc.ListenPacket(ctx, "udp4", bind)
	if err != nil {
		return nil, fmt.Errorf("bind %s: %w", bind, err)
	}

	if cfg.ReadBuffer > 0 {
		if udp, ok := conn.(*net.UDPConn); ok {
			if err := udp.SetReadBuffer(cfg.ReadBuffer); err != nil {
				log.Printf("Warning: failed to set receive buffer to %d: %v", cfg.ReadBuffer, err)
			}
		}
	}

	if cfg.Group != "" {
		if err := joinGroup(conn, cfg.Group, cfg.Interface); err != nil {
			conn.Close()
			return nil, err
		}
	}

	return conn, nil
}

func joinGroup(conn net.PacketConn, group, iface string) error {
	ip := net.ParseIP(group)
	if ip == nil || ip.To4() == nil || !ip.IsMulticast() {
		return fmt.Errorf("invalid IPv4 multicast group %q", group)
	}

	ifi, err := interfaceByName(iface)
	if err != nil {
		return err
	}

	p := ipv4.NewPacketConn(conn)
	if err := p.JoinGroup(ifi, &net.UDPAddr{IP: ip}); err != nil {
		return fmt.Errorf("join multicast group %s: %w", group, err)
	}

	log.Printf("Joined multicast group %s", group)
	return nil
}
