// ABOUTME: Sender socket setup
// ABOUTME: Opens a broadcast-enabled UDP socket and applies multicast options
package transport

import (
	"context"
	"fmt"
	"net"

	"golang.org/x/net/ipv4"
)

// SendConfig describes the sender socket
type SendConfig struct {
	// Interface selects the outgoing multicast interface
	Interface string
	// TTL is the multicast hop limit; 0 keeps the system default of 1
	TTL int
	// Loopback delivers multicast to receivers on the sending host
	Loopback bool
}

// OpenSender opens an unconnected UDP socket able to reach dest
func OpenSender(ctx context.Context, dest *net.UDPAddr, cfg SendConfig) (net.PacketConn, error) {
	lc := net.ListenConfig{Control: broadcastControl}
	conn, err := lc.ListenPacket(ctx, "udp4", ":0")
	if err != nil {
		return nil, fmt.Errorf("open sender socket: %w", err)
	}

	if dest.IP.IsMulticast() {
		if err := configureMulticast(conn, cfg); err != nil {
			conn.Close()
			return nil, err
		}
	}
	return conn, nil
}

func configureMulticast(conn net.PacketConn, cfg SendConfig) error {
	p := ipv4.NewPacketConn(conn)

	if cfg.TTL > 0 {
		if err := p.SetMulticastTTL(cfg.TTL); err != nil {
			return fmt.Errorf("set multicast TTL: %w", err)
		}
	}
	if err := p.SetMulticastLoopback(cfg.Loopback); err != nil {
		return fmt.Errorf("set multicast loopback: %w", err)
	}

	ifi, err := interfaceByName(cfg.Interface)
	if err != nil {
		return err
	}
	if ifi != nil {
		if err := p.SetMulticastInterface(ifi); err != nil {
			return fmt.Errorf("set multicast interface: %w", err)
		}
	}
	return nil
}
