// ABOUTME: UDP transport helpers for broadcast and multicast audio
// ABOUTME: Address resolution, local IP discovery and interface broadcast addresses
package transport

import (
	"errors"
	"fmt"
	"net"
	"strconv"
)

// LimitedBroadcast is the all-hosts broadcast address
const LimitedBroadcast = "255.255.255.255"

// ErrNoIPv4 is returned when an interface has no IPv4 network
var ErrNoIPv4 = errors.New("interface has no IPv4 address")

// LocalIP returns the address the host would use to reach the internet.
// No packet is sent; a UDP "connect" only selects a route. Falls back to
// loopback when there is no route.
func LocalIP() net.IP {
	conn, err := net.Dial("udp4", "8.8.8.8:80")
	if err != nil {
		return net.IPv4(127, 0, 0, 1)
	}
	defer conn.Close()

	if addr, ok := conn.LocalAddr().(*net.UDPAddr); ok {
		return addr.IP
	}
	return net.IPv4(127, 0, 0, 1)
}

// DirectedBroadcast returns the broadcast address of an IPv4 network
func DirectedBroadcast(n *net.IPNet) (net.IP, error) {
	ip := n.IP.To4()
	if ip == nil {
		return nil, ErrNoIPv4
	}
	mask := n.Mask
	if len(mask) == net.IPv6len {
		mask = mask[12:]
	}
	if len(mask) != net.IPv4len {
		return nil, fmt.Errorf("invalid IPv4 mask %v", n.Mask)
	}

	out := make(net.IP, net.IPv4len)
	for i := range out {
		out[i] = ip[i] | ^mask[i]
	}
	return out, nil
}

// InterfaceBroadcast returns the directed broadcast address of the first
// IPv4 network on the named interface
func InterfaceBroadcast(name string) (net.IP, error) {
	ifi, err := net.InterfaceByName(name)
	if err != nil {
		return nil, fmt.Errorf("interface %q: %w", name, err)
	}
	addrs, err := ifi.Addrs()
	if err != nil {
		return nil, fmt.Errorf("interface %q addresses: %w", name, err)
	}
	for _, a := range addrs {
		if n, ok := a.(*net.IPNet); ok && n.IP.To4() != nil {
			return DirectedBroadcast(n)
		}
	}
	return nil, fmt.Errorf("interface %q: %w", name, ErrNoIPv4)
}

// ResolveDestination picks the sender's destination. An explicit host wins;
// otherwise the interface's directed broadcast; otherwise 255.255.255.255.
func ResolveDestination(host string, port int, iface string) (*net.UDPAddr, error) {
	switch {
	case host != "":
	case iface != "":
		ip, err := InterfaceBroadcast(iface)
		if err != nil {
			return nil, err
		}
		host = ip.String()
	default:
		host = LimitedBroadcast
	}

	addr, err := net.ResolveUDPAddr("udp4", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return nil, fmt.Errorf("resolve destination %q: %w", host, err)
	}
	return addr, nil
}

// interfaceByName returns nil for an empty name so the system default is used
func interfaceByName(name string) (*net.Interface, error) {
	if name == "" {
		return nil, nil
	}
	ifi, err := net.InterfaceByName(name)
	if err != nil {
		return nil, fmt.Errorf("interface %q: %w", name, err)
	}
	return ifi, nil
}
