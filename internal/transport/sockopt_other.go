//go:build !(linux || darwin || freebsd || netbsd || openbsd || dragonfly || windows)

// ABOUTME: Socket option fallbacks for other platforms
// ABOUTME: Leaves the platform defaults in place
package transport

import "syscall"

func reuseControl(network, address string, c syscall.RawConn) error {
	return nil
}

func broadcastControl(network, address string, c syscall.RawConn) error {
	return nil
}
