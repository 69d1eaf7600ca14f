//go:build windows

// ABOUTME: Socket options for Windows
// ABOUTME: SO_REUSEADDR for shared receive ports, SO_BROADCAST for senders
package transport

import (
	"syscall"

	"golang.org/x/sys/windows"
)

func reuseControl(network, address string, c syscall.RawConn) error {
	return setBool(c, windows.SO_REUSEADDR)
}

func broadcastControl(network, address string, c syscall.RawConn) error {
	return setBool(c, windows.SO_BROADCAST)
}

func setBool(c syscall.RawConn, opt int) error {
	var opErr error
	err := c.Control(func(fd uintptr) {
		opErr = windows.SetsockoptInt(windows.Handle(fd), windows.SOL_SOCKET, opt, 1)
	})
	if err != nil {
		return err
	}
	return opErr
}
