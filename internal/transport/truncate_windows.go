//go:build windows

// ABOUTME: Datagram truncation detection on Windows
// ABOUTME: Windows reports oversized datagrams as WSAEMSGSIZE instead of truncating silently
package transport

import (
	"errors"

	"golang.org/x/sys/windows"
)

// IsTruncated reports whether a read error only means the datagram was
// larger than the buffer
func IsTruncated(err error) bool {
	return errors.Is(err, windows.WSAEMSGSIZE)
}
