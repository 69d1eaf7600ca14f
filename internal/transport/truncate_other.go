//go:build !windows

// ABOUTME: Datagram truncation detection on non-Windows systems
// ABOUTME: The kernel truncates oversized datagrams without an error
package transport

// IsTruncated reports whether a read error only means the datagram was
// larger than the buffer
func IsTruncated(err error) bool {
	return false
}
