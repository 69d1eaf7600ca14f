// ABOUTME: Airwave datagram codec
// ABOUTME: Encodes and decodes "<decimal timestamp>||<pcm payload>" packets
package protocol

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"
)

const (
	// DefaultPort is the UDP port senders broadcast to and receivers bind
	DefaultPort = 5005

	// MaxDatagramSize is the receive buffer size; larger datagrams are truncated by the socket
	MaxDatagramSize = 4096

	// Separator splits the timestamp header from the payload
	Separator = "||"

	// MaxHeaderSize bounds the header of a wall-clock timestamp ("1700000000.1234567||")
	MaxHeaderSize = 24
)

var (
	// ErrMalformed is wrapped by every decode failure
	ErrMalformed = errors.New("malformed packet")

	ErrMissingSeparator = fmt.Errorf("%w: missing %q separator", ErrMalformed, Separator)
	ErrBadTimestamp     = fmt.Errorf("%w: invalid timestamp", ErrMalformed)
	ErrFrameSize        = fmt.Errorf("%w: payload is not exactly one frame", ErrMalformed)
)

// Packet is one frame of audio stamped with the sender's wall clock
type Packet struct {
	// Timestamp is seconds since the Unix epoch on the sender's clock
	Timestamp float64
	Payload   []byte
}

// TimestampOf converts a wall-clock time to packet seconds
func TimestampOf(t time.Time) float64 {
	return float64(t.Unix()) + float64(t.Nanosecond())/1e9
}

// Time returns the origination time as a time.Time
func (p Packet) Time() time.Time {
	sec, frac := math.Modf(p.Timestamp)
	return time.Unix(int64(sec), int64(frac*1e9))
}

// Latency returns the one-way delay observed at now. It includes any clock
// offset between sender and receiver and is only meaningful as a diagnostic.
func (p Packet) Latency(now time.Time) time.Duration {
	return time.Duration((TimestampOf(now) - p.Timestamp) * float64(time.Second))
}

// Encode serializes p into a new datagram
func Encode(p Packet) []byte {
	return AppendEncode(make([]byte, 0, MaxHeaderSize+len(p.Payload)), p)
}

// AppendEncode appends the encoding of p to dst
func AppendEncode(dst []byte, p Packet) []byte {
	// Shortest representation that parses back to the same float64
	dst = strconv.AppendFloat(dst, p.Timestamp, 'f', -1, 64)
	dst = append(dst, Separator...)
	return append(dst, p.Payload...)
}

// Decode parses a datagram. The returned payload aliases data.
// Any input without a separator, or with a header that is not a finite
// decimal number, returns an error wrapping ErrMalformed.
func Decode(data []byte) (Packet, error) {
	head, payload, found := bytes.Cut(data, []byte(Separator))
	if !found {
		return Packet{}, ErrMissingSeparator
	}

	ts, err := parseTimestamp(head)
	if err != nil {
		return Packet{}, err
	}

	return Packet{Timestamp: ts, Payload: payload}, nil
}

// ValidateFrame checks that p carries exactly one frame of frameBytes
func ValidateFrame(p Packet, frameBytes int) error {
	if len(p.Payload) != frameBytes {
		return fmt.Errorf("%w: got %d bytes, want %d", ErrFrameSize, len(p.Payload), frameBytes)
	}
	return nil
}

// parseTimestamp accepts plain decimal notation only: digits, sign, point
// and exponent. strconv would also take "NaN", "Inf" and hex floats.
func parseTimestamp(head []byte) (float64, error) {
	if len(head) == 0 {
		return 0, fmt.Errorf("%w: empty header", ErrBadTimestamp)
	}
	for _, c := range head {
		if !isDecimalByte(c) {
			return 0, fmt.Errorf("%w: %q", ErrBadTimestamp, truncate(head))
		}
	}

	ts, err := strconv.ParseFloat(string(head), 64)
	if err != nil || math.IsInf(ts, 0) || math.IsNaN(ts) {
		return 0, fmt.Errorf("%w: %q", ErrBadTimestamp, truncate(head))
	}
	return ts, nil
}

func isDecimalByte(c byte) bool {
	switch {
	case c >= '0' && c <= '9':
		return true
	case c == '.', c == '-', c == '+', c == 'e', c == 'E':
		return true
	}
	return false
}

// truncate keeps error messages short when the header is garbage
func truncate(b []byte) []byte {
	if len(b) > 32 {
		return b[:32]
	}
	return b
}
