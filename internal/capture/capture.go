// ABOUTME: Sender capture loop
// ABOUTME: Reads frames from an input, timestamps them and broadcasts one datagram per frame
package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"sync/atomic"
	"time"

	"github.com/Resonate-Protocol/airwave-go/internal/observe"
	"github.com/Resonate-Protocol/airwave-go/pkg/protocol"
)

// FrameSource yields one whole frame per call, blocking at the device rate
type FrameSource interface {
	Read(ctx context.Context) ([]byte, error)
}

// overflowReporter matches inputs that count samples dropped on overflow
type overflowReporter interface {
	OverflowBytes() uint64
}

// Config configures a Capturer
type Config struct {
	// Destination is the broadcast, multicast or unicast address
	Destination net.Addr
	// FrameBytes is the expected frame length; 0 skips the check
	FrameBytes int
	// LogFrames is how many sent frames to log at startup
	LogFrames int
	Debug     bool
}

// Stats is a point-in-time copy of the sender counters
type Stats struct {
	FramesSent uint64    `json:"frames_sent"`
	BytesSent  uint64    `json:"bytes_sent"`
	SendErrors uint64    `json:"send_errors"`
	LastSend   time.Time `json:"last_send"`

	// InputOverflow is captured bytes the input dropped before they were read
	InputOverflow uint64 `json:"input_overflow_bytes"`
}

// Option customizes a Capturer
type Option func(*Capturer)

// WithMetrics records to OpenTelemetry instruments
func WithMetrics(m *observe.Metrics) Option {
	return func(c *Capturer) { c.metrics = m }
}

// WithClock replaces time.Now for timestamps
func WithClock(now func() time.Time) Option {
	return func(c *Capturer) { c.now = now }
}

// Capturer sends captured frames. Capture and send are sequential, so a
// slow send delays the next read.
type Capturer struct {
	in      FrameSource
	conn    net.PacketConn
	cfg     Config
	metrics *observe.Metrics
	now     func() time.Time

	framesSent atomic.Uint64
	bytesSent  atomic.Uint64
	sendErrors atomic.Uint64
	lastSend   atomic.Int64

	lastOverflow uint64 // owned by Run
}

// New creates a capturer sending on conn
func New(in FrameSource, conn net.PacketConn, cfg Config, opts ...Option) *Capturer {
	c := &Capturer{
		in:   in,
		conn: conn,
		cfg:  cfg,
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run captures and sends until ctx is cancelled or the input ends.
// A read or send failure is returned; there is no retry.
func (c *Capturer) Run(ctx context.Context) error {
	log.Printf("Streaming to %s", c.cfg.Destination)

	buf := make([]byte, 0, protocol.MaxHeaderSize+c.cfg.FrameBytes)
	for {
		frame, err := c.in.Read(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if errors.Is(err, io.EOF) {
			log.Printf("Input finished after %d frames", c.framesSent.Load())
			return nil
		}
		if err != nil {
			return fmt.Errorf("capture failed: %w", err)
		}

		c.checkOverflow(ctx)

		if c.cfg.FrameBytes > 0 && len(frame) != c.cfg.FrameBytes {
			log.Printf("Warning: skipping %d-byte frame, expected %d", len(frame), c.cfg.FrameBytes)
			continue
		}

		// Stamp at read completion
		pkt := protocol.Packet{Timestamp: protocol.TimestampOf(c.now()), Payload: frame}
		buf = protocol.AppendEncode(buf[:0], pkt)

		if err := c.send(ctx, buf); err != nil {
			return err
		}

		count := c.framesSent.Load()
		if count <= uint64(c.cfg.LogFrames) || c.cfg.Debug {
			log.Printf("Sent frame #%d: %d bytes, timestamp=%.6f", count, len(buf), pkt.Timestamp)
		}
	}
}

// checkOverflow reports capture drops that happened since the last frame
func (c *Capturer) checkOverflow(ctx context.Context) {
	r, ok := c.in.(overflowReporter)
	if !ok {
		return
	}
	total := r.OverflowBytes()
	if total <= c.lastOverflow {
		return
	}
	delta := total - c.lastOverflow
	c.lastOverflow = total
	if c.metrics != nil {
		c.metrics.InputOverflow.Add(ctx, int64(delta))
	}
	if c.cfg.Debug {
		log.Printf("Input overflow: dropped %d captured bytes", delta)
	}
}

func (c *Capturer) send(ctx context.Context, datagram []byte) error {
	n, err := c.conn.WriteTo(datagram, c.cfg.Destination)
	if err != nil {
		c.sendErrors.Add(1)
		if c.metrics != nil {
			c.metrics.SendErrors.Add(ctx, 1)
		}
		return fmt.Errorf("send to %s failed: %w", c.cfg.Destination, err)
	}

	c.framesSent.Add(1)
	c.bytesSent.Add(uint64(n))
	c.lastSend.Store(c.now().UnixNano())
	if c.metrics != nil {
		c.metrics.FramesSent.Add(ctx, 1)
		c.metrics.BytesSent.Add(ctx, int64(n))
	}
	return nil
}

// Stats returns the sender counters
func (c *Capturer) Stats() Stats {
	s := Stats{
		FramesSent: c.framesSent.Load(),
		BytesSent:  c.bytesSent.Load(),
		SendErrors: c.sendErrors.Load(),
	}
	if r, ok := c.in.(overflowReporter); ok {
		s.InputOverflow = r.OverflowBytes()
	}
	if ns := c.lastSend.Load(); ns != 0 {
		s.LastSend = time.Unix(0, ns)
	}
	return s
}
