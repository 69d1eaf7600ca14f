// ABOUTME: UDP listener feeding the playout queue
// ABOUTME: Decodes datagrams, drops malformed ones, tracks latency, jitter and reordering
package playout

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"time"

	"github.com/Resonate-Protocol/airwave-go/internal/transport"
	"github.com/Resonate-Protocol/airwave-go/pkg/protocol"
)

// ListenerConfig configures a Listener
type ListenerConfig struct {
	// FrameBytes is the exact payload length accepted
	FrameBytes int
	// MaxDatagram is the receive buffer size
	MaxDatagram int
	// LogPackets is how many accepted packets to log at startup
	LogPackets int
	// Debug logs every accepted packet
	Debug bool
}

// Listener receives datagrams and pushes their payloads onto a Queue.
// It never blocks on playback.
type Listener struct {
	conn   net.PacketConn
	queue  *Queue
	cfg    ListenerConfig
	opts   options
	jitter Jitter
	lastTS float64
	seen   bool
}

// NewListener creates a listener reading from conn
func NewListener(conn net.PacketConn, queue *Queue, cfg ListenerConfig, opts ...Option) *Listener {
	if cfg.MaxDatagram <= 0 {
		cfg.MaxDatagram = protocol.MaxDatagramSize
	}
	if cfg.LogPackets < 0 {
		cfg.LogPackets = 0
	}
	return &Listener{
		conn:  conn,
		queue: queue,
		cfg:   cfg,
		opts:  buildOptions(opts),
	}
}

// Stats returns the listener's counters
func (l *Listener) Stats() *Stats {
	return l.opts.stats
}

// Run receives until ctx is cancelled or the socket fails. A bad datagram
// never stops the loop; only socket errors are returned.
func (l *Listener) Run(ctx context.Context) error {
	// Unblock ReadFrom on cancellation
	stop := context.AfterFunc(ctx, func() {
		l.conn.SetReadDeadline(time.Now())
	})
	defer stop()

	log.Printf("Listening for audio on %s", l.conn.LocalAddr())

	buf := make([]byte, l.cfg.MaxDatagram)
	for {
		n, addr, err := l.conn.ReadFrom(buf)
		if n > 0 {
			l.handle(ctx, buf[:n], addr)
		}
		if err == nil {
			continue
		}

		if ctx.Err() != nil {
			return nil
		}
		if transport.IsTruncated(err) {
			continue
		}
		return fmt.Errorf("receive failed: %w", err)
	}
}

// handle processes one datagram
func (l *Listener) handle(ctx context.Context, data []byte, addr net.Addr) {
	now := l.opts.now()
	stats := l.opts.stats
	metrics := l.opts.metrics

	pkt, err := protocol.Decode(data)
	if err == nil && l.cfg.FrameBytes > 0 {
		if err = protocol.ValidateFrame(pkt, l.cfg.FrameBytes); err != nil {
			stats.wrongSize.Add(1)
		}
	}
	if err != nil {
		if !errors.Is(err, protocol.ErrFrameSize) {
			stats.malformed.Add(1)
		}
		if metrics != nil {
			metrics.RecordMalformed(ctx, dropReason(err))
		}
		log.Printf("Dropped packet from %s (%d bytes): %v", addr, len(data), err)
		return
	}

	latency := pkt.Latency(now)
	jitter := l.jitter.Update(pkt.Timestamp, protocol.TimestampOf(now))
	stats.lastLatency.Store(int64(latency))
	stats.jitter.Store(int64(jitter))
	stats.lastPacket.Store(now.UnixNano())

	if l.seen && pkt.Timestamp < l.lastTS {
		stats.reordered.Add(1)
		if metrics != nil {
			metrics.PacketsReordered.Add(ctx, 1)
		}
		if l.cfg.Debug {
			log.Printf("Out-of-order packet from %s: %.6f after %.6f", addr, pkt.Timestamp, l.lastTS)
		}
	} else {
		l.lastTS = pkt.Timestamp
	}
	l.seen = true

	// The receive buffer is reused; the queue needs its own copy
	payload := make([]byte, len(pkt.Payload))
	copy(payload, pkt.Payload)

	if l.queue.Push(payload) {
		stats.dropped.Add(1)
		if metrics != nil {
			metrics.QueueDropped.Add(ctx, 1)
		}
	}

	count := stats.received.Add(1)
	if metrics != nil {
		metrics.PacketsReceived.Add(ctx, 1)
		metrics.Latency.Record(ctx, latency.Seconds())
		metrics.Jitter.Record(ctx, jitter.Seconds())
	}

	if count <= uint64(l.cfg.LogPackets) || l.cfg.Debug {
		log.Printf("Packet #%d from %s: %d bytes, latency=%v, jitter=%v, queued=%d",
			count, addr, len(payload), latency, jitter, l.queue.Len())
	}
}

// dropReason maps decode errors to a metric attribute
func dropReason(err error) string {
	switch {
	case errors.Is(err, protocol.ErrMissingSeparator):
		return "missing_separator"
	case errors.Is(err, protocol.ErrBadTimestamp):
		return "bad_timestamp"
	case errors.Is(err, protocol.ErrFrameSize):
		return "frame_size"
	default:
		return "other"
	}
}
