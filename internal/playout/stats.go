// ABOUTME: Receiver statistics
// ABOUTME: Lock-free counters shared by the listener, the engine and monitors
package playout

import (
	"sync/atomic"
	"time"
)

// Stats counts receiver events. All methods are safe for concurrent use.
type Stats struct {
	received    atomic.Uint64
	malformed   atomic.Uint64
	wrongSize   atomic.Uint64
	reordered   atomic.Uint64
	dropped     atomic.Uint64
	played      atomic.Uint64
	underruns   atomic.Uint64
	lastLatency atomic.Int64
	jitter      atomic.Int64
	lastPacket  atomic.Int64 // unix nanoseconds
}

// Snapshot is a point-in-time copy of Stats
type Snapshot struct {
	Received    uint64        `json:"received"`
	Malformed   uint64        `json:"malformed"`
	WrongSize   uint64        `json:"wrong_size"`
	Reordered   uint64        `json:"reordered"`
	Dropped     uint64        `json:"dropped"`
	Played      uint64        `json:"played"`
	Underruns   uint64        `json:"underruns"`
	QueueDepth  int           `json:"queue_depth"`
	LastLatency time.Duration `json:"last_latency_ns"`
	Jitter      time.Duration `json:"jitter_ns"`
	LastPacket  time.Time     `json:"last_packet"`
}

// Snapshot copies the counters; queueDepth is supplied by the caller
func (s *Stats) Snapshot(queueDepth int) Snapshot {
	snap := Snapshot{
		Received:    s.received.Load(),
		Malformed:   s.malformed.Load(),
		WrongSize:   s.wrongSize.Load(),
		Reordered:   s.reordered.Load(),
		Dropped:     s.dropped.Load(),
		Played:      s.played.Load(),
		Underruns:   s.underruns.Load(),
		QueueDepth:  queueDepth,
		LastLatency: time.Duration(s.lastLatency.Load()),
		Jitter:      time.Duration(s.jitter.Load()),
	}
	if ns := s.lastPacket.Load(); ns != 0 {
		snap.LastPacket = time.Unix(0, ns)
	}
	return snap
}
