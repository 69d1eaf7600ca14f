// ABOUTME: Tests for the UDP listener
// ABOUTME: Sends real datagrams over loopback and checks queueing and drop handling
package playout

import (
	"bytes"
	"context"
	"net"
	"testing"
	"time"

	"github.com/Resonate-Protocol/airwave-go/pkg/protocol"
)

const testFrameBytes = 2048

type listenerHarness struct {
	queue  *Queue
	stats  *Stats
	sender net.PacketConn
	dest   net.Addr
	cancel context.CancelFunc
	done   chan error
}

func startListener(t *testing.T) *listenerHarness {
	t.Helper()

	conn, err := net.ListenPacket("udp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen failed: %v", err)
	}
	sender, err := net.ListenPacket("udp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("sender socket failed: %v", err)
	}

	h := &listenerHarness{
		queue:  NewQueue(0, ""),
		stats:  &Stats{},
		sender: sender,
		dest:   conn.LocalAddr(),
		done:   make(chan error, 1),
	}

	l := NewListener(conn, h.queue, ListenerConfig{FrameBytes: testFrameBytes}, WithStats(h.stats))

	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	go func() { h.done <- l.Run(ctx) }()

	t.Cleanup(func() {
		cancel()
		<-h.done
		conn.Close()
		sender.Close()
	})
	return h
}

func (h *listenerHarness) send(t *testing.T, data []byte) {
	t.Helper()
	if _, err := h.sender.WriteTo(data, h.dest); err != nil {
		t.Fatalf("send failed: %v", err)
	}
}

// waitFor polls cond until it holds or a deadline passes
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func frame(b byte) []byte {
	return bytes.Repeat([]byte{b}, testFrameBytes)
}

func TestListenerQueuesValidPacket(t *testing.T) {
	h := startListener(t)

	h.send(t, protocol.Encode(protocol.Packet{Timestamp: protocol.TimestampOf(time.Now()), Payload: frame(0x01)}))
	waitFor(t, "queued packet", func() bool { return h.queue.Len() == 1 })

	p, _ := h.queue.TryPop()
	if !bytes.Equal(p, frame(0x01)) {
		t.Error("queued payload differs from sent frame")
	}
	if snap := h.stats.Snapshot(0); snap.Received != 1 {
		t.Errorf("expected 1 received, got %d", snap.Received)
	}
}

func TestListenerDropsMalformed(t *testing.T) {
	h := startListener(t)

	h.send(t, []byte("not-a-number||somebytes"))
	h.send(t, []byte("no separator at all"))
	waitFor(t, "malformed count", func() bool { return h.stats.Snapshot(0).Malformed == 2 })

	if h.queue.Len() != 0 {
		t.Errorf("malformed packets must not be queued, len=%d", h.queue.Len())
	}

	// The listener keeps going after bad input
	h.send(t, protocol.Encode(protocol.Packet{Timestamp: 1, Payload: frame(0x02)}))
	waitFor(t, "packet after malformed", func() bool { return h.queue.Len() == 1 })
}

func TestListenerDropsWrongSize(t *testing.T) {
	h := startListener(t)

	h.send(t, protocol.Encode(protocol.Packet{Timestamp: 1, Payload: make([]byte, 100)}))
	waitFor(t, "wrong size count", func() bool { return h.stats.Snapshot(0).WrongSize == 1 })

	if h.queue.Len() != 0 {
		t.Errorf("short frame must not be queued, len=%d", h.queue.Len())
	}
}

func TestListenerSurvivesOversizedDatagram(t *testing.T) {
	h := startListener(t)

	// 5000 bytes exceeds the 4096-byte receive buffer
	h.send(t, protocol.Encode(protocol.Packet{Timestamp: 1, Payload: make([]byte, 5000-len("1||"))}))
	h.send(t, protocol.Encode(protocol.Packet{Timestamp: 2, Payload: frame(0x03)}))

	waitFor(t, "valid packet after oversized", func() bool { return h.queue.Len() == 1 })
	p, _ := h.queue.TryPop()
	if !bytes.Equal(p, frame(0x03)) {
		t.Error("oversized datagram leaked into the queue")
	}

	select {
	case err := <-h.done:
		t.Fatalf("listener stopped: %v", err)
	default:
	}
}

func TestListenerCountsReordering(t *testing.T) {
	h := startListener(t)

	h.send(t, protocol.Encode(protocol.Packet{Timestamp: 10, Payload: frame(1)}))
	waitFor(t, "first", func() bool { return h.queue.Len() == 1 })
	h.send(t, protocol.Encode(protocol.Packet{Timestamp: 9, Payload: frame(2)}))
	waitFor(t, "second", func() bool { return h.queue.Len() == 2 })
	h.send(t, protocol.Encode(protocol.Packet{Timestamp: 11, Payload: frame(3)}))
	waitFor(t, "third", func() bool { return h.queue.Len() == 3 })

	if got := h.stats.Snapshot(0).Reordered; got != 1 {
		t.Errorf("expected 1 reordered packet, got %d", got)
	}

	// Arrival order is kept
	for _, want := range []byte{1, 2, 3} {
		p, _ := h.queue.TryPop()
		if p[0] != want {
			t.Errorf("expected frame %d, got %d", want, p[0])
		}
	}
}

func TestListenerStopsOnCancel(t *testing.T) {
	h := startListener(t)
	h.cancel()

	select {
	case err := <-h.done:
		if err != nil {
			t.Errorf("expected clean stop, got %v", err)
		}
		h.done <- err
	case <-time.After(2 * time.Second):
		t.Fatal("listener did not stop after cancel")
	}
}

func TestDropReason(t *testing.T) {
	_, err := protocol.Decode([]byte("x||y"))
	if got := dropReason(err); got != "bad_timestamp" {
		t.Errorf("expected bad_timestamp, got %s", got)
	}
	_, err = protocol.Decode([]byte("xy"))
	if got := dropReason(err); got != "missing_separator" {
		t.Errorf("expected missing_separator, got %s", got)
	}
}
