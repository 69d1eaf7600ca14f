// ABOUTME: High-level Receiver API for airwave streams
// ABOUTME: Binds the socket, opens the output and runs listener and playout engine together
package airwave

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Resonate-Protocol/airwave-go/internal/observe"
	"github.com/Resonate-Protocol/airwave-go/internal/playout"
	"github.com/Resonate-Protocol/airwave-go/internal/transport"
	"github.com/Resonate-Protocol/airwave-go/pkg/audio"
	"github.com/Resonate-Protocol/airwave-go/pkg/audio/output"
	"github.com/Resonate-Protocol/airwave-go/pkg/protocol"
	"golang.org/x/sync/errgroup"
)

// ErrAlreadyRun is returned when Run is called a second time. A Receiver or
// Sender runs once; create a new one to restart.
var ErrAlreadyRun = errors.New("airwave: Run called more than once")

// ReceiverConfig holds receiver configuration
type ReceiverConfig struct {
	// Format must match the sender's
	Format audio.Format

	// Address is the local bind address (default: all interfaces)
	Address string

	// Port is the UDP port (default: 5005)
	Port int

	// Group is an optional IPv4 multicast group to join
	Group string

	// Interface selects the interface for the multicast join
	Interface string

	// ReadBuffer sets SO_RCVBUF when positive
	ReadBuffer int

	// MaxDatagram is the receive buffer size (default: 4096)
	MaxDatagram int

	// StartupBuffer is the fixed delay before playback (default: 200ms)
	StartupBuffer time.Duration

	// UnderrunTimeout defaults to one frame duration
	UnderrunTimeout time.Duration

	// QueueLimit bounds the queue in frames; 0 is unbounded
	QueueLimit int

	// DropPolicy applies when QueueLimit is reached (default: drop-oldest)
	DropPolicy playout.DropPolicy

	// Volume is the initial volume (0-100, default: 100)
	Volume int
	Muted  bool

	// Output is the playback device. When nil one is created from OutputBackend.
	Output        output.Output
	OutputBackend string

	// Conn is an already bound socket; Address, Port and Group are then ignored
	Conn net.PacketConn

	// Metrics records OpenTelemetry instruments when set
	Metrics *observe.Metrics

	// LogPackets is how many initial packets are logged (default: 5)
	LogPackets int
	Debug      bool
}

// ReceiverStats is a snapshot of receiver state
type ReceiverStats struct {
	playout.Snapshot
	Playing bool `json:"playing"`
	Volume  int  `json:"volume"`
	Muted   bool `json:"muted"`
}

// Receiver plays an airwave stream
type Receiver struct {
	config ReceiverConfig
	format audio.Format

	queue  *playout.Queue
	stats  *playout.Stats
	output output.Output
	engine *playout.Engine

	started   atomic.Bool
	mu        sync.Mutex
	localAddr net.Addr
	ready     chan struct{}
}

// NewReceiver creates a receiver. Nothing is opened until Run.
func NewReceiver(config ReceiverConfig) (*Receiver, error) {
	if config.Format == (audio.Format{}) {
		config.Format = audio.DefaultFormat()
	}
	if err := config.Format.Validate(); err != nil {
		return nil, fmt.Errorf("invalid format: %w", err)
	}
	if config.Port == 0 {
		config.Port = protocol.DefaultPort
	}
	if config.MaxDatagram == 0 {
		config.MaxDatagram = protocol.MaxDatagramSize
	}
	if need := protocol.MaxHeaderSize + config.Format.FrameBytes(); config.MaxDatagram < need {
		return nil, fmt.Errorf("max datagram %d is smaller than header plus frame (%d)", config.MaxDatagram, need)
	}
	if config.StartupBuffer == 0 {
		config.StartupBuffer = playout.DefaultStartupBuffer
	}
	if config.UnderrunTimeout == 0 {
		config.UnderrunTimeout = config.Format.FrameDuration()
	}
	policy, err := playout.ParseDropPolicy(string(config.DropPolicy))
	if err != nil {
		return nil, err
	}
	config.DropPolicy = policy
	if config.Volume == 0 && !config.Muted {
		config.Volume = 100
	}
	if config.LogPackets == 0 {
		config.LogPackets = 5
	}

	out := config.Output
	if out == nil {
		out, err = output.New(config.OutputBackend)
		if err != nil {
			return nil, err
		}
	}

	r := &Receiver{
		config: config,
		format: config.Format,
		queue:  playout.NewQueue(config.QueueLimit, config.DropPolicy),
		stats:  &playout.Stats{},
		output: out,
		ready:  make(chan struct{}),
	}

	r.engine = playout.NewEngine(r.queue, out, playout.EngineConfig{
		StartupBuffer:   config.StartupBuffer,
		UnderrunTimeout: config.UnderrunTimeout,
		Volume:          config.Volume,
		Muted:           config.Muted,
	}, r.options()...)

	return r, nil
}

func (r *Receiver) options() []playout.Option {
	opts := []playout.Option{playout.WithStats(r.stats)}
	if r.config.Metrics != nil {
		opts = append(opts, playout.WithMetrics(r.config.Metrics))
	}
	return opts
}

// Run binds the socket, opens the output and plays until ctx is cancelled.
// A socket failure or output failure ends Run with an error.
func (r *Receiver) Run(ctx context.Context) error {
	if !r.started.CompareAndSwap(false, true) {
		return ErrAlreadyRun
	}

	conn := r.config.Conn
	if conn == nil {
		var err error
		conn, err = transport.Listen(ctx, transport.ListenConfig{
			Address:    r.config.Address,
			Port:       r.config.Port,
			Group:      r.config.Group,
			Interface:  r.config.Interface,
			ReadBuffer: r.config.ReadBuffer,
		})
		if err != nil {
			return err
		}
	}
	defer conn.Close()

	r.mu.Lock()
	r.localAddr = conn.LocalAddr()
	r.mu.Unlock()
	close(r.ready)

	if err := r.output.Open(r.format); err != nil {
		return fmt.Errorf("failed to initialize output: %w", err)
	}
	defer r.output.Close()

	if m := r.config.Metrics; m != nil {
		reg, err := m.ObserveQueueDepth(r.queue.Len)
		if err != nil {
			log.Printf("Warning: queue depth metric unavailable: %v", err)
		} else {
			defer reg.Unregister()
		}
	}

	log.Printf("Receiver ready: %s, buffer %v", r.format, r.config.StartupBuffer)

	listener := playout.NewListener(conn, r.queue, playout.ListenerConfig{
		FrameBytes:  r.format.FrameBytes(),
		MaxDatagram: r.config.MaxDatagram,
		LogPackets:  r.config.LogPackets,
		Debug:       r.config.Debug,
	}, r.options()...)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return listener.Run(gctx)
	})
	g.Go(func() error {
		return r.engine.Run(gctx)
	})

	err := g.Wait()

	snap := r.Stats()
	log.Printf("Receiver stopped: received=%d played=%d malformed=%d wrong_size=%d dropped=%d underruns=%d",
		snap.Received, snap.Played, snap.Malformed, snap.WrongSize, snap.Dropped, snap.Underruns)
	return err
}

// Ready is closed once the socket is bound
func (r *Receiver) Ready() <-chan struct{} {
	return r.ready
}

// LocalAddr returns the bound address, or nil before Ready
func (r *Receiver) LocalAddr() net.Addr {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.localAddr
}

// Format returns the stream format
func (r *Receiver) Format() audio.Format {
	return r.format
}

// Stats returns a snapshot of the receiver counters
func (r *Receiver) Stats() ReceiverStats {
	return ReceiverStats{
		Snapshot: r.stats.Snapshot(r.queue.Len()),
		Playing:  r.engine.Playing(),
		Volume:   r.engine.Volume(),
		Muted:    r.engine.Muted(),
	}
}

// LastPacket returns when the last valid datagram arrived
func (r *Receiver) LastPacket() time.Time {
	return r.stats.Snapshot(0).LastPacket
}

// SetVolume sets playback volume (0-100)
func (r *Receiver) SetVolume(volume int) {
	r.engine.SetVolume(volume)
}

// SetMuted sets mute state
func (r *Receiver) SetMuted(muted bool) {
	r.engine.SetMuted(muted)
}
