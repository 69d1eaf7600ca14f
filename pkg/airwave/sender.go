// ABOUTME: High-level Sender API for airwave streams
// ABOUTME: Opens the capture input and the broadcast socket and streams frames
package airwave

import (
	"context"
	"fmt"
	"log"
	"net"
	"sync/atomic"
	"time"

	"github.com/Resonate-Protocol/airwave-go/internal/capture"
	"github.com/Resonate-Protocol/airwave-go/internal/observe"
	"github.com/Resonate-Protocol/airwave-go/internal/transport"
	"github.com/Resonate-Protocol/airwave-go/pkg/audio"
	"github.com/Resonate-Protocol/airwave-go/pkg/audio/input"
	"github.com/Resonate-Protocol/airwave-go/pkg/protocol"
	"golang.org/x/sync/errgroup"
)

// SenderConfig holds sender configuration
type SenderConfig struct {
	// Format is captured and sent unchanged
	Format audio.Format

	// Destination is the target host. Empty means Group if set, then the
	// Interface broadcast address, then 255.255.255.255.
	Destination string

	// Port is the destination UDP port (default: 5005)
	Port int

	// Group is an IPv4 multicast group to send to
	Group string

	// Interface selects the outgoing interface
	Interface string

	// TTL and Loopback apply to multicast destinations
	TTL      int
	Loopback bool

	// Input is the audio source. When nil one is created from InputKind and File.
	Input     input.Input
	InputKind string
	File      string

	// Conn is an already opened socket
	Conn net.PacketConn

	// Metrics records OpenTelemetry instruments when set
	Metrics *observe.Metrics

	// StatsInterval logs a stats line periodically when positive
	StatsInterval time.Duration

	// LogFrames is how many initial frames are logged (default: 5)
	LogFrames int
	Debug     bool
}

// Sender streams captured audio to the LAN
type Sender struct {
	config      SenderConfig
	format      audio.Format
	input       input.Input
	destination *net.UDPAddr
	capturer    atomic.Pointer[capture.Capturer]
	started     atomic.Bool
}

// NewSender creates a sender and resolves its destination. Nothing is
// opened until Run.
func NewSender(config SenderConfig) (*Sender, error) {
	if config.Format == (audio.Format{}) {
		config.Format = audio.DefaultFormat()
	}
	if err := config.Format.Validate(); err != nil {
		return nil, fmt.Errorf("invalid format: %w", err)
	}
	if config.Port == 0 {
		config.Port = protocol.DefaultPort
	}
	if config.LogFrames == 0 {
		config.LogFrames = 5
	}

	host := config.Destination
	if host == "" {
		host = config.Group
	}
	dest, err := transport.ResolveDestination(host, config.Port, config.Interface)
	if err != nil {
		return nil, err
	}

	in := config.Input
	if in == nil {
		in, err = input.New(config.InputKind, config.File)
		if err != nil {
			return nil, err
		}
	}

	return &Sender{
		config:      config,
		format:      config.Format,
		input:       in,
		destination: dest,
	}, nil
}

// Destination returns the resolved destination address
func (s *Sender) Destination() *net.UDPAddr {
	return s.destination
}

// Format returns the stream format
func (s *Sender) Format() audio.Format {
	return s.format
}

// Run opens the input and socket and streams until ctx is cancelled or the
// input ends. Capture and send failures end Run with an error.
func (s *Sender) Run(ctx context.Context) error {
	if !s.started.CompareAndSwap(false, true) {
		return ErrAlreadyRun
	}

	conn := s.config.Conn
	if conn == nil {
		var err error
		conn, err = transport.OpenSender(ctx, s.destination, transport.SendConfig{
			Interface: s.config.Interface,
			TTL:       s.config.TTL,
			Loopback:  s.config.Loopback,
		})
		if err != nil {
			return err
		}
	}
	defer conn.Close()

	if err := s.input.Open(s.format); err != nil {
		return fmt.Errorf("failed to initialize input: %w", err)
	}
	defer s.input.Close()

	log.Printf("Local IP: %s", transport.LocalIP())
	log.Printf("Streaming %s to %s", s.format, s.destination)

	opts := []capture.Option{}
	if s.config.Metrics != nil {
		opts = append(opts, capture.WithMetrics(s.config.Metrics))
	}
	c := capture.New(s.input, conn, capture.Config{
		Destination: s.destination,
		FrameBytes:  s.format.FrameBytes(),
		LogFrames:   s.config.LogFrames,
		Debug:       s.config.Debug,
	}, opts...)
	s.capturer.Store(c)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		// Input exhaustion ends the stats loop too
		defer cancel()
		return c.Run(gctx)
	})
	if s.config.StatsInterval > 0 {
		g.Go(func() error {
			s.logStats(gctx)
			return nil
		})
	}

	err := g.Wait()

	stats := s.Stats()
	log.Printf("Sender stopped: frames=%d bytes=%d errors=%d overflow=%d", stats.FramesSent, stats.BytesSent, stats.SendErrors, stats.InputOverflow)
	return err
}

func (s *Sender) logStats(ctx context.Context) {
	ticker := time.NewTicker(s.config.StatsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats := s.Stats()
			log.Printf("Stats: frames=%d bytes=%d errors=%d overflow=%d", stats.FramesSent, stats.BytesSent, stats.SendErrors, stats.InputOverflow)
		}
	}
}

// Stats returns the sender counters; zero before Run
func (s *Sender) Stats() capture.Stats {
	if c := s.capturer.Load(); c != nil {
		return c.Stats()
	}
	return capture.Stats{}
}

// LastSend returns when the last datagram was sent
func (s *Sender) LastSend() time.Time {
	return s.Stats().LastSend
}
