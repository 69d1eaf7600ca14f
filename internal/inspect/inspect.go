// ABOUTME: Offline analysis of captured airwave traffic
// ABOUTME: Decodes datagrams from pcap/pcapng files and reports timing, loss and reordering
package inspect

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"net"
	"sort"
	"strconv"
	"time"

	"github.com/Resonate-Protocol/airwave-go/internal/playout"
	"github.com/Resonate-Protocol/airwave-go/pkg/protocol"
	"github.com/google/gopacket"
	"github.com/google/gopacket/ip4defrag"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
)

// pcapng section header block type
var ngMagic = []byte{0x0a, 0x0d, 0x0d, 0x0a}

// Config selects which traffic is analyzed
type Config struct {
	// Port is the airwave UDP destination port
	Port int
	// FrameBytes is the expected payload size; 0 skips the check
	FrameBytes int
	// FrameDuration is the nominal spacing between timestamps
	FrameDuration time.Duration
}

// Stream holds results for one sender address
type Stream struct {
	Source     string        `json:"source"`
	Packets    uint64        `json:"packets"`
	Malformed  uint64        `json:"malformed"`
	WrongSize  uint64        `json:"wrong_size"`
	Reordered  uint64        `json:"reordered"`
	Gaps       uint64        `json:"gaps"`
	LostFrames uint64        `json:"lost_frames"`
	MinLatency time.Duration `json:"min_latency_ns"`
	MaxLatency time.Duration `json:"max_latency_ns"`
	AvgLatency time.Duration `json:"avg_latency_ns"`
	Jitter     time.Duration `json:"jitter_ns"`
	First      time.Time     `json:"first"`
	Last       time.Time     `json:"last"`

	latencySum time.Duration
	lastTS     float64
	seen       bool
	jitter     playout.Jitter
}

// Report is the result of Analyze
type Report struct {
	// Frames counts every captured link-layer frame
	Frames uint64 `json:"frames"`
	// Fragments counts IPv4 fragments held for reassembly, including those
	// whose datagram was later completed
	Fragments uint64 `json:"fragments"`
	// Incomplete counts fragmented datagrams still missing pieces at the end
	// of the capture
	Incomplete uint64    `json:"incomplete_datagrams"`
	Streams    []*Stream `json:"streams"`
}

// Analyze reads a pcap or pcapng capture from r
func Analyze(r io.Reader, cfg Config) (*Report, error) {
	if cfg.Port == 0 {
		cfg.Port = protocol.DefaultPort
	}

	src, err := openCapture(r)
	if err != nil {
		return nil, err
	}

	a := &analyzer{
		cfg:     cfg,
		defrag:  ip4defrag.NewIPv4Defragmenter(),
		streams: make(map[string]*Stream),
		report:  &Report{},
	}

	for {
		data, ci, err := src.ReadPacketData()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read capture: %w", err)
		}
		a.report.Frames++
		a.frame(gopacket.NewPacket(data, src.LinkType(), gopacket.Default), ci.Timestamp)
	}

	return a.finish(), nil
}

type packetSource interface {
	ReadPacketData() ([]byte, gopacket.CaptureInfo, error)
	LinkType() layers.LinkType
}

func openCapture(r io.Reader) (packetSource, error) {
	br := bufio.NewReader(r)
	magic, err := br.Peek(4)
	if err != nil {
		return nil, fmt.Errorf("read capture header: %w", err)
	}

	if bytes.Equal(magic, ngMagic) {
		ng, err := pcapgo.NewNgReader(br, pcapgo.DefaultNgReaderOptions)
		if err != nil {
			return nil, fmt.Errorf("open pcapng: %w", err)
		}
		return ng, nil
	}

	pr, err := pcapgo.NewReader(br)
	if err != nil {
		return nil, fmt.Errorf("open pcap: %w", err)
	}
	return pr, nil
}

type analyzer struct {
	cfg      Config
	defrag   *ip4defrag.IPv4Defragmenter
	streams  map[string]*Stream
	report   *Report
	lastSeen time.Time
}

func (a *analyzer) frame(packet gopacket.Packet, at time.Time) {
	ipLayer, ok := packet.Layer(layers.LayerTypeIPv4).(*layers.IPv4)
	if !ok {
		return
	}
	if at.After(a.lastSeen) {
		a.lastSeen = at
	}

	// Frames larger than the MTU arrive as IPv4 fragments; a reassembled
	// datagram comes back as a new layer
	ip, err := a.defrag.DefragIPv4WithTimestamp(ipLayer, at)
	if err != nil || ip == nil {
		if err == nil {
			a.report.Fragments++
		}
		return
	}

	var udp *layers.UDP
	if ip != ipLayer {
		reassembled := gopacket.NewPacket(ip.Payload, ip.NextLayerType(), gopacket.Default)
		udp, _ = reassembled.Layer(layers.LayerTypeUDP).(*layers.UDP)
	} else {
		udp, _ = packet.Layer(layers.LayerTypeUDP).(*layers.UDP)
	}
	if udp == nil || int(udp.DstPort) != a.cfg.Port {
		return
	}

	source := net.JoinHostPort(ip.SrcIP.String(), strconv.Itoa(int(udp.SrcPort)))
	a.datagram(source, udp.Payload, at)
}

func (a *analyzer) datagram(source string, data []byte, at time.Time) {
	s := a.streams[source]
	if s == nil {
		s = &Stream{Source: source}
		a.streams[source] = s
	}

	pkt, err := protocol.Decode(data)
	if err != nil {
		s.Malformed++
		return
	}
	if a.cfg.FrameBytes > 0 && protocol.ValidateFrame(pkt, a.cfg.FrameBytes) != nil {
		s.WrongSize++
		return
	}

	s.Packets++
	if s.First.IsZero() {
		s.First = at
	}
	s.Last = at

	latency := pkt.Latency(at)
	s.latencySum += latency
	if s.Packets == 1 || latency < s.MinLatency {
		s.MinLatency = latency
	}
	if s.Packets == 1 || latency > s.MaxLatency {
		s.MaxLatency = latency
	}
	s.Jitter = s.jitter.Update(pkt.Timestamp, protocol.TimestampOf(at))

	switch {
	case !s.seen:
		s.lastTS = pkt.Timestamp
		s.seen = true
	case pkt.Timestamp < s.lastTS:
		s.Reordered++
	default:
		a.checkGap(s, pkt.Timestamp-s.lastTS)
		s.lastTS = pkt.Timestamp
	}
}

// checkGap counts a gap when consecutive timestamps are more than 1.5 frames apart
func (a *analyzer) checkGap(s *Stream, delta float64) {
	frame := a.cfg.FrameDuration.Seconds()
	if frame <= 0 || delta <= 1.5*frame {
		return
	}
	s.Gaps++
	if missing := math.Round(delta/frame) - 1; missing > 0 {
		s.LostFrames += uint64(missing)
	}
}

func (a *analyzer) finish() *Report {
	// Whatever the defragmenter still holds never completed
	a.report.Incomplete = uint64(a.defrag.DiscardOlderThan(a.lastSeen.Add(time.Nanosecond)))

	for _, s := range a.streams {
		if s.Packets > 0 {
			s.AvgLatency = s.latencySum / time.Duration(s.Packets)
		}
		a.report.Streams = append(a.report.Streams, s)
	}
	sort.Slice(a.report.Streams, func(i, j int) bool {
		return a.report.Streams[i].Source < a.report.Streams[j].Source
	})
	return a.report
}
