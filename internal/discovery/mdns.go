// ABOUTME: mDNS advertisement and browsing for airwave streams
// ABOUTME: Senders publish their stream format; receivers compare it with their own
package discovery

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/Resonate-Protocol/airwave-go/pkg/audio"
	"github.com/hashicorp/mdns"
)

// ServiceType is the DNS-SD service type for airwave senders
const ServiceType = "_airwave._udp"

// browseTimeout is how long each query round listens for responses
const browseTimeout = 3 * time.Second

// ErrFormatMismatch means a sender's advertised format differs from ours
var ErrFormatMismatch = errors.New("stream format mismatch")

// Config holds discovery configuration
type Config struct {
	ServiceName string
	Port        int
	StreamID    string
	Format      audio.Format
	// Destination is the address the sender streams to
	Destination string
}

// Announcement describes a discovered sender
type Announcement struct {
	Name        string
	Host        string
	Port        int
	StreamID    string
	Format      audio.Format
	Destination string
}

// Manager handles mDNS operations
type Manager struct {
	config        Config
	ctx           context.Context
	cancel        context.CancelFunc
	announcements chan Announcement
}

// NewManager creates a discovery manager
func NewManager(config Config) *Manager {
	ctx, cancel := context.WithCancel(context.Background())

	return &Manager{
		config:        config,
		ctx:           ctx,
		cancel:        cancel,
		announcements: make(chan Announcement, 10),
	}
}

// Advertise publishes this sender until Stop is called
func (m *Manager) Advertise() error {
	ips, err := getLocalIPs()
	if err != nil {
		return fmt.Errorf("failed to get local IPs: %w", err)
	}

	service, err := mdns.NewMDNSService(
		m.config.ServiceName,
		ServiceType,
		"",
		"",
		m.config.Port,
		ips,
		FormatTXT(m.config.StreamID, m.config.Format, m.config.Destination),
	)
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}

	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return fmt.Errorf("failed to create mdns server: %w", err)
	}

	log.Printf("Advertising mDNS service: %s on port %d (type: %s, stream: %s)",
		m.config.ServiceName, m.config.Port, ServiceType, m.config.StreamID)

	go func() {
		<-m.ctx.Done()
		server.Shutdown()
	}()

	return nil
}

// Browse starts looking for senders in the background
func (m *Manager) Browse() {
	go m.browseLoop()
}

// browseLoop repeats queries until stopped, reporting each stream once
func (m *Manager) browseLoop() {
	seen := make(map[string]bool)

	for m.ctx.Err() == nil {
		entries := make(chan *mdns.ServiceEntry, 10)
		done := make(chan struct{})

		go func() {
			defer close(done)
			for entry := range entries {
				a, err := announcementFromEntry(entry)
				if err != nil {
					log.Printf("Ignoring mDNS entry %s: %v", entry.Name, err)
					continue
				}
				key := a.StreamID + "@" + a.Host
				if seen[key] {
					continue
				}
				seen[key] = true

				log.Printf("Discovered sender: %s at %s:%d (%s)", a.Name, a.Host, a.Port, a.Format)

				select {
				case m.announcements <- a:
				case <-m.ctx.Done():
				}
			}
		}()

		params := &mdns.QueryParam{
			Service: ServiceType,
			Domain:  "local",
			Timeout: browseTimeout,
			Entries: entries,
		}

		if err := mdns.QueryContext(m.ctx, params); err != nil && m.ctx.Err() == nil {
			log.Printf("mDNS query failed: %v", err)
			select {
			case <-time.After(browseTimeout):
			case <-m.ctx.Done():
			}
		}
		close(entries)
		<-done
	}
}

func announcementFromEntry(entry *mdns.ServiceEntry) (Announcement, error) {
	a, err := ParseTXT(entry.InfoFields)
	if err != nil {
		return Announcement{}, err
	}
	a.Name = strings.TrimSuffix(entry.Name, "."+ServiceType+".local.")
	a.Port = entry.Port
	if entry.AddrV4 != nil {
		a.Host = entry.AddrV4.String()
	} else if entry.AddrV6 != nil {
		a.Host = entry.AddrV6.String()
	}
	return a, nil
}

// Announcements returns the channel of discovered senders
func (m *Manager) Announcements() <-chan Announcement {
	return m.announcements
}

// Stop stops advertising and browsing
func (m *Manager) Stop() {
	m.cancel()
}

// FormatTXT builds the TXT record describing a stream
func FormatTXT(streamID string, f audio.Format, dest string) []string {
	txt := []string{
		"id=" + streamID,
		"format=" + string(f.SampleFormat),
		"rate=" + strconv.Itoa(f.SampleRate),
		"channels=" + strconv.Itoa(f.Channels),
		"frame=" + strconv.Itoa(f.FrameSize),
	}
	if dest != "" {
		txt = append(txt, "dest="+dest)
	}
	return txt
}

// ParseTXT reads a TXT record built by FormatTXT. Unknown keys are ignored.
func ParseTXT(txt []string) (Announcement, error) {
	var a Announcement
	var errs []error

	atoi := func(key, value string) int {
		n, err := strconv.Atoi(value)
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid %s %q", key, value))
		}
		return n
	}

	for _, field := range txt {
		key, value, ok := strings.Cut(field, "=")
		if !ok {
			continue
		}
		switch key {
		case "id":
			a.StreamID = value
		case "format":
			a.Format.SampleFormat = audio.SampleFormat(value)
		case "rate":
			a.Format.SampleRate = atoi(key, value)
		case "channels":
			a.Format.Channels = atoi(key, value)
		case "frame":
			a.Format.FrameSize = atoi(key, value)
		case "dest":
			a.Destination = value
		}
	}

	if a.StreamID == "" {
		errs = append(errs, errors.New("missing stream id"))
	}
	if len(errs) == 0 {
		if err := a.Format.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	return a, errors.Join(errs...)
}

// CheckFormat reports whether an announced stream is playable with local
func CheckFormat(local audio.Format, a Announcement) error {
	if a.Format != local {
		return fmt.Errorf("%w: sender %s streams %s, receiver expects %s", ErrFormatMismatch, a.Name, a.Format, local)
	}
	return nil
}

// getLocalIPs returns local IP addresses
func getLocalIPs() ([]net.IP, error) {
	var ips []net.IP

	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}

	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}

		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}

		for _, addr := range addrs {
			if ipnet, ok := addr.(*net.IPNet); ok && !ipnet.IP.IsLoopback() {
				if ipnet.IP.To4() != nil {
					ips = append(ips, ipnet.IP)
				}
			}
		}
	}

	return ips, nil
}
