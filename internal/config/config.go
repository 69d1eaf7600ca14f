// ABOUTME: Runtime configuration for the sender and receiver
// ABOUTME: Defaults, YAML file, AIRWAVE_ environment overrides and validation
package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"

	"github.com/Resonate-Protocol/airwave-go/internal/playout"
	"github.com/Resonate-Protocol/airwave-go/pkg/audio"
	"github.com/Resonate-Protocol/airwave-go/pkg/audio/input"
	"github.com/Resonate-Protocol/airwave-go/pkg/audio/output"
	"github.com/Resonate-Protocol/airwave-go/pkg/protocol"
	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every environment variable name
const EnvPrefix = "AIRWAVE_"

// Config holds settings shared by both binaries plus per-role sections
type Config struct {
	Port         int    `yaml:"port" env:"PORT, overwrite"`
	SampleFormat string `yaml:"sample_format" env:"SAMPLE_FORMAT, overwrite"`
	SampleRate   int    `yaml:"sample_rate" env:"SAMPLE_RATE, overwrite"`
	Channels     int    `yaml:"channels" env:"CHANNELS, overwrite"`
	FrameSize    int    `yaml:"frame_size" env:"FRAME_SIZE, overwrite"`
	MaxDatagram  int    `yaml:"max_datagram" env:"MAX_DATAGRAM, overwrite"`

	// Group is an optional IPv4 multicast group
	Group string `yaml:"group" env:"GROUP, overwrite"`
	// Interface selects the network interface for broadcast/multicast
	Interface string `yaml:"interface" env:"INTERFACE, overwrite"`

	Name        string `yaml:"name" env:"NAME, overwrite"`
	Discovery   bool   `yaml:"discovery" env:"DISCOVERY, overwrite"`
	MonitorAddr string `yaml:"monitor_addr" env:"MONITOR_ADDR, overwrite"`
	LogFile     string `yaml:"log_file" env:"LOG_FILE, overwrite"`
	NoTUI       bool   `yaml:"no_tui" env:"NO_TUI, overwrite"`
	Debug       bool   `yaml:"debug" env:"DEBUG, overwrite"`

	Sender   SenderConfig   `yaml:"sender" env:", prefix=SENDER_"`
	Receiver ReceiverConfig `yaml:"receiver" env:", prefix=RECEIVER_"`
}

// SenderConfig holds capture and transmit settings
type SenderConfig struct {
	// Destination overrides the broadcast address
	Destination string `yaml:"destination" env:"DESTINATION, overwrite"`
	Input       string `yaml:"input" env:"INPUT, overwrite"`
	File        string `yaml:"file" env:"FILE, overwrite"`
	TTL         int    `yaml:"ttl" env:"TTL, overwrite"`
	Loopback    bool   `yaml:"loopback" env:"LOOPBACK, overwrite"`
}

// ReceiverConfig holds listen and playout settings
type ReceiverConfig struct {
	Listen        string        `yaml:"listen" env:"LISTEN, overwrite"`
	Output        string        `yaml:"output" env:"OUTPUT, overwrite"`
	StartupBuffer time.Duration `yaml:"startup_buffer" env:"STARTUP_BUFFER, overwrite"`
	QueueLimit    int           `yaml:"queue_limit" env:"QUEUE_LIMIT, overwrite"`
	DropPolicy    string        `yaml:"drop_policy" env:"DROP_POLICY, overwrite"`
	Volume        int           `yaml:"volume" env:"VOLUME, overwrite"`
	ReadBuffer    int           `yaml:"read_buffer" env:"READ_BUFFER, overwrite"`
}

// Default returns the reference settings
func Default() *Config {
	format := audio.DefaultFormat()
	return &Config{
		Port:         protocol.DefaultPort,
		SampleFormat: string(format.SampleFormat),
		SampleRate:   format.SampleRate,
		Channels:     format.Channels,
		FrameSize:    format.FrameSize,
		MaxDatagram:  protocol.MaxDatagramSize,
		Sender: SenderConfig{
			Input: "malgo",
		},
		Receiver: ReceiverConfig{
			Output:        "oto",
			StartupBuffer: playout.DefaultStartupBuffer,
			DropPolicy:    string(playout.DropOldest),
			Volume:        100,
		},
	}
}

// Format returns the stream format described by the config
func (c *Config) Format() audio.Format {
	return audio.Format{
		SampleFormat: audio.SampleFormat(c.SampleFormat),
		Channels:     c.Channels,
		SampleRate:   c.SampleRate,
		FrameSize:    c.FrameSize,
	}
}

// Load starts from Default, applies the YAML file at path (if any) and then
// environment overrides read through lookuper. A nil lookuper reads the
// process environment.
func Load(ctx context.Context, path string, lookuper envconfig.Lookuper) (*Config, error) {
	cfg := Default()

	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("config: open %q: %w", path, err)
		}
		defer f.Close()

		if err := decodeYAML(f, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %q: %w", path, err)
		}
	}

	if lookuper == nil {
		lookuper = envconfig.OsLookuper()
	}
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   cfg,
		Lookuper: envconfig.PrefixLookuper(EnvPrefix, lookuper),
	}); err != nil {
		return nil, fmt.Errorf("config: environment: %w", err)
	}

	return cfg, nil
}

// decodeYAML overlays r onto cfg, rejecting unknown keys
func decodeYAML(r io.Reader, cfg *Config) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode yaml: %w", err)
	}
	return nil
}

// LoadEnvFile loads KEY=VALUE pairs from path into the process environment
// without overriding variables that are already set. A missing file is not
// an error.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config: load %q: %w", path, err)
	}
	return nil
}

// Validate checks settings common to both roles
func (c *Config) Validate() error {
	var errs []error

	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d is out of range [1, 65535]", c.Port))
	}

	format := c.Format()
	if err := format.Validate(); err != nil {
		errs = append(errs, err)
	} else if need := protocol.MaxHeaderSize + format.FrameBytes(); c.MaxDatagram < need {
		errs = append(errs, fmt.Errorf("max_datagram %d cannot hold a %d-byte frame plus header (need %d)",
			c.MaxDatagram, format.FrameBytes(), need))
	}
	if c.MaxDatagram > 65507 {
		errs = append(errs, fmt.Errorf("max_datagram %d exceeds the UDP limit of 65507", c.MaxDatagram))
	}

	return errors.Join(errs...)
}

// ValidateSender checks common and sender settings
func (c *Config) ValidateSender() error {
	errs := []error{c.Validate()}
	s := c.Sender

	if !contains(input.Kinds, s.Input) {
		errs = append(errs, fmt.Errorf("sender.input %q is invalid; valid values: %v", s.Input, input.Kinds))
	}
	if s.Input == "file" && s.File == "" {
		errs = append(errs, errors.New("sender.file is required when sender.input is file"))
	}
	if s.TTL < 0 || s.TTL > 255 {
		errs = append(errs, fmt.Errorf("sender.ttl %d is out of range [0, 255]", s.TTL))
	}

	return errors.Join(errs...)
}

// ValidateReceiver checks common and receiver settings
func (c *Config) ValidateReceiver() error {
	errs := []error{c.Validate()}
	r := c.Receiver

	if !contains(output.Backends, r.Output) {
		errs = append(errs, fmt.Errorf("receiver.output %q is invalid; valid values: %v", r.Output, output.Backends))
	}
	if r.StartupBuffer < 0 {
		errs = append(errs, fmt.Errorf("receiver.startup_buffer %v must not be negative", r.StartupBuffer))
	}
	if r.QueueLimit < 0 {
		errs = append(errs, fmt.Errorf("receiver.queue_limit %d must not be negative", r.QueueLimit))
	}
	if _, err := playout.ParseDropPolicy(r.DropPolicy); err != nil {
		errs = append(errs, fmt.Errorf("receiver.drop_policy: %w", err))
	}
	if r.Volume < 0 || r.Volume > 100 {
		errs = append(errs, fmt.Errorf("receiver.volume %d is out of range [0, 100]", r.Volume))
	}

	return errors.Join(errs...)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
