// ABOUTME: Command-line flag binding
// ABOUTME: Flags default to the loaded config so they take precedence over file and environment
package config

import (
	"flag"
	"strings"
)

// BindCommon registers flags shared by both binaries onto cfg
func BindCommon(fs *flag.FlagSet, cfg *Config) {
	fs.String("config", "", "Path to YAML config file")
	fs.String("env-file", ".env", "Path to .env file with AIRWAVE_ variables")
	fs.IntVar(&cfg.Port, "port", cfg.Port, "UDP port")
	fs.IntVar(&cfg.SampleRate, "rate", cfg.SampleRate, "Sample rate in Hz")
	fs.IntVar(&cfg.Channels, "channels", cfg.Channels, "Channel count (1 or 2)")
	fs.IntVar(&cfg.FrameSize, "frame", cfg.FrameSize, "Samples per channel per datagram")
	fs.IntVar(&cfg.MaxDatagram, "max-datagram", cfg.MaxDatagram, "Receive buffer size in bytes")
	fs.StringVar(&cfg.Group, "group", cfg.Group, "IPv4 multicast group (default: broadcast)")
	fs.StringVar(&cfg.Interface, "iface", cfg.Interface, "Network interface for broadcast or multicast")
	fs.StringVar(&cfg.Name, "name", cfg.Name, "Friendly name for mDNS (default: hostname)")
	fs.BoolVar(&cfg.Discovery, "mdns", cfg.Discovery, "Enable mDNS advertisement/browsing")
	fs.StringVar(&cfg.MonitorAddr, "monitor", cfg.MonitorAddr, "HTTP address for /metrics, /healthz and /ws/stats (empty disables)")
	fs.StringVar(&cfg.LogFile, "log-file", cfg.LogFile, "Log file path")
	fs.BoolVar(&cfg.NoTUI, "no-tui", cfg.NoTUI, "Disable TUI, use streaming logs instead")
	fs.BoolVar(&cfg.Debug, "debug", cfg.Debug, "Log every packet")
}

// BindSender registers sender flags onto cfg
func BindSender(fs *flag.FlagSet, cfg *Config) {
	BindCommon(fs, cfg)
	fs.StringVar(&cfg.Sender.Destination, "dest", cfg.Sender.Destination, "Destination host (default: 255.255.255.255 or the -iface broadcast)")
	fs.StringVar(&cfg.Sender.Input, "input", cfg.Sender.Input, "Input: malgo, portaudio, tone or file")
	fs.StringVar(&cfg.Sender.File, "file", cfg.Sender.File, "Audio file for -input file (mp3, flac, pcm)")
	fs.IntVar(&cfg.Sender.TTL, "ttl", cfg.Sender.TTL, "Multicast TTL")
	fs.BoolVar(&cfg.Sender.Loopback, "loopback", cfg.Sender.Loopback, "Deliver multicast to this host too")
}

// BindReceiver registers receiver flags onto cfg
func BindReceiver(fs *flag.FlagSet, cfg *Config) {
	BindCommon(fs, cfg)
	fs.StringVar(&cfg.Receiver.Listen, "listen", cfg.Receiver.Listen, "Bind address (default: all interfaces)")
	fs.StringVar(&cfg.Receiver.Output, "output", cfg.Receiver.Output, "Output: oto, malgo, portaudio or null")
	fs.DurationVar(&cfg.Receiver.StartupBuffer, "buffer", cfg.Receiver.StartupBuffer, "Startup buffering delay")
	fs.IntVar(&cfg.Receiver.QueueLimit, "queue-limit", cfg.Receiver.QueueLimit, "Maximum queued frames (0 = unbounded)")
	fs.StringVar(&cfg.Receiver.DropPolicy, "drop-policy", cfg.Receiver.DropPolicy, "drop-oldest or drop-newest when the queue is full")
	fs.IntVar(&cfg.Receiver.Volume, "volume", cfg.Receiver.Volume, "Initial volume 0-100")
	fs.IntVar(&cfg.Receiver.ReadBuffer, "read-buffer", cfg.Receiver.ReadBuffer, "Socket receive buffer in bytes (0 = system default)")
}

// ArgValue finds the value of a string flag in args before flags are
// parsed, so the config file and .env can be loaded first
func ArgValue(args []string, name string) (string, bool) {
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			break
		}
		if !strings.HasPrefix(arg, "-") {
			continue
		}
		key := strings.TrimLeft(arg, "-")
		if k, v, ok := strings.Cut(key, "="); ok {
			if k == name {
				return v, true
			}
			continue
		}
		if key == name && i+1 < len(args) {
			return args[i+1], true
		}
	}
	return "", false
}

// PathFromArgs returns the -config value from args, if any
func PathFromArgs(args []string) string {
	v, _ := ArgValue(args, "config")
	return v
}
