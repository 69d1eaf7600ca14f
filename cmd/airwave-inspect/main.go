// ABOUTME: Entry point for the airwave capture inspector
// ABOUTME: Reports latency, jitter, loss gaps and reordering from pcap files
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/Resonate-Protocol/airwave-go/internal/inspect"
	"github.com/Resonate-Protocol/airwave-go/pkg/audio"
	"github.com/Resonate-Protocol/airwave-go/pkg/protocol"
)

var (
	port     = flag.Int("port", protocol.DefaultPort, "Airwave UDP port")
	rate     = flag.Int("rate", 44100, "Sample rate in Hz")
	channels = flag.Int("channels", 1, "Channel count")
	frame    = flag.Int("frame", 1024, "Samples per channel per datagram")
	asJSON   = flag.Bool("json", false, "Print the report as JSON")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] capture.pcap [more.pcapng ...]\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	format := audio.Format{
		SampleFormat: audio.FormatS16LE,
		Channels:     *channels,
		SampleRate:   *rate,
		FrameSize:    *frame,
	}
	if err := format.Validate(); err != nil {
		log.Fatalf("Invalid format: %v", err)
	}

	cfg := inspect.Config{
		Port:          *port,
		FrameBytes:    format.FrameBytes(),
		FrameDuration: format.FrameDuration(),
	}

	failed := false
	for _, path := range flag.Args() {
		if err := inspectFile(path, cfg); err != nil {
			log.Printf("%s: %v", path, err)
			failed = true
		}
	}
	if failed {
		os.Exit(1)
	}
}

func inspectFile(path string, cfg inspect.Config) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	report, err := inspect.Analyze(f, cfg)
	if err != nil {
		return err
	}

	if *asJSON {
		return report.WriteJSON(os.Stdout)
	}
	fmt.Printf("== %s\n", path)
	return report.WriteText(os.Stdout)
}
