// ABOUTME: Entry point for the airwave sender
// ABOUTME: Captures audio and broadcasts one timestamped datagram per frame
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Resonate-Protocol/airwave-go/internal/config"
	"github.com/Resonate-Protocol/airwave-go/internal/discovery"
	"github.com/Resonate-Protocol/airwave-go/internal/health"
	"github.com/Resonate-Protocol/airwave-go/internal/monitor"
	"github.com/Resonate-Protocol/airwave-go/internal/observe"
	"github.com/Resonate-Protocol/airwave-go/internal/transport"
	"github.com/Resonate-Protocol/airwave-go/internal/ui"
	"github.com/Resonate-Protocol/airwave-go/internal/version"
	"github.com/Resonate-Protocol/airwave-go/pkg/airwave"
	"github.com/google/uuid"
)

const staleAfter = 2 * time.Second

func main() {
	args := os.Args[1:]

	envFile, ok := config.ArgValue(args, "env-file")
	if !ok {
		envFile = ".env"
	}
	if err := config.LoadEnvFile(envFile); err != nil {
		log.Fatalf("%v", err)
	}

	cfg, err := config.Load(context.Background(), config.PathFromArgs(args), nil)
	if err != nil {
		log.Fatalf("%v", err)
	}
	if cfg.LogFile == "" {
		cfg.LogFile = "airwave-sender.log"
	}

	config.BindSender(flag.CommandLine, cfg)
	flag.Parse()

	if err := cfg.ValidateSender(); err != nil {
		log.Fatalf("Invalid configuration:\n%v", err)
	}

	useTUI := !cfg.NoTUI

	// Set up logging
	f, err := os.OpenFile(cfg.LogFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		log.Fatalf("error opening log file: %v", err)
	}
	defer f.Close()

	if useTUI {
		log.SetOutput(f)
	} else {
		log.SetOutput(io.MultiWriter(os.Stdout, f))
	}

	name := cfg.Name
	if name == "" {
		hostname, err := os.Hostname()
		if err != nil {
			hostname = "unknown"
		}
		name = fmt.Sprintf("%s-airwave-sender", hostname)
	}
	streamID := uuid.New().String()

	log.Printf("Starting %s sender: %s (stream %s)", version.String(), name, streamID)
	log.Printf("Logging to: %s", cfg.LogFile)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownMetrics, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName:    "airwave-sender",
		ServiceVersion: version.Version,
	})
	if err != nil {
		log.Fatalf("Failed to initialize metrics: %v", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := shutdownMetrics(sctx); err != nil {
			log.Printf("Metrics shutdown: %v", err)
		}
	}()

	format := cfg.Format()
	statsInterval := time.Duration(0)
	if !useTUI {
		statsInterval = 10 * time.Second
	}

	sender, err := airwave.NewSender(airwave.SenderConfig{
		Format:        format,
		Destination:   cfg.Sender.Destination,
		Port:          cfg.Port,
		Group:         cfg.Group,
		Interface:     cfg.Interface,
		TTL:           cfg.Sender.TTL,
		Loopback:      cfg.Sender.Loopback,
		InputKind:     cfg.Sender.Input,
		File:          cfg.Sender.File,
		Metrics:       observe.DefaultMetrics(),
		StatsInterval: statsInterval,
		Debug:         cfg.Debug,
	})
	if err != nil {
		log.Fatalf("Failed to create sender: %v", err)
	}

	localIP := transport.LocalIP().String()
	log.Printf("Sender local IP: %s, destination: %s", localIP, sender.Destination())

	if cfg.MonitorAddr != "" {
		mon := monitor.New(monitor.Config{
			Addr:   cfg.MonitorAddr,
			Stats:  func() any { return sender.Stats() },
			Checks: []health.Check{health.Fresh("stream", staleAfter, sender.LastSend)},
		})
		go func() {
			if err := mon.Run(ctx); err != nil {
				log.Printf("Monitor stopped: %v", err)
			}
		}()
	}

	if cfg.Discovery {
		disc := discovery.NewManager(discovery.Config{
			ServiceName: name,
			Port:        cfg.Port,
			StreamID:    streamID,
			Format:      format,
			Destination: sender.Destination().String(),
		})
		if err := disc.Advertise(); err != nil {
			log.Printf("mDNS advertisement failed: %v", err)
		}
		defer disc.Stop()
	}

	var tui *ui.SenderTUI
	loopDone := make(chan struct{})
	if useTUI {
		tui = ui.NewSenderTUI()
		initial := ui.SenderStatus{
			Name:        name,
			StreamID:    streamID,
			Destination: sender.Destination().String(),
			LocalIP:     localIP,
			Format:      format.String(),
			Input:       inputLabel(cfg),
		}
		go func() {
			if err := tui.Start(initial); err != nil {
				log.Printf("TUI error: %v", err)
			}
		}()
		go func() {
			select {
			case <-tui.QuitChan():
				log.Printf("Received quit signal from TUI")
				stop()
			case <-ctx.Done():
			}
		}()
		go func() {
			defer close(loopDone)
			statsUpdateLoop(ctx, sender, tui, initial)
		}()
	} else {
		close(loopDone)
	}

	log.Printf("Press Ctrl-C to stop")

	runErr := sender.Run(ctx)

	// The input may end on its own; stop the update loop before closing the TUI
	stop()
	<-loopDone
	if tui != nil {
		tui.Stop()
	}
	if runErr != nil {
		log.Fatalf("Sender failed: %v", runErr)
	}
	log.Printf("Sender stopped")
}

func inputLabel(cfg *config.Config) string {
	if cfg.Sender.Input == "file" {
		return "file: " + cfg.Sender.File
	}
	return cfg.Sender.Input
}

// statsUpdateLoop periodically updates the TUI with send counters
func statsUpdateLoop(ctx context.Context, sender *airwave.Sender, tui *ui.SenderTUI, status ui.SenderStatus) {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			status.Stats = sender.Stats()
			tui.Update(status)
		case <-ctx.Done():
			return
		}
	}
}
