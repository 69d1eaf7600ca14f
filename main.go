// ABOUTME: Entry point for the airwave receiver
// ABOUTME: Loads configuration, starts playback, the TUI and optional monitor/discovery
package main

import (
	"context"
	"errors"
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
	"github.com/Resonate-Protocol/airwave-go/internal/playout"
	"github.com/Resonate-Protocol/airwave-go/internal/ui"
	"github.com/Resonate-Protocol/airwave-go/internal/version"
	"github.com/Resonate-Protocol/airwave-go/pkg/airwave"
	"github.com/Resonate-Protocol/airwave-go/pkg/audio"
	tea "github.com/charmbracelet/bubbletea"
)

// staleAfter is how long without datagrams before /readyz fails
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
		cfg.LogFile = "airwave-receiver.log"
	}

	config.BindReceiver(flag.CommandLine, cfg)
	flag.Parse()

	if err := cfg.ValidateReceiver(); err != nil {
		log.Fatalf("Invalid configuration:\n%v", err)
	}

	useTUI := !cfg.NoTUI

	// Set up logging
	f, err := os.OpenFile(cfg.LogFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		log.Fatalf("error opening log file: %v", err)
	}
	defer func() { _ = f.Close() }()

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
		name = fmt.Sprintf("%s-airwave-receiver", hostname)
	}

	log.Printf("Starting %s receiver: %s", version.String(), name)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownMetrics, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName:    "airwave-receiver",
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
	receiver, err := airwave.NewReceiver(airwave.ReceiverConfig{
		Format:        format,
		Address:       cfg.Receiver.Listen,
		Port:          cfg.Port,
		Group:         cfg.Group,
		Interface:     cfg.Interface,
		ReadBuffer:    cfg.Receiver.ReadBuffer,
		MaxDatagram:   cfg.MaxDatagram,
		StartupBuffer: cfg.Receiver.StartupBuffer,
		QueueLimit:    cfg.Receiver.QueueLimit,
		DropPolicy:    playout.DropPolicy(cfg.Receiver.DropPolicy),
		Volume:        cfg.Receiver.Volume,
		// A zero volume would otherwise default to 100
		Muted:         cfg.Receiver.Volume == 0,
		OutputBackend: cfg.Receiver.Output,
		Metrics:       observe.DefaultMetrics(),
		Debug:         cfg.Debug,
	})
	if err != nil {
		log.Fatalf("Failed to create receiver: %v", err)
	}

	// TUI setup
	var tuiProg *tea.Program
	var volumeCtrl *ui.VolumeControl

	if useTUI {
		volumeCtrl = ui.NewVolumeControl()
		tuiProg = ui.Run(volumeCtrl, cfg.Receiver.Volume)
		go func() {
			if _, err := tuiProg.Run(); err != nil {
				log.Printf("TUI error: %v", err)
			}
		}()
		go handleVolumeControl(ctx, receiver, volumeCtrl)
	}

	updateTUI := func(msg tea.Msg) {
		if tuiProg != nil {
			tuiProg.Send(msg)
		}
	}

	if cfg.MonitorAddr != "" {
		mon := monitor.New(monitor.Config{
			Addr:   cfg.MonitorAddr,
			Stats:  func() any { return receiver.Stats() },
			Checks: []health.Check{health.Fresh("stream", staleAfter, receiver.LastPacket)},
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
			Format:      format,
		})
		disc.Browse()
		defer disc.Stop()
		go watchSenders(ctx, disc, format, updateTUI)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- receiver.Run(ctx)
	}()

	if tuiProg != nil {
		go statsUpdateLoop(ctx, receiver, updateTUI)
	}

	var runErr error
	select {
	case runErr = <-errCh:
	case <-ctx.Done():
		log.Printf("Shutdown signal received")
	case <-quitChan(volumeCtrl):
		log.Printf("Received quit signal from TUI")
	}

	stop()
	if runErr == nil {
		runErr = <-errCh
	}

	if tuiProg != nil {
		tuiProg.Quit()
	}

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		log.Fatalf("Receiver failed: %v", runErr)
	}
	log.Printf("Receiver stopped")
}

func quitChan(vc *ui.VolumeControl) <-chan ui.QuitMsg {
	if vc == nil {
		return nil
	}
	return vc.Quit
}

// handleVolumeControl applies volume changes from the TUI
func handleVolumeControl(ctx context.Context, receiver *airwave.Receiver, volumeCtrl *ui.VolumeControl) {
	for {
		select {
		case vol := <-volumeCtrl.Changes:
			log.Printf("Volume change: %d%%, muted=%v", vol.Volume, vol.Muted)
			receiver.SetVolume(vol.Volume)
			receiver.SetMuted(vol.Muted)
		case <-ctx.Done():
			return
		}
	}
}

// watchSenders reports discovered senders and warns on format mismatch
func watchSenders(ctx context.Context, disc *discovery.Manager, local audio.Format, updateTUI func(tea.Msg)) {
	for {
		select {
		case a := <-disc.Announcements():
			msg := ui.SenderMsg{Name: a.Name, Host: a.Host}
			if err := discovery.CheckFormat(local, a); err != nil {
				log.Printf("Warning: %v", err)
				msg.Mismatch = err.Error()
			}
			updateTUI(msg)
		case <-ctx.Done():
			return
		}
	}
}

// statsUpdateLoop periodically updates the TUI with receiver statistics
func statsUpdateLoop(ctx context.Context, receiver *airwave.Receiver, updateTUI func(tea.Msg)) {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	select {
	case <-receiver.Ready():
	case <-ctx.Done():
		return
	}
	initial := receiver.Stats()
	updateTUI(ui.StatusMsg{
		ListenAddr: receiver.LocalAddr().String(),
		Format:     receiver.Format().String(),
		Volume:     &initial.Volume,
		Muted:      &initial.Muted,
	})

	for {
		select {
		case <-ticker.C:
			stats := receiver.Stats()
			updateTUI(ui.StatusMsg{
				Stats:   &stats.Snapshot,
				Playing: stats.Playing,
			})
		case <-ctx.Done():
			return
		}
	}
}
