// ABOUTME: Tests for configuration loading and validation
// ABOUTME: Covers precedence of defaults, YAML, environment and flags
package config

import (
	"context"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/sethvargo/go-envconfig"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func noEnv() envconfig.Lookuper {
	return envconfig.MapLookuper(map[string]string{})
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()

	if err := cfg.ValidateSender(); err != nil {
		t.Errorf("default sender config invalid: %v", err)
	}
	if err := cfg.ValidateReceiver(); err != nil {
		t.Errorf("default receiver config invalid: %v", err)
	}

	format := cfg.Format()
	if format.FrameBytes() != 2048 {
		t.Errorf("expected 2048-byte frames, got %d", format.FrameBytes())
	}
	if cfg.Port != 5005 {
		t.Errorf("expected port 5005, got %d", cfg.Port)
	}
	if cfg.Receiver.StartupBuffer != 200*time.Millisecond {
		t.Errorf("expected 200ms startup buffer, got %v", cfg.Receiver.StartupBuffer)
	}
}

func TestLoadWithoutFile(t *testing.T) {
	cfg, err := Load(context.Background(), "", noEnv())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if diff := cmp.Diff(Default(), cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "airwave.yaml", `
port: 6000
channels: 2
group: 239.1.2.3
receiver:
  output: "null"
  startup_buffer: 350ms
  queue_limit: 64
  drop_policy: drop-newest
sender:
  input: tone
  ttl: 4
`)

	cfg, err := Load(context.Background(), path, noEnv())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	want := Default()
	want.Port = 6000
	want.Channels = 2
	want.Group = "239.1.2.3"
	want.Receiver.Output = "null"
	want.Receiver.StartupBuffer = 350 * time.Millisecond
	want.Receiver.QueueLimit = 64
	want.Receiver.DropPolicy = "drop-newest"
	want.Sender.Input = "tone"
	want.Sender.TTL = 4

	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := writeFile(t, "airwave.yaml", "prot: 6000\n")

	if _, err := Load(context.Background(), path, noEnv()); err == nil {
		t.Fatal("expected error for unknown key")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(context.Background(), filepath.Join(t.TempDir(), "nope.yaml"), noEnv()); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadEmptyFile(t *testing.T) {
	path := writeFile(t, "airwave.yaml", "")

	cfg, err := Load(context.Background(), path, noEnv())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != 5005 {
		t.Errorf("expected default port, got %d", cfg.Port)
	}
}

func TestEnvironmentOverridesYAML(t *testing.T) {
	path := writeFile(t, "airwave.yaml", "port: 6000\nreceiver:\n  volume: 40\n")
	env := envconfig.MapLookuper(map[string]string{
		"AIRWAVE_PORT":                    "7000",
		"AIRWAVE_DEBUG":                   "true",
		"AIRWAVE_RECEIVER_STARTUP_BUFFER": "1s",
		"AIRWAVE_SENDER_DESTINATION":      "192.168.1.255",
		"PORT":                            "9999",
	})

	cfg, err := Load(context.Background(), path, env)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Port != 7000 {
		t.Errorf("expected env port 7000, got %d", cfg.Port)
	}
	if !cfg.Debug {
		t.Error("expected debug from env")
	}
	if cfg.Receiver.StartupBuffer != time.Second {
		t.Errorf("expected 1s startup buffer, got %v", cfg.Receiver.StartupBuffer)
	}
	if cfg.Sender.Destination != "192.168.1.255" {
		t.Errorf("expected destination from env, got %q", cfg.Sender.Destination)
	}
	// Unset variables keep the YAML value
	if cfg.Receiver.Volume != 40 {
		t.Errorf("expected YAML volume 40, got %d", cfg.Receiver.Volume)
	}
}

func TestEnvironmentBadValue(t *testing.T) {
	env := envconfig.MapLookuper(map[string]string{"AIRWAVE_PORT": "abc"})

	if _, err := Load(context.Background(), "", env); err == nil {
		t.Fatal("expected error for non-numeric port")
	}
}

func TestFlagsOverrideEverything(t *testing.T) {
	env := envconfig.MapLookuper(map[string]string{"AIRWAVE_PORT": "7000"})
	cfg, err := Load(context.Background(), "", env)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	BindReceiver(fs, cfg)
	if err := fs.Parse([]string{"-port", "8000", "-buffer", "500ms", "-output", "null"}); err != nil {
		t.Fatalf("parse: %v", err)
	}

	if cfg.Port != 8000 {
		t.Errorf("expected flag port 8000, got %d", cfg.Port)
	}
	if cfg.Receiver.StartupBuffer != 500*time.Millisecond {
		t.Errorf("expected 500ms, got %v", cfg.Receiver.StartupBuffer)
	}
	if cfg.Receiver.Output != "null" {
		t.Errorf("expected null output, got %q", cfg.Receiver.Output)
	}
}

func TestFlagDefaultsReflectLoadedConfig(t *testing.T) {
	cfg := Default()
	cfg.Sender.TTL = 8

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	BindSender(fs, cfg)
	if err := fs.Parse(nil); err != nil {
		t.Fatalf("parse: %v", err)
	}

	if got := fs.Lookup("ttl").DefValue; got != "8" {
		t.Errorf("expected flag default 8, got %q", got)
	}
	if cfg.Sender.TTL != 8 {
		t.Errorf("expected TTL to stay 8, got %d", cfg.Sender.TTL)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		sender  bool
		wantErr string
	}{
		{"port zero", func(c *Config) { c.Port = 0 }, false, "port 0"},
		{"port too high", func(c *Config) { c.Port = 70000 }, false, "port 70000"},
		{"bad sample format", func(c *Config) { c.SampleFormat = "f32le" }, false, "unsupported sample format"},
		{"datagram too small", func(c *Config) { c.MaxDatagram = 2048 }, false, "max_datagram 2048"},
		{"datagram too large", func(c *Config) { c.MaxDatagram = 70000 }, false, "UDP limit"},
		{"bad output", func(c *Config) { c.Receiver.Output = "alsa" }, false, "receiver.output"},
		{"negative buffer", func(c *Config) { c.Receiver.StartupBuffer = -time.Second }, false, "startup_buffer"},
		{"negative queue limit", func(c *Config) { c.Receiver.QueueLimit = -1 }, false, "queue_limit"},
		{"bad policy", func(c *Config) { c.Receiver.DropPolicy = "random" }, false, "drop_policy"},
		{"volume", func(c *Config) { c.Receiver.Volume = 101 }, false, "volume"},
		{"bad input", func(c *Config) { c.Sender.Input = "mic" }, true, "sender.input"},
		{"file without path", func(c *Config) { c.Sender.Input = "file" }, true, "sender.file"},
		{"ttl", func(c *Config) { c.Sender.TTL = 256 }, true, "sender.ttl"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			var err error
			if tt.sender {
				err = cfg.ValidateSender()
			} else {
				err = cfg.ValidateReceiver()
			}
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestValidateJoinsErrors(t *testing.T) {
	cfg := Default()
	cfg.Port = 0
	cfg.Receiver.Volume = -1

	err := cfg.ValidateReceiver()
	if err == nil {
		t.Fatal("expected error")
	}
	msg := err.Error()
	if !strings.Contains(msg, "port") || !strings.Contains(msg, "volume") {
		t.Errorf("expected both problems reported, got %v", err)
	}
}

func TestArgValue(t *testing.T) {
	tests := []struct {
		name   string
		args   []string
		want   string
		wantOK bool
	}{
		{"separate", []string{"-port", "1", "-config", "a.yaml"}, "a.yaml", true},
		{"equals", []string{"--config=b.yaml"}, "b.yaml", true},
		{"double dash separate", []string{"--config", "c.yaml"}, "c.yaml", true},
		{"absent", []string{"-port", "1"}, "", false},
		{"dangling", []string{"-config"}, "", false},
		{"after terminator", []string{"--", "-config", "d.yaml"}, "", false},
		{"other flag with equals", []string{"-configx=e.yaml"}, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ArgValue(tt.args, "config")
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("ArgValue(%v) = %q, %v; want %q, %v", tt.args, got, ok, tt.want, tt.wantOK)
			}
		})
	}

	if got := PathFromArgs([]string{"-config", "x.yaml"}); got != "x.yaml" {
		t.Errorf("PathFromArgs = %q, want x.yaml", got)
	}
}

func TestLoadEnvFile(t *testing.T) {
	if err := LoadEnvFile(filepath.Join(t.TempDir(), ".env")); err != nil {
		t.Errorf("missing .env should be ignored, got %v", err)
	}
	if err := LoadEnvFile(""); err != nil {
		t.Errorf("empty path should be ignored, got %v", err)
	}

	const key = "AIRWAVE_TEST_DOTENV_VOLUME"
	t.Cleanup(func() { os.Unsetenv(key) })

	path := writeFile(t, ".env", key+"=55\n")
	if err := LoadEnvFile(path); err != nil {
		t.Fatalf("LoadEnvFile: %v", err)
	}
	if got := os.Getenv(key); got != "55" {
		t.Errorf("expected %s=55, got %q", key, got)
	}
}
