package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.GatewayURL != "wss://harmony.adapt.chat" {
		t.Errorf("GatewayURL: got %q", cfg.GatewayURL)
	}
	if cfg.Format != "json" {
		t.Errorf("Format: got %q", cfg.Format)
	}
	if cfg.Device != "desktop" {
		t.Errorf("Device: got %q", cfg.Device)
	}
	if cfg.Token != "" {
		t.Errorf("Token: got %q", cfg.Token)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := "gateway_url: ws://localhost:8076\ntoken: my-token\nformat: msgpack\n"
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.GatewayURL != "ws://localhost:8076" {
		t.Errorf("GatewayURL: got %q", cfg.GatewayURL)
	}
	if cfg.Token != "my-token" {
		t.Errorf("Token: got %q", cfg.Token)
	}
	if cfg.Format != "msgpack" {
		t.Errorf("Format: got %q", cfg.Format)
	}
	// Fields absent from the file keep their defaults.
	if cfg.Device != "desktop" {
		t.Errorf("Device: got %q", cfg.Device)
	}
}

func TestLoadPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("token: only-a-token\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Token != "only-a-token" {
		t.Errorf("Token: got %q", cfg.Token)
	}
	if cfg.GatewayURL != "wss://harmony.adapt.chat" {
		t.Errorf("GatewayURL: got %q", cfg.GatewayURL)
	}
}

func TestLoadBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("{{nope"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected an error")
	}
}
