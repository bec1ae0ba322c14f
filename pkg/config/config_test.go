package config

import (
	"os"
	"path"
	"testing"

	"go.uber.org/goleak"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	filename := path.Join(t.TempDir(), "tunlink.yml")
	err := os.WriteFile(filename, []byte(contents), 0600)
	if err != nil {
		t.Fatalf("error writing config file: %s", err)
	}
	return filename
}

func TestLoadConfig(t *testing.T) {
	defer goleak.VerifyNone(t)
	filename := writeConfig(t, `
log_level: debug
loopback:
  ring_capacity: 16
  packet_size: 256
  senders: 2
  receivers: 3
`)
	cfg, err := LoadConfig(filename)
	if err != nil {
		t.Fatalf("error loading config: %s", err)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("wrong log level")
	}
	if cfg.Loopback.RingCapacity != 16 || cfg.Loopback.PacketSize != 256 {
		t.Errorf("wrong loopback values")
	}
	if cfg.Loopback.Senders != 2 || cfg.Loopback.Receivers != 3 {
		t.Errorf("wrong worker counts")
	}
	if cfg.Loopback.Packets != 1000 {
		t.Errorf("unset values should get defaults")
	}
}

func TestDefault(t *testing.T) {
	defer goleak.VerifyNone(t)
	cfg := Default()
	if cfg.Loopback.PacketSize != 1400 || cfg.Loopback.Senders != 1 {
		t.Errorf("wrong defaults")
	}
}

func TestBadConfig(t *testing.T) {
	defer goleak.VerifyNone(t)
	_, err := LoadConfig(path.Join(t.TempDir(), "nonexistent.yml"))
	if err == nil {
		t.Errorf("missing file should be an error")
	}
	_, err = LoadConfig(writeConfig(t, "loopback: [not, a, mapping]"))
	if err == nil {
		t.Errorf("malformed config should be an error")
	}
	_, err = LoadConfig(writeConfig(t, "loopback:\n  packet_size: 100000"))
	if err == nil {
		t.Errorf("oversize packet_size should be an error")
	}
}
