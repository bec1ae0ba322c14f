package config

import (
	"fmt"
	"os"

	"github.com/ghjm/tunlink/pkg/driver"
	"gopkg.in/yaml.v3"
)

// Config is the top-level tunlink configuration.
type Config struct {
	LogLevel string   `yaml:"log_level"`
	Loopback Loopback `yaml:"loopback"`
}

// Loopback configures the loopback soak run by the CLI.
type Loopback struct {
	RingCapacity int `yaml:"ring_capacity"`
	PacketSize   int `yaml:"packet_size"`
	Senders      int `yaml:"senders"`
	Receivers    int `yaml:"receivers"`
	Packets      int `yaml:"packets"`
}

// Default returns a config populated with usable defaults.
func Default() *Config {
	c := &Config{}
	c.setDefaults()
	return c
}

func (c *Config) setDefaults() {
	if c.Loopback.PacketSize == 0 {
		c.Loopback.PacketSize = 1400
	}
	if c.Loopback.Senders == 0 {
		c.Loopback.Senders = 1
	}
	if c.Loopback.Receivers == 0 {
		c.Loopback.Receivers = 1
	}
	if c.Loopback.Packets == 0 {
		c.Loopback.Packets = 1000
	}
}

func (c *Config) check() error {
	if c.Loopback.PacketSize < 0 || c.Loopback.PacketSize > driver.MaxPacketSize {
		return fmt.Errorf("packet_size must be between 0 and %d", driver.MaxPacketSize)
	}
	if c.Loopback.RingCapacity < 0 {
		return fmt.Errorf("ring_capacity must not be negative")
	}
	if c.Loopback.Senders < 0 || c.Loopback.Receivers < 0 || c.Loopback.Packets < 0 {
		return fmt.Errorf("senders, receivers and packets must not be negative")
	}
	return nil
}

// LoadConfig reads and validates a YAML config file, filling in defaults for unset values.
func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	config := &Config{}
	err = yaml.Unmarshal(data, config)
	if err != nil {
		return nil, err
	}
	if err := config.check(); err != nil {
		return nil, err
	}
	config.setDefaults()
	return config, nil
}
