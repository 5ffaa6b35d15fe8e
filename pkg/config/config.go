package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"streamguard/pkg/scan"
)

// Config holds the configuration for a streamguard instance.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Redis  RedisConfig  `yaml:"redis"`
	Guard  GuardConfig  `yaml:"guard"`
	Log    LogConfig    `yaml:"log"`
}

type ServerConfig struct {
	TCPPort    int    `yaml:"tcp_port"`
	UDPPort    int    `yaml:"udp_port"`
	BufferSize uint64 `yaml:"buffer_size"` // ring buffer slots, power of 2
}

type RedisConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Address   string `yaml:"address"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	ConfigKey string `yaml:"config_key"` // key holding the JSON manifest
	Channel   string `yaml:"channel"`    // PubSub channel announcing manifest updates
}

// GuardConfig controls the default guard applied at ingest and in the initial chain.
type GuardConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Forbidden string `yaml:"forbidden"` // e.g. "0x00, 0x0a, 0x0d"
	Marker    string `yaml:"marker"`    // single character or byte token
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			TCPPort:    8081,
			UDPPort:    8082,
			BufferSize: 65536,
		},
		Redis: RedisConfig{
			Enabled:   true,
			Address:   "localhost:6379",
			ConfigKey: "streamguard_config",
			Channel:   "streamguard_updates",
		},
		Guard: GuardConfig{
			Enabled:   true,
			Forbidden: "0x00, 0x0a, 0x0d",
			Marker:    "-",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads a YAML file over the defaults. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the configuration for values the rest of the system cannot use.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.TCPPort < 0 || c.Server.TCPPort > 65535 {
		errs = append(errs, fmt.Errorf("server.tcp_port %d out of range", c.Server.TCPPort))
	}
	if c.Server.UDPPort < 0 || c.Server.UDPPort > 65535 {
		errs = append(errs, fmt.Errorf("server.udp_port %d out of range", c.Server.UDPPort))
	}
	if n := c.Server.BufferSize; n == 0 || n&(n-1) != 0 {
		errs = append(errs, fmt.Errorf("server.buffer_size %d must be a power of 2", n))
	}
	if c.Redis.Enabled && c.Redis.Address == "" {
		errs = append(errs, errors.New("redis.address is required when redis is enabled"))
	}
	if _, err := c.Guard.ForbiddenBytes(); err != nil {
		errs = append(errs, fmt.Errorf("guard.forbidden: %w", err))
	}
	if _, err := c.Guard.MarkerByte(); err != nil {
		errs = append(errs, fmt.Errorf("guard.marker: %w", err))
	}

	return errors.Join(errs...)
}

// ForbiddenBytes parses Forbidden.
func (g GuardConfig) ForbiddenBytes() ([]byte, error) {
	return scan.ParseByteList(g.Forbidden)
}

// MarkerByte parses Marker, defaulting to scan.DefaultMarker.
func (g GuardConfig) MarkerByte() (byte, error) {
	if g.Marker == "" {
		return scan.DefaultMarker, nil
	}
	return scan.ParseByte(g.Marker)
}
