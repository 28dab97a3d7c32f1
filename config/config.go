// Package config loads the agent configuration from YAML, then applies
// UHF_* environment overrides.
package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dotside-studios/davi-uhf-agent/uhf"
)

// DefaultPort is the agent's HTTP/WebSocket port.
const DefaultPort = 18080

// Config is the complete agent configuration.
type Config struct {
	Mode    string       `yaml:"mode"`
	Device  DeviceConfig `yaml:"device"`
	Server  ServerConfig `yaml:"server"`
	Status  StatusConfig `yaml:"status"`
	LogFile string       `yaml:"log_file,omitempty"`
	// ConfigDir holds generated state such as TLS certificates.
	ConfigDir string `yaml:"config_dir,omitempty"`
}

// DeviceConfig describes how to reach the reader.
type DeviceConfig struct {
	// Target is tcp://host:port or serial:///dev/ttyUSB0?baud=57600.
	Target   string        `yaml:"target,omitempty"`
	Baud     int           `yaml:"baud,omitempty"`
	Address  int           `yaml:"address"`
	Timeout  time.Duration `yaml:"timeout"`
	Antennas int           `yaml:"antennas"`
}

// ServerConfig holds the client-facing server settings.
type ServerConfig struct {
	Host      string `yaml:"host"`
	Port      int    `yaml:"port"`
	APISecret string `yaml:"api_secret,omitempty"`
	MDNS      bool   `yaml:"mdns"`
	TLS       bool   `yaml:"tls"`
}

// StatusConfig controls the status stream.
type StatusConfig struct {
	Interval time.Duration `yaml:"interval"`
}

// DefaultConfig returns a configuration for a simulated reader on the
// default port.
func DefaultConfig() *Config {
	return &Config{
		Mode: string(uhf.ModeSimulated),
		Device: DeviceConfig{
			Baud:     57600,
			Address:  0xFF,
			Timeout:  2 * time.Second,
			Antennas: 4,
		},
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: DefaultPort,
			MDNS: true,
		},
		Status: StatusConfig{
			Interval: time.Second,
		},
		ConfigDir: DefaultDir(),
	}
}

// DefaultDir returns ~/.davi-uhf-agent.
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".davi-uhf-agent"
	}
	return filepath.Join(home, ".davi-uhf-agent")
}

// DefaultPath returns the default configuration file path.
func DefaultPath() string {
	return filepath.Join(DefaultDir(), "config.yaml")
}

// Load reads configuration from a YAML file. A missing file yields the
// defaults. Environment overrides are not applied here.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the configuration as YAML, creating the directory if needed.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

// ApplyEnv overrides fields from UHF_* environment variables.
func (c *Config) ApplyEnv() {
	c.Mode = envOr("UHF_MODE", c.Mode)
	c.Device.Target = envOr("UHF_DEVICE", c.Device.Target)
	c.Device.Baud = envInt("UHF_BAUD", c.Device.Baud)
	c.Device.Address = envInt("UHF_ADDRESS", c.Device.Address)
	c.Device.Antennas = envInt("UHF_ANTENNAS", c.Device.Antennas)
	c.Device.Timeout = envDurationMS("UHF_TIMEOUT_MS", c.Device.Timeout)
	c.Server.Host = envOr("UHF_HOST", c.Server.Host)
	c.Server.Port = envInt("UHF_PORT", c.Server.Port)
	c.Server.APISecret = envOr("UHF_API_SECRET", c.Server.APISecret)
	c.Server.MDNS = envBool("UHF_MDNS", c.Server.MDNS)
	c.Server.TLS = envBool("UHF_TLS", c.Server.TLS)
	c.Status.Interval = envDurationMS("UHF_STATUS_INTERVAL_MS", c.Status.Interval)
	c.LogFile = envOr("UHF_LOG_FILE", c.LogFile)
	c.ConfigDir = envOr("UHF_CONFIG_DIR", c.ConfigDir)
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	mode, err := uhf.ParseMode(c.Mode)
	if err != nil {
		return err
	}
	if mode == uhf.ModeHardware {
		if _, err := uhf.ParseTarget(c.Device.Target); err != nil {
			return fmt.Errorf("device.target: %w", err)
		}
	}
	if c.Device.Address < 0 || c.Device.Address > 0xFF {
		return fmt.Errorf("device.address %d out of range 0-255", c.Device.Address)
	}
	if c.Device.Antennas < 1 || c.Device.Antennas > uhf.MaxAntennas {
		return fmt.Errorf("device.antennas %d out of range 1-%d", c.Device.Antennas, uhf.MaxAntennas)
	}
	if c.Device.Timeout <= 0 {
		return fmt.Errorf("device.timeout must be positive")
	}
	if c.Device.Baud < 0 {
		return fmt.Errorf("device.baud must not be negative")
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Status.Interval < 100*time.Millisecond {
		return fmt.Errorf("status.interval %s is below 100ms", c.Status.Interval)
	}
	return nil
}

// ReaderMode returns the parsed mode. Call Validate first.
func (c *Config) ReaderMode() uhf.Mode {
	mode, err := uhf.ParseMode(c.Mode)
	if err != nil {
		return uhf.ModeSimulated
	}
	return mode
}

// DriverOptions converts the device settings for uhf.NewDriverFactory.
func (c *Config) DriverOptions() uhf.Options {
	return uhf.Options{
		Mode:     c.ReaderMode(),
		Target:   c.Device.Target,
		Baud:     c.Device.Baud,
		Address:  byte(c.Device.Address),
		Antennas: c.Device.Antennas,
		Timeout:  c.Device.Timeout,
	}
}

// ListenAddr returns host:port for the HTTP server.
func (c *Config) ListenAddr() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}

func envOr(key, fallback string) string {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return fallback
	}
	return val
}

func envInt(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}

func envBool(key string, fallback bool) bool {
	raw := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	switch raw {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func envDurationMS(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	ms, err := strconv.Atoi(raw)
	if err != nil || ms <= 0 {
		return fallback
	}
	return time.Duration(ms) * time.Millisecond
}
