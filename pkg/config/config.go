package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Bambu LAN-mode connection defaults.
const (
	// DefaultPort is the printer broker's MQTT-over-TLS port.
	DefaultPort = 8883

	// DefaultPlainPort is the broker port when TLS is disabled.
	DefaultPlainPort = 1883

	// DefaultUsername is the fixed LAN-mode MQTT username.
	DefaultUsername = "bblp"
)

// Config errors.
var (
	ErrNoPrinters = errors.New("config: no printers configured")
	ErrNoSerial   = errors.New("config: printer serial is required")
	ErrNoHost     = errors.New("config: printer host is required unless discover is set")
	ErrNoAccess   = errors.New("config: printer access code is required")
	ErrNoSlots    = errors.New("config: printer has no slot mappings")
)

// Config is the top-level bridge configuration.
type Config struct {
	// LogLevel is the slog level: debug, info, warn, error.
	LogLevel string `yaml:"log_level"`

	// EventLog is the path of the CBOR event log. Empty disables capture.
	EventLog string `yaml:"event_log"`

	// Spoolman is the shared inventory store endpoint.
	Spoolman SpoolmanConfig `yaml:"spoolman"`

	// Printers lists the printers to bridge, one client each.
	Printers []PrinterConfig `yaml:"printers"`
}

// SpoolmanConfig locates the Spoolman server.
type SpoolmanConfig struct {
	// URL is the Spoolman endpoint (default: http://localhost:7912).
	URL string `yaml:"url"`

	// TimeoutSeconds bounds one API request (default: 10).
	TimeoutSeconds int `yaml:"timeout_seconds"`
}

// PrinterConfig describes one printer connection.
type PrinterConfig struct {
	// Serial is the printer serial number; the report topic derives from it.
	Serial string `yaml:"serial"`

	// Host is the printer/broker address. May be empty when Discover is set.
	Host string `yaml:"host"`

	// Port is the broker port (default: 8883, or 1883 without TLS).
	Port int `yaml:"port"`

	// Username is the MQTT username (default: bblp).
	Username string `yaml:"username"`

	// AccessCode is the LAN-mode access code used as the MQTT password.
	AccessCode string `yaml:"access_code"`

	// TLS enables MQTT over TLS (default: true).
	TLS bool `yaml:"tls"`

	// VerifyCertificate enables peer certificate and hostname verification.
	// Default false: the printers present self-signed certificates.
	VerifyCertificate bool `yaml:"verify_certificate"`

	// Discover resolves the printer address via mDNS when Host is empty.
	Discover bool `yaml:"discover"`

	// Slots maps printer slot IDs ("0".."3") to Spoolman spool IDs.
	Slots map[string]int `yaml:"slots"`
}

// UnmarshalYAML applies per-printer defaults before decoding, so an entry
// only states what differs from LAN-mode conventions.
func (p *PrinterConfig) UnmarshalYAML(value *yaml.Node) error {
	type raw PrinterConfig
	out := raw{
		Username: DefaultUsername,
		TLS:      true,
	}
	if err := value.Decode(&out); err != nil {
		return err
	}
	*p = PrinterConfig(out)
	if p.Port == 0 {
		if p.TLS {
			p.Port = DefaultPort
		} else {
			p.Port = DefaultPlainPort
		}
	}
	return nil
}

// Load reads and validates a configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes and validates configuration bytes.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration for completeness.
func (c *Config) Validate() error {
	if len(c.Printers) == 0 {
		return ErrNoPrinters
	}
	for i := range c.Printers {
		if err := c.Printers[i].Validate(); err != nil {
			return fmt.Errorf("printer %d: %w", i, err)
		}
	}
	return nil
}

// Validate checks one printer entry.
func (p *PrinterConfig) Validate() error {
	if p.Serial == "" {
		return ErrNoSerial
	}
	if p.Host == "" && !p.Discover {
		return ErrNoHost
	}
	if p.AccessCode == "" {
		return ErrNoAccess
	}
	if len(p.Slots) == 0 {
		return ErrNoSlots
	}
	return nil
}

// BrokerURL returns the paho broker URL for this printer.
func (p *PrinterConfig) BrokerURL() string {
	scheme := "tcp"
	if p.TLS {
		scheme = "tls"
	}
	return fmt.Sprintf("%s://%s:%d", scheme, p.Host, p.Port)
}
