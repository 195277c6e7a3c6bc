package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ErrInvalid wraps every validation failure
var ErrInvalid = errors.New("invalid configuration")

// Transport kinds
const (
	TransportSerial = "serial"
	TransportTCP    = "tcp"
)

// Focuser backends
const (
	BackendSim    = "sim"
	BackendSerial = "serial"
)

// DefaultIncrement is the focus step size used when none is configured
const DefaultIncrement int32 = 100

// Config represents the complete configuration for the bridge
type Config struct {
	Focuser   FocuserConfig   `yaml:"focuser"`
	Transport TransportConfig `yaml:"transport"`
	Status    StatusConfig    `yaml:"status"`
	Log       LogConfig       `yaml:"log"`
}

// FocuserConfig holds the focus motor settings
type FocuserConfig struct {
	// Increment is the step count applied per F+ / F- command
	Increment int32        `yaml:"increment"`
	Backend   string       `yaml:"backend"`
	Serial    SerialConfig `yaml:"serial"`
}

// SerialConfig holds serial line settings
type SerialConfig struct {
	Device        string `yaml:"device"`
	Baud          int    `yaml:"baud"`
	ReadTimeoutMs int    `yaml:"readTimeoutMs"`
}

// TransportConfig selects where commands come from
type TransportConfig struct {
	Kind           string       `yaml:"kind"`
	Serial         SerialConfig `yaml:"serial"`
	TCP            TCPConfig    `yaml:"tcp"`
	MaxTokenLength int          `yaml:"maxTokenLength"`
}

// TCPConfig holds the LX200-over-TCP listener settings
type TCPConfig struct {
	Address string `yaml:"address"`
	// IdleTimeoutMs releases an unterminated command after this much silence
	IdleTimeoutMs int `yaml:"idleTimeoutMs"`
}

// StatusConfig holds the read-only HTTP status endpoint settings
type StatusConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
}

// LogConfig holds logging settings
type LogConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"maxSizeMB"`
	MaxBackups int    `yaml:"maxBackups"`
	MaxAgeDays int    `yaml:"maxAgeDays"`
}

// Default returns a configuration with every default applied
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// Load builds the configuration from the YAML file at path (optional),
// the .env file in the working directory (optional) and NAVYSCOPE_*
// environment variables, in that order of precedence from lowest to highest.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		if err := loadFromFile(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
		}
	}

	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)
	applyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFromFile loads configuration from a YAML file
func loadFromFile(cfg *Config, filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return err
	}

	return yaml.Unmarshal(data, cfg)
}

// loadDotEnv exports variables from a .env file if one exists.
// Variables already present in the environment win.
func loadDotEnv(filename string) error {
	if _, err := os.Stat(filename); errors.Is(err, os.ErrNotExist) {
		return nil
	}

	if err := godotenv.Load(filename); err != nil {
		return fmt.Errorf("failed to load %s: %w", filename, err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides.
// Unparseable numbers are ignored and leave the current value in place.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("NAVYSCOPE_FOCUS_INCREMENT"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 32); err == nil {
			cfg.Focuser.Increment = int32(n)
		}
	}

	if v := os.Getenv("NAVYSCOPE_FOCUSER_BACKEND"); v != "" {
		cfg.Focuser.Backend = v
	}

	if v := os.Getenv("NAVYSCOPE_FOCUSER_DEVICE"); v != "" {
		cfg.Focuser.Serial.Device = v
	}

	if v := os.Getenv("NAVYSCOPE_TRANSPORT"); v != "" {
		cfg.Transport.Kind = v
	}

	if v := os.Getenv("NAVYSCOPE_SERIAL_DEVICE"); v != "" {
		cfg.Transport.Serial.Device = v
	}

	if v := os.Getenv("NAVYSCOPE_SERIAL_BAUD"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Transport.Serial.Baud = n
		}
	}

	if v := os.Getenv("NAVYSCOPE_TCP_ADDRESS"); v != "" {
		cfg.Transport.TCP.Address = v
	}

	// Setting an address implies the endpoint is wanted
	if v := os.Getenv("NAVYSCOPE_STATUS_ADDRESS"); v != "" {
		cfg.Status.Address = v
		cfg.Status.Enabled = true
	}

	if v := os.Getenv("NAVYSCOPE_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}

	if v := os.Getenv("NAVYSCOPE_LOG_FILE"); v != "" {
		cfg.Log.File = v
	}
}

// applyDefaults fills in missing configuration values with sensible defaults
func applyDefaults(cfg *Config) {
	if cfg.Focuser.Increment == 0 {
		cfg.Focuser.Increment = DefaultIncrement
	}
	if cfg.Focuser.Backend == "" {
		cfg.Focuser.Backend = BackendSim
	}
	applySerialDefaults(&cfg.Focuser.Serial, "")

	if cfg.Transport.Kind == "" {
		cfg.Transport.Kind = TransportSerial
	}
	applySerialDefaults(&cfg.Transport.Serial, "/dev/ttyACM0")
	if cfg.Transport.TCP.Address == "" {
		cfg.Transport.TCP.Address = ":10001" // LX200 over TCP
	}
	if cfg.Transport.TCP.IdleTimeoutMs == 0 {
		cfg.Transport.TCP.IdleTimeoutMs = 250
	}
	if cfg.Transport.MaxTokenLength == 0 {
		cfg.Transport.MaxTokenLength = 64
	}

	if cfg.Status.Address == "" {
		cfg.Status.Address = "127.0.0.1:8080"
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Log.MaxSizeMB == 0 {
		cfg.Log.MaxSizeMB = 10
	}
	if cfg.Log.MaxBackups == 0 {
		cfg.Log.MaxBackups = 3
	}
	if cfg.Log.MaxAgeDays == 0 {
		cfg.Log.MaxAgeDays = 28
	}
}

func applySerialDefaults(sc *SerialConfig, device string) {
	if sc.Device == "" {
		sc.Device = device
	}
	if sc.Baud == 0 {
		sc.Baud = 9600
	}
	if sc.ReadTimeoutMs == 0 {
		sc.ReadTimeoutMs = 100
	}
}

// Validate checks the configuration for values the bridge cannot run with
func (c *Config) Validate() error {
	if c.Focuser.Increment <= 0 {
		return fmt.Errorf("%w: focuser increment %d must be positive", ErrInvalid, c.Focuser.Increment)
	}

	switch c.Focuser.Backend {
	case BackendSim:
	case BackendSerial:
		if c.Focuser.Serial.Device == "" {
			return fmt.Errorf("%w: serial focuser backend needs focuser.serial.device", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: unknown focuser backend %q, must be one of: %v",
			ErrInvalid, c.Focuser.Backend, []string{BackendSim, BackendSerial})
	}

	switch c.Transport.Kind {
	case TransportSerial:
		if c.Transport.Serial.Device == "" {
			return fmt.Errorf("%w: serial transport needs transport.serial.device", ErrInvalid)
		}
		if c.Focuser.Backend == BackendSerial && c.Focuser.Serial.Device == c.Transport.Serial.Device {
			return fmt.Errorf("%w: focuser and transport cannot share serial device %s",
				ErrInvalid, c.Transport.Serial.Device)
		}
	case TransportTCP:
		if c.Transport.TCP.Address == "" {
			return fmt.Errorf("%w: tcp transport needs transport.tcp.address", ErrInvalid)
		}
		if c.Transport.TCP.IdleTimeoutMs < 0 {
			return fmt.Errorf("%w: tcp idle timeout %dms is negative", ErrInvalid, c.Transport.TCP.IdleTimeoutMs)
		}
	default:
		return fmt.Errorf("%w: unknown transport %q, must be one of: %v",
			ErrInvalid, c.Transport.Kind, []string{TransportSerial, TransportTCP})
	}

	if c.Transport.Serial.Baud <= 0 || c.Focuser.Serial.Baud <= 0 {
		return fmt.Errorf("%w: baud rate must be positive", ErrInvalid)
	}

	if c.Transport.MaxTokenLength < 4 || c.Transport.MaxTokenLength > 1024 {
		return fmt.Errorf("%w: max token length %d is outside [4, 1024]", ErrInvalid, c.Transport.MaxTokenLength)
	}

	if !contains([]string{"debug", "info", "warn", "error"}, c.Log.Level) {
		return fmt.Errorf("%w: invalid log level %q", ErrInvalid, c.Log.Level)
	}
	if !contains([]string{"json", "console"}, c.Log.Format) {
		return fmt.Errorf("%w: invalid log format %q", ErrInvalid, c.Log.Format)
	}

	return nil
}

// contains checks if a string slice contains a specific string
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
