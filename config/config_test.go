package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, int32(100), cfg.Focuser.Increment)
	assert.Equal(t, BackendSim, cfg.Focuser.Backend)
	assert.Equal(t, TransportSerial, cfg.Transport.Kind)
	assert.Equal(t, "/dev/ttyACM0", cfg.Transport.Serial.Device)
	assert.Equal(t, 9600, cfg.Transport.Serial.Baud)
	assert.Equal(t, 100, cfg.Transport.Serial.ReadTimeoutMs)
	assert.Equal(t, ":10001", cfg.Transport.TCP.Address)
	assert.Equal(t, 250, cfg.Transport.TCP.IdleTimeoutMs)
	assert.Equal(t, 64, cfg.Transport.MaxTokenLength)
	assert.False(t, cfg.Status.Enabled)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)

	require.NoError(t, cfg.Validate())
}

func TestLoadFromFile(t *testing.T) {
	path := writeFile(t, "navyscope.yaml", `
focuser:
  increment: 250
  backend: serial
  serial:
    device: /dev/ttyUSB1
    baud: 115200
transport:
  kind: tcp
  tcp:
    address: "127.0.0.1:4030"
status:
  enabled: true
log:
  level: debug
  format: console
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, int32(250), cfg.Focuser.Increment)
	assert.Equal(t, BackendSerial, cfg.Focuser.Backend)
	assert.Equal(t, "/dev/ttyUSB1", cfg.Focuser.Serial.Device)
	assert.Equal(t, 115200, cfg.Focuser.Serial.Baud)
	assert.Equal(t, 100, cfg.Focuser.Serial.ReadTimeoutMs)
	assert.Equal(t, TransportTCP, cfg.Transport.Kind)
	assert.Equal(t, "127.0.0.1:4030", cfg.Transport.TCP.Address)
	assert.True(t, cfg.Status.Enabled)
	assert.Equal(t, "127.0.0.1:8080", cfg.Status.Address)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
}

func TestLoadWithoutFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadFromNonExistentFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadMalformedFile(t *testing.T) {
	path := writeFile(t, "bad.yaml", "focuser: [not, a, map")

	_, err := Load(path)
	assert.Error(t, err)
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("NAVYSCOPE_FOCUS_INCREMENT", "42")
	t.Setenv("NAVYSCOPE_TRANSPORT", "tcp")
	t.Setenv("NAVYSCOPE_TCP_ADDRESS", ":4030")
	t.Setenv("NAVYSCOPE_SERIAL_BAUD", "19200")
	t.Setenv("NAVYSCOPE_STATUS_ADDRESS", ":9090")
	t.Setenv("NAVYSCOPE_LOG_LEVEL", "warn")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, int32(42), cfg.Focuser.Increment)
	assert.Equal(t, TransportTCP, cfg.Transport.Kind)
	assert.Equal(t, ":4030", cfg.Transport.TCP.Address)
	assert.Equal(t, 19200, cfg.Transport.Serial.Baud)
	assert.True(t, cfg.Status.Enabled)
	assert.Equal(t, ":9090", cfg.Status.Address)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeFile(t, "navyscope.yaml", "focuser:\n  increment: 250\n")
	t.Setenv("NAVYSCOPE_FOCUS_INCREMENT", "75")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, int32(75), cfg.Focuser.Increment)
}

func TestInvalidEnvNumberIgnored(t *testing.T) {
	t.Setenv("NAVYSCOPE_FOCUS_INCREMENT", "lots")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, int32(100), cfg.Focuser.Increment)
}

func TestLoadDotEnv(t *testing.T) {
	path := writeFile(t, ".env", "NAVYSCOPE_DOTENV_PROBE=from-dotenv\n")
	t.Cleanup(func() { os.Unsetenv("NAVYSCOPE_DOTENV_PROBE") })

	require.NoError(t, loadDotEnv(path))
	assert.Equal(t, "from-dotenv", os.Getenv("NAVYSCOPE_DOTENV_PROBE"))

	assert.NoError(t, loadDotEnv(filepath.Join(t.TempDir(), ".env")))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative increment", func(c *Config) { c.Focuser.Increment = -5 }},
		{"unknown backend", func(c *Config) { c.Focuser.Backend = "gpio" }},
		{"serial backend without device", func(c *Config) {
			c.Focuser.Backend = BackendSerial
			c.Focuser.Serial.Device = ""
		}},
		{"shared serial device", func(c *Config) {
			c.Focuser.Backend = BackendSerial
			c.Focuser.Serial.Device = c.Transport.Serial.Device
		}},
		{"unknown transport", func(c *Config) { c.Transport.Kind = "bluetooth" }},
		{"serial transport without device", func(c *Config) { c.Transport.Serial.Device = "" }},
		{"tcp without address", func(c *Config) {
			c.Transport.Kind = TransportTCP
			c.Transport.TCP.Address = ""
		}},
		{"negative idle timeout", func(c *Config) {
			c.Transport.Kind = TransportTCP
			c.Transport.TCP.IdleTimeoutMs = -1
		}},
		{"zero baud", func(c *Config) { c.Transport.Serial.Baud = 0 }},
		{"tiny token length", func(c *Config) { c.Transport.MaxTokenLength = 2 }},
		{"huge token length", func(c *Config) { c.Transport.MaxTokenLength = 4096 }},
		{"bad log level", func(c *Config) { c.Log.Level = "verbose" }},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}
}
