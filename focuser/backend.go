package focuser

import (
	"fmt"
	"io"
	"strconv"
	"sync"

	"navyscope/config"
	"navyscope/serial"
)

// Backend defines the hardware abstraction for the focus motor.
// Implementations can forward to a motor controller or simulate motion.
type Backend interface {
	// Move performs a relative move of delta steps.
	// Positive values rack the focuser out, negative values rack it in.
	Move(delta int32) error

	// Name returns backend implementation name
	Name() string

	// Close releases the hardware
	Close() error
}

// NewBackend opens the backend selected in the configuration
func NewBackend(cfg config.FocuserConfig) (Backend, error) {
	switch cfg.Backend {
	case config.BackendSim:
		return NewSimBackend(), nil

	case config.BackendSerial:
		port, err := serial.Open(&serial.Config{
			Device:      cfg.Serial.Device,
			Baud:        cfg.Serial.Baud,
			ReadTimeout: cfg.Serial.ReadTimeoutMs,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to open focuser controller: %w", err)
		}
		return NewSerialBackend(port), nil

	default:
		return nil, fmt.Errorf("unsupported focuser backend: %s", cfg.Backend)
	}
}

// SimBackend records moves in memory. Used for dry runs and tests.
type SimBackend struct {
	mu    sync.Mutex
	moves []int32
}

// NewSimBackend creates a simulated backend
func NewSimBackend() *SimBackend {
	return &SimBackend{}
}

// Move records the move
func (b *SimBackend) Move(delta int32) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.moves = append(b.moves, delta)
	return nil
}

// Moves returns a copy of every recorded move
func (b *SimBackend) Moves() []int32 {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]int32, len(b.moves))
	copy(out, b.moves)
	return out
}

func (b *SimBackend) Name() string { return config.BackendSim }

func (b *SimBackend) Close() error { return nil }

// SerialBackend drives a downstream motor controller over a serial line.
// Each move is sent as one ASCII line: "move <delta>\n".
type SerialBackend struct {
	mu   sync.Mutex
	port io.WriteCloser
}

// NewSerialBackend creates a backend writing to port
func NewSerialBackend(port io.WriteCloser) *SerialBackend {
	return &SerialBackend{port: port}
}

// Move sends the move command to the controller
func (b *SerialBackend) Move(delta int32) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	line := []byte("move " + strconv.FormatInt(int64(delta), 10) + "\n")

	n, err := b.port.Write(line)
	if err != nil {
		return fmt.Errorf("failed to write move command: %w", err)
	}
	if n != len(line) {
		return fmt.Errorf("incomplete write: %d/%d bytes", n, len(line))
	}

	return nil
}

func (b *SerialBackend) Name() string { return config.BackendSerial }

// Close closes the controller port
func (b *SerialBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.port.Close()
}
