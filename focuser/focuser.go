// Package focuser implements the focus motor actuator.
//
// The Focuser accepts signed step increments from the dispatcher, forwards
// them to a Backend and tracks the commanded position. Backend failures are
// logged here and never reported back to the dispatcher.
package focuser

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Status is a snapshot of the focuser
type Status struct {
	Backend  string    `json:"backend"`
	Position int64     `json:"position"`
	Moves    uint64    `json:"moves"`
	Failures uint64    `json:"failures"`
	LastMove time.Time `json:"last_move,omitzero"`
}

// Focuser tracks the commanded position of one focus motor
type Focuser struct {
	backend Backend
	logger  *zap.Logger
	now     func() time.Time

	// Guarded for the status endpoint; moves come from a single dispatcher
	mu       sync.Mutex
	position int64 // Commanded position in steps
	moves    uint64
	failures uint64
	lastMove time.Time
}

// New creates a focuser over backend
func New(backend Backend, logger *zap.Logger) *Focuser {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Focuser{
		backend: backend,
		logger:  logger,
		now:     time.Now,
	}
}

// MoveBy moves the motor by delta steps.
// The commanded position only advances when the backend accepts the move.
func (f *Focuser) MoveBy(delta int32) {
	if err := f.backend.Move(delta); err != nil {
		f.mu.Lock()
		f.failures++
		f.mu.Unlock()

		f.logger.Warn("focuser move failed",
			zap.String("backend", f.backend.Name()),
			zap.Int32("delta", delta),
			zap.Error(err))
		return
	}

	f.mu.Lock()
	f.position += int64(delta)
	f.moves++
	f.lastMove = f.now()
	position := f.position
	f.mu.Unlock()

	f.logger.Info("focuser moved",
		zap.Int32("delta", delta),
		zap.Int64("position", position))
}

// Position returns the commanded position in steps
func (f *Focuser) Position() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.position
}

// Status returns a snapshot for reporting
func (f *Focuser) Status() Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return Status{
		Backend:  f.backend.Name(),
		Position: f.position,
		Moves:    f.moves,
		Failures: f.failures,
		LastMove: f.lastMove,
	}
}

// Close releases the backend
func (f *Focuser) Close() error {
	return f.backend.Close()
}
