// Package dispatch classifies command tokens and triggers their effect.
//
// A single byte stream carries the legacy focus vocabulary (F+, F-) and
// the LX200 handshake used by planetarium software (:GR#, :GD#, :CM).
// The Dispatcher walks a fixed rule table per vocabulary and fires the
// first rule whose marker occurs in the token. Tokens that match nothing
// are dropped silently; no error reply is ever sent.
package dispatch

import (
	"go.uber.org/zap"
)

// Actuator moves the focus motor by a signed step count.
// Failures are the actuator's own business.
type Actuator interface {
	MoveBy(delta int32)
}

// ReplySink carries reply bytes back to the client.
// Failures are the sink's own business.
type ReplySink interface {
	WriteReply(reply []byte)
}

// Match is the classification of one token: the rule that fires in each
// chain, or nil when the chain has no match
type Match struct {
	Focus *Rule
	LX200 *Rule
}

// None reports whether the token triggers nothing
func (m Match) None() bool {
	return m.Focus == nil && m.LX200 == nil
}

// Option configures a Dispatcher
type Option func(*Dispatcher)

// WithLogger sets the logger used for per-token debug output
func WithLogger(logger *zap.Logger) Option {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// Dispatcher routes tokens to the actuator or the reply sink.
// It holds no per-token state; the rule table is fixed at construction.
type Dispatcher struct {
	focus []Rule
	lx200 []Rule

	increment int32
	actuator  Actuator
	replies   ReplySink
	logger    *zap.Logger
}

// New creates a dispatcher over the default rule table.
// increment is the focus step count applied per F+ or F- command.
// A nil actuator or sink turns the matching effects into no-ops, which is
// enough for classification only.
func New(actuator Actuator, replies ReplySink, increment int32, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		increment: increment,
		actuator:  actuator,
		replies:   replies,
		logger:    zap.NewNop(),
	}

	for _, rule := range DefaultRules() {
		switch rule.Chain {
		case ChainFocus:
			d.focus = append(d.focus, rule)
		case ChainLX200:
			d.lx200 = append(d.lx200, rule)
		}
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Dispatch classifies the token and fires at most one effect per chain.
// The focus move, if any, is issued before the reply.
func (d *Dispatcher) Dispatch(token []byte) {
	match := d.Classify(token)

	if match.None() {
		d.logger.Debug("token ignored", zap.ByteString("token", token))
		return
	}

	if match.Focus != nil {
		d.apply(match.Focus, token)
	}
	if match.LX200 != nil {
		d.apply(match.LX200, token)
	}
}

// Classify returns what Dispatch would do with the token, without doing it
func (d *Dispatcher) Classify(token []byte) Match {
	return Match{
		Focus: firstMatch(d.focus, token),
		LX200: firstMatch(d.lx200, token),
	}
}

// Rules returns a copy of the rule table in evaluation order
func (d *Dispatcher) Rules() []Rule {
	rules := make([]Rule, 0, len(d.focus)+len(d.lx200))
	rules = append(rules, d.focus...)
	return append(rules, d.lx200...)
}

// Increment returns the configured focus step count
func (d *Dispatcher) Increment() int32 {
	return d.increment
}

func (d *Dispatcher) apply(rule *Rule, token []byte) {
	switch rule.Action {
	case ActionMove:
		delta := rule.Direction * d.increment
		d.logger.Debug("focus move",
			zap.String("rule", rule.Name),
			zap.ByteString("token", token),
			zap.Int32("delta", delta))
		if d.actuator != nil {
			d.actuator.MoveBy(delta)
		}

	case ActionReply:
		d.logger.Debug("lx200 reply",
			zap.String("rule", rule.Name),
			zap.ByteString("token", token),
			zap.String("reply", rule.Reply))
		if d.replies != nil {
			d.replies.WriteReply([]byte(rule.Reply))
		}
	}
}

// firstMatch returns a copy of the first matching rule so callers cannot
// alter the table through it
func firstMatch(rules []Rule, token []byte) *Rule {
	for i := range rules {
		if rules[i].Matches(token) {
			rule := rules[i]
			return &rule
		}
	}
	return nil
}
