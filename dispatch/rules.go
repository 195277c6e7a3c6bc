package dispatch

import (
	"bytes"
	"fmt"

	"navyscope/protocol"
)

// Chain groups rules that exclude each other. Each chain fires at most
// one rule per token; separate chains are evaluated independently.
type Chain uint8

const (
	ChainFocus Chain = iota
	ChainLX200
)

func (c Chain) String() string {
	switch c {
	case ChainFocus:
		return "focus"
	case ChainLX200:
		return "lx200"
	default:
		return fmt.Sprintf("chain(%d)", uint8(c))
	}
}

// MarshalText renders the chain by name in JSON output
func (c Chain) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// ActionKind selects what a matching rule does
type ActionKind uint8

const (
	// ActionMove commands the actuator by Direction * increment
	ActionMove ActionKind = iota
	// ActionReply writes Reply to the reply sink
	ActionReply
)

func (k ActionKind) String() string {
	switch k {
	case ActionMove:
		return "move"
	case ActionReply:
		return "reply"
	default:
		return fmt.Sprintf("action(%d)", uint8(k))
	}
}

// MarshalText renders the action by name in JSON output
func (k ActionKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Rule pairs a marker with the action it triggers
type Rule struct {
	Name      string     `json:"name"`
	Chain     Chain      `json:"chain"`
	Marker    string     `json:"marker"`
	Action    ActionKind `json:"action"`
	Direction int32      `json:"direction,omitempty"`
	Reply     string     `json:"reply,omitempty"`
}

// Matches reports whether the marker occurs anywhere in the token
func (r Rule) Matches(token []byte) bool {
	return bytes.Contains(token, []byte(r.Marker))
}

// DefaultRules returns the rule table in priority order.
// Every call returns a fresh slice.
//
// In the LX200 chain ":CM" comes last: it has no terminator and must not
// shadow the four byte coordinate queries.
func DefaultRules() []Rule {
	return []Rule{
		{
			Name:      "focus-increment",
			Chain:     ChainFocus,
			Marker:    protocol.MarkerFocusIncrement,
			Action:    ActionMove,
			Direction: 1,
		},
		{
			Name:      "focus-decrement",
			Chain:     ChainFocus,
			Marker:    protocol.MarkerFocusDecrement,
			Action:    ActionMove,
			Direction: -1,
		},
		{
			Name:   "get-right-ascension",
			Chain:  ChainLX200,
			Marker: protocol.MarkerGetRA,
			Action: ActionReply,
			Reply:  protocol.ReplyRA,
		},
		{
			Name:   "get-declination",
			Chain:  ChainLX200,
			Marker: protocol.MarkerGetDec,
			Action: ActionReply,
			Reply:  protocol.ReplyDec,
		},
		{
			Name:   "sync",
			Chain:  ChainLX200,
			Marker: protocol.MarkerSync,
			Action: ActionReply,
			Reply:  protocol.ReplySync,
		},
	}
}
