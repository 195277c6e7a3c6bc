// Package protocol holds the wire-level pieces of the focuser bridge:
// the command markers of both vocabularies, the fixed LX200 replies and
// the framer that cuts the incoming byte stream into command tokens.
package protocol

// Markers recognised inside a command token.
const (
	MarkerFocusIncrement = "F+"
	MarkerFocusDecrement = "F-"

	MarkerGetRA  = ":GR#"
	MarkerGetDec = ":GD#"

	// MarkerSync carries no terminator. Clients send ":CM#", but the bare
	// prefix is enough to trigger the acknowledgement.
	MarkerSync = ":CM"
)

// Fixed LX200 reply payloads
const (
	// ReplyRA is the right ascension placeholder, HH:MM:SS#
	ReplyRA = "12:00:00#"

	// ReplyDec is the declination placeholder, sDD*MM#
	ReplyDec = "+45*00#"

	// ReplySync acknowledges a sync. Any text ending in '#' is accepted by clients.
	ReplySync = "M31 EXCALIBUR#"
)

// Terminator ends every LX200 command and reply
const Terminator = '#'
