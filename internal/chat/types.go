// Package chat implements the device-discovery and secure-messaging core:
// a registry of discovered peers, a time-bounded scan controller, a
// per-device connection manager, and the encrypt/send/receive pipeline, all
// over the ble transport contract.
package chat

import (
	"errors"
	"strings"
	"time"
)

// Sentinel errors for per-operation outcomes. Callers match with errors.Is.
var (
	ErrDeviceNotFound  = errors.New("device not found")
	ErrNotConnected    = errors.New("device not connected")
	ErrMessageTooLarge = errors.New("message too large")
)

// Device is one discoverable peer. Values returned by the service are
// snapshots; the registry owns the live record.
type Device struct {
	ID        string    // stable identifier assigned by the transport
	Name      string    // advertised name, or a name derived from the ID tail
	RSSI      int16     // signal strength, more negative = weaker
	Connected bool      // true iff a live session exists for this device
	LastSeen  time.Time // most recent discovery or activity event
}

// Direction tells whether a message was sent by us or received from the peer.
type Direction string

const (
	DirectionSent     Direction = "sent"
	DirectionReceived Direction = "received"
)

// Message is one chat message, immutable once created. The core hands
// messages to the caller and keeps no copy.
type Message struct {
	ID        string
	DeviceID  string
	Content   string
	Timestamp time.Time
	Direction Direction
	Encrypted bool // always true: every payload on the wire is ciphertext
}

// fallbackName derives a display name from the tail of a device ID when the
// transport reports none.
func fallbackName(id string) string {
	tail := strings.NewReplacer(":", "", "-", "").Replace(id)
	if len(tail) > 4 {
		tail = tail[len(tail)-4:]
	}
	return "chat-" + strings.ToUpper(tail)
}
