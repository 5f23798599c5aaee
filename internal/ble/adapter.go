// Package ble defines the transport contract the chat core needs from a
// Bluetooth Low Energy stack: discovery, connection, characteristic writes,
// and notification subscriptions. The production implementation wraps
// tinygo-org/bluetooth; tests substitute in-memory fakes.
package ble

import "context"

// Protocol addressing constants. Both peers must advertise and look up the
// same service and characteristic to find each other's message endpoint.
const (
	// ServiceUUID identifies the off-grid chat GATT service.
	ServiceUUID = "6e400001-b5a3-f393-e0a9-e50e24dcca9e"
	// MessageCharUUID is the characteristic carrying encrypted chat payloads.
	// Each write or notification is exactly one message's ciphertext.
	MessageCharUUID = "6e400002-b5a3-f393-e0a9-e50e24dcca9e"
)

// Discovery is one radio-layer discovery event: a peer advertising the chat
// service was heard.
type Discovery struct {
	ID   string // stable address/UUID assigned by the platform stack
	Name string // advertised local name, may be empty
	RSSI int16  // signal strength, more negative = weaker
}

// Characteristic represents a BLE GATT characteristic.
type Characteristic interface {
	// Write sends data to the characteristic.
	Write(data []byte) error
	// Subscribe registers a callback for notifications on this characteristic.
	Subscribe(callback func(data []byte)) error
}

// Connection represents an active BLE connection to a peripheral.
type Connection interface {
	// DiscoverCharacteristic finds a characteristic by UUID within a service.
	DiscoverCharacteristic(serviceUUID, charUUID string) (Characteristic, error)
	// Disconnect terminates the connection.
	Disconnect() error
	// OnDisconnect registers a callback invoked when the connection drops.
	OnDisconnect(callback func())
}

// Adapter abstracts the BLE hardware adapter for testing.
type Adapter interface {
	// Enable powers on the BLE adapter.
	Enable() error
	// Scan streams discovery events for peripherals advertising the given
	// service UUID until ctx is cancelled. A peer may be reported more than
	// once; deduplication is the caller's concern.
	Scan(ctx context.Context, serviceUUID string, onDiscover func(Discovery)) error
	// Connect establishes a connection to the device with the given address.
	Connect(ctx context.Context, id string) (Connection, error)
}
