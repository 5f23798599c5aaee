package chat

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/LogOfSai/offgrid-bluetooth-chat/internal/ble"
)

// errMock is the generic injected failure for transport operations.
var errMock = errors.New("mock transport failure")

// mockCharacteristic records writes and allows subscribing.
type mockCharacteristic struct {
	mu           sync.Mutex
	writes       [][]byte
	callback     func([]byte)
	writeErr     error
	subscribeErr error
}

func (c *mockCharacteristic) Write(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.writeErr != nil {
		return c.writeErr
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	c.writes = append(c.writes, cp)
	return nil
}

func (c *mockCharacteristic) Subscribe(cb func([]byte)) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.subscribeErr != nil {
		return c.subscribeErr
	}
	c.callback = cb
	return nil
}

// SimulateNotification pushes bytes to the subscriber, as the peer writing
// to the characteristic would.
func (c *mockCharacteristic) SimulateNotification(data []byte) {
	c.mu.Lock()
	cb := c.callback
	c.mu.Unlock()
	if cb != nil {
		cb(data)
	}
}

func (c *mockCharacteristic) writeCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.writes)
}

func (c *mockCharacteristic) lastWrite() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.writes) == 0 {
		return nil
	}
	return c.writes[len(c.writes)-1]
}

// mockConnection simulates a BLE connection.
type mockConnection struct {
	mu            sync.Mutex
	msgChar       *mockCharacteristic
	discoverErr   error
	disconnectErr error
	disconnectCb  func()
	disconnected  bool
}

func newMockConnection() *mockConnection {
	return &mockConnection{msgChar: &mockCharacteristic{}}
}

func (c *mockConnection) DiscoverCharacteristic(serviceUUID, charUUID string) (ble.Characteristic, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.discoverErr != nil {
		return nil, c.discoverErr
	}
	if charUUID != ble.MessageCharUUID {
		return nil, fmt.Errorf("mock: unknown characteristic UUID %q", charUUID)
	}
	return c.msgChar, nil
}

func (c *mockConnection) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disconnected = true
	return c.disconnectErr
}

func (c *mockConnection) OnDisconnect(cb func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disconnectCb = cb
}

// SimulateLinkDrop fires the disconnect callback, as the radio losing the
// peer would.
func (c *mockConnection) SimulateLinkDrop() {
	c.mu.Lock()
	cb := c.disconnectCb
	c.mu.Unlock()
	if cb != nil {
		cb()
	}
}

func (c *mockConnection) isDisconnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.disconnected
}

// mockAdapter simulates the BLE adapter. Scan emits the configured
// discoveries and then blocks until the context is cancelled, matching the
// real adapter's window behavior.
type mockAdapter struct {
	mu          sync.Mutex
	discoveries []ble.Discovery
	scanErr     error
	connectErr  error
	nextConn    *mockConnection // handed out by the next Connect, if set
	connections map[string]*mockConnection
	scanCalls   int
	scanStarted chan struct{}
}

func newMockAdapter(discoveries []ble.Discovery) *mockAdapter {
	return &mockAdapter{
		discoveries: discoveries,
		connections: make(map[string]*mockConnection),
		scanStarted: make(chan struct{}, 8),
	}
}

func (a *mockAdapter) Enable() error { return nil }

func (a *mockAdapter) Scan(ctx context.Context, _ string, onDiscover func(ble.Discovery)) error {
	a.mu.Lock()
	a.scanCalls++
	err := a.scanErr
	discoveries := a.discoveries
	a.mu.Unlock()

	select {
	case a.scanStarted <- struct{}{}:
	default:
	}

	if err != nil {
		return err
	}
	for _, d := range discoveries {
		onDiscover(d)
	}
	<-ctx.Done()
	return nil
}

func (a *mockAdapter) Connect(_ context.Context, id string) (ble.Connection, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.connectErr != nil {
		return nil, a.connectErr
	}
	conn := a.nextConn
	a.nextConn = nil
	if conn == nil {
		conn = newMockConnection()
	}
	a.connections[id] = conn
	return conn, nil
}

// connection returns the most recent connection for a device.
func (a *mockAdapter) connection(id string) *mockConnection {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.connections[id]
}

func (a *mockAdapter) connectCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.connections)
}

func (a *mockAdapter) scanCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.scanCalls
}

func TestMockAdapterImplementsInterface(t *testing.T) {
	var _ ble.Adapter = (*mockAdapter)(nil)
}

func TestMockConnectionImplementsInterface(t *testing.T) {
	var _ ble.Connection = (*mockConnection)(nil)
}

func TestMockCharacteristicImplementsInterface(t *testing.T) {
	var _ ble.Characteristic = (*mockCharacteristic)(nil)
}
