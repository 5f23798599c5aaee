package chat

import (
	"log/slog"
	"sync"
	"time"

	"github.com/LogOfSai/offgrid-bluetooth-chat/internal/ble"
	"github.com/LogOfSai/offgrid-bluetooth-chat/internal/chat/crypto"
	"github.com/LogOfSai/offgrid-bluetooth-chat/internal/chat/moderation"
)

// Options configures service behavior.
type Options struct {
	ScanWindow         time.Duration // discovery window length
	SubscriptionBuffer int           // buffered messages per subscription
}

// DefaultOptions returns sensible defaults.
func DefaultOptions() Options {
	return Options{
		ScanWindow:         10 * time.Second,
		SubscriptionBuffer: 32,
	}
}

// Service is the chat core: it owns the device registry, the scan state, and
// one session per connected device, and exposes the consumer boundary
// (scan/connect/send/subscribe/cleanup). All methods are safe for concurrent
// use; operations on the same device are serialized per device ID.
type Service struct {
	adapter ble.Adapter
	keys    crypto.KeySource
	gate    *moderation.Gate
	reg     *registry
	opts    Options

	mu         sync.Mutex
	sessions   map[string]*session
	devLocks   map[string]*sync.Mutex
	scanCancel func() // non-nil while a scan window is open
}

// session is the live, connected state for one device. It exists only
// between a successful connect and a disconnect.
type session struct {
	conn    ble.Connection
	msgChar ble.Characteristic
	sub     *Subscription // nil until the caller opts in to receiving
}

// New builds a Service over the given transport adapter and key source. It
// initializes the transport; an unusable adapter is a fatal, reported error
// and leaves no partial state behind.
func New(adapter ble.Adapter, keys crypto.KeySource, gate *moderation.Gate, opts Options) (*Service, error) {
	if opts.ScanWindow <= 0 {
		opts.ScanWindow = 10 * time.Second
	}
	if opts.SubscriptionBuffer <= 0 {
		opts.SubscriptionBuffer = 32
	}
	if gate == nil {
		gate = moderation.DefaultGate()
	}
	if err := adapter.Enable(); err != nil {
		return nil, err
	}
	return &Service{
		adapter:  adapter,
		keys:     keys,
		gate:     gate,
		reg:      newRegistry(),
		opts:     opts,
		sessions: make(map[string]*session),
		devLocks: make(map[string]*sync.Mutex),
	}, nil
}

// Devices returns every device seen during the current scan session.
func (s *Service) Devices() []Device {
	return s.reg.All()
}

// ConnectedDevices returns the devices with a live session.
func (s *Service) ConnectedDevices() []Device {
	return s.reg.Connected()
}

// Cleanup disconnects every connected device and stops any active scan. It
// is best-effort: individual failures are logged and the sequence continues,
// so the service always ends with no live sessions and no open scan.
func (s *Service) Cleanup() {
	s.StopScan()
	for _, dev := range s.reg.Connected() {
		s.Disconnect(dev.ID)
	}
	slog.Info("[chat] cleanup complete")
}

// devLock returns the serialization lock for one device, creating it on
// first use. Connection state transitions for a device run under its lock.
func (s *Service) devLock(id string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.devLocks[id]
	if !ok {
		lock = &sync.Mutex{}
		s.devLocks[id] = lock
	}
	return lock
}

func (s *Service) getSession(id string) *session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions[id]
}
