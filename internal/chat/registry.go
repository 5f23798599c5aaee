package chat

import (
	"sort"
	"sync"
	"time"

	"github.com/LogOfSai/offgrid-bluetooth-chat/internal/ble"
)

// registry is the in-memory table of discovered devices, keyed by device ID.
// It is the single source of truth for discovery and connection status; the
// Connected flag is mutated only through SetConnected, by the connection
// manager.
type registry struct {
	mu      sync.RWMutex
	devices map[string]*Device
}

func newRegistry() *registry {
	return &registry{devices: make(map[string]*Device)}
}

// Upsert inserts a device on first discovery or refreshes Name, RSSI, and
// LastSeen in place on repeats. Discovery never implies connection state, so
// Connected is preserved as-is.
func (r *registry) Upsert(d ble.Discovery) {
	r.mu.Lock()
	defer r.mu.Unlock()

	dev, ok := r.devices[d.ID]
	if !ok {
		dev = &Device{ID: d.ID}
		r.devices[d.ID] = dev
	}
	if d.Name != "" {
		dev.Name = d.Name
	} else if dev.Name == "" {
		dev.Name = fallbackName(d.ID)
	}
	dev.RSSI = d.RSSI
	dev.LastSeen = time.Now()
}

// SetConnected records connection state for a known device. Unknown IDs are
// ignored; the connection manager only connects to registered devices.
func (r *registry) SetConnected(id string, connected bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if dev, ok := r.devices[id]; ok {
		dev.Connected = connected
		dev.LastSeen = time.Now()
	}
}

// Touch refreshes LastSeen for activity other than discovery, such as an
// inbound message.
func (r *registry) Touch(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if dev, ok := r.devices[id]; ok {
		dev.LastSeen = time.Now()
	}
}

// Known reports whether the device has been discovered.
func (r *registry) Known(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.devices[id]
	return ok
}

// Get returns a snapshot of one device.
func (r *registry) Get(id string) (Device, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	dev, ok := r.devices[id]
	if !ok {
		return Device{}, false
	}
	return *dev, true
}

// All returns a snapshot of every known device, ordered by ID.
func (r *registry) All() []Device {
	return r.snapshot(func(*Device) bool { return true })
}

// Connected returns a snapshot of the currently connected devices, ordered
// by ID.
func (r *registry) Connected() []Device {
	return r.snapshot(func(d *Device) bool { return d.Connected })
}

func (r *registry) snapshot(keep func(*Device) bool) []Device {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Device, 0, len(r.devices))
	for _, dev := range r.devices {
		if keep(dev) {
			out = append(out, *dev)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
