package chat

import (
	"testing"

	"github.com/LogOfSai/offgrid-bluetooth-chat/internal/ble"
)

func TestUpsertInsertsOnFirstDiscovery(t *testing.T) {
	reg := newRegistry()
	reg.Upsert(ble.Discovery{ID: "AA:BB:CC:DD:EE:FF", Name: "node-1", RSSI: -40})

	dev, ok := reg.Get("AA:BB:CC:DD:EE:FF")
	if !ok {
		t.Fatal("device not found after Upsert")
	}
	if dev.Name != "node-1" {
		t.Errorf("Name = %q, want %q", dev.Name, "node-1")
	}
	if dev.RSSI != -40 {
		t.Errorf("RSSI = %d, want -40", dev.RSSI)
	}
	if dev.Connected {
		t.Error("new device should not be connected")
	}
	if dev.LastSeen.IsZero() {
		t.Error("LastSeen should be set on discovery")
	}
}

func TestUpsertPreservesConnected(t *testing.T) {
	reg := newRegistry()
	reg.Upsert(ble.Discovery{ID: "dev-1", Name: "node-1", RSSI: -40})
	reg.SetConnected("dev-1", true)

	// A repeat discovery refreshes signal data but never touches Connected.
	reg.Upsert(ble.Discovery{ID: "dev-1", Name: "node-1-renamed", RSSI: -55})

	dev, _ := reg.Get("dev-1")
	if !dev.Connected {
		t.Error("repeat Upsert must preserve Connected")
	}
	if dev.Name != "node-1-renamed" {
		t.Errorf("Name = %q, want %q", dev.Name, "node-1-renamed")
	}
	if dev.RSSI != -55 {
		t.Errorf("RSSI = %d, want -55", dev.RSSI)
	}

	if got := len(reg.All()); got != 1 {
		t.Errorf("All() length = %d, want 1 (one record per id)", got)
	}
}

func TestUpsertFallbackName(t *testing.T) {
	reg := newRegistry()
	reg.Upsert(ble.Discovery{ID: "AA:BB:CC:DD:EE:F0", RSSI: -60})

	dev, _ := reg.Get("AA:BB:CC:DD:EE:F0")
	if dev.Name != "chat-EEF0" {
		t.Errorf("fallback Name = %q, want %q", dev.Name, "chat-EEF0")
	}

	// A later advertisement carrying a real name replaces the fallback.
	reg.Upsert(ble.Discovery{ID: "AA:BB:CC:DD:EE:F0", Name: "field-radio", RSSI: -58})
	dev, _ = reg.Get("AA:BB:CC:DD:EE:F0")
	if dev.Name != "field-radio" {
		t.Errorf("Name = %q, want %q", dev.Name, "field-radio")
	}

	// A nameless repeat does not clobber the known name.
	reg.Upsert(ble.Discovery{ID: "AA:BB:CC:DD:EE:F0", RSSI: -59})
	dev, _ = reg.Get("AA:BB:CC:DD:EE:F0")
	if dev.Name != "field-radio" {
		t.Errorf("Name after nameless repeat = %q, want %q", dev.Name, "field-radio")
	}
}

func TestConnectedFilter(t *testing.T) {
	reg := newRegistry()
	reg.Upsert(ble.Discovery{ID: "dev-1", RSSI: -40})
	reg.Upsert(ble.Discovery{ID: "dev-2", RSSI: -50})
	reg.Upsert(ble.Discovery{ID: "dev-3", RSSI: -60})
	reg.SetConnected("dev-2", true)

	if got := len(reg.All()); got != 3 {
		t.Errorf("All() length = %d, want 3", got)
	}

	connected := reg.Connected()
	if len(connected) != 1 || connected[0].ID != "dev-2" {
		t.Errorf("Connected() = %v, want just dev-2", connected)
	}
}

func TestSetConnectedUnknownDeviceIgnored(t *testing.T) {
	reg := newRegistry()
	reg.SetConnected("ghost", true)
	if got := len(reg.All()); got != 0 {
		t.Errorf("SetConnected on unknown id created a record, All() length = %d", got)
	}
}

func TestSnapshotsAreCopies(t *testing.T) {
	reg := newRegistry()
	reg.Upsert(ble.Discovery{ID: "dev-1", Name: "node-1", RSSI: -40})

	devs := reg.All()
	devs[0].Connected = true

	dev, _ := reg.Get("dev-1")
	if dev.Connected {
		t.Error("mutating a snapshot must not affect the registry")
	}
}
