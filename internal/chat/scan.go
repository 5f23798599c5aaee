package chat

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/LogOfSai/offgrid-bluetooth-chat/internal/ble"
)

// StartScan opens a discovery window and blocks until it closes: after the
// configured window elapses, or earlier if StopScan is called. Every
// discovery event is routed into the registry. Callers wanting a background
// scan run StartScan in a goroutine.
//
// A StartScan while a window is already open is a harmless no-op. A failure
// to open the discovery subscription is returned to the caller; any devices
// already in the registry remain valid.
func (s *Service) StartScan() error {
	s.mu.Lock()
	if s.scanCancel != nil {
		s.mu.Unlock()
		slog.Debug("[chat] scan already in progress")
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.opts.ScanWindow)
	s.scanCancel = cancel
	s.mu.Unlock()

	defer func() {
		cancel()
		s.mu.Lock()
		s.scanCancel = nil
		s.mu.Unlock()
	}()

	slog.Info("[chat] scan started", "window", s.opts.ScanWindow)
	err := s.adapter.Scan(ctx, ble.ServiceUUID, func(d ble.Discovery) {
		s.reg.Upsert(d)
	})
	if err != nil {
		return fmt.Errorf("chat: scan: %w", err)
	}
	slog.Info("[chat] scan finished", "devices", len(s.reg.All()))
	return nil
}

// StopScan ends an open discovery window early. With no scan active it is a
// harmless no-op; it never fails the caller out of a cleanup path.
func (s *Service) StopScan() {
	s.mu.Lock()
	cancel := s.scanCancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}
