package chat

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/LogOfSai/offgrid-bluetooth-chat/internal/ble"
)

// Connect establishes a session with a previously discovered device:
// transport connect, message-endpoint discovery, session creation, registry
// update. Concurrent Connect calls for the same device are serialized; a
// second call while a session exists (or is being built) is a benign no-op,
// so one device can never hold two sessions.
//
// On failure the registry is untouched and the caller may retry.
func (s *Service) Connect(id string) error {
	lock := s.devLock(id)
	lock.Lock()
	defer lock.Unlock()

	if !s.reg.Known(id) {
		return fmt.Errorf("chat: connect %s: %w", id, ErrDeviceNotFound)
	}
	if s.getSession(id) != nil {
		slog.Debug("[chat] already connected", "device", id)
		return nil
	}

	conn, err := s.adapter.Connect(context.Background(), id)
	if err != nil {
		slog.Warn("[chat] connect failed", "device", id, "error", err)
		return fmt.Errorf("chat: connect %s: %w", id, err)
	}

	msgChar, err := conn.DiscoverCharacteristic(ble.ServiceUUID, ble.MessageCharUUID)
	if err != nil {
		if derr := conn.Disconnect(); derr != nil {
			slog.Warn("[chat] teardown after failed discovery", "device", id, "error", derr)
		}
		slog.Warn("[chat] service discovery failed", "device", id, "error", err)
		return fmt.Errorf("chat: connect %s: %w", id, err)
	}

	sess := &session{conn: conn, msgChar: msgChar}
	s.mu.Lock()
	s.sessions[id] = sess
	s.mu.Unlock()
	s.reg.SetConnected(id, true)

	// The callback captures the session it belongs to, so a late disconnect
	// event from this link can never tear down a newer session for the same
	// device.
	conn.OnDisconnect(func() {
		s.handleLinkDrop(id, sess)
	})

	slog.Info("[chat] connected", "device", id)
	return nil
}

// Disconnect tears down the session for a device. A missing session (already
// disconnected) is a benign no-op. A transport-level disconnect failure is
// logged, not returned: the local state is always cleared so the device can
// never get stuck half-connected.
func (s *Service) Disconnect(id string) {
	lock := s.devLock(id)
	lock.Lock()
	defer lock.Unlock()

	s.mu.Lock()
	sess := s.sessions[id]
	delete(s.sessions, id)
	var sub *Subscription
	if sess != nil {
		sub = sess.sub
	}
	s.mu.Unlock()

	if sess == nil {
		return
	}

	if sub != nil {
		sub.Cancel()
	}
	if err := sess.conn.Disconnect(); err != nil {
		slog.Warn("[chat] disconnect failed, clearing local state anyway", "device", id, "error", err)
	}
	s.reg.SetConnected(id, false)
	slog.Info("[chat] disconnected", "device", id)
}

// handleLinkDrop clears session state when the transport reports the link
// went down on its own. The remote side is already gone, so there is no
// transport disconnect to issue. Only the session the event originated from
// is torn down: a delayed event from an old link must not destroy a session
// built by a later reconnect.
func (s *Service) handleLinkDrop(id string, dropped *session) {
	lock := s.devLock(id)
	lock.Lock()
	defer lock.Unlock()

	s.mu.Lock()
	sess := s.sessions[id]
	if sess != dropped {
		// Explicit Disconnect already ran, or the device reconnected and
		// this event belongs to the previous link.
		s.mu.Unlock()
		slog.Debug("[chat] ignoring disconnect for stale session", "device", id)
		return
	}
	delete(s.sessions, id)
	sub := sess.sub
	s.mu.Unlock()

	if sub != nil {
		sub.Cancel()
	}
	s.reg.SetConnected(id, false)
	slog.Warn("[chat] link dropped", "device", id)
}
