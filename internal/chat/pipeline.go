package chat

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/LogOfSai/offgrid-bluetooth-chat/internal/chat/crypto"
)

// MaxMessageBytes caps the UTF-8 plaintext size of one message. The wire
// payload is base64(nonce || ciphertext || tag), which for 256 bytes of text
// stays within the 512-byte GATT attribute limit. Oversized sends are
// rejected outright; there is no chunking or reassembly.
const MaxMessageBytes = 256

// Send encrypts text and transmits it to a connected device as a single
// characteristic write. The plaintext first passes the moderation gate; a
// flagged message is never sent and the rejection (a
// *moderation.RejectionError) is returned to the caller. On success Send
// returns the sent Message record; the core keeps no copy.
func (s *Service) Send(deviceID, text string) (Message, error) {
	sess := s.getSession(deviceID)
	if sess == nil {
		return Message{}, fmt.Errorf("chat: send to %s: %w", deviceID, ErrNotConnected)
	}

	if len(text) > MaxMessageBytes {
		return Message{}, fmt.Errorf("chat: send to %s: %d bytes: %w", deviceID, len(text), ErrMessageTooLarge)
	}

	if err := s.gate.Check(text); err != nil {
		slog.Info("[chat] send blocked by moderation", "device", deviceID, "error", err)
		return Message{}, err
	}

	key, err := s.keys.Key(deviceID)
	if err != nil {
		return Message{}, fmt.Errorf("chat: send to %s: session key: %w", deviceID, err)
	}
	ciphertext, err := crypto.EncryptString(key, text)
	if err != nil {
		return Message{}, fmt.Errorf("chat: send to %s: %w", deviceID, err)
	}

	if err := sess.msgChar.Write([]byte(ciphertext)); err != nil {
		slog.Warn("[chat] write failed", "device", deviceID, "error", err)
		return Message{}, fmt.Errorf("chat: send to %s: %w", deviceID, err)
	}

	return Message{
		ID:        uuid.NewString(),
		DeviceID:  deviceID,
		Content:   text,
		Timestamp: time.Now(),
		Direction: DirectionSent,
		Encrypted: true,
	}, nil
}

// Subscription is a cancellable stream of received messages from one device.
// Messages arrive on C in notification order; Cancel stops delivery and
// closes C. The session's disconnect path cancels automatically.
type Subscription struct {
	C <-chan Message

	mu     sync.Mutex
	ch     chan Message
	closed bool

	// onCancel releases the session's subscription slot so the device can be
	// subscribed to again. Set once at creation, invoked once.
	onCancel func()
}

func newSubscription(buffer int) *Subscription {
	ch := make(chan Message, buffer)
	return &Subscription{C: ch, ch: ch}
}

// Cancel stops delivery and closes the message channel, freeing the device
// for a later Subscribe. Safe to call more than once and concurrently with
// inbound notifications.
func (s *Subscription) Cancel() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.ch)
	cb := s.onCancel
	s.mu.Unlock()

	if cb != nil {
		cb()
	}
}

// deliver hands a decrypted message to the consumer. A full buffer means the
// consumer stopped draining; the message is dropped with a log line rather
// than blocking the transport's notification callback.
func (s *Subscription) deliver(msg Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.ch <- msg:
	default:
		slog.Warn("[chat] subscriber not draining, dropping message", "device", msg.DeviceID)
	}
}

// Subscribe opts in to receiving messages from a connected device. It
// establishes the notification subscription on the message characteristic
// and returns the stream. One subscription per device; a second Subscribe
// while one is active is an error, but cancelling frees the slot so the
// device can be subscribed to again.
//
// Malformed or undecryptable notifications are logged and dropped without
// disturbing the subscription.
func (s *Service) Subscribe(deviceID string) (*Subscription, error) {
	s.mu.Lock()
	sess := s.sessions[deviceID]
	if sess == nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("chat: subscribe to %s: %w", deviceID, ErrNotConnected)
	}
	if sess.sub != nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("chat: subscribe to %s: already subscribed", deviceID)
	}
	sub := newSubscription(s.opts.SubscriptionBuffer)
	sub.onCancel = func() {
		s.mu.Lock()
		if cur := s.sessions[deviceID]; cur != nil && cur.sub == sub {
			cur.sub = nil
		}
		s.mu.Unlock()
	}
	sess.sub = sub
	s.mu.Unlock()

	err := sess.msgChar.Subscribe(func(data []byte) {
		s.handleNotification(deviceID, sub, data)
	})
	if err != nil {
		s.mu.Lock()
		if cur := s.sessions[deviceID]; cur == sess {
			sess.sub = nil
		}
		s.mu.Unlock()
		sub.Cancel()
		return nil, fmt.Errorf("chat: subscribe to %s: %w", deviceID, err)
	}

	return sub, nil
}

// handleNotification decodes and decrypts one inbound payload. Failures are
// absorbed here: a garbled notification must never terminate the
// subscription or crash future deliveries.
func (s *Service) handleNotification(deviceID string, sub *Subscription, data []byte) {
	key, err := s.keys.Key(deviceID)
	if err != nil {
		slog.Warn("[chat] dropping notification, no session key", "device", deviceID, "error", err)
		return
	}

	plaintext, err := crypto.DecryptString(key, string(data))
	if err != nil {
		slog.Warn("[chat] dropping undecryptable notification", "device", deviceID, "bytes", len(data), "error", err)
		return
	}

	s.reg.Touch(deviceID)
	sub.deliver(Message{
		ID:        uuid.NewString(),
		DeviceID:  deviceID,
		Content:   plaintext,
		Timestamp: time.Now(),
		Direction: DirectionReceived,
		Encrypted: true,
	})
}
