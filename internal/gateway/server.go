// Package gateway exposes the chat core to local consumers over HTTP and
// WebSocket: a device list, a send endpoint, and a push stream of received
// messages. It renders nothing; a UI in front of it is somebody else's job.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/LogOfSai/offgrid-bluetooth-chat/internal/chat"
	"github.com/LogOfSai/offgrid-bluetooth-chat/internal/chat/moderation"
)

// Chat is what the gateway needs from the core.
type Chat interface {
	Devices() []chat.Device
	ConnectedDevices() []chat.Device
	Send(deviceID, text string) (chat.Message, error)
}

// Event is one push frame on the WebSocket stream.
type Event struct {
	Type    string        `json:"type"` // "message"
	Message *chat.Message `json:"message,omitempty"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// The gateway binds to loopback; origin checks stay permissive.
		return true
	},
}

// Server bridges the chat core to HTTP/WebSocket consumers.
type Server struct {
	chat Chat
	addr string
	hub  *hub
}

// NewServer builds a gateway over the given core.
func NewServer(c Chat, addr string) *Server {
	return &Server{chat: c, addr: addr, hub: newHub()}
}

// Publish broadcasts a received message to every connected consumer.
func (s *Server) Publish(msg chat.Message) {
	data, err := json.Marshal(Event{Type: "message", Message: &msg})
	if err != nil {
		slog.Error("[gateway] marshal event", "error", err)
		return
	}
	// Publish never blocks the receive path: a stopped hub or a full buffer
	// drops the frame.
	select {
	case s.hub.broadcast <- data:
	case <-s.hub.done:
		slog.Debug("[gateway] hub stopped, event dropped")
	default:
		slog.Warn("[gateway] event buffer full, dropping frame")
	}
}

// Handler returns the gateway's HTTP mux, exposed for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/devices", s.handleDevices)
	mux.HandleFunc("/api/send", s.handleSend)
	mux.HandleFunc("/ws", s.handleWS)
	return mux
}

// Start serves until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	go s.hub.run(ctx)

	srv := &http.Server{Addr: s.addr, Handler: s.Handler()}
	go func() {
		<-ctx.Done()
		srv.Shutdown(context.Background())
	}()

	slog.Info("[gateway] listening", "addr", s.addr)
	err := srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) handleDevices(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	type response struct {
		Devices   []chat.Device `json:"devices"`
		Connected []chat.Device `json:"connected"`
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response{
		Devices:   s.chat.Devices(),
		Connected: s.chat.ConnectedDevices(),
	})
}

func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		DeviceID string `json:"device_id"`
		Content  string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	msg, err := s.chat.Send(req.DeviceID, req.Content)
	if err != nil {
		var rej *moderation.RejectionError
		switch {
		case errors.As(err, &rej):
			// Policy rejection, not a transport error: tell the caller why.
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnprocessableEntity)
			json.NewEncoder(w).Encode(map[string]string{"flagged": rej.Rule, "reason": rej.Reason})
		case errors.Is(err, chat.ErrNotConnected), errors.Is(err, chat.ErrDeviceNotFound):
			http.Error(w, err.Error(), http.StatusConflict)
		case errors.Is(err, chat.ErrMessageTooLarge):
			http.Error(w, err.Error(), http.StatusRequestEntityTooLarge)
		default:
			http.Error(w, err.Error(), http.StatusBadGateway)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(msg)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("[gateway] websocket upgrade failed", "error", err)
		return
	}
	client := &wsClient{hub: s.hub, conn: conn, send: make(chan []byte, 64)}
	select {
	case s.hub.register <- client:
	case <-s.hub.done:
		// An upgrade racing shutdown: the hub will never pick us up.
		conn.Close()
		return
	}
	go client.writeLoop()
	go client.readLoop()
}
