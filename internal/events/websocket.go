package events

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/ashureev/vami-console/internal/identity"
	"github.com/coder/websocket"
)

// Handler upgrades a request to the device event stream.
type Handler struct {
	hub            *Hub
	allowedOrigins []string
	isDev          bool
}

// NewHandler serves hub to browsers from allowedOrigins. In development any
// origin is accepted.
func NewHandler(hub *Hub, allowedOrigins []string, isDev bool) *Handler {
	return &Handler{hub: hub, allowedOrigins: allowedOrigins, isDev: isDev}
}

type clientMessage struct {
	Type string `json:"type"`
}

// ServeHTTP implements http.Handler. It expects identity.Middleware to have
// run.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	deviceID := identity.DeviceIDFromContext(r.Context())
	tabID := identity.TabIDFromContext(r.Context())
	if deviceID == "" {
		http.Error(w, "unknown device", http.StatusBadRequest)
		return
	}
	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		h.hub.logger.Error("Failed to accept event stream", "error", err, "device_id", deviceID)
		return
	}
	defer func() { _ = ws.CloseNow() }()

	h.hub.Register(deviceID, tabID, ws)
	defer h.hub.Unregister(deviceID, tabID, ws)
	h.hub.logger.Info("Event stream opened",
		"device_id", deviceID, "tab_id", tabID,
		"ip", identity.IPFromRequest(r), "tabs", h.hub.Tabs(deviceID))

	h.readLoop(r.Context(), ws, deviceID)
}

// readLoop answers pings until the tab goes away.
func (h *Handler) readLoop(ctx context.Context, ws *websocket.Conn, deviceID string) {
	for {
		_, data, err := ws.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) == -1 && ctx.Err() == nil {
				h.hub.logger.Debug("Event stream read error", "error", err, "device_id", deviceID)
			}
			return
		}
		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		if msg.Type == "ping" {
			pong, _ := json.Marshal(Message{Type: TypePong})
			if err := ws.Write(ctx, websocket.MessageText, pong); err != nil {
				return
			}
		}
	}
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	if h.isDev {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, o := range h.allowedOrigins {
		if o == "*" || o == origin {
			return true
		}
	}
	h.hub.logger.Warn("Event stream origin rejected", "origin", origin)
	return false
}
