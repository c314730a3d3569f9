// Package events pushes server-initiated navigations to the open browser
// tabs of a device over WebSocket.
package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"
)

const writeTimeout = 5 * time.Second

// Conn is the part of *websocket.Conn the hub writes to.
type Conn interface {
	Write(ctx context.Context, typ websocket.MessageType, p []byte) error
	Close(code websocket.StatusCode, reason string) error
}

// Message is an event sent to a tab.
type Message struct {
	Type  string `json:"type"`
	To    string `json:"to,omitempty"`
	State any    `json:"state,omitempty"`
}

// Event types.
const (
	TypeNavigate = "navigate"
	TypePong     = "pong"
)

// Hub tracks one connection per device tab.
type Hub struct {
	logger *slog.Logger

	mu     sync.RWMutex
	active map[string]map[string]Conn
}

// NewHub creates an empty hub.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		logger: logger,
		active: make(map[string]map[string]Conn),
	}
}

// Register attaches conn to a device tab, closing any connection the tab
// had before.
func (h *Hub) Register(deviceID, tabID string, conn Conn) {
	h.mu.Lock()
	tabs, ok := h.active[deviceID]
	if !ok {
		tabs = make(map[string]Conn)
		h.active[deviceID] = tabs
	}
	replaced := tabs[tabID]
	tabs[tabID] = conn
	h.mu.Unlock()

	// Close can block on the peer; never under h.mu.
	if replaced != nil && replaced != conn {
		_ = replaced.Close(websocket.StatusNormalClosure, "tab reconnected")
	}
	h.logger.Debug("Event stream registered", "device_id", deviceID, "tab_id", tabID)
}

// Unregister detaches conn if it is still the tab's connection.
func (h *Hub) Unregister(deviceID, tabID string, conn Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	tabs, ok := h.active[deviceID]
	if !ok || tabs[tabID] != conn {
		return
	}
	delete(tabs, tabID)
	if len(tabs) == 0 {
		delete(h.active, deviceID)
	}
	h.logger.Debug("Event stream unregistered", "device_id", deviceID, "tab_id", tabID)
}

// Navigate tells every tab of the device to go to path to, passing state to
// the page. It returns the number of tabs reached.
func (h *Hub) Navigate(deviceID, to string, state any) int {
	return h.Send(deviceID, Message{Type: TypeNavigate, To: to, State: state})
}

// Send writes msg to every tab of the device.
func (h *Hub) Send(deviceID string, msg Message) int {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("Failed to encode event", "type", msg.Type, "error", err)
		return 0
	}

	h.mu.RLock()
	conns := make([]Conn, 0, len(h.active[deviceID]))
	for _, c := range h.active[deviceID] {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	sent := 0
	for _, c := range conns {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		err := c.Write(ctx, websocket.MessageText, data)
		cancel()
		if err != nil {
			h.logger.Debug("Event write failed", "device_id", deviceID, "type", msg.Type, "error", err)
			continue
		}
		sent++
	}
	return sent
}

// NavigateTab sends a navigation to a single tab of a device and reports
// whether it was delivered.
func (h *Hub) NavigateTab(deviceID, tabID, to string, state any) bool {
	data, err := json.Marshal(Message{Type: TypeNavigate, To: to, State: state})
	if err != nil {
		h.logger.Error("Failed to encode event", "type", TypeNavigate, "error", err)
		return false
	}
	h.mu.RLock()
	c, ok := h.active[deviceID][tabID]
	h.mu.RUnlock()
	if !ok {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := c.Write(ctx, websocket.MessageText, data); err != nil {
		h.logger.Debug("Event write failed", "device_id", deviceID, "tab_id", tabID, "error", err)
		return false
	}
	return true
}

// CloseDevice closes every tab connection of a device.
func (h *Hub) CloseDevice(deviceID string) {
	h.mu.Lock()
	tabs := h.active[deviceID]
	delete(h.active, deviceID)
	h.mu.Unlock()

	for tab, c := range tabs {
		_ = c.Close(websocket.StatusNormalClosure, "session closed")
		h.logger.Debug("Event stream closed", "device_id", deviceID, "tab_id", tab)
	}
}

// Tabs returns the number of connected tabs of a device.
func (h *Hub) Tabs(deviceID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.active[deviceID])
}
