// Package realtime pushes domain events to trip members over WebSockets.
//
// Each trip has a private channel; only active members may subscribe. Event
// delivery is fire-and-forget: publishing never blocks and never fails the
// operation that triggered it. Slow clients are dropped rather than buffered
// indefinitely.
package realtime

import (
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"
)

// Event names pushed to trip channels.
const (
	EventPaymentUpdated = "payment.updated"
	EventWithdrawalVote = "withdrawal.vote"
	EventMemberJoined   = "member.joined"
)

// Message is the wire format sent to subscribers.
type Message struct {
	Event  string `json:"event"`
	TripID string `json:"trip_id"`
	Data   any    `json:"data"`
}

type client struct {
	conn *websocket.Conn
	send chan Message
}

// Hub tracks WebSocket subscribers per trip and fans events out to them.
type Hub struct {
	mu    sync.RWMutex
	trips map[string]map[*client]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{trips: make(map[string]map[*client]struct{})}
}

// Publish sends an event to every subscriber of the trip's channel. It never
// blocks: clients whose send buffer is full are disconnected.
func (h *Hub) Publish(tripID, event string, data any) {
	msg := Message{Event: event, TripID: tripID, Data: data}

	// Sends happen under the read lock and channel closes under the write
	// lock, so a send can never hit a closed channel.
	var slow []*client
	h.mu.RLock()
	for c := range h.trips[tripID] {
		select {
		case c.send <- msg:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		slog.Debug("Dropping slow realtime client", "trip_id", tripID)
		h.remove(tripID, c)
	}
}

// Subscribe registers an upgraded connection on the trip's channel and pumps
// messages until the connection closes. The caller must have verified that
// the user is an active member of the trip.
func (h *Hub) Subscribe(tripID string, conn *websocket.Conn) {
	c := &client{
		conn: conn,
		send: make(chan Message, 256),
	}

	h.mu.Lock()
	if h.trips[tripID] == nil {
		h.trips[tripID] = make(map[*client]struct{})
	}
	h.trips[tripID][c] = struct{}{}
	h.mu.Unlock()

	go c.writePump()
	c.readPump(h, tripID)
}

// Subscribers returns the current subscriber count for a trip.
func (h *Hub) Subscribers(tripID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.trips[tripID])
}

func (h *Hub) remove(tripID string, c *client) {
	h.mu.Lock()
	if clients, ok := h.trips[tripID]; ok {
		if _, ok := clients[c]; ok {
			delete(clients, c)
			close(c.send)
			if len(clients) == 0 {
				delete(h.trips, tripID)
			}
		}
	}
	h.mu.Unlock()
}

func (c *client) writePump() {
	defer c.conn.Close()
	for msg := range c.send {
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}
}

// readPump discards inbound frames; the channel is push-only. It exists to
// detect closed connections and unregister the client.
func (c *client) readPump(h *Hub, tripID string) {
	defer func() {
		h.remove(tripID, c)
		c.conn.Close()
	}()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
