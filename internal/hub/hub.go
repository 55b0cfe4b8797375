// Package hub implements the realtime notification channel: a websocket
// hub that fans game signals out to connected clients. Topics are user
// IDs; a client subscribes to its own user's topic when the socket is
// opened. Delivery is at-most-once: a slow or gone client is dropped, not
// waited for.
package hub

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The browser client is served from a different origin in development.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Message is the envelope pushed to clients. Type carries the signal name
// ("refresh" or "cancelled").
type Message struct {
	Type string `json:"type"`
}

// Client is one websocket subscriber bound to a user topic.
type Client struct {
	hub    *Hub
	userID uint64
	socket *websocket.Conn
	send   chan []byte
}

type notification struct {
	userID uint64
	signal string
}

// Hub tracks connected clients and routes signals to them by user ID.
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	notify     chan notification
	mutex      sync.RWMutex
}

// New returns an idle Hub. Call Run in its own goroutine before serving
// websocket connections.
func New() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		notify:     make(chan notification, 64),
	}
}

// Run processes registrations and notifications until the process exits.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client] = true
			h.mutex.Unlock()
			log.Printf("hub: client registered for user %d (total %d)", client.userID, len(h.clients))

		case client := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mutex.Unlock()

		case n := <-h.notify:
			data, err := json.Marshal(Message{Type: n.signal})
			if err != nil {
				log.Printf("hub: marshal message: %v", err)
				continue
			}
			h.mutex.Lock()
			for client := range h.clients {
				if client.userID != n.userID {
					continue
				}
				select {
				case client.send <- data:
				default:
					// Slow consumer: drop the client rather than block
					// the hub.
					close(client.send)
					delete(h.clients, client)
				}
			}
			h.mutex.Unlock()
		}
	}
}

// Notify queues a signal for every client subscribed to the user's topic.
// It implements the game core's Notifier interface and never blocks: when
// the hub is saturated the signal is dropped.
func (h *Hub) Notify(userID uint64, signal string) {
	select {
	case h.notify <- notification{userID: userID, signal: signal}:
	default:
		log.Printf("hub: dropping %q signal for user %d", signal, userID)
	}
}

// Serve upgrades an HTTP request to a websocket subscribed to the given
// user's topic and pumps messages until either side goes away.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, userID uint64) error {
	socket, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	client := &Client{hub: h, userID: userID, socket: socket, send: make(chan []byte, 16)}
	h.register <- client

	go client.writePump()
	go client.readPump()
	return nil
}

// readPump discards inbound frames (clients only listen) and tears the
// client down when the socket errors or closes.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		_ = c.socket.Close()
	}()
	c.socket.SetReadLimit(512)
	_ = c.socket.SetReadDeadline(time.Now().Add(pongWait))
	c.socket.SetPongHandler(func(string) error {
		return c.socket.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.socket.ReadMessage(); err != nil {
			return
		}
	}
}

// writePump forwards queued messages to the socket and pings periodically
// so half-open connections are detected.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.socket.Close()
	}()
	for {
		select {
		case data, ok := <-c.send:
			_ = c.socket.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.socket.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.socket.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.socket.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.socket.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
